package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TESCHEL/agenthq/internal/domain"
)

func TestToDomainError(t *testing.T) {
	t.Run("passes domain errors through", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", NewForbidden("nope"))
		de := ToDomainError(err)
		assert.Equal(t, CodeForbidden, de.Code)
		assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
	})

	t.Run("no rows is not found", func(t *testing.T) {
		de := ToDomainError(pgx.ErrNoRows)
		assert.Equal(t, CodeNotFound, de.Code)
	})

	t.Run("invalid transition carries statuses", func(t *testing.T) {
		de := ToDomainError(&domain.InvalidTransitionError{
			Current:   domain.HandoffStatusOpen,
			Requested: domain.HandoffStatusResolved,
		})
		assert.Equal(t, CodeInvalidTransition, de.Code)
		assert.Equal(t, http.StatusConflict, de.HTTPStatus)
		assert.Equal(t, domain.HandoffStatusOpen, de.Details["current"])
		assert.Equal(t, domain.HandoffStatusResolved, de.Details["requested"])
	})

	t.Run("unique violation is conflict", func(t *testing.T) {
		de := ToDomainError(&pgconn.PgError{Code: "23505", ConstraintName: "workspaces_slug_key"})
		assert.Equal(t, CodeConflict, de.Code)
	})

	t.Run("anything else is internal", func(t *testing.T) {
		de := ToDomainError(errors.New("connection reset"))
		assert.Equal(t, CodeInternal, de.Code)
		assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	})
}

func TestSentinelsMatchByCode(t *testing.T) {
	require.ErrorIs(t, NewUnauthenticated("missing"), ErrUnauthenticated)
	require.ErrorIs(t, NewForbidden("scope"), ErrForbidden)
	require.ErrorIs(t, NewNotFound("handoff", nil), ErrNotFound)
	assert.NotErrorIs(t, NewForbidden("scope"), ErrUnauthenticated)
}

func TestNotFoundOr(t *testing.T) {
	assert.Nil(t, NotFoundOr(nil, "channel", nil))
	err := NotFoundOr(pgx.ErrNoRows, "channel", map[string]any{"channel_id": "c1"})
	de := ToDomainError(err)
	assert.Equal(t, "channel not found", de.Message)
	assert.Equal(t, "c1", de.Details["channel_id"])
}

func TestMalformedIDIsNotFound(t *testing.T) {
	badUUID := fmt.Errorf("query handoff: %w", &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"})

	assert.True(t, IsNotFound(badUUID))
	assert.True(t, IsNotFound(pgx.ErrNoRows))
	assert.False(t, IsNotFound(errors.New("connection reset")))

	de := ToDomainError(NotFoundOr(badUUID, "handoff", map[string]any{"handoff_id": "abc"}))
	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
	assert.Equal(t, "handoff not found", de.Message)

	assert.Equal(t, CodeNotFound, ToDomainError(badUUID).Code)
}
