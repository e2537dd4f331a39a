package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoffTransition_OpenToResolvedRejected(t *testing.T) {
	h := &Handoff{Status: HandoffStatusOpen}

	err := h.Transition(HandoffStatusResolved, time.Now())

	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, HandoffStatusOpen, invalid.Current)
	assert.Equal(t, HandoffStatusResolved, invalid.Requested)
	assert.Equal(t, HandoffStatusOpen, h.Status)
	assert.Nil(t, h.ResolvedAt)
}

func TestHandoffTransition_FullLifecycle(t *testing.T) {
	h := &Handoff{Status: HandoffStatusOpen}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, h.Transition(HandoffStatusInProgress, now))
	assert.Equal(t, HandoffStatusInProgress, h.Status)
	assert.Nil(t, h.ResolvedAt)

	require.NoError(t, h.Transition(HandoffStatusResolved, now.Add(time.Minute)))
	assert.Equal(t, HandoffStatusResolved, h.Status)
	require.NotNil(t, h.ResolvedAt)
	assert.Equal(t, now.Add(time.Minute), *h.ResolvedAt)
}

func TestHandoffTransition_IllegalMoves(t *testing.T) {
	cases := []struct {
		from, to HandoffStatus
	}{
		{HandoffStatusOpen, HandoffStatusOpen},
		{HandoffStatusInProgress, HandoffStatusOpen},
		{HandoffStatusInProgress, HandoffStatusInProgress},
		{HandoffStatusResolved, HandoffStatusOpen},
		{HandoffStatusResolved, HandoffStatusInProgress},
		{HandoffStatusResolved, HandoffStatusResolved},
		{HandoffStatusOpen, HandoffStatus("CLOSED")},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			resolved := time.Now().Add(-time.Hour)
			h := &Handoff{Status: tc.from}
			if tc.from == HandoffStatusResolved {
				h.ResolvedAt = &resolved
			}

			err := h.Transition(tc.to, time.Now())

			var invalid *InvalidTransitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tc.from, h.Status)
			if tc.from == HandoffStatusResolved {
				assert.Equal(t, resolved, *h.ResolvedAt)
			} else {
				assert.Nil(t, h.ResolvedAt)
			}
		})
	}
}

func TestHandoffStatusAndPriority(t *testing.T) {
	assert.True(t, HandoffStatusResolved.Terminal())
	assert.False(t, HandoffStatusOpen.Terminal())
	assert.False(t, HandoffStatus("BOGUS").Valid())

	assert.Less(t, HandoffPriorityLow.Rank(), HandoffPriorityMedium.Rank())
	assert.Less(t, HandoffPriorityMedium.Rank(), HandoffPriorityHigh.Rank())
	assert.Less(t, HandoffPriorityHigh.Rank(), HandoffPriorityUrgent.Rank())
	assert.Equal(t, -1, HandoffPriority("nope").Rank())
	assert.False(t, HandoffPriority("nope").Valid())
}
