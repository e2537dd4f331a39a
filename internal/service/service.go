package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/TESCHEL/agenthq/internal/auth"
	"github.com/TESCHEL/agenthq/internal/events"
	apperrors "github.com/TESCHEL/agenthq/pkg/util/errorutil"
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

type publisher struct {
	dispatcher events.Dispatcher
	now        Clock
}

// publish stamps and dispatches an event. It must only be called after the
// change it describes is persisted.
func (p publisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	_ = p.dispatcher.Publish(ctx, event)
}

func actorFor(principal *auth.Principal) events.Actor {
	if principal == nil {
		return events.ActorFromAuthor(nil)
	}
	return events.ActorFromAuthor(principal.Author())
}

func requirePrincipal(principal *auth.Principal) error {
	if principal == nil || (!principal.IsHuman() && !principal.IsAgent()) {
		return apperrors.NewUnauthenticated("authentication required")
	}
	return nil
}

func requireHuman(principal *auth.Principal) error {
	if err := requirePrincipal(principal); err != nil {
		return err
	}
	if !principal.IsHuman() {
		return apperrors.NewForbidden("human caller required")
	}
	return nil
}

func requireAgent(principal *auth.Principal) error {
	if err := requirePrincipal(principal); err != nil {
		return err
	}
	if !principal.IsAgent() {
		return apperrors.NewForbidden("agent caller required")
	}
	return nil
}

// requiredText trims value and checks it is non-empty and at most max runes.
func requiredText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperrors.NewValidationError(field+" is required", map[string]any{"field": field})
	}
	if utf8.RuneCountInString(value) > max {
		return "", apperrors.NewValidationError(field+" is too long", map[string]any{"field": field, "max": max})
	}
	return value, nil
}

func optionalText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) > max {
		return "", apperrors.NewValidationError(field+" is too long", map[string]any{"field": field, "max": max})
	}
	return value, nil
}
