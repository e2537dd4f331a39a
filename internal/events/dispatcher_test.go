package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TESCHEL/agenthq/internal/domain"
)

func TestDispatcherRunsHandlersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string

	d.Subscribe(EventMessageCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventMessageCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.RoomID)
		return nil
	})
	d.Subscribe(EventHandoffCreated, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventMessageCreated, RoomID: "c1"}))
	assert.Equal(t, []string{"first", "second:c1"}, calls)
}

func TestActorFromAuthor(t *testing.T) {
	actor := ActorFromAuthor(domain.AgentAuthor{AgentID: "a1"})
	assert.Equal(t, domain.AuthorTypeAgent, actor.Type)
	require.NotNil(t, actor.ID)
	assert.Equal(t, "a1", *actor.ID)

	system := ActorFromAuthor(domain.SystemAuthor{})
	assert.Equal(t, domain.AuthorTypeSystem, system.Type)
	assert.Nil(t, system.ID)
}
