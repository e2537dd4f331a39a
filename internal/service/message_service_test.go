package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/events"
	apperrors "github.com/TESCHEL/agenthq/pkg/util/errorutil"
)

func TestSendPublishesAfterPersisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var storedAtPublish int
	f.dispatcher.Subscribe(events.EventMessageCreated, func(ctx context.Context, e events.Event) error {
		msgs, err := f.repos.Messages.ListByChannel(ctx, e.RoomID, 0, "")
		storedAtPublish = len(msgs)
		return err
	})

	msg, err := f.messages.Send(ctx, f.agent, f.channel.ID, "  hello  ", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, domain.MessageTypeText, msg.MessageType)
	assert.Equal(t, domain.AuthorTypeAgent, msg.AuthorType)
	require.NotNil(t, msg.AuthorID)
	assert.Equal(t, f.agent.ID(), *msg.AuthorID)
	assert.Equal(t, 1, storedAtPublish)

	published := f.recorded.ofType(events.EventMessageCreated)
	require.Len(t, published, 1)
	assert.Equal(t, domain.RoomChannel, published[0].RoomKind)
	assert.Equal(t, f.channel.ID, published[0].RoomID)
	assert.Equal(t, domain.AuthorTypeAgent, published[0].Actor.Type)
	payload, ok := published[0].Payload.(events.MessagePayload)
	require.True(t, ok)
	assert.Equal(t, msg.ID, payload.ID)
}

func TestSendAcrossWorkspaceIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foreign, err := f.workspaces.CreateChannel(ctx, f.outsider, f.otherWS.ID, ChannelInput{Name: "secret"})
	require.NoError(t, err)

	_, err = f.messages.Send(ctx, f.agent, foreign.ID, "hi", "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	msgs, err := f.repos.Messages.ListByChannel(ctx, foreign.ID, 0, "")
	require.NoError(t, err)
	assert.Empty(t, msgs, "nothing persisted")
	assert.Empty(t, f.recorded.ofType(events.EventMessageCreated), "nothing published")

	_, err = f.messages.Send(ctx, f.owner, "missing", "hi", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.messages.Send(ctx, f.owner, f.channel.ID, "   ", "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.messages.Send(ctx, f.owner, f.channel.ID, "x", domain.MessageTypeEvent)
	assert.ErrorIs(t, err, apperrors.ErrValidation, "event messages are system only")
}

func TestMarkdownRendering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.messages.Send(ctx, f.owner, f.channel.ID, "**bold** <script>x</script>", domain.MessageTypeMarkdown)
	require.NoError(t, err)
	html := f.messages.Render(msg)
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.NotContains(t, html, "<script>")

	plain, err := f.messages.Send(ctx, f.owner, f.channel.ID, "**bold**", "")
	require.NoError(t, err)
	assert.Empty(t, f.messages.Render(plain))
}

func TestPostSystemAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.messages.Send(ctx, f.owner, f.channel.ID, "first", "")
	require.NoError(t, err)
	system, err := f.messages.PostSystem(ctx, f.channel.ID, "deploy finished")
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorTypeSystem, system.AuthorType)
	assert.Nil(t, system.AuthorID)

	msgs, err := f.messages.List(ctx, f.agent, f.channel.ID, 10, "")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "deploy finished", msgs[1].Content)

	older, err := f.messages.List(ctx, f.owner, f.channel.ID, 10, msgs[1].ID)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, "first", older[0].Content)

	_, err = f.messages.List(ctx, f.outsider, f.channel.ID, 10, "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.messages.PostSystem(ctx, "missing", "x")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
