package service

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/TESCHEL/agenthq/internal/auth"
	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/events"
	"github.com/TESCHEL/agenthq/internal/repository"
	apperrors "github.com/TESCHEL/agenthq/pkg/util/errorutil"
)

const maxMessageLength = 10000

// MessageService appends to and reads channel timelines.
type MessageService struct {
	messages repository.MessageRepository
	channels repository.ChannelRepository
	access   *auth.AccessChecker
	markdown goldmark.Markdown
	events   publisher
	logger   *zap.Logger
}

// MessageDependencies bundles collaborators for the message service.
type MessageDependencies struct {
	MessageRepo repository.MessageRepository
	ChannelRepo repository.ChannelRepository
	Access      *auth.AccessChecker
	Dispatcher  events.Dispatcher
	Clock       Clock
	Logger      *zap.Logger
}

// NewMessageService constructs the service.
func NewMessageService(deps MessageDependencies) *MessageService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		messages: deps.MessageRepo,
		channels: deps.ChannelRepo,
		access:   deps.Access,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		events:   publisher{dispatcher: deps.Dispatcher, now: clockOrNow(deps.Clock)},
		logger:   logger.Named("message_service"),
	}
}

// List returns up to limit messages older than the before cursor, oldest first.
func (s *MessageService) List(ctx context.Context, principal *auth.Principal, channelID string, limit int, before string) ([]domain.Message, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	if _, err := s.access.CheckChannel(ctx, principal, channelID); err != nil {
		return nil, err
	}
	messages, err := s.messages.ListByChannel(ctx, channelID, limit, before)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return messages, nil
}

// Send appends a message authored by the caller and announces it to the
// channel room.
func (s *MessageService) Send(ctx context.Context, principal *auth.Principal, channelID, content string, messageType domain.MessageType) (*domain.Message, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	if messageType == "" {
		messageType = domain.MessageTypeText
	}
	if messageType != domain.MessageTypeText && messageType != domain.MessageTypeMarkdown {
		return nil, apperrors.NewValidationError("invalid message type", map[string]any{"field": "message_type", "message_type": messageType})
	}
	content, err := requiredText("content", content, maxMessageLength)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.CheckChannel(ctx, principal, channelID); err != nil {
		return nil, err
	}
	return s.create(ctx, channelID, principal.Author(), content, messageType)
}

// PostSystem appends a message with no author.
func (s *MessageService) PostSystem(ctx context.Context, channelID, content string) (*domain.Message, error) {
	content, err := requiredText("content", content, maxMessageLength)
	if err != nil {
		return nil, err
	}
	if _, err := s.channels.GetByID(ctx, channelID); err != nil {
		return nil, apperrors.NotFoundOr(err, "channel", map[string]any{"channel_id": channelID})
	}
	return s.create(ctx, channelID, domain.SystemAuthor{}, content, domain.MessageTypeEvent)
}

func (s *MessageService) create(ctx context.Context, channelID string, author domain.Author, content string, messageType domain.MessageType) (*domain.Message, error) {
	msg := &domain.Message{ChannelID: channelID, Content: content, MessageType: messageType}
	msg.SetAuthor(author)
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.Event{
		Type:     events.EventMessageCreated,
		RoomKind: domain.RoomChannel,
		RoomID:   channelID,
		Actor:    events.ActorFromAuthor(author),
		Payload:  events.NewMessagePayload(msg, s.Render(msg)),
	})
	return msg, nil
}

// Render returns sanitised HTML for markdown messages and "" otherwise.
func (s *MessageService) Render(msg *domain.Message) string {
	if msg.MessageType != domain.MessageTypeMarkdown {
		return ""
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(msg.Content), &buf); err != nil {
		s.logger.Warn("markdown render failed", zap.String("message_id", msg.ID), zap.Error(err))
		return ""
	}
	return buf.String()
}
