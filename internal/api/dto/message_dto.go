package dto

import (
	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/events"
)

// SendMessageRequest payload.
type SendMessageRequest struct {
	Content     string             `json:"content"`
	MessageType domain.MessageType `json:"message_type"`
}

// MessageResponse has the same shape as the message.created payload.
type MessageResponse = events.MessagePayload
