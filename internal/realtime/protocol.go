package realtime

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/events"
)

// ControlType enumerates client control frames.
type ControlType string

const (
	ControlJoinChannel    ControlType = "join_channel"
	ControlLeaveChannel   ControlType = "leave_channel"
	ControlJoinWorkspace  ControlType = "join_workspace"
	ControlLeaveWorkspace ControlType = "leave_workspace"
)

// ErrMalformedFrame marks a control frame that failed structural validation.
var ErrMalformedFrame = errors.New("realtime: malformed control frame")

// ControlFrame is a client to server subscription request.
type ControlFrame struct {
	Type        ControlType `json:"type"`
	ChannelID   string      `json:"channel_id,omitempty"`
	WorkspaceID string      `json:"workspace_id,omitempty"`
}

// controlWire accepts both key spellings clients send.
type controlWire struct {
	Type             ControlType `json:"type"`
	ChannelID        string      `json:"channel_id"`
	WorkspaceID      string      `json:"workspace_id"`
	ChannelIDCamel   string      `json:"channelId"`
	WorkspaceIDCamel string      `json:"workspaceId"`
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ParseControlFrame decodes and validates a control frame. Room ids may be
// sent as channel_id/workspace_id or channelId/workspaceId.
func ParseControlFrame(data []byte) (ControlFrame, error) {
	var wire controlWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return ControlFrame{}, ErrMalformedFrame
	}
	frame := ControlFrame{
		Type:        wire.Type,
		ChannelID:   firstNonBlank(wire.ChannelID, wire.ChannelIDCamel),
		WorkspaceID: firstNonBlank(wire.WorkspaceID, wire.WorkspaceIDCamel),
	}

	switch frame.Type {
	case ControlJoinChannel, ControlLeaveChannel:
		if frame.ChannelID == "" {
			return ControlFrame{}, ErrMalformedFrame
		}
	case ControlJoinWorkspace, ControlLeaveWorkspace:
		if frame.WorkspaceID == "" {
			return ControlFrame{}, ErrMalformedFrame
		}
	default:
		return ControlFrame{}, ErrMalformedFrame
	}
	return frame, nil
}

// Join reports whether the frame adds interest.
func (f ControlFrame) Join() bool {
	return f.Type == ControlJoinChannel || f.Type == ControlJoinWorkspace
}

// Room returns the room the frame targets.
func (f ControlFrame) Room() Room {
	if f.Type == ControlJoinChannel || f.Type == ControlLeaveChannel {
		return ChannelRoom(f.ChannelID)
	}
	return WorkspaceRoom(f.WorkspaceID)
}

// EventFrame is a server to client notification.
type EventFrame struct {
	Type        string      `json:"type"`
	ChannelID   string      `json:"channel_id,omitempty"`
	WorkspaceID string      `json:"workspace_id,omitempty"`
	Payload     interface{} `json:"payload"`
}

// NewEventFrame builds the wire frame for a dispatched event.
func NewEventFrame(event events.Event) EventFrame {
	frame := EventFrame{Type: string(event.Type), Payload: event.Payload}
	switch event.RoomKind {
	case domain.RoomChannel:
		frame.ChannelID = event.RoomID
	case domain.RoomWorkspace:
		frame.WorkspaceID = event.RoomID
	}
	return frame
}
