package domain

import (
	"fmt"
	"time"
)

// AuthorType indicates who authored a message.
type AuthorType string

const (
	AuthorTypeHuman  AuthorType = "human"
	AuthorTypeAgent  AuthorType = "agent"
	AuthorTypeSystem AuthorType = "system"
)

// MessageType is a free-form rendering hint. Known values are listed below;
// anything else is treated as plain text.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeMarkdown MessageType = "markdown"
	MessageTypeEvent    MessageType = "event"
)

// Author is the closed set of message authors: HumanAuthor, AgentAuthor or
// SystemAuthor.
type Author interface {
	Type() AuthorType
	isAuthor()
}

// HumanAuthor marks a message written by a workspace member.
type HumanAuthor struct{ HumanID string }

// AgentAuthor marks a message written by an agent.
type AgentAuthor struct{ AgentID string }

// SystemAuthor marks a message generated by the platform. It has no id.
type SystemAuthor struct{}

func (HumanAuthor) Type() AuthorType  { return AuthorTypeHuman }
func (AgentAuthor) Type() AuthorType  { return AuthorTypeAgent }
func (SystemAuthor) Type() AuthorType { return AuthorTypeSystem }

func (HumanAuthor) isAuthor()  {}
func (AgentAuthor) isAuthor()  {}
func (SystemAuthor) isAuthor() {}

// Message is an immutable chat entry in a channel.
type Message struct {
	ID          string
	ChannelID   string
	AuthorType  AuthorType
	AuthorID    *string
	Content     string
	MessageType MessageType
	CreatedAt   time.Time
}

// SetAuthor stores the variant in the persisted (type, id) shape.
func (m *Message) SetAuthor(a Author) {
	switch v := a.(type) {
	case HumanAuthor:
		id := v.HumanID
		m.AuthorType, m.AuthorID = AuthorTypeHuman, &id
	case AgentAuthor:
		id := v.AgentID
		m.AuthorType, m.AuthorID = AuthorTypeAgent, &id
	case SystemAuthor:
		m.AuthorType, m.AuthorID = AuthorTypeSystem, nil
	default:
		panic(fmt.Sprintf("domain: unknown author %T", a))
	}
}

// Author rebuilds the variant from the persisted shape. A human or agent row
// without an author id, or a system row with one, is rejected.
func (m *Message) Author() (Author, error) {
	switch m.AuthorType {
	case AuthorTypeHuman:
		if m.AuthorID == nil || *m.AuthorID == "" {
			return nil, fmt.Errorf("message %s: human author without id", m.ID)
		}
		return HumanAuthor{HumanID: *m.AuthorID}, nil
	case AuthorTypeAgent:
		if m.AuthorID == nil || *m.AuthorID == "" {
			return nil, fmt.Errorf("message %s: agent author without id", m.ID)
		}
		return AgentAuthor{AgentID: *m.AuthorID}, nil
	case AuthorTypeSystem:
		if m.AuthorID != nil {
			return nil, fmt.Errorf("message %s: system author with id", m.ID)
		}
		return SystemAuthor{}, nil
	default:
		return nil, fmt.Errorf("message %s: unknown author type %q", m.ID, m.AuthorType)
	}
}
