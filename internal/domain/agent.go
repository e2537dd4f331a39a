package domain

import "time"

// Agent is a non-human identity scoped to exactly one workspace.
// APIKey is generated once at creation and is the only agent credential.
type Agent struct {
	ID          string
	WorkspaceID string
	Name        string
	APIKey      string
	IsActive    bool
	LastSeenAt  *time.Time
	CreatedAt   time.Time
}
