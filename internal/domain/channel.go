package domain

import "time"

// Channel is a chat room inside a workspace. IsPrivate is stored but access is
// still decided by workspace membership alone.
type Channel struct {
	ID          string
	WorkspaceID string
	Name        string
	Description string
	IsPrivate   bool
	CreatedAt   time.Time
}
