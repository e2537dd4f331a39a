package domain

import "time"

// MemberRole is informational; access checks only test membership existence.
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

// Valid reports whether the role is known.
func (r MemberRole) Valid() bool {
	return r == MemberRoleOwner || r == MemberRoleMember
}

// Workspace is the top-level tenancy boundary.
type Workspace struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}

// WorkspaceMember joins a human to a workspace.
type WorkspaceMember struct {
	WorkspaceID string
	HumanID     string
	Role        MemberRole
	JoinedAt    time.Time
}
