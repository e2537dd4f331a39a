package domain

import "time"

// PrincipalKind differentiates human vs agent callers.
type PrincipalKind string

const (
	PrincipalHuman PrincipalKind = "human"
	PrincipalAgent PrincipalKind = "agent"
)

// Token represents issued authentication token metadata.
type Token struct {
	Value     string
	SubjectID string
	ExpiresAt time.Time
}
