package domain

import "time"

// Human is a person identity that logs in with email and password.
type Human struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
}
