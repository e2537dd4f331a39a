package domain

import (
	"fmt"
	"time"
)

// HandoffStatus enumerates lifecycle states for handoffs.
type HandoffStatus string

const (
	HandoffStatusOpen       HandoffStatus = "OPEN"
	HandoffStatusInProgress HandoffStatus = "IN_PROGRESS"
	HandoffStatusResolved   HandoffStatus = "RESOLVED"
)

// HandoffPriority enumerates urgency levels.
type HandoffPriority string

const (
	HandoffPriorityLow    HandoffPriority = "LOW"
	HandoffPriorityMedium HandoffPriority = "MEDIUM"
	HandoffPriorityHigh   HandoffPriority = "HIGH"
	HandoffPriorityUrgent HandoffPriority = "URGENT"
)

var priorityRank = map[HandoffPriority]int{
	HandoffPriorityLow:    0,
	HandoffPriorityMedium: 1,
	HandoffPriorityHigh:   2,
	HandoffPriorityUrgent: 3,
}

// Valid reports whether the priority is known.
func (p HandoffPriority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank orders priorities for display only. Unknown values rank -1.
func (p HandoffPriority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return -1
}

var allowedHandoffTransitions = map[HandoffStatus][]HandoffStatus{
	HandoffStatusOpen:       {HandoffStatusInProgress},
	HandoffStatusInProgress: {HandoffStatusResolved},
	HandoffStatusResolved:   {},
}

// Valid reports whether the status is known.
func (s HandoffStatus) Valid() bool {
	_, ok := allowedHandoffTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s HandoffStatus) Terminal() bool {
	return s.Valid() && len(allowedHandoffTransitions[s]) == 0
}

// CanTransitionTo reports whether next is in the allowed-next-states table for s.
func (s HandoffStatus) CanTransitionTo(next HandoffStatus) bool {
	for _, candidate := range allowedHandoffTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// InvalidTransitionError is returned when a requested status is not reachable
// from the current one.
type InvalidTransitionError struct {
	Current   HandoffStatus
	Requested HandoffStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid handoff transition %s -> %s", e.Current, e.Requested)
}

// Handoff is a task transfer from an agent to human oversight.
type Handoff struct {
	ID          string
	WorkspaceID string
	ChannelID   *string
	Title       string
	Description string
	Status      HandoffStatus
	Priority    HandoffPriority
	FromAgentID *string
	ToHumanID   *string
	ResolvedAt  *time.Time
	CreatedAt   time.Time
}

// Transition moves the handoff to next. On error the handoff is unchanged.
// ResolvedAt is set only on entering the terminal status.
func (h *Handoff) Transition(next HandoffStatus, now time.Time) error {
	if !h.Status.CanTransitionTo(next) {
		return &InvalidTransitionError{Current: h.Status, Requested: next}
	}
	h.Status = next
	if next.Terminal() {
		resolved := now
		h.ResolvedAt = &resolved
	}
	return nil
}
