package domain

// RoomKind identifies a realtime fan-out target family.
type RoomKind string

const (
	RoomChannel   RoomKind = "channel"
	RoomWorkspace RoomKind = "workspace"
)

// Valid reports whether the kind is known.
func (k RoomKind) Valid() bool {
	return k == RoomChannel || k == RoomWorkspace
}
