package core

import "github.com/dkeye/watchparty/internal/domain"

type ClientID string

// Member is one participant channel inside a session.
type Member struct {
	ClientID ClientID
	Signal   SignalConnection
}

// BroadcastResult reports delivery stats to the relay.
type BroadcastResult struct {
	SentTo  int
	Dropped []Member
	Pruned  int
}

// RoomService is the membership set of a single session.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	SessionID() domain.SessionID
	MemberCount() int
	Clients() []ClientID

	AddMember(m Member)
	RemoveMember(sig SignalConnection) bool
	Broadcast(from ClientID, data Frame) BroadcastResult
	Unicast(sig SignalConnection, data Frame) error
}
