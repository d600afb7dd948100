package app

import (
	"github.com/dkeye/watchparty/internal/core"
	"github.com/dkeye/watchparty/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a member whose send buffer was full
// during a broadcast. Closed channels are always pruned regardless.
type Policy interface {
	OnBackpressure(sid domain.SessionID, member core.Member) BackpressureAction
}

// SkipPolicy drops the frame for the slow member and keeps it connected.
type SkipPolicy struct{}

func (SkipPolicy) OnBackpressure(domain.SessionID, core.Member) BackpressureAction {
	return NoAction
}

// KickPolicy disconnects slow members; they resync on their next join.
type KickPolicy struct{}

func (KickPolicy) OnBackpressure(domain.SessionID, core.Member) BackpressureAction {
	return KickMember
}
