package app

import (
	"context"
	"time"

	"github.com/dkeye/watchparty/internal/domain"
)

type ChangeKind string

const (
	ChangeLive ChangeKind = "live"
	ChangeSync ChangeKind = "sync"
)

// PlaybackChange describes a state change applied to the registry.
type PlaybackChange struct {
	Kind      ChangeKind       `json:"kind"`
	SessionID domain.SessionID `json:"session_id"`
	ClientID  string           `json:"client_id,omitempty"`
	Position  float64          `json:"position"`
	Playing   bool             `json:"playing"`
	At        time.Time        `json:"at"`
	Revision  uint64           `json:"revision"`
}

// EventSink receives applied playback changes. Implementations must not
// block; they are called after the session lock is released.
type EventSink interface {
	PlaybackChanged(ctx context.Context, change PlaybackChange)
}

type NopSink struct{}

func (NopSink) PlaybackChanged(context.Context, PlaybackChange) {}
