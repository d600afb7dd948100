// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const MaxVideoRefLen = 2048

var (
	ErrNotFound       = errors.New("session not found")
	ErrSessionExists  = errors.New("session already exists")
	ErrInvalidSession = errors.New("invalid session id")
	ErrVideoRefEmpty  = errors.New("video reference empty")
	ErrVideoRefLong   = errors.New("video reference too long")
)

type SessionID string

// NewSessionID returns a fresh random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// Phase is the session lifecycle. A session goes Idle -> Live once and
// never returns to Idle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLive
)

func (p Phase) String() string {
	if p == PhaseLive {
		return "live"
	}
	return "idle"
}

// PlaybackState is the last authoritative seek. Position is in seconds
// and UpdatedAt is the instant Position/Playing were set.
type PlaybackState struct {
	Playing   bool
	Position  float64
	UpdatedAt time.Time
}

// At predicts the playback position at now.
func (p PlaybackState) At(now time.Time) float64 {
	if !p.Playing {
		return p.Position
	}
	return p.Position + now.Sub(p.UpdatedAt).Seconds()
}

type Session struct {
	ID        SessionID
	VideoRef  string
	Playback  PlaybackState
	Phase     Phase
	Revision  uint64
	CreatedAt time.Time
}

func ValidateVideoRef(ref string) error {
	if len(ref) == 0 {
		return ErrVideoRefEmpty
	}
	if len(ref) > MaxVideoRefLen {
		return ErrVideoRefLong
	}
	return nil
}
