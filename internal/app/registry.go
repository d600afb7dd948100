package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/watchparty/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// sessionEntry owns the lock that serializes access to one session's
// playback state. Position, Playing and UpdatedAt are only ever written
// together while holding mu.
type sessionEntry struct {
	mu sync.Mutex
	s  domain.Session
}

// Registry is the authoritative in-memory store of session playback state.
// The registry lock only guards the map; per-session state is guarded by
// the entry lock so different sessions never contend.
//
// Sessions live until process exit. Eviction would hook in here as a
// Remove(id) paired with Relay room teardown.
type Registry struct {
	clock clockwork.Clock

	mu       sync.RWMutex
	sessions map[domain.SessionID]*sessionEntry
}

func NewRegistry(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		clock:    clock,
		sessions: make(map[domain.SessionID]*sessionEntry),
	}
}

func (r *Registry) Clock() clockwork.Clock { return r.clock }

func (r *Registry) Create(sid domain.SessionID, videoRef string) error {
	if sid == "" {
		return domain.ErrInvalidSession
	}
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sid]; ok {
		return fmt.Errorf("create %s: %w", sid, domain.ErrSessionExists)
	}
	r.sessions[sid] = &sessionEntry{s: domain.Session{
		ID:        sid,
		VideoRef:  videoRef,
		Playback:  domain.PlaybackState{Playing: false, Position: 0, UpdatedAt: now},
		Phase:     domain.PhaseIdle,
		CreatedAt: now,
	}}
	log.Info().Str("module", "app.registry").Str("session", string(sid)).Str("video", videoRef).Msg("created session")
	return nil
}

func (r *Registry) entry(sid domain.SessionID) (*sessionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sid, domain.ErrNotFound)
	}
	return e, nil
}

func (r *Registry) Exists(sid domain.SessionID) bool {
	_, err := r.entry(sid)
	return err == nil
}

func (r *Registry) VideoRef(sid domain.SessionID) (string, error) {
	e, err := r.entry(sid)
	if err != nil {
		return "", err
	}
	// VideoRef is immutable after Create.
	return e.s.VideoRef, nil
}

// ExtrapolatedPosition predicts where playback is right now: the stored
// position when paused, or position plus time elapsed since the last
// update when playing.
func (r *Registry) ExtrapolatedPosition(sid domain.SessionID) (float64, error) {
	e, err := r.entry(sid)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Playback.At(r.clock.Now()), nil
}

// Apply overwrites the playback state unconditionally. Ordering is
// arrival order at the registry: the last call to Apply wins.
func (r *Registry) Apply(sid domain.SessionID, position float64, playing bool, at time.Time) error {
	e, err := r.entry(sid)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.s.Playback = domain.PlaybackState{Playing: playing, Position: position, UpdatedAt: at}
	e.s.Revision++
	log.Debug().Str("module", "app.registry").Str("session", string(sid)).Float64("position", position).Bool("playing", playing).Uint64("rev", e.s.Revision).Msg("applied update")
	return nil
}

// MarkLive performs the Idle -> Live transition: playback starts from the
// current position with now as the extrapolation baseline. It reports
// whether the transition happened; a Live session is left untouched.
func (r *Registry) MarkLive(sid domain.SessionID) (bool, error) {
	e, err := r.entry(sid)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.s.Phase == domain.PhaseLive {
		return false, nil
	}
	now := r.clock.Now()
	e.s.Playback = domain.PlaybackState{Playing: true, Position: e.s.Playback.At(now), UpdatedAt: now}
	e.s.Phase = domain.PhaseLive
	e.s.Revision++
	log.Info().Str("module", "app.registry").Str("session", string(sid)).Float64("position", e.s.Playback.Position).Msg("session live")
	return true, nil
}

func (r *Registry) Snapshot(sid domain.SessionID) (domain.Session, error) {
	e, err := r.entry(sid)
	if err != nil {
		return domain.Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
