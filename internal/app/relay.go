package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/watchparty/internal/core"
	"github.com/dkeye/watchparty/internal/domain"
	"github.com/dkeye/watchparty/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Relay keeps every participant of a session converged on the registry's
// playback state. Join and Sync for one session run under that session's
// room lock; sends are non-blocking so no network I/O happens inside it.
type Relay struct {
	Registry *Registry
	Rooms    *RoomManager
	Policy   Policy
	Events   EventSink
}

func NewRelay(reg *Registry, rooms *RoomManager, policy Policy, events EventSink) *Relay {
	if policy == nil {
		policy = SkipPolicy{}
	}
	if events == nil {
		events = NopSink{}
	}
	return &Relay{Registry: reg, Rooms: rooms, Policy: policy, Events: events}
}

// Join registers a participant channel and unicasts a seek instruction
// with the extrapolated position. The first participant of a session
// moves it from Idle to Live.
func (r *Relay) Join(
	ctx context.Context,
	sig core.SignalConnection,
	clientID core.ClientID,
	sid domain.SessionID,
	reportedAt time.Time,
) (protocol.SeekInstruction, error) {
	if !r.Registry.Exists(sid) {
		return protocol.SeekInstruction{}, fmt.Errorf("join %s: %w", sid, domain.ErrNotFound)
	}
	slot := r.Rooms.slot(sid)

	slot.mu.Lock()
	seekIdx, err := r.Registry.ExtrapolatedPosition(sid)
	if err != nil {
		slot.mu.Unlock()
		return protocol.SeekInstruction{}, fmt.Errorf("join %s: %w", sid, err)
	}

	wentLive := false
	if slot.room.MemberCount() == 0 {
		if wentLive, err = r.Registry.MarkLive(sid); err != nil {
			slot.mu.Unlock()
			return protocol.SeekInstruction{}, fmt.Errorf("join %s: %w", sid, err)
		}
	}
	snap, err := r.Registry.Snapshot(sid)
	if err != nil {
		slot.mu.Unlock()
		return protocol.SeekInstruction{}, fmt.Errorf("join %s: %w", sid, err)
	}

	slot.room.AddMember(core.Member{ClientID: clientID, Signal: sig})

	instr := protocol.NewSeekInstruction(seekIdx, snap.Playback.Playing)
	frame, err := protocol.Encode(instr)
	if err != nil {
		slot.mu.Unlock()
		return protocol.SeekInstruction{}, err
	}
	sendErr := slot.room.Unicast(sig, frame)
	if errors.Is(sendErr, core.ErrChannelClosed) {
		slot.room.RemoveMember(sig)
	}
	slot.mu.Unlock()

	logger := log.With().Str("module", "app.relay").Str("session", string(sid)).Str("client", string(clientID)).Logger()
	if sendErr != nil {
		logger.Warn().Err(sendErr).Msg("join seek not delivered")
	}
	logger.Info().
		Float64("seek_idx", seekIdx).
		Bool("playing", instr.Playing).
		Time("client_time", reportedAt).
		Msg("participant joined")

	if wentLive {
		r.Events.PlaybackChanged(ctx, PlaybackChange{
			Kind:      ChangeLive,
			SessionID: sid,
			ClientID:  string(clientID),
			Position:  snap.Playback.Position,
			Playing:   snap.Playback.Playing,
			At:        snap.Playback.UpdatedAt,
			Revision:  snap.Revision,
		})
	}
	return instr, nil
}

// Sync applies a participant's playback change to the registry and relays
// it to every other participant of the session. The originator gets no
// echo.
func (r *Relay) Sync(
	ctx context.Context,
	sig core.SignalConnection,
	clientID core.ClientID,
	sid domain.SessionID,
	seekIdx float64,
	playing bool,
	reportedAt time.Time,
) (core.BroadcastResult, error) {
	if !r.Registry.Exists(sid) {
		return core.BroadcastResult{}, fmt.Errorf("sync %s: %w", sid, domain.ErrNotFound)
	}
	frame, err := protocol.Encode(protocol.NewSeekInstruction(seekIdx, playing))
	if err != nil {
		return core.BroadcastResult{}, err
	}
	slot := r.Rooms.slot(sid)

	slot.mu.Lock()
	if err := r.Registry.Apply(sid, seekIdx, playing, reportedAt); err != nil {
		slot.mu.Unlock()
		return core.BroadcastResult{}, fmt.Errorf("sync %s: %w", sid, err)
	}
	snap, err := r.Registry.Snapshot(sid)
	if err != nil {
		slot.mu.Unlock()
		return core.BroadcastResult{}, fmt.Errorf("sync %s: %w", sid, err)
	}
	res := slot.room.Broadcast(clientID, frame)

	var kick []core.Member
	for _, m := range res.Dropped {
		if r.Policy.OnBackpressure(sid, m) == KickMember && slot.room.RemoveMember(m.Signal) {
			kick = append(kick, m)
		}
	}
	slot.mu.Unlock()

	for _, m := range kick {
		log.Warn().Str("module", "app.relay").Str("session", string(sid)).Str("client", string(m.ClientID)).Msg("kicking slow member")
		m.Signal.Close()
	}

	log.Debug().
		Str("module", "app.relay").
		Str("session", string(sid)).
		Str("client", string(clientID)).
		Float64("seek_idx", seekIdx).
		Bool("playing", playing).
		Int("sent_to", res.SentTo).
		Int("dropped", len(res.Dropped)).
		Msg("sync relayed")

	r.Events.PlaybackChanged(ctx, PlaybackChange{
		Kind:      ChangeSync,
		SessionID: sid,
		ClientID:  string(clientID),
		Position:  seekIdx,
		Playing:   playing,
		At:        reportedAt,
		Revision:  snap.Revision,
	})
	return res, nil
}

// Leave removes a participant channel, typically when its connection
// closes. The session stays Live.
func (r *Relay) Leave(sid domain.SessionID, sig core.SignalConnection) {
	room, ok := r.Rooms.Get(sid)
	if !ok {
		return
	}
	room.RemoveMember(sig)
}

func (r *Relay) Members(sid domain.SessionID) int {
	room, ok := r.Rooms.Get(sid)
	if !ok {
		return 0
	}
	return room.MemberCount()
}
