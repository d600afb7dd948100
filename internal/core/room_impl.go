package core

import (
	"errors"
	"sync"

	"github.com/dkeye/watchparty/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory membership set.
// It never closes adapter-owned resources.
type roomImpl struct {
	sid     domain.SessionID
	mu      sync.RWMutex
	members []Member
}

func NewRoomService(sid domain.SessionID) RoomService {
	return &roomImpl{sid: sid}
}

func (r *roomImpl) SessionID() domain.SessionID { return r.sid }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) Clients() []ClientID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ClientID, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m.ClientID)
	}
	return out
}

func (r *roomImpl) AddMember(m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = append(r.members, m)
	log.Info().Str("module", "core.room").Str("session", string(r.sid)).Str("client", string(m.ClientID)).Int("members", len(r.members)).Msg("member added")
}

func (r *roomImpl) RemoveMember(sig SignalConnection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m.Signal == sig {
			r.members = append(r.members[:i], r.members[i+1:]...)
			log.Info().Str("module", "core.room").Str("session", string(r.sid)).Str("client", string(m.ClientID)).Msg("member removed")
			return true
		}
	}
	return false
}

func (r *roomImpl) Unicast(sig SignalConnection, data Frame) error {
	return sig.TrySend(data)
}

// Broadcast sends data to every member except those whose ClientID equals
// from. Closed channels are pruned after the send pass; back-pressured
// channels are skipped but kept.
func (r *roomImpl) Broadcast(from ClientID, data Frame) BroadcastResult {
	r.mu.RLock()
	res := BroadcastResult{}
	var closed []SignalConnection
	for _, m := range r.members {
		if m.ClientID == from {
			continue
		}
		if err := m.Signal.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			if errors.Is(err, ErrChannelClosed) {
				closed = append(closed, m.Signal)
			}
			continue
		}
		res.SentTo++
	}
	r.mu.RUnlock()

	// Cleanup is done outside the RLock.
	for _, sig := range closed {
		if r.RemoveMember(sig) {
			res.Pruned++
		}
	}
	log.Debug().Str("module", "core.room").Str("session", string(r.sid)).Str("from", string(from)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Int("pruned", res.Pruned).Msg("broadcast result")
	return res
}
