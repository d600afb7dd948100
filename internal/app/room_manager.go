package app

import (
	"sync"

	"github.com/dkeye/watchparty/internal/core"
	"github.com/dkeye/watchparty/internal/domain"
)

// roomSlot pairs a session's membership set with the lock that serializes
// join and sync handling for that session.
type roomSlot struct {
	mu   sync.Mutex
	room core.RoomService
}

type RoomInfo struct {
	SessionID   domain.SessionID `json:"session_id"`
	MemberCount int              `json:"member_count"`
}

type RoomManager struct {
	mu    sync.RWMutex
	rooms map[domain.SessionID]*roomSlot
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[domain.SessionID]*roomSlot)}
}

func (f *RoomManager) slot(sid domain.SessionID) *roomSlot {
	f.mu.RLock()
	slot, ok := f.rooms[sid]
	f.mu.RUnlock()
	if ok {
		return slot
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if slot, ok = f.rooms[sid]; ok {
		return slot
	}
	slot = &roomSlot{room: core.NewRoomService(sid)}
	f.rooms[sid] = slot
	return slot
}

func (f *RoomManager) Get(sid domain.SessionID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	slot, ok := f.rooms[sid]
	if !ok {
		return nil, false
	}
	return slot.room, true
}

func (f *RoomManager) List() []RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]RoomInfo, 0, len(f.rooms))
	for sid, slot := range f.rooms {
		out = append(out, RoomInfo{SessionID: sid, MemberCount: slot.room.MemberCount()})
	}
	return out
}
