package signal

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/watchparty/internal/app"
	"github.com/dkeye/watchparty/internal/core"
	"github.com/dkeye/watchparty/internal/protocol"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRateLimiter_Window(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	rl := NewSyncRateLimiter(3, time.Second)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("a"), "attempt %d", i)
	}
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "connections are limited independently")

	now = now.Add(1100 * time.Millisecond)
	assert.True(t, rl.Allow("a"))
}

func TestSyncRateLimiter_Forget(t *testing.T) {
	rl := NewSyncRateLimiter(1, time.Minute)

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	rl.Forget("a")
	assert.True(t, rl.Allow("a"))
}

func TestHandleSeek_LimitsPerConnection(t *testing.T) {
	reg := app.NewRegistry(clockwork.NewFakeClock())
	require.NoError(t, reg.Create("s1", "v"))
	ctl := &SignalWSController{
		Relay:   app.NewRelay(reg, app.NewRoomManager(), app.SkipPolicy{}, nil),
		Limiter: NewSyncRateLimiter(2, time.Minute),
	}
	conn := &WsSignalConn{id: "conn-1", send: make(chan core.Frame, 4)}

	// rotating the reported clientId does not buy extra budget
	for i, client := range []string{"x1", "x2", "x3", "x4"} {
		pos, playing := float64(i), true
		ctl.handleSeek(t.Context(), conn, &protocol.Seek{
			Type:      protocol.TypeSeek,
			ClientID:  client,
			SessionID: "s1",
			SeekIdx:   &pos,
			Playing:   &playing,
			SyncTime:  1,
		})
	}

	snap, err := reg.Snapshot("s1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Revision)
	assert.Equal(t, 1.0, snap.Playback.Position)
	assert.Len(t, ctl.Limiter.history, 1)

	ctl.Limiter.Forget(conn.id)
	assert.Empty(t, ctl.Limiter.history)
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"wildcard", []string{"*"}, "https://evil.example", true},
		{"empty list", nil, "https://any.example", true},
		{"listed", []string{"https://watch.example"}, "https://watch.example", true},
		{"unlisted", []string{"https://watch.example"}, "https://evil.example", false},
		{"no origin header", []string{"https://watch.example"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originChecker(tt.allowed)(req))
		})
	}
}
