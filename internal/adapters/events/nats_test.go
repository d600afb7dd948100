package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/watchparty/internal/app"
	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*nats.Msg
	err  error
}

func (p *recordingPublisher) PublishMsg(m *nats.Msg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, m)
	return nil
}

func TestNATSSink_Publishes(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewNATSSink(pub, "watchparty.sessions")

	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	sink.PlaybackChanged(context.Background(), app.PlaybackChange{
		Kind:      app.ChangeSync,
		SessionID: "s1",
		ClientID:  "A",
		Position:  42,
		Playing:   false,
		At:        at,
		Revision:  3,
	})

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "watchparty.sessions.s1", msg.Subject)
	assert.Equal(t, "sync", msg.Header.Get("Change-Kind"))
	assert.Equal(t, "3", msg.Header.Get("Revision"))

	var got app.PlaybackChange
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, app.ChangeSync, got.Kind)
	assert.EqualValues(t, "s1", got.SessionID)
	assert.Equal(t, 42.0, got.Position)
	assert.True(t, got.At.Equal(at))
}

func TestNATSSink_PublishErrorIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats: connection closed")}
	sink := NewNATSSink(pub, "p")

	assert.NotPanics(t, func() {
		sink.PlaybackChanged(context.Background(), app.PlaybackChange{Kind: app.ChangeLive, SessionID: "s"})
	})
	assert.Empty(t, pub.msgs)
}
