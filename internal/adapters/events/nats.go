// Package events publishes applied playback changes to NATS so other
// services can follow session state.
package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dkeye/watchparty/internal/app"
	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher is the part of *nats.Conn the sink needs.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

type NATSSink struct {
	pub    Publisher
	prefix string
}

func NewNATSSink(pub Publisher, prefix string) *NATSSink {
	return &NATSSink{pub: pub, prefix: prefix}
}

// Connect dials NATS with reconnects enabled and logs connection changes.
func Connect(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("watchparty"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Str("module", "adapters.events").Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("module", "adapters.events").Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

func (s *NATSSink) Subject(change app.PlaybackChange) string {
	return fmt.Sprintf("%s.%s", s.prefix, change.SessionID)
}

// PlaybackChanged publishes fire-and-forget; failures are logged and
// never reach the relay.
func (s *NATSSink) PlaybackChanged(_ context.Context, change app.PlaybackChange) {
	data, err := json.Marshal(change)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.events").Msg("marshal change")
		return
	}
	msg := &nats.Msg{
		Subject: s.Subject(change),
		Data:    data,
		Header: nats.Header{
			"Change-Kind": []string{string(change.Kind)},
			"Revision":    []string{strconv.FormatUint(change.Revision, 10)},
		},
	}
	if err := s.pub.PublishMsg(msg); err != nil {
		log.Warn().Err(err).Str("module", "adapters.events").Str("subject", msg.Subject).Msg("publish change")
		return
	}
	log.Debug().Str("module", "adapters.events").Str("subject", msg.Subject).Uint64("rev", change.Revision).Msg("published change")
}
