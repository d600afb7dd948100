package signal

import (
	"context"

	"github.com/dkeye/watchparty/internal/core"
	"github.com/dkeye/watchparty/internal/domain"
	"github.com/dkeye/watchparty/internal/protocol"
	"github.com/rs/zerolog/log"
)

// clientOf prefers the id the client reported and falls back to the
// cookie-backed connection token.
func clientOf(reported string, conn *WsSignalConn) core.ClientID {
	if reported != "" {
		return core.ClientID(reported)
	}
	return core.ClientID(conn.token)
}

func (ctl *SignalWSController) handleInit(
	ctx context.Context,
	conn *WsSignalConn,
	p *protocol.Init,
) {
	sid := domain.SessionID(p.SessionID)
	clientID := clientOf(p.ClientID, conn)

	if conn.session != "" && conn.session != sid {
		log.Info().Str("module", "signal").Str("from", string(conn.session)).Str("to", string(sid)).Msg("switching session")
		ctl.Relay.Leave(conn.session, conn)
		conn.session = ""
	} else if conn.session == sid {
		ctl.Relay.Leave(sid, conn)
	}

	if _, err := ctl.Relay.Join(ctx, conn, clientID, sid, protocol.ReportedAt(p.SyncTime)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("session", string(sid)).Str("client", string(clientID)).Msg("join rejected")
		return
	}
	conn.session = sid
	conn.clientID = clientID
}

func (ctl *SignalWSController) handleSeek(
	ctx context.Context,
	conn *WsSignalConn,
	p *protocol.Seek,
) {
	sid := domain.SessionID(p.SessionID)
	clientID := clientOf(p.ClientID, conn)

	if !ctl.Limiter.Allow(conn.id) {
		log.Warn().Str("module", "signal").Str("session", string(sid)).Str("client", string(clientID)).Msg("sync rate limited")
		return
	}

	if _, err := ctl.Relay.Sync(ctx, conn, clientID, sid, *p.SeekIdx, *p.Playing, protocol.ReportedAt(p.SyncTime)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("session", string(sid)).Str("client", string(clientID)).Msg("sync rejected")
	}
}
