package signal

import "github.com/dkeye/watchparty/internal/protocol"

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: protocol.TypePong,
	}
	ctl.sendJSON(conn, resp)
}
