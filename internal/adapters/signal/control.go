package signal

import (
	"time"

	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	resp := struct {
		Type string `json:"type"`
		Time int64  `json:"time"`
	}{
		Type: "pong",
		Time: time.Now().UnixMilli(),
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) handleClose(conn *WsSignalConn) {
	if !ctl.closeSession(conn) {
		ctl.sendJSON(conn, map[string]string{"type": "closed"})
	}
}

// closeSession closes the Session bound to conn and reports whether there was one.
func (ctl *SignalWSController) closeSession(conn *WsSignalConn) bool {
	s := conn.bind(nil)
	if s == nil {
		return false
	}
	log.Info().Str("module", "signal").Str("client", conn.client).Str("sid", string(s.ID())).Msg("closing bound session")
	_ = s.Close()
	return true
}
