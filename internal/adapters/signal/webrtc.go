package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// ErrorCode names a negotiation failure for clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidSignalingState):
		return "invalid_offer"
	case errors.Is(err, domain.ErrCodecUnavailable):
		return "codec_unavailable"
	case errors.Is(err, domain.ErrSessionClosed):
		return "unavailable"
	default:
		return "negotiation_failed"
	}
}

func (ctl *SignalWSController) handleOffer(ctx context.Context, conn *WsSignalConn, data []byte) {
	type offerPayload struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	}
	var p offerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad offer payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(conn.client) {
		log.Warn().Str("module", "signal").Str("client", conn.client).Msg("offer rate limited")
		ctl.sendError(conn, "rate_limited")
		return
	}
	offer, err := domain.NewDescription(p.Type, p.SDP)
	if err != nil {
		ctl.sendError(conn, ErrorCode(err))
		return
	}

	ctl.closeSession(conn)
	answer, s, err := ctl.Negotiator.Negotiate(ctx, offer, ctl.Policy)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("client", conn.client).Msg("negotiate")
		ctl.sendError(conn, ErrorCode(err))
		return
	}
	if prev := conn.bind(s); prev != nil {
		_ = prev.Close()
	}
	go ctl.watch(ctx, conn, s)

	ctl.sendJSON(conn, map[string]string{
		"type": string(answer.Type),
		"sdp":  answer.SDP,
		"sid":  string(s.ID()),
	})
}

// watch reports the Session's end to the socket that created it.
func (ctl *SignalWSController) watch(ctx context.Context, conn *WsSignalConn, s *app.Session) {
	select {
	case <-ctx.Done():
		return
	case <-s.Done():
	}
	resp := map[string]string{
		"type":  "closed",
		"sid":   string(s.ID()),
		"state": s.State().String(),
	}
	if err := s.Err(); err != nil {
		resp["error"] = err.Error()
	}
	ctl.sendJSON(conn, resp)
}
