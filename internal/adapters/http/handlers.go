package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Relay/internal/adapters/signal"
	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const lastSessionKey = "relay_sid"

type OfferRequest struct {
	Offer struct {
		SDP  string `json:"sdp"`
		Type string `json:"type"`
	} `json:"offer"`
	// Prompt is accepted for client compatibility and ignored.
	Prompt map[string]any `json:"prompt,omitempty"`
}

type DescriptionResponse struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}

type Handlers struct {
	Negotiator *app.Negotiator
	Registry   *app.Registry
	Policy     app.CodecPolicy
	Limiter    *signal.OfferRateLimiter
}

// StatusFor maps negotiation errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSignalingState):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCodecUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPolicy):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func (h *Handlers) Health(c *gin.Context) {
	if !h.Registry.Healthy() {
		c.String(http.StatusServiceUnavailable, "shutting down")
		return
	}
	c.String(http.StatusOK, "OK")
}

func (h *Handlers) Offer(c *gin.Context) {
	if !h.Registry.Healthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
		return
	}
	var req OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer payload"})
		return
	}
	client := c.GetString("client_token")
	if h.Limiter != nil && !h.Limiter.Allow(client) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
		return
	}
	offer, err := domain.NewDescription(req.Offer.Type, req.Offer.SDP)
	if err != nil {
		c.JSON(StatusFor(err), gin.H{"error": signal.ErrorCode(err), "detail": err.Error()})
		return
	}

	cs := sessions.Default(c)
	if raw, ok := cs.Get(lastSessionKey).(string); ok {
		if prev, err := domain.ParseSessionID(raw); err == nil {
			if err := h.Registry.CloseSession(prev); err == nil {
				log.Info().Str("module", "adapters.http").Str("sid", raw).Msg("closed previous session of client")
			}
		}
	}

	answer, s, err := h.Negotiator.Negotiate(c.Request.Context(), offer, h.Policy)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Str("client", client).Msg("offer rejected")
		c.JSON(StatusFor(err), gin.H{"error": signal.ErrorCode(err), "detail": err.Error()})
		return
	}

	cs.Set(lastSessionKey, string(s.ID()))
	if err := cs.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("save cookie session")
	}
	c.JSON(http.StatusOK, DescriptionResponse{SDP: answer.SDP, Type: string(answer.Type)})
}

func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.Registry.List()})
}

func (h *Handlers) CloseSession(c *gin.Context) {
	sid, err := domain.ParseSessionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Registry.CloseSession(sid); err != nil {
		c.JSON(StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
