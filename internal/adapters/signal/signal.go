package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

const (
	DefaultReadLimit  = 64 * 1024
	DefaultPingPeriod = 54 * time.Second
	writeWait         = 5 * time.Second
)

type SignalWSController struct {
	Negotiator *app.Negotiator
	Policy     app.CodecPolicy
	Limiter    *OfferRateLimiter
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewSignalWSController(n *app.Negotiator, policy app.CodecPolicy, limiter *OfferRateLimiter) *SignalWSController {
	return &SignalWSController{
		Negotiator: n,
		Policy:     policy,
		Limiter:    limiter,
		ReadLimit:  DefaultReadLimit,
		PingPeriod: DefaultPingPeriod,
	}
}

// WsSignalConn is one signalling socket. It owns at most one media Session at a time.
type WsSignalConn struct {
	conn   *websocket.Conn
	client string
	send   chan core.Frame

	mu      sync.RWMutex
	closed  bool
	session *app.Session
}

var _ core.SignalConnection = (*WsSignalConn)(nil)

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// bind replaces the socket's Session and returns the previous one.
func (c *WsSignalConn) bind(s *app.Session) *app.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.session
	c.session = s
	return prev
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	client := c.GetString("client_token")
	log.Info().Str("module", "signal").Str("client", client).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn:   ws,
		client: client,
		send:   make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, conn)
	}()
}
