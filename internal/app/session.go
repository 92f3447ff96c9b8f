package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Relay/internal/app/sfu"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultIdleTimeout  = 30 * time.Second
	DefaultCloseGrace   = 2 * time.Second
	DefaultREMBInterval = time.Second

	eventBuffer = 32
)

type SessionConfig struct {
	IdleTimeout  time.Duration
	CloseGrace   time.Duration
	REMBInterval time.Duration
	Relay        sfu.RelayConfig
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.CloseGrace <= 0 {
		c.CloseGrace = DefaultCloseGrace
	}
	// negative disables upstream bitrate feedback
	if c.REMBInterval == 0 {
		c.REMBInterval = DefaultREMBInterval
	}
	return c
}

type eventKind int

const (
	eventTrack eventKind = iota
	eventTransport
	eventEstimate
	eventRelayEnded
)

// event is a typed notification from the engine or a relay, applied on the Session goroutine.
type event struct {
	kind    eventKind
	track   core.TrackSource
	state   domain.TransportState
	bps     int
	trackID string
	err     error
}

// Session owns one peer connection, its transceivers and relay tracks.
// Engine callbacks only enqueue events; state changes happen on the Session goroutine
// or in Close.
type Session struct {
	id        domain.SessionID
	createdAt time.Time
	conn      core.MediaConnection
	policy    CodecPolicy
	cfg       SessionConfig

	ctx    context.Context
	cancel context.CancelFunc

	state      atomic.Int32
	stateSince atomic.Int64

	mu           sync.Mutex
	transceivers []domain.TransceiverInfo
	sinks        map[domain.MediaKind]core.TrackSink
	registry     *Registry
	tornDown     bool

	ctrl   *sfu.BitrateController
	relays *sfu.RelayManager

	events    chan event
	closeOnce sync.Once
	done      chan struct{}
	err       error

	logger zerolog.Logger
}

// NewSession binds conn to a new Session in state New and starts its event loop.
func NewSession(parent context.Context, id domain.SessionID, conn core.MediaConnection, policy CodecPolicy, cfg SessionConfig) *Session {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(parent)
	ctrl := sfu.NewBitrateController(policy.BitrateBoundsFor(policy.Kind()))

	s := &Session{
		id:        id,
		createdAt: time.Now(),
		conn:      conn,
		policy:    policy,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		sinks:     make(map[domain.MediaKind]core.TrackSink),
		ctrl:      ctrl,
		relays:    sfu.NewRelayManager(id, ctrl, cfg.Relay),
		events:    make(chan event, eventBuffer),
		done:      make(chan struct{}),
		logger:    log.With().Str("module", "app.session").Str("sid", string(id)).Logger(),
	}
	s.state.Store(int32(domain.SessionNew))
	s.stateSince.Store(s.createdAt.UnixNano())

	conn.OnTrack(func(track core.TrackSource) {
		s.post(event{kind: eventTrack, track: track})
	})
	conn.OnStateChange(func(state domain.TransportState) {
		s.post(event{kind: eventTransport, state: state})
	})
	conn.OnBandwidthEstimate(func(bps int) {
		s.post(event{kind: eventEstimate, bps: bps})
	})

	go s.run()
	s.logger.Info().Msg("session created")
	return s
}

func (s *Session) ID() domain.SessionID { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) State() domain.SessionState { return domain.SessionState(s.state.Load()) }

// Done is closed once teardown has fully completed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err is the terminal cause, nil for a clean close. Valid after Done.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// TargetBitrate is the outbound target currently applied by the relays.
func (s *Session) TargetBitrate() uint64 { return s.ctrl.Target() }

func (s *Session) Info() domain.SessionInfo {
	s.mu.Lock()
	tr := append([]domain.TransceiverInfo(nil), s.transceivers...)
	s.mu.Unlock()
	return domain.SessionInfo{
		ID:           s.id,
		State:        s.State().String(),
		CreatedAt:    s.createdAt,
		Transceivers: tr,
		Relays:       s.relays.Stats(),
	}
}

// AddTransceiver registers a sendrecv transceiver for kind with its codec preference.
// It has to happen before CreateAnswer; the engine freezes codecs at answer time.
func (s *Session) AddTransceiver(kind domain.MediaKind, prefs domain.CodecPreference) error {
	if s.State() != domain.SessionNew {
		return fmt.Errorf("%w: %w: add transceiver in state %s",
			domain.ErrInvalidSignalingState, domain.ErrInvalidTransition, s.State())
	}
	if prefs.Empty() {
		return fmt.Errorf("%w: no codec for %s", domain.ErrCodecUnavailable, kind)
	}
	sink, err := s.conn.AddTransceiver(kind, prefs[0], prefs)
	if err != nil {
		return fmt.Errorf("%w: add %s transceiver: %w", domain.ErrNegotiationFailed, kind, err)
	}
	s.mu.Lock()
	s.sinks[kind] = sink
	s.transceivers = append(s.transceivers, domain.TransceiverInfo{
		Kind:      kind,
		Direction: domain.DirectionSendRecv,
		Codec:     prefs[0],
	})
	s.mu.Unlock()
	return nil
}

func (s *Session) SetRemoteDescription(desc domain.Description) error {
	if err := s.alive(); err != nil {
		return err
	}
	if s.State() != domain.SessionNew {
		return fmt.Errorf("%w: %w: remote description in state %s",
			domain.ErrInvalidSignalingState, domain.ErrInvalidTransition, s.State())
	}
	if desc.Type != domain.SDPTypeOffer {
		return fmt.Errorf("%w: remote description must be an offer, got %q", domain.ErrInvalidSignalingState, desc.Type)
	}
	if err := s.conn.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("%w: set remote description: %w", domain.ErrNegotiationFailed, err)
	}
	if !s.transition(domain.SessionConnecting) {
		if err := s.alive(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s to connecting", domain.ErrInvalidTransition, s.State())
	}
	return nil
}

func (s *Session) CreateAnswer() (domain.Description, error) {
	if err := s.alive(); err != nil {
		return domain.Description{}, err
	}
	if s.State() == domain.SessionNew {
		return domain.Description{}, fmt.Errorf("%w: answer before remote offer", domain.ErrInvalidSignalingState)
	}
	answer, err := s.conn.CreateAnswer()
	if err != nil {
		return domain.Description{}, fmt.Errorf("%w: create answer: %w", domain.ErrNegotiationFailed, err)
	}
	return answer, nil
}

// SetLocalDescription applies the answer and waits for ICE gathering.
// Closing the Session aborts the wait.
func (s *Session) SetLocalDescription(ctx context.Context, desc domain.Description) (domain.Description, error) {
	if err := s.alive(); err != nil {
		return domain.Description{}, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	local, err := s.conn.SetLocalDescription(ctx, desc)
	if err != nil {
		if aerr := s.alive(); aerr != nil {
			return domain.Description{}, aerr
		}
		return domain.Description{}, fmt.Errorf("%w: set local description: %w", domain.ErrNegotiationFailed, err)
	}
	return local, s.alive()
}

// Close tears the Session down. Idempotent; safe during negotiation. When it returns
// no more packets are relayed and the Session is out of the Registry.
func (s *Session) Close() error {
	s.terminate(domain.SessionClosed, nil)
	return nil
}

// Fail moves the Session to Failed (or Closed when Failed is not reachable) with cause.
func (s *Session) Fail(cause error) {
	s.terminate(domain.SessionFailed, cause)
}

func (s *Session) alive() error {
	if s.State().Terminal() || s.ctx.Err() != nil {
		return fmt.Errorf("%w: %s", domain.ErrSessionClosed, s.id)
	}
	return nil
}

func (s *Session) transition(to domain.SessionState) bool {
	for {
		from := s.State()
		if !domain.CanTransition(from, to) {
			return false
		}
		if s.state.CompareAndSwap(int32(from), int32(to)) {
			s.stateSince.Store(time.Now().UnixNano())
			metrics.SessionTransitions.WithLabelValues(to.String()).Inc()
			s.logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("session state")
			return true
		}
	}
}

// post enqueues an event for the Session goroutine, dropping it once the Session is gone.
func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *Session) run() {
	idle := time.NewTicker(s.cfg.IdleTimeout / 4)
	defer idle.Stop()

	var remb <-chan time.Time
	if s.cfg.REMBInterval > 0 {
		t := time.NewTicker(s.cfg.REMBInterval)
		defer t.Stop()
		remb = t.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			s.handle(ev)
		case <-idle.C:
			s.checkIdle()
		case <-remb:
			s.sendFeedback()
		}
	}
}

func (s *Session) handle(ev event) {
	switch ev.kind {
	case eventTrack:
		s.onTrack(ev.track)
	case eventTransport:
		s.onTransport(ev.state)
	case eventEstimate:
		target := s.ctrl.Update(ev.bps)
		s.logger.Debug().Int("estimate_bps", ev.bps).Uint64("target_bps", target).Msg("bandwidth estimate")
	case eventRelayEnded:
		s.logger.Info().Err(ev.err).Str("track_id", ev.trackID).Msg("relay ended")
		if s.relays.Active() == 0 {
			s.terminate(domain.SessionClosed, nil)
		}
	}
}

func (s *Session) onTrack(track core.TrackSource) {
	kind := track.Kind()
	logger := s.logger.With().Str("kind", string(kind)).Str("track_id", track.ID()).Logger()
	if kind != s.policy.Kind() {
		logger.Info().Msg("ignoring track of unmanaged kind")
		return
	}

	s.transition(domain.SessionConnected)
	if s.State() != domain.SessionConnected {
		logger.Warn().Str("state", s.State().String()).Msg("track outside connected state")
		return
	}

	s.mu.Lock()
	sink, ok := s.sinks[kind]
	for i := range s.transceivers {
		if s.transceivers[i].Kind == kind {
			s.transceivers[i].RelayID = track.ID()
			s.transceivers[i].Codec = track.Codec()
		}
	}
	s.mu.Unlock()
	if !ok {
		logger.Warn().Msg("no outbound transceiver for track")
		return
	}

	s.relays.StartRelay(s.ctx, track, sink,
		func() bool { return s.State() == domain.SessionConnected },
		func(id string, err error) {
			s.post(event{kind: eventRelayEnded, trackID: id, err: err})
		},
	)
	if err := s.conn.RequestKeyframe(track.SSRC()); err != nil {
		logger.Warn().Err(err).Msg("keyframe request")
	}
	s.sendFeedback()
}

func (s *Session) onTransport(state domain.TransportState) {
	s.logger.Info().Str("transport_state", state.String()).Msg("transport state")
	switch state {
	case domain.TransportFailed:
		s.terminate(domain.SessionFailed, domain.ErrTransportFailed)
	case domain.TransportClosed:
		s.terminate(domain.SessionClosed, nil)
	case domain.TransportDisconnected:
		s.relays.SetMuted(true)
	case domain.TransportConnected:
		s.relays.SetMuted(false)
	}
}

func (s *Session) checkIdle() {
	last := time.Unix(0, s.stateSince.Load())
	if t := s.relays.LastActivity(); t.After(last) {
		last = t
	}
	if time.Since(last) > s.cfg.IdleTimeout {
		s.logger.Info().Dur("idle", time.Since(last)).Msg("idle timeout")
		s.terminate(domain.SessionClosed, nil)
	}
}

// sendFeedback pushes the pinned target upstream so the remote encoder follows it.
func (s *Session) sendFeedback() {
	target := s.ctrl.Target()
	for _, ssrc := range s.relays.SourceSSRCs() {
		if err := s.conn.RequestBitrate(ssrc, target); err != nil {
			s.logger.Debug().Err(err).Uint32("ssrc", ssrc).Msg("bitrate feedback")
		}
	}
}

func (s *Session) terminate(to domain.SessionState, cause error) {
	s.closeOnce.Do(func() {
		if to == domain.SessionFailed && !domain.CanTransition(s.State(), domain.SessionFailed) {
			to = domain.SessionClosed
		}
		if !s.transition(to) && !s.State().Terminal() {
			s.state.Store(int32(to))
		}
		s.cancel()

		s.relays.StopAll(s.cfg.CloseGrace)
		if err := s.conn.Close(); err != nil {
			s.logger.Error().Err(err).Msg("close transport")
		}

		s.mu.Lock()
		s.tornDown = true
		reg := s.registry
		s.mu.Unlock()
		if reg != nil {
			reg.remove(s.id)
		}

		s.err = cause
		close(s.done)
		ev := s.logger.Info()
		if cause != nil && !errors.Is(cause, domain.ErrSessionClosed) {
			ev = s.logger.Warn().Err(cause)
		}
		ev.Str("state", s.State().String()).Msg("session torn down")
	})
	<-s.done
}

// attach records the registry that must forget this Session on teardown.
// It reports false when teardown already happened.
func (s *Session) attach(r *Registry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return false
	}
	s.registry = r
	return true
}
