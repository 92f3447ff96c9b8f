package sfu

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// RelayManager owns the relay tracks of one Session, keyed by inbound track id.
type RelayManager struct {
	sid    domain.SessionID
	cfg    RelayConfig
	ctrl   *BitrateController
	mu     sync.RWMutex
	relays map[string]*Relay
	closed bool
}

func NewRelayManager(sid domain.SessionID, ctrl *BitrateController, cfg RelayConfig) *RelayManager {
	return &RelayManager{
		sid:    sid,
		cfg:    cfg,
		ctrl:   ctrl,
		relays: make(map[string]*Relay),
	}
}

// StartRelay creates a new Relay from src to sink and starts its loops.
// An existing relay for the same track id is stopped first. After StopAll it returns nil.
func (m *RelayManager) StartRelay(
	ctx context.Context,
	src core.TrackSource,
	sink core.TrackSink,
	gate func() bool,
	onEnded func(id string, err error),
) *Relay {
	logger := log.With().
		Str("module", "sfu").
		Str("sid", string(m.sid)).
		Str("track_id", src.ID()).
		Logger()

	relay := NewRelay(src, NewOutTrack(sink), m.ctrl, m.cfg, logger)
	relay.SetGate(gate)
	relay.OnEnded(onEnded)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		logger.Info().Msg("relays already stopped, track not relayed")
		return nil
	}
	old, ok := m.relays[src.ID()]
	m.relays[src.ID()] = relay
	m.mu.Unlock()

	if ok {
		logger.Info().Msg("replacing existing relay for track")
		old.Stop()
	}

	logger.Info().Str("codec", src.Codec().MimeType).Uint64("target_bps", m.ctrl.Target()).Msg("starting relay loop")
	relay.Start(ctx)
	return relay
}

// StopAll stops every relay and waits up to grace for their readers to exit.
// Writers are always stopped before it returns. No relay starts afterwards.
func (m *RelayManager) StopAll(grace time.Duration) {
	m.mu.Lock()
	m.closed = true
	relays := make([]*Relay, 0, len(m.relays))
	for id, r := range m.relays {
		relays = append(relays, r)
		delete(m.relays, id)
	}
	m.mu.Unlock()

	for _, r := range relays {
		r.Stop()
	}
	if grace <= 0 {
		return
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	for _, r := range relays {
		select {
		case <-r.Done():
		case <-timer.C:
			log.Warn().Str("module", "sfu").Str("sid", string(m.sid)).Msg("relay readers still parked after grace")
			return
		}
	}
}

// SetMuted pauses or resumes every outbound track without tearing relays down.
func (m *RelayManager) SetMuted(muted bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.relays {
		if muted {
			r.Out.MarkMuted()
		} else {
			r.Out.MarkOk()
		}
	}
}

// Active counts relays that have not ended.
func (m *RelayManager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.relays {
		select {
		case <-r.Ended():
		default:
			n++
		}
	}
	return n
}

// SourceSSRCs returns the inbound SSRCs of live relays, for upstream feedback.
func (m *RelayManager) SourceSSRCs() []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uint32, 0, len(m.relays))
	for _, r := range m.relays {
		out = append(out, r.Src.SSRC())
	}
	return out
}

// LastActivity is the most recent inbound packet time across relays, zero when none.
func (m *RelayManager) LastActivity() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var last time.Time
	for _, r := range m.relays {
		if t := r.LastActivity(); t.After(last) {
			last = t
		}
	}
	return last
}

// Stats snapshots the packet counters of every relay, keyed by inbound track id.
func (m *RelayManager) Stats() map[string]domain.RelayStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.RelayStats, len(m.relays))
	for id, r := range m.relays {
		out[id] = r.Stats()
	}
	return out
}
