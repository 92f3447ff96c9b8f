package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/pion/interceptor/pkg/cc"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// WebRTCConnection wraps one pion PeerConnection behind core.MediaConnection.
type WebRTCConnection struct {
	pc        *webrtc.PeerConnection
	sid       domain.SessionID
	codecs    map[string]webrtc.RTPCodecParameters
	estimator cc.BandwidthEstimator

	mu      sync.RWMutex
	onTrack func(core.TrackSource)
	onState func(domain.TransportState)
	onBWE   func(int)

	closeOnce sync.Once
	logger    zerolog.Logger
}

var _ core.MediaConnection = (*WebRTCConnection)(nil)

func newConnection(pc *webrtc.PeerConnection, sid domain.SessionID, codecs map[string]webrtc.RTPCodecParameters, estimator cc.BandwidthEstimator) *WebRTCConnection {
	c := &WebRTCConnection{
		pc:        pc,
		sid:       sid,
		codecs:    codecs,
		estimator: estimator,
		logger:    log.With().Str("module", "webrtc").Str("sid", string(sid)).Logger(),
	}

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		c.logger.Debug().Str("ice_state", s.String()).Msg("ICE state")
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Info().Str("peer_connection_state", s.String()).Msg("Peer state")
		c.mu.RLock()
		fn := c.onState
		c.mu.RUnlock()
		if fn != nil {
			fn(transportState(s))
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		c.logger.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Str("codec", track.Codec().MimeType).
			Msg("OnTrack received")
		c.mu.RLock()
		fn := c.onTrack
		c.mu.RUnlock()
		if fn != nil {
			fn(&remoteTrack{track: track})
		}
	})

	if estimator != nil {
		estimator.OnTargetBitrateChange(func(bitrate int) {
			c.mu.RLock()
			fn := c.onBWE
			c.mu.RUnlock()
			if fn != nil {
				fn(bitrate)
			}
		})
	}
	return c
}

func (c *WebRTCConnection) AddTransceiver(kind domain.MediaKind, codec domain.Codec, prefs domain.CodecPreference) (core.TrackSink, error) {
	params, ok := c.codecs[codec.ID()]
	if !ok {
		return nil, fmt.Errorf("%w: %s not registered", domain.ErrCodecUnavailable, codec.ID())
	}
	track, err := webrtc.NewTrackLocalStaticRTP(params.RTPCodecCapability, string(kind), "relay-"+string(c.sid))
	if err != nil {
		return nil, fmt.Errorf("create local track: %w", err)
	}
	tr, err := c.pc.AddTransceiverFromTrack(track, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendrecv,
	})
	if err != nil {
		return nil, fmt.Errorf("add transceiver: %w", err)
	}

	pref := make([]webrtc.RTPCodecParameters, 0, len(prefs))
	for _, p := range prefs {
		cp, ok := c.codecs[p.ID()]
		if !ok {
			return nil, fmt.Errorf("%w: %s not registered", domain.ErrCodecUnavailable, p.ID())
		}
		// zero lets the answer reuse the offerer's payload type numbers
		cp.PayloadType = 0
		pref = append(pref, cp)
	}
	if err := tr.SetCodecPreferences(pref); err != nil {
		return nil, fmt.Errorf("set codec preferences: %w", err)
	}

	// Interceptors only see RTCP that is read off the sender.
	go func(sender *webrtc.RTPSender) {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}(tr.Sender())

	c.logger.Info().Str("kind", string(kind)).Str("codec", codec.ID()).Int("prefs", len(pref)).Msg("added sendrecv transceiver")
	return track, nil
}

func (c *WebRTCConnection) SetRemoteDescription(desc domain.Description) error {
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(string(desc.Type)),
		SDP:  desc.SDP,
	})
}

func (c *WebRTCConnection) CreateAnswer() (domain.Description, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return domain.Description{}, err
	}
	return domain.Description{Type: domain.SDPTypeAnswer, SDP: answer.SDP}, nil
}

func (c *WebRTCConnection) SetLocalDescription(ctx context.Context, desc domain.Description) (domain.Description, error) {
	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(string(desc.Type)),
		SDP:  desc.SDP,
	}); err != nil {
		return domain.Description{}, err
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return domain.Description{}, fmt.Errorf("ice gathering: %w", ctx.Err())
	}

	local := c.pc.LocalDescription()
	if local == nil {
		return domain.Description{}, errors.New("no local description after gathering")
	}
	return domain.Description{Type: domain.SDPType(local.Type.String()), SDP: local.SDP}, nil
}

func (c *WebRTCConnection) OnTrack(fn func(core.TrackSource)) {
	c.mu.Lock()
	c.onTrack = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) OnStateChange(fn func(domain.TransportState)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) OnBandwidthEstimate(fn func(bps int)) {
	c.mu.Lock()
	c.onBWE = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) RequestBitrate(ssrc uint32, bps uint64) error {
	return c.pc.WriteRTCP([]rtcp.Packet{
		&rtcp.ReceiverEstimatedMaximumBitrate{Bitrate: float32(bps), SSRCs: []uint32{ssrc}},
	})
}

func (c *WebRTCConnection) RequestKeyframe(ssrc uint32) error {
	return c.pc.WriteRTCP([]rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: ssrc}})
}

func (c *WebRTCConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if err = c.pc.Close(); err != nil {
			c.logger.Error().Err(err).Msg("close error")
			return
		}
		c.logger.Info().Msg("closed")
	})
	return err
}

func transportState(s webrtc.PeerConnectionState) domain.TransportState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return domain.TransportConnecting
	case webrtc.PeerConnectionStateConnected:
		return domain.TransportConnected
	case webrtc.PeerConnectionStateDisconnected:
		return domain.TransportDisconnected
	case webrtc.PeerConnectionStateFailed:
		return domain.TransportFailed
	case webrtc.PeerConnectionStateClosed:
		return domain.TransportClosed
	default:
		return domain.TransportNew
	}
}
