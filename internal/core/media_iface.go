package core

//go:generate mockgen -source=media_iface.go -destination=mocks/media_mock.go -package=mocks

import (
	"context"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
)

// MediaEngine is the delegated WebRTC engine: capability table plus a factory of
// per-peer connections. ICE, DTLS and SRTP live behind it.
type MediaEngine interface {
	// Capabilities returns the locally supported codecs for kind, in preference order.
	Capabilities(kind domain.MediaKind) []domain.Codec
	NewConnection(sid domain.SessionID) (MediaConnection, error)
}

type MediaConnection interface {
	// AddTransceiver adds a sendrecv transceiver whose sender carries a local track
	// bound to codec, and applies prefs to it. Must run before CreateAnswer.
	AddTransceiver(kind domain.MediaKind, codec domain.Codec, prefs domain.CodecPreference) (TrackSink, error)
	SetRemoteDescription(domain.Description) error
	CreateAnswer() (domain.Description, error)
	// SetLocalDescription applies desc and blocks until ICE gathering completes or ctx is done.
	// It returns the final local description, candidates included.
	SetLocalDescription(ctx context.Context, desc domain.Description) (domain.Description, error)
	// OnTrack sets a callback invoked when a remote track arrives.
	OnTrack(func(TrackSource))
	// OnStateChange sets a callback for peer connection state changes.
	OnStateChange(func(domain.TransportState))
	// OnBandwidthEstimate sets a callback for the adaptive estimator target, bits/s.
	OnBandwidthEstimate(func(bps int))
	// RequestBitrate asks the remote sender of ssrc to encode at bps.
	RequestBitrate(ssrc uint32, bps uint64) error
	// RequestKeyframe asks the remote sender of ssrc for a new key frame.
	RequestKeyframe(ssrc uint32) error
	// Close should stop all underlying media resources.
	Close() error
}

// TrackSource is the inbound frame pull primitive.
type TrackSource interface {
	ID() string
	Kind() domain.MediaKind
	Codec() domain.Codec
	SSRC() uint32
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// TrackSink is the outbound frame push primitive.
type TrackSink interface {
	WriteRTP(*rtp.Packet) error
}
