package rtc

import (
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

type remoteTrack struct {
	track *webrtc.TrackRemote
}

var _ core.TrackSource = (*remoteTrack)(nil)

func (t *remoteTrack) ID() string             { return t.track.ID() }
func (t *remoteTrack) Kind() domain.MediaKind { return mediaKind(t.track.Kind()) }
func (t *remoteTrack) SSRC() uint32           { return uint32(t.track.SSRC()) }
func (t *remoteTrack) Codec() domain.Codec    { return toDomainCodec(t.track.Codec()) }

func (t *remoteTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	return t.track.ReadRTP()
}
