package app

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/Relay/internal/app/sfu"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/core/mocks"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"go.uber.org/mock/gomock"
)

func sdpLines(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

var (
	videoOffer = sdpLines(
		"v=0",
		"o=- 4611731400430051336 2 IN IP4 127.0.0.1",
		"s=-",
		"t=0 0",
		"m=video 9 UDP/TLS/RTP/SAVPF 96 102 127",
		"c=IN IP4 0.0.0.0",
		"a=mid:0",
		"a=rtpmap:96 VP8/90000",
		"a=rtpmap:102 H264/90000",
		"a=fmtp:102 level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f",
		"a=rtpmap:127 H264/90000",
		"a=fmtp:127 level-asymmetry-allowed=1;packetization-mode=0;profile-level-id=42e01f",
		"a=sendrecv",
	)

	audioOnlyOffer = sdpLines(
		"v=0",
		"o=- 4611731400430051336 2 IN IP4 127.0.0.1",
		"s=-",
		"t=0 0",
		"m=audio 9 UDP/TLS/RTP/SAVPF 111",
		"c=IN IP4 0.0.0.0",
		"a=rtpmap:111 opus/48000/2",
		"a=sendrecv",
	)

	h264Answer = sdpLines(
		"v=0",
		"o=- 8163519846023165371 2 IN IP4 0.0.0.0",
		"s=-",
		"t=0 0",
		"m=video 9 UDP/TLS/RTP/SAVPF 102 127",
		"c=IN IP4 0.0.0.0",
		"a=mid:0",
		"a=rtpmap:102 H264/90000",
		"a=rtpmap:127 H264/90000",
		"a=sendrecv",
	)

	mixedAnswer = sdpLines(
		"v=0",
		"o=- 8163519846023165371 2 IN IP4 0.0.0.0",
		"s=-",
		"t=0 0",
		"m=video 9 UDP/TLS/RTP/SAVPF 102 96",
		"c=IN IP4 0.0.0.0",
		"a=mid:0",
		"a=rtpmap:102 H264/90000",
		"a=rtpmap:96 VP8/90000",
		"a=sendrecv",
	)
)

func offer(sdp string) domain.Description {
	return domain.Description{Type: domain.SDPTypeOffer, SDP: sdp}
}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		IdleTimeout:  5 * time.Second,
		CloseGrace:   200 * time.Millisecond,
		REMBInterval: 20 * time.Millisecond,
		Relay:        sfu.RelayConfig{Buffer: 64},
	}
}

type fakeSink struct {
	mu  sync.Mutex
	got []uint16
}

func (s *fakeSink) WriteRTP(pkt *rtp.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, pkt.SequenceNumber)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

type fakeTrack struct {
	id      string
	ssrc    uint32
	packets chan *rtp.Packet
	stop    chan struct{}
	once    sync.Once
}

func newFakeTrack(id string) *fakeTrack {
	return &fakeTrack{id: id, ssrc: 1234, packets: make(chan *rtp.Packet, 64), stop: make(chan struct{})}
}

func (t *fakeTrack) ID() string             { return t.id }
func (t *fakeTrack) Kind() domain.MediaKind { return domain.MediaKindVideo }
func (t *fakeTrack) SSRC() uint32           { return t.ssrc }
func (t *fakeTrack) Codec() domain.Codec    { return h264Mode1 }

func (t *fakeTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	select {
	case p, ok := <-t.packets:
		if !ok {
			return nil, nil, io.EOF
		}
		return p, nil, nil
	case <-t.stop:
		return nil, nil, io.EOF
	}
}

func (t *fakeTrack) send(seq uint16) {
	t.packets <- &rtp.Packet{
		Header:  rtp.Header{Version: 2, PayloadType: 102, SequenceNumber: seq, SSRC: t.ssrc},
		Payload: make([]byte, 200),
	}
}

func (t *fakeTrack) close() { t.once.Do(func() { close(t.stop) }) }

// peer is a mocked engine connection that records the callbacks a Session installs.
type peer struct {
	conn *mocks.MockMediaConnection
	sink *fakeSink

	mu      sync.Mutex
	onTrack func(core.TrackSource)
	onState func(domain.TransportState)
	onBWE   func(int)
	tracks  []*fakeTrack

	closed   atomic.Int32
	bitrates chan uint64
}

func newPeer(ctrl *gomock.Controller, answerSDP string) *peer {
	p := &peer{
		conn:     mocks.NewMockMediaConnection(ctrl),
		sink:     &fakeSink{},
		bitrates: make(chan uint64, 64),
	}
	p.conn.EXPECT().OnTrack(gomock.Any()).Do(func(fn func(core.TrackSource)) {
		p.mu.Lock()
		p.onTrack = fn
		p.mu.Unlock()
	}).AnyTimes()
	p.conn.EXPECT().OnStateChange(gomock.Any()).Do(func(fn func(domain.TransportState)) {
		p.mu.Lock()
		p.onState = fn
		p.mu.Unlock()
	}).AnyTimes()
	p.conn.EXPECT().OnBandwidthEstimate(gomock.Any()).Do(func(fn func(int)) {
		p.mu.Lock()
		p.onBWE = fn
		p.mu.Unlock()
	}).AnyTimes()
	p.conn.EXPECT().AddTransceiver(domain.MediaKindVideo, gomock.Any(), gomock.Any()).Return(p.sink, nil).AnyTimes()
	p.conn.EXPECT().SetRemoteDescription(gomock.Any()).Return(nil).AnyTimes()
	p.conn.EXPECT().CreateAnswer().Return(domain.Description{Type: domain.SDPTypeAnswer, SDP: answerSDP}, nil).AnyTimes()
	p.conn.EXPECT().SetLocalDescription(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, d domain.Description) (domain.Description, error) { return d, nil },
	).AnyTimes()
	p.conn.EXPECT().RequestKeyframe(gomock.Any()).Return(nil).AnyTimes()
	p.conn.EXPECT().RequestBitrate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ uint32, bps uint64) error {
		select {
		case p.bitrates <- bps:
		default:
		}
		return nil
	}).AnyTimes()
	p.conn.EXPECT().Close().DoAndReturn(func() error {
		p.closed.Add(1)
		p.mu.Lock()
		defer p.mu.Unlock()
		for _, t := range p.tracks {
			t.close()
		}
		return nil
	}).AnyTimes()
	return p
}

func (p *peer) arrive(t *fakeTrack) {
	p.mu.Lock()
	p.tracks = append(p.tracks, t)
	fn := p.onTrack
	p.mu.Unlock()
	fn(t)
}

func (p *peer) transport(s domain.TransportState) {
	p.mu.Lock()
	fn := p.onState
	p.mu.Unlock()
	fn(s)
}

func (p *peer) estimate(bps int) {
	p.mu.Lock()
	fn := p.onBWE
	p.mu.Unlock()
	fn(bps)
}

func newEngine(ctrl *gomock.Controller, caps []domain.Codec, conns ...*peer) *mocks.MockMediaEngine {
	engine := mocks.NewMockMediaEngine(ctrl)
	engine.EXPECT().Capabilities(domain.MediaKindVideo).Return(caps).AnyTimes()
	for _, p := range conns {
		engine.EXPECT().NewConnection(gomock.Any()).Return(p.conn, nil)
	}
	return engine
}

func closeAll(t *testing.T, r *Registry) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.CloseAll(ctx)
	})
}
