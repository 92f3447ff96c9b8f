package rtc

import (
	"fmt"
	"strings"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/cc"
	"github.com/pion/interceptor/pkg/gcc"
	"github.com/pion/interceptor/pkg/nack"
	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const nackResponderBufferSize = 256

var (
	videoRTCPFeedback = []webrtc.RTCPFeedback{
		{Type: webrtc.TypeRTCPFBGoogREMB},
		{Type: webrtc.TypeRTCPFBCCM, Parameter: "fir"},
		{Type: webrtc.TypeRTCPFBNACK},
		{Type: webrtc.TypeRTCPFBNACK, Parameter: "pli"},
	}

	// DefaultVideoCodecs is the local video capability table, most preferred first.
	DefaultVideoCodecs = []domain.Codec{
		{MimeType: webrtc.MimeTypeH264, ClockRate: 90000, FmtpLine: "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f", PayloadType: 102},
		{MimeType: webrtc.MimeTypeH264, ClockRate: 90000, FmtpLine: "level-asymmetry-allowed=1;packetization-mode=0;profile-level-id=42e01f", PayloadType: 127},
		{MimeType: webrtc.MimeTypeH264, ClockRate: 90000, FmtpLine: "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42001f", PayloadType: 125},
		{MimeType: webrtc.MimeTypeH264, ClockRate: 90000, FmtpLine: "level-asymmetry-allowed=1;packetization-mode=0;profile-level-id=42001f", PayloadType: 108},
		{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000, PayloadType: 96},
		{MimeType: webrtc.MimeTypeVP9, ClockRate: 90000, FmtpLine: "profile-id=0", PayloadType: 98},
	}

	videoHeaderExtensions = []string{
		sdp.SDESMidURI,
		sdp.SDESRTPStreamIDURI,
	}
)

type Config struct {
	ICEServers      []string
	IncludeLoopback bool
	VideoCodecs     []domain.Codec
	// Bounds seed the send side bandwidth estimator.
	Bounds domain.BitrateBounds
	// LogLevel is the lowest level forwarded from the engine's own loggers.
	LogLevel zerolog.Level
}

// Engine builds one pion API per peer: media engine, interceptors and setting engine
// are not shared between peer connections.
type Engine struct {
	cfg     Config
	video   []webrtc.RTPCodecParameters
	byID    map[string]webrtc.RTPCodecParameters
	setting webrtc.SettingEngine
}

var _ core.MediaEngine = (*Engine)(nil)

func NewEngine(cfg Config) (*Engine, error) {
	codecs := cfg.VideoCodecs
	if len(codecs) == 0 {
		codecs = DefaultVideoCodecs
	}
	e := &Engine{
		cfg:  cfg,
		byID: make(map[string]webrtc.RTPCodecParameters, len(codecs)),
	}
	for _, c := range codecs {
		if c.Kind() != domain.MediaKindVideo {
			return nil, fmt.Errorf("codec %s is not a video codec", c.MimeType)
		}
		if _, dup := e.byID[c.ID()]; dup {
			continue
		}
		p := toCodecParameters(c)
		e.video = append(e.video, p)
		e.byID[c.ID()] = p
	}

	se := webrtc.SettingEngine{
		LoggerFactory: NewLoggerFactory(cfg.LogLevel),
	}
	se.SetIncludeLoopbackCandidate(cfg.IncludeLoopback)
	e.setting = se

	log.Info().
		Str("module", "webrtc").
		Int("video_codecs", len(e.video)).
		Bool("include_loopback", cfg.IncludeLoopback).
		Msg("media engine ready")
	return e, nil
}

// Capabilities returns the registered codecs of kind in table order. Audio is not registered.
func (e *Engine) Capabilities(kind domain.MediaKind) []domain.Codec {
	if kind != domain.MediaKindVideo {
		return nil
	}
	out := make([]domain.Codec, 0, len(e.video))
	for _, p := range e.video {
		out = append(out, toDomainCodec(p))
	}
	return out
}

func (e *Engine) NewConnection(sid domain.SessionID) (core.MediaConnection, error) {
	me, err := e.mediaEngine()
	if err != nil {
		return nil, fmt.Errorf("init media engine: %w", err)
	}
	registry, estimatorCh, err := e.interceptors(me)
	if err != nil {
		return nil, fmt.Errorf("init interceptors: %w", err)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(me),
		webrtc.WithSettingEngine(e.setting),
		webrtc.WithInterceptorRegistry(registry),
	)
	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers:   e.iceServers(),
		SDPSemantics: webrtc.SDPSemanticsUnifiedPlan,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	var estimator cc.BandwidthEstimator
	select {
	case estimator = <-estimatorCh:
	default:
		log.Warn().Str("module", "webrtc").Str("sid", string(sid)).Msg("no bandwidth estimator bound")
	}
	return newConnection(pc, sid, e.byID, estimator), nil
}

func (e *Engine) iceServers() []webrtc.ICEServer {
	if len(e.cfg.ICEServers) == 0 {
		return nil
	}
	return []webrtc.ICEServer{{URLs: e.cfg.ICEServers}}
}

func (e *Engine) mediaEngine() (*webrtc.MediaEngine, error) {
	var m webrtc.MediaEngine
	for _, p := range e.video {
		if err := m.RegisterCodec(p, webrtc.RTPCodecTypeVideo); err != nil {
			return nil, err
		}
	}
	for _, ext := range videoHeaderExtensions {
		if err := m.RegisterHeaderExtension(webrtc.RTPHeaderExtensionCapability{URI: ext}, webrtc.RTPCodecTypeVideo); err != nil {
			return nil, fmt.Errorf("register header extension: %w", err)
		}
	}
	return &m, nil
}

func (e *Engine) interceptors(m *webrtc.MediaEngine) (*interceptor.Registry, <-chan cc.BandwidthEstimator, error) {
	var i interceptor.Registry

	generator, err := nack.NewGeneratorInterceptor()
	if err != nil {
		return nil, nil, err
	}
	responder, err := nack.NewResponderInterceptor(nack.ResponderSize(nackResponderBufferSize))
	if err != nil {
		return nil, nil, err
	}
	i.Add(responder)
	i.Add(generator)

	if err := webrtc.ConfigureRTCPReports(&i); err != nil {
		return nil, nil, err
	}
	if err := webrtc.ConfigureTWCCSender(m, &i); err != nil {
		return nil, nil, err
	}

	minRate, maxRate := int(e.cfg.Bounds.Min), int(e.cfg.Bounds.Max)
	if maxRate <= 0 {
		minRate, maxRate = 2_000_000, 2_000_000
	}
	pacer := gcc.NewNoOpPacer()
	estimatorCh := make(chan cc.BandwidthEstimator, 1)
	controller, err := cc.NewInterceptor(func() (cc.BandwidthEstimator, error) {
		return gcc.NewSendSideBWE(
			gcc.SendSideBWEInitialBitrate(minRate),
			gcc.SendSideBWEMinBitrate(minRate),
			gcc.SendSideBWEMaxBitrate(maxRate),
			gcc.SendSideBWEPacer(pacer),
		)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init congestion controller: %w", err)
	}
	controller.OnNewPeerConnection(func(_ string, estimator cc.BandwidthEstimator) {
		estimatorCh <- estimator
	})
	i.Add(controller)
	if err := webrtc.ConfigureTWCCHeaderExtensionSender(m, &i); err != nil {
		return nil, nil, fmt.Errorf("add TWCC extensions: %w", err)
	}
	return &i, estimatorCh, nil
}

func toCodecParameters(c domain.Codec) webrtc.RTPCodecParameters {
	return webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:     c.MimeType,
			ClockRate:    c.ClockRate,
			Channels:     c.Channels,
			SDPFmtpLine:  c.FmtpLine,
			RTCPFeedback: videoRTCPFeedback,
		},
		PayloadType: webrtc.PayloadType(c.PayloadType),
	}
}

func toDomainCodec(p webrtc.RTPCodecParameters) domain.Codec {
	return domain.Codec{
		MimeType:    p.MimeType,
		ClockRate:   p.ClockRate,
		Channels:    p.Channels,
		FmtpLine:    p.SDPFmtpLine,
		PayloadType: uint8(p.PayloadType),
	}
}

func mediaKind(t webrtc.RTPCodecType) domain.MediaKind {
	return domain.MediaKind(strings.ToLower(t.String()))
}
