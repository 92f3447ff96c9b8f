package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/pion/sdp/v3"
	"github.com/rs/zerolog/log"
)

const DefaultGatherTimeout = 10 * time.Second

// repairFormats ride along the media codec in a video section and are not codecs of their own.
var repairFormats = map[string]struct{}{
	"rtx":        {},
	"red":        {},
	"ulpfec":     {},
	"flexfec-03": {},
}

type NegotiatorConfig struct {
	GatherTimeout time.Duration
	Session       SessionConfig
}

// Negotiator turns a remote offer into a registered Session and its answer.
type Negotiator struct {
	root     context.Context
	engine   core.MediaEngine
	registry *Registry
	cfg      NegotiatorConfig
}

// NewNegotiator creates a Negotiator. Sessions it creates live under root, not under
// the context of the request that negotiated them.
func NewNegotiator(root context.Context, engine core.MediaEngine, registry *Registry, cfg NegotiatorConfig) *Negotiator {
	if cfg.GatherTimeout <= 0 {
		cfg.GatherTimeout = DefaultGatherTimeout
	}
	return &Negotiator{
		root:     root,
		engine:   engine,
		registry: registry,
		cfg:      cfg,
	}
}

func (n *Negotiator) Registry() *Registry { return n.registry }

// Negotiate validates offer, creates and registers a Session pinned to policy and
// returns the local answer once ICE gathering has completed.
//
// A malformed offer or a policy the engine cannot satisfy is rejected before any
// Session exists. Any later failure tears the Session down again.
func (n *Negotiator) Negotiate(ctx context.Context, offer domain.Description, policy CodecPolicy) (domain.Description, *Session, error) {
	answer, s, err := n.negotiate(ctx, offer, policy)
	metrics.Negotiations.WithLabelValues(outcome(err)).Inc()
	return answer, s, err
}

func (n *Negotiator) negotiate(ctx context.Context, offer domain.Description, policy CodecPolicy) (domain.Description, *Session, error) {
	if err := policy.Validate(); err != nil {
		return domain.Description{}, nil, err
	}
	kind := policy.Kind()
	if err := validateOffer(offer, kind); err != nil {
		return domain.Description{}, nil, err
	}

	prefs := policy.PreferenceFor(kind, n.engine.Capabilities(kind))
	if prefs.Empty() {
		return domain.Description{}, nil, fmt.Errorf("%w: %s not in local %s capabilities", domain.ErrCodecUnavailable, policy.ForcedCodec, kind)
	}

	sid := domain.NewSessionID()
	logger := log.With().Str("module", "app.negotiator").Str("sid", string(sid)).Logger()

	conn, err := n.engine.NewConnection(sid)
	if err != nil {
		return domain.Description{}, nil, fmt.Errorf("%w: new connection: %w", domain.ErrNegotiationFailed, err)
	}
	s := NewSession(n.root, sid, conn, policy, n.cfg.Session)
	if err := n.registry.Add(s); err != nil {
		_ = s.Close()
		return domain.Description{}, nil, err
	}

	fail := func(err error) (domain.Description, *Session, error) {
		if !errors.Is(err, domain.ErrNegotiationFailed) && !errors.Is(err, domain.ErrSessionClosed) {
			err = fmt.Errorf("%w: %w", domain.ErrNegotiationFailed, err)
		}
		logger.Warn().Err(err).Msg("negotiation failed")
		s.Fail(err)
		return domain.Description{}, nil, err
	}

	if err := s.AddTransceiver(kind, prefs); err != nil {
		return fail(err)
	}
	if err := s.SetRemoteDescription(offer); err != nil {
		return fail(err)
	}
	answer, err := s.CreateAnswer()
	if err != nil {
		return fail(err)
	}

	gatherCtx, cancel := context.WithTimeout(ctx, n.cfg.GatherTimeout)
	defer cancel()
	local, err := s.SetLocalDescription(gatherCtx, answer)
	if err != nil {
		return fail(err)
	}
	if err := verifyAnswer(local, kind, policy.ForcedCodec); err != nil {
		return fail(err)
	}

	logger.Info().
		Str("codec", policy.ForcedCodec).
		Uint64("target_bps", s.TargetBitrate()).
		Str("codecs", codecIDs(prefs)).
		Msg("negotiated session")
	return local, s, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidSignalingState):
		return "invalid"
	case errors.Is(err, domain.ErrCodecUnavailable):
		return "codec_unavailable"
	case errors.Is(err, domain.ErrSessionClosed):
		return "closed"
	default:
		return "failed"
	}
}

func codecIDs(prefs domain.CodecPreference) string {
	ids := make([]string, 0, len(prefs))
	for _, c := range prefs {
		ids = append(ids, c.ID())
	}
	return strings.Join(ids, ",")
}

// validateOffer checks the description is a parseable offer with an active section of kind.
func validateOffer(offer domain.Description, kind domain.MediaKind) error {
	if offer.Type != domain.SDPTypeOffer {
		return fmt.Errorf("%w: expected offer, got %q", domain.ErrInvalidSignalingState, offer.Type)
	}
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(offer.SDP)); err != nil {
		return fmt.Errorf("%w: parse offer: %w", domain.ErrInvalidSignalingState, err)
	}
	if len(parsed.MediaDescriptions) == 0 {
		return fmt.Errorf("%w: offer has no media sections", domain.ErrInvalidSignalingState)
	}
	for _, md := range parsed.MediaDescriptions {
		if md.MediaName.Media == string(kind) && md.MediaName.Port.Value != 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: offer has no %s section", domain.ErrInvalidSignalingState, kind)
}

// verifyAnswer requires every codec of the active kind sections to carry the forced mime type.
func verifyAnswer(answer domain.Description, kind domain.MediaKind, forced string) error {
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(answer.SDP)); err != nil {
		return fmt.Errorf("%w: parse answer: %w", domain.ErrNegotiationFailed, err)
	}
	_, subtype, _ := strings.Cut(forced, "/")

	found := 0
	for _, md := range parsed.MediaDescriptions {
		if md.MediaName.Media != string(kind) || md.MediaName.Port.Value == 0 {
			continue
		}
		names := rtpmapNames(md)
		for _, format := range md.MediaName.Formats {
			name, ok := names[format]
			if !ok {
				return fmt.Errorf("%w: answer format %s has no rtpmap", domain.ErrNegotiationFailed, format)
			}
			if _, repair := repairFormats[strings.ToLower(name)]; repair {
				continue
			}
			if !strings.EqualFold(name, subtype) {
				return fmt.Errorf("%w: answer offers %s/%s besides %s", domain.ErrNegotiationFailed, kind, name, forced)
			}
			found++
		}
	}
	if found == 0 {
		return fmt.Errorf("%w: answer carries no %s codec", domain.ErrNegotiationFailed, forced)
	}
	return nil
}

// rtpmapNames maps payload type to encoding name from a=rtpmap:<pt> <name>/<clock>.
func rtpmapNames(md *sdp.MediaDescription) map[string]string {
	out := make(map[string]string)
	for _, a := range md.Attributes {
		if a.Key != "rtpmap" {
			continue
		}
		pt, rest, ok := strings.Cut(a.Value, " ")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(rest, "/")
		out[pt] = name
	}
	return out
}
