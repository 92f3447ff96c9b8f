package domain

import (
	"fmt"
	"strings"
)

type SDPType string

const (
	SDPTypeOffer    SDPType = "offer"
	SDPTypeAnswer   SDPType = "answer"
	SDPTypePranswer SDPType = "pranswer"
	SDPTypeRollback SDPType = "rollback"
)

// ParseSDPType accepts the lower-case names browsers put in RTCSessionDescription.type.
func ParseSDPType(raw string) (SDPType, error) {
	switch t := SDPType(strings.ToLower(strings.TrimSpace(raw))); t {
	case SDPTypeOffer, SDPTypeAnswer, SDPTypePranswer, SDPTypeRollback:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown sdp type %q", ErrInvalidSignalingState, raw)
	}
}

// Description is an immutable session description value.
// The SDP body is opaque here; its grammar belongs to the engine.
type Description struct {
	Type SDPType `json:"type"`
	SDP  string  `json:"sdp"`
}

func NewDescription(typ, sdp string) (Description, error) {
	t, err := ParseSDPType(typ)
	if err != nil {
		return Description{}, err
	}
	if strings.TrimSpace(sdp) == "" {
		return Description{}, fmt.Errorf("%w: empty sdp", ErrInvalidSignalingState)
	}
	return Description{Type: t, SDP: sdp}, nil
}
