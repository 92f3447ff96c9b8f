package domain

import "errors"

var (
	// ErrInvalidSignalingState means the offer is malformed or of the wrong type.
	ErrInvalidSignalingState = errors.New("invalid signaling state")
	// ErrCodecUnavailable means the forced codec is absent from the local capability set.
	ErrCodecUnavailable = errors.New("codec unavailable")
	// ErrNegotiationFailed means the engine could not produce a usable local description.
	ErrNegotiationFailed = errors.New("negotiation failed")
	// ErrTransportFailed means ICE or DTLS failed after negotiation.
	ErrTransportFailed = errors.New("transport failed")
	// ErrRelaySourceEnded is the expected end-of-stream of an inbound track.
	ErrRelaySourceEnded = errors.New("relay source ended")

	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionClosed     = errors.New("session closed")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrInvalidPolicy     = errors.New("invalid codec policy")
)
