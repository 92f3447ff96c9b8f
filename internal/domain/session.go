// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const MaxSessionIDLen = 36

var ErrSessionIDInvalid = errors.New("session id invalid")

type SessionID string

// NewSessionID is a tiny helper to avoid ad-hoc uuid calls in adapters.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// ParseSessionID validates an id received from the outside (path param, cookie).
func ParseSessionID(raw string) (SessionID, error) {
	if raw == "" || len(raw) > MaxSessionIDLen {
		return "", ErrSessionIDInvalid
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", ErrSessionIDInvalid
	}
	return SessionID(raw), nil
}

type SessionState int32

const (
	SessionNew SessionState = iota
	SessionConnecting
	SessionConnected
	SessionFailed
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionNew:
		return "new"
	case SessionConnecting:
		return "connecting"
	case SessionConnected:
		return "connected"
	case SessionFailed:
		return "failed"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s SessionState) Terminal() bool {
	return s == SessionFailed || s == SessionClosed
}

var sessionTransitions = map[SessionState][]SessionState{
	SessionNew:        {SessionConnecting, SessionClosed},
	SessionConnecting: {SessionConnected, SessionFailed, SessionClosed},
	SessionConnected:  {SessionFailed, SessionClosed},
}

// CanTransition reports whether from -> to is an edge of the session state machine.
func CanTransition(from, to SessionState) bool {
	for _, next := range sessionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SessionInfo is a read-only view for APIs (no transport fields).
type SessionInfo struct {
	ID           SessionID         `json:"id"`
	State        string            `json:"state"`
	CreatedAt    time.Time         `json:"created_at"`
	Transceivers []TransceiverInfo `json:"transceivers"`
	// Relays holds packet counters per inbound track id.
	Relays map[string]RelayStats `json:"relays,omitempty"`
}

// RelayStats counts packets of one relay track. Once the relay has ended,
// Relayed+Dropped equals Received.
type RelayStats struct {
	Received uint64 `json:"received"`
	Relayed  uint64 `json:"relayed"`
	Dropped  uint64 `json:"dropped"`
}
