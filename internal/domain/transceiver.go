package domain

type Direction string

const (
	DirectionSendRecv Direction = "sendrecv"
	DirectionSendOnly Direction = "sendonly"
	DirectionRecvOnly Direction = "recvonly"
)

// TransceiverInfo is the negotiated send/receive pairing for one media kind.
// No transport or lifecycle logic here.
type TransceiverInfo struct {
	Kind      MediaKind `json:"kind"`
	Direction Direction `json:"direction"`
	Codec     Codec     `json:"codec"`
	// RelayID is the inbound track id being relayed, empty until media arrives.
	RelayID string `json:"relay_id,omitempty"`
}
