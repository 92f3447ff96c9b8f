package core

// Frame is one encoded signalling message.
type Frame []byte

// SignalConnection is an outbound signalling channel to one client.
// TrySend never blocks; a full buffer is reported as an error. The adapter owns Close.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
