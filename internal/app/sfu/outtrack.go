package sfu

import (
	"errors"
	"sync/atomic"

	"github.com/dkeye/Relay/internal/core"
	"github.com/pion/rtp"
)

type TrackState int32

const (
	TrackStateOk TrackState = iota
	TrackStateMuted
	TrackStateDelete
)

var errOutTrackDeleted = errors.New("out track deleted")

// OutTrack is the outbound side of a relay.
type OutTrack struct {
	Sink  core.TrackSink
	state atomic.Int32 // Zero by default (TrackStateOk)
}

func NewOutTrack(sink core.TrackSink) *OutTrack {
	return &OutTrack{Sink: sink}
}

func (ot *OutTrack) GetState() TrackState {
	return TrackState(ot.state.Load())
}

func (ot *OutTrack) MarkOk() {
	ot.state.CompareAndSwap(int32(TrackStateMuted), int32(TrackStateOk))
}

func (ot *OutTrack) MarkMuted() {
	ot.state.CompareAndSwap(int32(TrackStateOk), int32(TrackStateMuted))
}

// MarkDelete is final: a deleted track never comes back.
func (ot *OutTrack) MarkDelete() {
	ot.state.Store(int32(TrackStateDelete))
}

func (ot *OutTrack) Write(pkt *rtp.Packet) error {
	if ot.GetState() == TrackStateDelete {
		return errOutTrackDeleted
	}
	return ot.Sink.WriteRTP(pkt)
}
