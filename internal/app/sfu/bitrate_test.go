package sfu

import (
	"context"
	"math/rand"
	"testing"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestConstantBitrateIgnoresEstimator(t *testing.T) {
	const b = 2_000_000
	c := NewBitrateController(domain.BitrateBounds{Min: b, Max: b})
	assert.Equal(t, uint64(b), c.Target())

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		estimate := rng.Intn(20_000_000) - 1_000_000
		assert.Equal(t, uint64(b), c.Update(estimate))
		assert.Equal(t, uint64(b), c.Target())
	}
}

func TestAdaptiveBitrateClampsToBounds(t *testing.T) {
	c := NewBitrateController(domain.BitrateBounds{Min: 300_000, Max: 1_500_000})
	assert.Equal(t, uint64(300_000), c.Target())

	assert.Equal(t, uint64(800_000), c.Update(800_000))
	assert.Equal(t, uint64(1_500_000), c.Update(10_000_000))
	assert.Equal(t, uint64(300_000), c.Update(10))
}

func TestAdaptiveBitrateWithZeroFloorStartsAtMax(t *testing.T) {
	c := NewBitrateController(domain.BitrateBounds{Min: 0, Max: 1_500_000})
	assert.Equal(t, uint64(1_500_000), c.Target())
	assert.Equal(t, uint64(1_500_000), c.Update(0), "empty estimate keeps the target")

	assert.Equal(t, uint64(400_000), c.Update(400_000))
	assert.Equal(t, uint64(400_000), c.Update(-5))
}

func TestRelayPacesWithZeroFloor(t *testing.T) {
	const total = 120
	src := newChanSource("video-1", total)
	sink := &recordingSink{}
	ctrl := NewBitrateController(domain.BitrateBounds{Min: 0, Max: 1_500_000})
	r := NewRelay(src, NewOutTrack(sink), ctrl, RelayConfig{Buffer: total}, zerolog.Nop())
	r.Start(context.Background())

	// well past the initial burst at a 1.5 Mbit/s target
	for i := uint16(1); i <= total; i++ {
		src.packets <- &rtp.Packet{
			Header:  rtp.Header{Version: 2, PayloadType: 102, SequenceNumber: i, SSRC: 4242},
			Payload: make([]byte, 1200),
		}
	}
	close(src.packets)
	<-r.Ended()
	assert.Equal(t, domain.RelayStats{Received: total, Relayed: total}, r.Stats())
}
