package sfu

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alwaysOpen() bool { return true }

func TestRelayManagerLifecycle(t *testing.T) {
	m := NewRelayManager(domain.NewSessionID(), cbr(), RelayConfig{})
	src := newChanSource("video-1", 8)
	sink := &recordingSink{}

	m.StartRelay(context.Background(), src, sink, alwaysOpen, nil)
	require.Contains(t, m.Stats(), "video-1")
	assert.Equal(t, 1, m.Active())
	assert.Equal(t, []uint32{4242}, m.SourceSSRCs())

	src.packets <- packet(1)
	require.Eventually(t, func() bool { return len(sink.seqs()) == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, m.LastActivity().IsZero())
	assert.Equal(t, uint64(1), m.Stats()["video-1"].Relayed)

	close(src.packets)
	m.StopAll(time.Second)
	assert.Empty(t, m.Stats())
	assert.Zero(t, m.Active())

	late := newChanSource("video-2", 1)
	assert.Nil(t, m.StartRelay(context.Background(), late, sink, alwaysOpen, nil), "no relay starts after StopAll")
	assert.Empty(t, m.Stats())
}

func TestRelayManagerReplacesSameTrack(t *testing.T) {
	m := NewRelayManager(domain.NewSessionID(), cbr(), RelayConfig{})
	first := newChanSource("video-1", 1)
	second := newChanSource("video-1", 1)

	old := m.StartRelay(context.Background(), first, &recordingSink{}, alwaysOpen, nil)
	m.StartRelay(context.Background(), second, &recordingSink{}, alwaysOpen, nil)

	<-old.Ended()
	assert.Equal(t, TrackStateDelete, old.Out.GetState())
	assert.Equal(t, 1, m.Active())

	close(first.packets)
	close(second.packets)
	m.StopAll(time.Second)
}

func TestRelayManagerActiveIgnoresEnded(t *testing.T) {
	m := NewRelayManager(domain.NewSessionID(), cbr(), RelayConfig{})
	src := newChanSource("video-1", 1)
	r := m.StartRelay(context.Background(), src, &recordingSink{}, alwaysOpen, nil)

	close(src.packets)
	<-r.Ended()
	assert.Zero(t, m.Active())
	assert.Contains(t, m.Stats(), "video-1", "ended relays stay until StopAll")
	m.StopAll(0)
}
