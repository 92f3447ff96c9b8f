package sfu

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSource struct {
	id      string
	packets chan *rtp.Packet
	err     error
}

func newChanSource(id string, size int) *chanSource {
	return &chanSource{id: id, packets: make(chan *rtp.Packet, size)}
}

func (s *chanSource) ID() string             { return s.id }
func (s *chanSource) Kind() domain.MediaKind { return domain.MediaKindVideo }
func (s *chanSource) SSRC() uint32           { return 4242 }
func (s *chanSource) Codec() domain.Codec {
	return domain.Codec{MimeType: "video/H264", ClockRate: 90000}
}

func (s *chanSource) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	pkt, ok := <-s.packets
	if !ok {
		if s.err != nil {
			return nil, nil, s.err
		}
		return nil, nil, io.EOF
	}
	return pkt, nil, nil
}

type recordingSink struct {
	mu      sync.Mutex
	got     []uint16
	release chan struct{}
	delay   time.Duration
	writes  atomic.Int32
}

func (s *recordingSink) WriteRTP(pkt *rtp.Packet) error {
	s.writes.Add(1)
	if s.release != nil {
		<-s.release
	}
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, pkt.SequenceNumber)
	return nil
}

func (s *recordingSink) seqs() []uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint16(nil), s.got...)
}

func packet(seq uint16) *rtp.Packet {
	return &rtp.Packet{
		Header:  rtp.Header{Version: 2, PayloadType: 102, SequenceNumber: seq, SSRC: 4242},
		Payload: make([]byte, 100),
	}
}

func cbr() *BitrateController {
	return NewBitrateController(domain.BitrateBounds{Min: 2_000_000, Max: 2_000_000})
}

func TestRelayPreservesOrder(t *testing.T) {
	src := newChanSource("video-1", 64)
	sink := &recordingSink{}
	r := NewRelay(src, NewOutTrack(sink), cbr(), RelayConfig{Buffer: 64}, zerolog.Nop())
	r.Start(context.Background())

	for i := uint16(1); i <= 50; i++ {
		src.packets <- packet(i)
	}
	close(src.packets)

	select {
	case <-r.Ended():
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not end")
	}
	require.Eventually(t, func() bool { return len(sink.seqs()) == 50 }, 2*time.Second, 5*time.Millisecond)

	want := make([]uint16, 50)
	for i := range want {
		want[i] = uint16(i + 1)
	}
	assert.Equal(t, want, sink.seqs())
	assert.Equal(t, domain.RelayStats{Received: 50, Relayed: 50}, r.Stats())
}

func TestRelayDrainsQueueBeforeEnding(t *testing.T) {
	const total = 50
	src := newChanSource("video-1", total)
	sink := &recordingSink{delay: time.Millisecond}
	r := NewRelay(src, NewOutTrack(sink), cbr(), RelayConfig{Buffer: total}, zerolog.Nop())

	for i := uint16(1); i <= total; i++ {
		src.packets <- packet(i)
	}
	close(src.packets)
	r.Start(context.Background())

	select {
	case <-r.Ended():
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not end")
	}
	st := r.Stats()
	assert.Equal(t, uint64(total), st.Received)
	assert.Equal(t, st.Received, st.Relayed+st.Dropped, "every received packet is accounted for")
	assert.Equal(t, uint64(total), st.Relayed)
	got := sink.seqs()
	require.Len(t, got, total)
	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1]+1, got[i])
	}
	assert.ErrorIs(t, r.Reason(), domain.ErrRelaySourceEnded)
}

func TestRelayStopCountsQueuedAsDropped(t *testing.T) {
	const total = 20
	src := newChanSource("video-1", total)
	sink := &recordingSink{release: make(chan struct{})}
	r := NewRelay(src, NewOutTrack(sink), cbr(), RelayConfig{Buffer: total}, zerolog.Nop())
	r.Start(context.Background())

	for i := uint16(1); i <= total; i++ {
		src.packets <- packet(i)
	}
	require.Eventually(t, func() bool {
		return r.Stats().Received == total && sink.writes.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(sink.release)
	}()
	r.Stop()
	close(src.packets)
	<-r.Done()

	st := r.Stats()
	assert.Equal(t, st.Received, st.Relayed+st.Dropped)
	assert.LessOrEqual(t, st.Relayed, uint64(1))
}

func TestRelayConcurrentStartStop(t *testing.T) {
	for range 200 {
		src := newChanSource("video-1", 1)
		r := NewRelay(src, NewOutTrack(&recordingSink{}), cbr(), RelayConfig{}, zerolog.Nop())

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Start(context.Background())
		}()
		go func() {
			defer wg.Done()
			r.Stop()
		}()
		wg.Wait()

		close(src.packets)
		select {
		case <-r.Ended():
		case <-time.After(time.Second):
			t.Fatal("relay did not end")
		}
		assert.NoError(t, r.Reason())
	}
}

func TestRelayStopsWithParentContext(t *testing.T) {
	src := newChanSource("video-1", 1)
	r := NewRelay(src, NewOutTrack(&recordingSink{}), cbr(), RelayConfig{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	cancel()
	select {
	case <-r.Ended():
	case <-time.After(time.Second):
		t.Fatal("relay did not end")
	}
	assert.NoError(t, r.Reason())
	close(src.packets)
	<-r.Done()
}

func TestRelayDropsOldestWhenSinkStalls(t *testing.T) {
	const buffer, total = 4, 20
	src := newChanSource("video-1", total)
	sink := &recordingSink{release: make(chan struct{})}
	r := NewRelay(src, NewOutTrack(sink), cbr(), RelayConfig{Buffer: buffer}, zerolog.Nop())
	r.Start(context.Background())

	for i := uint16(1); i <= total; i++ {
		src.packets <- packet(i)
	}
	require.Eventually(t, func() bool {
		return r.Stats().Received == total && sink.writes.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)
	close(sink.release)

	require.Eventually(t, func() bool {
		st := r.Stats()
		return st.Relayed+st.Dropped == total
	}, 2*time.Second, 5*time.Millisecond)

	got := sink.seqs()
	st := r.Stats()
	assert.Positive(t, st.Dropped)
	assert.LessOrEqual(t, len(got), buffer+1)
	assert.Equal(t, uint16(total), got[len(got)-1], "newest packet survives")
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i], "no reordering or duplication")
	}
	r.Stop()
}

func TestRelayEndedFiresOnce(t *testing.T) {
	src := newChanSource("video-1", 1)
	sink := &recordingSink{}
	r := NewRelay(src, NewOutTrack(sink), cbr(), RelayConfig{}, zerolog.Nop())

	var calls atomic.Int32
	r.OnEnded(func(id string, err error) {
		calls.Add(1)
		assert.Equal(t, "video-1", id)
		assert.ErrorIs(t, err, domain.ErrRelaySourceEnded)
	})
	r.Start(context.Background())
	close(src.packets)

	<-r.Ended()
	r.Stop()
	r.Stop()
	<-r.Done()
	assert.Equal(t, int32(1), calls.Load())
	assert.ErrorIs(t, r.Reason(), domain.ErrRelaySourceEnded)
}

func TestRelayReadErrorEndsWithoutRetry(t *testing.T) {
	src := newChanSource("video-1", 1)
	src.err = errors.New("srtp: replayed")
	r := NewRelay(src, NewOutTrack(&recordingSink{}), cbr(), RelayConfig{}, zerolog.Nop())
	r.Start(context.Background())
	close(src.packets)

	<-r.Done()
	assert.ErrorIs(t, r.Reason(), domain.ErrRelaySourceEnded)
}

func TestRelayStopsWhenGateCloses(t *testing.T) {
	src := newChanSource("video-1", 8)
	sink := &recordingSink{}
	var open atomic.Bool
	open.Store(true)

	r := NewRelay(src, NewOutTrack(sink), cbr(), RelayConfig{}, zerolog.Nop())
	r.SetGate(open.Load)
	var ended atomic.Int32
	r.OnEnded(func(string, error) { ended.Add(1) })
	r.Start(context.Background())

	src.packets <- packet(1)
	require.Eventually(t, func() bool { return len(sink.seqs()) == 1 }, time.Second, 5*time.Millisecond)

	open.Store(false)
	src.packets <- packet(2)
	<-r.Done()

	assert.Equal(t, []uint16{1}, sink.seqs())
	assert.NoError(t, r.Reason())
	assert.Zero(t, ended.Load(), "stopping is not a source end")
}

func TestRelayNoWritesAfterStop(t *testing.T) {
	src := newChanSource("video-1", 128)
	sink := &recordingSink{}
	r := NewRelay(src, NewOutTrack(sink), cbr(), RelayConfig{}, zerolog.Nop())
	r.Start(context.Background())

	for i := uint16(1); i <= 10; i++ {
		src.packets <- packet(i)
	}
	r.Stop()
	before := sink.writes.Load()
	for i := uint16(11); i <= 20; i++ {
		src.packets <- packet(i)
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, sink.writes.Load())
	close(src.packets)
	<-r.Done()
}

func TestRelayMutedDropsInsteadOfWriting(t *testing.T) {
	src := newChanSource("video-1", 8)
	sink := &recordingSink{}
	out := NewOutTrack(sink)
	out.MarkMuted()
	r := NewRelay(src, out, cbr(), RelayConfig{}, zerolog.Nop())
	r.Start(context.Background())

	src.packets <- packet(1)
	require.Eventually(t, func() bool { return r.Stats().Dropped == 1 }, time.Second, 5*time.Millisecond)

	out.MarkOk()
	src.packets <- packet(2)
	require.Eventually(t, func() bool { return len(sink.seqs()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint16{2}, sink.seqs())
	r.Stop()
}

func TestFrameQueueOverwritesOldest(t *testing.T) {
	q := newFrameQueue(2)
	assert.False(t, q.push(packet(1)))
	assert.False(t, q.push(packet(2)))
	assert.True(t, q.push(packet(3)))
	assert.Equal(t, 2, q.len())

	p, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, uint16(2), p.SequenceNumber)
	p, _ = q.pop()
	assert.Equal(t, uint16(3), p.SequenceNumber)
	_, ok = q.pop()
	assert.False(t, ok)
}
