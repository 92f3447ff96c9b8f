package sfu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"
)

const (
	DefaultBuffer      = 256
	DefaultSendTimeout = 200 * time.Millisecond

	minBurstBytes = 64 * 1024
)

type RelayConfig struct {
	// Buffer is the number of packets held between reader and writer.
	Buffer int
	// SendTimeout bounds how long a packet may wait for pacing tokens before it is dropped.
	SendTimeout time.Duration
}

func (c RelayConfig) withDefaults() RelayConfig {
	if c.Buffer <= 0 {
		c.Buffer = DefaultBuffer
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	return c
}

// Relay bridges one inbound track to one outbound track.
// Packets leave in arrival order; under pressure the oldest queued packet is dropped.
type Relay struct {
	Src  core.TrackSource
	Out  *OutTrack
	ctrl *BitrateController
	cfg  RelayConfig

	// gate reports whether the owning Session still allows relaying.
	gate    func() bool
	onEnded func(id string, err error)

	mu     sync.Mutex
	queue  *frameQueue
	notify chan struct{}
	// eos is set by the reader at end of stream; the writer drains the queue and then ends.
	eos    bool
	srcErr error
	// closed rejects further packets once the writer has given up on the queue.
	closed bool

	limiter     *rate.Limiter
	limiterRate uint64

	received     atomic.Uint64
	relayed      atomic.Uint64
	dropped      atomic.Uint64
	lastActivity atomic.Int64

	started    atomic.Bool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         conc.WaitGroup
	writerDone chan struct{}
	done       chan struct{}

	endOnce sync.Once
	ended   chan struct{}
	reason  error

	logger zerolog.Logger
}

func NewRelay(src core.TrackSource, out *OutTrack, ctrl *BitrateController, cfg RelayConfig, logger zerolog.Logger) *Relay {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	r := &Relay{
		Src:        src,
		Out:        out,
		ctrl:       ctrl,
		cfg:        cfg,
		gate:       func() bool { return true },
		queue:      newFrameQueue(cfg.Buffer),
		notify:     make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		writerDone: make(chan struct{}),
		done:       make(chan struct{}),
		ended:      make(chan struct{}),
		logger:     logger,
	}
	r.applyTarget(ctrl.Target())
	r.lastActivity.Store(time.Now().UnixNano())
	return r
}

// SetGate must be called before Start.
func (r *Relay) SetGate(gate func() bool) { r.gate = gate }

// OnEnded must be called before Start. fn runs at most once, only when the source ends.
func (r *Relay) OnEnded(fn func(id string, err error)) { r.onEnded = fn }

func (r *Relay) ID() string { return r.Src.ID() }

// Start begins pulling from the source. Cancelling parent stops the relay like Stop,
// without waiting for the writer.
func (r *Relay) Start(parent context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	if parent.Err() != nil {
		r.finish(nil)
	}
	unlink := context.AfterFunc(parent, func() { r.finish(nil) })

	r.wg.Go(func() { r.readLoop(r.ctx) })
	r.wg.Go(func() {
		reason := r.writeLoop(r.ctx)
		close(r.writerDone)
		r.finish(reason)
	})
	go func() {
		r.wg.Wait()
		unlink()
		r.cancel()
		close(r.done)
	}()
}

// Stop halts the relay. After it returns nothing more is written to the outbound track
// and packets still queued are counted as dropped.
// The reader may stay parked in ReadRTP until the transport is closed; see Done.
func (r *Relay) Stop() {
	r.Out.MarkDelete()
	r.finish(nil)
	if r.started.Load() {
		<-r.writerDone
	}
}

// Done is closed once both reader and writer have exited.
func (r *Relay) Done() <-chan struct{} { return r.done }

// Ended is closed when the relay stops for any reason. At end of stream that happens
// only after the queued packets were written or dropped.
func (r *Relay) Ended() <-chan struct{} { return r.ended }

// Reason is the cause recorded when the relay ended; nil for an explicit Stop.
func (r *Relay) Reason() error {
	<-r.ended
	return r.reason
}

func (r *Relay) Stats() domain.RelayStats {
	return domain.RelayStats{
		Received: r.received.Load(),
		Relayed:  r.relayed.Load(),
		Dropped:  r.dropped.Load(),
	}
}

func (r *Relay) LastActivity() time.Time {
	return time.Unix(0, r.lastActivity.Load())
}

func (r *Relay) finish(reason error) {
	r.endOnce.Do(func() {
		r.reason = reason
		r.cancel()
		close(r.ended)
		if reason != nil && r.onEnded != nil {
			r.onEnded(r.ID(), reason)
		}
	})
}

func (r *Relay) readLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !r.gate() {
			r.logger.Info().Msg("relay gate closed, stop pulling")
			r.finish(nil)
			return
		}
		pkt, _, err := r.Src.ReadRTP()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				r.logger.Info().Msg("relay source ended")
				r.endOfStream(domain.ErrRelaySourceEnded)
			} else {
				r.logger.Warn().Err(err).Msg("relay read RTP error, stopping")
				r.endOfStream(fmt.Errorf("%w: %w", domain.ErrRelaySourceEnded, err))
			}
			return
		}
		r.received.Add(1)
		r.lastActivity.Store(time.Now().UnixNano())
		if ctx.Err() != nil {
			r.drop()
			return
		}
		if !r.gate() {
			r.drop()
			r.logger.Info().Msg("relay gate closed, stop pulling")
			r.finish(nil)
			return
		}
		r.enqueue(pkt)
	}
}

func (r *Relay) enqueue(pkt *rtp.Packet) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.drop()
		return
	}
	dropped := r.queue.push(pkt)
	r.mu.Unlock()
	if dropped {
		r.drop()
	}
	r.wake()
}

// endOfStream lets the writer flush what is queued before the relay ends with reason.
func (r *Relay) endOfStream(reason error) {
	r.mu.Lock()
	r.eos = true
	r.srcErr = reason
	r.mu.Unlock()
	r.wake()
}

func (r *Relay) wake() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// discard empties the queue, counting every packet as dropped, and refuses new ones.
func (r *Relay) discard() {
	r.mu.Lock()
	r.closed = true
	n := 0
	for {
		if _, ok := r.queue.pop(); !ok {
			break
		}
		n++
	}
	r.mu.Unlock()
	for range n {
		r.drop()
	}
}

// writeLoop returns the end-of-stream reason once the queue is drained, or nil when
// the relay was stopped.
func (r *Relay) writeLoop(ctx context.Context) error {
	for {
		r.mu.Lock()
		pkt, ok := r.queue.pop()
		eos, reason := r.eos, r.srcErr
		r.mu.Unlock()

		if !ok {
			if eos {
				return reason
			}
			select {
			case <-ctx.Done():
				r.discard()
				return nil
			case <-r.notify:
			}
			continue
		}

		if ctx.Err() != nil {
			r.drop()
			r.discard()
			return nil
		}
		switch r.Out.GetState() {
		case TrackStateDelete:
			r.drop()
			r.discard()
			return nil
		case TrackStateMuted:
			r.drop()
			continue
		}
		if !r.pace(ctx, pkt) {
			r.drop()
			if ctx.Err() != nil {
				r.discard()
				return nil
			}
			continue
		}
		if err := r.Out.Write(pkt); err != nil {
			r.drop()
			r.discard()
			if ctx.Err() != nil || errors.Is(err, errOutTrackDeleted) {
				return nil
			}
			r.logger.Error().Err(err).Msg("relay write RTP error, marking outtrack as delete")
			r.Out.MarkDelete()
			return fmt.Errorf("%w: %w", domain.ErrRelaySourceEnded, err)
		}
		r.relayed.Add(1)
		metrics.RelayPackets.WithLabelValues("relayed").Inc()
	}
}

func (r *Relay) drop() {
	r.dropped.Add(1)
	metrics.RelayPackets.WithLabelValues("dropped").Inc()
}

// pace waits for enough tokens at the current target bitrate, at most SendTimeout.
func (r *Relay) pace(ctx context.Context, pkt *rtp.Packet) bool {
	if t := r.ctrl.Target(); t != r.limiterRate {
		r.applyTarget(t)
	}
	waitCtx, cancel := context.WithTimeout(ctx, r.cfg.SendTimeout)
	defer cancel()
	return r.limiter.WaitN(waitCtx, pkt.MarshalSize()) == nil
}

func (r *Relay) applyTarget(bps uint64) {
	bytesPerSec := float64(bps) / 8
	burst := int(bytesPerSec / 2)
	if burst < minBurstBytes {
		burst = minBurstBytes
	}
	if r.limiter == nil {
		r.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burst)
	} else {
		r.limiter.SetLimit(rate.Limit(bytesPerSec))
		r.limiter.SetBurst(burst)
	}
	r.limiterRate = bps
	metrics.TargetBitrate.Observe(float64(bps))
	r.logger.Debug().Uint64("target_bps", bps).Int("burst", burst).Msg("relay pacing target")
}
