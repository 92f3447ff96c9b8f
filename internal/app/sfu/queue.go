package sfu

import "github.com/pion/rtp"

// frameQueue is a fixed-size FIFO that overwrites its oldest entry when full.
type frameQueue struct {
	buf  []*rtp.Packet
	head int
	size int
}

func newFrameQueue(capacity int) *frameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &frameQueue{buf: make([]*rtp.Packet, capacity)}
}

// push appends pkt and reports whether the oldest entry had to be dropped.
func (q *frameQueue) push(pkt *rtp.Packet) (dropped bool) {
	if q.size == len(q.buf) {
		q.buf[q.head] = nil
		q.head = (q.head + 1) % len(q.buf)
		q.size--
		dropped = true
	}
	q.buf[(q.head+q.size)%len(q.buf)] = pkt
	q.size++
	return dropped
}

func (q *frameQueue) pop() (*rtp.Packet, bool) {
	if q.size == 0 {
		return nil, false
	}
	pkt := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return pkt, true
}

func (q *frameQueue) len() int { return q.size }
