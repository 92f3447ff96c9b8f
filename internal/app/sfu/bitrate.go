package sfu

import (
	"sync/atomic"

	"github.com/dkeye/Relay/internal/domain"
)

// BitrateController holds the outbound target for one Session.
// Estimator input is clamped to the policy bounds; in constant mode it is ignored.
type BitrateController struct {
	bounds domain.BitrateBounds
	target atomic.Uint64
}

func NewBitrateController(bounds domain.BitrateBounds) *BitrateController {
	c := &BitrateController{bounds: bounds}
	// a zero floor would stall pacing until the first estimate
	start := bounds.Min
	if start == 0 {
		start = bounds.Max
	}
	c.target.Store(start)
	return c
}

// Update feeds an adaptive estimate in bits/s and returns the resulting target.
// Non-positive estimates carry no information and keep the current target.
func (c *BitrateController) Update(estimate int) uint64 {
	if estimate <= 0 {
		return c.target.Load()
	}
	t := c.bounds.Clamp(int64(estimate))
	c.target.Store(t)
	return t
}

func (c *BitrateController) Target() uint64 { return c.target.Load() }

func (c *BitrateController) Bounds() domain.BitrateBounds { return c.bounds }
