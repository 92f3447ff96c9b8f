package domain

import "fmt"

// BitrateBounds is a bits/second range. Min == Max pins the relay to constant bitrate.
type BitrateBounds struct {
	Min uint64 `json:"min"`
	Max uint64 `json:"max"`
}

func (b BitrateBounds) Validate() error {
	if b.Min > b.Max {
		return fmt.Errorf("%w: min bitrate %d above max %d", ErrInvalidPolicy, b.Min, b.Max)
	}
	return nil
}

// Constant reports constant-bitrate mode: no adaptive stepping at all.
func (b BitrateBounds) Constant() bool { return b.Min == b.Max }

// Clamp bounds an arbitrary estimate. Negative estimates count as zero.
func (b BitrateBounds) Clamp(estimate int64) uint64 {
	if b.Constant() {
		return b.Max
	}
	if estimate < 0 || uint64(estimate) < b.Min {
		return b.Min
	}
	if uint64(estimate) > b.Max {
		return b.Max
	}
	return uint64(estimate)
}
