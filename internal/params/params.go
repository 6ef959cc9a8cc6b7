package params

import "sync/atomic"

// Controls holds the externally driven render inputs: palette mode,
// degradation amount and bypass. The CLI, keyboard listener and web API
// write them while the render loop reads them, so every field is atomic.
// The loop samples once per tick; a torn read across fields is harmless
// because the values are display-only.
type Controls struct {
	mode        atomic.Int64
	degradation atomic.Int64
	bypassed    atomic.Bool
}

// New returns controls seeded with the given mode and degradation amount.
func New(mode, degradation int) *Controls {
	c := &Controls{}
	c.SetMode(mode)
	c.SetDegradation(degradation)
	return c
}

// SetMode selects the palette/scene variant. Any integer is accepted;
// values outside the palette table resolve to palette 0 at render time.
func (c *Controls) SetMode(mode int) {
	c.mode.Store(int64(mode))
}

// Mode returns the last mode set.
func (c *Controls) Mode() int {
	return int(c.mode.Load())
}

// SetDegradation stores a degradation amount clamped to [0,100].
func (c *Controls) SetDegradation(v int) {
	c.degradation.Store(int64(clampLevel(v)))
}

// Degradation returns the stored amount in [0,100].
func (c *Controls) Degradation() int {
	return int(c.degradation.Load())
}

// NudgeDegradation adds delta to the current amount, clamped to [0,100],
// and returns the resulting value.
func (c *Controls) NudgeDegradation(delta int) int {
	for {
		old := c.degradation.Load()
		next := int64(clampLevel(int(old) + delta))
		if c.degradation.CompareAndSwap(old, next) {
			return int(next)
		}
	}
}

// SetBypassed toggles bypass. Bypassed ticks render the clean scene with
// zero features and zero degradation.
func (c *Controls) SetBypassed(b bool) {
	c.bypassed.Store(b)
}

// ToggleBypassed flips bypass and returns the new state.
func (c *Controls) ToggleBypassed() bool {
	for {
		old := c.bypassed.Load()
		if c.bypassed.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Bypassed reports whether bypass is active.
func (c *Controls) Bypassed() bool {
	return c.bypassed.Load()
}

// Snapshot is one tick's view of the controls. Degradation is normalized
// to [0,1].
type Snapshot struct {
	Mode        int
	Degradation float64
	Bypassed    bool
}

// Sample reads the controls for one tick. Bypass zeroes the normalized
// degradation so the frame renders clean.
func (c *Controls) Sample() Snapshot {
	s := Snapshot{
		Mode:        c.Mode(),
		Degradation: float64(c.Degradation()) / 100,
		Bypassed:    c.Bypassed(),
	}
	if s.Bypassed {
		s.Degradation = 0
	}
	return s
}

func clampLevel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
