package analyzer

// Features is the per-tick audio snapshot consumed by the renderer: smoothed
// signal level, decaying peak hold, tape-wobble LFO phase and crackle
// activity. The zero value means silence. WobblePhase stays in [0,1).
type Features struct {
	RMS         float64
	Peak        float64
	WobblePhase float64
	Crackle     float64
}

// Source supplies the most recent Features. The render loop calls Latest
// exactly once per tick from its own goroutine; a stale value just renders
// one frame behind.
type Source interface {
	Latest() Features
}

// Silence is a Source that always reports zero features.
type Silence struct{}

// Latest returns the zero snapshot.
func (Silence) Latest() Features { return Features{} }

// Gate applies a noise floor to the level-like fields so an idle input
// renders a still frame. WobblePhase passes through untouched.
func Gate(f Features, floor float64) Features {
	if floor <= 0 {
		return f
	}
	gate := func(v float64) float64 {
		if v <= floor {
			return 0
		}
		return clampFloat((v-floor)/(1.0-floor), 0, 1)
	}

	f.RMS = gate(f.RMS)
	f.Peak = gate(f.Peak)
	f.Crackle = gate(f.Crackle)
	return f
}

func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
