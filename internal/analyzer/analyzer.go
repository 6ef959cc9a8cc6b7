package analyzer

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Analyzer turns windows of mono samples into the renderer's feature
// snapshot. RMS is envelope-smoothed, peak is a decaying hold, the wobble
// phase is a free-running LFO, and crackle activity comes from a transient
// detector watching the upper band of the spectrum.
type Analyzer struct {
	sampleRate float64
	wobbleRate float64

	rmsEnv      float64
	peakHold    float64
	crackleEnv  float64
	crackleBase float64
	phase       float64

	buffer []complex128
	win    []float64
}

// Config controls Analyzer behavior.
type Config struct {
	SampleRate float64
	WobbleRate float64 // LFO cycles per second
}

// New creates an Analyzer with defaults matching a 44.1kHz capture.
func New(cfg Config) *Analyzer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44_100
	}
	if cfg.WobbleRate <= 0 {
		cfg.WobbleRate = 0.35
	}
	return &Analyzer{
		sampleRate: cfg.SampleRate,
		wobbleRate: cfg.WobbleRate,
	}
}

// Analyze consumes one window of mono samples plus the elapsed time since
// the previous window and returns the updated snapshot. Empty input decays
// the envelopes toward silence; the wobble phase advances either way.
func (a *Analyzer) Analyze(samples []float32, deltaTime float64) Features {
	if deltaTime > 0 {
		a.phase = math.Mod(a.phase+a.wobbleRate*deltaTime, 1.0)
	}

	if len(samples) == 0 {
		a.rmsEnv *= 0.9
		a.peakHold *= 0.88
		a.crackleEnv *= 0.8
		return a.snapshot()
	}

	sumSq := 0.0
	peak := 0.0
	for _, s := range samples {
		v := float64(s)
		sumSq += v * v
		if av := math.Abs(v); av > peak {
			peak = av
		}
	}
	rms := math.Sqrt(sumSq / float64(len(samples)))

	a.rmsEnv = envelope(a.rmsEnv, rms, 0.6, 0.92)
	if peak > a.peakHold {
		a.peakHold = peak
	} else {
		a.peakHold *= 0.88
	}

	high := a.highBandEnergy(samples)
	// Crackle pops read as short spikes well above the running band level.
	burst := high - a.crackleBase*1.8
	if burst < 0 {
		burst = 0
	}
	a.crackleBase = a.crackleBase*0.95 + high*0.05
	a.crackleEnv = envelope(a.crackleEnv, clamp(burst*8, 0, 1), 0.4, 0.85)

	return a.snapshot()
}

func (a *Analyzer) snapshot() Features {
	return Features{
		RMS:         clamp(a.rmsEnv, 0, 1),
		Peak:        clamp(a.peakHold, 0, 1),
		WobblePhase: a.phase,
		Crackle:     clamp(a.crackleEnv, 0, 1),
	}
}

// highBandEnergy measures the 3-11kHz content of the window, the region
// where vinyl-style crackle lives.
func (a *Analyzer) highBandEnergy(samples []float32) float64 {
	size := nextPow2(min(len(samples), 2048))
	if size < 256 {
		size = 256
	}
	a.ensureWorkspace(size)

	buffer := a.buffer[:size]
	win := a.win[:size]

	sampleCount := len(samples)
	for i := 0; i < size; i++ {
		if i < sampleCount {
			buffer[i] = complex(float64(samples[i])*win[i], 0)
			continue
		}
		buffer[i] = 0
	}

	spectrum := fft.FFT(buffer)
	resolution := a.sampleRate / float64(size)
	return bandEnergy(spectrum, resolution, 3_000, 11_000)
}

func bandEnergy(spectrum []complex128, resolution, minHz, maxHz float64) float64 {
	if minHz >= maxHz {
		return 0
	}
	lo := int(math.Floor(minHz / resolution))
	hi := int(math.Ceil(maxHz/resolution)) + 1
	if hi > len(spectrum)/2 {
		hi = len(spectrum) / 2
	}
	if lo >= hi {
		return 0
	}
	sum := 0.0
	for _, val := range spectrum[lo:hi] {
		sum += cmag(val)
	}
	normalized := sum / float64(hi-lo)
	if normalized > 1.0 {
		return 1.0
	}
	return normalized
}

func (a *Analyzer) ensureWorkspace(size int) {
	if len(a.buffer) != size {
		a.buffer = make([]complex128, size)
	}
	if len(a.win) != size {
		a.win = window.Hann(size)
	}
}

func cmag(c complex128) float64 {
	return math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
}

func envelope(current, input, attack, release float64) float64 {
	if input > current {
		return current*attack + input*(1-attack)
	}
	return current * release
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
