package audio

import "sync"

// ring is a fixed-size overwrite buffer for mono samples. The capture or
// playback callback writes into it; Snapshot hands the analyzer a rotated
// copy once per frame. Both live capture and WAV playback feed one of
// these, so the analyzer never cares where samples came from.
type ring struct {
	mu    sync.RWMutex
	data  []float32
	index int
}

func newRing(size int) *ring {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &ring{data: make([]float32, size)}
}

// Write appends samples, overwriting the oldest content once full. Inputs
// larger than the buffer keep only their tail.
func (r *ring) Write(in []float32) {
	if len(in) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(in) >= len(r.data) {
		copy(r.data, in[len(in)-len(r.data):])
		r.index = 0
		return
	}

	if r.index+len(in) <= len(r.data) {
		copy(r.data[r.index:], in)
		r.index += len(in)
		if r.index == len(r.data) {
			r.index = 0
		}
		return
	}

	head := len(r.data) - r.index
	copy(r.data[r.index:], in[:head])
	copy(r.data, in[head:])
	r.index = len(in) - head
}

// Snapshot returns the buffer contents oldest-first as a fresh slice.
func (r *ring) Snapshot() []float32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]float32, len(r.data))
	if r.index == 0 {
		copy(out, r.data)
		return out
	}
	n := copy(out, r.data[r.index:])
	copy(out[n:], r.data[:r.index])
	return out
}

// downmix averages interleaved multi-channel samples into mono. dst must
// hold len(src)/channels samples.
func downmix(dst, src []float32, channels int) {
	for i := range dst {
		base := i * channels
		sum := float32(0)
		for ch := 0; ch < channels; ch++ {
			sum += src[base+ch]
		}
		dst[i] = sum / float32(channels)
	}
}
