package audio

import (
	"sync"
)

// DefaultPrerollFloor is the minimum number of samples buffered before
// playback starts, whatever the pull size.
const DefaultPrerollFloor = 240

// JitterOptions tunes a JitterBuffer. The zero value gives the default floor
// and an unbounded buffer.
type JitterOptions struct {
	// PrerollFloor overrides DefaultPrerollFloor when positive.
	PrerollFloor int
	// MaxSamples caps the buffered depth; the oldest samples are dropped
	// when exceeded. Zero means unbounded.
	MaxSamples int
	// OnUnderrun is called when playback runs dry.
	OnUnderrun func()
	// OnStart is called when pre-roll completes.
	OnStart func()
	// OnDrop is called with the number of samples discarded by the
	// MaxSamples cap.
	OnDrop func(n int)
	// Hooks run after the buffer lock is released and may call back into
	// the buffer.
}

// JitterBuffer decouples bursty network audio from a fixed-cadence playback
// clock. Write appends samples; Read fills the caller's buffer, emitting
// silence while pre-rolling or after an underrun.
type JitterBuffer struct {
	mu      sync.Mutex
	samples []int16
	playing bool
	opts    JitterOptions
}

func NewJitterBuffer(opts JitterOptions) *JitterBuffer {
	if opts.PrerollFloor <= 0 {
		opts.PrerollFloor = DefaultPrerollFloor
	}
	return &JitterBuffer{opts: opts}
}

// Write appends samples in arrival order.
func (b *JitterBuffer) Write(samples []int16) {
	if len(samples) == 0 {
		return
	}
	b.mu.Lock()
	dropped := 0
	b.samples = append(b.samples, samples...)
	if limit := b.opts.MaxSamples; limit > 0 && len(b.samples) > limit {
		dropped = len(b.samples) - limit
		b.samples = append(b.samples[:0], b.samples[dropped:]...)
	}
	b.mu.Unlock()

	if dropped > 0 && b.opts.OnDrop != nil {
		b.opts.OnDrop(dropped)
	}
}

// Read fills out completely and returns the number of real (non-silence)
// samples copied.
func (b *JitterBuffer) Read(out []int16) int {
	copied, started, underrun := b.read(out)
	if started && b.opts.OnStart != nil {
		b.opts.OnStart()
	}
	if underrun && b.opts.OnUnderrun != nil {
		b.opts.OnUnderrun()
	}
	return copied
}

func (b *JitterBuffer) read(out []int16) (copied int, started, underrun bool) {
	n := len(out)
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.playing {
		if len(b.samples) < max(2*n, b.opts.PrerollFloor) {
			clear(out)
			return 0, false, false
		}
		b.playing = true
		started = true
	}

	copied = copy(out, b.samples)
	b.samples = b.samples[copied:]
	if copied < n {
		clear(out[copied:])
		b.playing = false
		underrun = true
	}
	return copied, started, underrun
}

// Len returns the number of buffered samples.
func (b *JitterBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Playing reports whether the buffer is past pre-roll.
func (b *JitterBuffer) Playing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.playing
}

// Reset drops all buffered audio and returns to pre-roll.
func (b *JitterBuffer) Reset() {
	b.mu.Lock()
	b.samples = nil
	b.playing = false
	b.mu.Unlock()
}
