package audio

import (
	"context"
	"time"
)

// SampleReader fills out with samples and returns how many were real.
type SampleReader interface {
	Read(out []int16) int
}

// ReaderFunc adapts a function to SampleReader.
type ReaderFunc func(out []int16) int

func (f ReaderFunc) Read(out []int16) int { return f(out) }

// Playback pulls fixed-size frames from Source at real-time cadence and hands
// them to Sink. It stands in for a device callback.
type Playback struct {
	Source        SampleReader
	SampleRate    int
	FramesPerPull int
	// Sink receives each pulled frame. The slice is reused between calls.
	Sink func(frame []int16)
}

// Interval is the wall-clock time covered by one pull.
func (p *Playback) Interval() time.Duration {
	if p.SampleRate <= 0 || p.FramesPerPull <= 0 {
		return 0
	}
	return time.Duration(p.FramesPerPull) * time.Second / time.Duration(p.SampleRate)
}

// Run pulls until ctx is done.
func (p *Playback) Run(ctx context.Context) error {
	interval := p.Interval()
	if interval <= 0 || p.Source == nil {
		return errInvalidPlayback
	}
	frame := make([]int16, p.FramesPerPull)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Source.Read(frame)
			if p.Sink != nil {
				p.Sink(frame)
			}
		}
	}
}
