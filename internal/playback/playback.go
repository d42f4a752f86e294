// Package playback maps a moving audio position onto the speaker
// segments of a transcript so the console can highlight whoever is
// talking.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/pateli18/clinicontact/internal/types"
)

// ActiveSegmentIndex returns the index of the segment playing at
// position seconds, or -1 when no segment covers it. A segment with a
// nil end is still open and covers everything after its start.
func ActiveSegmentIndex(segments []types.SpeakerSegment, position float64) int {
	for i, segment := range segments {
		if position < segment.Start {
			continue
		}
		if segment.End == nil || position < *segment.End {
			return i
		}
	}
	return -1
}

// PositionFunc reports the current playback position in seconds.
type PositionFunc func() float64

// SegmentsFunc reports the speaker segments known so far. It is called
// on every poll so a list that is still accumulating during a live call
// is picked up as it grows.
type SegmentsFunc func() []types.SpeakerSegment

// StaticSegments wraps an already complete segment list as a
// SegmentsFunc.
func StaticSegments(segments []types.SpeakerSegment) SegmentsFunc {
	return func() []types.SpeakerSegment { return segments }
}

// Highlighter polls the playback position and fires OnChange whenever
// the active segment changes, including transitions to and from silence.
type Highlighter struct {
	segments SegmentsFunc
	position PositionFunc
	interval time.Duration
	onChange func(index int)

	mu      sync.Mutex
	current int
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHighlighter(segments SegmentsFunc, position PositionFunc, interval time.Duration, onChange func(index int)) *Highlighter {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Highlighter{
		segments: segments,
		position: position,
		interval: interval,
		onChange: onChange,
		current:  -1,
	}
}

// Start begins polling. It is a no-op when the highlighter is already
// running.
func (h *Highlighter) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.poll(ctx, h.done)
}

// Stop halts polling and waits for the poll loop to exit.
func (h *Highlighter) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	done := h.done
	h.cancel = nil
	h.done = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Current returns the index of the segment highlighted right now, -1
// during silence.
func (h *Highlighter) Current() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *Highlighter) poll(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.tick()
		}
	}
}

func (h *Highlighter) tick() {
	index := ActiveSegmentIndex(h.segments(), h.position())
	h.mu.Lock()
	changed := index != h.current
	h.current = index
	h.mu.Unlock()
	if changed && h.onChange != nil {
		h.onChange(index)
	}
}
