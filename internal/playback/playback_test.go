package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/pateli18/clinicontact/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedSegment(speaker types.Speaker, start, end float64) types.SpeakerSegment {
	return types.SpeakerSegment{Speaker: speaker, Start: start, End: &end}
}

func TestActiveSegmentIndex(t *testing.T) {
	segments := []types.SpeakerSegment{
		closedSegment(types.SpeakerAssistant, 0, 2.5),
		closedSegment(types.SpeakerUser, 2.5, 4),
		{Speaker: types.SpeakerAssistant, Start: 6},
	}

	assert.Equal(t, 0, ActiveSegmentIndex(segments, 0))
	assert.Equal(t, 0, ActiveSegmentIndex(segments, 1.2))
	assert.Equal(t, 1, ActiveSegmentIndex(segments, 2.5))
	assert.Equal(t, 1, ActiveSegmentIndex(segments, 3.99))
	// gap between segments is silence
	assert.Equal(t, -1, ActiveSegmentIndex(segments, 5))
	// an open segment covers everything after its start
	assert.Equal(t, 2, ActiveSegmentIndex(segments, 6))
	assert.Equal(t, 2, ActiveSegmentIndex(segments, 500))
	assert.Equal(t, -1, ActiveSegmentIndex(segments, -1))
	assert.Equal(t, -1, ActiveSegmentIndex(nil, 1))
}

func TestHighlighterTracksTransitions(t *testing.T) {
	segments := []types.SpeakerSegment{
		closedSegment(types.SpeakerAssistant, 0, 1),
		closedSegment(types.SpeakerUser, 2, 3),
	}

	var mu sync.Mutex
	position := 0.5
	setPosition := func(p float64) {
		mu.Lock()
		position = p
		mu.Unlock()
	}

	var transitions []int
	var transitionsMu sync.Mutex
	highlighter := NewHighlighter(StaticSegments(segments), func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return position
	}, time.Millisecond, func(index int) {
		transitionsMu.Lock()
		transitions = append(transitions, index)
		transitionsMu.Unlock()
	})

	highlighter.Start()
	defer highlighter.Stop()

	require.Eventually(t, func() bool { return highlighter.Current() == 0 }, time.Second, time.Millisecond)

	setPosition(1.5)
	require.Eventually(t, func() bool { return highlighter.Current() == -1 }, time.Second, time.Millisecond)

	setPosition(2.5)
	require.Eventually(t, func() bool { return highlighter.Current() == 1 }, time.Second, time.Millisecond)

	highlighter.Stop()

	transitionsMu.Lock()
	defer transitionsMu.Unlock()
	assert.Equal(t, []int{0, -1, 1}, transitions)
}

func TestHighlighterSeesSegmentsAddedWhileRunning(t *testing.T) {
	var mu sync.Mutex
	var segments []types.SpeakerSegment
	appendSegment := func(segment types.SpeakerSegment) {
		mu.Lock()
		segments = append(segments, segment)
		mu.Unlock()
	}

	highlighter := NewHighlighter(func() []types.SpeakerSegment {
		mu.Lock()
		defer mu.Unlock()
		return segments
	}, func() float64 { return 1 }, time.Millisecond, nil)

	highlighter.Start()
	defer highlighter.Stop()

	require.Eventually(t, func() bool { return highlighter.Current() == -1 }, time.Second, time.Millisecond)

	// a live call keeps appending turns after playback starts
	appendSegment(closedSegment(types.SpeakerAssistant, 0, 0.5))
	appendSegment(types.SpeakerSegment{Speaker: types.SpeakerUser, Start: 0.5})

	require.Eventually(t, func() bool { return highlighter.Current() == 1 }, time.Second, time.Millisecond)
}

func TestHighlighterStartIsIdempotent(t *testing.T) {
	highlighter := NewHighlighter(StaticSegments(nil), func() float64 { return 0 }, time.Millisecond, nil)
	highlighter.Start()
	highlighter.Start()
	highlighter.Stop()
	highlighter.Stop()
	assert.Equal(t, -1, highlighter.Current())
}
