package audio

import (
	"github.com/pateli18/clinicontact/internal/types"
)

// BarHeights buckets a mu-law recording into count normalized amplitude bars,
// attributing each bar to the speaker active at the bucket's midpoint. Used
// to build the waveform rendered next to a finalized transcript.
func BarHeights(mulaw []byte, count int, segments []types.SpeakerSegment) []types.BarHeight {
	if count <= 0 || len(mulaw) == 0 {
		return nil
	}
	if count > len(mulaw) {
		count = len(mulaw)
	}

	pcm := MuLawToPCM16(mulaw)
	bucketSize := len(pcm) / count

	heights := make([]float64, count)
	var max float64
	for i := 0; i < count; i++ {
		start := i * bucketSize
		end := start + bucketSize
		if i == count-1 {
			end = len(pcm)
		}

		var sum float64
		for _, sample := range pcm[start:end] {
			if sample < 0 {
				sum -= float64(sample)
			} else {
				sum += float64(sample)
			}
		}
		heights[i] = sum / float64(end-start)
		if heights[i] > max {
			max = heights[i]
		}
	}

	total := DurationSeconds(mulaw)
	bars := make([]types.BarHeight, count)
	for i := range heights {
		height := 0.0
		if max > 0 {
			height = heights[i] / max
		}
		midpoint := (float64(i) + 0.5) * total / float64(count)
		bars[i] = types.BarHeight{
			Height:  height,
			Speaker: speakerAt(segments, midpoint),
		}
	}
	return bars
}

// speakerAt returns the speaker of the segment containing t, falling back to
// the last segment started before t. Recordings open with the assistant.
func speakerAt(segments []types.SpeakerSegment, t float64) types.Speaker {
	speaker := types.SpeakerAssistant
	for _, segment := range segments {
		if segment.Start > t {
			break
		}
		speaker = segment.Speaker
	}
	return speaker
}
