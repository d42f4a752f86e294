package audio

import (
	"testing"

	"github.com/pateli18/clinicontact/internal/types"
)

func TestMuLawRoundTrip(t *testing.T) {
	samples := []int16{0, 128, -128, 1024, -1024, 8000, -8000, 32000, -32000}

	encoded := PCM16ToMuLaw(samples)
	decoded := MuLawToPCM16(encoded)

	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}
	for i, original := range samples {
		diff := int32(decoded[i]) - int32(original)
		if diff < 0 {
			diff = -diff
		}
		// mu-law is lossy; error grows with amplitude but stays within the
		// step size of the encoded segment
		limit := int32(original) / 16
		if limit < 0 {
			limit = -limit
		}
		if limit < 32 {
			limit = 32
		}
		if diff > limit {
			t.Errorf("sample %d: original %d decoded %d (diff %d > %d)", i, original, decoded[i], diff, limit)
		}
	}
}

func TestDurationSeconds(t *testing.T) {
	// 8000 mu-law bytes at 8kHz is one second
	if got := DurationSeconds(make([]byte, 8000)); got != 1.0 {
		t.Errorf("expected 1.0, got %f", got)
	}
	if got := DurationSeconds(make([]byte, 4000)); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestBarHeights(t *testing.T) {
	// One second of audio: silent first half, loud second half
	pcm := make([]int16, 8000)
	for i := 4000; i < 8000; i++ {
		pcm[i] = 16000
	}
	mulaw := PCM16ToMuLaw(pcm)

	end := 0.5
	segments := []types.SpeakerSegment{
		{Speaker: types.SpeakerAssistant, Start: 0, End: &end},
		{Speaker: types.SpeakerUser, Start: 0.5},
	}

	bars := BarHeights(mulaw, 4, segments)
	if len(bars) != 4 {
		t.Fatalf("expected 4 bars, got %d", len(bars))
	}

	if bars[0].Height > 0.1 || bars[1].Height > 0.1 {
		t.Errorf("expected silent first half, got %f %f", bars[0].Height, bars[1].Height)
	}
	if bars[2].Height < 0.9 || bars[3].Height < 0.9 {
		t.Errorf("expected loud second half, got %f %f", bars[2].Height, bars[3].Height)
	}

	if bars[0].Speaker != types.SpeakerAssistant || bars[1].Speaker != types.SpeakerAssistant {
		t.Errorf("expected assistant bars in first half")
	}
	if bars[2].Speaker != types.SpeakerUser || bars[3].Speaker != types.SpeakerUser {
		t.Errorf("expected user bars in second half")
	}
}

func TestBarHeightsEmpty(t *testing.T) {
	if bars := BarHeights(nil, 10, nil); bars != nil {
		t.Errorf("expected nil for empty input, got %v", bars)
	}
	if bars := BarHeights(make([]byte, 100), 0, nil); bars != nil {
		t.Errorf("expected nil for zero count, got %v", bars)
	}
}
