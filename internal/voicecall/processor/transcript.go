package processor

import (
	"context"
	"errors"
	"os"

	"github.com/pateli18/clinicontact/internal/apierrors"
	"github.com/pateli18/clinicontact/internal/store"
	"github.com/pateli18/clinicontact/internal/types"
	"github.com/pateli18/clinicontact/internal/voice/audio"

	"github.com/google/uuid"
)

// barHeightCount is how many amplitude buckets the transcript waveform
// renders with.
const barHeightCount = 200

// Transcript builds the finalized view of a completed call from the stored
// segments and the on-disk recording.
func (p *VoiceCallProcessor) Transcript(ctx context.Context, phoneCallID uuid.UUID) (types.Transcript, error) {
	call, err := p.store.GetPhoneCall(ctx, phoneCallID)
	if errors.Is(err, store.ErrNotFound) {
		return types.Transcript{}, apierrors.New(404, apierrors.CodeNotFound, "phone call not found")
	}
	if err != nil {
		return types.Transcript{}, err
	}
	if len(call.SpeakerSegments) == 0 {
		return types.Transcript{}, apierrors.New(404, apierrors.CodeNotFound, "call has no transcript yet")
	}

	segments := []types.SpeakerSegment(call.SpeakerSegments)
	transcript := types.Transcript{
		SpeakerSegments: segments,
	}

	recording, err := os.ReadFile(p.RecordingPath(phoneCallID))
	if err != nil {
		// segments survive even when the recording is gone
		p.logger.Error(ctx, "failed to read call recording", err)
		if n := len(segments); n > 0 && segments[n-1].End != nil {
			transcript.TotalDuration = *segments[n-1].End
		}
		return transcript, nil
	}

	transcript.TotalDuration = audio.DurationSeconds(recording)
	transcript.BarHeights = audio.BarHeights(recording, barHeightCount, segments)
	return transcript, nil
}

// Recording returns the raw mulaw recording of a completed call.
func (p *VoiceCallProcessor) Recording(ctx context.Context, phoneCallID uuid.UUID) ([]byte, error) {
	if _, err := p.store.GetPhoneCall(ctx, phoneCallID); errors.Is(err, store.ErrNotFound) {
		return nil, apierrors.New(404, apierrors.CodeNotFound, "phone call not found")
	} else if err != nil {
		return nil, err
	}

	recording, err := os.ReadFile(p.RecordingPath(phoneCallID))
	if err != nil {
		return nil, apierrors.New(404, apierrors.CodeNotFound, "recording not available")
	}
	return recording, nil
}
