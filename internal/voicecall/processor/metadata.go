package processor

import (
	"context"
	"os"
	"strconv"

	"github.com/pateli18/clinicontact/internal/store"
	"github.com/pateli18/clinicontact/internal/types"
)

// callStatus derives the current lifecycle status from the carrier's
// status callbacks. Callbacks can arrive out of order, so the payload with
// the highest sequence number wins.
func callStatus(events []store.PhoneCallEvent) (types.PhoneCallStatus, *int) {
	status := types.PhoneCallQueued
	var duration *int
	bestSequence := -1

	for _, event := range events {
		sequence := 0
		if raw, ok := event.Payload["SequenceNumber"].(string); ok {
			if parsed, err := strconv.Atoi(raw); err == nil {
				sequence = parsed
			}
		}
		if sequence <= bestSequence {
			continue
		}
		raw, ok := event.Payload["CallStatus"].(string)
		if !ok {
			continue
		}
		bestSequence = sequence
		status = types.PhoneCallStatus(raw)
		if seconds, ok := event.Payload["CallDuration"].(string); ok {
			if parsed, err := strconv.Atoi(seconds); err == nil {
				duration = &parsed
			}
		}
	}
	return status, duration
}

// ListCalls returns the metadata listing of all calls, newest first.
func (p *VoiceCallProcessor) ListCalls(ctx context.Context) ([]types.PhoneCallMetadata, error) {
	calls, err := p.store.GetPhoneCalls(ctx)
	if err != nil {
		return nil, err
	}

	metadata := make([]types.PhoneCallMetadata, 0, len(calls))
	for _, call := range calls {
		events, err := p.store.GetPhoneCallEvents(ctx, call.ID)
		if err != nil {
			return nil, err
		}
		status, duration := callStatus(events)

		_, statErr := os.Stat(p.RecordingPath(call.ID))
		metadata = append(metadata, types.PhoneCallMetadata{
			ID:                 call.ID,
			FromPhoneNumber:    call.FromPhoneNumber,
			ToPhoneNumber:      call.ToPhoneNumber,
			InputData:          call.InputData,
			Status:             status,
			CreatedAt:          call.CreatedAt,
			Duration:           duration,
			RecordingAvailable: statErr == nil,
		})
	}
	return metadata, nil
}
