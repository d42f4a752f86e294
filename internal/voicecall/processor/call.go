package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pateli18/clinicontact/internal/clients/openai"
	"github.com/pateli18/clinicontact/internal/store"
	twiliostream "github.com/pateli18/clinicontact/internal/voicecall/twilio"

	"github.com/google/uuid"
)

// HandleMediaStream bridges one carrier media stream to the realtime model
// and persists the call results once either side ends. It blocks for the
// duration of the call.
func (p *VoiceCallProcessor) HandleMediaStream(ctx context.Context, stream *twiliostream.MediaStream, phoneCallID uuid.UUID) error {
	call, err := p.store.GetPhoneCall(ctx, phoneCallID)
	if err != nil {
		return fmt.Errorf("failed to load phone call: %w", err)
	}
	agent, err := p.store.GetAgent(ctx, call.AgentID)
	if err != nil {
		return fmt.Errorf("failed to load agent: %w", err)
	}

	streams := p.registry.Register(phoneCallID)
	defer p.registry.Unregister(phoneCallID)

	caller, err := openai.NewCaller(ctx, p.openAIKey, openai.CallerConfig{
		Instructions:      BuildInstructions(agent.SystemMessage, call.InputData),
		Format:            openai.AudioFormatG711ULaw,
		IncludeHangUpTool: true,
		Sink:              streams,
		Logger:            p.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start realtime session: %w", err)
	}

	router := NewCallRouter(caller, p.logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		router.SendToHuman(ctx, stream)
	}()
	router.ReceiveFromHuman(ctx, stream)
	<-done

	if router.HangUpRequested() && call.CallSID.Valid {
		if err := p.twilioClient.EndCall(ctx, call.CallSID.String); err != nil {
			p.logger.Error(ctx, "failed to complete call after hang up", err)
		}
	}

	return p.finishCall(ctx, phoneCallID, caller, streams)
}

// finishCall closes any open speaker segment, writes the recording and
// event log to disk, and records the results on the phone call row.
func (p *VoiceCallProcessor) finishCall(ctx context.Context, phoneCallID uuid.UUID, caller *openai.Caller, streams *CallStreams) error {
	segments := caller.Segments()
	totalDuration := float64(caller.ElapsedMs()) / 1000
	for i := range segments {
		if segments[i].End == nil {
			end := totalDuration
			if i+1 < len(segments) {
				end = segments[i+1].Start
			}
			segments[i].End = &end
		}
	}

	callData, err := p.persistCallData(phoneCallID, streams.Recording(), caller.EventLog())
	if err != nil {
		p.logger.Error(ctx, "failed to persist call data", err)
	}

	if err := p.store.UpdatePhoneCallResults(ctx, phoneCallID, callData, store.SpeakerSegments(segments)); err != nil {
		return err
	}
	p.logger.Info(ctx, fmt.Sprintf("Finished call %s: %d segments, %.1fs", phoneCallID, len(segments), totalDuration))
	return nil
}

// persistCallData writes the mulaw recording and the raw event log under
// the recording directory and returns the event log path.
func (p *VoiceCallProcessor) persistCallData(phoneCallID uuid.UUID, recording []byte, eventLog []json.RawMessage) (string, error) {
	if err := os.MkdirAll(p.recordingDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recording directory: %w", err)
	}

	recordingPath := p.RecordingPath(phoneCallID)
	if err := os.WriteFile(recordingPath, recording, 0o644); err != nil {
		return "", fmt.Errorf("failed to write recording: %w", err)
	}

	events, err := json.Marshal(eventLog)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event log: %w", err)
	}
	eventLogPath := filepath.Join(p.recordingDir, phoneCallID.String()+".json")
	if err := os.WriteFile(eventLogPath, events, 0o644); err != nil {
		return "", fmt.Errorf("failed to write event log: %w", err)
	}
	return eventLogPath, nil
}

// RecordingPath is where a call's raw mulaw recording lives on disk.
func (p *VoiceCallProcessor) RecordingPath(phoneCallID uuid.UUID) string {
	return filepath.Join(p.recordingDir, phoneCallID.String()+".ulaw")
}
