package callsession

import (
	"context"
	"errors"
	"sync"

	"github.com/pateli18/clinicontact/internal/observability"
	"github.com/pateli18/clinicontact/internal/types"

	"github.com/google/uuid"
)

// SpeakerStream is a lazy sequence of speaker turn changes. Any error,
// including a clean end of stream, terminates the sequence.
type SpeakerStream interface {
	Next() (types.SpeakerEvent, error)
	Close() error
}

// PhoneAPI is the backend surface the phone mode needs.
type PhoneAPI interface {
	StartOutboundCall(ctx context.Context, phoneNumber string, agentID uuid.UUID, userInfo map[string]string) (uuid.UUID, error)
	HangUp(ctx context.Context, phoneCallID uuid.UUID) error
	StreamSpeaker(ctx context.Context, phoneCallID uuid.UUID) (SpeakerStream, error)
	StreamAudioURL(phoneCallID uuid.UUID) string
}

// ErrNoActiveCall is returned when a hang up arrives with no call placed.
var ErrNoActiveCall = errors.New("no call in progress")

// AudioSink is the shared audio output whose source the live call drives.
type AudioSink interface {
	SetSource(url string)
	ClearSource()
}

// PhoneController drives the server-mediated call lifecycle:
// idle, placing, in-progress, ending, idle.
type PhoneController struct {
	api      PhoneAPI
	audio    AudioSink
	notifier Notifier
	logger   *observability.Logger

	mu       sync.Mutex
	state    State
	callID   uuid.UUID
	persona  map[string]string
	segments SegmentBuffer
}

func NewPhoneController(api PhoneAPI, audio AudioSink, notifier Notifier, logger *observability.Logger) *PhoneController {
	return &PhoneController{
		api:      api,
		audio:    audio,
		notifier: notifier,
		logger:   logger,
		state:    StateIdle,
	}
}

// PlaceCall validates the number, places the call, points the audio sink
// at the live stream, and starts consuming speaker events. The persona is
// frozen for the call's duration.
func (c *PhoneController) PlaceCall(ctx context.Context, phoneNumber string, agentID uuid.UUID, persona map[string]string) (uuid.UUID, error) {
	if err := types.ValidatePhoneNumber(phoneNumber); err != nil {
		return uuid.Nil, err
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return uuid.Nil, ErrSessionBusy
	}
	c.state = StatePlacing
	c.mu.Unlock()

	callID, err := c.api.StartOutboundCall(ctx, phoneNumber, agentID, persona)
	if err != nil {
		c.reset()
		c.logger.Error(ctx, "failed to place call", err)
		c.notifier.NotifyError("Could not place the call")
		return uuid.Nil, err
	}

	c.audio.SetSource(c.api.StreamAudioURL(callID))

	stream, err := c.api.StreamSpeaker(ctx, callID)
	if err != nil {
		c.audio.ClearSource()
		c.reset()
		c.logger.Error(ctx, "failed to open speaker stream", err)
		c.notifier.NotifyError("Could not follow the call")
		return uuid.Nil, err
	}

	c.mu.Lock()
	c.state = StateInProgress
	c.callID = callID
	c.persona = persona
	c.mu.Unlock()

	go c.consume(stream)
	return callID, nil
}

// consume appends streamed speaker events until the stream ends for any
// reason, then resets the controller to idle with an empty buffer.
func (c *PhoneController) consume(stream SpeakerStream) {
	for {
		event, err := stream.Next()
		if err != nil {
			break
		}
		c.mu.Lock()
		c.segments.Append(event)
		c.mu.Unlock()
	}
	stream.Close()
	c.audio.ClearSource()
	c.reset()
}

// HangUp asks the backend to end the call. Stream consumption keeps
// running until the server closes the stream.
func (c *PhoneController) HangUp(ctx context.Context) error {
	c.mu.Lock()
	callID := c.callID
	c.mu.Unlock()
	if callID == uuid.Nil {
		return ErrNoActiveCall
	}

	if err := c.api.HangUp(ctx, callID); err != nil {
		c.logger.Error(ctx, "failed to hang up", err)
		c.notifier.NotifyError("Could not hang up the call")
		return err
	}

	c.mu.Lock()
	if c.state == StateInProgress {
		c.state = StateEnding
	}
	c.mu.Unlock()
	c.notifier.Notify("Hanging up the call")
	return nil
}

func (c *PhoneController) reset() {
	c.mu.Lock()
	c.state = StateIdle
	c.callID = uuid.Nil
	c.persona = nil
	c.segments.Reset()
	c.mu.Unlock()
}

// State returns the current lifecycle state.
func (c *PhoneController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CallID returns the live call id, or uuid.Nil when idle.
func (c *PhoneController) CallID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callID
}

// Segments returns a copy of the segments derived so far.
func (c *PhoneController) Segments() []types.SpeakerSegment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.segments.Segments()
}

// SegmentBuffer derives speaker segments from a stream of point-in-time
// speaker-change events: each event closes the previous open segment and
// opens a new one.
type SegmentBuffer struct {
	segments []types.SpeakerSegment
}

func (b *SegmentBuffer) Append(event types.SpeakerEvent) {
	if n := len(b.segments); n > 0 && b.segments[n-1].End == nil {
		end := event.Timestamp
		b.segments[n-1].End = &end
	}
	b.segments = append(b.segments, types.SpeakerSegment{
		Speaker: event.Speaker,
		Start:   event.Timestamp,
	})
}

func (b *SegmentBuffer) Segments() []types.SpeakerSegment {
	segments := make([]types.SpeakerSegment, len(b.segments))
	copy(segments, b.segments)
	return segments
}

func (b *SegmentBuffer) Len() int {
	return len(b.segments)
}

func (b *SegmentBuffer) Reset() {
	b.segments = nil
}
