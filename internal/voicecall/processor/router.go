package processor

import (
	"context"
	"fmt"
	"sync"

	"github.com/pateli18/clinicontact/internal/clients/openai"
	"github.com/pateli18/clinicontact/internal/observability"
	twiliostream "github.com/pateli18/clinicontact/internal/voicecall/twilio"
)

// realtimeCall is the slice of the realtime caller the router drives.
type realtimeCall interface {
	Next(ctx context.Context) (openai.ServerEvent, error)
	SendAudio(payload string) error
	TruncateMessage(itemID string, audioEndMs int) error
	Close() error
}

// mediaStream is the slice of the carrier media stream the router drives.
type mediaStream interface {
	ReadEvent(ctx context.Context) (twiliostream.MediaEvent, error)
	SendMedia(payload string) error
	SendMark(name string) error
	SendClear() error
}

// CallRouter shuttles audio between the carrier media stream and the
// realtime model. It tracks how much of the current model response the
// caller has actually heard (via mark events) so barge-in can truncate the
// response at the right point, and drains remaining audio before honoring
// a model-requested hang up.
type CallRouter struct {
	caller realtimeCall
	logger *observability.Logger

	mu               sync.Mutex
	lastAIItemID     string
	markQueue        []int
	markQueueElapsed int
	hangUpRequested  bool
}

func NewCallRouter(caller realtimeCall, logger *observability.Logger) *CallRouter {
	return &CallRouter{
		caller: caller,
		logger: logger,
	}
}

// SendToHuman consumes model events and forwards audio to the caller. It
// returns when the realtime connection closes.
func (r *CallRouter) SendToHuman(ctx context.Context, stream mediaStream) {
	defer r.caller.Close()

	for {
		event, err := r.caller.Next(ctx)
		if err != nil {
			return
		}

		switch event.Type {
		case openai.EventFunctionCallDone:
			if event.Name == openai.FunctionHangUp {
				r.mu.Lock()
				r.hangUpRequested = true
				r.mu.Unlock()
				r.logger.Info(ctx, "Hang up requested by agent")
			}

		case openai.EventAudioDelta:
			if err := stream.SendMedia(event.Delta); err != nil {
				r.logger.Error(ctx, "failed to send audio to caller", err)
				return
			}

			r.mu.Lock()
			if r.lastAIItemID == "" {
				r.lastAIItemID = event.ItemID
				r.markQueueElapsed = 0
				r.markQueue = nil
			}
			r.markQueue = append(r.markQueue, event.AudioMs)
			r.mu.Unlock()

			if err := stream.SendMark("responsePart"); err != nil {
				r.logger.Error(ctx, "failed to send mark to caller", err)
				return
			}

		case openai.EventSpeechStarted:
			r.handleSpeechStarted(ctx, stream)
		}
	}
}

// handleSpeechStarted handles the caller interrupting the model: the
// partially-played response is truncated at the heard position and the
// carrier's playback buffer is cleared.
func (r *CallRouter) handleSpeechStarted(ctx context.Context, stream mediaStream) {
	r.mu.Lock()
	itemID := r.lastAIItemID
	elapsed := r.markQueueElapsed
	pending := len(r.markQueue)
	r.markQueue = nil
	r.lastAIItemID = ""
	r.markQueueElapsed = 0
	r.mu.Unlock()

	if pending == 0 {
		return
	}
	if itemID != "" {
		if err := r.caller.TruncateMessage(itemID, elapsed); err != nil {
			r.logger.Error(ctx, "failed to truncate interrupted response", err)
		}
	}
	if err := stream.SendClear(); err != nil {
		r.logger.Error(ctx, "failed to clear caller playback buffer", err)
	}
}

// ReceiveFromHuman consumes carrier events and forwards caller audio to
// the model. It returns when the stream ends, or once a requested hang up
// has finished playing out.
func (r *CallRouter) ReceiveFromHuman(ctx context.Context, stream mediaStream) {
	defer r.caller.Close()

	for {
		event, err := stream.ReadEvent(ctx)
		if err != nil {
			return
		}

		switch event.Event {
		case "media":
			if err := r.caller.SendAudio(event.Media.Payload); err != nil {
				r.logger.Error(ctx, "failed to forward caller audio", err)
				return
			}

		case "start":
			r.mu.Lock()
			r.lastAIItemID = ""
			r.markQueueElapsed = 0
			r.markQueue = nil
			r.mu.Unlock()

		case "mark":
			r.mu.Lock()
			if len(r.markQueue) > 0 {
				r.markQueueElapsed += r.markQueue[0]
				r.markQueue = r.markQueue[1:]
			}
			drained := r.hangUpRequested && len(r.markQueue) == 0
			r.mu.Unlock()
			if drained {
				r.logger.Info(ctx, "Hang up requested and all media played")
				return
			}

		case "stop":
			r.logger.Info(ctx, "Media stream stopped")
			return

		default:
			r.logger.Debug(ctx, fmt.Sprintf("Unknown media stream event: %s", event.Event))
		}
	}
}

// HangUpRequested reports whether the model asked to end the call.
func (r *CallRouter) HangUpRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hangUpRequested
}
