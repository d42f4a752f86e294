package processor

import (
	"context"

	"github.com/pateli18/clinicontact/internal/observability"
	"github.com/pateli18/clinicontact/internal/store"

	"github.com/google/uuid"
)

// VoiceCallStore defines the database operations required by VoiceCallProcessor
type VoiceCallStore interface {
	CreatePhoneCall(ctx context.Context, params store.CreatePhoneCallParams) (store.PhoneCall, error)
	GetPhoneCall(ctx context.Context, id uuid.UUID) (store.PhoneCall, error)
	GetPhoneCalls(ctx context.Context) ([]store.PhoneCall, error)
	SetPhoneCallSID(ctx context.Context, id uuid.UUID, callSID string) error
	UpdatePhoneCallResults(ctx context.Context, id uuid.UUID, callData string, segments store.SpeakerSegments) error
	InsertPhoneCallEvent(ctx context.Context, phoneCallID uuid.UUID, payload store.JSONB) error
	GetPhoneCallEvents(ctx context.Context, phoneCallID uuid.UUID) ([]store.PhoneCallEvent, error)
	GetAgent(ctx context.Context, id uuid.UUID) (store.Agent, error)
}

// CallPlacer defines the carrier operations required by VoiceCallProcessor
type CallPlacer interface {
	FromNumber() string
	PlaceCall(ctx context.Context, toNumber, answerURL, statusCallbackURL string) (string, error)
	EndCall(ctx context.Context, callSID string) error
}

// VoiceCallProcessor owns the outbound call lifecycle: placing calls
// through the carrier, bridging live audio to the realtime model, and
// persisting the results.
type VoiceCallProcessor struct {
	store        VoiceCallStore
	twilioClient CallPlacer
	registry     *StreamRegistry
	openAIKey    string
	publicHost   string
	recordingDir string
	logger       *observability.Logger
}

func New(voiceStore VoiceCallStore, twilioClient CallPlacer, openAIKey, publicHost, recordingDir string, logger *observability.Logger) *VoiceCallProcessor {
	return &VoiceCallProcessor{
		store:        voiceStore,
		twilioClient: twilioClient,
		registry:     NewStreamRegistry(),
		openAIKey:    openAIKey,
		publicHost:   publicHost,
		recordingDir: recordingDir,
		logger:       logger,
	}
}

// Streams returns the live streams for a call, or false if the call is not
// in flight.
func (p *VoiceCallProcessor) Streams(phoneCallID uuid.UUID) (*CallStreams, bool) {
	return p.registry.Get(phoneCallID)
}
