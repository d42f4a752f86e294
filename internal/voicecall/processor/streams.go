package processor

import (
	"sync"

	"github.com/pateli18/clinicontact/internal/types"

	"github.com/google/uuid"
)

const (
	audioStreamBuffer = 4096
	eventStreamBuffer = 256
)

// CallStreams receives the live outputs of one call and fans them out to
// the streaming endpoints. Each channel has a single consumer; chunks are
// dropped rather than blocking the call when a consumer falls behind.
type CallStreams struct {
	audio    chan []byte
	speaker  chan types.SpeakerEvent
	metadata chan types.MetadataEvent

	mu        sync.Mutex
	recording []byte

	closeOnce sync.Once
}

func NewCallStreams() *CallStreams {
	return &CallStreams{
		audio:    make(chan []byte, audioStreamBuffer),
		speaker:  make(chan types.SpeakerEvent, eventStreamBuffer),
		metadata: make(chan types.MetadataEvent, eventStreamBuffer),
	}
}

// Audio appends the chunk to the call recording and offers it to the live
// audio stream.
func (s *CallStreams) Audio(payload []byte) {
	s.mu.Lock()
	s.recording = append(s.recording, payload...)
	s.mu.Unlock()

	select {
	case s.audio <- payload:
	default:
	}
}

func (s *CallStreams) Speaker(event types.SpeakerEvent) {
	select {
	case s.speaker <- event:
	default:
	}
}

func (s *CallStreams) Metadata(event types.MetadataEvent) {
	select {
	case s.metadata <- event:
	default:
	}
}

// End terminates all streams exactly once. A call_end metadata event is
// offered before the metadata channel closes so consumers see a terminal
// record; if the buffer is full the close itself marks the end.
func (s *CallStreams) End() {
	s.closeOnce.Do(func() {
		select {
		case s.metadata <- types.MetadataEvent{Type: types.MetadataCallEnd}:
		default:
		}
		close(s.audio)
		close(s.speaker)
		close(s.metadata)
	})
}

// AudioStream returns the ordered audio chunks of the call.
func (s *CallStreams) AudioStream() <-chan []byte {
	return s.audio
}

// SpeakerStream returns speaker turn changes in call order.
func (s *CallStreams) SpeakerStream() <-chan types.SpeakerEvent {
	return s.speaker
}

// MetadataStream returns metadata updates, ending with a call_end event.
func (s *CallStreams) MetadataStream() <-chan types.MetadataEvent {
	return s.metadata
}

// Recording returns a copy of the audio accumulated so far.
func (s *CallStreams) Recording() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	recording := make([]byte, len(s.recording))
	copy(recording, s.recording)
	return recording
}

// StreamRegistry tracks the streams of in-flight calls by phone call id.
type StreamRegistry struct {
	mu      sync.Mutex
	streams map[uuid.UUID]*CallStreams
}

func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{
		streams: make(map[uuid.UUID]*CallStreams),
	}
}

// Register creates streams for a call. Registering the same id twice
// returns the existing streams.
func (r *StreamRegistry) Register(phoneCallID uuid.UUID) *CallStreams {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.streams[phoneCallID]; ok {
		return existing
	}
	streams := NewCallStreams()
	r.streams[phoneCallID] = streams
	return streams
}

// Get returns the streams for an in-flight call, or false if the call is
// not live.
func (r *StreamRegistry) Get(phoneCallID uuid.UUID) (*CallStreams, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	streams, ok := r.streams[phoneCallID]
	return streams, ok
}

// Unregister ends the call's streams and removes them from the registry.
func (r *StreamRegistry) Unregister(phoneCallID uuid.UUID) {
	r.mu.Lock()
	streams, ok := r.streams[phoneCallID]
	delete(r.streams, phoneCallID)
	r.mu.Unlock()
	if ok {
		streams.End()
	}
}
