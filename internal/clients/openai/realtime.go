package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/pateli18/clinicontact/internal/observability"
	"github.com/pateli18/clinicontact/internal/types"
	"github.com/pateli18/clinicontact/internal/voice/audio"

	"github.com/gorilla/websocket"
)

const realtimeURL = "wss://api.openai.com/v1/realtime"

// Sink receives the live outputs of a realtime call: decoded audio in
// playback order, speaker turn changes, and metadata updates. All methods
// are invoked from the caller's read loop.
type Sink interface {
	Audio(payload []byte)
	Speaker(event types.SpeakerEvent)
	Metadata(event types.MetadataEvent)
	End()
}

// CallerConfig configures a realtime speech session.
type CallerConfig struct {
	Instructions      string
	Format            AudioFormat
	IncludeHangUpTool bool
	Sink              Sink
	Logger            *observability.Logger
}

type bufferedAudio struct {
	payload      string
	ms           int
	cumulativeMs int
}

// Caller is a live session against the realtime speech endpoint. It owns
// the websocket connection, tracks speaker segments from server events, and
// accumulates the raw event log in arrival order.
type Caller struct {
	conn   *websocket.Conn
	logger *observability.Logger
	sink   Sink

	config       SessionConfiguration
	samplingRate int

	writeMu sync.Mutex

	mu            sync.Mutex
	segments      []types.SpeakerSegment
	eventLog      []json.RawMessage
	totalBufferMs int
	inputBufferMs int
	inputBuffer   []bufferedAudio
	userSpeaking  bool

	closeOnce sync.Once
	closeErr  error
}

// NewCaller dials the realtime endpoint and initializes the session.
func NewCaller(ctx context.Context, apiKey string, cfg CallerConfig) (*Caller, error) {
	config := DefaultSessionConfiguration(cfg.Instructions, cfg.Format, cfg.IncludeHangUpTool)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+apiKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, fmt.Sprintf("%s?model=%s", realtimeURL, RealtimeModel), headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to realtime endpoint: %w", err)
	}

	samplingRate := 8000
	if config.InputAudioFormat == AudioFormatPCM16 {
		samplingRate = 24000
	}

	c := &Caller{
		conn:         conn,
		logger:       cfg.Logger,
		sink:         cfg.Sink,
		config:       config,
		samplingRate: samplingRate,
	}
	if config.TurnDetection != nil {
		c.inputBufferMs = config.TurnDetection.PrefixPaddingMs
	}

	if err := c.sendJSON(map[string]interface{}{
		"type":    "session.update",
		"session": config,
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	return c, nil
}

func (c *Caller) sendJSON(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime message: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// audioMs returns the play time of a base64 payload under the session's
// audio format.
func (c *Caller) audioMs(payload string) int {
	raw, err := audio.Base64ToBytes(payload)
	if err != nil {
		return 0
	}
	samples := len(raw)
	if c.config.InputAudioFormat == AudioFormatPCM16 {
		samples = len(raw) / 2
	}
	return samples * 1000 / c.samplingRate
}

// SendAudio forwards one base64 chunk of human audio to the model. While the
// user is speaking the chunk also flows to the sink; otherwise it is held in
// the VAD prefix buffer and replayed once speech is detected.
func (c *Caller) SendAudio(payload string) error {
	if err := c.sendJSON(map[string]interface{}{
		"type":  "input_audio_buffer.append",
		"audio": payload,
	}); err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}

	ms := c.audioMs(payload)

	c.mu.Lock()
	c.inputBufferMs += ms
	if c.userSpeaking {
		c.totalBufferMs += ms
		c.mu.Unlock()
		c.emitAudio(payload)
		return nil
	}
	c.inputBuffer = append(c.inputBuffer, bufferedAudio{payload: payload, ms: ms, cumulativeMs: c.inputBufferMs})
	c.mu.Unlock()
	return nil
}

// TruncateMessage cuts off a partially-played assistant item after the user
// barged in.
func (c *Caller) TruncateMessage(itemID string, audioEndMs int) error {
	return c.sendJSON(map[string]interface{}{
		"type":          "conversation.item.truncate",
		"item_id":       itemID,
		"content_index": 0,
		"audio_end_ms":  audioEndMs,
	})
}

// Next reads and processes the next server event. It returns an error once
// the connection closes; callers should treat any error as end of session.
func (c *Caller) Next(ctx context.Context) (ServerEvent, error) {
	_, message, err := c.conn.ReadMessage()
	if err != nil {
		return ServerEvent{}, err
	}

	var event ServerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return ServerEvent{}, fmt.Errorf("failed to parse realtime event: %w", err)
	}
	event.Raw = json.RawMessage(message)

	c.mu.Lock()
	c.eventLog = append(c.eventLog, event.Raw)
	c.mu.Unlock()

	c.handleEvent(ctx, &event)
	return event, nil
}

func (c *Caller) handleEvent(ctx context.Context, event *ServerEvent) {
	switch event.Type {
	case EventSpeechStarted:
		c.mu.Lock()
		c.userSpeaking = true
		timestamp := float64(c.totalBufferMs) / 1000
		// replay prefix-buffered audio from the detected speech start
		var replay []string
		for _, buffered := range c.inputBuffer {
			if buffered.cumulativeMs >= event.AudioStartMs {
				c.totalBufferMs += buffered.ms
				replay = append(replay, buffered.payload)
			}
		}
		c.inputBuffer = nil
		c.mu.Unlock()

		c.updateSegment(types.SpeakerSegment{
			Speaker: types.SpeakerUser,
			Start:   timestamp,
			ItemID:  event.ItemID,
		})
		c.emitSpeaker(types.SpeakerEvent{Timestamp: timestamp, Speaker: types.SpeakerUser})
		for _, payload := range replay {
			c.emitAudio(payload)
		}

	case EventSpeechStopped:
		c.mu.Lock()
		c.userSpeaking = false
		timestamp := float64(c.totalBufferMs) / 1000
		c.mu.Unlock()

		c.updateSegment(types.SpeakerSegment{
			Speaker: types.SpeakerAssistant,
			Start:   timestamp,
		})
		c.emitSpeaker(types.SpeakerEvent{Timestamp: timestamp, Speaker: types.SpeakerAssistant})

	case EventAudioDelta:
		event.AudioMs = c.audioMs(event.Delta)
		c.mu.Lock()
		c.totalBufferMs += event.AudioMs
		// claim the pending assistant segment for this response item
		if n := len(c.segments); n > 0 && c.segments[n-1].ItemID == "" {
			c.segments[n-1].ItemID = event.ItemID
		}
		c.mu.Unlock()
		c.emitAudio(event.Delta)

	case EventInputTranscriptionDone:
		c.updateSegment(types.SpeakerSegment{
			Speaker:    types.SpeakerUser,
			Transcript: event.Transcript,
			ItemID:     event.ItemID,
		})

	case EventResponseTranscriptDone:
		c.updateSegment(types.SpeakerSegment{
			Speaker:    types.SpeakerAssistant,
			Transcript: event.Transcript,
			ItemID:     event.ItemID,
		})

	case EventFunctionCallDone:
		if event.Name != FunctionHangUp && c.logger != nil {
			c.logger.Warn(ctx, fmt.Sprintf("Received unexpected function call: %s", event.Name))
		}
	}
}

// updateSegment updates the transcript of an existing segment with the same
// item id or appends a new segment, then publishes the updated list.
func (c *Caller) updateSegment(segment types.SpeakerSegment) {
	c.mu.Lock()
	found := false
	for i := range c.segments {
		if c.segments[i].ItemID != "" && c.segments[i].ItemID == segment.ItemID {
			c.segments[i].Transcript = segment.Transcript
			found = true
			break
		}
	}
	if !found {
		c.segments = append(c.segments, segment)
	}
	snapshot := make([]types.SpeakerSegment, len(c.segments))
	copy(snapshot, c.segments)
	c.mu.Unlock()

	if c.sink != nil {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return
		}
		c.sink.Metadata(types.MetadataEvent{Type: types.MetadataSpeaker, Data: data})
	}
}

func (c *Caller) emitAudio(payload string) {
	if c.sink == nil {
		return
	}
	raw, err := audio.Base64ToBytes(payload)
	if err != nil {
		return
	}
	c.sink.Audio(raw)
}

func (c *Caller) emitSpeaker(event types.SpeakerEvent) {
	if c.sink != nil {
		c.sink.Speaker(event)
	}
}

// Segments returns a copy of the speaker segments collected so far.
func (c *Caller) Segments() []types.SpeakerSegment {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make([]types.SpeakerSegment, len(c.segments))
	copy(snapshot, c.segments)
	return snapshot
}

// EventLog returns a copy of the raw event log in arrival order.
func (c *Caller) EventLog() []json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make([]json.RawMessage, len(c.eventLog))
	copy(snapshot, c.eventLog)
	return snapshot
}

// ElapsedMs returns the total audio time routed through the session.
func (c *Caller) ElapsedMs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalBufferMs
}

// Close tears the session down exactly once: the socket is closed and the
// sink is told the call ended. Subsequent calls are no-ops.
func (c *Caller) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
		if c.sink != nil {
			c.sink.End()
		}
	})
	return c.closeErr
}
