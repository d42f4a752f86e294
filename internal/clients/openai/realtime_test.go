package openai

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/pateli18/clinicontact/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	audio    [][]byte
	speakers []types.SpeakerEvent
	metadata []types.MetadataEvent
	ended    bool
}

func (s *recordingSink) Audio(payload []byte)               { s.audio = append(s.audio, payload) }
func (s *recordingSink) Speaker(event types.SpeakerEvent)   { s.speakers = append(s.speakers, event) }
func (s *recordingSink) Metadata(event types.MetadataEvent) { s.metadata = append(s.metadata, event) }
func (s *recordingSink) End()                               { s.ended = true }

func newTestCaller(sink Sink) *Caller {
	config := DefaultSessionConfiguration("test instructions", AudioFormatG711ULaw, true)
	c := &Caller{
		sink:         sink,
		config:       config,
		samplingRate: 8000,
	}
	c.inputBufferMs = config.TurnDetection.PrefixPaddingMs
	return c
}

func TestHandleEventSpeakerSegments(t *testing.T) {
	sink := &recordingSink{}
	c := newTestCaller(sink)
	ctx := context.Background()

	c.handleEvent(ctx, &ServerEvent{Type: EventSpeechStarted, ItemID: "item-1", AudioStartMs: 0})
	c.handleEvent(ctx, &ServerEvent{Type: EventSpeechStopped})

	segments := c.Segments()
	require.Len(t, segments, 2)
	assert.Equal(t, types.SpeakerUser, segments[0].Speaker)
	assert.Equal(t, "item-1", segments[0].ItemID)
	assert.Equal(t, types.SpeakerAssistant, segments[1].Speaker)
	assert.Equal(t, "", segments[1].ItemID)

	require.Len(t, sink.speakers, 2)
	assert.Equal(t, types.SpeakerUser, sink.speakers[0].Speaker)
	assert.Equal(t, types.SpeakerAssistant, sink.speakers[1].Speaker)
}

func TestHandleEventAudioDeltaClaimsSegment(t *testing.T) {
	sink := &recordingSink{}
	c := newTestCaller(sink)
	ctx := context.Background()

	c.handleEvent(ctx, &ServerEvent{Type: EventSpeechStarted, ItemID: "item-1"})
	c.handleEvent(ctx, &ServerEvent{Type: EventSpeechStopped})

	// one second of mu-law audio
	delta := base64.StdEncoding.EncodeToString(make([]byte, 8000))
	c.handleEvent(ctx, &ServerEvent{Type: EventAudioDelta, ItemID: "resp-1", Delta: delta})

	segments := c.Segments()
	require.Len(t, segments, 2)
	assert.Equal(t, "resp-1", segments[1].ItemID)
	assert.Equal(t, 1000, c.ElapsedMs())
	require.Len(t, sink.audio, 1)
	assert.Len(t, sink.audio[0], 8000)
}

func TestHandleEventTranscriptUpdatesByItemID(t *testing.T) {
	sink := &recordingSink{}
	c := newTestCaller(sink)
	ctx := context.Background()

	c.handleEvent(ctx, &ServerEvent{Type: EventSpeechStarted, ItemID: "item-1"})
	c.handleEvent(ctx, &ServerEvent{
		Type:       EventInputTranscriptionDone,
		ItemID:     "item-1",
		Transcript: "hello there",
	})

	segments := c.Segments()
	require.Len(t, segments, 1)
	assert.Equal(t, "hello there", segments[0].Transcript)

	// a transcript for an unknown item appends a new segment
	c.handleEvent(ctx, &ServerEvent{
		Type:       EventResponseTranscriptDone,
		ItemID:     "resp-9",
		Transcript: "hi, how can I help?",
	})
	segments = c.Segments()
	require.Len(t, segments, 2)
	assert.Equal(t, types.SpeakerAssistant, segments[1].Speaker)
}

func TestPrefixBufferReplayedFromSpeechStart(t *testing.T) {
	sink := &recordingSink{}
	c := newTestCaller(sink)
	ctx := context.Background()

	// Buffer two chunks while nobody is speaking: 100ms each at 8kHz
	chunk := base64.StdEncoding.EncodeToString(make([]byte, 800))
	c.mu.Lock()
	c.inputBuffer = append(c.inputBuffer,
		bufferedAudio{payload: chunk, ms: 100, cumulativeMs: 400},
		bufferedAudio{payload: chunk, ms: 100, cumulativeMs: 500},
	)
	c.mu.Unlock()

	// Speech detected at 450ms: only the second chunk replays
	c.handleEvent(ctx, &ServerEvent{Type: EventSpeechStarted, ItemID: "item-1", AudioStartMs: 450})

	assert.Len(t, sink.audio, 1)
	assert.Equal(t, 100, c.ElapsedMs())
	c.mu.Lock()
	assert.Empty(t, c.inputBuffer)
	assert.True(t, c.userSpeaking)
	c.mu.Unlock()
}

func TestFormatUserInfo(t *testing.T) {
	got := FormatUserInfo(map[string]string{"name": "Ada", "age": "36"})
	assert.Equal(t, "\t-age: 36\n\t-name: Ada\n", got)
}

func TestDefaultSessionConfiguration(t *testing.T) {
	cfg := DefaultSessionConfiguration("do the thing", AudioFormatG711ULaw, true)
	assert.Equal(t, "do the thing", cfg.Instructions)
	assert.Equal(t, AudioFormatG711ULaw, cfg.InputAudioFormat)
	assert.Equal(t, AudioFormatG711ULaw, cfg.OutputAudioFormat)
	require.Len(t, cfg.Tools, 1)
	assert.Equal(t, FunctionHangUp, cfg.Tools[0]["name"])

	cfg = DefaultSessionConfiguration("", AudioFormatPCM16, false)
	assert.Empty(t, cfg.Tools)
}
