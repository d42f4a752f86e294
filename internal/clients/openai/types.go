package openai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// RealtimeModel is the speech model driving live calls.
const RealtimeModel = "gpt-4o-realtime-preview-2024-12-17"

// AudioFormat selects the wire audio encoding for a realtime session.
type AudioFormat string

const (
	AudioFormatG711ULaw AudioFormat = "g711_ulaw"
	AudioFormatPCM16    AudioFormat = "pcm16"
)

// Server event types emitted by the realtime endpoint.
const (
	EventSpeechStarted          = "input_audio_buffer.speech_started"
	EventSpeechStopped          = "input_audio_buffer.speech_stopped"
	EventAudioDelta             = "response.audio.delta"
	EventInputTranscriptionDone = "conversation.item.input_audio_transcription.completed"
	EventResponseTranscriptDone = "response.audio_transcript.done"
	EventFunctionCallDone       = "response.function_call_arguments.done"
)

// FunctionHangUp is the tool the model invokes to end a call.
const FunctionHangUp = "hang_up"

// ServerEvent is one parsed message from the realtime endpoint. Raw carries
// the full payload for logging; AudioMs is derived locally from the delta.
type ServerEvent struct {
	Type         string `json:"type"`
	ItemID       string `json:"item_id,omitempty"`
	Delta        string `json:"delta,omitempty"`
	Transcript   string `json:"transcript,omitempty"`
	Name         string `json:"name,omitempty"`
	AudioStartMs int    `json:"audio_start_ms,omitempty"`

	AudioMs int             `json:"-"`
	Raw     json.RawMessage `json:"-"`
}

// TurnDetection configures server-side voice activity detection.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

// DefaultTurnDetection uses server VAD tuned for phone audio.
func DefaultTurnDetection() *TurnDetection {
	return &TurnDetection{
		Type:              "server_vad",
		Threshold:         0.5,
		PrefixPaddingMs:   300,
		SilenceDurationMs: 500,
	}
}

// SessionConfiguration is the session.update payload sent after connecting.
type SessionConfiguration struct {
	TurnDetection           *TurnDetection           `json:"turn_detection,omitempty"`
	InputAudioFormat        AudioFormat              `json:"input_audio_format,omitempty"`
	OutputAudioFormat       AudioFormat              `json:"output_audio_format,omitempty"`
	Voice                   string                   `json:"voice,omitempty"`
	Instructions            string                   `json:"instructions,omitempty"`
	InputAudioTranscription map[string]string        `json:"input_audio_transcription,omitempty"`
	Tools                   []map[string]interface{} `json:"tools"`
}

var hangUpTool = map[string]interface{}{
	"type":        "function",
	"name":        FunctionHangUp,
	"description": "End the phone call once the conversation has reached its natural conclusion and you have said goodbye.",
	"parameters": map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	},
}

// DefaultSessionConfiguration builds the standard configuration for a call:
// server VAD, whisper input transcription, and the hang-up tool.
func DefaultSessionConfiguration(instructions string, format AudioFormat, includeHangUpTool bool) SessionConfiguration {
	tools := []map[string]interface{}{}
	if includeHangUpTool {
		tools = append(tools, hangUpTool)
	}
	return SessionConfiguration{
		TurnDetection:     DefaultTurnDetection(),
		InputAudioFormat:  format,
		OutputAudioFormat: format,
		Voice:             "shimmer",
		Instructions:      instructions,
		Tools:             tools,
		InputAudioTranscription: map[string]string{
			"model": "whisper-1",
		},
	}
}

// FormatUserInfo renders persona fields as the indented list embedded in
// model instructions. Keys are sorted for stable output.
func FormatUserInfo(userInfo map[string]string) string {
	keys := make([]string, 0, len(userInfo))
	for key := range userInfo {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "\t-%s: %s\n", key, userInfo[key])
	}
	return b.String()
}
