package types

import (
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Speaker identifies which side of a call produced audio.
type Speaker string

const (
	SpeakerUser      Speaker = "User"
	SpeakerAssistant Speaker = "Assistant"
)

// SpeakerEvent is a point-in-time speaker change on the wire. The
// stream-speaker endpoint emits one per turn transition.
type SpeakerEvent struct {
	Timestamp float64 `json:"timestamp"`
	Speaker   Speaker `json:"speaker"`
}

// SpeakerSegment is a span of audio attributed to one speaker. End is nil
// while the segment is still open (live calls).
type SpeakerSegment struct {
	Speaker    Speaker  `json:"speaker"`
	Start      float64  `json:"timestamp"`
	End        *float64 `json:"end,omitempty"`
	Transcript string   `json:"transcript"`
	ItemID     string   `json:"item_id"`
}

// BarHeight is one normalized amplitude bucket of a call recording.
type BarHeight struct {
	Height  float64 `json:"height"`
	Speaker Speaker `json:"speaker"`
}

// Transcript is the finalized, immutable view over a completed call.
type Transcript struct {
	SpeakerSegments []SpeakerSegment `json:"speaker_segments"`
	BarHeights      []BarHeight      `json:"bar_heights"`
	TotalDuration   float64          `json:"total_duration"`
}

// MetadataEvent frames a record on the stream-metadata endpoint. A
// MetadataCallEnd event terminates the stream.
type MetadataEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	MetadataSpeaker = "speaker"
	MetadataCallEnd = "call_end"
)

// SessionCredential is the ephemeral credential used to negotiate a
// realtime speech session directly from the client.
type SessionCredential struct {
	ID        string `json:"id"`
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

var phoneNumberPattern = regexp.MustCompile(`^\+\d+$`)

// ErrInvalidPhoneNumber is returned when a dial target is not in E.164 form.
var ErrInvalidPhoneNumber = errors.New("phone number must be in E.164 format, e.g. +15551234567")

// ValidatePhoneNumber checks that a dial target is a plus sign followed by
// digits only. Validation happens before any call is placed.
func ValidatePhoneNumber(number string) error {
	if !phoneNumberPattern.MatchString(number) {
		return ErrInvalidPhoneNumber
	}
	return nil
}

// PhoneCallStatus mirrors the carrier call lifecycle.
type PhoneCallStatus string

const (
	PhoneCallQueued     PhoneCallStatus = "queued"
	PhoneCallRinging    PhoneCallStatus = "ringing"
	PhoneCallInProgress PhoneCallStatus = "in-progress"
	PhoneCallCompleted  PhoneCallStatus = "completed"
	PhoneCallBusy       PhoneCallStatus = "busy"
	PhoneCallFailed     PhoneCallStatus = "failed"
	PhoneCallNoAnswer   PhoneCallStatus = "no-answer"
)

// PhoneCallMetadata is the listing view of a phone call.
type PhoneCallMetadata struct {
	ID                 uuid.UUID         `json:"id"`
	FromPhoneNumber    string            `json:"from_phone_number"`
	ToPhoneNumber      string            `json:"to_phone_number"`
	InputData          map[string]string `json:"input_data"`
	Status             PhoneCallStatus   `json:"status"`
	CreatedAt          time.Time         `json:"created_at"`
	Duration           *int              `json:"duration,omitempty"`
	RecordingAvailable bool              `json:"recording_available"`
}

// Agent is one version of a configured agent. Versions form an append-only
// chain per BaseID; exactly one version per base is active at a time.
type Agent struct {
	ID            uuid.UUID         `json:"id"`
	BaseID        uuid.UUID         `json:"base_id"`
	Name          string            `json:"name"`
	SystemMessage string            `json:"system_message"`
	Active        bool              `json:"active"`
	SampleValues  map[string]string `json:"sample_values"`
	CreatedAt     time.Time         `json:"created_at"`
}

// AgentBase is the payload for creating a new agent version.
type AgentBase struct {
	BaseID        uuid.UUID         `json:"base_id"`
	Name          string            `json:"name"`
	SystemMessage string            `json:"system_message"`
	Active        bool              `json:"active"`
	SampleValues  map[string]string `json:"sample_values"`
}
