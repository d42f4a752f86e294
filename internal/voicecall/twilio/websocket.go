package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pateli18/clinicontact/internal/observability"

	"github.com/gorilla/websocket"
)

// MediaEvent is one message on the carrier media stream socket.
type MediaEvent struct {
	Event string `json:"event"`
	Start struct {
		StreamSid        string            `json:"streamSid"`
		CallSid          string            `json:"callSid"`
		CustomParameters map[string]string `json:"customParameters"`
	} `json:"start,omitempty"`
	Media struct {
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
	Mark struct {
		Name string `json:"name"`
	} `json:"mark,omitempty"`
	Stop struct {
		StreamSid string `json:"streamSid"`
	} `json:"stop,omitempty"`
}

// MediaStream wraps a carrier media stream websocket. Reads happen from a
// single goroutine; writes are serialized with a mutex because the audio
// router and the barge-in path both send.
type MediaStream struct {
	conn       *websocket.Conn
	logger     *observability.Logger
	streamSid  string
	writeMutex sync.Mutex
}

func NewMediaStream(conn *websocket.Conn, logger *observability.Logger) *MediaStream {
	return &MediaStream{
		conn:   conn,
		logger: logger,
	}
}

// ReadEvent blocks for the next carrier event. The stream sid is captured
// from the start event so later writes can reference it.
func (s *MediaStream) ReadEvent(ctx context.Context) (MediaEvent, error) {
	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			s.logger.Info(ctx, "Media stream closed normally")
		}
		return MediaEvent{}, err
	}

	var event MediaEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return MediaEvent{}, fmt.Errorf("failed to parse media stream event: %w", err)
	}
	if event.Event == "start" {
		s.streamSid = event.Start.StreamSid
		s.logger.Info(ctx, fmt.Sprintf("Media stream started: %s", s.streamSid))
	}
	return event, nil
}

func (s *MediaStream) StreamSID() string {
	return s.streamSid
}

func (s *MediaStream) send(payload interface{}) error {
	msg, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal media stream message: %w", err)
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

// SendMedia forwards one base64 audio payload to the caller.
func (s *MediaStream) SendMedia(payload string) error {
	return s.send(map[string]interface{}{
		"event":     "media",
		"streamSid": s.streamSid,
		"media": map[string]string{
			"payload": payload,
		},
	})
}

// SendMark enqueues a playback marker; the carrier echoes it back once the
// audio sent before it has been played.
func (s *MediaStream) SendMark(name string) error {
	return s.send(map[string]interface{}{
		"event":     "mark",
		"streamSid": s.streamSid,
		"mark": map[string]string{
			"name": name,
		},
	})
}

// SendClear drops any audio the carrier has buffered but not yet played.
func (s *MediaStream) SendClear() error {
	return s.send(map[string]interface{}{
		"event":     "clear",
		"streamSid": s.streamSid,
	})
}

func (s *MediaStream) Close() {
	s.writeMutex.Lock()
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMutex.Unlock()
	s.conn.Close()
}
