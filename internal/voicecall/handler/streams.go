package handler

import (
	"encoding/json"
	"net/http"

	"github.com/pateli18/clinicontact/internal/apierrors"
	"github.com/pateli18/clinicontact/internal/voicecall/processor"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// liveStreams resolves the streams of an in-flight call from the :id path
// parameter, writing the error response itself on failure.
func (h *Handler) liveStreams(c *gin.Context) (*processor.CallStreams, bool) {
	phoneCallID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid phone call id")
		return nil, false
	}
	streams, ok := h.voiceProcessor.Streams(phoneCallID)
	if !ok {
		apierrors.NotFound(c, "call is not in progress")
		return nil, false
	}
	return streams, true
}

// HandleStreamSpeaker streams speaker turn changes as newline-delimited
// JSON until the call ends or the client disconnects.
func (h *Handler) HandleStreamSpeaker(c *gin.Context) {
	streams, ok := h.liveStreams(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Writer.WriteHeader(http.StatusOK)
	encoder := json.NewEncoder(c.Writer)

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, open := <-streams.SpeakerStream():
			if !open {
				return
			}
			if err := encoder.Encode(event); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// HandleStreamMetadata streams metadata updates as newline-delimited JSON.
// The final record has type call_end.
func (h *Handler) HandleStreamMetadata(c *gin.Context) {
	streams, ok := h.liveStreams(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Writer.WriteHeader(http.StatusOK)
	encoder := json.NewEncoder(c.Writer)

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, open := <-streams.MetadataStream():
			if !open {
				return
			}
			if err := encoder.Encode(event); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// HandleStreamAudio streams the raw mulaw audio of an in-flight call.
func (h *Handler) HandleStreamAudio(c *gin.Context) {
	streams, ok := h.liveStreams(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "audio/basic")
	c.Writer.WriteHeader(http.StatusOK)

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case chunk, open := <-streams.AudioStream():
			if !open {
				return
			}
			if _, err := c.Writer.Write(chunk); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
