package handler

import (
	"fmt"
	"net/http"

	"github.com/pateli18/clinicontact/internal/apierrors"
	twiliostream "github.com/pateli18/clinicontact/internal/voicecall/twilio"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/twilio/twilio-go/twiml"
)

// HandleAnswer returns the TwiML that connects an answered call to the
// media stream endpoint.
func (h *Handler) HandleAnswer(c *gin.Context) {
	ctx := c.Request.Context()

	phoneCallID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid phone call id")
		return
	}

	wsURL := h.voiceProcessor.MediaStreamURL(phoneCallID)
	h.logger.Info(ctx, fmt.Sprintf("Answering call %s via %s", phoneCallID, wsURL))

	stream := twiml.VoiceStream{
		Name: "media-stream",
		Url:  wsURL,
	}
	connect := twiml.VoiceConnect{
		InnerElements: []twiml.Element{stream},
	}

	twimlResult, err := twiml.Voice([]twiml.Element{connect})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, twimlResult)
}

// HandleStatusCallback records a carrier lifecycle update for a call.
func (h *Handler) HandleStatusCallback(c *gin.Context) {
	ctx := c.Request.Context()

	phoneCallID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid phone call id")
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid status callback")
		return
	}
	payload := make(map[string]interface{}, len(c.Request.PostForm))
	for key := range c.Request.PostForm {
		payload[key] = c.Request.PostForm.Get(key)
	}

	if err := h.voiceProcessor.RecordStatusCallback(ctx, phoneCallID, payload); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleMediaStream accepts the carrier's websocket connection for a call
// and bridges it to the realtime model for the call's duration.
func (h *Handler) HandleMediaStream(c *gin.Context) {
	ctx := c.Request.Context()

	phoneCallID, err := uuid.Parse(c.Query("phone_call_id"))
	if err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid phone call id")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(ctx, "WebSocket upgrade failed", err)
		return
	}

	stream := twiliostream.NewMediaStream(conn, h.logger)
	defer stream.Close()

	h.logger.Info(ctx, fmt.Sprintf("Media stream connected for call %s", phoneCallID))
	if err := h.voiceProcessor.HandleMediaStream(ctx, stream, phoneCallID); err != nil {
		h.logger.Error(ctx, "media stream session failed", err)
	}
}
