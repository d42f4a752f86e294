package handler

import (
	"net/http"

	"github.com/pateli18/clinicontact/internal/apierrors"
	"github.com/pateli18/clinicontact/internal/voicecall/processor"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HandleOutboundCall places an outbound call.
func (h *Handler) HandleOutboundCall(c *gin.Context) {
	ctx := c.Request.Context()

	var req processor.OutboundCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid outbound call request")
		return
	}

	call, err := h.voiceProcessor.StartOutboundCall(ctx, req)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phone_call_id": call.ID})
}

// HandleHangUp ends an in-flight call.
func (h *Handler) HandleHangUp(c *gin.Context) {
	phoneCallID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid phone call id")
		return
	}

	if err := h.voiceProcessor.HangUp(c.Request.Context(), phoneCallID); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ending"})
}

// HandleListCalls returns the metadata listing of all calls.
func (h *Handler) HandleListCalls(c *gin.Context) {
	calls, err := h.voiceProcessor.ListCalls(c.Request.Context())
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, calls)
}

// HandleTranscript returns the finalized transcript of a completed call.
func (h *Handler) HandleTranscript(c *gin.Context) {
	phoneCallID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid phone call id")
		return
	}

	transcript, err := h.voiceProcessor.Transcript(c.Request.Context(), phoneCallID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, transcript)
}

// HandlePlayAudio serves the full recording of a completed call.
func (h *Handler) HandlePlayAudio(c *gin.Context) {
	phoneCallID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid phone call id")
		return
	}

	recording, err := h.voiceProcessor.Recording(c.Request.Context(), phoneCallID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/basic", recording)
}
