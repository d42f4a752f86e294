package handler

import (
	"net/http"

	"github.com/pateli18/clinicontact/internal/apierrors"
	"github.com/pateli18/clinicontact/internal/browser/processor"
	"github.com/pateli18/clinicontact/internal/observability"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	browserProcessor *processor.BrowserProcessor
	logger           *observability.Logger
}

func New(browserProcessor *processor.BrowserProcessor, logger *observability.Logger) Handler {
	return Handler{
		browserProcessor: browserProcessor,
		logger:           logger,
	}
}

// HandleCreateSession mints an ephemeral credential for a browser call.
func (h *Handler) HandleCreateSession(c *gin.Context) {
	var req processor.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid session request")
		return
	}

	credential, err := h.browserProcessor.CreateSession(c.Request.Context(), req)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, credential)
}

// HandleStoreSession archives a completed browser call.
func (h *Handler) HandleStoreSession(c *gin.Context) {
	var req processor.StoreSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid session payload")
		return
	}

	if err := h.browserProcessor.StoreSession(c.Request.Context(), req); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stored"})
}

// HandleGetSession returns an archived browser call log.
func (h *Handler) HandleGetSession(c *gin.Context) {
	session, err := h.browserProcessor.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"data":       session.Data,
		"user_info":  session.UserInfo,
		"created_at": session.CreatedAt,
	})
}
