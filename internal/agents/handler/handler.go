package handler

import (
	"net/http"

	"github.com/pateli18/clinicontact/internal/agents/processor"
	"github.com/pateli18/clinicontact/internal/apierrors"
	"github.com/pateli18/clinicontact/internal/observability"
	"github.com/pateli18/clinicontact/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	agentProcessor *processor.AgentProcessor
	logger         *observability.Logger
}

func New(agentProcessor *processor.AgentProcessor, logger *observability.Logger) Handler {
	return Handler{
		agentProcessor: agentProcessor,
		logger:         logger,
	}
}

// HandleListAgents returns every agent version.
func (h *Handler) HandleListAgents(c *gin.Context) {
	agents, err := h.agentProcessor.List(c.Request.Context())
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

type newAgentRequest struct {
	Name string `json:"name"`
}

// HandleNewAgent creates an agent with a default first version.
func (h *Handler) HandleNewAgent(c *gin.Context) {
	var req newAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid agent request")
		return
	}

	agent, err := h.agentProcessor.CreateAgent(c.Request.Context(), req.Name)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// HandleActiveAgent returns the active version for a base id.
func (h *Handler) HandleActiveAgent(c *gin.Context) {
	baseID, err := uuid.Parse(c.Param("base_id"))
	if err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid base id")
		return
	}

	agent, err := h.agentProcessor.GetActive(c.Request.Context(), baseID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// HandleNewVersion appends a version to an agent's chain.
func (h *Handler) HandleNewVersion(c *gin.Context) {
	var base types.AgentBase
	if err := c.ShouldBindJSON(&base); err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid agent version")
		return
	}

	agent, err := h.agentProcessor.CreateVersion(c.Request.Context(), base)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

type sampleDetailsRequest struct {
	Fields []string `json:"fields"`
}

// HandleSampleDetails generates sample values for a set of fields.
func (h *Handler) HandleSampleDetails(c *gin.Context) {
	var req sampleDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.CodeInvalidInput, "invalid sample request")
		return
	}

	values, err := h.agentProcessor.SampleDetails(c.Request.Context(), req.Fields)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, values)
}
