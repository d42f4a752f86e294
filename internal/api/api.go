package api

import (
	"net/http"

	agentHandler "github.com/pateli18/clinicontact/internal/agents/handler"
	"github.com/pateli18/clinicontact/internal/auth"
	browserHandler "github.com/pateli18/clinicontact/internal/browser/handler"
	voiceCallHandler "github.com/pateli18/clinicontact/internal/voicecall/handler"

	"github.com/gin-gonic/gin"
)

type API struct {
	router           *gin.RouterGroup
	authenticator    *auth.Authenticator
	agentHandler     agentHandler.Handler
	browserHandler   browserHandler.Handler
	voiceCallHandler voiceCallHandler.Handler
}

func New(router *gin.RouterGroup, authenticator *auth.Authenticator, agentHandler agentHandler.Handler, browserHandler browserHandler.Handler, voiceCallHandler voiceCallHandler.Handler) API {
	return API{
		router:           router,
		authenticator:    authenticator,
		agentHandler:     agentHandler,
		browserHandler:   browserHandler,
		voiceCallHandler: voiceCallHandler,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	apiGroup := a.router.Group("/api/v1")

	agentGroup := apiGroup.Group("/agent", a.authenticator.Middleware)
	{
		agentGroup.GET("/all", a.agentHandler.HandleListAgents)
		agentGroup.GET("/active/:base_id", a.agentHandler.HandleActiveAgent)
		agentGroup.POST("/new-agent", a.agentHandler.HandleNewAgent)
		agentGroup.POST("/new-version", a.agentHandler.HandleNewVersion)
		agentGroup.POST("/sample-details", a.agentHandler.HandleSampleDetails)
	}

	browserGroup := apiGroup.Group("/browser", a.authenticator.Middleware)
	{
		browserGroup.POST("/create-session", a.browserHandler.HandleCreateSession)
		browserGroup.POST("/store-session", a.browserHandler.HandleStoreSession)
		browserGroup.GET("/session/:id", a.browserHandler.HandleGetSession)
	}

	phoneGroup := apiGroup.Group("/phone")
	{
		protected := phoneGroup.Group("", a.authenticator.Middleware)
		protected.POST("/outbound-call", a.voiceCallHandler.HandleOutboundCall)
		protected.POST("/hang-up/:id", a.voiceCallHandler.HandleHangUp)
		protected.GET("/all", a.voiceCallHandler.HandleListCalls)
		protected.GET("/transcript/:id", a.voiceCallHandler.HandleTranscript)

		// live stream and playback endpoints, authenticated by URL knowledge
		// so audio elements can attach without a bearer header
		phoneGroup.GET("/play-audio/:id", a.voiceCallHandler.HandlePlayAudio)
		phoneGroup.GET("/stream-speaker/:id", a.voiceCallHandler.HandleStreamSpeaker)
		phoneGroup.GET("/stream-metadata/:id", a.voiceCallHandler.HandleStreamMetadata)
		phoneGroup.GET("/stream-audio/:id", a.voiceCallHandler.HandleStreamAudio)

		// carrier-facing endpoints, authenticated by URL knowledge
		phoneGroup.POST("/answer/:id", a.voiceCallHandler.HandleAnswer)
		phoneGroup.POST("/status-callback/:id", a.voiceCallHandler.HandleStatusCallback)
		phoneGroup.GET("/media-stream", a.voiceCallHandler.HandleMediaStream)
	}
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}
