package handler

import (
	"net/http"

	"github.com/pateli18/clinicontact/internal/observability"
	"github.com/pateli18/clinicontact/internal/voicecall/processor"

	"github.com/gorilla/websocket"
)

type Handler struct {
	voiceProcessor *processor.VoiceCallProcessor
	logger         *observability.Logger
}

func New(voiceProcessor *processor.VoiceCallProcessor, logger *observability.Logger) Handler {
	return Handler{
		voiceProcessor: voiceProcessor,
		logger:         logger,
	}
}

// upgrader is a shared WebSocket upgrader. The media stream endpoint is
// called by the carrier, not a browser, so origin checks do not apply.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}
