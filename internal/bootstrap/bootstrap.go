package bootstrap

import (
	"context"
	"fmt"

	"github.com/pateli18/clinicontact/internal/auth"
	"github.com/pateli18/clinicontact/internal/config"
	"github.com/pateli18/clinicontact/internal/observability"
	"github.com/pateli18/clinicontact/internal/store"

	agentHandler "github.com/pateli18/clinicontact/internal/agents/handler"
	agentProcessor "github.com/pateli18/clinicontact/internal/agents/processor"
	browserHandler "github.com/pateli18/clinicontact/internal/browser/handler"
	browserProcessor "github.com/pateli18/clinicontact/internal/browser/processor"
	twilioClient "github.com/pateli18/clinicontact/internal/clients/twilio"
	voiceCallHandler "github.com/pateli18/clinicontact/internal/voicecall/handler"
	voiceCallProcessor "github.com/pateli18/clinicontact/internal/voicecall/processor"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	Store         store.Store
	Logger        *observability.Logger
	Authenticator *auth.Authenticator

	// Handlers
	AgentHandler     agentHandler.Handler
	BrowserHandler   browserHandler.Handler
	VoiceCallHandler voiceCallHandler.Handler
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logger,
	}

	var err error
	deps.Store, err = store.New(cfg.Database.ConnectionString(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	deps.Authenticator = auth.New(cfg.Auth.JWTSecret, logger)

	carrier := twilioClient.New(
		cfg.Services.TwilioAccountSID,
		cfg.Services.TwilioAuthToken,
		cfg.Services.TwilioFromNumber,
		logger,
	)

	voiceProcessor := voiceCallProcessor.New(
		&deps.Store,
		carrier,
		cfg.Services.OpenAIAPIKey,
		cfg.Services.PublicHost,
		cfg.Server.RecordingDir,
		logger,
	)
	deps.VoiceCallHandler = voiceCallHandler.New(voiceProcessor, logger)

	browserProc := browserProcessor.New(&deps.Store, cfg.Services.OpenAIAPIKey, logger)
	deps.BrowserHandler = browserHandler.New(browserProc, logger)

	agentProc := agentProcessor.New(&deps.Store, cfg.Services.OpenAIAPIKey, logger)
	deps.AgentHandler = agentHandler.New(agentProc, logger)

	logger.Info(ctx, "Dependencies initialized")
	return deps, nil
}

// Cleanup releases resources held by the dependencies.
func (d *Dependencies) Cleanup() {
	if err := d.Store.Close(); err != nil {
		d.Logger.Error(context.Background(), "failed to close store", err)
	}
}
