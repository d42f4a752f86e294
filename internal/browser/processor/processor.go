package processor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pateli18/clinicontact/internal/apierrors"
	"github.com/pateli18/clinicontact/internal/clients/openai"
	"github.com/pateli18/clinicontact/internal/observability"
	"github.com/pateli18/clinicontact/internal/store"
	"github.com/pateli18/clinicontact/internal/types"
	voiceprocessor "github.com/pateli18/clinicontact/internal/voicecall/processor"

	"github.com/google/uuid"
)

// BrowserStore defines the database operations required by BrowserProcessor
type BrowserStore interface {
	StoreBrowserSession(ctx context.Context, sessionID string, data store.RawJSONArray, userInfo store.StringMap) error
	GetBrowserSession(ctx context.Context, sessionID string) (store.BrowserSession, error)
	GetAgent(ctx context.Context, id uuid.UUID) (store.Agent, error)
}

// BrowserProcessor issues ephemeral realtime credentials for browser calls
// and archives the session data the browser reports back.
type BrowserProcessor struct {
	store      BrowserStore
	httpClient *http.Client
	openAIKey  string
	logger     *observability.Logger
}

func New(browserStore BrowserStore, openAIKey string, logger *observability.Logger) *BrowserProcessor {
	return &BrowserProcessor{
		store:      browserStore,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		openAIKey:  openAIKey,
		logger:     logger,
	}
}

// CreateSessionRequest is the payload for starting a browser call.
type CreateSessionRequest struct {
	AgentID  uuid.UUID         `json:"agent_id"`
	UserInfo map[string]string `json:"user_info"`
}

// CreateSession mints an ephemeral credential for a browser call against
// the given agent version.
func (p *BrowserProcessor) CreateSession(ctx context.Context, req CreateSessionRequest) (types.SessionCredential, error) {
	agent, err := p.store.GetAgent(ctx, req.AgentID)
	if errors.Is(err, store.ErrNotFound) {
		return types.SessionCredential{}, apierrors.New(404, apierrors.CodeNotFound, "agent not found")
	}
	if err != nil {
		return types.SessionCredential{}, err
	}

	instructions := voiceprocessor.BuildInstructions(agent.SystemMessage, req.UserInfo)
	credential, err := openai.CreateEphemeralSession(ctx, p.httpClient, p.openAIKey, instructions)
	if err != nil {
		p.logger.Error(ctx, "failed to create ephemeral session", err)
		return types.SessionCredential{}, apierrors.New(502, apierrors.CodeCallUnavailable, "failed to create realtime session")
	}
	return credential, nil
}

// StoreSessionRequest is the browser's post-call report: the raw realtime
// events it observed plus the persona used.
type StoreSessionRequest struct {
	SessionID string            `json:"session_id"`
	Data      []json.RawMessage `json:"data"`
	UserInfo  map[string]string `json:"user_info"`
}

// StoreSession archives a completed browser call. Sessions with no events
// are rejected; empty calls are not worth keeping.
func (p *BrowserProcessor) StoreSession(ctx context.Context, req StoreSessionRequest) error {
	if req.SessionID == "" {
		return apierrors.New(400, apierrors.CodeInvalidInput, "session_id is required")
	}
	if len(req.Data) == 0 {
		return apierrors.New(400, apierrors.CodeInvalidInput, "session has no events")
	}
	return p.store.StoreBrowserSession(ctx, req.SessionID, store.RawJSONArray(req.Data), store.StringMap(req.UserInfo))
}

// GetSession returns an archived browser call log.
func (p *BrowserProcessor) GetSession(ctx context.Context, sessionID string) (store.BrowserSession, error) {
	session, err := p.store.GetBrowserSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return store.BrowserSession{}, apierrors.New(404, apierrors.CodeNotFound, "session not found")
	}
	return session, err
}
