package callsession

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pateli18/clinicontact/internal/observability"
	"github.com/pateli18/clinicontact/internal/types"

	"github.com/google/uuid"
)

// SessionAPI is the backend surface the browser mode needs.
type SessionAPI interface {
	CreateBrowserSession(ctx context.Context, agentID uuid.UUID, userInfo map[string]string) (types.SessionCredential, error)
	StoreBrowserSession(ctx context.Context, sessionID string, data []json.RawMessage, userInfo map[string]string) error
}

// MediaSource is a held microphone capture, released exactly once at
// teardown.
type MediaSource interface {
	Close() error
}

// MediaAcquirer obtains the local microphone.
type MediaAcquirer interface {
	Acquire(ctx context.Context) (MediaSource, error)
}

// RealtimeSession is an established peer connection to the speech model.
// Ready is closed when the event channel opens, which is the only signal
// that the session is usable. Events is closed when the connection dies.
type RealtimeSession interface {
	Ready() <-chan struct{}
	Events() <-chan json.RawMessage
	Close() error
}

// RealtimeDialer negotiates a RealtimeSession with an ephemeral
// credential and a local audio source.
type RealtimeDialer interface {
	Dial(ctx context.Context, credential types.SessionCredential, mic MediaSource) (RealtimeSession, error)
}

// BrowserController drives the peer-to-peer session lifecycle:
// idle, requesting-credential, negotiating, active, closing, idle.
type BrowserController struct {
	api      SessionAPI
	dialer   RealtimeDialer
	media    MediaAcquirer
	notifier Notifier
	logger   *observability.Logger

	mu        sync.Mutex
	state     State
	sessionID string
	userInfo  map[string]string
	events    []json.RawMessage
	session   RealtimeSession
	mic       MediaSource
	teardown  *time.Timer
}

func NewBrowserController(api SessionAPI, dialer RealtimeDialer, media MediaAcquirer, notifier Notifier, logger *observability.Logger) *BrowserController {
	return &BrowserController{
		api:      api,
		dialer:   dialer,
		media:    media,
		notifier: notifier,
		logger:   logger,
		state:    StateIdle,
	}
}

// Start negotiates a new session. It fails when a session is live or its
// deferred teardown has not run yet.
func (c *BrowserController) Start(ctx context.Context, agentID uuid.UUID, userInfo map[string]string) error {
	c.mu.Lock()
	if c.state != StateIdle || c.teardown != nil {
		c.mu.Unlock()
		return ErrSessionBusy
	}
	c.state = StateRequestingCredential
	c.mu.Unlock()

	credential, err := c.api.CreateBrowserSession(ctx, agentID, userInfo)
	if err != nil {
		c.fail(ctx, "Could not start the session", err)
		return err
	}

	mic, err := c.media.Acquire(ctx)
	if err != nil {
		c.fail(ctx, "Could not access the microphone", err)
		return err
	}

	c.mu.Lock()
	c.state = StateNegotiating
	c.mu.Unlock()

	session, err := c.dialer.Dial(ctx, credential, mic)
	if err != nil {
		mic.Close()
		c.fail(ctx, "Could not connect the session", err)
		return err
	}

	c.mu.Lock()
	if c.state != StateNegotiating {
		// torn down while negotiating
		c.mu.Unlock()
		session.Close()
		mic.Close()
		return ErrSessionBusy
	}
	c.sessionID = credential.ID
	c.userInfo = userInfo
	c.session = session
	c.mic = mic
	c.mu.Unlock()

	go c.run(session)
	return nil
}

// run promotes the session to active once the event channel opens and
// appends every inbound event in arrival order until the session dies.
func (c *BrowserController) run(session RealtimeSession) {
	ready := session.Ready()
	for {
		select {
		case <-ready:
			ready = nil
			c.mu.Lock()
			if c.state == StateNegotiating {
				c.state = StateActive
			}
			c.mu.Unlock()

		case raw, ok := <-session.Events():
			if !ok {
				c.Stop(0)
				return
			}
			c.mu.Lock()
			if c.session != session {
				// torn down; drop trailing events
				c.mu.Unlock()
				return
			}
			c.events = append(c.events, raw)
			c.mu.Unlock()
			if isHangUpEvent(raw) {
				c.Stop(DefaultTeardownGrace)
			}
		}
	}
}

// Stop flips the visible state to inactive immediately and schedules the
// actual teardown after the grace period. A stop while a teardown is
// already scheduled is a no-op.
func (c *BrowserController) Stop(grace time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.teardown != nil {
		return
	}
	if c.state == StateIdle && c.session == nil {
		return
	}
	c.state = StateClosing
	c.teardown = time.AfterFunc(grace, c.teardownNow)
}

// teardownNow releases the connection and microphone, persists the event
// log if it is non-empty, and clears all session state.
func (c *BrowserController) teardownNow() {
	c.mu.Lock()
	session := c.session
	mic := c.mic
	sessionID := c.sessionID
	userInfo := c.userInfo
	events := c.events
	c.session = nil
	c.mic = nil
	c.sessionID = ""
	c.userInfo = nil
	c.events = nil
	c.state = StateIdle
	c.teardown = nil
	c.mu.Unlock()

	if session != nil {
		session.Close()
	}
	if mic != nil {
		mic.Close()
	}

	if len(events) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.api.StoreBrowserSession(ctx, sessionID, events, userInfo); err != nil {
			c.logger.Error(ctx, "failed to persist session", err)
			c.notifier.NotifyError("Could not save the session")
		}
	}
}

func (c *BrowserController) fail(ctx context.Context, message string, err error) {
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.logger.Error(ctx, message, err)
	c.notifier.NotifyError(message)
}

// State returns the current lifecycle state.
func (c *BrowserController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether the session is usable. It flips false as soon as
// a stop is requested, before teardown runs.
func (c *BrowserController) Active() bool {
	return c.State() == StateActive
}

// SessionID returns the current session identifier, empty when idle.
func (c *BrowserController) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Events returns a copy of the event log accumulated so far.
func (c *BrowserController) Events() []json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := make([]json.RawMessage, len(c.events))
	copy(events, c.events)
	return events
}

// isHangUpEvent matches the function-call completion the model sends when
// it decides to end the call.
func isHangUpEvent(raw json.RawMessage) bool {
	var event struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &event); err != nil {
		return false
	}
	return event.Type == "response.function_call_arguments.done" && event.Name == "hang_up"
}
