package callsession

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of a call session. The browser and
// phone modes run disjoint subsets of these states.
type State string

const (
	StateIdle                 State = "idle"
	StateRequestingCredential State = "requesting-credential"
	StateNegotiating          State = "negotiating"
	StateActive               State = "active"
	StateClosing              State = "closing"

	StatePlacing    State = "placing"
	StateInProgress State = "in-progress"
	StateEnding     State = "ending"
)

// DefaultTeardownGrace is how long a model-initiated hang up waits before
// tearing the session down, so trailing events still arrive.
const DefaultTeardownGrace = 10 * time.Second

// ErrSessionBusy is returned when a session or call is already in
// progress; the two modes are mutually exclusive.
var ErrSessionBusy = errors.New("a session or call is already in progress")

// Notifier surfaces user-facing notices. Every failure produces exactly
// one notification.
type Notifier interface {
	Notify(message string)
	NotifyError(message string)
}

// Controller owns both call modes and enforces that only one of them is
// live at a time.
type Controller struct {
	browser *BrowserController
	phone   *PhoneController
}

func NewController(browser *BrowserController, phone *PhoneController) *Controller {
	return &Controller{
		browser: browser,
		phone:   phone,
	}
}

// StartBrowserSession starts a peer-to-peer session unless a phone call
// is live.
func (c *Controller) StartBrowserSession(ctx context.Context, agentID uuid.UUID, userInfo map[string]string) error {
	if c.phone.State() != StateIdle {
		return ErrSessionBusy
	}
	return c.browser.Start(ctx, agentID, userInfo)
}

// PlaceCall places a phone call unless a browser session is live.
func (c *Controller) PlaceCall(ctx context.Context, phoneNumber string, agentID uuid.UUID, persona map[string]string) (uuid.UUID, error) {
	if c.browser.State() != StateIdle {
		return uuid.Nil, ErrSessionBusy
	}
	return c.phone.PlaceCall(ctx, phoneNumber, agentID, persona)
}

func (c *Controller) Browser() *BrowserController {
	return c.browser
}

func (c *Controller) Phone() *PhoneController {
	return c.phone
}
