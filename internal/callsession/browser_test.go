package callsession

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pateli18/clinicontact/internal/observability"
	"github.com/pateli18/clinicontact/internal/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (n *fakeNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, message)
}

func (n *fakeNotifier) NotifyError(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
}

func (n *fakeNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

type fakeSessionAPI struct {
	mu         sync.Mutex
	credential types.SessionCredential
	createErr  error
	storeErr   error

	storedSessionID string
	storedData      []json.RawMessage
	storeCalls      int
}

func (a *fakeSessionAPI) CreateBrowserSession(ctx context.Context, agentID uuid.UUID, userInfo map[string]string) (types.SessionCredential, error) {
	if a.createErr != nil {
		return types.SessionCredential{}, a.createErr
	}
	return a.credential, nil
}

func (a *fakeSessionAPI) StoreBrowserSession(ctx context.Context, sessionID string, data []json.RawMessage, userInfo map[string]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.storeCalls++
	a.storedSessionID = sessionID
	a.storedData = data
	return a.storeErr
}

func (a *fakeSessionAPI) stored() (int, string, []json.RawMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.storeCalls, a.storedSessionID, a.storedData
}

type fakeMedia struct {
	mu     sync.Mutex
	closed int
}

func (m *fakeMedia) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *fakeMedia) closeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type fakeAcquirer struct {
	media *fakeMedia
	err   error
}

func (a *fakeAcquirer) Acquire(ctx context.Context) (MediaSource, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.media, nil
}

type fakeSession struct {
	ready  chan struct{}
	events chan json.RawMessage

	mu     sync.Mutex
	closed bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		ready:  make(chan struct{}),
		events: make(chan json.RawMessage, 16),
	}
}

func (s *fakeSession) Ready() <-chan struct{} { return s.ready }

func (s *fakeSession) Events() <-chan json.RawMessage { return s.events }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDialer struct {
	session *fakeSession
	err     error
}

func (d *fakeDialer) Dial(ctx context.Context, credential types.SessionCredential, mic MediaSource) (RealtimeSession, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

func newBrowserController(api *fakeSessionAPI, dialer *fakeDialer, acquirer *fakeAcquirer, notifier *fakeNotifier) *BrowserController {
	return NewBrowserController(api, dialer, acquirer, notifier, observability.NewLogger())
}

func eventually(t *testing.T, condition func() bool, message string) {
	t.Helper()
	require.Eventually(t, condition, 2*time.Second, 5*time.Millisecond, message)
}

func TestBrowserSessionLifecycle(t *testing.T) {
	api := &fakeSessionAPI{credential: types.SessionCredential{ID: "sess_1", Value: "ek_abc"}}
	session := newFakeSession()
	mic := &fakeMedia{}
	notifier := &fakeNotifier{}
	controller := newBrowserController(api, &fakeDialer{session: session}, &fakeAcquirer{media: mic}, notifier)

	require.NoError(t, controller.Start(context.Background(), uuid.New(), map[string]string{"name": "Ada"}))
	assert.Equal(t, StateNegotiating, controller.State())
	assert.Equal(t, "sess_1", controller.SessionID())

	close(session.ready)
	eventually(t, func() bool { return controller.State() == StateActive }, "session should become active when the channel opens")
	assert.True(t, controller.Active())

	session.events <- json.RawMessage(`{"type":"response.audio_transcript.done"}`)
	eventually(t, func() bool { return len(controller.Events()) == 1 }, "event should be recorded")

	controller.Stop(10 * time.Millisecond)
	assert.False(t, controller.Active())
	assert.Equal(t, StateClosing, controller.State())

	eventually(t, func() bool { return controller.State() == StateIdle }, "teardown should run after the grace period")
	assert.Empty(t, controller.SessionID())
	assert.True(t, session.isClosed())
	assert.Equal(t, 1, mic.closeCount())

	calls, sessionID, data := api.stored()
	assert.Equal(t, 1, calls)
	assert.Equal(t, "sess_1", sessionID)
	require.Len(t, data, 1)
	assert.Equal(t, 0, notifier.errorCount())
}

func TestBrowserSessionPreservesEventOrder(t *testing.T) {
	api := &fakeSessionAPI{credential: types.SessionCredential{ID: "sess_1"}}
	session := newFakeSession()
	controller := newBrowserController(api, &fakeDialer{session: session}, &fakeAcquirer{media: &fakeMedia{}}, &fakeNotifier{})

	require.NoError(t, controller.Start(context.Background(), uuid.New(), nil))
	close(session.ready)

	for i := 0; i < 5; i++ {
		session.events <- json.RawMessage([]byte{'[', byte('0' + i), ']'})
	}
	eventually(t, func() bool { return len(controller.Events()) == 5 }, "all events should be recorded")

	events := controller.Events()
	for i, raw := range events {
		assert.Equal(t, json.RawMessage([]byte{'[', byte('0' + i), ']'}), raw)
	}
}

func TestBrowserSessionSkipsPersistWhenEmpty(t *testing.T) {
	api := &fakeSessionAPI{credential: types.SessionCredential{ID: "sess_1"}}
	session := newFakeSession()
	controller := newBrowserController(api, &fakeDialer{session: session}, &fakeAcquirer{media: &fakeMedia{}}, &fakeNotifier{})

	require.NoError(t, controller.Start(context.Background(), uuid.New(), nil))
	close(session.ready)
	eventually(t, func() bool { return controller.Active() }, "session should become active")

	controller.Stop(0)
	eventually(t, func() bool { return controller.State() == StateIdle }, "teardown should run")

	calls, _, _ := api.stored()
	assert.Equal(t, 0, calls)
}

func TestBrowserSessionHangUpEventSchedulesTeardown(t *testing.T) {
	api := &fakeSessionAPI{credential: types.SessionCredential{ID: "sess_1"}}
	session := newFakeSession()
	mic := &fakeMedia{}
	controller := newBrowserController(api, &fakeDialer{session: session}, &fakeAcquirer{media: mic}, &fakeNotifier{})

	require.NoError(t, controller.Start(context.Background(), uuid.New(), nil))
	close(session.ready)
	eventually(t, func() bool { return controller.Active() }, "session should become active")

	session.events <- json.RawMessage(`{"type":"response.function_call_arguments.done","name":"hang_up","arguments":"{}"}`)
	eventually(t, func() bool { return controller.State() == StateClosing }, "hang up should flip the state")

	// the connection stays open during the grace period
	assert.False(t, session.isClosed())
	assert.Equal(t, 0, mic.closeCount())
	require.Len(t, controller.Events(), 1)
}

func TestBrowserSessionSecondStopIsNoOp(t *testing.T) {
	api := &fakeSessionAPI{credential: types.SessionCredential{ID: "sess_1"}}
	session := newFakeSession()
	controller := newBrowserController(api, &fakeDialer{session: session}, &fakeAcquirer{media: &fakeMedia{}}, &fakeNotifier{})

	require.NoError(t, controller.Start(context.Background(), uuid.New(), nil))
	close(session.ready)
	eventually(t, func() bool { return controller.Active() }, "session should become active")

	session.events <- json.RawMessage(`{"type":"note"}`)
	eventually(t, func() bool { return len(controller.Events()) == 1 }, "event should be recorded")

	controller.Stop(30 * time.Millisecond)
	controller.Stop(0)
	assert.Equal(t, StateClosing, controller.State())

	eventually(t, func() bool { return controller.State() == StateIdle }, "teardown should run once")
	calls, _, _ := api.stored()
	assert.Equal(t, 1, calls)
}

func TestBrowserSessionStartDuringTeardownFails(t *testing.T) {
	api := &fakeSessionAPI{credential: types.SessionCredential{ID: "sess_1"}}
	session := newFakeSession()
	controller := newBrowserController(api, &fakeDialer{session: session}, &fakeAcquirer{media: &fakeMedia{}}, &fakeNotifier{})

	require.NoError(t, controller.Start(context.Background(), uuid.New(), nil))
	close(session.ready)
	eventually(t, func() bool { return controller.Active() }, "session should become active")

	controller.Stop(time.Minute)
	err := controller.Start(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrSessionBusy)
}

func TestBrowserSessionCredentialFailureNotifiesOnce(t *testing.T) {
	api := &fakeSessionAPI{createErr: errors.New("backend down")}
	notifier := &fakeNotifier{}
	controller := newBrowserController(api, &fakeDialer{}, &fakeAcquirer{media: &fakeMedia{}}, notifier)

	err := controller.Start(context.Background(), uuid.New(), nil)
	require.Error(t, err)
	assert.Equal(t, StateIdle, controller.State())
	assert.Equal(t, 1, notifier.errorCount())
}

func TestBrowserSessionDialFailureReleasesMicrophone(t *testing.T) {
	api := &fakeSessionAPI{credential: types.SessionCredential{ID: "sess_1"}}
	mic := &fakeMedia{}
	notifier := &fakeNotifier{}
	controller := newBrowserController(api, &fakeDialer{err: errors.New("no route")}, &fakeAcquirer{media: mic}, notifier)

	err := controller.Start(context.Background(), uuid.New(), nil)
	require.Error(t, err)
	assert.Equal(t, StateIdle, controller.State())
	assert.Equal(t, 1, mic.closeCount())
	assert.Equal(t, 1, notifier.errorCount())
}

func TestBrowserSessionConnectionDeathTearsDownImmediately(t *testing.T) {
	api := &fakeSessionAPI{credential: types.SessionCredential{ID: "sess_1"}}
	session := newFakeSession()
	controller := newBrowserController(api, &fakeDialer{session: session}, &fakeAcquirer{media: &fakeMedia{}}, &fakeNotifier{})

	require.NoError(t, controller.Start(context.Background(), uuid.New(), nil))
	close(session.ready)
	eventually(t, func() bool { return controller.Active() }, "session should become active")

	session.events <- json.RawMessage(`{"type":"note"}`)
	eventually(t, func() bool { return len(controller.Events()) == 1 }, "event should be recorded")

	session.Close()
	eventually(t, func() bool { return controller.State() == StateIdle }, "death should reset the controller")

	calls, _, data := api.stored()
	assert.Equal(t, 1, calls)
	assert.Len(t, data, 1)
}

func TestControllerEnforcesModeExclusivity(t *testing.T) {
	api := &fakeSessionAPI{credential: types.SessionCredential{ID: "sess_1"}}
	session := newFakeSession()
	browser := newBrowserController(api, &fakeDialer{session: session}, &fakeAcquirer{media: &fakeMedia{}}, &fakeNotifier{})

	phoneAPI := &fakePhoneAPI{callID: uuid.New(), speaker: newFakeSpeakerStream()}
	phone := NewPhoneController(phoneAPI, &fakeAudioSink{}, &fakeNotifier{}, observability.NewLogger())

	controller := NewController(browser, phone)

	require.NoError(t, controller.StartBrowserSession(context.Background(), uuid.New(), nil))

	_, err := controller.PlaceCall(context.Background(), "+442071838750", uuid.New(), nil)
	assert.ErrorIs(t, err, ErrSessionBusy)
}
