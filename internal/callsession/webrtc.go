package callsession

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pateli18/clinicontact/internal/observability"
	"github.com/pateli18/clinicontact/internal/types"

	"github.com/pion/webrtc/v4"
)

// SDPExchanger trades a local SDP offer for the remote answer using a
// short-lived session credential.
type SDPExchanger func(ctx context.Context, credential types.SessionCredential, offerSDP string) (string, error)

// WebRTCDialer establishes peer connections to the realtime voice service.
// The "oai-events" data channel carries the event stream; an optional local
// audio track carries the microphone.
type WebRTCDialer struct {
	exchange SDPExchanger
	logger   *observability.Logger
}

func NewWebRTCDialer(exchange SDPExchanger, logger *observability.Logger) *WebRTCDialer {
	return &WebRTCDialer{exchange: exchange, logger: logger}
}

// WebRTCMedia is a MediaSource backed by an optional local track. A nil
// track means the session is negotiated without microphone audio.
type WebRTCMedia struct {
	Track *webrtc.TrackLocalStaticSample

	closeOnce sync.Once
	closeFn   func() error
}

// NewWebRTCMedia wraps a local track and the release function of the
// capture device behind it. closeFn runs at most once.
func NewWebRTCMedia(track *webrtc.TrackLocalStaticSample, closeFn func() error) *WebRTCMedia {
	return &WebRTCMedia{Track: track, closeFn: closeFn}
}

func (m *WebRTCMedia) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.closeFn != nil {
			err = m.closeFn()
		}
	})
	return err
}

// DeviceAcquirer opens the local capture device. The open function is
// injected so the console can swap capture backends.
type DeviceAcquirer struct {
	Open func(ctx context.Context) (*WebRTCMedia, error)
}

func (a *DeviceAcquirer) Acquire(ctx context.Context) (MediaSource, error) {
	if a.Open == nil {
		return &WebRTCMedia{}, nil
	}
	return a.Open(ctx)
}

// webrtcSession queues inbound data-channel messages without bound and
// pumps them to the events channel, so no event is lost while the
// consumer catches up. The pump goroutine is the only sender on and the
// only closer of events.
type webrtcSession struct {
	pc     *webrtc.PeerConnection
	ready  chan struct{}
	events chan json.RawMessage
	dead   chan struct{}
	wake   chan struct{}

	readyOnce sync.Once
	closeOnce sync.Once

	mu      sync.Mutex
	queue   []json.RawMessage
	stopped bool
}

func newWebRTCSession(pc *webrtc.PeerConnection) *webrtcSession {
	session := &webrtcSession{
		pc:     pc,
		ready:  make(chan struct{}),
		events: make(chan json.RawMessage),
		dead:   make(chan struct{}),
		wake:   make(chan struct{}, 1),
	}
	go session.pump()
	return session
}

func (s *webrtcSession) Ready() <-chan struct{} { return s.ready }

func (s *webrtcSession) Events() <-chan json.RawMessage { return s.events }

func (s *webrtcSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.dead)
		if s.pc != nil {
			err = s.pc.Close()
		}
	})
	return err
}

// enqueue appends an inbound message for the pump. Messages arriving
// after the channel stopped are discarded.
func (s *webrtcSession) enqueue(raw json.RawMessage) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, raw)
	s.mu.Unlock()
	s.notify()
}

// finish marks the inbound side done; the pump drains what is queued and
// then closes the events channel.
func (s *webrtcSession) finish() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.notify()
}

func (s *webrtcSession) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *webrtcSession) pump() {
	defer close(s.events)
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		stopped := s.stopped
		s.mu.Unlock()

		for _, raw := range batch {
			select {
			case s.events <- raw:
			case <-s.dead:
				return
			}
		}
		if stopped {
			return
		}

		select {
		case <-s.wake:
		case <-s.dead:
			return
		}
	}
}

// Dial negotiates a peer connection: create the data channel, gather a
// complete offer, exchange it for the remote answer, and return a session
// that reports readiness when the data channel opens.
func (d *WebRTCDialer) Dial(ctx context.Context, credential types.SessionCredential, mic MediaSource) (RealtimeSession, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	session := newWebRTCSession(pc)

	if media, ok := mic.(*WebRTCMedia); ok && media.Track != nil {
		if _, err := pc.AddTrack(media.Track); err != nil {
			session.Close()
			return nil, fmt.Errorf("failed to add audio track: %w", err)
		}
	}

	channel, err := pc.CreateDataChannel("oai-events", nil)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to create data channel: %w", err)
	}
	channel.OnOpen(func() {
		session.readyOnce.Do(func() { close(session.ready) })
	})
	channel.OnMessage(func(msg webrtc.DataChannelMessage) {
		payload := make(json.RawMessage, len(msg.Data))
		copy(payload, msg.Data)
		session.enqueue(payload)
	})
	channel.OnClose(session.finish)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		session.Close()
		return nil, ctx.Err()
	}

	answerSDP, err := d.exchange(ctx, credential, pc.LocalDescription().SDP)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to exchange session description: %w", err)
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answerSDP,
	}); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to set remote description: %w", err)
	}

	d.logger.Debug(ctx, "realtime session negotiated")
	return session, nil
}
