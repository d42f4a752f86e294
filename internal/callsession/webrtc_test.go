package callsession

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebRTCSessionDeliversEveryEventToSlowConsumer(t *testing.T) {
	session := newWebRTCSession(nil)
	defer session.Close()

	const total = 600
	for i := 0; i < total; i++ {
		session.enqueue(json.RawMessage(fmt.Sprintf(`{"seq":%d}`, i)))
	}
	session.finish()

	var received []json.RawMessage
	deadline := time.After(5 * time.Second)
	for {
		select {
		case raw, ok := <-session.Events():
			if !ok {
				require.Len(t, received, total)
				assert.JSONEq(t, `{"seq":0}`, string(received[0]))
				assert.JSONEq(t, fmt.Sprintf(`{"seq":%d}`, total-1), string(received[total-1]))
				return
			}
			received = append(received, raw)
		case <-deadline:
			t.Fatalf("timed out after %d of %d events", len(received), total)
		}
	}
}

func TestWebRTCSessionCloseUnblocksConsumer(t *testing.T) {
	session := newWebRTCSession(nil)
	session.enqueue(json.RawMessage(`{"type":"noise"}`))

	require.NoError(t, session.Close())

	done := make(chan struct{})
	go func() {
		for range session.Events() {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events channel never closed after Close")
	}
}

func TestWebRTCMediaCloseReleasesDeviceOnce(t *testing.T) {
	closed := 0
	media := NewWebRTCMedia(nil, func() error {
		closed++
		return nil
	})

	require.NoError(t, media.Close())
	require.NoError(t, media.Close())
	assert.Equal(t, 1, closed)
}
