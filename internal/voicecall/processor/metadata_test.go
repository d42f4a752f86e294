package processor

import (
	"testing"

	"github.com/pateli18/clinicontact/internal/store"
	"github.com/pateli18/clinicontact/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusEvent(sequence, status string) store.PhoneCallEvent {
	return store.PhoneCallEvent{
		Payload: store.JSONB{
			"SequenceNumber": sequence,
			"CallStatus":     status,
		},
	}
}

func TestCallStatusPicksHighestSequence(t *testing.T) {
	status, duration := callStatus([]store.PhoneCallEvent{
		statusEvent("0", "queued"),
		statusEvent("2", "in-progress"),
		statusEvent("1", "ringing"),
	})

	assert.Equal(t, types.PhoneCallInProgress, status)
	assert.Nil(t, duration)
}

func TestCallStatusCompletedCarriesDuration(t *testing.T) {
	completed := statusEvent("3", "completed")
	completed.Payload["CallDuration"] = "42"

	status, duration := callStatus([]store.PhoneCallEvent{
		statusEvent("2", "in-progress"),
		completed,
	})

	assert.Equal(t, types.PhoneCallCompleted, status)
	require.NotNil(t, duration)
	assert.Equal(t, 42, *duration)
}

func TestCallStatusNoEventsMeansQueued(t *testing.T) {
	status, duration := callStatus(nil)
	assert.Equal(t, types.PhoneCallQueued, status)
	assert.Nil(t, duration)
}

func TestBuildInstructions(t *testing.T) {
	userInfo := map[string]string{"name": "Ada", "age": "36"}

	out := BuildInstructions("Call {name}, age {age}.", userInfo)
	assert.Equal(t, "Call Ada, age 36.", out)

	out = BuildInstructions("Details:\n{user_info}", userInfo)
	assert.Equal(t, "Details:\n\t-age: 36\n\t-name: Ada\n", out)
}
