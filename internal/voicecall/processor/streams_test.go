package processor

import (
	"testing"
	"time"

	"github.com/pateli18/clinicontact/internal/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallStreamsRecordsAudio(t *testing.T) {
	streams := NewCallStreams()
	streams.Audio([]byte{0x01, 0x02})
	streams.Audio([]byte{0x03})

	assert.Equal(t, []byte{0x01, 0x02, 0x03}, streams.Recording())

	chunk := <-streams.AudioStream()
	assert.Equal(t, []byte{0x01, 0x02}, chunk)
}

func TestCallStreamsEndEmitsTerminalMetadata(t *testing.T) {
	streams := NewCallStreams()
	streams.Metadata(types.MetadataEvent{Type: types.MetadataSpeaker})
	streams.End()
	streams.End() // second end is a no-op

	first, ok := <-streams.MetadataStream()
	require.True(t, ok)
	assert.Equal(t, types.MetadataSpeaker, first.Type)

	last, ok := <-streams.MetadataStream()
	require.True(t, ok)
	assert.Equal(t, types.MetadataCallEnd, last.Type)

	_, ok = <-streams.MetadataStream()
	assert.False(t, ok)

	_, ok = <-streams.AudioStream()
	assert.False(t, ok)
}

func TestCallStreamsEndWithoutConsumerDoesNotBlock(t *testing.T) {
	streams := NewCallStreams()

	// a chatty call with nobody streaming fills the metadata buffer
	for i := 0; i < eventStreamBuffer+10; i++ {
		streams.Metadata(types.MetadataEvent{Type: types.MetadataSpeaker})
	}

	done := make(chan struct{})
	go func() {
		streams.End()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("End blocked with a full metadata buffer and no consumer")
	}

	// the closed channel still marks the end for a late consumer
	for range streams.MetadataStream() {
	}
}

func TestStreamRegistryLifecycle(t *testing.T) {
	registry := NewStreamRegistry()
	callID := uuid.New()

	streams := registry.Register(callID)
	assert.Same(t, streams, registry.Register(callID))

	got, ok := registry.Get(callID)
	require.True(t, ok)
	assert.Same(t, streams, got)

	registry.Unregister(callID)
	_, ok = registry.Get(callID)
	assert.False(t, ok)

	// unregister ended the streams
	_, open := <-streams.SpeakerStream()
	assert.False(t, open)
}
