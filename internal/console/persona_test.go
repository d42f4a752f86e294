package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonaFormKeepsInsertionOrder(t *testing.T) {
	form := NewPersonaForm()
	require.NoError(t, form.Set("name", "Ada"))
	require.NoError(t, form.Set("age", "36"))
	require.NoError(t, form.Set("name", "Grace"))

	assert.Equal(t, []string{"name", "age"}, form.Keys())
	assert.Equal(t, map[string]string{"name": "Grace", "age": "36"}, form.Values())

	require.NoError(t, form.Delete("name"))
	assert.Equal(t, []string{"age"}, form.Keys())
}

func TestPersonaFormFreezeBlocksEdits(t *testing.T) {
	form := NewPersonaForm()
	require.NoError(t, form.Set("name", "Ada"))

	snapshot := form.Freeze()
	assert.Equal(t, map[string]string{"name": "Ada"}, snapshot)
	assert.True(t, form.Frozen())

	assert.ErrorIs(t, form.Set("name", "Grace"), ErrFormFrozen)
	assert.ErrorIs(t, form.Delete("name"), ErrFormFrozen)
	assert.Equal(t, map[string]string{"name": "Ada"}, form.Values())

	form.Unfreeze()
	require.NoError(t, form.Set("name", "Grace"))
	assert.Equal(t, "Grace", form.Values()["name"])
}

func TestPersonaFormSnapshotIsDetached(t *testing.T) {
	form := NewPersonaForm()
	require.NoError(t, form.Set("name", "Ada"))

	snapshot := form.Freeze()
	snapshot["name"] = "mutated"
	form.Unfreeze()

	assert.Equal(t, "Ada", form.Values()["name"])
}
