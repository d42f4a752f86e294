package console

import (
	"context"
	"testing"
	"time"

	"github.com/pateli18/clinicontact/internal/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAgentAPI struct {
	mock.Mock
}

func (m *MockAgentAPI) ListAgents(ctx context.Context) ([]types.Agent, error) {
	args := m.Called(ctx)
	return args.Get(0).([]types.Agent), args.Error(1)
}

func (m *MockAgentAPI) NewAgent(ctx context.Context, name string) (types.Agent, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(types.Agent), args.Error(1)
}

func (m *MockAgentAPI) NewAgentVersion(ctx context.Context, base types.AgentBase) (types.Agent, error) {
	args := m.Called(ctx, base)
	return args.Get(0).(types.Agent), args.Error(1)
}

func (m *MockAgentAPI) SampleDetails(ctx context.Context, fields []string) (map[string]string, error) {
	args := m.Called(ctx, fields)
	return args.Get(0).(map[string]string), args.Error(1)
}

func seededEditor(t *testing.T, api *MockAgentAPI, agents []types.Agent) *AgentEditor {
	t.Helper()
	api.On("ListAgents", mock.Anything).Return(agents, nil).Once()
	editor := NewAgentEditor(api)
	require.NoError(t, editor.Refresh(context.Background()))
	return editor
}

func agentVersion(baseID uuid.UUID, active bool, systemMessage string, samples map[string]string) types.Agent {
	return types.Agent{
		ID:            uuid.New(),
		BaseID:        baseID,
		Name:          "Study Coordinator",
		SystemMessage: systemMessage,
		Active:        active,
		SampleValues:  samples,
		CreatedAt:     time.Now(),
	}
}

func TestRefreshSelectsActiveVersion(t *testing.T) {
	baseID := uuid.New()
	inactive := agentVersion(baseID, false, "old", nil)
	active := agentVersion(baseID, true, "current", nil)

	api := &MockAgentAPI{}
	editor := seededEditor(t, api, []types.Agent{active, inactive})

	selected, ok := editor.Selected()
	require.True(t, ok)
	assert.Equal(t, active.ID, selected.ID)
}

func TestUpdateInstructionsPreservesExistingSamples(t *testing.T) {
	baseID := uuid.New()
	agent := agentVersion(baseID, true, "Call {name} about {study}.", map[string]string{
		"name":  "Ada Lovelace",
		"study": "sleep study",
	})

	api := &MockAgentAPI{}
	editor := seededEditor(t, api, []types.Agent{agent})

	_, err := editor.NewVersionDraft()
	require.NoError(t, err)

	// {study} is dropped, {dob} is new; only {dob} should be sampled
	api.On("SampleDetails", mock.Anything, []string{"dob"}).Return(map[string]string{"dob": "1990-04-02"}, nil).Once()

	require.NoError(t, editor.UpdateInstructions(context.Background(), "Call {name}, confirm {dob}. {user_info}"))

	draft, ok := editor.Draft()
	require.True(t, ok)
	assert.Equal(t, []string{"name", "dob"}, draft.Fields)
	assert.Equal(t, map[string]string{"name": "Ada Lovelace", "dob": "1990-04-02"}, draft.SampleValues)
	api.AssertExpectations(t)
}

func TestUpdateInstructionsWithoutNewFieldsSkipsSampling(t *testing.T) {
	agent := agentVersion(uuid.New(), true, "Call {name}.", map[string]string{"name": "Ada"})

	api := &MockAgentAPI{}
	editor := seededEditor(t, api, []types.Agent{agent})

	_, err := editor.NewVersionDraft()
	require.NoError(t, err)

	require.NoError(t, editor.UpdateInstructions(context.Background(), "Please call {name} today."))

	draft, _ := editor.Draft()
	assert.Equal(t, map[string]string{"name": "Ada"}, draft.SampleValues)
	api.AssertNotCalled(t, "SampleDetails", mock.Anything, mock.Anything)
}

func TestSaveDeactivatesSiblingsAndSelectsNewVersion(t *testing.T) {
	baseID := uuid.New()
	otherBase := uuid.New()
	current := agentVersion(baseID, true, "Call {name}.", map[string]string{"name": "Ada"})
	unrelated := agentVersion(otherBase, true, "unrelated", nil)

	api := &MockAgentAPI{}
	editor := seededEditor(t, api, []types.Agent{current, unrelated})

	_, err := editor.NewVersionDraft()
	require.NoError(t, err)
	require.NoError(t, editor.UpdateInstructions(context.Background(), "Greet {name} warmly."))

	saved := agentVersion(baseID, true, "Greet {name} warmly.", map[string]string{"name": "Ada"})
	api.On("NewAgentVersion", mock.Anything, mock.MatchedBy(func(base types.AgentBase) bool {
		return base.BaseID == baseID && base.Active && base.SystemMessage == "Greet {name} warmly."
	})).Return(saved, nil).Once()

	result, err := editor.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, saved.ID, result.ID)

	selected, ok := editor.Selected()
	require.True(t, ok)
	assert.Equal(t, saved.ID, selected.ID)

	for _, agent := range editor.Agents() {
		switch agent.ID {
		case saved.ID:
			assert.True(t, agent.Active)
		case current.ID:
			assert.False(t, agent.Active, "previous version of the same base should flip inactive")
		case unrelated.ID:
			assert.True(t, agent.Active, "other bases are untouched")
		}
	}

	_, ok = editor.Draft()
	assert.False(t, ok, "draft should close after save")
	api.AssertExpectations(t)
}

func TestSaveWithoutDraftFails(t *testing.T) {
	api := &MockAgentAPI{}
	editor := seededEditor(t, api, []types.Agent{})

	_, err := editor.Save(context.Background())
	assert.ErrorIs(t, err, ErrNoDraft)
}
