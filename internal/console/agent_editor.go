package console

import (
	"context"
	"errors"
	"sync"

	agentfields "github.com/pateli18/clinicontact/internal/agents/processor"
	"github.com/pateli18/clinicontact/internal/types"

	"github.com/google/uuid"
)

// AgentAPI is the backend surface the editor needs.
type AgentAPI interface {
	ListAgents(ctx context.Context) ([]types.Agent, error)
	NewAgent(ctx context.Context, name string) (types.Agent, error)
	NewAgentVersion(ctx context.Context, base types.AgentBase) (types.Agent, error)
	SampleDetails(ctx context.Context, fields []string) (map[string]string, error)
}

// ErrNoDraft is returned when an operation needs an open draft and none
// exists.
var ErrNoDraft = errors.New("no draft in progress")

// Draft is a local, unsaved agent version. Nothing touches the backend
// until Save.
type Draft struct {
	BaseID        uuid.UUID
	Name          string
	SystemMessage string
	Fields        []string
	SampleValues  map[string]string
}

// AgentEditor keeps the locally cached agent versions and at most one
// open draft.
type AgentEditor struct {
	api AgentAPI

	mu       sync.Mutex
	agents   []types.Agent
	selected uuid.UUID
	draft    *Draft
}

func NewAgentEditor(api AgentAPI) *AgentEditor {
	return &AgentEditor{api: api}
}

// Refresh reloads the version list from the backend and selects the
// first active version when nothing is selected.
func (e *AgentEditor) Refresh(ctx context.Context) error {
	agents, err := e.api.ListAgents(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.agents = agents
	if e.selected == uuid.Nil {
		for _, agent := range agents {
			if agent.Active {
				e.selected = agent.ID
				break
			}
		}
	}
	return nil
}

// Agents returns a copy of the cached version list.
func (e *AgentEditor) Agents() []types.Agent {
	e.mu.Lock()
	defer e.mu.Unlock()
	agents := make([]types.Agent, len(e.agents))
	copy(agents, e.agents)
	return agents
}

// Select picks the version to view and to base drafts on.
func (e *AgentEditor) Select(id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, agent := range e.agents {
		if agent.ID == id {
			e.selected = id
			return nil
		}
	}
	return errors.New("unknown agent version")
}

// Selected returns the currently selected version, if any.
func (e *AgentEditor) Selected() (types.Agent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedLocked()
}

func (e *AgentEditor) selectedLocked() (types.Agent, bool) {
	for _, agent := range e.agents {
		if agent.ID == e.selected {
			return agent, true
		}
	}
	return types.Agent{}, false
}

// CreateAgent registers a new agent line and selects its first version.
func (e *AgentEditor) CreateAgent(ctx context.Context, name string) (types.Agent, error) {
	agent, err := e.api.NewAgent(ctx, name)
	if err != nil {
		return types.Agent{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.agents = append([]types.Agent{agent}, e.agents...)
	e.selected = agent.ID
	return agent, nil
}

// NewVersionDraft opens a draft seeded from the selected version. The
// draft is purely local until Save.
func (e *AgentEditor) NewVersionDraft() (*Draft, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	agent, ok := e.selectedLocked()
	if !ok {
		return nil, errors.New("no agent version selected")
	}
	samples := make(map[string]string, len(agent.SampleValues))
	for k, v := range agent.SampleValues {
		samples[k] = v
	}
	e.draft = &Draft{
		BaseID:        agent.BaseID,
		Name:          agent.Name,
		SystemMessage: agent.SystemMessage,
		Fields:        agentfields.ExtractFields(agent.SystemMessage),
		SampleValues:  samples,
	}
	return e.draft, nil
}

// Draft returns the open draft, if any.
func (e *AgentEditor) Draft() (*Draft, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft, e.draft != nil
}

// UpdateInstructions replaces the draft's system message, re-extracts
// its placeholder fields, and refills sample values. Values for fields
// that survived the edit are kept; only genuinely new fields are
// sampled.
func (e *AgentEditor) UpdateInstructions(ctx context.Context, systemMessage string) error {
	e.mu.Lock()
	draft := e.draft
	e.mu.Unlock()
	if draft == nil {
		return ErrNoDraft
	}

	fields := agentfields.ExtractFields(systemMessage)

	missing := make([]string, 0, len(fields))
	for _, field := range fields {
		if _, ok := draft.SampleValues[field]; !ok {
			missing = append(missing, field)
		}
	}

	sampled := map[string]string{}
	if len(missing) > 0 {
		var err error
		sampled, err = e.api.SampleDetails(ctx, missing)
		if err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft != draft {
		return ErrNoDraft
	}
	draft.SystemMessage = systemMessage
	draft.Fields = fields
	draft.SampleValues = agentfields.MergeSampleValues(fields, draft.SampleValues, sampled)
	return nil
}

// Save publishes the draft as the new active version. On success the
// other cached versions of the same base flip inactive and the new
// version is selected; the draft closes.
func (e *AgentEditor) Save(ctx context.Context) (types.Agent, error) {
	e.mu.Lock()
	draft := e.draft
	e.mu.Unlock()
	if draft == nil {
		return types.Agent{}, ErrNoDraft
	}

	agent, err := e.api.NewAgentVersion(ctx, types.AgentBase{
		BaseID:        draft.BaseID,
		Name:          draft.Name,
		SystemMessage: draft.SystemMessage,
		Active:        true,
		SampleValues:  draft.SampleValues,
	})
	if err != nil {
		return types.Agent{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.agents {
		if e.agents[i].BaseID == agent.BaseID {
			e.agents[i].Active = false
		}
	}
	e.agents = append([]types.Agent{agent}, e.agents...)
	e.selected = agent.ID
	e.draft = nil
	return agent, nil
}

// Discard drops the open draft.
func (e *AgentEditor) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = nil
}
