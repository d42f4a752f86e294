package processor

import (
	"context"
	"errors"

	"github.com/pateli18/clinicontact/internal/apierrors"
	"github.com/pateli18/clinicontact/internal/clients/openai"
	"github.com/pateli18/clinicontact/internal/observability"
	"github.com/pateli18/clinicontact/internal/store"
	"github.com/pateli18/clinicontact/internal/types"

	"github.com/google/uuid"
)

// defaultSystemMessage seeds a freshly created agent. The {user_info}
// placeholder expands to the call's input values.
const defaultSystemMessage = `You are a friendly clinical study coordinator calling a participant to verify their enrollment details. Be warm, concise, and professional. Confirm the information you have on file and correct anything the participant updates.

Here is the information you have on file:
{user_info}

Once everything has been verified, thank the participant and end the call.`

// AgentStore defines the database operations required by AgentProcessor
type AgentStore interface {
	GetAgents(ctx context.Context) ([]store.Agent, error)
	GetAgent(ctx context.Context, id uuid.UUID) (store.Agent, error)
	GetActiveAgent(ctx context.Context, baseID uuid.UUID) (store.Agent, error)
	CreateAgent(ctx context.Context, params store.CreateAgentParams) (store.Agent, error)
}

// AgentProcessor manages agent versions and their sample input values.
type AgentProcessor struct {
	store     AgentStore
	openAIKey string
	logger    *observability.Logger
}

func New(agentStore AgentStore, openAIKey string, logger *observability.Logger) *AgentProcessor {
	return &AgentProcessor{
		store:     agentStore,
		openAIKey: openAIKey,
		logger:    logger,
	}
}

func toAgent(agent store.Agent) types.Agent {
	return types.Agent{
		ID:            agent.ID,
		BaseID:        agent.BaseID,
		Name:          agent.Name,
		SystemMessage: agent.SystemMessage,
		Active:        agent.Active,
		SampleValues:  agent.SampleValues,
		CreatedAt:     agent.CreatedAt,
	}
}

// List returns every agent version, newest first within each base.
func (p *AgentProcessor) List(ctx context.Context) ([]types.Agent, error) {
	agents, err := p.store.GetAgents(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Agent, 0, len(agents))
	for _, agent := range agents {
		out = append(out, toAgent(agent))
	}
	return out, nil
}

// CreateAgent creates a new agent with the default system message as its
// first, active version.
func (p *AgentProcessor) CreateAgent(ctx context.Context, name string) (types.Agent, error) {
	if name == "" {
		return types.Agent{}, apierrors.New(400, apierrors.CodeInvalidInput, "agent name is required")
	}
	agent, err := p.store.CreateAgent(ctx, store.CreateAgentParams{
		BaseID:        uuid.New(),
		Name:          name,
		SystemMessage: defaultSystemMessage,
		Active:        true,
	})
	if err != nil {
		return types.Agent{}, err
	}
	return toAgent(agent), nil
}

// CreateVersion appends a new version to an agent's chain. When the new
// version is active, all prior versions of the base are deactivated.
func (p *AgentProcessor) CreateVersion(ctx context.Context, base types.AgentBase) (types.Agent, error) {
	if base.BaseID == uuid.Nil {
		return types.Agent{}, apierrors.New(400, apierrors.CodeInvalidInput, "base_id is required")
	}
	if base.Name == "" || base.SystemMessage == "" {
		return types.Agent{}, apierrors.New(400, apierrors.CodeInvalidInput, "name and system_message are required")
	}

	agent, err := p.store.CreateAgent(ctx, store.CreateAgentParams{
		BaseID:        base.BaseID,
		Name:          base.Name,
		SystemMessage: base.SystemMessage,
		Active:        base.Active,
		SampleValues:  base.SampleValues,
	})
	if err != nil {
		return types.Agent{}, err
	}
	return toAgent(agent), nil
}

// Get returns one agent version.
func (p *AgentProcessor) Get(ctx context.Context, id uuid.UUID) (types.Agent, error) {
	agent, err := p.store.GetAgent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.Agent{}, apierrors.New(404, apierrors.CodeNotFound, "agent not found")
	}
	if err != nil {
		return types.Agent{}, err
	}
	return toAgent(agent), nil
}

// GetActive returns the active version of an agent line.
func (p *AgentProcessor) GetActive(ctx context.Context, baseID uuid.UUID) (types.Agent, error) {
	agent, err := p.store.GetActiveAgent(ctx, baseID)
	if errors.Is(err, store.ErrNotFound) {
		return types.Agent{}, apierrors.New(404, apierrors.CodeNotFound, "agent not found")
	}
	if err != nil {
		return types.Agent{}, err
	}
	return toAgent(agent), nil
}

// SampleDetails generates plausible sample values for a set of fields.
func (p *AgentProcessor) SampleDetails(ctx context.Context, fields []string) (map[string]string, error) {
	if len(fields) == 0 {
		return map[string]string{}, nil
	}
	values, err := openai.SampleValues(ctx, p.openAIKey, fields)
	if err != nil {
		p.logger.Error(ctx, "failed to sample field values", err)
		return nil, apierrors.New(502, apierrors.CodeCallUnavailable, "failed to generate sample values")
	}
	return values, nil
}
