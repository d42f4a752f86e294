package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Agent is one stored agent version. Versions are append-only per BaseID.
type Agent struct {
	ID            uuid.UUID `db:"id"`
	BaseID        uuid.UUID `db:"base_id"`
	Name          string    `db:"name"`
	SystemMessage string    `db:"system_message"`
	Active        bool      `db:"active"`
	SampleValues  StringMap `db:"sample_values"`
	CreatedAt     time.Time `db:"created_at"`
}

// CreateAgentParams represents parameters for inserting an agent version
type CreateAgentParams struct {
	BaseID        uuid.UUID
	Name          string
	SystemMessage string
	Active        bool
	SampleValues  StringMap
}

const sqlDeactivateAgentVersions = `
UPDATE agents SET active = FALSE WHERE base_id = $1
`

const sqlInsertAgent = `
INSERT INTO agents (id, base_id, name, system_message, active, sample_values)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, base_id, name, system_message, active, sample_values, created_at
`

// CreateAgent inserts a new agent version. When the new version is active,
// every other version of the same base is deactivated in the same
// transaction, so at most one version per base is active at any time.
func (s *Store) CreateAgent(ctx context.Context, params CreateAgentParams) (Agent, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Agent{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if params.Active {
		if _, err := tx.ExecContext(ctx, sqlDeactivateAgentVersions, params.BaseID); err != nil {
			s.logger.Error(ctx, "failed to deactivate agent versions", err)
			return Agent{}, fmt.Errorf("failed to deactivate agent versions: %w", err)
		}
	}

	var agent Agent
	err = tx.GetContext(ctx, &agent, sqlInsertAgent,
		uuid.New(),
		params.BaseID,
		params.Name,
		params.SystemMessage,
		params.Active,
		params.SampleValues)
	if err != nil {
		s.logger.Error(ctx, "failed to insert agent", err)
		return Agent{}, fmt.Errorf("failed to insert agent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Agent{}, fmt.Errorf("failed to commit agent insert: %w", err)
	}
	return agent, nil
}

const sqlGetAgents = `
SELECT id, base_id, name, system_message, active, sample_values, created_at
FROM agents
ORDER BY base_id, created_at DESC
`

// GetAgents returns all agent versions across all bases
func (s *Store) GetAgents(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := s.db.SelectContext(ctx, &agents, sqlGetAgents); err != nil {
		s.logger.Error(ctx, "failed to list agents", err)
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return agents, nil
}

const sqlGetAgent = `
SELECT id, base_id, name, system_message, active, sample_values, created_at
FROM agents
WHERE id = $1
`

// GetAgent returns a single agent version by id
func (s *Store) GetAgent(ctx context.Context, id uuid.UUID) (Agent, error) {
	var agent Agent
	err := s.db.GetContext(ctx, &agent, sqlGetAgent, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	if err != nil {
		s.logger.Error(ctx, "failed to get agent", err)
		return Agent{}, fmt.Errorf("failed to get agent: %w", err)
	}
	return agent, nil
}

const sqlGetActiveAgent = `
SELECT id, base_id, name, system_message, active, sample_values, created_at
FROM agents
WHERE base_id = $1 AND active = TRUE
`

// GetActiveAgent returns the active version for the given base
func (s *Store) GetActiveAgent(ctx context.Context, baseID uuid.UUID) (Agent, error) {
	var agent Agent
	err := s.db.GetContext(ctx, &agent, sqlGetActiveAgent, baseID)
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	if err != nil {
		s.logger.Error(ctx, "failed to get active agent", err)
		return Agent{}, fmt.Errorf("failed to get active agent: %w", err)
	}
	return agent, nil
}
