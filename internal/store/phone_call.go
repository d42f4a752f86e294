package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PhoneCall is one outbound call placed through the carrier.
type PhoneCall struct {
	ID              uuid.UUID       `db:"id"`
	FromPhoneNumber string          `db:"from_phone_number"`
	ToPhoneNumber   string          `db:"to_phone_number"`
	InputData       StringMap       `db:"input_data"`
	AgentID         uuid.UUID       `db:"agent_id"`
	CallSID         sql.NullString  `db:"call_sid"`
	CallData        sql.NullString  `db:"call_data"`
	SpeakerSegments SpeakerSegments `db:"speaker_segments"`
	CreatedAt       time.Time       `db:"created_at"`
}

// PhoneCallEvent is one carrier status callback payload for a call.
type PhoneCallEvent struct {
	ID          uuid.UUID `db:"id"`
	PhoneCallID uuid.UUID `db:"phone_call_id"`
	Payload     JSONB     `db:"payload"`
	CreatedAt   time.Time `db:"created_at"`
}

// CreatePhoneCallParams represents parameters for inserting a phone call
type CreatePhoneCallParams struct {
	FromPhoneNumber string
	ToPhoneNumber   string
	InputData       StringMap
	AgentID         uuid.UUID
}

const sqlCreatePhoneCall = `
INSERT INTO phone_calls (id, from_phone_number, to_phone_number, input_data, agent_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, from_phone_number, to_phone_number, input_data, agent_id, call_sid, call_data, speaker_segments, created_at
`

// CreatePhoneCall inserts a new phone call record
func (s *Store) CreatePhoneCall(ctx context.Context, params CreatePhoneCallParams) (PhoneCall, error) {
	var call PhoneCall
	err := s.db.GetContext(ctx, &call, sqlCreatePhoneCall,
		uuid.New(),
		params.FromPhoneNumber,
		params.ToPhoneNumber,
		params.InputData,
		params.AgentID)
	if err != nil {
		s.logger.Error(ctx, "failed to create phone call", err)
		return PhoneCall{}, fmt.Errorf("failed to create phone call: %w", err)
	}
	return call, nil
}

const sqlGetPhoneCall = `
SELECT id, from_phone_number, to_phone_number, input_data, agent_id, call_sid, call_data, speaker_segments, created_at
FROM phone_calls
WHERE id = $1
`

// GetPhoneCall returns a phone call by id
func (s *Store) GetPhoneCall(ctx context.Context, id uuid.UUID) (PhoneCall, error) {
	var call PhoneCall
	err := s.db.GetContext(ctx, &call, sqlGetPhoneCall, id)
	if errors.Is(err, sql.ErrNoRows) {
		return PhoneCall{}, ErrNotFound
	}
	if err != nil {
		s.logger.Error(ctx, "failed to get phone call", err)
		return PhoneCall{}, fmt.Errorf("failed to get phone call: %w", err)
	}
	return call, nil
}

const sqlSetPhoneCallSID = `
UPDATE phone_calls SET call_sid = $2 WHERE id = $1
`

// SetPhoneCallSID records the carrier call sid once the call is placed
func (s *Store) SetPhoneCallSID(ctx context.Context, id uuid.UUID, callSID string) error {
	if _, err := s.db.ExecContext(ctx, sqlSetPhoneCallSID, id, callSID); err != nil {
		s.logger.Error(ctx, "failed to set phone call sid", err)
		return fmt.Errorf("failed to set phone call sid: %w", err)
	}
	return nil
}

const sqlUpdatePhoneCallResults = `
UPDATE phone_calls SET call_data = $2, speaker_segments = $3 WHERE id = $1
`

// UpdatePhoneCallResults records where the call recording landed along with
// the finalized speaker segments once the call wraps up.
func (s *Store) UpdatePhoneCallResults(ctx context.Context, id uuid.UUID, callData string, segments SpeakerSegments) error {
	if _, err := s.db.ExecContext(ctx, sqlUpdatePhoneCallResults, id, callData, segments); err != nil {
		s.logger.Error(ctx, "failed to update phone call results", err)
		return fmt.Errorf("failed to update phone call results: %w", err)
	}
	return nil
}

const sqlGetPhoneCalls = `
SELECT id, from_phone_number, to_phone_number, input_data, agent_id, call_sid, call_data, speaker_segments, created_at
FROM phone_calls
ORDER BY created_at DESC
`

// GetPhoneCalls returns all phone calls, newest first
func (s *Store) GetPhoneCalls(ctx context.Context) ([]PhoneCall, error) {
	var calls []PhoneCall
	if err := s.db.SelectContext(ctx, &calls, sqlGetPhoneCalls); err != nil {
		s.logger.Error(ctx, "failed to list phone calls", err)
		return nil, fmt.Errorf("failed to list phone calls: %w", err)
	}
	return calls, nil
}

const sqlInsertPhoneCallEvent = `
INSERT INTO phone_call_events (id, phone_call_id, payload)
VALUES ($1, $2, $3)
`

// InsertPhoneCallEvent appends a carrier status callback payload
func (s *Store) InsertPhoneCallEvent(ctx context.Context, phoneCallID uuid.UUID, payload JSONB) error {
	if _, err := s.db.ExecContext(ctx, sqlInsertPhoneCallEvent, uuid.New(), phoneCallID, payload); err != nil {
		s.logger.Error(ctx, "failed to insert phone call event", err)
		return fmt.Errorf("failed to insert phone call event: %w", err)
	}
	return nil
}

const sqlGetPhoneCallEvents = `
SELECT id, phone_call_id, payload, created_at
FROM phone_call_events
WHERE phone_call_id = $1
ORDER BY created_at
`

// GetPhoneCallEvents returns all carrier events for a call in arrival order
func (s *Store) GetPhoneCallEvents(ctx context.Context, phoneCallID uuid.UUID) ([]PhoneCallEvent, error) {
	var events []PhoneCallEvent
	if err := s.db.SelectContext(ctx, &events, sqlGetPhoneCallEvents, phoneCallID); err != nil {
		s.logger.Error(ctx, "failed to list phone call events", err)
		return nil, fmt.Errorf("failed to list phone call events: %w", err)
	}
	return events, nil
}
