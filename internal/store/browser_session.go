package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BrowserSession is the persisted event log of one browser-side realtime
// session. Data holds the raw session events in arrival order.
type BrowserSession struct {
	ID        string       `db:"id"`
	Data      RawJSONArray `db:"data"`
	UserInfo  StringMap    `db:"user_info"`
	CreatedAt time.Time    `db:"created_at"`
}

const sqlUpsertBrowserSession = `
INSERT INTO browser_sessions (id, data, user_info)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, user_info = EXCLUDED.user_info
`

// StoreBrowserSession persists a session event log keyed by the ephemeral
// session id. Re-storing the same id replaces the log.
func (s *Store) StoreBrowserSession(ctx context.Context, sessionID string, data RawJSONArray, userInfo StringMap) error {
	if _, err := s.db.ExecContext(ctx, sqlUpsertBrowserSession, sessionID, data, userInfo); err != nil {
		s.logger.Error(ctx, "failed to store browser session", err)
		return fmt.Errorf("failed to store browser session: %w", err)
	}
	return nil
}

const sqlGetBrowserSession = `
SELECT id, data, user_info, created_at
FROM browser_sessions
WHERE id = $1
`

// GetBrowserSession returns a stored session log by id
func (s *Store) GetBrowserSession(ctx context.Context, sessionID string) (BrowserSession, error) {
	var session BrowserSession
	err := s.db.GetContext(ctx, &session, sqlGetBrowserSession, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return BrowserSession{}, ErrNotFound
	}
	if err != nil {
		s.logger.Error(ctx, "failed to get browser session", err)
		return BrowserSession{}, fmt.Errorf("failed to get browser session: %w", err)
	}
	return session, nil
}
