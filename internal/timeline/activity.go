// Package timeline records inbound and outbound activity per account for
// external status reporting.
package timeline

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS activity (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id TEXT NOT NULL,
	direction TEXT NOT NULL,
	chat_id TEXT DEFAULT '',
	event_type TEXT DEFAULT '',
	trace_id TEXT DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_activity_account ON activity(account_id, direction, created_at);
`

// Service is a sqlite-backed activity log.
type Service struct {
	db *sql.DB
}

// New opens (or creates) the activity database at dbPath.
func New(dbPath string) (*Service, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open activity db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply activity schema: %w", err)
	}
	return &Service{db: db}, nil
}

// RecordInbound logs one inbound event.
func (s *Service) RecordInbound(accountID, chatID, eventType, traceID string) error {
	return s.record(accountID, "in", chatID, eventType, traceID)
}

// RecordOutbound logs one outbound send.
func (s *Service) RecordOutbound(accountID, chatID, traceID string) error {
	return s.record(accountID, "out", chatID, "message_send", traceID)
}

func (s *Service) record(accountID, direction, chatID, eventType, traceID string) error {
	_, err := s.db.Exec(
		`INSERT INTO activity (account_id, direction, chat_id, event_type, trace_id) VALUES (?, ?, ?, ?, ?)`,
		accountID, direction, chatID, eventType, traceID,
	)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// Activity holds the newest inbound/outbound timestamps for one account.
// Nil fields mean no recorded activity in that direction.
type Activity struct {
	LastInboundAt  *time.Time
	LastOutboundAt *time.Time
}

// LastActivity returns the newest activity timestamps for accountID.
func (s *Service) LastActivity(accountID string) (*Activity, error) {
	out := &Activity{}
	for direction, target := range map[string]**time.Time{
		"in":  &out.LastInboundAt,
		"out": &out.LastOutboundAt,
	} {
		var ts sql.NullTime
		err := s.db.QueryRow(
			`SELECT MAX(created_at) FROM activity WHERE account_id = ? AND direction = ?`,
			accountID, direction,
		).Scan(&ts)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("query last activity: %w", err)
		}
		if ts.Valid {
			t := ts.Time
			*target = &t
		}
	}
	return out, nil
}

// Close releases the database handle.
func (s *Service) Close() error {
	return s.db.Close()
}
