package bus

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite: channel replaces target, and the whole Message is
// stored as JSON rather than a fixed column set, since message
// shape varies by type.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps db and ensures the messages table exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("bus: init schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bus_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel TEXT NOT NULL,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		delivered_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_bus_messages_channel ON bus_messages(channel, delivered_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save persists msg against channel.
func (s *SQLiteStore) Save(channel string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("bus: marshal message: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO bus_messages (channel, type, payload, created_at, delivered_at) VALUES (?, ?, ?, ?, NULL)`,
		channel, string(msg.Type), string(payload), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("bus: insert message: %w", err)
	}
	return nil
}

// GetPending returns undelivered messages for channel, oldest first.
func (s *SQLiteStore) GetPending(channel string) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT payload FROM bus_messages WHERE channel = ? AND delivered_at IS NULL ORDER BY created_at ASC`,
		channel,
	)
	if err != nil {
		return nil, fmt.Errorf("bus: query pending: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("bus: scan pending row: %w", err)
		}
		var msg Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, fmt.Errorf("bus: unmarshal pending row: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// MarkDelivered marks the oldest undelivered row matching channel and
// msg.Type as delivered. Messages aren't individually addressed by id on
// the wire, so matching is on channel + type only, taking rows in
// created_at order, which is sufficient for the catch-up use case (a reconnecting client
// drains GetPending once, in order, immediately after subscribing).
func (s *SQLiteStore) MarkDelivered(channel string, msg Message) error {
	_, err := s.db.Exec(
		`UPDATE bus_messages SET delivered_at = ? WHERE id = (
			SELECT id FROM bus_messages WHERE channel = ? AND type = ? AND delivered_at IS NULL
			ORDER BY created_at ASC LIMIT 1
		)`,
		time.Now(), channel, string(msg.Type),
	)
	if err != nil {
		return fmt.Errorf("bus: mark delivered: %w", err)
	}
	return nil
}

// Cleanup deletes delivered messages older than olderThan, mirroring the
// teacher's events.SQLiteStore.Cleanup.
func (s *SQLiteStore) Cleanup(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	_, err := s.db.Exec(`DELETE FROM bus_messages WHERE delivered_at IS NOT NULL AND created_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("bus: cleanup: %w", err)
	}
	return nil
}
