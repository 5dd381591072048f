package feed

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/untreu2/divinefeed/internal/sqlitedb"
)

// SQLiteSeenStore is a durable alternative to the in-memory seenIDSet used
// by AlreadySeenService (spec.md §4.2 admission rule 5): unlike the bounded
// LRU, entries here persist across restarts and are never evicted by size,
// only aged out by PruneOlderThan.
type SQLiteSeenStore struct {
	db *sql.DB
}

// OpenSQLiteSeenStore opens (creating if absent) the seen-id table at
// dbPath.
func OpenSQLiteSeenStore(dbPath string) (*SQLiteSeenStore, error) {
	db, err := sqlitedb.Open(dbPath, sqlitedb.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &SQLiteSeenStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seen store: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteSeenStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS seen_events (
			id TEXT PRIMARY KEY,
			seen_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_seen_events_seen_at ON seen_events(seen_at);
	`)
	return err
}

// HasSeen satisfies AlreadySeenService.
func (s *SQLiteSeenStore) HasSeen(id string) bool {
	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM seen_events WHERE id = ?`, id).Scan(&exists)
	return err == nil
}

// MarkSeen records id as seen at now. Safe to call redundantly.
func (s *SQLiteSeenStore) MarkSeen(id string, now time.Time) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO seen_events (id, seen_at) VALUES (?, ?)`, id, now.Unix())
	return err
}

// PruneOlderThan deletes every record seen before cutoff, bounding table
// growth the same way spec.md §4.2 bounds the in-memory LRU, but on an
// explicit schedule instead of access-triggered eviction.
func (s *SQLiteSeenStore) PruneOlderThan(cutoff time.Time) error {
	_, err := s.db.Exec(`DELETE FROM seen_events WHERE seen_at < ?`, cutoff.Unix())
	return err
}

func (s *SQLiteSeenStore) Close() error { return s.db.Close() }
