package cache

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/renameio/v2"
)

// snapshotEntry is the on-disk shape of one MemoryStore record.
type snapshotEntry struct {
	Box     Box       `json:"box"`
	Key     string    `json:"key"`
	Value   []byte    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

// Snapshot atomically writes every live entry in s to path, so an in-memory
// fallback store (spec.md §4.6 "Recovery") can survive a graceful restart
// even without a working on-disk backend. Uses renameio the same way the
// teacher durably persists playlist/XMLTV output: write to a pending file,
// fsync, atomic rename.
func (s *MemoryStore) Snapshot(path string) error {
	s.mu.Lock()
	var entries []snapshotEntry
	now := s.clock()
	for box, b := range s.boxes {
		for k, e := range b {
			if !e.expires.IsZero() && now.After(e.expires) {
				continue
			}
			entries = append(entries, snapshotEntry{Box: box, Key: k, Value: e.value, Expires: e.expires})
		}
	}
	s.mu.Unlock()

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return err
	}
	defer func() { _ = pendingFile.Cleanup() }()

	if err := json.NewEncoder(pendingFile).Encode(entries); err != nil {
		return err
	}
	return pendingFile.CloseAtomicallyReplace()
}

// LoadSnapshot populates a new MemoryStore from a file written by Snapshot.
// A missing file is not an error — it means there is nothing to recover.
func LoadSnapshot(path string) (*MemoryStore, error) {
	s := NewMemoryStore()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	now := s.clock()
	for _, e := range entries {
		if !e.Expires.IsZero() && now.After(e.Expires) {
			continue
		}
		b, ok := s.boxes[e.Box]
		if !ok {
			b = make(map[string]memoryEntry)
			s.boxes[e.Box] = b
		}
		b[e.Key] = memoryEntry{value: e.Value, expires: e.Expires}
	}
	return s, nil
}
