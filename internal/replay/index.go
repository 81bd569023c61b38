package replay

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/apollion69/nordhold-calculator/internal/model"
)

// Index is a bbolt-backed lookup cache over a Store's JSON session files: it
// speeds up "list sessions" and "latest snapshot" queries without becoming a
// second source of truth. Losing the bolt file and rebuilding it from the
// JSON files on disk must always recover the exact same contents.
type Index struct {
	db *bolt.DB
}

const (
	indexBucketSessions = "sessions"
	indexFileName       = "replay_index.bolt"
)

// sessionIndexEntry is the cached summary of one session, enough to answer
// listing queries without reopening and parsing its JSON file.
type sessionIndexEntry struct {
	SessionID     string  `json:"session_id"`
	Source        string  `json:"source"`
	SnapshotCount int     `json:"snapshot_count"`
	FirstWave     int     `json:"first_wave"`
	LastWave      int     `json:"last_wave"`
	LastTimestamp float64 `json:"last_timestamp"`
	IndexedAtUTC  string  `json:"indexed_at_utc"`
}

// OpenIndex opens (creating if necessary) the bbolt cache file alongside a
// Store's replays directory.
func OpenIndex(store *Store) (*Index, error) {
	path := filepath.Join(store.ReplaysDir, indexFileName)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening replay index at %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(indexBucketSessions))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

// Close closes the underlying bbolt file.
func (idx *Index) Close() error { return idx.db.Close() }

func summarize(session model.ReplaySession) sessionIndexEntry {
	entry := sessionIndexEntry{
		SessionID:     session.SessionID,
		Source:        session.Source,
		SnapshotCount: len(session.Snapshots),
		IndexedAtUTC:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if len(session.Snapshots) > 0 {
		entry.FirstWave = session.Snapshots[0].Wave
		last := session.Snapshots[len(session.Snapshots)-1]
		entry.LastWave = last.Wave
		entry.LastTimestamp = last.Timestamp
	}
	return entry
}

// Put records (or updates) one session's cached summary after an import.
func (idx *Index) Put(session model.ReplaySession) error {
	raw, err := json.Marshal(summarize(session))
	if err != nil {
		return err
	}
	return idx.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(indexBucketSessions)).Put([]byte(session.SessionID), raw)
	})
}

// List returns every cached session summary. bbolt iteration order is
// key-sorted (lexicographically by session id), which is stable but not
// otherwise meaningful.
func (idx *Index) List() ([]sessionIndexEntry, error) {
	var out []sessionIndexEntry
	err := idx.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(indexBucketSessions)).ForEach(func(_, v []byte) error {
			var entry sessionIndexEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			out = append(out, entry)
			return nil
		})
	})
	return out, err
}

// Rebuild discards the cache and repopulates it by re-loading each of
// sessionIDs from store — the recovery path when the bbolt file is lost or
// deemed stale, since the JSON session files remain the contractual source
// of truth.
func (idx *Index) Rebuild(store *Store, sessionIDs []string) error {
	return idx.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(indexBucketSessions)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		bucket, err := tx.CreateBucket([]byte(indexBucketSessions))
		if err != nil {
			return err
		}
		for _, id := range sessionIDs {
			session, err := store.LoadSession(id)
			if err != nil {
				continue
			}
			raw, err := json.Marshal(summarize(session))
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(id), raw); err != nil {
				return err
			}
		}
		return nil
	})
}
