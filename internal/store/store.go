package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketInvocations = []byte("invocations")

// DefaultMaxEntries bounds the invocation log when no limit is configured.
const DefaultMaxEntries = 500

// Record is one invocation as seen by the bridge. Prompt and reply bodies are
// not persisted, only their sizes.
type Record struct {
	ID          string    `json:"id"`
	AgentID     string    `json:"agent_id"`
	Mode        string    `json:"mode"`
	PromptChars int       `json:"prompt_chars"`
	ReplyChars  int       `json:"reply_chars"`
	DurationMs  int64     `json:"duration_ms"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

// Store wraps a BoltDB instance holding the bounded invocation log.
type Store struct {
	db         *bolt.DB
	maxEntries int
}

// New opens (or creates) the database at the given path.
func New(path string, maxEntries int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketInvocations)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{db: db, maxEntries: maxEntries}, nil
}

// Close releases the underlying DB handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append stores rec, filling ID and At when empty, and trims the log to maxEntries.
func (s *Store) Append(rec Record) error {
	if rec.AgentID == "" {
		return errors.New("record has no agent id")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketInvocations)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(seq), data); err != nil {
			return err
		}
		return trim(b, s.maxEntries)
	})
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	out := make([]Record, 0, limit)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketInvocations).Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// trim deletes the oldest entries beyond max. Keys are big-endian sequences,
// so the cursor walks oldest first.
func trim(b *bolt.Bucket, max int) error {
	c := b.Cursor()
	n := 0
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	excess := n - max
	if excess <= 0 {
		return nil
	}
	stale := make([][]byte, 0, excess)
	for k, _ := c.First(); k != nil && len(stale) < excess; k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
