// Package bolt stores the progress document in a bbolt file. The document,
// its revision and digest live in one bucket named after the store key;
// saved revisions are summarized in a history sub-bucket.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
	"github.com/hampton/progress-tracker/pkg/digest"
)

var (
	keyDocument = []byte("document")
	keyRevision = []byte("revision")
	keyDigest   = []byte("digest")
	keyHistory  = []byte("history")
)

// Config holds bbolt store configuration.
type Config struct {
	Path string

	// Key names the bucket holding the document.
	Key string

	// Timeout bounds waiting for the file lock held by another process.
	Timeout time.Duration

	// HistoryLimit caps history entries; 0 keeps everything.
	HistoryLimit int

	Logger *slog.Logger
}

// DefaultConfig returns defaults for a database at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:         path,
		Key:          "hampton_progress",
		Timeout:      2 * time.Second,
		HistoryLimit: 500,
	}
}

// Store implements progress.VersionedRepository and progress.HistoryRepository.
type Store struct {
	db     *bolt.DB
	bucket []byte
	limit  int
	logger *slog.Logger
}

var (
	_ progress.VersionedRepository = (*Store)(nil)
	_ progress.HistoryRepository   = (*Store)(nil)
)

// Open opens the bbolt file, creating it and the bucket if needed.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, persistenceError("Open", "database path is required", nil)
	}
	if cfg.Key == "" {
		cfg.Key = DefaultConfig(cfg.Path).Key
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: cfg.Timeout})
	if err != nil {
		return nil, persistenceError("Open", "open database", err)
	}

	bucket := []byte(cfg.Key)
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		_, err = b.CreateBucketIfNotExists(keyHistory)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, persistenceError("Open", "create bucket", err)
	}

	return &Store{db: db, bucket: bucket, limit: cfg.HistoryLimit, logger: cfg.Logger}, nil
}

// Load implements progress.Repository.
func (s *Store) Load(ctx context.Context) (*progress.State, error) {
	st, _, err := s.LoadVersion(ctx)
	return st, err
}

// LoadVersion returns the document and its revision.
func (s *Store) LoadVersion(_ context.Context) (*progress.State, int64, error) {
	var (
		st  *progress.State
		rev int64
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		doc := b.Get(keyDocument)
		if doc == nil {
			return shared.ErrStateNotFound
		}
		st = &progress.State{}
		if err := json.Unmarshal(doc, st); err != nil {
			return persistenceError("Load", "decode document", err)
		}
		rev = decodeRevision(b.Get(keyRevision))
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return st, rev, nil
}

// Revision returns the stored revision without decoding the document.
func (s *Store) Revision(_ context.Context) (int64, error) {
	var rev int64
	err := s.db.View(func(tx *bolt.Tx) error {
		rev = decodeRevision(tx.Bucket(s.bucket).Get(keyRevision))
		return nil
	})
	if err != nil {
		return 0, persistenceError("Revision", "read revision", err)
	}
	return rev, nil
}

// Save overwrites the document regardless of its revision.
func (s *Store) Save(ctx context.Context, st *progress.State) error {
	_, err := s.write(st, -1)
	return err
}

// SaveIfVersion writes only if the stored revision equals expected.
func (s *Store) SaveIfVersion(_ context.Context, st *progress.State, expected int64) (int64, error) {
	return s.write(st, expected)
}

func (s *Store) write(st *progress.State, expected int64) (int64, error) {
	doc, err := json.Marshal(st)
	if err != nil {
		return 0, persistenceError("Save", "encode document", err)
	}
	sum := digest.Sum(doc)

	var next int64
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		current := decodeRevision(b.Get(keyRevision))
		if expected >= 0 && current != expected {
			return persistenceError("SaveIfVersion", "revision moved", shared.ErrStaleRevision)
		}
		if current > 0 && string(b.Get(keyDigest)) == sum {
			next = current
			return nil
		}

		next = current + 1
		if err := b.Put(keyDocument, doc); err != nil {
			return err
		}
		if err := b.Put(keyRevision, encodeRevision(next)); err != nil {
			return err
		}
		if err := b.Put(keyDigest, []byte(sum)); err != nil {
			return err
		}
		return s.appendHistory(b.Bucket(keyHistory), progress.Snapshot{
			Revision: next,
			SavedAt:  time.Now().UTC(),
			XP:       st.XP,
			Level:    st.Level,
			Digest:   sum,
		})
	})
	if err != nil {
		if shared.IsPersistence(err) {
			return 0, err
		}
		return 0, persistenceError("Save", "write document", err)
	}
	return next, nil
}

func (s *Store) appendHistory(h *bolt.Bucket, snap progress.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := h.Put(encodeRevision(snap.Revision), data); err != nil {
		return err
	}
	if s.limit <= 0 {
		return nil
	}

	// Keys are big-endian revisions, so the cursor walks oldest first.
	var keys [][]byte
	c := h.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for i := 0; i < len(keys)-s.limit; i++ {
		if err := h.Delete(keys[i]); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the document and its history.
func (s *Store) Delete(_ context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil {
			return err
		}
		b, err := tx.CreateBucket(s.bucket)
		if err != nil {
			return err
		}
		_, err = b.CreateBucket(keyHistory)
		return err
	})
	if err != nil {
		return persistenceError("Delete", "delete document", err)
	}
	return nil
}

// History returns the most recent saves, newest first.
func (s *Store) History(_ context.Context, limit int) ([]progress.Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	var out []progress.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Bucket(keyHistory).Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			var snap progress.Snapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			out = append(out, snap)
		}
		return nil
	})
	if err != nil {
		return nil, persistenceError("History", "read history", err)
	}
	return out, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeRevision(rev int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(rev))
	return buf
}

func decodeRevision(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func persistenceError(op, message string, err error) error {
	return shared.WrapError("bolt", op, shared.ErrPersistence, message, err)
}
