// Package store persists terminated processes and log entries in an embedded
// bbolt database.
//
// Each record kind has its own bucket. Keys are the bucket's big-endian
// sequence number, so cursor order is insertion order and reading newest
// first is a reverse cursor walk. Values are JSON.
package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rileyhilliard/procmon/internal/errors"
	bolt "go.etcd.io/bbolt"
)

var (
	terminatedBucket = []byte("terminated_processes")
	logsBucket       = []byte("logs")
)

// DefaultLockTimeout is how long Open waits for another process holding the
// database file.
const DefaultLockTimeout = time.Second

// TerminatedProcess is one persisted termination.
type TerminatedProcess struct {
	ID           uint64    `json:"id"`
	Time         time.Time `json:"time"`
	Name         string    `json:"name"`
	PID          int32     `json:"pid"`
	MemoryMB     float64   `json:"memory_mb"`
	CPUPercent   float64   `json:"cpu_percent"`
	Status       string    `json:"status"`
	TerminatedBy string    `json:"terminated_by"`
	Elevated     bool      `json:"elevated"`
}

// LogEntry is one persisted log line.
type LogEntry struct {
	ID      uint64    `json:"id"`
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
}

// Query filters reads. Zero fields don't filter.
type Query struct {
	// Limit caps the number of results.
	Limit int
	// Since and Until bound the record time, inclusive.
	Since time.Time
	Until time.Time
	// Level matches log entries case-insensitively. Ignored for terminations.
	Level string
}

func (q Query) matchTime(t time.Time) bool {
	if !q.Since.IsZero() && t.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && t.After(q.Until) {
		return false
	}
	return true
}

// Store is a handle to the procmon database. It is safe for concurrent use.
type Store struct {
	db   *bolt.DB
	path string
}

// Options configures Open.
type Options struct {
	LockTimeout time.Duration
}

// Open opens or creates the database at path, creating parent directories.
func Open(path string, opts Options) (*Store, error) {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			fmt.Sprintf("Couldn't create the directory for %s", path),
			"Check permissions or set storage.path in your config")
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: opts.LockTimeout})
	if err != nil {
		suggestion := "Check that the file is a procmon database and is writable"
		if errors.Is(err, bolt.ErrTimeout) {
			suggestion = "Another procmon instance holds the database. Close it or set storage.enabled: false"
		}
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			fmt.Sprintf("Couldn't open database %s", path),
			suggestion)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{terminatedBucket, logsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Couldn't initialize database buckets", "")
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddTerminatedProcess stores a termination and returns its ID.
// A zero Time is replaced with the current time.
func (s *Store) AddTerminatedProcess(ctx context.Context, rec TerminatedProcess) (uint64, error) {
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	return s.put(ctx, terminatedBucket, func(id uint64) any {
		rec.ID = id
		return rec
	})
}

// AddLogEntry stores a log line. Its signature matches logger.Recorder.
func (s *Store) AddLogEntry(ctx context.Context, level, source, message string, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.put(ctx, logsBucket, func(id uint64) any {
		return LogEntry{ID: id, Time: at, Level: level, Source: source, Message: message}
	})
	return err
}

// TerminatedProcesses returns matching terminations, newest first.
func (s *Store) TerminatedProcesses(ctx context.Context, q Query) ([]TerminatedProcess, error) {
	var out []TerminatedProcess
	err := s.scan(ctx, terminatedBucket, q.Limit, func(v []byte) (bool, error) {
		var rec TerminatedProcess
		if err := json.Unmarshal(v, &rec); err != nil {
			return false, err
		}
		if !q.matchTime(rec.Time) {
			return false, nil
		}
		out = append(out, rec)
		return true, nil
	})
	return out, err
}

// Logs returns matching log entries, newest first.
func (s *Store) Logs(ctx context.Context, q Query) ([]LogEntry, error) {
	var out []LogEntry
	err := s.scan(ctx, logsBucket, q.Limit, func(v []byte) (bool, error) {
		var e LogEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return false, err
		}
		if q.Level != "" && !strings.EqualFold(e.Level, q.Level) {
			return false, nil
		}
		if !q.matchTime(e.Time) {
			return false, nil
		}
		out = append(out, e)
		return true, nil
	})
	return out, err
}

// Counts returns the number of stored terminations and log entries.
func (s *Store) Counts(ctx context.Context) (terminated, logs int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	err = s.db.View(func(tx *bolt.Tx) error {
		terminated = tx.Bucket(terminatedBucket).Stats().KeyN
		logs = tx.Bucket(logsBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, 0, errors.WrapWithCode(err, errors.ErrStore, "Couldn't read database stats", "")
	}
	return terminated, logs, nil
}

func (s *Store) put(ctx context.Context, bucket []byte, build func(id uint64) any) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var id uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(build(seq))
		if err != nil {
			return err
		}
		id = seq
		return b.Put(itob(seq), data)
	})
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrStore,
			fmt.Sprintf("Couldn't write to %s", bucket), "")
	}
	return id, nil
}

// scan walks bucket newest first. visit reports whether the value was kept;
// the walk stops once limit values are kept (limit <= 0 means no limit).
func (s *Store) scan(ctx context.Context, bucket []byte, limit int, visit func(v []byte) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		kept := 0
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			ok, err := visit(v)
			if err != nil {
				return fmt.Errorf("decode record %d: %w", btoi(k), err)
			}
			if ok {
				kept++
				if limit > 0 && kept >= limit {
					return nil
				}
			}
		}
		return nil
	})
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrStore,
			fmt.Sprintf("Couldn't read %s", bucket), "")
	}
	return nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
