package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	runBucket    = "runs"
	runKeyLength = 8
)

var errBucketMissing = errors.New("run bucket missing")

// boltStore implements a Store backed by BoltDB. Keys are the big-endian
// start time in nanoseconds so a cursor walks runs chronologically.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	runTTL          time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (*boltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		runTTL:          opts.RunTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// RecordRun stores rec keyed by its start time. Records sharing a start
// instant are nudged forward a nanosecond rather than overwritten.
func (b *boltStore) RecordRun(rec RunRecord) error {
	if b == nil || b.db == nil {
		return nil
	}
	if rec.StartedAt.IsZero() {
		return errors.New("run record has no start time")
	}

	if err := b.maybeCleanupExpired(b.now()); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucket))
		if bucket == nil {
			return errBucketMissing
		}

		nanos := rec.StartedAt.UnixNano()
		key := encodeKey(nanos)
		for bucket.Get(key) != nil {
			nanos++
			key = encodeKey(nanos)
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("%d", nanos)
		}

		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode run record: %w", err)
		}
		return bucket.Put(key, raw)
	})
}

// Runs returns stored runs, newest first.
func (b *boltStore) Runs(limit int) ([]RunRecord, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}

	var out []RunRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucket))
		if bucket == nil {
			return errBucketMissing
		}

		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode run record: %w", err)
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// maybeCleanupExpired removes runs older than the TTL on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	cutoff := now.Add(-b.runTTL).UnixNano()
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucket))
		if bucket == nil {
			return errBucketMissing
		}

		cursor := bucket.Cursor()
		for k, _ := cursor.First(); k != nil; k, _ = cursor.First() {
			started, ok := decodeKey(k)
			if ok && started >= cutoff {
				break
			}
			if err := cursor.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

func encodeKey(nanos int64) []byte {
	buf := make([]byte, runKeyLength)
	binary.BigEndian.PutUint64(buf, uint64(nanos))
	return buf
}

// decodeKey decodes the start time stored in a run key.
func decodeKey(key []byte) (int64, bool) {
	if len(key) != runKeyLength {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(key)), true
}
