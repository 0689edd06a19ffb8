package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/scenedl/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketInstalls = []byte("installs")
)

// HistoryStore implements domain.HistoryStore using BoltDB.
type HistoryStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory copy of every record, keyed by scene name
	cache map[string]domain.InstallRecord
}

// NewHistoryStore opens (or creates) the history database at path.
// An empty path gives a memory-only store.
func NewHistoryStore(path string) (*HistoryStore, error) {
	s := &HistoryStore{cache: make(map[string]domain.InstallRecord)}
	if path == "" {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketInstalls)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	// Warm the cache; the history is a handful of records.
	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInstalls).ForEach(func(k, v []byte) error {
			var rec domain.InstallRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil // Skip records from an incompatible version
			}
			s.cache[string(k)] = rec
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

func (s *HistoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores rec under its scene name, replacing any earlier install.
func (s *HistoryStore) Record(rec domain.InstallRecord) error {
	if rec.Scene == "" {
		return fmt.Errorf("install record has no scene name")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	if s.db != nil {
		err = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketInstalls).Put([]byte(rec.Scene), data)
		})
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.cache[rec.Scene] = rec
	s.mu.Unlock()
	return nil
}

func (s *HistoryStore) Get(scene string) (domain.InstallRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.cache[scene]
	return rec, ok
}

// List returns all records sorted by scene name.
func (s *HistoryStore) List() []domain.InstallRecord {
	s.mu.RLock()
	records := make([]domain.InstallRecord, 0, len(s.cache))
	for _, rec := range s.cache {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].Scene < records[j].Scene
	})
	return records
}

// Clear wipes every record.
func (s *HistoryStore) Clear() error {
	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			if err := tx.DeleteBucket(bucketInstalls); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
			_, err := tx.CreateBucket(bucketInstalls)
			return err
		})
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.cache = make(map[string]domain.InstallRecord)
	s.mu.Unlock()
	return nil
}
