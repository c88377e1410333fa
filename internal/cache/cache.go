// ABOUTME: Badger-backed snapshot cache of the latest derived aggregates per user.
// ABOUTME: Refreshed after each aggregation run, read by the status command.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/Adithyav2000/pulsecontext/internal/models"
)

// ErrNotFound is returned when a user has no cached snapshot yet.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is the small read-optimized view downstream consumers poll:
// the newest daily summary, the HRV baseline, and the record count.
type Snapshot struct {
	UserID        string               `json:"user_id"`
	GeneratedAt   time.Time            `json:"generated_at"`
	RecordCount   int                  `json:"record_count"`
	LatestSummary *models.DailySummary `json:"latest_summary,omitempty"`
	HRVBaseline   *models.HRVBaseline  `json:"hrv_baseline,omitempty"`
}

// Cache wraps a badger key-value store.
type Cache struct {
	db *badger.DB
}

// Open opens or creates the cache at dir. An empty dir opens an in-memory
// cache, used by tests.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.db.Close()
}

func snapshotKey(userID string) []byte {
	return []byte("snapshot/" + userID)
}

// PutSnapshot stores the snapshot for its user, replacing any previous one.
func (c *Cache) PutSnapshot(s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(s.UserID), data)
	})
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the cached snapshot for a user, or ErrNotFound.
func (c *Cache) GetSnapshot(userID string) (*Snapshot, error) {
	var s Snapshot
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return &s, nil
}
