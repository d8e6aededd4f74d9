package metacache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"spool/internal/logging"
)

const bucketResolutions = "resolutions"

// Entry is a cached metadata resolution keyed by canonical URL.
type Entry struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	DurationSeconds float64   `json:"duration_seconds"`
	Uploader        string    `json:"uploader"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// Cache stores metadata resolutions in a bbolt file so repeat links skip the
// yt-dlp probe. When path is empty the cache is disabled and every operation
// becomes a no-op, letting callers stay unconditional.
type Cache struct {
	db     *bbolt.DB
	ttl    time.Duration
	logger *slog.Logger
}

// Open creates or opens the cache database at path. A ttl of zero or less
// keeps entries forever.
func Open(path string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "metacache")

	c := &Cache{ttl: ttl, logger: logger}
	if strings.TrimSpace(path) == "" {
		return c, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open resolution cache: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketResolutions))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize resolution cache: %w", err)
	}

	c.db = db
	return c, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Lookup returns the cached entry for url when present and fresh. Entries
// older than the TTL count as misses.
func (c *Cache) Lookup(url string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	url = strings.TrimSpace(url)
	if url == "" || c.db == nil {
		return Entry{}, false
	}

	var entry Entry
	found := false
	err := c.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket([]byte(bucketResolutions)).Get([]byte(url))
		if value == nil {
			return nil
		}
		if err := json.Unmarshal(value, &entry); err != nil {
			return fmt.Errorf("parse cache entry: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		c.logger.Warn("resolution cache read failed",
			logging.String(logging.FieldEventType, "metacache_read_failed"),
			logging.String("url", url),
			logging.Error(err))
		return Entry{}, false
	}
	if !found || c.expired(entry) {
		return Entry{}, false
	}
	return entry, true
}

// Store persists an entry, stamping FetchedAt when the caller left it zero.
func (c *Cache) Store(entry Entry) error {
	entry.URL = strings.TrimSpace(entry.URL)
	if entry.URL == "" {
		return errors.New("cache URL cannot be empty")
	}
	if c == nil || c.db == nil {
		return nil
	}
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = time.Now()
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketResolutions)).Put([]byte(entry.URL), value)
	}); err != nil {
		return fmt.Errorf("persist cache entry: %w", err)
	}

	c.logger.Debug("cached resolution",
		logging.String("url", entry.URL),
		logging.String("title", entry.Title))
	return nil
}

// Prune deletes expired entries and reports how many were removed.
func (c *Cache) Prune() (int, error) {
	if c == nil || c.db == nil || c.ttl <= 0 {
		return 0, nil
	}

	var stale [][]byte
	err := c.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketResolutions)).ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil || c.expired(entry) {
				key := make([]byte, len(k))
				copy(key, k)
				stale = append(stale, key)
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("scan resolution cache: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketResolutions))
		for _, key := range stale {
			if err := bucket.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune resolution cache: %w", err)
	}

	c.logger.Debug("pruned resolution cache", logging.Int("removed", len(stale)))
	return len(stale), nil
}

// Count returns the number of stored entries, fresh or not.
func (c *Cache) Count() int {
	if c == nil || c.db == nil {
		return 0
	}
	count := 0
	_ = c.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(bucketResolutions)).Stats().KeyN
		return nil
	})
	return count
}

func (c *Cache) expired(entry Entry) bool {
	if c.ttl <= 0 {
		return false
	}
	return time.Since(entry.FetchedAt) > c.ttl
}
