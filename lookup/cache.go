package lookup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"

	_ "modernc.org/sqlite"
)

// Entry is one cached lookup result.
type Entry struct {
	Value     string    `cbor:"1,keyasint"`
	NotFound  bool      `cbor:"2,keyasint,omitempty"`
	Source    string    `cbor:"3,keyasint,omitempty"`
	FetchedAt time.Time `cbor:"4,keyasint"`
}

var entryEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("lookup: failed to create CBOR enc mode: %v", err))
	}
	entryEncMode = em
}

// MarshalEntry serializes an Entry to canonical CBOR.
func MarshalEntry(e Entry) ([]byte, error) {
	return entryEncMode.Marshal(e)
}

// UnmarshalEntry deserializes an Entry from CBOR.
func UnmarshalEntry(data []byte) (Entry, error) {
	var e Entry
	if err := cbor.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("lookup: unmarshal entry: %w", err)
	}
	return e, nil
}

// Cache stores lookup results in SQLite. Entries older than the TTL are
// treated as missing.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenCache opens (creating if needed) the cache database at path. The
// special path ":memory:" keeps the cache in memory. A ttl of zero never
// expires entries.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS lookups (
		op         TEXT    NOT NULL,
		key        TEXT    NOT NULL,
		entry      BLOB    NOT NULL,
		fetched_at INTEGER NOT NULL,
		PRIMARY KEY (op, key)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// DefaultCachePath returns <user cache dir>/yulsp/signatures.db.
func DefaultCachePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("getting cache dir: %w", err)
	}
	return filepath.Join(dir, "yulsp", "signatures.db"), nil
}

// Close closes the database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the live entry for op/key.
func (c *Cache) Get(ctx context.Context, op, key string) (Entry, bool, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx,
		"SELECT entry FROM lookups WHERE op = ? AND key = ?", op, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading cache: %w", err)
	}

	e, err := UnmarshalEntry(data)
	if err != nil {
		return Entry{}, false, err
	}
	if c.expired(e) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Put stores e for op/key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, op, key string, e Entry) error {
	if e.FetchedAt.IsZero() {
		e.FetchedAt = c.now()
	}
	data, err := MarshalEntry(e)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO lookups (op, key, entry, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (op, key) DO UPDATE SET entry = excluded.entry, fetched_at = excluded.fetched_at`,
		op, key, data, e.FetchedAt.Unix())
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// Purge deletes expired entries and returns how many were removed.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl).Unix()
	res, err := c.db.ExecContext(ctx, "DELETE FROM lookups WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging cache: %w", err)
	}
	return res.RowsAffected()
}

func (c *Cache) expired(e Entry) bool {
	return c.ttl > 0 && c.now().Sub(e.FetchedAt) > c.ttl
}
