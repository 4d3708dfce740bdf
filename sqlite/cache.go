package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docint"
)

// Compile-time interface verification.
var _ docint.Cache = (*CacheService)(nil)

// CacheService implements docint.Cache using SQLite.
// Results are stored as JSON.
type CacheService struct {
	db *DB

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewCacheService creates a new CacheService.
func NewCacheService(db *DB) *CacheService {
	return &CacheService{db: db, Now: time.Now}
}

// CacheEntry describes one cached result without its payload.
type CacheEntry struct {
	Key         string
	MimeType    string
	ContentHash string
	Size        int
	CreatedAt   time.Time
}

// hashContent computes xxHash of content and returns a hex string.
func hashContent(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// Get returns the result cached under key.
func (s *CacheService) Get(ctx context.Context, key string) (*docint.ExtractionResult, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT result FROM extractions WHERE key = ?
	`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var result docint.ExtractionResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached result: %w", err)
	}
	return &result, true, nil
}

// Put stores result under key, replacing any previous entry.
func (s *CacheService) Put(ctx context.Context, key string, result *docint.ExtractionResult) error {
	if key == "" {
		return docint.Errorf(docint.EINVALID, "cache key required")
	}
	if result == nil {
		return docint.Errorf(docint.EINVALID, "cache result required")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO extractions (key, mime_type, content_hash, size, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			mime_type = excluded.mime_type,
			content_hash = excluded.content_hash,
			size = excluded.size,
			result = excluded.result,
			created_at = excluded.created_at
	`, key, result.MimeType, hashContent(result.Content), len(payload), string(payload),
		formatTime(s.now()))

	return err
}

// Delete removes the entry stored under key.
// Returns ENOTFOUND if there is no such entry.
func (s *CacheService) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM extractions WHERE key = ?`, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return docint.Errorf(docint.ENOTFOUND, "cache entry not found")
	}
	return nil
}

// Entries lists cached entries, newest first.
func (s *CacheService) Entries(ctx context.Context, limit, offset int) ([]*CacheEntry, error) {
	var query strings.Builder
	var args []any
	query.WriteString(`
		SELECT key, mime_type, content_hash, size, created_at
		FROM extractions
		ORDER BY created_at DESC, key`)
	appendPagination(&query, &args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*CacheEntry
	for rows.Next() {
		var e CacheEntry
		var createdAt string
		if err := rows.Scan(&e.Key, &e.MimeType, &e.ContentHash, &e.Size, &createdAt); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Prune removes entries created before cutoff and returns how many were removed.
func (s *CacheService) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM extractions WHERE created_at < ?
	`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *CacheService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
