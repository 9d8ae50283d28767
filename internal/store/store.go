package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"marquee/internal/config"
)

const entriesTable = "entries"

// Store is a key/value blob store backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the clock used for updated_at and TTL checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("open store: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenConfig opens the database named by cfg.Paths.Database.
func OpenConfig(cfg *config.Config, opts ...Option) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return Open(cfg.Paths.Database, opts...)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Entry is one stored record.
type Entry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
	ExpiresAt *time.Time
}

// GetRaw returns the record stored under key. Expired records are reported
// as missing.
func (s *Store) GetRaw(ctx context.Context, key string) (Entry, bool, error) {
	query, args, err := sq.Select("key", "value", "updated_at", "expires_at").
		From(entriesTable).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return Entry{}, false, fmt.Errorf("build select: %w", err)
	}

	var (
		entry   Entry
		updated int64
		expires sql.NullInt64
	)
	err = retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(&entry.Key, &entry.Value, &updated, &expires)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	entry.UpdatedAt = time.UnixMilli(updated).UTC()
	if expires.Valid {
		at := time.UnixMilli(expires.Int64).UTC()
		if !s.now().Before(at) {
			return Entry{}, false, nil
		}
		entry.ExpiresAt = &at
	}
	return entry, true, nil
}

// Get decodes the JSON record under key into dst. It reports false when
// the key is missing or expired.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	entry, ok, err := s.GetRaw(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(entry.Value, dst); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Put stores v as JSON under key with no expiry.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	return s.put(ctx, key, v, 0)
}

// PutWithTTL stores v as JSON under key; it reads as missing after ttl.
func (s *Store) PutWithTTL(ctx context.Context, key string, v any, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("put %s: ttl must be positive", key)
	}
	return s.put(ctx, key, v, ttl)
}

func (s *Store) put(ctx context.Context, key string, v any, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("put: empty key")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	now := s.now()
	var expires any
	if ttl > 0 {
		expires = now.Add(ttl).UnixMilli()
	}
	query, args, err := sq.Insert(entriesTable).
		Columns("key", "value", "updated_at", "expires_at").
		Values(key, data, now.UnixMilli(), expires).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at, expires_at = excluded.expires_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if err := s.exec(ctx, query, args...); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	query, args, err := sq.Delete(entriesTable).Where(sq.Eq{"key": keys}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	return s.execCount(ctx, query, args...)
}

// Keys lists live keys starting with prefix in sorted order.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	builder := sq.Select("key").
		From(entriesTable).
		Where(sq.Or{sq.Eq{"expires_at": nil}, sq.Gt{"expires_at": s.now().UnixMilli()}}).
		OrderBy("key")
	if prefix != "" {
		builder = builder.Where("substr(key, 1, ?) = ?", len(prefix), prefix)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build keys: %w", err)
	}

	var keys []string
	err = retryOnBusy(ctx, func() error {
		keys = keys[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				return err
			}
			keys = append(keys, key)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// PurgeExpired deletes records whose TTL has elapsed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	query, args, err := sq.Delete(entriesTable).
		Where(sq.And{sq.NotEq{"expires_at": nil}, sq.LtOrEq{"expires_at": s.now().UnixMilli()}}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge: %w", err)
	}
	return s.execCount(ctx, query, args...)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func (s *Store) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
