package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/glabrego/newsreader/internal/news"
	"github.com/glabrego/newsreader/internal/notify"
)

// Keys of the kv table. Every feed bucket has its own row so writers of
// different buckets never touch the same value.
const (
	keyGlobalFeed      = "feed.global"
	keyGlobalFetchedAt = "feed.global.fetched_at"
	keyCategoryPrefix  = "feed.category."
	keyBookmarks       = "bookmarks"
	keySortOption      = "prefs.sort"
	keyNotifyPrefs     = "prefs.notifications"
	keyWriteProbe      = "meta.write_probe"
)

// Repository persists article snapshots and reader preferences in SQLite.
// Unreadable values are logged and read back as empty.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRepository(path string, logger *slog.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps writes serialized and makes ":memory:" usable.
	db.SetMaxOpenConns(1)
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS kv (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// CheckWritable writes and removes a probe row.
func (r *Repository) CheckWritable(ctx context.Context) error {
	if err := r.put(ctx, keyWriteProbe, `"ok"`); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, keyWriteProbe); err != nil {
		return fmt.Errorf("delete write probe: %w", err)
	}
	return nil
}

// Cached returns the stored snapshot of a feed bucket.
func (r *Repository) Cached(ctx context.Context, sel news.Selector) ([]news.Article, error) {
	if sel.IsGlobal() {
		stored, err := getJSON[[]storedArticle](ctx, r, keyGlobalFeed)
		if err != nil {
			return nil, err
		}
		return fromStored(stored), nil
	}

	snap, err := getJSON[categorySnapshot](ctx, r, categoryKey(sel.Category))
	if err != nil {
		return nil, err
	}
	return fromStored(snap.Articles), nil
}

// SaveCached replaces the snapshot of a feed bucket and records fetchedAt.
func (r *Repository) SaveCached(ctx context.Context, sel news.Selector, articles []news.Article, fetchedAt time.Time) error {
	if sel.IsGlobal() {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := putJSON(ctx, tx, keyGlobalFeed, toStored(articles)); err != nil {
			return err
		}
		if err := putJSON(ctx, tx, keyGlobalFetchedAt, formatTime(fetchedAt)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	}

	snap := categorySnapshot{FetchedAt: formatTime(fetchedAt), Articles: toStored(articles)}
	return putJSON(ctx, r.db, categoryKey(sel.Category), snap)
}

// CachedCategories returns every stored category snapshot keyed by category.
func (r *Repository) CachedCategories(ctx context.Context) (map[string][]news.Article, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT key, value
FROM kv
WHERE key LIKE ?
ORDER BY key
`, keyCategoryPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("query category snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]news.Article)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan category snapshot: %w", err)
		}
		category := strings.TrimPrefix(key, keyCategoryPrefix)
		var snap categorySnapshot
		if err := decode(value, &snap); err != nil {
			r.logger.Warn("discarding unreadable category snapshot", "category", category, "error", err)
			continue
		}
		out[category] = fromStored(snap.Articles)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// FetchTime returns when the snapshot of a feed bucket was last saved.
func (r *Repository) FetchTime(ctx context.Context, sel news.Selector) (time.Time, bool, error) {
	if sel.IsGlobal() {
		return r.LastFetchTime(ctx)
	}
	snap, err := getJSON[categorySnapshot](ctx, r, categoryKey(sel.Category))
	if err != nil {
		return time.Time{}, false, err
	}
	t, ok := parseTime(snap.FetchedAt)
	return t, ok, nil
}

// LastFetchTime returns when the global feed was last saved.
func (r *Repository) LastFetchTime(ctx context.Context) (time.Time, bool, error) {
	raw, err := getJSON[string](ctx, r, keyGlobalFetchedAt)
	if err != nil {
		return time.Time{}, false, err
	}
	t, ok := parseTime(raw)
	return t, ok, nil
}

func (r *Repository) Bookmarks(ctx context.Context) ([]news.Article, error) {
	stored, err := getJSON[[]storedArticle](ctx, r, keyBookmarks)
	if err != nil {
		return nil, err
	}
	return fromStored(stored), nil
}

func (r *Repository) SaveBookmarks(ctx context.Context, articles []news.Article) error {
	return putJSON(ctx, r.db, keyBookmarks, toStored(articles))
}

// SortOption returns the stored order, or news.DefaultSort when none is set.
func (r *Repository) SortOption(ctx context.Context) (news.SortOption, error) {
	raw, err := getJSON[string](ctx, r, keySortOption)
	if err != nil {
		return news.DefaultSort, err
	}
	if raw == "" {
		return news.DefaultSort, nil
	}
	opt, err := news.ParseSortOption(raw)
	if err != nil {
		r.logger.Warn("ignoring stored sort option", "value", raw, "error", err)
		return news.DefaultSort, nil
	}
	return opt, nil
}

func (r *Repository) SaveSortOption(ctx context.Context, opt news.SortOption) error {
	if !opt.Valid() {
		return fmt.Errorf("save sort option: invalid value %q", opt)
	}
	return putJSON(ctx, r.db, keySortOption, string(opt))
}

// NotificationPreferences returns the stored preferences, or
// notify.DefaultPreferences when none are set.
func (r *Repository) NotificationPreferences(ctx context.Context) (notify.Preferences, error) {
	stored, err := getJSON[*storedPreferences](ctx, r, keyNotifyPrefs)
	if err != nil {
		return notify.DefaultPreferences(), err
	}
	if stored == nil {
		return notify.DefaultPreferences(), nil
	}
	return stored.toPreferences(), nil
}

func (r *Repository) SaveNotificationPreferences(ctx context.Context, prefs notify.Preferences) error {
	return putJSON(ctx, r.db, keyNotifyPrefs, fromPreferences(prefs))
}

// Clear drops every feed snapshot and fetch timestamp. Bookmarks and
// preferences are kept.
func (r *Repository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key LIKE ?`, "feed.%"); err != nil {
		return fmt.Errorf("clear feed snapshots: %w", err)
	}
	return nil
}

// getJSON decodes the value at key. Missing keys and corrupt values both
// yield the zero T; corrupt values are logged. A value that decodes only
// partially counts as corrupt.
func getJSON[T any](ctx context.Context, r *Repository, key string) (T, error) {
	var zero T
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("read %s: %w", key, err)
	}
	var decoded T
	if err := decode(value, &decoded); err != nil {
		r.logger.Warn("discarding unreadable cache entry", "key", key, "error", err)
		return zero, nil
	}
	return decoded, nil
}

func (r *Repository) put(ctx context.Context, key, value string) error {
	return put(ctx, r.db, key, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putJSON(ctx context.Context, db execer, key string, v any) error {
	value, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return put(ctx, db, key, value)
}

func put(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO kv (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  value=excluded.value,
  updated_at=excluded.updated_at
`, key, value, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func categoryKey(category string) string {
	return keyCategoryPrefix + news.Category(category).Category
}
