/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package scores persists finished sessions to SQLite and serves the
// leaderboards built from them.
package scores

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Seednode/nameher/game"
	"github.com/Seednode/nameher/names"
)

const (
	DefaultDuplicateWindow = 10 * time.Minute

	usernameLength  = 3
	usernameCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!?*#@$&_-"
)

var (
	ErrInvalidUsername     = errors.New("username must be exactly 3 characters from A-Z 0-9 ! ? * # @ $ & _ -")
	ErrInvalidMode         = errors.New("invalid game mode")
	ErrInvalidTime         = errors.New("completion time must be positive")
	ErrNameCount           = errors.New("name list does not match game mode")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrNotFound            = errors.New("score not found")
)

// Submission is a finished session as reported by a player.
type Submission struct {
	Username          string   `json:"username"`
	CompletionSeconds float64  `json:"completion_seconds"`
	Names             []string `json:"names"`
	Mode              int      `json:"mode"`
	Fingerprint       string   `json:"-"`
}

// Entry is a stored score.
type Entry struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	CompletionSeconds float64   `json:"completion_seconds"`
	Mode              int       `json:"mode"`
	Names             []string  `json:"names,omitempty"`
	Colour            string    `json:"colour"`
	CreatedAt         time.Time `json:"created_at"`
}

// NameStat counts how often a name appears across all submissions.
type NameStat struct {
	Key      string   `json:"key"`
	Count    int      `json:"count"`
	Variants []string `json:"variants"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDuplicateWindow sets how far back the duplicate guard looks.
func WithDuplicateWindow(d time.Duration) Option {
	return func(s *Store) { s.window = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is a SQLite-backed score store.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Open opens or creates the database at path with WAL mode enabled.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, err
	}

	s := &Store{
		db:      db,
		logger:  zap.NewNop(),
		window:  DefaultDuplicateWindow,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS scores (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	completion_seconds REAL NOT NULL,
	mode INTEGER NOT NULL,
	fingerprint TEXT NOT NULL,
	name_set TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS scores_mode_time ON scores(mode, completion_seconds);
CREATE INDEX IF NOT EXISTS scores_created ON scores(created_at);
CREATE INDEX IF NOT EXISTS scores_username ON scores(username);
CREATE INDEX IF NOT EXISTS scores_dedup ON scores(fingerprint, mode, name_set);

CREATE TABLE IF NOT EXISTS score_names (
	score_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	name_key TEXT NOT NULL,
	PRIMARY KEY(score_id, position),
	FOREIGN KEY(score_id) REFERENCES scores(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS score_names_key ON score_names(name_key);
`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	return nil
}

// NormalizeUsername upper-cases u and checks it against the allowed
// alphabet.
func NormalizeUsername(u string) (string, error) {
	u = strings.ToUpper(strings.TrimSpace(u))

	if len([]rune(u)) != usernameLength {
		return "", ErrInvalidUsername
	}

	for _, r := range u {
		if !strings.ContainsRune(usernameCharset, r) {
			return "", ErrInvalidUsername
		}
	}

	return u, nil
}

// nameSet hashes the sorted normalized names, so the same list in any order
// or spelling variant produces the same value. It fails on blank or
// repeated names.
func nameSet(list []string) (string, []string, error) {
	keys := make([]string, len(list))
	seen := make(map[string]bool, len(list))

	for i, n := range list {
		k := names.Normalize(n)
		if k == "" || seen[k] {
			return "", nil, fmt.Errorf("%w: blank or repeated name %q", ErrNameCount, n)
		}
		seen[k] = true
		keys[i] = k
	}

	sorted := slices.Clone(keys)
	slices.Sort(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))

	return hex.EncodeToString(sum[:]), keys, nil
}

// Colour derives a stable display colour from a fingerprint.
func Colour(fingerprint string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fingerprint))

	return fmt.Sprintf("hsl(%d, 65%%, 55%%)", h.Sum32()%360)
}

func (s *Store) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// Submit validates and stores a submission, returning its ID.
func (s *Store) Submit(ctx context.Context, sub Submission) (string, error) {
	username, err := NormalizeUsername(sub.Username)
	if err != nil {
		return "", err
	}

	if !game.ValidMode(sub.Mode) {
		return "", fmt.Errorf("%w: %d", ErrInvalidMode, sub.Mode)
	}

	if len(sub.Names) != sub.Mode {
		return "", fmt.Errorf("%w: got %d names for mode %d", ErrNameCount, len(sub.Names), sub.Mode)
	}

	if sub.CompletionSeconds <= 0 {
		return "", ErrInvalidTime
	}

	set, keys, err := nameSet(sub.Names)
	if err != nil {
		return "", err
	}

	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM scores WHERE fingerprint = ? AND mode = ? AND name_set = ? AND created_at >= ? LIMIT 1`,
		sub.Fingerprint, sub.Mode, set, now.Add(-s.window).UnixMilli(),
	).Scan(&existing)
	switch {
	case err == nil:
		s.logger.Info("rejected duplicate submission",
			zap.String("username", username),
			zap.String("existing", existing),
		)
		return "", fmt.Errorf("%w: matches %s", ErrDuplicateSubmission, existing)
	case !errors.Is(err, sql.ErrNoRows):
		return "", err
	}

	id := s.newID(now)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scores (id, username, completion_seconds, mode, fingerprint, name_set, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, username, sub.CompletionSeconds, sub.Mode, sub.Fingerprint, set, now.UnixMilli(),
	); err != nil {
		return "", err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO score_names (score_id, position, name, name_key) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close() //nolint:errcheck // closed with tx

	for i, n := range sub.Names {
		if _, err := stmt.ExecContext(ctx, id, i, strings.TrimSpace(n), keys[i]); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	s.logger.Info("stored score",
		zap.String("id", id),
		zap.String("username", username),
		zap.Int("mode", sub.Mode),
		zap.Float64("seconds", sub.CompletionSeconds),
	)

	return id, nil
}

const entryColumns = `id, username, completion_seconds, mode, fingerprint, created_at`

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close() //nolint:errcheck // read-only

	entries := []Entry{}

	for rows.Next() {
		var (
			e           Entry
			fingerprint string
			created     int64
		)

		if err := rows.Scan(&e.ID, &e.Username, &e.CompletionSeconds, &e.Mode, &fingerprint, &created); err != nil {
			return nil, err
		}

		e.Colour = Colour(fingerprint)
		e.CreatedAt = time.UnixMilli(created).UTC()

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Leaderboard returns the fastest limit entries for mode.
func (s *Store) Leaderboard(ctx context.Context, mode, limit int) ([]Entry, error) {
	if !game.ValidMode(mode) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM scores WHERE mode = ? ORDER BY completion_seconds ASC, created_at ASC LIMIT ?`,
		mode, limit,
	)
	if err != nil {
		return nil, err
	}

	return scanEntries(rows)
}

// Recent returns the newest limit entries across all modes.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM scores ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}

	return scanEntries(rows)
}

// ByUser returns the newest limit entries submitted under username.
func (s *Store) ByUser(ctx context.Context, username string, limit int) ([]Entry, error) {
	u, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM scores WHERE username = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		u, limit,
	)
	if err != nil {
		return nil, err
	}

	return scanEntries(rows)
}

// Get returns one entry with its names in submission order.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM scores WHERE id = ?`, id)
	if err != nil {
		return Entry{}, err
	}

	entries, err := scanEntries(rows)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNotFound
	}

	e := entries[0]

	nameRows, err := s.db.QueryContext(ctx,
		`SELECT name FROM score_names WHERE score_id = ? ORDER BY position`, id)
	if err != nil {
		return Entry{}, err
	}
	defer nameRows.Close() //nolint:errcheck // read-only

	for nameRows.Next() {
		var n string
		if err := nameRows.Scan(&n); err != nil {
			return Entry{}, err
		}
		e.Names = append(e.Names, n)
	}

	return e, nameRows.Err()
}

// NameStats returns the limit most frequently submitted names, each with
// the distinct spellings players used.
func (s *Store) NameStats(ctx context.Context, limit int) ([]NameStat, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT n.name_key, n.name, COUNT(*)
FROM score_names n
JOIN (
	SELECT name_key FROM score_names GROUP BY name_key ORDER BY COUNT(*) DESC, name_key ASC LIMIT ?
) top ON top.name_key = n.name_key
GROUP BY n.name_key, n.name`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // read-only

	byKey := make(map[string]*NameStat)

	for rows.Next() {
		var (
			key, name string
			count     int
		)

		if err := rows.Scan(&key, &name, &count); err != nil {
			return nil, err
		}

		stat, ok := byKey[key]
		if !ok {
			stat = &NameStat{Key: key}
			byKey[key] = stat
		}

		stat.Count += count
		stat.Variants = append(stat.Variants, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats := make([]NameStat, 0, len(byKey))
	for _, stat := range byKey {
		slices.Sort(stat.Variants)
		stats = append(stats, *stat)
	}

	slices.SortFunc(stats, func(a, b NameStat) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Key, b.Key)
	})

	return stats, nil
}
