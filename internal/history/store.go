// Package history keeps an SQLite audit log of screenings.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/tigerchen52/pub-guard-llm/internal/guard"
)

// DefaultLimit caps List when no limit is given.
const DefaultLimit = 20

// timeLayout has fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Get for unknown screening IDs.
var ErrNotFound = errors.New("screening not found")

// Store persists screening results. Safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Entry is one recorded screening.
type Entry struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	Title      string         `json:"title"`
	Journal    string         `json:"journal"`
	Model      string         `json:"model,omitempty"`
	Category   guard.Category `json:"category"`
	Answer     string         `json:"answer"`
	Faults     []string       `json:"faults,omitempty"`
	Prompt     string         `json:"prompt,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// ListOptions filter List.
type ListOptions struct {
	Limit    int            // Maximum entries, newest first (default: DefaultLimit)
	Category guard.Category // Only this outcome when set
}

// Open opens or creates the history database at dbPath. ":memory:" gives a
// private in-memory database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Each connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS screenings (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		title TEXT NOT NULL,
		journal TEXT NOT NULL,
		model TEXT,
		category TEXT NOT NULL,
		answer TEXT NOT NULL,
		faults TEXT,
		prompt TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_screenings_created ON screenings(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_screenings_category ON screenings(category);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Record stores a screening result. It satisfies guard.Recorder.
func (s *Store) Record(ctx context.Context, r *guard.Result) error {
	if r == nil {
		return errors.New("nil result")
	}
	faults, err := json.Marshal(r.Faults)
	if err != nil {
		return fmt.Errorf("encode faults: %w", err)
	}

	query, args, err := sq.Insert("screenings").
		Columns("id", "created_at", "title", "journal", "model", "category", "answer", "faults", "prompt", "duration_ms").
		Values(r.ID, r.CreatedAt.UTC().Format(timeLayout), r.Title, r.Journal, r.Model,
			string(r.Category), r.Answer, string(faults), r.Prompt, r.Duration.Milliseconds()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert screening %s: %w", r.ID, err)
	}
	return nil
}

var entryColumns = []string{"id", "created_at", "title", "journal", "model", "category", "answer", "faults", "prompt", "duration_ms"}

// List returns recorded screenings, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	qb := sq.Select(entryColumns...).
		From("screenings").
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit))
	if opts.Category != "" {
		qb = qb.Where(sq.Eq{"category": string(opts.Category)})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query screenings: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the screening with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	query, args, err := sq.Select(entryColumns...).
		From("screenings").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := scanEntry(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Count returns the number of recorded screenings.
func (s *Store) Count(ctx context.Context) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From("screenings").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count screenings: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                     Entry
		created, category     string
		model, faults, prompt sql.NullString
	)
	err := row.Scan(&e.ID, &created, &e.Title, &e.Journal, &model, &category,
		&e.Answer, &faults, &prompt, &e.DurationMS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan screening: %w", err)
	}

	e.CreatedAt, err = time.Parse(timeLayout, created)
	if err != nil {
		return Entry{}, fmt.Errorf("parse created_at of %s: %w", e.ID, err)
	}
	e.Category = guard.Category(category)
	e.Model = model.String
	e.Prompt = prompt.String
	if faults.Valid && faults.String != "" && faults.String != "null" {
		if err := json.Unmarshal([]byte(faults.String), &e.Faults); err != nil {
			return Entry{}, fmt.Errorf("decode faults of %s: %w", e.ID, err)
		}
	}
	return e, nil
}
