// Package sqlite is the embedded docstore driver used for local development
// and tests. Events are a JSON text array appended with json_insert, so the
// count update and the event push stay one statement like in postgres.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"emberAPI/internal/daily_log"
	"emberAPI/internal/delay"
	"emberAPI/internal/docstore"
	"emberAPI/internal/settings"
)

// Open opens (or creates) the database at path, applies the schema and
// returns a ready store.
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type Store struct {
	db *sql.DB
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) DailyLogs() docstore.DailyLogs { return &dailyLogs{db: s.db} }
func (s *Store) Settings() docstore.Settings   { return &userSettings{db: s.db} }
func (s *Store) DelayLogs() docstore.DelayLogs { return &delayLogs{db: s.db} }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS daily_logs (
		id          TEXT PRIMARY KEY,
		date        TEXT NOT NULL UNIQUE,
		count       INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
		events      TEXT NOT NULL DEFAULT '[]',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_settings (
		id               TEXT PRIMARY KEY,
		singleton        INTEGER NOT NULL DEFAULT 1 UNIQUE CHECK (singleton = 1),
		daily_limit      INTEGER NOT NULL,
		cigarette_price  REAL NOT NULL,
		currency         TEXT NOT NULL,
		sound_enabled    INTEGER NOT NULL,
		delay_duration   INTEGER NOT NULL,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS delay_logs (
		id                TEXT PRIMARY KEY,
		date              TEXT NOT NULL,
		started_at        TEXT NOT NULL,
		completed         INTEGER NOT NULL DEFAULT 0,
		duration_seconds  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS delay_logs_completed_date_idx ON delay_logs (completed, date)`,
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", v, err)
	}
	return t.UTC(), nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// deref turns a nil pointer into a SQL NULL and a non-nil one into its value.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

type scanner interface {
	Scan(dest ...any) error
}

// --- daily_logs ---

type dailyLogs struct {
	db *sql.DB
}

const dailyLogColumns = `id, date, count, events, created_at, updated_at`

func scanDailyLog(row scanner) (*daily_log.DailyLog, error) {
	var (
		l                    daily_log.DailyLog
		events               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&l.ID, &l.Date, &l.Count, &events, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}

	l.Events = []daily_log.Event{}
	if err := json.Unmarshal([]byte(events), &l.Events); err != nil {
		return nil, fmt.Errorf("failed to decode events for %s: %w", l.Date, err)
	}

	var err error
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if l.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (d *dailyLogs) FindByDate(ctx context.Context, date string) (*daily_log.DailyLog, error) {
	query := `SELECT ` + dailyLogColumns + ` FROM daily_logs WHERE date = ?`
	return scanDailyLog(d.db.QueryRowContext(ctx, query, date))
}

func (d *dailyLogs) Insert(ctx context.Context, l *daily_log.DailyLog) error {
	events := l.Events
	if events == nil {
		events = []daily_log.Event{}
	}
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}

	query := `
		INSERT INTO daily_logs (id, date, count, events, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (date) DO NOTHING
	`
	res, err := d.db.ExecContext(ctx, query, l.ID, l.Date, l.Count, string(eventsJSON), formatTime(l.CreatedAt), formatTime(l.UpdatedAt))
	if err != nil {
		if isConstraintViolation(err) {
			return docstore.ErrDuplicate
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return docstore.ErrDuplicate
	}
	return nil
}

func (d *dailyLogs) Since(ctx context.Context, from string, limit int) ([]*daily_log.DailyLog, error) {
	query := `
		SELECT ` + dailyLogColumns + `
		FROM daily_logs
		WHERE date >= ?
		ORDER BY date ASC
		LIMIT ?
	`
	rows, err := d.db.QueryContext(ctx, query, from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*daily_log.DailyLog{}
	for rows.Next() {
		l, err := scanDailyLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (d *dailyLogs) Record(ctx context.Context, date string, event daily_log.Event) (*daily_log.DailyLog, error) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}

	delta := event.Action.Delta()
	query := `
		UPDATE daily_logs
		SET count = count + ?,
		    events = json_insert(events, '$[#]', json(?)),
		    updated_at = ?
		WHERE date = ? AND (? > 0 OR count > 0)
		RETURNING ` + dailyLogColumns
	return scanDailyLog(d.db.QueryRowContext(ctx, query, delta, string(eventJSON), formatTime(event.Timestamp), date, delta))
}

func (d *dailyLogs) Reset(ctx context.Context, date string, at time.Time) (*daily_log.DailyLog, error) {
	query := `
		UPDATE daily_logs
		SET count = 0, events = '[]', updated_at = ?
		WHERE date = ?
		RETURNING ` + dailyLogColumns
	return scanDailyLog(d.db.QueryRowContext(ctx, query, formatTime(at), date))
}

// --- user_settings ---

type userSettings struct {
	db *sql.DB
}

const settingsColumns = `id, daily_limit, cigarette_price, currency, sound_enabled, delay_duration, created_at, updated_at`

func scanSettings(row scanner) (*settings.UserSettings, error) {
	var (
		s                    settings.UserSettings
		createdAt, updatedAt string
	)
	err := row.Scan(&s.ID, &s.DailyLimit, &s.CigarettePrice, &s.Currency, &s.SoundEnabled, &s.DelayDuration, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (u *userSettings) Find(ctx context.Context) (*settings.UserSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM user_settings LIMIT 1`
	return scanSettings(u.db.QueryRowContext(ctx, query))
}

func (u *userSettings) Insert(ctx context.Context, s *settings.UserSettings) error {
	query := `
		INSERT INTO user_settings (id, daily_limit, cigarette_price, currency, sound_enabled, delay_duration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (singleton) DO NOTHING
	`
	res, err := u.db.ExecContext(ctx, query, s.ID, s.DailyLimit, s.CigarettePrice, s.Currency, s.SoundEnabled, s.DelayDuration, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	if err != nil {
		if isConstraintViolation(err) {
			return docstore.ErrDuplicate
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return docstore.ErrDuplicate
	}
	return nil
}

func (u *userSettings) Update(ctx context.Context, req *settings.UpdateSettingsRequest, at time.Time) (*settings.UserSettings, error) {
	query := `
		UPDATE user_settings
		SET daily_limit     = COALESCE(?, daily_limit),
		    cigarette_price = COALESCE(?, cigarette_price),
		    currency        = COALESCE(?, currency),
		    sound_enabled   = COALESCE(?, sound_enabled),
		    delay_duration  = COALESCE(?, delay_duration),
		    updated_at      = ?
		RETURNING ` + settingsColumns
	return scanSettings(u.db.QueryRowContext(ctx, query,
		deref(req.DailyLimit),
		deref(req.CigarettePrice),
		deref(req.Currency),
		deref(req.SoundEnabled),
		deref(req.DelayDuration),
		formatTime(at),
	))
}

// --- delay_logs ---

type delayLogs struct {
	db *sql.DB
}

const delayColumns = `id, date, started_at, completed, duration_seconds`

func scanDelay(row scanner) (*delay.DelayLog, error) {
	var (
		d         delay.DelayLog
		startedAt string
	)
	err := row.Scan(&d.ID, &d.Date, &startedAt, &d.Completed, &d.DurationSeconds)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	if d.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (l *delayLogs) Insert(ctx context.Context, d *delay.DelayLog) error {
	query := `
		INSERT INTO delay_logs (id, date, started_at, completed, duration_seconds)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query, d.ID, d.Date, formatTime(d.StartedAt), d.Completed, d.DurationSeconds)
	if isConstraintViolation(err) {
		return docstore.ErrDuplicate
	}
	return err
}

func (l *delayLogs) FindByID(ctx context.Context, id string) (*delay.DelayLog, error) {
	query := `SELECT ` + delayColumns + ` FROM delay_logs WHERE id = ?`
	return scanDelay(l.db.QueryRowContext(ctx, query, id))
}

func (l *delayLogs) Complete(ctx context.Context, id string) (*delay.DelayLog, bool, error) {
	query := `UPDATE delay_logs SET completed = 1 WHERE id = ? AND completed = 0 RETURNING ` + delayColumns
	d, err := scanDelay(l.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, docstore.ErrNotFound) {
		// either unknown or already completed
		d, err = l.FindByID(ctx, id)
		return d, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}

func (l *delayLogs) CountCompleted(ctx context.Context, date string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM delay_logs
		WHERE completed = 1 AND (? = '' OR date = ?)
	`
	var count int
	err := l.db.QueryRowContext(ctx, query, date, date).Scan(&count)
	return count, err
}
