// Package postgres is the production docstore driver on top of pgxpool.
// Each collection is a table; DailyLog events live in a JSONB array so a
// single UPDATE can increment the count and push the event together.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"emberAPI/internal/daily_log"
	"emberAPI/internal/delay"
	"emberAPI/internal/docstore"
	"emberAPI/internal/settings"
)

const uniqueViolation = "23505"

type PoolOptions struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

var DefaultPoolOptions = PoolOptions{
	MaxConns:          25,
	MinConns:          5,
	MaxConnLifetime:   time.Hour,
	MaxConnIdleTime:   30 * time.Minute,
	HealthCheckPeriod: time.Minute,
}

// Open creates a pool for databaseURL and verifies it with a ping.
func Open(ctx context.Context, databaseURL string, opts PoolOptions) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = opts.MaxConns
	poolConfig.MinConns = opts.MinConns
	poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = opts.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(pool), nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type Store struct {
	pool *pgxpool.Pool
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) DailyLogs() docstore.DailyLogs { return &dailyLogs{pool: s.pool} }
func (s *Store) Settings() docstore.Settings   { return &userSettings{pool: s.pool} }
func (s *Store) DelayLogs() docstore.DelayLogs { return &delayLogs{pool: s.pool} }

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Migrate creates the collections and their indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS daily_logs (
		id          TEXT PRIMARY KEY,
		date        TEXT NOT NULL,
		count       INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
		events      JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS daily_logs_date_key ON daily_logs (date)`,
	`CREATE TABLE IF NOT EXISTS user_settings (
		id               TEXT PRIMARY KEY,
		singleton        BOOLEAN NOT NULL DEFAULT TRUE CHECK (singleton),
		daily_limit      INTEGER NOT NULL,
		cigarette_price  DOUBLE PRECISION NOT NULL,
		currency         TEXT NOT NULL,
		sound_enabled    BOOLEAN NOT NULL,
		delay_duration   INTEGER NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS user_settings_singleton_key ON user_settings (singleton)`,
	`CREATE TABLE IF NOT EXISTS delay_logs (
		id                TEXT PRIMARY KEY,
		date              TEXT NOT NULL,
		started_at        TIMESTAMPTZ NOT NULL,
		completed         BOOLEAN NOT NULL DEFAULT FALSE,
		duration_seconds  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS delay_logs_completed_date_idx ON delay_logs (completed, date)`,
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// --- daily_logs ---

type dailyLogs struct {
	pool *pgxpool.Pool
}

const dailyLogColumns = `id, date, count, events, created_at, updated_at`

func scanDailyLog(row pgx.Row) (*daily_log.DailyLog, error) {
	l := &daily_log.DailyLog{}
	err := row.Scan(&l.ID, &l.Date, &l.Count, &l.Events, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	if l.Events == nil {
		l.Events = []daily_log.Event{}
	}
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return l, nil
}

func (d *dailyLogs) FindByDate(ctx context.Context, date string) (*daily_log.DailyLog, error) {
	query := `SELECT ` + dailyLogColumns + ` FROM daily_logs WHERE date = $1`
	return scanDailyLog(d.pool.QueryRow(ctx, query, date))
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
		VALUES ($1, $2, $3, $4::jsonb, $5, $6)
		ON CONFLICT (date) DO NOTHING
	`
	tag, err := d.pool.Exec(ctx, query, l.ID, l.Date, l.Count, string(eventsJSON), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return docstore.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrDuplicate
	}
	return nil
}

func (d *dailyLogs) Since(ctx context.Context, from string, limit int) ([]*daily_log.DailyLog, error) {
	query := `
		SELECT ` + dailyLogColumns + `
		FROM daily_logs
		WHERE date >= $1
		ORDER BY date ASC
		LIMIT $2
	`
	rows, err := d.pool.Query(ctx, query, from, limit)
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

	query := `
		UPDATE daily_logs
		SET count = count + $2::integer,
		    events = events || jsonb_build_array($3::jsonb),
		    updated_at = $4
		WHERE date = $1 AND ($2::integer > 0 OR count > 0)
		RETURNING ` + dailyLogColumns
	return scanDailyLog(d.pool.QueryRow(ctx, query, date, event.Action.Delta(), string(eventJSON), event.Timestamp))
}

func (d *dailyLogs) Reset(ctx context.Context, date string, at time.Time) (*daily_log.DailyLog, error) {
	query := `
		UPDATE daily_logs
		SET count = 0, events = '[]'::jsonb, updated_at = $2
		WHERE date = $1
		RETURNING ` + dailyLogColumns
	return scanDailyLog(d.pool.QueryRow(ctx, query, date, at))
}

// --- user_settings ---

type userSettings struct {
	pool *pgxpool.Pool
}

const settingsColumns = `id, daily_limit, cigarette_price, currency, sound_enabled, delay_duration, created_at, updated_at`

func scanSettings(row pgx.Row) (*settings.UserSettings, error) {
	s := &settings.UserSettings{}
	err := row.Scan(&s.ID, &s.DailyLimit, &s.CigarettePrice, &s.Currency, &s.SoundEnabled, &s.DelayDuration, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (u *userSettings) Find(ctx context.Context) (*settings.UserSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM user_settings LIMIT 1`
	return scanSettings(u.pool.QueryRow(ctx, query))
}

func (u *userSettings) Insert(ctx context.Context, s *settings.UserSettings) error {
	query := `
		INSERT INTO user_settings (id, daily_limit, cigarette_price, currency, sound_enabled, delay_duration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (singleton) DO NOTHING
	`
	tag, err := u.pool.Exec(ctx, query, s.ID, s.DailyLimit, s.CigarettePrice, s.Currency, s.SoundEnabled, s.DelayDuration, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return docstore.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrDuplicate
	}
	return nil
}

func (u *userSettings) Update(ctx context.Context, req *settings.UpdateSettingsRequest, at time.Time) (*settings.UserSettings, error) {
	query := `
		UPDATE user_settings
		SET daily_limit     = COALESCE($1::integer, daily_limit),
		    cigarette_price = COALESCE($2::double precision, cigarette_price),
		    currency        = COALESCE($3::text, currency),
		    sound_enabled   = COALESCE($4::boolean, sound_enabled),
		    delay_duration  = COALESCE($5::integer, delay_duration),
		    updated_at      = $6
		RETURNING ` + settingsColumns
	return scanSettings(u.pool.QueryRow(ctx, query,
		req.DailyLimit,
		req.CigarettePrice,
		req.Currency,
		req.SoundEnabled,
		req.DelayDuration,
		at,
	))
}

// --- delay_logs ---

type delayLogs struct {
	pool *pgxpool.Pool
}

const delayColumns = `id, date, started_at, completed, duration_seconds`

func scanDelay(row pgx.Row) (*delay.DelayLog, error) {
	d := &delay.DelayLog{}
	err := row.Scan(&d.ID, &d.Date, &d.StartedAt, &d.Completed, &d.DurationSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, err
	}
	d.StartedAt = d.StartedAt.UTC()
	return d, nil
}

func (l *delayLogs) Insert(ctx context.Context, d *delay.DelayLog) error {
	query := `
		INSERT INTO delay_logs (id, date, started_at, completed, duration_seconds)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := l.pool.Exec(ctx, query, d.ID, d.Date, d.StartedAt, d.Completed, d.DurationSeconds)
	if isUniqueViolation(err) {
		return docstore.ErrDuplicate
	}
	return err
}

func (l *delayLogs) FindByID(ctx context.Context, id string) (*delay.DelayLog, error) {
	query := `SELECT ` + delayColumns + ` FROM delay_logs WHERE id = $1`
	return scanDelay(l.pool.QueryRow(ctx, query, id))
}

func (l *delayLogs) Complete(ctx context.Context, id string) (*delay.DelayLog, bool, error) {
	query := `UPDATE delay_logs SET completed = TRUE WHERE id = $1 AND NOT completed RETURNING ` + delayColumns
	d, err := scanDelay(l.pool.QueryRow(ctx, query, id))
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
		WHERE completed AND ($1::text = '' OR date = $1::text)
	`
	var count int
	err := l.pool.QueryRow(ctx, query, date).Scan(&count)
	return count, err
}
