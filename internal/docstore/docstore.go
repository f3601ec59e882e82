// Package docstore defines the persistence collaborator the services run
// against. Drivers live under internal/docstore/<driver>/.
package docstore

import (
	"context"
	"errors"
	"time"

	"emberAPI/internal/daily_log"
	"emberAPI/internal/delay"
	"emberAPI/internal/settings"
)

const (
	CollectionDailyLogs    = "daily_logs"
	CollectionUserSettings = "user_settings"
	CollectionDelayLogs    = "delay_logs"
)

var (
	// ErrNotFound is returned when no document matches the filter.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned by inserts that collide with an existing key.
	ErrDuplicate = errors.New("document already exists")
)

type Store interface {
	DailyLogs() DailyLogs
	Settings() Settings
	DelayLogs() DelayLogs

	Ping(ctx context.Context) error
	Close() error
}

type DailyLogs interface {
	FindByDate(ctx context.Context, date string) (*daily_log.DailyLog, error)
	// Insert fails with ErrDuplicate when a log for the same date exists.
	Insert(ctx context.Context, log *daily_log.DailyLog) error
	// Since returns logs dated on or after from, ascending by date.
	Since(ctx context.Context, from string, limit int) ([]*daily_log.DailyLog, error)
	// Record applies the event's delta to count, appends the event and sets
	// updated_at in one atomic update. A remove only matches a log whose
	// count is positive; ErrNotFound is returned when nothing matched.
	Record(ctx context.Context, date string, event daily_log.Event) (*daily_log.DailyLog, error)
	// Reset zeroes count and clears events. ErrNotFound when the date has no log.
	Reset(ctx context.Context, date string, at time.Time) (*daily_log.DailyLog, error)
}

type Settings interface {
	Find(ctx context.Context) (*settings.UserSettings, error)
	// Insert fails with ErrDuplicate when the singleton already exists.
	Insert(ctx context.Context, s *settings.UserSettings) error
	// Update applies the non-nil fields of req and sets updated_at.
	Update(ctx context.Context, req *settings.UpdateSettingsRequest, at time.Time) (*settings.UserSettings, error)
}

type DelayLogs interface {
	Insert(ctx context.Context, d *delay.DelayLog) error
	FindByID(ctx context.Context, id string) (*delay.DelayLog, error)
	// Complete marks the delay completed and returns it. changed is true only
	// for the call that flipped it. ErrNotFound for an unknown id.
	Complete(ctx context.Context, id string) (d *delay.DelayLog, changed bool, err error)
	// CountCompleted counts completed delays, restricted to date when it is non-empty.
	CountCompleted(ctx context.Context, date string) (int, error)
}
