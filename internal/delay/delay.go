package delay

import "time"

// DelayLog is one cooldown session the user started instead of smoking.
type DelayLog struct {
	ID              string    `json:"id" db:"id"`
	Date            string    `json:"date" db:"date"`
	StartedAt       time.Time `json:"started_at" db:"started_at"`
	Completed       bool      `json:"completed" db:"completed"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`
}

// Streak counts completed delays. It is cumulative, not a run of consecutive days.
type Streak struct {
	TotalCompleted int `json:"total_completed"`
	TodayCompleted int `json:"today_completed"`
}
