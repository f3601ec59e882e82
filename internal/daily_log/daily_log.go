package daily_log

import "time"

type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// Delta is the change to a log's count that an event of this action carries.
func (a Action) Delta() int {
	if a == ActionRemove {
		return -1
	}
	return 1
}

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
}

// DailyLog is the smoking counter for a single UTC calendar date.
type DailyLog struct {
	ID        string    `json:"id" db:"id"`
	Date      string    `json:"date" db:"date"`
	Count     int       `json:"count" db:"count"`
	Events    []Event   `json:"events" db:"events"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type SeedResponse struct {
	SeededDays int `json:"seeded_days"`
}
