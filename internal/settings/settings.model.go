package settings

import "time"

const (
	DefaultDailyLimit     = 10
	DefaultCigarettePrice = 0.50
	DefaultCurrency       = "USD"
	DefaultDelayDuration  = 300
)

type UserSettings struct {
	ID             string    `json:"id" db:"id"`
	DailyLimit     int       `json:"daily_limit" db:"daily_limit"`
	CigarettePrice float64   `json:"cigarette_price" db:"cigarette_price"`
	Currency       string    `json:"currency" db:"currency"`
	SoundEnabled   bool      `json:"sound_enabled" db:"sound_enabled"`
	DelayDuration  int       `json:"delay_duration" db:"delay_duration"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
