package analytics

import "emberAPI/internal/daily_log"

type Summary struct {
	Today             int                   `json:"today"`
	Yesterday         int                   `json:"yesterday"`
	Difference        int                   `json:"difference"`
	WeeklyTotal       int                   `json:"weekly_total"`
	MonthlyTotal      int                   `json:"monthly_total"`
	DailyAverage      float64               `json:"daily_average"`
	MoneySpentWeekly  float64               `json:"money_spent_weekly"`
	MoneySpentMonthly float64               `json:"money_spent_monthly"`
	Currency          string                `json:"currency"`
	DelayStreak       int                   `json:"delay_streak"`
	DailyData         []*daily_log.DailyLog `json:"daily_data"`
}
