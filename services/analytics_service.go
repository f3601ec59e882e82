package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"emberAPI/internal/analytics"
	"emberAPI/internal/daily_log"
	"emberAPI/internal/docstore"
	"emberAPI/utils"
)

const (
	weekWindowDays  = 7
	monthWindowDays = 30
)

type AnalyticsService struct {
	logs     docstore.DailyLogs
	settings *SettingsService
	delays   *DelayService
	now      func() time.Time
}

func NewAnalyticsService(store docstore.Store, settingsService *SettingsService, delayService *DelayService) *AnalyticsService {
	return &AnalyticsService{
		logs:     store.DailyLogs(),
		settings: settingsService,
		delays:   delayService,
		now:      utils.NowUTC,
	}
}

// Summary reports totals, spend and the completed-delay count over the
// trailing 30 days as of now.
func (s *AnalyticsService) Summary(ctx context.Context) (*analytics.Summary, error) {
	now := s.now()

	logs, err := s.logs.Since(ctx, utils.DaysAgo(now, monthWindowDays), HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly logs: %w", err)
	}

	st, err := s.settings.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	delayStreak, err := s.delays.TotalCompleted(ctx)
	if err != nil {
		return nil, err
	}

	summary := summarize(logs, window{
		today:     utils.DateString(now),
		yesterday: utils.DaysAgo(now, 1),
		weekStart: utils.DaysAgo(now, weekWindowDays),
	}, decimal.NewFromFloat(st.CigarettePrice))
	summary.Currency = st.Currency
	summary.DelayStreak = delayStreak
	return summary, nil
}

type window struct {
	today     string
	yesterday string
	weekStart string
}

// summarize aggregates logs already restricted to the monthly window.
// The average divides by the number of logs present, not by calendar days.
// Results round half to even, once, at output.
func summarize(logs []*daily_log.DailyLog, w window, price decimal.Decimal) *analytics.Summary {
	var weekly, monthly, today, yesterday int
	for _, l := range logs {
		monthly += l.Count
		if l.Date >= w.weekStart {
			weekly += l.Count
		}
		switch l.Date {
		case w.today:
			today = l.Count
		case w.yesterday:
			yesterday = l.Count
		}
	}

	days := int64(max(len(logs), 1))
	average := decimal.NewFromInt(int64(monthly)).Div(decimal.NewFromInt(days))

	if logs == nil {
		logs = []*daily_log.DailyLog{}
	}

	return &analytics.Summary{
		Today:             today,
		Yesterday:         yesterday,
		Difference:        yesterday - today,
		WeeklyTotal:       weekly,
		MonthlyTotal:      monthly,
		DailyAverage:      average.RoundBank(1).InexactFloat64(),
		MoneySpentWeekly:  price.Mul(decimal.NewFromInt(int64(weekly))).RoundBank(2).InexactFloat64(),
		MoneySpentMonthly: price.Mul(decimal.NewFromInt(int64(monthly))).RoundBank(2).InexactFloat64(),
		DailyData:         logs,
	}
}
