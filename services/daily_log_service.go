package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"emberAPI/internal/daily_log"
	"emberAPI/internal/docstore"
	"emberAPI/utils"
)

const (
	DefaultHistoryDays = 30
	// HistoryLimit caps every date-range read of daily logs.
	HistoryLimit = 1000

	SeedDays     = 14
	seedMinCount = 2
	seedMaxCount = 15
)

type DailyLogService struct {
	logs   docstore.DailyLogs
	now    func() time.Time
	rand   *utils.IntRange
	logger zerolog.Logger
}

func NewDailyLogService(store docstore.Store, logger zerolog.Logger) *DailyLogService {
	return &DailyLogService{
		logs:   store.DailyLogs(),
		now:    utils.NowUTC,
		rand:   utils.NewIntRange(),
		logger: logger.With().Str("component", "daily_log_service").Logger(),
	}
}

// GetOrCreate returns the log for date, creating an empty one on first
// access. An empty date means today. A concurrent create of the same date is
// detected through the duplicate insert and resolved by re-reading.
func (s *DailyLogService) GetOrCreate(ctx context.Context, date string) (*daily_log.DailyLog, error) {
	if date == "" {
		date = utils.DateString(s.now())
	}

	existing, err := s.logs.FindByDate(ctx, date)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("failed to get daily log: %w", err)
	}

	now := s.now()
	log := &daily_log.DailyLog{
		ID:        uuid.New().String(),
		Date:      date,
		Count:     0,
		Events:    []daily_log.Event{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.logs.Insert(ctx, log)
	if err == nil {
		s.logger.Debug().Str("date", date).Str("id", log.ID).Msg("created daily log")
		return log, nil
	}
	if !errors.Is(err, docstore.ErrDuplicate) {
		return nil, fmt.Errorf("failed to create daily log: %w", err)
	}

	s.logger.Debug().Str("date", date).Msg("daily log created concurrently, re-reading")
	existing, err = s.logs.FindByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily log: %w", err)
	}
	return existing, nil
}

func (s *DailyLogService) Today(ctx context.Context) (*daily_log.DailyLog, error) {
	return s.GetOrCreate(ctx, "")
}

// Increment records one smoking event for today. The daily limit is not
// enforced here.
func (s *DailyLogService) Increment(ctx context.Context) (*daily_log.DailyLog, error) {
	return s.record(ctx, daily_log.ActionAdd)
}

// Decrement undoes one smoking event for today. At a zero count it returns
// the log unchanged and appends nothing.
func (s *DailyLogService) Decrement(ctx context.Context) (*daily_log.DailyLog, error) {
	return s.record(ctx, daily_log.ActionRemove)
}

func (s *DailyLogService) record(ctx context.Context, action daily_log.Action) (*daily_log.DailyLog, error) {
	now := s.now()
	date := utils.DateString(now)

	current, err := s.GetOrCreate(ctx, date)
	if err != nil {
		return nil, err
	}
	if action == daily_log.ActionRemove && current.Count <= 0 {
		return current, nil
	}

	updated, err := s.logs.Record(ctx, date, daily_log.Event{Timestamp: now, Action: action})
	if err != nil {
		if action == daily_log.ActionRemove && errors.Is(err, docstore.ErrNotFound) {
			// another decrement drained the count between the read and the update
			return s.GetOrCreate(ctx, date)
		}
		return nil, fmt.Errorf("failed to record %s event: %w", action, err)
	}

	smokingEventsTotal.WithLabelValues(string(action)).Inc()
	return updated, nil
}

// History returns the logs dated within the last `days` days, oldest first.
func (s *DailyLogService) History(ctx context.Context, days int) ([]*daily_log.DailyLog, error) {
	if days < 0 {
		return nil, NewValidationError("days", "must be a non-negative integer")
	}

	from := utils.DaysAgo(s.now(), days)
	logs, err := s.logs.Since(ctx, from, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return logs, nil
}

// ResetToday zeroes today's count and clears its events.
func (s *DailyLogService) ResetToday(ctx context.Context) (*daily_log.DailyLog, error) {
	now := s.now()
	date := utils.DateString(now)

	if _, err := s.GetOrCreate(ctx, date); err != nil {
		return nil, err
	}

	log, err := s.logs.Reset(ctx, date, now)
	if err != nil {
		return nil, fmt.Errorf("failed to reset daily log: %w", err)
	}

	s.logger.Info().Str("date", date).Msg("reset today's log")
	return log, nil
}

// Seed fills each of the SeedDays days before today that has no log with a
// random count. Days that already have a log are skipped, so repeating the
// call is harmless. It returns the number of days inserted.
func (s *DailyLogService) Seed(ctx context.Context) (int, error) {
	now := s.now()
	seeded := 0

	for i := SeedDays; i >= 1; i-- {
		log := &daily_log.DailyLog{
			ID:        uuid.New().String(),
			Date:      utils.DaysAgo(now, i),
			Count:     s.rand.Between(seedMinCount, seedMaxCount),
			Events:    []daily_log.Event{},
			CreatedAt: now,
			UpdatedAt: now,
		}

		err := s.logs.Insert(ctx, log)
		if errors.Is(err, docstore.ErrDuplicate) {
			continue
		}
		if err != nil {
			return seeded, fmt.Errorf("failed to seed %s: %w", log.Date, err)
		}
		seeded++
	}

	seededDaysTotal.Add(float64(seeded))
	s.logger.Info().Int("seeded_days", seeded).Msg("seeded daily logs")
	return seeded, nil
}
