package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"emberAPI/internal/delay"
	"emberAPI/internal/docstore"
	"emberAPI/utils"
)

type DelayService struct {
	delays   docstore.DelayLogs
	settings *SettingsService
	now      func() time.Time
	logger   zerolog.Logger
}

func NewDelayService(store docstore.Store, settingsService *SettingsService, logger zerolog.Logger) *DelayService {
	return &DelayService{
		delays:   store.DelayLogs(),
		settings: settingsService,
		now:      utils.NowUTC,
		logger:   logger.With().Str("component", "delay_service").Logger(),
	}
}

// Start opens a delay session whose duration is copied from the current
// settings. Later settings changes do not affect it.
func (s *DelayService) Start(ctx context.Context) (*delay.DelayLog, error) {
	st, err := s.settings.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &delay.DelayLog{
		ID:              uuid.New().String(),
		Date:            utils.DateString(now),
		StartedAt:       now,
		Completed:       false,
		DurationSeconds: st.DelayDuration,
	}

	if err := s.delays.Insert(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to start delay: %w", err)
	}

	delaysTotal.WithLabelValues("started").Inc()
	s.logger.Debug().Str("id", d.ID).Int("duration_seconds", d.DurationSeconds).Msg("delay started")
	return d, nil
}

// Complete marks the delay completed. Completing twice is a no-op and is
// counted once. An unknown id yields ErrNotFound.
func (s *DelayService) Complete(ctx context.Context, id string) (*delay.DelayLog, error) {
	d, changed, err := s.delays.Complete(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to complete delay: %w", err)
	}

	if changed {
		delaysTotal.WithLabelValues("completed").Inc()
	}
	return d, nil
}

func (s *DelayService) TotalCompleted(ctx context.Context) (int, error) {
	total, err := s.delays.CountCompleted(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to count completed delays: %w", err)
	}
	return total, nil
}

func (s *DelayService) Streak(ctx context.Context) (*delay.Streak, error) {
	total, err := s.TotalCompleted(ctx)
	if err != nil {
		return nil, err
	}

	today, err := s.delays.CountCompleted(ctx, utils.DateString(s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to count today's completed delays: %w", err)
	}

	return &delay.Streak{TotalCompleted: total, TodayCompleted: today}, nil
}
