package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emberAPI/internal/daily_log"
	"emberAPI/internal/delay"
	"emberAPI/internal/docstore"
	"emberAPI/internal/settings"
)

// Run exercises the docstore contract against a driver. makeStore must
// return a clean, isolated store.
func Run(t *testing.T, makeStore func(t *testing.T) docstore.Store) {
	t.Helper()

	t.Run("DailyLogs", func(t *testing.T) { runDailyLogs(t, makeStore(t)) })
	t.Run("Settings", func(t *testing.T) { runSettings(t, makeStore(t)) })
	t.Run("DelayLogs", func(t *testing.T) { runDelayLogs(t, makeStore(t)) })
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func runDailyLogs(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	logs := s.DailyLogs()
	created := ts("2025-03-10T08:00:00Z")

	_, err := logs.FindByDate(ctx, "2025-03-10")
	require.ErrorIs(t, err, docstore.ErrNotFound)

	first := &daily_log.DailyLog{ID: uuid.NewString(), Date: "2025-03-10", CreatedAt: created, UpdatedAt: created}
	require.NoError(t, logs.Insert(ctx, first))

	dup := &daily_log.DailyLog{ID: uuid.NewString(), Date: "2025-03-10", CreatedAt: created, UpdatedAt: created}
	require.ErrorIs(t, logs.Insert(ctx, dup), docstore.ErrDuplicate)

	got, err := logs.FindByDate(ctx, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 0, got.Count)
	assert.Empty(t, got.Events)
	assert.NotNil(t, got.Events)
	assert.True(t, created.Equal(got.CreatedAt))

	// a remove on a zero count matches nothing
	_, err = logs.Record(ctx, "2025-03-10", daily_log.Event{Timestamp: created, Action: daily_log.ActionRemove})
	require.ErrorIs(t, err, docstore.ErrNotFound)

	at := created.Add(time.Minute)
	got, err = logs.Record(ctx, "2025-03-10", daily_log.Event{Timestamp: at, Action: daily_log.ActionAdd})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)
	require.Len(t, got.Events, 1)
	assert.Equal(t, daily_log.ActionAdd, got.Events[0].Action)
	assert.True(t, at.Equal(got.Events[0].Timestamp))
	assert.True(t, at.Equal(got.UpdatedAt))

	got, err = logs.Record(ctx, "2025-03-10", daily_log.Event{Timestamp: at.Add(time.Minute), Action: daily_log.ActionAdd})
	require.NoError(t, err)
	got, err = logs.Record(ctx, "2025-03-10", daily_log.Event{Timestamp: at.Add(2 * time.Minute), Action: daily_log.ActionRemove})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)
	require.Len(t, got.Events, 3)
	assert.Equal(t, daily_log.ActionRemove, got.Events[2].Action)

	_, err = logs.Record(ctx, "2025-03-11", daily_log.Event{Timestamp: at, Action: daily_log.ActionAdd})
	require.ErrorIs(t, err, docstore.ErrNotFound)

	reset, err := logs.Reset(ctx, "2025-03-10", at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, reset.Count)
	assert.Empty(t, reset.Events)
	assert.Equal(t, first.ID, reset.ID)

	_, err = logs.Reset(ctx, "2025-03-11", at)
	require.ErrorIs(t, err, docstore.ErrNotFound)

	for _, date := range []string{"2025-03-08", "2025-03-12", "2025-03-09"} {
		require.NoError(t, logs.Insert(ctx, &daily_log.DailyLog{ID: uuid.NewString(), Date: date, Count: 4, CreatedAt: created, UpdatedAt: created}))
	}

	since, err := logs.Since(ctx, "2025-03-09", 1000)
	require.NoError(t, err)
	dates := make([]string, 0, len(since))
	for _, l := range since {
		dates = append(dates, l.Date)
	}
	assert.Equal(t, []string{"2025-03-09", "2025-03-10", "2025-03-12"}, dates)

	limited, err := logs.Since(ctx, "2025-01-01", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "2025-03-08", limited[0].Date)
}

func runSettings(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	store := s.Settings()
	created := ts("2025-03-10T08:00:00Z")

	_, err := store.Find(ctx)
	require.ErrorIs(t, err, docstore.ErrNotFound)

	defaults := &settings.UserSettings{
		ID:             uuid.NewString(),
		DailyLimit:     settings.DefaultDailyLimit,
		CigarettePrice: settings.DefaultCigarettePrice,
		Currency:       settings.DefaultCurrency,
		DelayDuration:  settings.DefaultDelayDuration,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	require.NoError(t, store.Insert(ctx, defaults))

	second := *defaults
	second.ID = uuid.NewString()
	require.ErrorIs(t, store.Insert(ctx, &second), docstore.ErrDuplicate)

	got, err := store.Find(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults.ID, got.ID)
	assert.Equal(t, 10, got.DailyLimit)
	assert.InDelta(t, 0.50, got.CigarettePrice, 1e-9)
	assert.Equal(t, "USD", got.Currency)
	assert.False(t, got.SoundEnabled)
	assert.Equal(t, 300, got.DelayDuration)

	limit := 15
	sound := true
	at := created.Add(time.Hour)
	got, err = store.Update(ctx, &settings.UpdateSettingsRequest{DailyLimit: &limit, SoundEnabled: &sound}, at)
	require.NoError(t, err)
	assert.Equal(t, 15, got.DailyLimit)
	assert.True(t, got.SoundEnabled)
	assert.InDelta(t, 0.50, got.CigarettePrice, 1e-9)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, 300, got.DelayDuration)
	assert.True(t, at.Equal(got.UpdatedAt))
	assert.True(t, created.Equal(got.CreatedAt))

	sound = false
	price := 0.0
	got, err = store.Update(ctx, &settings.UpdateSettingsRequest{SoundEnabled: &sound, CigarettePrice: &price}, at)
	require.NoError(t, err)
	assert.False(t, got.SoundEnabled)
	assert.Zero(t, got.CigarettePrice)
	assert.Equal(t, 15, got.DailyLimit)
}

func runDelayLogs(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	store := s.DelayLogs()
	started := ts("2025-03-10T08:00:00Z")

	_, changed, err := store.Complete(ctx, "missing")
	require.ErrorIs(t, err, docstore.ErrNotFound)
	assert.False(t, changed)

	ids := make([]string, 0, 3)
	for _, date := range []string{"2025-03-09", "2025-03-10", "2025-03-10"} {
		d := &delay.DelayLog{ID: uuid.NewString(), Date: date, StartedAt: started, DurationSeconds: 300}
		require.NoError(t, store.Insert(ctx, d))
		ids = append(ids, d.ID)
	}

	got, err := store.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, got.Completed)
	assert.Equal(t, 300, got.DurationSeconds)
	assert.True(t, started.Equal(got.StartedAt))

	total, err := store.CountCompleted(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, total)

	for i, id := range []string{ids[0], ids[1], ids[1]} {
		got, changed, err = store.Complete(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.Completed)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, i < 2, changed, "complete #%d", i)
	}

	total, err = store.CountCompleted(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	today, err := store.CountCompleted(ctx, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, 1, today)

	_, err = store.FindByID(ctx, "missing")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}
