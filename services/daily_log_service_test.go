package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emberAPI/internal/daily_log"
	"emberAPI/internal/docstore"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	svc := newTestServices(t, "2025-03-10T09:00:00Z")
	ctx := context.Background()

	first, err := svc.logs.GetOrCreate(ctx, "2025-03-01")
	require.NoError(t, err)
	second, err := svc.logs.GetOrCreate(ctx, "2025-03-01")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "2025-03-01", second.Date)
	assert.Equal(t, 0, second.Count)
	assert.Empty(t, second.Events)

	all, err := svc.store.DailyLogs().Since(ctx, "2025-01-01", HistoryLimit)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetOrCreateDefaultsToToday(t *testing.T) {
	svc := newTestServices(t, "2025-03-10T23:59:00Z")

	log, err := svc.logs.Today(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", log.Date)
	assert.NotEmpty(t, log.ID)
}

func TestGetOrCreateConcurrent(t *testing.T) {
	svc := newTestServices(t, "2025-03-10T09:00:00Z")
	ctx := context.Background()

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log, err := svc.logs.GetOrCreate(ctx, "2025-03-10")
			if assert.NoError(t, err) {
				ids[i] = log.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	all, err := svc.store.DailyLogs().Since(ctx, "2025-03-10", HistoryLimit)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// lateReader hides an existing log from the first lookup, as if another
// request created it between our read and our insert.
type lateReader struct {
	docstore.DailyLogs
	misses int
}

func (l *lateReader) FindByDate(ctx context.Context, date string) (*daily_log.DailyLog, error) {
	if l.misses > 0 {
		l.misses--
		return nil, docstore.ErrNotFound
	}
	return l.DailyLogs.FindByDate(ctx, date)
}

func TestGetOrCreateRereadsAfterDuplicateInsert(t *testing.T) {
	svc := newTestServices(t, "2025-03-10T09:00:00Z")
	ctx := context.Background()

	winner, err := svc.logs.GetOrCreate(ctx, "2025-03-10")
	require.NoError(t, err)

	svc.logs.logs = &lateReader{DailyLogs: svc.store.DailyLogs(), misses: 1}

	got, err := svc.logs.GetOrCreate(ctx, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
}

func TestIncrementAndDecrement(t *testing.T) {
	svc := newTestServices(t, "2025-03-10T09:00:00Z")
	ctx := context.Background()

	var log *daily_log.DailyLog
	var err error
	for i := 0; i < 3; i++ {
		log, err = svc.logs.Increment(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, log.Count)
	require.Len(t, log.Events, 3)
	assert.Equal(t, daily_log.ActionAdd, log.Events[2].Action)
	assert.True(t, log.Events[0].Timestamp.Before(log.Events[2].Timestamp))

	before := log.Count
	log, err = svc.logs.Increment(ctx)
	require.NoError(t, err)
	log, err = svc.logs.Decrement(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, log.Count)
	require.Len(t, log.Events, 5)
	assert.Equal(t, daily_log.ActionRemove, log.Events[4].Action)
}

func TestDecrementAtZeroIsNoop(t *testing.T) {
	svc := newTestServices(t, "2025-03-10T09:00:00Z")
	ctx := context.Background()

	log, err := svc.logs.Decrement(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, log.Count)
	assert.Empty(t, log.Events)

	_, err = svc.logs.Increment(ctx)
	require.NoError(t, err)
	_, err = svc.logs.Decrement(ctx)
	require.NoError(t, err)

	log, err = svc.logs.Decrement(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, log.Count)
	assert.Len(t, log.Events, 2)
}

func TestConcurrentDecrementsNeverGoNegative(t *testing.T) {
	svc := newTestServices(t, "2025-03-10T09:00:00Z")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.logs.Increment(ctx)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.logs.Decrement(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	log, err := svc.logs.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, log.Count)
	assert.Len(t, log.Events, 6)
}

func TestIncrementRollsOverAtMidnight(t *testing.T) {
	svc := newTestServices(t, "2025-03-10T23:59:00Z")
	ctx := context.Background()

	yesterday, err := svc.logs.Increment(ctx)
	require.NoError(t, err)

	svc.clock.Set("2025-03-11T00:00:30Z")
	today, err := svc.logs.Increment(ctx)
	require.NoError(t, err)

	assert.Equal(t, "2025-03-10", yesterday.Date)
	assert.Equal(t, "2025-03-11", today.Date)
	assert.NotEqual(t, yesterday.ID, today.ID)
	assert.Equal(t, 1, today.Count)
}

func TestResetToday(t *testing.T) {
	svc := newTestServices(t, "2025-03-10T09:00:00Z")
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.logs.Increment(ctx)
		require.NoError(t, err)
	}
	_, err := svc.logs.Decrement(ctx)
	require.NoError(t, err)

	log, err := svc.logs.ResetToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, log.Count)
	assert.Empty(t, log.Events)
	assert.Equal(t, "2025-03-10", log.Date)
}

func TestResetTodayCreatesMissingLog(t *testing.T) {
	svc := newTestServices(t, "2025-03-10T09:00:00Z")

	log, err := svc.logs.ResetToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, log.Count)
	assert.NotEmpty(t, log.ID)
}

func TestHistory(t *testing.T) {
	svc := newTestServices(t, "2025-03-31T12:00:00Z")
	ctx := context.Background()

	for _, date := range []string{"2025-03-31", "2025-02-20", "2025-03-24", "2025-03-01", "2025-03-23", "2025-03-15"} {
		_, err := svc.logs.GetOrCreate(ctx, date)
		require.NoError(t, err)
	}

	month, err := svc.logs.History(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-01", "2025-03-15", "2025-03-23", "2025-03-24", "2025-03-31"}, dates(month))

	week, err := svc.logs.History(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-24", "2025-03-31"}, dates(week))
	assert.Subset(t, dates(month), dates(week))

	today, err := svc.logs.History(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-31"}, dates(today))
}

func TestHistoryRejectsNegativeDays(t *testing.T) {
	svc := newTestServices(t, "2025-03-31T12:00:00Z")

	_, err := svc.logs.History(context.Background(), -1)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "days")
}

func TestSeed(t *testing.T) {
	svc := newTestServices(t, "2025-03-15T12:00:00Z")
	ctx := context.Background()

	seeded, err := svc.logs.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedDays, seeded)

	logs, err := svc.logs.History(ctx, 30)
	require.NoError(t, err)
	require.Len(t, logs, SeedDays)
	assert.Equal(t, "2025-03-01", logs[0].Date)
	assert.Equal(t, "2025-03-14", logs[len(logs)-1].Date)
	for _, l := range logs {
		assert.GreaterOrEqual(t, l.Count, 2)
		assert.LessOrEqual(t, l.Count, 15)
	}

	seeded, err = svc.logs.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, seeded)
}

func TestSeedSkipsExistingDays(t *testing.T) {
	svc := newTestServices(t, "2025-03-15T12:00:00Z")
	ctx := context.Background()

	existing, err := svc.logs.GetOrCreate(ctx, "2025-03-10")
	require.NoError(t, err)

	seeded, err := svc.logs.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedDays-1, seeded)

	kept, err := svc.logs.GetOrCreate(ctx, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, kept.ID)
	assert.Equal(t, 0, kept.Count)
}

func dates(logs []*daily_log.DailyLog) []string {
	out := make([]string, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.Date)
	}
	return out
}
