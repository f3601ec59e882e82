package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"emberAPI/internal/docstore"
	"emberAPI/internal/docstore/sqlite"
)

func newTestStore(t *testing.T) docstore.Store {
	t.Helper()

	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "ember.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fakeClock is a settable clock shared by the services under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now string) *fakeClock {
	t, err := time.Parse(time.RFC3339, now)
	if err != nil {
		panic(err)
	}
	return &fakeClock{now: t.UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	// advance a little so consecutive events get distinct timestamps
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) Set(now string) {
	t, err := time.Parse(time.RFC3339, now)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

type testServices struct {
	store     docstore.Store
	clock     *fakeClock
	logs      *DailyLogService
	settings  *SettingsService
	delays    *DelayService
	analytics *AnalyticsService
}

func newTestServices(t *testing.T, now string) *testServices {
	t.Helper()

	store := newTestStore(t)
	clock := newFakeClock(now)
	logger := zerolog.Nop()

	logs := NewDailyLogService(store, logger)
	logs.now = clock.Now
	settingsService := NewSettingsService(store, logger)
	settingsService.now = clock.Now
	delays := NewDelayService(store, settingsService, logger)
	delays.now = clock.Now
	analyticsService := NewAnalyticsService(store, settingsService, delays)
	analyticsService.now = clock.Now

	return &testServices{
		store:     store,
		clock:     clock,
		logs:      logs,
		settings:  settingsService,
		delays:    delays,
		analytics: analyticsService,
	}
}
