package helpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"emberAPI/handlers"
	"emberAPI/internal/docstore"
	"emberAPI/internal/docstore/postgres"
	"emberAPI/services"
)

// SetupTestStore connects to the database named by TEST_DATABASE_URL (or
// EMBER_DATABASE_URL), applies the schema and empties every collection.
func SetupTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("EMBER_DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or EMBER_DATABASE_URL must be set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	store := postgres.New(pool)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	truncate(t, pool)
	t.Cleanup(func() {
		truncate(t, pool)
		store.Close()
	})
	return store
}

func truncate(t *testing.T, pool *pgxpool.Pool) {
	tables := strings.Join([]string{
		docstore.CollectionDailyLogs,
		docstore.CollectionUserSettings,
		docstore.CollectionDelayLogs,
	}, ", ")
	if _, err := pool.Exec(context.Background(), "TRUNCATE "+tables); err != nil {
		t.Logf("Warning: failed to cleanup test data: %v", err)
	}
}

// NewTestRouter wires every service over store the way serve does, minus
// rate limiting and metrics.
func NewTestRouter(store docstore.Store) *mux.Router {
	logger := zerolog.Nop()
	settingsService := services.NewSettingsService(store, logger)
	delayService := services.NewDelayService(store, settingsService, logger)

	return handlers.NewRouter(handlers.RouterParams{
		Store:     store,
		Logs:      services.NewDailyLogService(store, logger),
		Settings:  settingsService,
		Delays:    delayService,
		Analytics: services.NewAnalyticsService(store, settingsService, delayService),
		Logger:    logger,
	})
}

// Do sends a request with an optional JSON body through h.
func Do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
