package handlers

import (
	"context"
	"net/http"
	"strconv"

	"emberAPI/internal/daily_log"
	"emberAPI/services"
)

type LogHandler struct {
	logService *services.DailyLogService
}

func NewLogHandler(logService *services.DailyLogService) *LogHandler {
	return &LogHandler{
		logService: logService,
	}
}

// GET /api/logs/today
func (h *LogHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	log, err := h.logService.Today(ctx)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get today's log")
		return
	}

	respondWithJSON(w, http.StatusOK, log)
}

// POST /api/logs/increment
func (h *LogHandler) Increment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	log, err := h.logService.Increment(ctx)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to increment")
		return
	}

	respondWithJSON(w, http.StatusOK, log)
}

// POST /api/logs/decrement
func (h *LogHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	log, err := h.logService.Decrement(ctx)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to decrement")
		return
	}

	respondWithJSON(w, http.StatusOK, log)
}

// GET /api/logs/history?days=N
func (h *LogHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	days := services.DefaultHistoryDays
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "days must be an integer")
			return
		}
		days = parsed
	}

	logs, err := h.logService.History(ctx, days)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get history")
		return
	}

	respondWithJSON(w, http.StatusOK, logs)
}

// POST /api/logs/reset-today
func (h *LogHandler) ResetToday(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	log, err := h.logService.ResetToday(ctx)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to reset today's log")
		return
	}

	respondWithJSON(w, http.StatusOK, log)
}

// POST /api/seed
func (h *LogHandler) Seed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	seeded, err := h.logService.Seed(ctx)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to seed data")
		return
	}

	respondWithJSON(w, http.StatusOK, daily_log.SeedResponse{SeededDays: seeded})
}
