package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"emberAPI/services"
)

type DelayHandler struct {
	delayService *services.DelayService
}

func NewDelayHandler(delayService *services.DelayService) *DelayHandler {
	return &DelayHandler{
		delayService: delayService,
	}
}

// POST /api/delays/start
func (h *DelayHandler) StartDelay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	d, err := h.delayService.Start(ctx)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to start delay")
		return
	}

	respondWithJSON(w, http.StatusOK, d)
}

// POST /api/delays/{id}/complete
//
// An unknown id is answered with 200 and {"error":"Not found"}.
func (h *DelayHandler) CompleteDelay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := mux.Vars(r)["id"]

	d, err := h.delayService.Complete(ctx, id)
	if errors.Is(err, services.ErrNotFound) {
		respondWithError(w, http.StatusOK, "Not found")
		return
	}
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to complete delay")
		return
	}

	respondWithJSON(w, http.StatusOK, d)
}

// GET /api/delays/streak
func (h *DelayHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	streak, err := h.delayService.Streak(ctx)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get streak")
		return
	}

	respondWithJSON(w, http.StatusOK, streak)
}
