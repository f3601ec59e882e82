package handlers

import (
	"context"
	"net/http"

	"emberAPI/services"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
	}
}

// GET /api/analytics/summary
func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := h.analyticsService.Summary(ctx)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get analytics")
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}
