package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"emberAPI/services"
)

const requestTimeout = 5 * time.Second

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithValidationError(w http.ResponseWriter, verr *services.ValidationError) {
	respondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":  "Validation failed",
		"fields": verr.Fields,
	})
}

// respondWithServiceError maps a service error to a response. Anything that
// is not a validation failure is logged and reported as a 500 with message.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		respondWithValidationError(w, verr)
		return
	}

	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(message)
	respondWithError(w, http.StatusInternalServerError, message)
}
