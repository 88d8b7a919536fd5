package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
)

// WriteJSONError sends {"error": message} with the given status.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// RespondWithJSON writes payload as a JSON response.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBookingConflict), errors.Is(err, domain.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDependencyUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeUseCaseError logs the failure at a level matching its kind and writes the mapped response.
// Server side failures never leak their details to the client.
func writeUseCaseError(w http.ResponseWriter, logger port.LoggerPort, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Error("Use case failed", err, nil)
		WriteJSONError(w, status, "Internal server error")
	case http.StatusServiceUnavailable:
		logger.Error("Dependency unavailable", err, nil)
		WriteJSONError(w, status, "Service temporarily unavailable")
	default:
		logger.Warn("Request rejected", port.Fields{"error": err.Error(), "status_code": status})
		WriteJSONError(w, status, err.Error())
	}
}
