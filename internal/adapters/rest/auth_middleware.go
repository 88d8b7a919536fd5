package rest

import (
	"net/http"
	"search-analytics-service/internal/contextkeys"

	"github.com/google/uuid"
)

const userIDHeader = "X-User-ID"

// AuthMiddleware reads the caller id set by the API gateway after token validation.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userIDStr := r.Header.Get(userIDHeader)
		if userIDStr == "" {
			WriteJSONError(w, http.StatusUnauthorized, "Authentication error: User ID header is missing")
			return
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			WriteJSONError(w, http.StatusUnauthorized, "Authentication error: Invalid User ID format")
			return
		}

		next.ServeHTTP(w, r.WithContext(contextkeys.ContextWithUserID(r.Context(), userID)))
	})
}
