package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/binbill/internal/domain"
)

// contextKey is a private type for context keys set by this package.
type contextKey string

// ============================================================================
// MIDDLEWARE ERROR RESPONSE HELPERS
// ============================================================================
//
// These mirror handler.ErrorResponse but are self-contained because handler
// imports middleware for GetLogger and GetRequestID.

// respondWithError writes an error response to the client.
// For JSON requests, returns structured JSON error.
// For other requests, returns plain text error.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	status := errorCodeToHTTPStatus(code)

	logger := GetLogger(r.Context())
	event := logger.Info()
	if status >= 500 {
		event = logger.Error()
	}
	event.
		Err(err).
		Str("code", code).
		Int("status", status).
		Msg("middleware error")

	if acceptsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"code":    code,
				"message": message,
			},
		})
		return
	}

	http.Error(w, message, status)
}

// respondTooManyRequests is a convenience wrapper for 429 errors.
func respondTooManyRequests(w http.ResponseWriter, r *http.Request) {
	err := domain.Errorf(domain.ERATELIMIT, "", "Too many requests")
	respondWithError(w, r, err)
}

// respondTooLarge is a convenience wrapper for 413 errors.
func respondTooLarge(w http.ResponseWriter, r *http.Request, message string) {
	err := domain.Errorf(domain.ETOOLARGE, "", "%s", message)
	respondWithError(w, r, err)
}

// respondUnavailable is a convenience wrapper for timeouts.
func respondUnavailable(w http.ResponseWriter, r *http.Request, message string) {
	err := domain.Unavailable(nil, "", message)
	respondWithError(w, r, err)
}

// errorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.EFORBIDDEN:
		return http.StatusForbidden // 403
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ECONFLICT:
		return http.StatusConflict // 409
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge // 413
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests // 429
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// acceptsJSON checks if the client prefers JSON responses.
// Everything under /api/ is JSON.
func acceptsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
