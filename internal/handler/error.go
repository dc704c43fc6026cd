package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dukerupert/binbill/internal/domain"
	"github.com/dukerupert/binbill/internal/middleware"
	"github.com/dukerupert/binbill/internal/telemetry"
)

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
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
		return http.StatusBadGateway // 502: the platform failed us, not the caller
	default:
		return http.StatusInternalServerError // 500
	}
}

// ErrorResponse logs err and writes it to the client.
// JSON clients get {"error": {"code": ..., "message": ...}}; others get plain text.
// Internal details never reach the client.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	status := ErrorCodeToHTTPStatus(code)

	logger := middleware.GetLogger(r.Context())
	if status >= 500 {
		logger.Error().Err(err).Str("code", code).Str("op", domain.ErrorOp(err)).Int("status", status).Msg("request failed")
		if code == domain.EINTERNAL {
			telemetry.CaptureErrorFromContext(r.Context(), err, map[string]interface{}{
				"path":       r.URL.Path,
				"request_id": middleware.GetRequestID(r.Context()),
			})
		}
	} else {
		logger.Info().Err(err).Str("code", code).Int("status", status).Msg("request rejected")
	}

	if acceptsJSON(r) {
		WriteJSON(w, status, map[string]interface{}{
			"error": map[string]string{
				"code":    code,
				"message": message,
			},
		})
		return
	}

	http.Error(w, message, status)
}

// ValidationErrorResponse writes field-level errors as 400.
// Errors that are not validation errors go through ErrorResponse.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	fields := domain.GetValidationFields(err)
	if fields == nil {
		ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Info().Err(err).Msg("request validation failed")

	if !acceptsJSON(r) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    domain.EINVALID,
			"message": "Please correct the highlighted fields",
			"fields":  fields,
		},
	})
}

// NotFoundResponse writes a 404.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.ENOTFOUND, "", "The requested resource was not found"))
}

// InternalErrorResponse logs err and writes a generic 500.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		err = errors.New("unspecified internal error")
	}
	ErrorResponse(w, r, domain.Internal(err, "", "An unexpected error occurred"))
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// acceptsJSON checks if the client prefers JSON responses.
func acceptsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	if strings.HasSuffix(r.URL.Path, ".json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
