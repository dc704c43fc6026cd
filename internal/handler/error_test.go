package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/binbill/internal/domain"
)

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{domain.EUNAVAILABLE, http.StatusBadGateway},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ErrorCodeToHTTPStatus(tt.code); got != tt.expected {
				t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.expected)
			}
		})
	}
}

func TestErrorResponse_JSON(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "not found error",
			err:            domain.NotFound("upload.get", "upload", "abc-123"),
			expectedStatus: http.StatusNotFound,
			expectedCode:   domain.ENOTFOUND,
		},
		{
			name:           "invalid error",
			err:            domain.Invalid("upload.create", "file has a header but no data rows"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.EINVALID,
		},
		{
			name:           "conflict error",
			err:            domain.Conflict("upload.confirm", "an upload is already in progress"),
			expectedStatus: http.StatusConflict,
			expectedCode:   domain.ECONFLICT,
		},
		{
			name:           "platform unreachable",
			err:            domain.Unavailable(errors.New("dial tcp: connection refused"), "platform.bulkEnroll", ""),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   domain.EUNAVAILABLE,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Accept", "application/json")
			rec := httptest.NewRecorder()

			ErrorResponse(rec, req, tt.err)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.expectedStatus)
			}

			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q", ct, "application/json")
			}

			var response struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}

			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if response.Error.Code != tt.expectedCode {
				t.Errorf("error.code = %q, want %q", response.Error.Code, tt.expectedCode)
			}
			if response.Error.Message == "" {
				t.Error("error.message should not be empty")
			}
		})
	}
}

func TestErrorResponse_PlainText(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	err := domain.NotFound("upload.get", "upload", "abc-123")
	ErrorResponse(rec, req, err)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	if body := rec.Body.String(); body == "" {
		t.Error("response body should not be empty")
	}
}

func TestErrorResponse_InternalHidesDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	err := domain.Internal(nil, "db.query", "failed to connect to database at 192.168.1.100:5432")
	ErrorResponse(rec, req, err)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var response struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	expected := "An internal error occurred. Please try again later."
	if response.Error.Message != expected {
		t.Errorf("message = %q, want %q", response.Error.Message, expected)
	}
}

func TestValidationErrorResponse_JSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/x/confirm", nil)
	rec := httptest.NewRecorder()

	err := domain.NewValidationError("upload.confirm", "collectionId", "collection is required")
	err = domain.AddFieldError(err, "file", "file is required")

	ValidationErrorResponse(rec, req, err)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var response struct {
		Error struct {
			Code   string            `json:"code"`
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}

	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Error.Code != domain.EINVALID {
		t.Errorf("error.code = %q, want %q", response.Error.Code, domain.EINVALID)
	}
	if len(response.Error.Fields) != 2 {
		t.Errorf("fields count = %d, want 2", len(response.Error.Fields))
	}
	if response.Error.Fields["collectionId"] != "collection is required" {
		t.Errorf("fields[collectionId] = %q", response.Error.Fields["collectionId"])
	}
}

func TestValidationErrorResponse_NonValidationError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	ValidationErrorResponse(rec, req, domain.NotFound("upload.get", "upload", "123"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestConvenienceResponses(t *testing.T) {
	t.Run("NotFoundResponse", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rec := httptest.NewRecorder()

		NotFoundResponse(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("InternalErrorResponse", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()

		InternalErrorResponse(rec, req, nil)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}

func TestAcceptsJSON(t *testing.T) {
	tests := []struct {
		name        string
		accept      string
		contentType string
		path        string
		expected    bool
	}{
		{name: "application/json in Accept", accept: "application/json", expected: true},
		{name: "application/json with charset in Accept", accept: "application/json; charset=utf-8", expected: true},
		{name: "application/json in Content-Type", contentType: "application/json", expected: true},
		{name: ".json extension in path", path: "/reports/summary.json", expected: true},
		{name: "api path", path: "/api/uploads", expected: true},
		{name: "text/html Accept", accept: "text/html", path: "/health"},
		{name: "no headers", path: "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if path == "" {
				path = "/test"
			}

			req := httptest.NewRequest(http.MethodGet, path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			if got := acceptsJSON(req); got != tt.expected {
				t.Errorf("acceptsJSON() = %v, want %v", got, tt.expected)
			}
		})
	}
}
