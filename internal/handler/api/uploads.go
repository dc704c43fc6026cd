package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dukerupert/binbill/internal/customer"
	"github.com/dukerupert/binbill/internal/domain"
	"github.com/dukerupert/binbill/internal/handler"
	"github.com/dukerupert/binbill/internal/middleware"
	"github.com/dukerupert/binbill/internal/service"
	"github.com/dukerupert/binbill/internal/session"
)

// maxMemory is how much of a multipart upload is held in memory before
// spilling to temp files.
const maxMemory = 8 << 20

// UploadHandler serves the bulk upload API.
type UploadHandler struct {
	service  service.UploadService
	validate *validator.Validate
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(svc service.UploadService) *UploadHandler {
	return &UploadHandler{
		service:  svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// uploadResponse is the JSON view of an upload session.
type uploadResponse struct {
	ID    uuid.UUID `json:"id"`
	Actor string    `json:"actor,omitempty"`
	customer.Snapshot
	ReportURL string    `json:"reportUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// parseFailedResponse is the 400 body for a file that could not be parsed.
type parseFailedResponse struct {
	Error  errorBody      `json:"error"`
	Upload uploadResponse `json:"upload"`
}

func newUploadResponse(s *session.Session) uploadResponse {
	resp := uploadResponse{
		ID:        s.ID,
		Actor:     s.Actor,
		Snapshot:  s.Snapshot,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.ReportKey != "" {
		resp.ReportURL = fmt.Sprintf("/api/uploads/%s/errors.xlsx", s.ID)
	}
	return resp
}

// Create handles POST /api/uploads
//
// Multipart form: file (required, .csv or .xlsx), actor (optional; the
// X-Actor header is used when absent).
//
// Responds 201 with the preview, 422 with every row error when validation
// failed, 400 when the file could not be parsed. The 400 body carries the
// error and the failed upload.
func (h *UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handler.ErrorResponse(w, r, domain.Errorf(domain.ETOOLARGE, "upload.create", "The file is larger than %d MB", tooLarge.Limit>>20))
			return
		}
		handler.ValidationErrorResponse(w, r, domain.NewValidationError("upload.create", "file", "Send the file as multipart/form-data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		handler.ValidationErrorResponse(w, r, domain.NewValidationError("upload.create", "file", "A .csv or .xlsx file is required"))
		return
	}
	defer file.Close()

	actor := r.FormValue("actor")
	if actor == "" {
		actor = r.Header.Get(middleware.ActorHeader)
	}

	sess, err := h.service.Create(r.Context(), actor, header.Filename, file)
	if err != nil && sess != nil {
		// The failed upload is in history; tell the client which one it is.
		middleware.GetLogger(r.Context()).Info().Err(err).Str("upload_id", sess.ID.String()).Msg("upload could not be parsed")
		handler.WriteJSON(w, http.StatusBadRequest, parseFailedResponse{
			Error: errorBody{
				Code:    domain.ErrorCode(err),
				Message: domain.ErrorMessage(err),
			},
			Upload: newUploadResponse(sess),
		})
		return
	}
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	status := http.StatusCreated
	if sess.Snapshot.State == customer.StateValidationFailed {
		status = http.StatusUnprocessableEntity
	}
	handler.WriteJSON(w, status, newUploadResponse(sess))
}

// Get handles GET /api/uploads/{id}
func (h *UploadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uploadID(w, r)
	if !ok {
		return
	}

	sess, err := h.service.Get(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, newUploadResponse(sess))
}

type confirmRequest struct {
	CollectionID string `json:"collectionId" validate:"required,max=128"`
}

// Confirm handles POST /api/uploads/{id}/confirm
//
// Body: {"collectionId": "..."}. Responds 200 with the platform's per-row
// result. Rows the platform rejected are part of a successful response.
func (h *UploadHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := uploadID(w, r)
	if !ok {
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		handler.ErrorResponse(w, r, domain.Invalid("upload.confirm", "Request body must be JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handler.ValidationErrorResponse(w, r, domain.NewValidationError("upload.confirm", "collectionId", "Choose a collection to enroll customers into"))
		return
	}

	sess, err := h.service.Confirm(r.Context(), id, req.CollectionID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, newUploadResponse(sess))
}

// Cancel handles POST /api/uploads/{id}/cancel
func (h *UploadHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := uploadID(w, r)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Report handles GET /api/uploads/{id}/errors.xlsx
func (h *UploadHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := uploadID(w, r)
	if !ok {
		return
	}

	rc, err := h.service.Report(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", service.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="upload-%s-errors.xlsx"`, id))
	if _, err := io.Copy(w, rc); err != nil {
		middleware.GetLogger(r.Context()).Warn().Err(err).Msg("failed to stream error report")
	}
}

// Template handles GET /api/uploads/template.csv
func (h *UploadHandler) Template(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="customer-upload-template.csv"`)
	if err := customer.WriteTemplate(w); err != nil {
		middleware.GetLogger(r.Context()).Warn().Err(err).Msg("failed to write template")
	}
}

// History handles GET /api/uploads?limit=N
func (h *UploadHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			handler.ValidationErrorResponse(w, r, domain.NewValidationError("upload.history", "limit", "limit must be a positive number"))
			return
		}
		limit = n
	}

	uploads, err := h.service.History(r.Context(), limit)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": uploads})
}

// Collections handles GET /api/collections
func (h *UploadHandler) Collections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.service.Collections(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": collections})
}

func uploadID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, service.ErrUploadNotFound)
		return uuid.Nil, false
	}
	return id, true
}
