package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/photoboard/internal/apperr"
	"github.com/starford/photoboard/internal/index"
	"github.com/starford/photoboard/internal/models"
	"github.com/starford/photoboard/internal/workflow"
)

// Workflow is the engine surface the handlers drive.
type Workflow interface {
	Catalog() models.Catalog
	Get(id string) (models.Photo, error)
	Move(ctx context.Context, id string, target models.Category) (models.Catalog, error)
	Archive(ctx context.Context, id string) (models.Photo, error)
	Ingest(ctx context.Context, uploads []workflow.Upload) ([]models.Photo, error)
	Audit() (workflow.Report, error)
	Verify() (workflow.Report, error)
}

// History reads the transition journal.
type History interface {
	History(photoID string) ([]index.Transition, error)
	Gaps(limit int) ([]index.Transition, error)
}

var _ Workflow = (*workflow.Engine)(nil)

// multipartMemory is how much of an upload form is buffered in memory
// before spilling to temp files.
const multipartMemory = 32 << 20

// Handler holds API route handlers.
type Handler struct {
	engine  Workflow
	journal History
	policy  workflow.Policy
}

// NewHandler creates a new Handler. journal may be nil.
func NewHandler(engine Workflow, journal History, policy workflow.Policy) *Handler {
	return &Handler{engine: engine, journal: journal, policy: policy}
}

// ListPhotos handles GET /api/photos.
//
//	@Summary		Get the catalog grouped by category
//	@Tags			photos
//	@Produce		json
//	@Success		200	{object}	models.Catalog
//	@Security		BearerAuth
//	@Router			/photos [get]
func (h *Handler) ListPhotos(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Catalog())
}

// GetPhoto handles GET /api/photos/{id}.
//
//	@Summary		Get a single photo, archived included
//	@Tags			photos
//	@Produce		json
//	@Param			id	path		string	true	"Photo id"
//	@Success		200	{object}	models.Photo
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/photos/{id} [get]
func (h *Handler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get photo", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PhotoHistory handles GET /api/photos/{id}/history.
//
//	@Summary		List the recorded transitions of a photo
//	@Tags			photos
//	@Produce		json
//	@Param			id	path		string	true	"Photo id"
//	@Success		200	{object}	HistoryResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/photos/{id}/history [get]
func (h *Handler) PhotoHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.engine.Get(id); err != nil {
		h.fail(w, "photo history", err)
		return
	}
	rows := []index.Transition{}
	if h.journal != nil {
		var err error
		if rows, err = h.journal.History(id); err != nil {
			h.fail(w, "photo history", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{ID: id, Transitions: rows})
}

// Upload handles POST /api/upload (multipart/form-data, field "photos").
//
//	@Summary		Upload one or more photos into todo
//	@Tags			photos
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			photos	formData	file	true	"Photo files"
//	@Success		200		{object}	UploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		429		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.policy.MaxBytes*4 + 1<<20
	if h.policy.MaxBytes <= 0 {
		limit = workflow.DefaultMaxBytes*4 + 1<<20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("Upload too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("No photos provided"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	// A file input submitted with nothing selected arrives as a part with an
	// empty filename, which the multipart reader files under Value.
	headers := r.MultipartForm.File["photos"]
	if len(headers) == 0 && len(r.MultipartForm.Value["photos"]) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("No photos provided"))
		return
	}

	uploads := make([]workflow.Upload, 0, len(headers))
	for _, fh := range headers {
		if !h.policy.Accept(fh.Filename, fh.Size) {
			continue
		}
		data, err := readPart(fh)
		if err != nil {
			slog.Warn("skipping unreadable upload",
				slog.String("filename", fh.Filename),
				slog.String("error", err.Error()))
			continue
		}
		uploads = append(uploads, workflow.Upload{Name: fh.Filename, Data: data})
	}
	if len(uploads) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("No valid photos uploaded"))
		return
	}

	photos, err := h.engine.Ingest(r.Context(), uploads)
	if err != nil {
		h.fail(w, "upload", err)
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{Success: true, Photos: photos, Count: len(photos)})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// MovePhoto handles POST /api/move.
//
//	@Summary		Move a photo to todo, doing or done
//	@Tags			photos
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveRequest	true	"Photo and target category"
//	@Success		200		{object}	MoveResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/move [post]
func (h *Handler) MovePhoto(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := decodeJSON(w, r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request"))
		return
	}

	cat, err := h.engine.Move(r.Context(), req.PhotoID, models.Category(req.Category))
	if err != nil {
		h.fail(w, "move photo", err)
		return
	}
	writeJSON(w, http.StatusOK, MoveResponse{Success: true, Data: cat})
}

// ArchivePhoto handles DELETE /api/delete/{id}.
//
//	@Summary		Archive a photo
//	@Tags			photos
//	@Produce		json
//	@Param			id	path		string	true	"Photo id"
//	@Success		200	{object}	ArchiveResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/delete/{id} [delete]
func (h *Handler) ArchivePhoto(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.Archive(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "archive photo", err)
		return
	}
	writeJSON(w, http.StatusOK, ArchiveResponse{Success: true, Message: "Photo archived"})
}

// Consistency handles GET /api/consistency.
//
//	@Summary		Compare the catalog with the category directories
//	@Tags			consistency
//	@Produce		json
//	@Param			verify	query		bool	false	"Also re-hash files against recorded checksums"
//	@Success		200		{object}	workflow.Report
//	@Failure		409		{object}	workflow.Report
//	@Security		BearerAuth
//	@Router			/consistency [get]
func (h *Handler) Consistency(w http.ResponseWriter, r *http.Request) {
	audit := h.engine.Audit
	if verify, _ := strconv.ParseBool(r.URL.Query().Get("verify")); verify {
		audit = h.engine.Verify
	}
	report, err := audit()
	if err != nil {
		h.fail(w, "audit", err)
		return
	}
	status := http.StatusOK
	if !report.OK() {
		status = http.StatusConflict
	}
	writeJSON(w, status, report)
}

// Gaps handles GET /api/gaps.
//
//	@Summary		List recent transitions whose file was missing
//	@Tags			consistency
//	@Produce		json
//	@Param			limit	query		int	false	"Max rows"
//	@Success		200		{object}	GapsResponse
//	@Security		BearerAuth
//	@Router			/gaps [get]
func (h *Handler) Gaps(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows := []index.Transition{}
	if h.journal != nil {
		var err error
		if rows, err = h.journal.Gaps(limit); err != nil {
			h.fail(w, "gaps", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, GapsResponse{Gaps: rows})
}

// fail maps domain errors onto HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("Photo not found"))
	case errors.Is(err, apperr.ErrInvalidCategory):
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid category"))
	case errors.Is(err, apperr.ErrNoValidFiles):
		writeJSON(w, http.StatusBadRequest, errorBody("No valid photos uploaded"))
	case errors.Is(err, apperr.ErrInvalidUpload):
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid upload"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
