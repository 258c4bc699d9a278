package stockimport

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clinova/clinova/internal/platform/httpx"
)

// Handler wires the import pipeline's HTTP endpoints.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	maxUploadBytes int64
}

// NewHandler constructs the import handler.
func NewHandler(logger *slog.Logger, service *Service, maxUploadBytes int64) *Handler {
	return &Handler{logger: logger, service: service, maxUploadBytes: maxUploadBytes}
}

// MountRoutes registers import routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sessions", h.handleStart)
	r.Get("/sessions/{id}", h.handleGet)
	r.Put("/sessions/{id}/mapping", h.handleMapping)
	r.Put("/sessions/{id}/rows/{line}", h.handleEditRow)
	r.Post("/sessions/{id}/template", h.handleSaveTemplate)
	r.Post("/sessions/{id}/commit", h.handleCommit)
	r.Delete("/sessions/{id}", h.handleDiscard)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Upload", "multipart form expected")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Upload", "file field is required")
		return
	}
	defer file.Close()

	view, err := h.service.StartSession(r.Context(), StartInput{
		Filename:     header.Filename,
		File:         file,
		SupplierName: r.FormValue("supplier"),
	})
	if err != nil {
		h.logger.Error("start import session", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleMapping(w http.ResponseWriter, r *http.Request) {
	var mapping ColumnMapping
	if err := httpx.DecodeJSON(r, &mapping); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid mapping body")
		return
	}
	view, err := h.service.UpdateMapping(chi.URLParam(r, "id"), mapping)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type editRowRequest struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

func (h *Handler) handleEditRow(w http.ResponseWriter, r *http.Request) {
	line, err := strconv.Atoi(chi.URLParam(r, "line"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid line number")
		return
	}
	var req editRowRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid edit body")
		return
	}
	row, err := h.service.EditRow(chi.URLParam(r, "id"), line, req.Field, req.Value)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (h *Handler) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SaveTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.logger.Error("save mapping template", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.service.Commit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("commit import", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"medicines": medicines})
}

func (h *Handler) handleDiscard(w http.ResponseWriter, r *http.Request) {
	h.service.Discard(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrRowNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateBatch):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrNoAcceptedRows),
		errors.Is(err, ErrSupplierNotResolved),
		errors.Is(err, ErrUnknownField),
		errors.Is(err, ErrEmptyFile),
		errors.Is(err, ErrTemplateNotFound):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
