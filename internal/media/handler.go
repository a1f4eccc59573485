package media

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"libris/internal/platform/metrics"
	"libris/internal/platform/middleware"
	"libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
	"libris/pkg/platform/httputil"
)

// maxUploadBytes caps a digital copy upload.
const maxUploadBytes = 32 << 20

// Handler serves the staff-facing digital copy endpoints.
type Handler struct {
	logger       *slog.Logger
	media        *Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func NewHandler(media *Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{logger: logger, media: media, metrics: m, jwtValidator: jwtValidator}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.RequestTime)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.Latency(h.metrics))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequireRole(h.logger, domain.StaffRoles()...))

		r.Put("/admin/libros/{bookID}/digital", h.handleReplace)
		r.Get("/admin/libros/{bookID}/digital", h.handleDownload)
		r.Delete("/admin/libros/{bookID}/digital", h.handleRemove)
	})
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bookID, err := domain.ParseBookID(chi.URLParam(r, "bookID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	fileName := r.URL.Query().Get("fileName")
	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read upload"))
		return
	}
	if len(data) > maxUploadBytes {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "digital copy exceeds the size limit"))
		return
	}

	key, err := h.media.ReplaceDigitalCopy(ctx, bookID, fileName, data)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "digital copy replace failed", "error", err.Error())
		}
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"key": key})
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bookID, err := domain.ParseBookID(chi.URLParam(r, "bookID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.media.RemoveDigitalCopy(ctx, bookID); err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "digital copy removal failed", "error", err.Error())
		}
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bookID, err := domain.ParseBookID(chi.URLParam(r, "bookID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	data, err := h.media.DownloadDigitalCopy(ctx, bookID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
