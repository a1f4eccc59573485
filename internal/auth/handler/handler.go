package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"libris/internal/auth/service"
	"libris/internal/platform/metrics"
	"libris/internal/platform/middleware"
	dErrors "libris/pkg/domain-errors"
	"libris/pkg/platform/httputil"
)

// Service defines the auth operations the HTTP layer needs.
type Service interface {
	Login(ctx context.Context, req *service.LoginRequest) (*service.LoginResponse, error)
}

// Handler serves the login endpoint.
type Handler struct {
	logger  *slog.Logger
	auth    Service
	metrics *metrics.Metrics
}

func New(auth Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{logger: logger, auth: auth, metrics: m}
}

// Register attaches the auth routes. Login is the only unauthenticated
// endpoint besides health and metrics.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.RequestTime)
		r.Use(middleware.Metadata)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(10 * time.Second))
		r.Use(middleware.Latency(h.metrics))

		r.Post("/auth/login", h.handleLogin)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	resp, err := h.auth.Login(ctx, &req)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "login failed", "error", err.Error())
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
