package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"libris/internal/loan/models"
	"libris/internal/platform/metrics"
	"libris/internal/platform/middleware"
	"libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
	"libris/pkg/platform/httputil"
)

// Service defines the loan operations the admin surface exposes.
type Service interface {
	CreateLoan(ctx context.Context, req *models.CreateLoanRequest) (models.LoanView, error)
	ListLoans(ctx context.Context, filter models.ListFilter) ([]models.LoanView, error)
	GetLoan(ctx context.Context, loanID domain.LoanID) (models.LoanView, error)
	MarkReturned(ctx context.Context, loanID domain.LoanID) (models.LoanView, error)
	ApplyPenalty(ctx context.Context, loanID domain.LoanID, req *models.ApplyPenaltyRequest) (models.LoanView, error)
	GetPolicy(ctx context.Context) (models.LoanPolicy, error)
	UpdatePolicy(ctx context.Context, policy models.LoanPolicy) (models.LoanPolicy, error)
}

// Handler serves the staff-facing loan management endpoints.
type Handler struct {
	logger       *slog.Logger
	loans        Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(loans Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		loans:        loans,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register attaches the loan routes. Everything under /admin/prestamos
// requires an authenticated staff caller.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.RequestTime)
		r.Use(middleware.Metadata)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.Latency(h.metrics))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequireRole(h.logger, domain.StaffRoles()...))

		r.Get("/admin/prestamos", h.handleList)
		r.Post("/admin/prestamos", h.handleCreate)
		r.Get("/admin/prestamos/config", h.handleGetPolicy)
		r.Put("/admin/prestamos/config", h.handleUpdatePolicy)
		r.Get("/admin/prestamos/{loanID}", h.handleGet)
		r.Put("/admin/prestamos/{loanID}/devolver", h.handleReturn)
		r.Post("/admin/prestamos/{loanID}/penalizacion", h.handlePenalty)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := models.ListFilter{
		Estado: r.URL.Query().Get("estado"),
		Query:  r.URL.Query().Get("q"),
	}
	views, err := h.loans.ListLoans(ctx, filter)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list loans")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	view, err := h.loans.CreateLoan(ctx, &req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create loan")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	loanID, err := domain.ParseLoanID(chi.URLParam(r, "loanID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.loans.GetLoan(ctx, loanID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load loan")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	loanID, err := domain.ParseLoanID(chi.URLParam(r, "loanID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.loans.MarkReturned(ctx, loanID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to mark loan returned")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handlePenalty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	loanID, err := domain.ParseLoanID(chi.URLParam(r, "loanID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req models.ApplyPenaltyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	view, err := h.loans.ApplyPenalty(ctx, loanID, &req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to apply penalty")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.loans.GetPolicy(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, err, "failed to load policy")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, policy)
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var policy models.LoanPolicy
	if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	updated, err := h.loans.UpdatePolicy(ctx, policy)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to update policy")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// writeServiceError logs internal failures and writes the error envelope.
// Client errors pass through with their own code and message.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, logMsg string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, logMsg, "error", err.Error())
	}
	httputil.WriteError(w, err)
}
