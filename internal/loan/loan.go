package loan

import (
	"log/slog"

	"libris/internal/catalog"
	"libris/internal/directory"
	"libris/internal/loan/handler"
	"libris/internal/loan/service"
	"libris/internal/platform/metrics"
	"libris/internal/platform/middleware"
)

// Service exposes the loan lifecycle orchestration.
type Service = service.LoanService

// Handler wires HTTP endpoints to the loan service.
type Handler = handler.Handler

// NewService constructs the loan service with required dependencies.
func NewService(loans service.LoanStore, policies service.PolicyStore, books catalog.Finder, users directory.Finder, opts ...service.Option) *Service {
	return service.New(loans, policies, books, users, opts...)
}

// NewHandler constructs the staff-facing loan HTTP handler.
func NewHandler(s *Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return handler.New(s, logger, m, jwtValidator)
}
