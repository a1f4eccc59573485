package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"libris/internal/audit"
	"libris/internal/catalog"
	"libris/internal/directory"
	loanmetrics "libris/internal/loan/metrics"
	"libris/internal/loan/models"
	"libris/internal/notify"
	"libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
	"libris/pkg/platform/sentinel"
	"libris/pkg/requestcontext"
)

// LoanStore is the persistence surface for loans. Both the in-memory and
// Postgres stores satisfy it.
type LoanStore interface {
	Create(ctx context.Context, loan *models.Loan) error
	FindByID(ctx context.Context, loanID domain.LoanID) (*models.Loan, error)
	Execute(ctx context.Context, loanID domain.LoanID, validate func(*models.Loan) error, mutate func(*models.Loan)) (*models.Loan, error)
	Snapshot(ctx context.Context) ([]*models.Loan, error)
}

// PolicyStore holds the active loan policy.
type PolicyStore interface {
	Get(ctx context.Context) (models.LoanPolicy, error)
	Replace(ctx context.Context, policy models.LoanPolicy) error
}

// LoanService orchestrates the loan lifecycle: creation, listing with
// derived overdue state, returns, penalties, policy reconfiguration and
// the overdue sweep.
type LoanService struct {
	loans    LoanStore
	policies PolicyStore
	books    catalog.Finder
	users    directory.Finder

	logger   *slog.Logger
	auditor  audit.Publisher
	notifier notify.Notifier
	metrics  *loanmetrics.Metrics
	tracer   trace.Tracer
}

type Option func(s *LoanService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *LoanService) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *LoanService) { s.auditor = publisher }
}

func WithNotifier(notifier notify.Notifier) Option {
	return func(s *LoanService) { s.notifier = notifier }
}

func WithMetrics(m *loanmetrics.Metrics) Option {
	return func(s *LoanService) { s.metrics = m }
}

// New constructs a LoanService.
func New(loans LoanStore, policies PolicyStore, books catalog.Finder, users directory.Finder, opts ...Option) *LoanService {
	s := &LoanService{
		loans:    loans,
		policies: policies,
		books:    books,
		users:    users,
		logger:   slog.Default(),
		tracer:   otel.Tracer("libris/loan"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// wrapLoanErr translates store sentinels into coded domain errors. Already
// coded errors pass through untouched.
func wrapLoanErr(err error) error {
	var coded *dErrors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "loan not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "loan already exists")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "loan is in the wrong state")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "loan store failure")
	}
}

// actorOf renders the authenticated staff ID for audit records, empty when
// the operation ran without a caller (sweep worker).
func actorOf(ctx context.Context) string {
	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		return ""
	}
	return actorID.String()
}

func (s *LoanService) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			slog.String("action", event.Action),
			slog.String("error", err.Error()),
		)
	}
}

func (s *LoanService) notifyOperator(ctx context.Context, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "notification delivery failed",
			slog.String("text", msg.Text),
			slog.String("error", err.Error()),
		)
	}
}
