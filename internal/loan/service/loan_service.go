package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libris/internal/audit"
	"libris/internal/loan/models"
	"libris/internal/notify"
	"libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
	"libris/pkg/platform/sentinel"
	"libris/pkg/requestcontext"
)

// CreateLoan checks out a book to a borrower. The due date is resolved from
// the active policy at creation time and never recomputed afterwards.
func (s *LoanService) CreateLoan(ctx context.Context, req *models.CreateLoanRequest) (models.LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.CreateLoan")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.LoanView{}, err
	}

	bookID, err := domain.ParseBookID(req.BookID)
	if err != nil {
		return models.LoanView{}, err
	}
	userID, err := domain.ParseUserID(req.UserID)
	if err != nil {
		return models.LoanView{}, err
	}

	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.LoanView{}, dErrors.New(dErrors.CodeNotFound, "book not found")
		}
		return models.LoanView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load book")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.LoanView{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return models.LoanView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	policy, err := s.policies.Get(ctx)
	if err != nil {
		return models.LoanView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load loan policy")
	}
	days, ok := policy.Days(user.Role)
	if !ok {
		return models.LoanView{}, dErrors.Newf(dErrors.CodeValidation, "no loan period configured for role %q", user.Role)
	}

	now := requestcontext.Now(ctx)
	loan, err := models.NewLoan(domain.LoanID(uuid.New()), bookID, userID, now, now.AddDate(0, 0, days))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return models.LoanView{}, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return models.LoanView{}, err
	}

	if err := s.loans.Create(ctx, loan); err != nil {
		return models.LoanView{}, wrapLoanErr(err)
	}
	span.SetAttributes(attribute.String("loan.id", loan.ID.String()))

	s.emitAudit(ctx, audit.Event{
		ActorID: actorOf(ctx),
		Action:  audit.ActionLoanCreated,
		LoanID:  loan.ID.String(),
		BookID:  bookID.String(),
		UserID:  userID.String(),
	})
	s.notifyOperator(ctx, notify.Message{Text: notify.MsgLoanCreated, LoanID: loan.ID.String()})
	if s.metrics != nil {
		s.metrics.IncrementLoansCreated()
	}

	return models.NewLoanView(loan, book.Title, user.FullName(), user.Email, string(user.Role), now), nil
}

// ListLoans returns every loan joined with display data, filtered by status
// and free text. All derived fields use one clock reading, so two overdue
// rows in the same response can never disagree about "now".
func (s *LoanService) ListLoans(ctx context.Context, filter models.ListFilter) ([]models.LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.ListLoans",
		trace.WithAttributes(attribute.String("filter.estado", filter.Estado)))
	defer span.End()

	filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	snapshot, err := s.loans.Snapshot(ctx)
	if err != nil {
		return nil, wrapLoanErr(err)
	}

	views := make([]models.LoanView, 0, len(snapshot))
	for _, loan := range snapshot {
		view, err := s.buildView(ctx, loan, now)
		if err != nil {
			return nil, err
		}
		if view.MatchesEstado(filter.Estado) && view.MatchesQuery(filter.Query) {
			views = append(views, view)
		}
	}

	// Newest first; ID tie-break keeps pagination-free clients stable.
	sort.Slice(views, func(i, j int) bool {
		if !views[i].LoanedAt.Equal(views[j].LoanedAt) {
			return views[i].LoanedAt.After(views[j].LoanedAt)
		}
		return views[i].ID.String() < views[j].ID.String()
	})
	return views, nil
}

// GetLoan returns one loan joined with display data.
func (s *LoanService) GetLoan(ctx context.Context, loanID domain.LoanID) (models.LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.GetLoan")
	defer span.End()

	if loanID.IsNil() {
		return models.LoanView{}, dErrors.New(dErrors.CodeInvalidInput, "loan id is required")
	}
	loan, err := s.loans.FindByID(ctx, loanID)
	if err != nil {
		return models.LoanView{}, wrapLoanErr(err)
	}
	return s.buildView(ctx, loan, requestcontext.Now(ctx))
}

// MarkReturned transitions a loan to returned. Returning an already
// returned loan succeeds without side effects.
func (s *LoanService) MarkReturned(ctx context.Context, loanID domain.LoanID) (models.LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.MarkReturned")
	defer span.End()

	if loanID.IsNil() {
		return models.LoanView{}, dErrors.New(dErrors.CodeInvalidInput, "loan id is required")
	}

	alreadyReturned := false
	loan, err := s.loans.Execute(ctx, loanID,
		func(l *models.Loan) error {
			alreadyReturned = l.IsReturned()
			return nil
		},
		func(l *models.Loan) {
			l.ApplyReturn()
		},
	)
	if err != nil {
		return models.LoanView{}, wrapLoanErr(err)
	}

	if !alreadyReturned {
		s.emitAudit(ctx, audit.Event{
			ActorID: actorOf(ctx),
			Action:  audit.ActionLoanReturned,
			LoanID:  loan.ID.String(),
			BookID:  loan.BookID.String(),
			UserID:  loan.UserID.String(),
		})
		s.notifyOperator(ctx, notify.Message{Text: notify.MsgLoanReturned, LoanID: loan.ID.String()})
		if s.metrics != nil {
			s.metrics.IncrementLoansReturned()
		}
	}

	return s.buildView(ctx, loan, requestcontext.Now(ctx))
}

// ApplyPenalty records a penalty against a loan, replacing any previous
// one. Returned loans accept penalties too: a late return is often only
// assessed after the book is back.
func (s *LoanService) ApplyPenalty(ctx context.Context, loanID domain.LoanID, req *models.ApplyPenaltyRequest) (models.LoanView, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.ApplyPenalty")
	defer span.End()

	if loanID.IsNil() {
		return models.LoanView{}, dErrors.New(dErrors.CodeInvalidInput, "loan id is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return models.LoanView{}, err
	}

	now := requestcontext.Now(ctx)
	penalty, err := models.NewPenalty(req.Days, req.Reason, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return models.LoanView{}, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return models.LoanView{}, err
	}

	loan, err := s.loans.Execute(ctx, loanID,
		func(l *models.Loan) error { return nil },
		func(l *models.Loan) { l.ApplyPenalty(penalty) },
	)
	if err != nil {
		return models.LoanView{}, wrapLoanErr(err)
	}

	s.emitAudit(ctx, audit.Event{
		ActorID: actorOf(ctx),
		Action:  audit.ActionLoanPenalized,
		LoanID:  loan.ID.String(),
		BookID:  loan.BookID.String(),
		UserID:  loan.UserID.String(),
		Detail:  map[string]string{"razon": penalty.Reason},
	})
	s.notifyOperator(ctx, notify.Message{Text: notify.MsgPenaltyApplied, LoanID: loan.ID.String()})
	if s.metrics != nil {
		s.metrics.IncrementPenaltiesApplied()
	}

	return s.buildView(ctx, loan, now)
}

// GetPolicy returns the active loan policy.
func (s *LoanService) GetPolicy(ctx context.Context) (models.LoanPolicy, error) {
	policy, err := s.policies.Get(ctx)
	if err != nil {
		return models.LoanPolicy{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load loan policy")
	}
	return policy, nil
}

// UpdatePolicy validates and swaps in a new policy wholesale. The change is
// prospective: existing loans keep the due dates they were created with.
func (s *LoanService) UpdatePolicy(ctx context.Context, policy models.LoanPolicy) (models.LoanPolicy, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.UpdatePolicy")
	defer span.End()

	if err := policy.Validate(); err != nil {
		return models.LoanPolicy{}, err
	}
	if err := s.policies.Replace(ctx, policy); err != nil {
		return models.LoanPolicy{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store loan policy")
	}

	s.emitAudit(ctx, audit.Event{
		ActorID: actorOf(ctx),
		Action:  audit.ActionPolicyUpdated,
	})
	s.notifyOperator(ctx, notify.Message{Text: notify.MsgPolicySaved})
	if s.metrics != nil {
		s.metrics.IncrementPolicyUpdates()
	}
	return policy.Clone(), nil
}

// SweepOverdue stamps the stored late status on checked-out loans past
// their due date plus the policy grace. One clock reading covers the whole
// batch. Returns the number of loans marked.
func (s *LoanService) SweepOverdue(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.SweepOverdue")
	defer span.End()

	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)

	policy, err := s.policies.Get(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load loan policy")
	}

	snapshot, err := s.loans.Snapshot(ctx)
	if err != nil {
		return 0, wrapLoanErr(err)
	}

	marked := 0
	overdue := 0
	for _, loan := range snapshot {
		if !loan.IsOverdueAt(now) {
			continue
		}
		overdue++
		if now.Before(loan.DueAt.AddDate(0, 0, policy.GraceDays)) {
			continue
		}

		_, err := s.loans.Execute(ctx, loan.ID,
			func(l *models.Loan) error { return l.CanMarkLate() },
			func(l *models.Loan) { l.ApplyLate() },
		)
		if err != nil {
			// Raced with a return or a concurrent sweep; nothing to do.
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) || errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return marked, wrapLoanErr(err)
		}
		marked++

		s.emitAudit(ctx, audit.Event{
			Action: audit.ActionLoanLate,
			LoanID: loan.ID.String(),
			BookID: loan.BookID.String(),
			UserID: loan.UserID.String(),
		})
		if s.metrics != nil {
			s.metrics.IncrementLoansMarkedLate()
		}
	}

	if s.metrics != nil {
		s.metrics.SetOverdueLoans(overdue)
	}
	if marked > 0 {
		s.logger.InfoContext(ctx, "overdue sweep complete",
			slog.Int("marked", marked),
			slog.Int("overdue", overdue),
		)
	}
	return marked, nil
}

// buildView joins one loan with its catalog and directory records. Dangling
// references render with fallback display values instead of failing the
// whole listing.
func (s *LoanService) buildView(ctx context.Context, loan *models.Loan, now time.Time) (models.LoanView, error) {
	var bookTitle string
	book, err := s.books.FindByID(ctx, loan.BookID)
	switch {
	case err == nil:
		bookTitle = book.Title
	case errors.Is(err, sentinel.ErrNotFound):
		// Fallback title is applied by NewLoanView.
	default:
		return models.LoanView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load book")
	}

	var userName, userEmail, userRole string
	user, err := s.users.FindByID(ctx, loan.UserID)
	switch {
	case err == nil:
		userName = user.FullName()
		userEmail = user.Email
		userRole = string(user.Role)
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return models.LoanView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	return models.NewLoanView(loan, bookTitle, userName, userEmail, userRole, now), nil
}
