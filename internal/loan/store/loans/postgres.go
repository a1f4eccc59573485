package loans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"libris/internal/loan/models"
	"libris/pkg/domain"
	"libris/pkg/platform/sentinel"
)

// Postgres persists loans in a single table. The optional penalty is
// flattened into nullable columns; a loan has at most one penalty so no
// child table is needed.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Schema is applied at startup. Kept idempotent so restarts are safe.
const Schema = `
CREATE TABLE IF NOT EXISTS loans (
    id                 UUID PRIMARY KEY,
    book_id            UUID        NOT NULL,
    user_id            UUID        NOT NULL,
    loaned_at          TIMESTAMPTZ NOT NULL,
    due_at             TIMESTAMPTZ NOT NULL,
    status             TEXT        NOT NULL,
    penalty_days       INTEGER,
    penalty_reason     TEXT,
    penalty_applied_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_loans_status ON loans (status);
CREATE INDEX IF NOT EXISTS idx_loans_user_id ON loans (user_id);
`

// EnsureSchema creates the loans table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure loans schema: %w", err)
	}
	return nil
}

func (s *Postgres) Create(ctx context.Context, loan *models.Loan) error {
	var days *int
	var reason *string
	var appliedAt *time.Time
	if loan.Penalty != nil {
		days = &loan.Penalty.Days
		reason = &loan.Penalty.Reason
		appliedAt = &loan.Penalty.AppliedAt
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO loans (id, book_id, user_id, loaned_at, due_at, status, penalty_days, penalty_reason, penalty_applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(loan.ID), uuid.UUID(loan.BookID), uuid.UUID(loan.UserID),
		loan.LoanedAt, loan.DueAt, string(loan.Status), days, reason, appliedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, loanID domain.LoanID) (*models.Loan, error) {
	row := s.pool.QueryRow(ctx, selectLoan+` WHERE id = $1`, uuid.UUID(loanID))
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find loan: %w", err)
	}
	return loan, nil
}

// Execute runs validate-then-mutate inside a transaction holding a
// SELECT ... FOR UPDATE row lock, mirroring the in-memory store's mutex.
func (s *Postgres) Execute(ctx context.Context, loanID domain.LoanID, validate func(*models.Loan) error, mutate func(*models.Loan)) (*models.Loan, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, selectLoan+` WHERE id = $1 FOR UPDATE`, uuid.UUID(loanID))
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock loan: %w", err)
	}

	if err := validate(loan); err != nil {
		return nil, err
	}
	mutate(loan)

	var days *int
	var reason *string
	var appliedAt *time.Time
	if loan.Penalty != nil {
		days = &loan.Penalty.Days
		reason = &loan.Penalty.Reason
		appliedAt = &loan.Penalty.AppliedAt
	}

	_, err = tx.Exec(ctx, `
		UPDATE loans
		SET status = $2, penalty_days = $3, penalty_reason = $4, penalty_applied_at = $5
		WHERE id = $1`,
		uuid.UUID(loan.ID), string(loan.Status), days, reason, appliedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update loan: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit loan update: %w", err)
	}
	return loan, nil
}

func (s *Postgres) Snapshot(ctx context.Context) ([]*models.Loan, error) {
	rows, err := s.pool.Query(ctx, selectLoan+` ORDER BY loaned_at`)
	if err != nil {
		return nil, fmt.Errorf("snapshot loans: %w", err)
	}
	defer rows.Close()

	var out []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}
	return out, nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM loans`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count loans: %w", err)
	}
	return count, nil
}

const selectLoan = `
	SELECT id, book_id, user_id, loaned_at, due_at, status, penalty_days, penalty_reason, penalty_applied_at
	FROM loans`

func scanLoan(row pgx.Row) (*models.Loan, error) {
	var (
		loan      models.Loan
		loanID    uuid.UUID
		bookID    uuid.UUID
		userID    uuid.UUID
		status    string
		days      *int
		reason    *string
		appliedAt *time.Time
	)
	err := row.Scan(&loanID, &bookID, &userID, &loan.LoanedAt, &loan.DueAt, &status, &days, &reason, &appliedAt)
	if err != nil {
		return nil, err
	}
	loan.ID = domain.LoanID(loanID)
	loan.BookID = domain.BookID(bookID)
	loan.UserID = domain.UserID(userID)
	loan.Status = models.LoanStatus(status)
	if days != nil && reason != nil && appliedAt != nil {
		loan.Penalty = &models.Penalty{Days: *days, Reason: *reason, AppliedAt: *appliedAt}
	}
	return &loan, nil
}
