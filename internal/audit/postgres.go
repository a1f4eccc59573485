package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// ArchiveSchema creates the audit_events table. Inserts are idempotent on
// the event ID so retried emissions never duplicate rows.
const ArchiveSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id UUID PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	actor_id TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	loan_id TEXT NOT NULL DEFAULT '',
	book_id TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	detail JSONB
);
CREATE INDEX IF NOT EXISTS idx_audit_events_action ON audit_events (action);
CREATE INDEX IF NOT EXISTS idx_audit_events_occurred_at ON audit_events (occurred_at);
`

// Archive persists audit events in Postgres for later querying. It is
// meant to run alongside a streaming sink, not replace it.
type Archive struct {
	db *sql.DB
}

// NewArchive opens a database/sql connection with the pq driver and
// ensures the audit_events table exists.
func NewArchive(ctx context.Context, dsn string) (*Archive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit archive: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping audit archive: %w", err)
	}
	if _, err := db.ExecContext(ctx, ArchiveSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var detail []byte
	if len(event.Detail) > 0 {
		encoded, err := json.Marshal(event.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
		detail = encoded
	}

	query := `
		INSERT INTO audit_events (id, occurred_at, actor_id, action, loan_id, book_id, user_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := a.db.ExecContext(ctx, query,
		uuid.New(),
		event.Timestamp,
		event.ActorID,
		event.Action,
		event.LoanID,
		event.BookID,
		event.UserID,
		detail,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Fanout emits each event to every sink. The first failure is returned
// after all sinks have been attempted.
type Fanout []Publisher

func (f Fanout) Emit(ctx context.Context, event Event) error {
	var firstErr error
	for _, sink := range f {
		if err := sink.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
