package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Publisher is the sink surface services emit into.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// LogPublisher writes events to the structured log. It is the default sink
// when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.logger.InfoContext(ctx, "audit event",
		slog.String("action", event.Action),
		slog.String("actor_id", event.ActorID),
		slog.String("loan_id", event.LoanID),
		slog.String("book_id", event.BookID),
		slog.String("user_id", event.UserID),
		slog.Time("timestamp", event.Timestamp),
	)
	return nil
}

// Recorder keeps events in memory so tests can assert on emissions.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything emitted so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByAction filters recorded events by action name.
func (r *Recorder) ByAction(action string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
