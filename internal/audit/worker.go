package audit

import (
	"context"
	"log/slog"
)

// Publisher forwards entries to an external sink (e.g. Kafka).
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
	Close() error
}

// Worker consumes mirrored audit entries from a channel and forwards them to
// a publisher. It keeps background fan-out testable without wiring broker
// implementations into the service.
type Worker struct {
	publisher Publisher
	inbox     <-chan Entry
	logger    *slog.Logger
}

func NewWorker(publisher Publisher, inbox <-chan Entry, logger *slog.Logger) *Worker {
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

// Run forwards entries until the context is cancelled. Cancellation is the
// normal shutdown path and returns nil. Publish failures are logged and
// skipped; the in-process log already holds the entry.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case entry := <-w.inbox:
			if err := w.publisher.Publish(ctx, entry); err != nil && w.logger != nil {
				w.logger.WarnContext(ctx, "failed to publish audit entry",
					"entry_id", uint64(entry.ID),
					"action", entry.Action,
					"error", err,
				)
			}
		}
	}
}
