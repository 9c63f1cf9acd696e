// Package worker runs the background reminder loop: it scans for recurring
// templates whose execution date has arrived and whose owner has not been
// notified, publishes a reminder for each, and flags the template so the
// reminder is sent at most once per cycle. Rescheduling a template (mark done
// or skip) clears the flag and arms the next reminder.
package worker

import (
	"context"
	"time"

	"moneta/internal/clock"
	"moneta/internal/core"
	"moneta/internal/log"
)

// ReminderStore is the storage surface the worker needs.
type ReminderStore interface {
	ListDueUnnotified(ctx context.Context, date time.Time, limit int) ([]core.RecurringTemplate, error)
	MarkTemplateNotified(ctx context.Context, userID, id string) error
}

// ReminderPublisher delivers one reminder message per due template.
type ReminderPublisher interface {
	PublishRecurringDue(ctx context.Context, tpl core.RecurringTemplate) error
}

type ReminderWorker struct {
	store     ReminderStore
	publisher ReminderPublisher
	clock     *clock.Resolver
	batchSize int
	logger    *log.Logger
}

func NewReminderWorker(store ReminderStore, publisher ReminderPublisher, clk *clock.Resolver, batchSize int, logger *log.Logger) *ReminderWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ReminderWorker{
		store:     store,
		publisher: publisher,
		clock:     clk,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Run executes reminder cycles on the given interval until ctx is cancelled.
// A cycle runs immediately on startup.
func (w *ReminderWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if n, err := w.RunOnce(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Initial reminder cycle failed", log.FieldError, err)
	} else {
		w.logger.InfoContext(ctx, "Initial reminder cycle complete", "reminders_sent", n)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := w.RunOnce(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "Reminder cycle failed", log.FieldError, err)
				continue
			}
			if n > 0 {
				w.logger.InfoContext(ctx, "Reminder cycle complete", "reminders_sent", n)
			}
		}
	}
}

// RunOnce processes a single batch of due, unnotified templates and returns
// how many reminders were sent. A publish failure for one template is logged
// and does not block the rest; the template stays unnotified and is retried
// on the next cycle.
func (w *ReminderWorker) RunOnce(ctx context.Context) (int, error) {
	today := clock.DateOnly(w.clock.Now())

	due, err := w.store.ListDueUnnotified(ctx, today, w.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, tpl := range due {
		if err := w.publisher.PublishRecurringDue(ctx, tpl); err != nil {
			w.logger.ErrorContext(ctx, "Failed to publish reminder",
				log.FieldTemplateID, tpl.ID,
				log.FieldUserID, tpl.UserID,
				log.FieldError, err)
			continue
		}
		if err := w.store.MarkTemplateNotified(ctx, tpl.UserID, tpl.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mark template notified",
				log.FieldTemplateID, tpl.ID,
				log.FieldUserID, tpl.UserID,
				log.FieldError, err)
			continue
		}
		sent++
	}

	return sent, nil
}
