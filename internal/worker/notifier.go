package worker

import (
	"context"
	"fmt"
	"time"

	"moneta/internal/amqp"
	"moneta/internal/core"
	"moneta/internal/log"
)

// ReminderSink delivers a due-template reminder to its destination.
type ReminderSink interface {
	Deliver(ctx context.Context, msg *amqp.RecurringDueMessage) error
}

// Notifier handles reminder messages taken off the queue and forwards each
// one to a sink. Malformed messages are logged and dropped so they are not
// redelivered forever; sink failures surface as errors so the broker
// requeues the delivery.
type Notifier struct {
	sink   ReminderSink
	logger *log.Logger
}

func NewNotifier(sink ReminderSink, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Notifier{
		sink:   sink,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleReminder validates and delivers a single reminder message.
func (n *Notifier) HandleReminder(msg *amqp.RecurringDueMessage) error {
	if msg.TemplateID == "" || msg.UserID == "" {
		n.logger.Error("Dropping reminder without identifiers",
			log.FieldOperation, log.OpNotify,
			log.FieldTemplateID, msg.TemplateID,
			log.FieldUserID, msg.UserID)
		return nil
	}
	if _, err := time.Parse("2006-01-02", msg.ExecutionDate); err != nil {
		n.logger.Error("Dropping reminder with bad execution date",
			log.FieldOperation, log.OpNotify,
			log.FieldTemplateID, msg.TemplateID,
			log.FieldExecutionDate, msg.ExecutionDate,
			log.FieldError, err)
		return nil
	}

	if err := n.sink.Deliver(context.Background(), msg); err != nil {
		return fmt.Errorf("deliver reminder for template %s: %w", msg.TemplateID, err)
	}

	n.logger.Info("Reminder delivered",
		log.FieldOperation, log.OpNotify,
		log.FieldTemplateID, msg.TemplateID,
		log.FieldUserID, msg.UserID)
	return nil
}

// LogSink writes each reminder to the structured log, the delivery channel
// used when no external notification service is configured.
type LogSink struct {
	logger *log.Logger
}

func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LogSink{logger: logger.WithComponent(log.ComponentWorker)}
}

func (s *LogSink) Deliver(_ context.Context, msg *amqp.RecurringDueMessage) error {
	s.logger.Info("Recurring transaction due",
		log.FieldTemplateID, msg.TemplateID,
		log.FieldUserID, msg.UserID,
		"description", msg.Description,
		"amount", core.FormatCents(msg.AmountCents),
		log.FieldType, msg.Type,
		log.FieldExecutionDate, msg.ExecutionDate)
	return nil
}
