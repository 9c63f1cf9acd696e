package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"moneta/internal/clock"
	"moneta/internal/core"
	"moneta/internal/log"
)

// UpcomingWindowDays is how far ahead the upcoming query looks.
const UpcomingWindowDays = 3

// RecurringService owns recurring template flows: mark-as-done, skip, and the
// overdue/upcoming projections. Mark-as-done feeds back into the ledger
// engine; skip only moves the schedule.
type RecurringService struct {
	templates TemplateStore
	ledger    *LedgerService
	clock     *clock.Resolver
	logger    *log.Logger
}

func NewRecurringService(templates TemplateStore, ledger *LedgerService, clk *clock.Resolver, logger *log.Logger) *RecurringService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &RecurringService{
		templates: templates,
		ledger:    ledger,
		clock:     clk,
		logger:    logger.WithComponent(log.ComponentRecurring),
	}
}

// CreateTemplate validates and persists a new recurring template. A zero
// execution date starts the schedule at today's local date.
func (s *RecurringService) CreateTemplate(ctx context.Context, userID, timezone string, rt core.RecurringTemplate) (core.RecurringTemplate, error) {
	if err := rt.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}
	today, err := s.clock.Today(timezone)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	rt.ID = uuid.NewString()
	rt.UserID = userID
	rt.IsNotified = false
	if rt.ExecutionDate.IsZero() {
		rt.ExecutionDate = NextExecutionDate(rt.Occurrence, rt.Interval, rt.ExecutionDate, today, false)
	}
	if err := s.templates.CreateTemplate(ctx, rt); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("create template: %w", err)
	}
	return rt, nil
}

// MarkDone records one occurrence of a recurring template: a real transaction
// is created from the template snapshot, dated today, and the template is
// rescheduled with catch-up semantics. The two writes run concurrently and
// are tolerated independently, so one can succeed while the other fails.
// Returns (false, nil) when the template does not exist for the user.
func (s *RecurringService) MarkDone(ctx context.Context, userID, timezone, templateID string) (bool, error) {
	rt, err := s.templates.GetTemplate(ctx, userID, templateID)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load template: %w", err)
	}

	today, err := s.clock.Today(timezone)
	if err != nil {
		return false, err
	}
	next := NextExecutionDate(rt.Occurrence, rt.Interval, rt.ExecutionDate, today, true)

	input := core.TransactionInput{
		Amount:      rt.Amount,
		Type:        rt.Type,
		Category:    rt.Category,
		Category2:   rt.Category2,
		Category3:   rt.Category3,
		PaymentMode: rt.PaymentMode,
		Description: rt.Description,
	}

	ops := []Op{
		{
			Name: "create transaction from template",
			Run: func(ctx context.Context) error {
				_, err := s.ledger.AddTransaction(ctx, userID, timezone, input)
				return err
			},
		},
		{
			Name: "reschedule template",
			Run: func(ctx context.Context) error {
				return s.templates.RescheduleTemplate(ctx, userID, rt.ID, next)
			},
		},
	}
	for _, res := range runBestEffort(ctx, ops) {
		if res.Err != nil {
			s.logger.ErrorContext(ctx, "Mark-done step failed",
				log.FieldOperation, log.OpMarkDone,
				log.FieldTemplateID, rt.ID,
				"step", res.Name,
				log.FieldError, res.Err)
		}
	}

	s.logger.InfoContext(ctx, "Recurring template marked done",
		log.FieldTemplateID, rt.ID,
		log.FieldUserID, userID,
		log.FieldAmountCents, rt.Amount.Cents,
		log.FieldExecutionDate, next.Format("2006-01-02"))
	return true, nil
}

// Skip declines one occurrence: the schedule advances by exactly one nominal
// interval and no transaction is created. Returns (false, nil) when the
// template does not exist for the user.
func (s *RecurringService) Skip(ctx context.Context, userID, templateID string) (bool, error) {
	rt, err := s.templates.GetTemplate(ctx, userID, templateID)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load template: %w", err)
	}

	next := NextExecutionDate(rt.Occurrence, rt.Interval, rt.ExecutionDate, clock.DateOnly(s.clock.Now()), false)
	if err := s.templates.RescheduleTemplate(ctx, userID, rt.ID, next); err != nil {
		return false, fmt.Errorf("skip template: %w", err)
	}

	s.logger.InfoContext(ctx, "Recurring occurrence skipped",
		log.FieldTemplateID, rt.ID,
		log.FieldUserID, userID,
		log.FieldExecutionDate, next.Format("2006-01-02"))
	return true, nil
}

// Overdue returns the user's templates whose execution date is strictly
// before today in the user's timezone.
func (s *RecurringService) Overdue(ctx context.Context, userID, timezone string) ([]core.RecurringTemplate, error) {
	today, err := s.clock.Today(timezone)
	if err != nil {
		return nil, err
	}
	return s.templates.ListTemplatesDueBefore(ctx, userID, today)
}

// Upcoming returns the user's templates due between today and today plus the
// upcoming window, bounds inclusive.
func (s *RecurringService) Upcoming(ctx context.Context, userID, timezone string) ([]core.RecurringTemplate, error) {
	today, err := s.clock.Today(timezone)
	if err != nil {
		return nil, err
	}
	return s.templates.ListTemplatesDueBetween(ctx, userID, today, today.AddDate(0, 0, UpcomingWindowDays))
}

// DeleteTemplate removes a template. Returns (false, nil) when it does not
// exist for the user.
func (s *RecurringService) DeleteTemplate(ctx context.Context, userID, templateID string) (bool, error) {
	err := s.templates.DeleteTemplate(ctx, userID, templateID)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete template: %w", err)
	}
	return true, nil
}
