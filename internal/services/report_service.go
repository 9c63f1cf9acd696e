package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moneta/internal/clock"
	"moneta/internal/core"
)

// ReportService serves month summaries from the aggregate rows and applies
// the user-set planning values. It never touches the transaction set:
// reports read only the aggregates.
type ReportService struct {
	aggregates AggregateReader
	budgets    BudgetWriter
	clock      *clock.Resolver
}

func NewReportService(aggregates AggregateReader, budgets BudgetWriter, clk *clock.Resolver) *ReportService {
	return &ReportService{
		aggregates: aggregates,
		budgets:    budgets,
		clock:      clk,
	}
}

// MonthSummary returns the full aggregate view of one user-month. A month no
// transaction or budget has touched yet comes back zero-valued, not as an
// error.
func (s *ReportService) MonthSummary(ctx context.Context, userID string, monthStart time.Time) (core.MonthSummary, error) {
	target, err := s.aggregates.GetMonthlyTarget(ctx, userID, monthStart)
	if errors.Is(err, core.ErrNotFound) {
		target = core.MonthlyTarget{UserID: userID, MonthStart: monthStart}
	} else if err != nil {
		return core.MonthSummary{}, fmt.Errorf("month summary: %w", err)
	}

	categories, err := s.aggregates.ListCategoryAmounts(ctx, userID, monthStart)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("month summary: %w", err)
	}
	paymentModes, err := s.aggregates.ListPaymentModeAmounts(ctx, userID, monthStart)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("month summary: %w", err)
	}

	return core.MonthSummary{
		Target:       target,
		Categories:   categories,
		PaymentModes: paymentModes,
	}, nil
}

// CurrentMonthSummary resolves "now" in the user's timezone and returns that
// month's summary.
func (s *ReportService) CurrentMonthSummary(ctx context.Context, userID, timezone string) (core.MonthSummary, error) {
	today, err := s.clock.Today(timezone)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return s.MonthSummary(ctx, userID, clock.MonthStart(today))
}

// SetMonthlyPlan overwrites the planning values for a month. The running
// counters are untouched.
func (s *ReportService) SetMonthlyPlan(ctx context.Context, userID string, monthStart time.Time, pv core.PlanningValues) error {
	if err := s.budgets.SetPlanningValues(ctx, userID, monthStart, pv); err != nil {
		return fmt.Errorf("set monthly plan: %w", err)
	}
	return nil
}

// SetCategoryBudget overwrites the expense budget for one category in one
// month.
func (s *ReportService) SetCategoryBudget(ctx context.Context, userID string, monthStart time.Time, category string, budget core.Money) error {
	if err := s.budgets.SetCategoryBudget(ctx, userID, monthStart, category, budget); err != nil {
		return fmt.Errorf("set category budget: %w", err)
	}
	return nil
}
