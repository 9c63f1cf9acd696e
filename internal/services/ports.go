package services

import (
	"context"
	"time"

	"moneta/internal/core"
)

// RecordStore is the transaction record collaborator. Implementations must
// report core.ErrNotFound for rows that do not exist for the given user.
type RecordStore interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) error
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// AggregateWriter applies signed deltas to the denormalized aggregate rows.
// Each call must be an atomic increment-on-upsert: the one correctness
// requirement the engine places on its store is that two racing deltas on the
// same row can never lose an update.
type AggregateWriter interface {
	ApplyMonthlyDelta(ctx context.Context, userID string, monthStart time.Time, typ core.TransactionType, delta int64) error
	ApplyCategoryDelta(ctx context.Context, userID string, monthStart time.Time, typ core.TransactionType, category string, delta int64) error
	ApplyPaymentModeDelta(ctx context.Context, userID string, monthStart time.Time, typ core.TransactionType, paymentMode string, delta int64) error
}

// AggregateReader serves the report read models straight from the aggregate
// rows.
type AggregateReader interface {
	GetMonthlyTarget(ctx context.Context, userID string, monthStart time.Time) (core.MonthlyTarget, error)
	ListCategoryAmounts(ctx context.Context, userID string, monthStart time.Time) ([]core.CategoryAmount, error)
	ListPaymentModeAmounts(ctx context.Context, userID string, monthStart time.Time) ([]core.PaymentModeAmount, error)
}

// BudgetWriter updates the user-set planning values that transactions never
// touch.
type BudgetWriter interface {
	SetPlanningValues(ctx context.Context, userID string, monthStart time.Time, pv core.PlanningValues) error
	SetCategoryBudget(ctx context.Context, userID string, monthStart time.Time, category string, budget core.Money) error
}

// TemplateStore is the recurring template collaborator.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, rt core.RecurringTemplate) error
	GetTemplate(ctx context.Context, userID, id string) (core.RecurringTemplate, error)
	RescheduleTemplate(ctx context.Context, userID, id string, executionDate time.Time) error
	DeleteTemplate(ctx context.Context, userID, id string) error
	ListTemplatesDueBefore(ctx context.Context, userID string, date time.Time) ([]core.RecurringTemplate, error)
	ListTemplatesDueBetween(ctx context.Context, userID string, from, to time.Time) ([]core.RecurringTemplate, error)
}

// ReconcileStore rebuilds a user-month's aggregates from the live transaction
// set.
type ReconcileStore interface {
	RecomputeMonthAggregates(ctx context.Context, userID string, monthStart time.Time) error
}

// EventPublisher emits ledger events for downstream consumers. Publishing is
// always best-effort; a nil publisher disables it.
type EventPublisher interface {
	PublishTransactionApplied(ctx context.Context, tx core.Transaction) error
	PublishTransactionReverted(ctx context.Context, tx core.Transaction) error
}
