package services

import (
	"context"
	"fmt"
	"time"

	"moneta/internal/log"
)

// Reconciler rebuilds a user-month's aggregates from the live transaction
// set. It exists for operational recovery after partial aggregate failures;
// nothing in the engine calls it automatically, so the best-effort
// consistency model stays intact in normal operation.
type Reconciler struct {
	store  ReconcileStore
	logger *log.Logger
}

func NewReconciler(store ReconcileStore, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Reconciler{store: store, logger: logger.WithComponent(log.ComponentReconcile)}
}

// RecomputeMonth recomputes every aggregate row for (user, month). User-set
// budgets survive the rebuild.
func (r *Reconciler) RecomputeMonth(ctx context.Context, userID string, monthStart time.Time) error {
	if err := r.store.RecomputeMonthAggregates(ctx, userID, monthStart); err != nil {
		return fmt.Errorf("recompute month: %w", err)
	}
	r.logger.InfoContext(ctx, "Month aggregates recomputed",
		log.FieldOperation, log.OpRecompute,
		log.FieldUserID, userID,
		log.FieldMonth, monthStart.Format("2006-01"))
	return nil
}
