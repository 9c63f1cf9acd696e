// Package services holds the ledger aggregation engine and the recurring
// schedule logic.
//
// The engine keeps three denormalized aggregate families (monthly targets,
// per-category amounts, per-payment-mode amounts) in step with the live
// transaction set by issuing signed incremental deltas on every mutation,
// never by recomputing. Create and delete tolerate individual aggregate
// failures; edit does not. That asymmetry is deliberate and mirrors how the
// aggregates are consumed: reports read them directly and a failed edit is
// the case most likely to be noticed as inconsistent.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"moneta/internal/clock"
	"moneta/internal/core"
	"moneta/internal/log"
)

// LedgerService is the aggregation engine. It owns transaction mutations and
// the aggregate updates they imply.
type LedgerService struct {
	records    RecordStore
	aggregates AggregateWriter
	clock      *clock.Resolver
	events     EventPublisher
	logger     *log.Logger
}

func NewLedgerService(records RecordStore, aggregates AggregateWriter, clk *clock.Resolver, events EventPublisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		records:    records,
		aggregates: aggregates,
		clock:      clk,
		events:     events,
		logger:     logger.WithComponent(log.ComponentLedger),
	}
}

// AddTransaction persists a new transaction dated "today" in the user's
// timezone and fans out the aggregate increments. The transaction write
// decides success; aggregate failures are logged and tolerated individually.
func (s *LedgerService) AddTransaction(ctx context.Context, userID, timezone string, in core.TransactionInput) (core.Transaction, error) {
	today, err := s.clock.Today(timezone)
	if err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		ID:             uuid.NewString(),
		UserID:         userID,
		Amount:         in.Amount,
		Type:           in.Type,
		Category:       in.Category,
		Category2:      in.Category2,
		Category3:      in.Category3,
		PaymentMode:    in.PaymentMode,
		Description:    in.Description,
		CreatedAt:      s.clock.Now().UTC(),
		CreatedAtLocal: today,
	}
	if err := s.records.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	month := clock.MonthStart(today)
	s.runTolerated(ctx, log.OpCreate, tx.ID, s.applyOps(tx.UserID, month, tx.Type, tx.Categories(), tx.PaymentMode, tx.Amount.Cents))

	if s.events != nil {
		if err := s.events.PublishTransactionApplied(ctx, tx); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish ledger event",
				log.FieldTransactionID, tx.ID, log.FieldError, err)
		}
	}
	return tx, nil
}

// EditTransaction overwrites a transaction's fields and moves every touched
// aggregate by the exact difference. Returns (false, nil) when the
// transaction does not exist for the user.
//
// Unlike create and delete, every aggregate update here must succeed: the
// batch runs fail-fast and the first error propagates to the caller.
func (s *LedgerService) EditTransaction(ctx context.Context, userID, id string, in core.TransactionInput, timezone string) (bool, error) {
	old, err := s.records.GetTransaction(ctx, userID, id)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load transaction: %w", err)
	}

	// Edits never move a transaction between months: the bucket is keyed by
	// the original local creation date, not "now".
	month := clock.MonthStart(old.CreatedAtLocal)

	var ops []Op
	if old.Type != in.Type {
		ops = s.typeChangeOps(old, in, month)
	} else {
		ops = s.sameTypeOps(old, in, month)
	}

	if err := runFailFast(ctx, ops); err != nil {
		return false, fmt.Errorf("edit aggregates: %w", err)
	}

	updated := old
	updated.Amount = in.Amount
	updated.Type = in.Type
	updated.Category = in.Category
	updated.Category2 = in.Category2
	updated.Category3 = in.Category3
	updated.PaymentMode = in.PaymentMode
	updated.Description = in.Description
	if err := s.records.UpdateTransaction(ctx, updated); err != nil {
		return false, fmt.Errorf("update transaction: %w", err)
	}
	return true, nil
}

// RemoveTransaction deletes a transaction and issues the subtract mirror of
// the create increments, keyed to the transaction's original month. The row
// delete decides success; like create, the subtracts are tolerated
// individually. A repeated remove returns (false, nil).
func (s *LedgerService) RemoveTransaction(ctx context.Context, userID, id, timezone string) (bool, error) {
	old, err := s.records.GetTransaction(ctx, userID, id)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load transaction: %w", err)
	}

	if err := s.records.DeleteTransaction(ctx, userID, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Lost a race with another delete; aggregates were already
			// reversed by the winner.
			return false, nil
		}
		return false, fmt.Errorf("delete transaction: %w", err)
	}

	month := clock.MonthStart(old.CreatedAtLocal)
	s.runTolerated(ctx, log.OpDelete, old.ID, s.applyOps(old.UserID, month, old.Type, old.Categories(), old.PaymentMode, -old.Amount.Cents))

	if s.events != nil {
		if err := s.events.PublishTransactionReverted(ctx, old); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish ledger event",
				log.FieldTransactionID, old.ID, log.FieldError, err)
		}
	}
	return true, nil
}

// applyOps builds the full fan-out for one transaction with one sign: the
// monthly counter, one op per tagged category (each receiving the FULL
// amount, never a split), and the payment mode row.
func (s *LedgerService) applyOps(userID string, month time.Time, typ core.TransactionType, categories []string, paymentMode string, delta int64) []Op {
	ops := []Op{s.monthlyOp(userID, month, typ, delta), s.paymentModeOp(userID, month, typ, paymentMode, delta)}
	for _, c := range categories {
		ops = append(ops, s.categoryOp(userID, month, typ, c, delta))
	}
	return ops
}

// typeChangeOps treats a type change as a full reversal under the old type
// followed by a full re-application under the new type. No overlap
// optimization is attempted.
func (s *LedgerService) typeChangeOps(old core.Transaction, in core.TransactionInput, month time.Time) []Op {
	ops := []Op{
		s.monthlyOp(old.UserID, month, old.Type, -old.Amount.Cents),
		s.monthlyOp(old.UserID, month, in.Type, in.Amount.Cents),
		s.paymentModeOp(old.UserID, month, old.Type, old.PaymentMode, -old.Amount.Cents),
		s.paymentModeOp(old.UserID, month, in.Type, in.PaymentMode, in.Amount.Cents),
	}
	for _, c := range old.Categories() {
		ops = append(ops, s.categoryOp(old.UserID, month, old.Type, c, -old.Amount.Cents))
	}
	for _, c := range in.Categories() {
		ops = append(ops, s.categoryOp(old.UserID, month, in.Type, c, in.Amount.Cents))
	}
	return ops
}

// sameTypeOps applies minimal signed diffs when the type is unchanged. An op
// whose delta would be zero is not issued at all.
func (s *LedgerService) sameTypeOps(old core.Transaction, in core.TransactionInput, month time.Time) []Op {
	amountDiff := in.Amount.Cents - old.Amount.Cents

	var ops []Op
	if amountDiff != 0 {
		ops = append(ops, s.monthlyOp(old.UserID, month, old.Type, amountDiff))
	}

	if in.PaymentMode != old.PaymentMode {
		// The dimension itself changed: full subtract then full add, not a
		// diff.
		ops = append(ops,
			s.paymentModeOp(old.UserID, month, old.Type, old.PaymentMode, -old.Amount.Cents),
			s.paymentModeOp(old.UserID, month, old.Type, in.PaymentMode, in.Amount.Cents))
	} else if amountDiff != 0 {
		ops = append(ops, s.paymentModeOp(old.UserID, month, old.Type, old.PaymentMode, amountDiff))
	}

	diff := DiffCategories(old.Categories(), in.Categories())
	for _, c := range diff.Added {
		ops = append(ops, s.categoryOp(old.UserID, month, old.Type, c, in.Amount.Cents))
	}
	if amountDiff != 0 {
		for _, c := range diff.Kept {
			ops = append(ops, s.categoryOp(old.UserID, month, old.Type, c, amountDiff))
		}
	}
	for _, c := range diff.Removed {
		ops = append(ops, s.categoryOp(old.UserID, month, old.Type, c, -old.Amount.Cents))
	}
	return ops
}

func (s *LedgerService) monthlyOp(userID string, month time.Time, typ core.TransactionType, delta int64) Op {
	return Op{
		Name: fmt.Sprintf("monthly target %s", typ),
		Run: func(ctx context.Context) error {
			return s.aggregates.ApplyMonthlyDelta(ctx, userID, month, typ, delta)
		},
	}
}

func (s *LedgerService) categoryOp(userID string, month time.Time, typ core.TransactionType, category string, delta int64) Op {
	return Op{
		Name: fmt.Sprintf("category %s/%s", typ, category),
		Run: func(ctx context.Context) error {
			return s.aggregates.ApplyCategoryDelta(ctx, userID, month, typ, category, delta)
		},
	}
}

func (s *LedgerService) paymentModeOp(userID string, month time.Time, typ core.TransactionType, paymentMode string, delta int64) Op {
	return Op{
		Name: fmt.Sprintf("payment mode %s/%s", typ, paymentMode),
		Run: func(ctx context.Context) error {
			return s.aggregates.ApplyPaymentModeDelta(ctx, userID, month, typ, paymentMode, delta)
		},
	}
}

func (s *LedgerService) runTolerated(ctx context.Context, operation, txID string, ops []Op) []OpResult {
	results := runBestEffort(ctx, ops)
	for _, res := range results {
		if res.Err != nil {
			s.logger.ErrorContext(ctx, "Aggregate update failed",
				log.FieldOperation, operation,
				log.FieldTransactionID, txID,
				"aggregate", res.Name,
				log.FieldError, res.Err)
		}
	}
	return results
}
