package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moneta/internal/core"
)

// counterColumn maps a transaction type to the MonthlyTarget column it drives.
// Budget, income and investment are planning values and have no type mapping.
var counterColumn = map[core.TransactionType]string{
	core.Expense:    "expense",
	core.Income:     "income_earned",
	core.Investment: "investment_done",
}

// ApplyMonthlyDelta adds delta cents to the counter matching the transaction
// type for (user, month), creating the row with zeroed fields first if needed.
// The increment happens inside a single INSERT..ON CONFLICT, so two racing
// mutations on the same row cannot lose an update.
func (r *SQLiteRepository) ApplyMonthlyDelta(ctx context.Context, userID string, monthStart time.Time, typ core.TransactionType, delta int64) error {
	col, ok := counterColumn[typ]
	if !ok {
		return fmt.Errorf("no monthly counter for type %q", typ)
	}
	query := fmt.Sprintf(`
		INSERT INTO monthly_targets (user_id, month_start, %[1]s)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, month_start)
		DO UPDATE SET %[1]s = %[1]s + excluded.%[1]s`, col)
	if _, err := r.db.ExecContext(ctx, query, userID, monthStart.Format(dateLayout), delta); err != nil {
		return fmt.Errorf("apply monthly delta: %w", err)
	}
	return nil
}

// ApplyCategoryDelta adds delta cents to the (user, month, type, category)
// running sum, creating the row if needed.
func (r *SQLiteRepository) ApplyCategoryDelta(ctx context.Context, userID string, monthStart time.Time, typ core.TransactionType, category string, delta int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO category_amounts (user_id, month_start, type, category, amount)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, month_start, type, category)
		DO UPDATE SET amount = amount + excluded.amount`,
		userID, monthStart.Format(dateLayout), string(typ), category, delta)
	if err != nil {
		return fmt.Errorf("apply category delta: %w", err)
	}
	return nil
}

// ApplyPaymentModeDelta adds delta cents to the (user, month, type, payment
// mode) running sum, creating the row if needed.
func (r *SQLiteRepository) ApplyPaymentModeDelta(ctx context.Context, userID string, monthStart time.Time, typ core.TransactionType, paymentMode string, delta int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_mode_amounts (user_id, month_start, type, payment_mode, amount)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, month_start, type, payment_mode)
		DO UPDATE SET amount = amount + excluded.amount`,
		userID, monthStart.Format(dateLayout), string(typ), paymentMode, delta)
	if err != nil {
		return fmt.Errorf("apply payment mode delta: %w", err)
	}
	return nil
}

// SetPlanningValues overwrites the user-set MonthlyTarget fields, leaving the
// running counters alone.
func (r *SQLiteRepository) SetPlanningValues(ctx context.Context, userID string, monthStart time.Time, pv core.PlanningValues) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monthly_targets (user_id, month_start, budget, income, investment)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, month_start)
		DO UPDATE SET budget = excluded.budget,
		              income = excluded.income,
		              investment = excluded.investment`,
		userID, monthStart.Format(dateLayout),
		pv.Budget.Cents, pv.Income.Cents, pv.Investment.Cents)
	if err != nil {
		return fmt.Errorf("set planning values: %w", err)
	}
	return nil
}

// SetCategoryBudget overwrites the user-set budget on an expense category row,
// leaving the running amount alone.
func (r *SQLiteRepository) SetCategoryBudget(ctx context.Context, userID string, monthStart time.Time, category string, budget core.Money) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO category_amounts (user_id, month_start, type, category, budget)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, month_start, type, category)
		DO UPDATE SET budget = excluded.budget`,
		userID, monthStart.Format(dateLayout), string(core.Expense), category, budget.Cents)
	if err != nil {
		return fmt.Errorf("set category budget: %w", err)
	}
	return nil
}

// GetMonthlyTarget loads the aggregate row for (user, month). Returns
// core.ErrNotFound when no transaction or budget has touched the month yet.
func (r *SQLiteRepository) GetMonthlyTarget(ctx context.Context, userID string, monthStart time.Time) (core.MonthlyTarget, error) {
	mt := core.MonthlyTarget{UserID: userID, MonthStart: monthStart}
	err := r.db.QueryRowContext(ctx, `
		SELECT budget, expense, income, income_earned, investment, investment_done
		FROM monthly_targets
		WHERE user_id = ? AND month_start = ?`,
		userID, monthStart.Format(dateLayout)).
		Scan(&mt.Budget.Cents, &mt.Expense.Cents, &mt.Income.Cents,
			&mt.IncomeEarned.Cents, &mt.Investment.Cents, &mt.InvestmentDone.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyTarget{}, core.ErrNotFound
	}
	if err != nil {
		return core.MonthlyTarget{}, fmt.Errorf("get monthly target: %w", err)
	}
	return mt, nil
}

// ListCategoryAmounts returns every category row for (user, month).
func (r *SQLiteRepository) ListCategoryAmounts(ctx context.Context, userID string, monthStart time.Time) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT type, category, amount, budget
		FROM category_amounts
		WHERE user_id = ? AND month_start = ?
		ORDER BY type, category`,
		userID, monthStart.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list category amounts: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		ca := core.CategoryAmount{UserID: userID, MonthStart: monthStart}
		var typ string
		if err := rows.Scan(&typ, &ca.Category, &ca.Amount.Cents, &ca.Budget.Cents); err != nil {
			return nil, fmt.Errorf("scan category amount: %w", err)
		}
		ca.Type = core.TransactionType(typ)
		out = append(out, ca)
	}
	return out, rows.Err()
}

// ListPaymentModeAmounts returns every payment mode row for (user, month).
func (r *SQLiteRepository) ListPaymentModeAmounts(ctx context.Context, userID string, monthStart time.Time) ([]core.PaymentModeAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT type, payment_mode, amount
		FROM payment_mode_amounts
		WHERE user_id = ? AND month_start = ?
		ORDER BY type, payment_mode`,
		userID, monthStart.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list payment mode amounts: %w", err)
	}
	defer rows.Close()

	var out []core.PaymentModeAmount
	for rows.Next() {
		pm := core.PaymentModeAmount{UserID: userID, MonthStart: monthStart}
		var typ string
		if err := rows.Scan(&typ, &pm.PaymentMode, &pm.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan payment mode amount: %w", err)
		}
		pm.Type = core.TransactionType(typ)
		out = append(out, pm)
	}
	return out, rows.Err()
}

// RecomputeMonthAggregates rebuilds every aggregate row for (user, month)
// from the live transaction set, preserving user-set budgets. Operational
// recovery only: the engine never calls this, so the best-effort consistency
// model stays observable in normal operation.
func (r *SQLiteRepository) RecomputeMonthAggregates(ctx context.Context, userID string, monthStart time.Time) error {
	txs, err := r.ListTransactionsByMonth(ctx, userID, monthStart)
	if err != nil {
		return fmt.Errorf("recompute month: %w", err)
	}

	byType := map[core.TransactionType]int64{}
	type catKey struct {
		typ core.TransactionType
		cat string
	}
	type modeKey struct {
		typ  core.TransactionType
		mode string
	}
	byCategory := map[catKey]int64{}
	byMode := map[modeKey]int64{}
	for _, tx := range txs {
		byType[tx.Type] += tx.Amount.Cents
		// Full amount per tagged category, same fan-out the engine applies
		for _, c := range tx.Categories() {
			byCategory[catKey{tx.Type, c}] += tx.Amount.Cents
		}
		byMode[modeKey{tx.Type, tx.PaymentMode}] += tx.Amount.Cents
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recompute: %w", err)
	}
	defer dbTx.Rollback()

	month := monthStart.Format(dateLayout)

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO monthly_targets (user_id, month_start, expense, income_earned, investment_done)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, month_start)
		DO UPDATE SET expense = excluded.expense,
		              income_earned = excluded.income_earned,
		              investment_done = excluded.investment_done`,
		userID, month,
		byType[core.Expense], byType[core.Income], byType[core.Investment])
	if err != nil {
		return fmt.Errorf("recompute monthly target: %w", err)
	}

	// Zero existing category amounts so stale categories end at 0 while
	// their budgets survive, then write the recomputed sums.
	if _, err := dbTx.ExecContext(ctx, `
		UPDATE category_amounts SET amount = 0
		WHERE user_id = ? AND month_start = ?`, userID, month); err != nil {
		return fmt.Errorf("zero category amounts: %w", err)
	}
	for k, cents := range byCategory {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO category_amounts (user_id, month_start, type, category, amount)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id, month_start, type, category)
			DO UPDATE SET amount = excluded.amount`,
			userID, month, string(k.typ), k.cat, cents)
		if err != nil {
			return fmt.Errorf("recompute category amount: %w", err)
		}
	}

	// Payment mode rows carry no user-set fields, so replace them outright.
	if _, err := dbTx.ExecContext(ctx, `
		DELETE FROM payment_mode_amounts
		WHERE user_id = ? AND month_start = ?`, userID, month); err != nil {
		return fmt.Errorf("clear payment mode amounts: %w", err)
	}
	for k, cents := range byMode {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO payment_mode_amounts (user_id, month_start, type, payment_mode, amount)
			VALUES (?, ?, ?, ?, ?)`,
			userID, month, string(k.typ), k.mode, cents)
		if err != nil {
			return fmt.Errorf("recompute payment mode amount: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit recompute: %w", err)
	}
	return nil
}
