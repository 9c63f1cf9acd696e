package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"moneta/internal/core"

	_ "modernc.org/sqlite"
)

// Calendar dates (created_at_local, month_start, execution_date) are stored as
// bare date strings so they sort and compare lexicographically in SQL.
const (
	dateLayout    = "2006-01-02"
	instantLayout = time.RFC3339Nano
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// The engine issues aggregate upserts concurrently; let writers queue
	// instead of failing with SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateTransaction persists a new transaction row.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, user_id, amount_cents, type, category, category2, category3,
			 payment_mode, description, created_at, created_at_local)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Amount.Cents, string(tx.Type),
		tx.Category, tx.Category2, tx.Category3,
		tx.PaymentMode, tx.Description,
		tx.CreatedAt.UTC().Format(instantLayout),
		tx.CreatedAtLocal.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// GetTransaction loads one transaction owned by the user. Returns
// core.ErrNotFound when no such row exists.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, amount_cents, type, category, category2, category3,
		       payment_mode, description, created_at, created_at_local
		FROM transactions
		WHERE id = ? AND user_id = ?`, id, userID)
	return scanTransaction(row)
}

// UpdateTransaction overwrites the mutable fields of a transaction row.
// CreatedAt and CreatedAtLocal never change: edits cannot move a transaction
// to a different month.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET amount_cents = ?, type = ?, category = ?, category2 = ?,
		    category3 = ?, payment_mode = ?, description = ?
		WHERE id = ? AND user_id = ?`,
		tx.Amount.Cents, string(tx.Type), tx.Category, tx.Category2,
		tx.Category3, tx.PaymentMode, tx.Description, tx.ID, tx.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

// DeleteTransaction removes a transaction row. Returns core.ErrNotFound when
// nothing was deleted, which makes a repeated delete observably a no-op.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

// ListTransactionsByMonth returns the user's transactions whose local date
// falls inside the given month. Used by reconciliation, never by reports.
func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, userID string, monthStart time.Time) ([]core.Transaction, error) {
	from := monthStart.Format(dateLayout)
	to := monthStart.AddDate(0, 1, 0).Format(dateLayout)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, amount_cents, type, category, category2, category3,
		       payment_mode, description, created_at, created_at_local
		FROM transactions
		WHERE user_id = ? AND created_at_local >= ? AND created_at_local < ?
		ORDER BY created_at_local, id`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions by month: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// CreateTemplate persists a new recurring template.
func (r *SQLiteRepository) CreateTemplate(ctx context.Context, rt core.RecurringTemplate) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_templates
			(id, user_id, amount_cents, type, category, category2, category3,
			 payment_mode, description, occurrence, interval, execution_date,
			 is_notified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.UserID, rt.Amount.Cents, string(rt.Type),
		rt.Category, rt.Category2, rt.Category3,
		rt.PaymentMode, rt.Description,
		string(rt.Occurrence), rt.Interval,
		rt.ExecutionDate.Format(dateLayout), boolToInt(rt.IsNotified))
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// GetTemplate loads one recurring template owned by the user.
func (r *SQLiteRepository) GetTemplate(ctx context.Context, userID, id string) (core.RecurringTemplate, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, amount_cents, type, category, category2, category3,
		       payment_mode, description, occurrence, interval, execution_date,
		       is_notified
		FROM recurring_templates
		WHERE id = ? AND user_id = ?`, id, userID)
	return scanTemplate(row)
}

// RescheduleTemplate advances the template's next due date and clears the
// notified flag in the same statement.
func (r *SQLiteRepository) RescheduleTemplate(ctx context.Context, userID, id string, executionDate time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_templates
		SET execution_date = ?, is_notified = 0
		WHERE id = ? AND user_id = ?`,
		executionDate.Format(dateLayout), id, userID)
	if err != nil {
		return fmt.Errorf("reschedule template: %w", err)
	}
	return requireRow(res)
}

// MarkTemplateNotified records that a due reminder went out for the current
// execution date.
func (r *SQLiteRepository) MarkTemplateNotified(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_templates SET is_notified = 1
		WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("mark template notified: %w", err)
	}
	return requireRow(res)
}

// DeleteTemplate removes a recurring template.
func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_templates WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return requireRow(res)
}

// ListTemplatesDueBefore returns the user's templates whose execution date is
// strictly before the given local date (the overdue set).
func (r *SQLiteRepository) ListTemplatesDueBefore(ctx context.Context, userID string, date time.Time) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx, templateSelect+`
		WHERE user_id = ? AND execution_date < ?
		ORDER BY execution_date, id`, userID, date.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list overdue templates: %w", err)
	}
	return collectTemplates(rows)
}

// ListTemplatesDueBetween returns the user's templates due in [from, to],
// bounds inclusive (the upcoming window).
func (r *SQLiteRepository) ListTemplatesDueBetween(ctx context.Context, userID string, from, to time.Time) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx, templateSelect+`
		WHERE user_id = ? AND execution_date >= ? AND execution_date <= ?
		ORDER BY execution_date, id`,
		userID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list upcoming templates: %w", err)
	}
	return collectTemplates(rows)
}

// ListDueUnnotified returns templates across all users that are due on or
// before the given date and have not had a reminder sent yet.
func (r *SQLiteRepository) ListDueUnnotified(ctx context.Context, date time.Time, limit int) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx, templateSelect+`
		WHERE execution_date <= ? AND is_notified = 0
		ORDER BY execution_date, id
		LIMIT ?`, date.Format(dateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("list due unnotified templates: %w", err)
	}
	return collectTemplates(rows)
}

const templateSelect = `
	SELECT id, user_id, amount_cents, type, category, category2, category3,
	       payment_mode, description, occurrence, interval, execution_date,
	       is_notified
	FROM recurring_templates`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx             core.Transaction
		typ            string
		createdAt      string
		createdAtLocal string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Amount.Cents, &typ,
		&tx.Category, &tx.Category2, &tx.Category3,
		&tx.PaymentMode, &tx.Description, &createdAt, &createdAtLocal)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = core.TransactionType(typ)
	if tx.CreatedAt, err = time.Parse(instantLayout, createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at: %w", err)
	}
	if tx.CreatedAtLocal, err = time.Parse(dateLayout, createdAtLocal); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at_local: %w", err)
	}
	return tx, nil
}

func scanTemplate(row rowScanner) (core.RecurringTemplate, error) {
	var (
		rt            core.RecurringTemplate
		typ           string
		occurrence    string
		executionDate string
		notified      int64
	)
	err := row.Scan(&rt.ID, &rt.UserID, &rt.Amount.Cents, &typ,
		&rt.Category, &rt.Category2, &rt.Category3,
		&rt.PaymentMode, &rt.Description, &occurrence, &rt.Interval,
		&executionDate, &notified)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTemplate{}, core.ErrNotFound
	}
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("scan template: %w", err)
	}
	rt.Type = core.TransactionType(typ)
	rt.Occurrence = core.Occurrence(occurrence)
	rt.IsNotified = notified != 0
	if rt.ExecutionDate, err = time.Parse(dateLayout, executionDate); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("parse execution_date: %w", err)
	}
	return rt, nil
}

func collectTemplates(rows *sql.Rows) ([]core.RecurringTemplate, error) {
	defer rows.Close()
	var out []core.RecurringTemplate
	for rows.Next() {
		rt, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
