package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income     TransactionType = "income"
	Expense    TransactionType = "expense"
	Investment TransactionType = "investment"
)

const (
	Day   Occurrence = "day"
	Month Occurrence = "month"
	Year  Occurrence = "year"
)

// MaxInterval bounds how many occurrence units a recurring template may span.
const MaxInterval = 500

type (
	TransactionType string

	// Occurrence is the unit (day/month/year) by which a recurring
	// template's interval is measured.
	Occurrence string

	Money struct {
		Cents int64
	}

	// Transaction is one recorded money movement. CreatedAtLocal is the
	// user-timezone calendar date (stored as UTC midnight) and decides which
	// month bucket the transaction's aggregates live in.
	Transaction struct {
		ID             string
		UserID         string
		Amount         Money
		Type           TransactionType
		Category       string
		Category2      string
		Category3      string
		PaymentMode    string
		Description    string
		CreatedAt      time.Time
		CreatedAtLocal time.Time
	}

	// TransactionInput carries the caller-supplied fields for a create or a
	// full-record edit.
	TransactionInput struct {
		Amount      Money
		Type        TransactionType
		Category    string
		Category2   string
		Category3   string
		PaymentMode string
		Description string
	}

	// RecurringTemplate is a transaction blueprint that regenerates. It does
	// not own the transactions it spawns: each mark-as-done creates an
	// independent Transaction.
	RecurringTemplate struct {
		ID            string
		UserID        string
		Amount        Money
		Type          TransactionType
		Category      string
		Category2     string
		Category3     string
		PaymentMode   string
		Description   string
		Occurrence    Occurrence
		Interval      int
		ExecutionDate time.Time
		IsNotified    bool
	}

	// MonthlyTarget is the per-(user, month) aggregate row. Expense,
	// IncomeEarned and InvestmentDone are running sums maintained by the
	// ledger engine; Budget, Income and Investment are user-set planning
	// values that no transaction ever touches.
	MonthlyTarget struct {
		UserID         string
		MonthStart     time.Time
		Budget         Money
		Expense        Money
		Income         Money
		IncomeEarned   Money
		Investment     Money
		InvestmentDone Money
	}

	// CategoryAmount is the per-(user, month, type, category) running sum.
	//
	// A transaction tagged with two or three categories adds its FULL amount
	// to each tagged category's row, not a split. Summing CategoryAmount over
	// the categories of a type can therefore exceed the MonthlyTarget total
	// for that type. The fan-out is intentional and must not be "fixed" into
	// a proration.
	CategoryAmount struct {
		UserID     string
		MonthStart time.Time
		Type       TransactionType
		Category   string
		Amount     Money
		Budget     Money
	}

	// PaymentModeAmount is the per-(user, month, type, payment mode) running
	// sum. Single dimension, no multi-tagging.
	PaymentModeAmount struct {
		UserID      string
		MonthStart  time.Time
		Type        TransactionType
		PaymentMode string
		Amount      Money
	}
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrEmptyCategory     = errors.New("empty category")
	ErrDuplicateCategory = errors.New("duplicate category")
	ErrEmptyPaymentMode  = errors.New("empty payment mode")
	ErrInvalidOccurrence = errors.New("invalid occurrence")
	ErrInvalidInterval   = errors.New("invalid interval")
)

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Investment:
		return true
	}
	return false
}

func (o Occurrence) Valid() bool {
	switch o {
	case Day, Month, Year:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Categories returns the non-empty category slots in slot order.
func (t Transaction) Categories() []string {
	return nonEmpty(t.Category, t.Category2, t.Category3)
}

// Categories returns the non-empty category slots in slot order.
func (in TransactionInput) Categories() []string {
	return nonEmpty(in.Category, in.Category2, in.Category3)
}

// Categories returns the non-empty category slots in slot order.
func (rt RecurringTemplate) Categories() []string {
	return nonEmpty(rt.Category, rt.Category2, rt.Category3)
}

func nonEmpty(cats ...string) []string {
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

func (in TransactionInput) Validate() error {
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(in.Category) == "" {
		return ErrEmptyCategory
	}
	if err := validateDistinct(in.Category, in.Category2, in.Category3); err != nil {
		return err
	}
	if strings.TrimSpace(in.PaymentMode) == "" {
		return ErrEmptyPaymentMode
	}
	if len(in.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (rt RecurringTemplate) Validate() error {
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	if !rt.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(rt.Category) == "" {
		return ErrEmptyCategory
	}
	if err := validateDistinct(rt.Category, rt.Category2, rt.Category3); err != nil {
		return err
	}
	if strings.TrimSpace(rt.PaymentMode) == "" {
		return ErrEmptyPaymentMode
	}
	if !rt.Occurrence.Valid() {
		return ErrInvalidOccurrence
	}
	if rt.Interval < 1 || rt.Interval > MaxInterval {
		return ErrInvalidInterval
	}
	if len(rt.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// validateDistinct enforces pairwise-distinct category slots; empty optional
// slots are exempt.
func validateDistinct(c1, c2, c3 string) error {
	if c2 != "" && c2 == c1 {
		return ErrDuplicateCategory
	}
	if c3 != "" && (c3 == c1 || c3 == c2) {
		return ErrDuplicateCategory
	}
	return nil
}
