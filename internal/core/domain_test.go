package core

import (
	"errors"
	"testing"
)

func validInput() TransactionInput {
	return TransactionInput{
		Amount:      Money{Cents: 1250},
		Type:        Expense,
		Category:    "groceries",
		PaymentMode: "card",
	}
}

func TestTransactionInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TransactionInput)
		wantErr error
	}{
		{
			name:   "valid minimal input",
			mutate: func(in *TransactionInput) {},
		},
		{
			name: "valid with all three categories",
			mutate: func(in *TransactionInput) {
				in.Category2 = "food"
				in.Category3 = "household"
			},
		},
		{
			name:    "zero amount",
			mutate:  func(in *TransactionInput) { in.Amount = Money{} },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(in *TransactionInput) { in.Amount = Money{Cents: -500} },
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "unknown type",
			mutate:  func(in *TransactionInput) { in.Type = "transfer" },
			wantErr: ErrInvalidType,
		},
		{
			name:    "empty category",
			mutate:  func(in *TransactionInput) { in.Category = "  " },
			wantErr: ErrEmptyCategory,
		},
		{
			name:    "category2 duplicates category",
			mutate:  func(in *TransactionInput) { in.Category2 = "groceries" },
			wantErr: ErrDuplicateCategory,
		},
		{
			name: "category3 duplicates category2",
			mutate: func(in *TransactionInput) {
				in.Category2 = "food"
				in.Category3 = "food"
			},
			wantErr: ErrDuplicateCategory,
		},
		{
			name:    "empty payment mode",
			mutate:  func(in *TransactionInput) { in.PaymentMode = "" },
			wantErr: ErrEmptyPaymentMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			err := in.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecurringTemplate_Validate(t *testing.T) {
	valid := RecurringTemplate{
		Amount:      Money{Cents: 50000},
		Type:        Expense,
		Category:    "rent",
		PaymentMode: "bank",
		Occurrence:  Month,
		Interval:    1,
	}

	tests := []struct {
		name    string
		mutate  func(*RecurringTemplate)
		wantErr error
	}{
		{
			name:   "valid template",
			mutate: func(rt *RecurringTemplate) {},
		},
		{
			name:    "bad occurrence",
			mutate:  func(rt *RecurringTemplate) { rt.Occurrence = "week" },
			wantErr: ErrInvalidOccurrence,
		},
		{
			name:    "zero interval",
			mutate:  func(rt *RecurringTemplate) { rt.Interval = 0 },
			wantErr: ErrInvalidInterval,
		},
		{
			name:    "interval over cap",
			mutate:  func(rt *RecurringTemplate) { rt.Interval = MaxInterval + 1 },
			wantErr: ErrInvalidInterval,
		},
		{
			name:    "interval at cap is fine",
			mutate:  func(rt *RecurringTemplate) { rt.Interval = MaxInterval },
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := valid
			tt.mutate(&rt)
			err := rt.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransaction_Categories(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want []string
	}{
		{
			name: "single category",
			tx:   Transaction{Category: "food"},
			want: []string{"food"},
		},
		{
			name: "all three slots",
			tx:   Transaction{Category: "food", Category2: "grocery", Category3: "home"},
			want: []string{"food", "grocery", "home"},
		},
		{
			name: "gap in slots",
			tx:   Transaction{Category: "food", Category3: "home"},
			want: []string{"food", "home"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tx.Categories()
			if len(got) != len(tt.want) {
				t.Fatalf("Categories() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Categories()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
