package google

import (
	"context"
	"testing"
	"time"

	"moneta/internal/core"
)

func TestSummaryRows(t *testing.T) {
	month := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	summary := core.MonthSummary{
		Target: core.MonthlyTarget{
			Budget:         core.Money{Cents: 150000},
			Expense:        core.Money{Cents: 42050},
			IncomeEarned:   core.Money{Cents: 300000},
			InvestmentDone: core.Money{Cents: 50000},
		},
		Categories: []core.CategoryAmount{
			{Type: core.Expense, Category: "groceries", Amount: core.Money{Cents: 42050}, Budget: core.Money{Cents: 50000}},
		},
		PaymentModes: []core.PaymentModeAmount{
			{Type: core.Expense, PaymentMode: "card", Amount: core.Money{Cents: 42050}},
		},
	}

	rows := SummaryRows("user-1", month, summary)

	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}

	totals := rows[0]
	if totals[0] != "2024-04" || totals[1] != "user-1" || totals[2] != "totals" {
		t.Errorf("totals row = %v", totals)
	}
	if totals[5] != 420.50 {
		t.Errorf("expense units = %v, want 420.50", totals[5])
	}

	if rows[1][3] != "expense/groceries" {
		t.Errorf("category key = %v, want expense/groceries", rows[1][3])
	}
	if rows[2][3] != "expense/card" {
		t.Errorf("payment mode key = %v, want expense/card", rows[2][3])
	}
}

func TestNew_RequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), "  ", "Reports"); err == nil {
		t.Fatal("New with blank spreadsheet ID should fail")
	}
}
