package memory

import (
	"context"
	"testing"
	"time"

	"moneta/internal/core"
)

func TestStore_WriteMonthSummary(t *testing.T) {
	s := New()
	month := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	ref, err := s.WriteMonthSummary(context.Background(), "user-1", month, core.MonthSummary{
		Target: core.MonthlyTarget{Expense: core.Money{Cents: 1200}},
	})
	if err != nil {
		t.Fatalf("WriteMonthSummary() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	exports := s.Exports()
	if len(exports) != 1 {
		t.Fatalf("len(exports) = %d, want 1", len(exports))
	}
	if exports[0].UserID != "user-1" || !exports[0].MonthStart.Equal(month) {
		t.Errorf("export = %+v", exports[0])
	}
	if exports[0].Summary.Target.Expense.Cents != 1200 {
		t.Errorf("expense cents = %d, want 1200", exports[0].Summary.Target.Expense.Cents)
	}
}
