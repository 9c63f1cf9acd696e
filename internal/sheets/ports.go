package sheets

import (
	"context"
	"time"

	"moneta/internal/core"
)

// Ports for outbound report adapters.
type (
	// SummaryWriter exports a user-month summary to an external sheet and
	// returns a reference to the written range.
	SummaryWriter interface {
		WriteMonthSummary(ctx context.Context, userID string, monthStart time.Time, summary core.MonthSummary) (ref string, err error)
	}
)
