package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"moneta/internal/core"

	ports "moneta/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client exports month summaries to a Google spreadsheet. Each export appends
// one block of rows to the reports sheet: the month totals, then one row per
// category and per payment mode.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportsSheet  string
}

var _ ports.SummaryWriter = (*Client)(nil)

// New creates a Sheets client for the given spreadsheet and reports sheet.
// Service account credentials come from the environment
// (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS).
func New(ctx context.Context, spreadsheetID, reportsSheet string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	reportsSheet = strings.TrimSpace(reportsSheet)
	if reportsSheet == "" {
		reportsSheet = "Reports"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportsSheet:  reportsSheet,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	)
}

func (c *Client) WriteMonthSummary(ctx context.Context, userID string, monthStart time.Time, summary core.MonthSummary) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rows := SummaryRows(userID, monthStart, summary)
	vr := &gsheet.ValueRange{Values: rows}

	rng := fmt.Sprintf("%s!A:H", c.reportsSheet)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append month summary to sheet %s: %w", c.reportsSheet, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// SummaryRows flattens a month summary into spreadsheet rows. Amounts are
// written as decimal units, not cents.
func SummaryRows(userID string, monthStart time.Time, summary core.MonthSummary) [][]any {
	month := monthStart.Format("2006-01")
	t := summary.Target

	rows := [][]any{
		{month, userID, "totals", "",
			t.Budget.Units(), t.Expense.Units(),
			t.IncomeEarned.Units(), t.InvestmentDone.Units()},
	}
	for _, ca := range summary.Categories {
		rows = append(rows, []any{
			month, userID, "category", fmt.Sprintf("%s/%s", ca.Type, ca.Category),
			ca.Budget.Units(), ca.Amount.Units(), "", "",
		})
	}
	for _, pm := range summary.PaymentModes {
		rows = append(rows, []any{
			month, userID, "payment_mode", fmt.Sprintf("%s/%s", pm.Type, pm.PaymentMode),
			"", pm.Amount.Units(), "", "",
		})
	}
	return rows
}
