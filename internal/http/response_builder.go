package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"moneta/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

type transactionResponse struct {
	ID          string   `json:"id"`
	Amount      string   `json:"amount"`
	AmountCents int64    `json:"amount_cents"`
	Type        string   `json:"type"`
	Categories  []string `json:"categories"`
	PaymentMode string   `json:"payment_mode"`
	Description string   `json:"description,omitempty"`
	Date        string   `json:"date"`
}

func newTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Amount:      core.FormatCents(tx.Amount.Cents),
		AmountCents: tx.Amount.Cents,
		Type:        string(tx.Type),
		Categories:  tx.Categories(),
		PaymentMode: tx.PaymentMode,
		Description: tx.Description,
		Date:        tx.CreatedAtLocal.Format(dateLayout),
	}
}

type templateResponse struct {
	ID            string   `json:"id"`
	Amount        string   `json:"amount"`
	AmountCents   int64    `json:"amount_cents"`
	Type          string   `json:"type"`
	Categories    []string `json:"categories"`
	PaymentMode   string   `json:"payment_mode"`
	Description   string   `json:"description,omitempty"`
	Occurrence    string   `json:"occurrence"`
	Interval      int      `json:"interval"`
	ExecutionDate string   `json:"execution_date"`
}

func newTemplateResponse(rt core.RecurringTemplate) templateResponse {
	return templateResponse{
		ID:            rt.ID,
		Amount:        core.FormatCents(rt.Amount.Cents),
		AmountCents:   rt.Amount.Cents,
		Type:          string(rt.Type),
		Categories:    rt.Categories(),
		PaymentMode:   rt.PaymentMode,
		Description:   rt.Description,
		Occurrence:    string(rt.Occurrence),
		Interval:      rt.Interval,
		ExecutionDate: rt.ExecutionDate.Format(dateLayout),
	}
}

type templateListResponse struct {
	Templates []templateResponse `json:"templates"`
}

func newTemplateListResponse(templates []core.RecurringTemplate) templateListResponse {
	out := templateListResponse{Templates: make([]templateResponse, 0, len(templates))}
	for _, rt := range templates {
		out.Templates = append(out.Templates, newTemplateResponse(rt))
	}
	return out
}

type transactionListResponse struct {
	Transactions []transactionResponse `json:"transactions"`
}

type summaryResponse struct {
	Month          string                    `json:"month"`
	Budget         string                    `json:"budget"`
	Expense        string                    `json:"expense"`
	Income         string                    `json:"income"`
	IncomeEarned   string                    `json:"income_earned"`
	Investment     string                    `json:"investment"`
	InvestmentDone string                    `json:"investment_done"`
	Categories     []categorySummaryEntry    `json:"categories"`
	PaymentModes   []paymentModeSummaryEntry `json:"payment_modes"`
}

type categorySummaryEntry struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Budget   string `json:"budget"`
}

type paymentModeSummaryEntry struct {
	Type        string `json:"type"`
	PaymentMode string `json:"payment_mode"`
	Amount      string `json:"amount"`
}

func newSummaryResponse(month string, s core.MonthSummary) summaryResponse {
	out := summaryResponse{
		Month:          month,
		Budget:         core.FormatCents(s.Target.Budget.Cents),
		Expense:        core.FormatCents(s.Target.Expense.Cents),
		Income:         core.FormatCents(s.Target.Income.Cents),
		IncomeEarned:   core.FormatCents(s.Target.IncomeEarned.Cents),
		Investment:     core.FormatCents(s.Target.Investment.Cents),
		InvestmentDone: core.FormatCents(s.Target.InvestmentDone.Cents),
		Categories:     make([]categorySummaryEntry, 0, len(s.Categories)),
		PaymentModes:   make([]paymentModeSummaryEntry, 0, len(s.PaymentModes)),
	}
	for _, ca := range s.Categories {
		out.Categories = append(out.Categories, categorySummaryEntry{
			Type:     string(ca.Type),
			Category: ca.Category,
			Amount:   core.FormatCents(ca.Amount.Cents),
			Budget:   core.FormatCents(ca.Budget.Cents),
		})
	}
	for _, pm := range s.PaymentModes {
		out.PaymentModes = append(out.PaymentModes, paymentModeSummaryEntry{
			Type:        string(pm.Type),
			PaymentMode: pm.PaymentMode,
			Amount:      core.FormatCents(pm.Amount.Cents),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors onto HTTP status codes. Validation
// sentinels become 400s, everything else is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidType,
		core.ErrEmptyCategory,
		core.ErrDuplicateCategory,
		core.ErrEmptyPaymentMode,
		core.ErrInvalidOccurrence,
		core.ErrInvalidInterval,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
