package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"moneta/internal/core"
)

const (
	headerUserID   = "X-User-ID"
	headerTimezone = "X-Timezone"

	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
)

var errMissingUserID = errors.New("missing X-User-ID header")

// identity extracts the caller's user ID and timezone from request headers.
// The timezone falls back to the server default when absent.
func (s *Server) identity(r *http.Request) (userID, timezone string, err error) {
	userID = strings.TrimSpace(r.Header.Get(headerUserID))
	if userID == "" {
		return "", "", errMissingUserID
	}
	timezone = strings.TrimSpace(r.Header.Get(headerTimezone))
	if timezone == "" {
		timezone = s.defaultTimezone
	}
	return userID, timezone, nil
}

// transactionRequest is the JSON body for create and edit. Amount is a
// decimal string ("12.50"), converted to cents server-side.
type transactionRequest struct {
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Category2   string `json:"category2,omitempty"`
	Category3   string `json:"category3,omitempty"`
	PaymentMode string `json:"payment_mode"`
	Description string `json:"description,omitempty"`
}

func (req transactionRequest) toInput() (core.TransactionInput, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.TransactionInput{}, fmt.Errorf("amount: %w", err)
	}
	in := core.TransactionInput{
		Amount:      core.Money{Cents: cents},
		Type:        core.TransactionType(strings.TrimSpace(req.Type)),
		Category:    strings.TrimSpace(req.Category),
		Category2:   strings.TrimSpace(req.Category2),
		Category3:   strings.TrimSpace(req.Category3),
		PaymentMode: strings.TrimSpace(req.PaymentMode),
		Description: strings.TrimSpace(req.Description),
	}
	if err := in.Validate(); err != nil {
		return core.TransactionInput{}, err
	}
	return in, nil
}

// templateRequest is the JSON body for recurring template creation.
// ExecutionDate is optional; when empty the first execution is scheduled one
// interval after today.
type templateRequest struct {
	transactionRequest
	Occurrence    string `json:"occurrence"`
	Interval      int    `json:"interval"`
	ExecutionDate string `json:"execution_date,omitempty"`
}

func (req templateRequest) toTemplate() (core.RecurringTemplate, error) {
	in, err := req.transactionRequest.toInput()
	if err != nil {
		return core.RecurringTemplate{}, err
	}

	rt := core.RecurringTemplate{
		Amount:      in.Amount,
		Type:        in.Type,
		Category:    in.Category,
		Category2:   in.Category2,
		Category3:   in.Category3,
		PaymentMode: in.PaymentMode,
		Description: in.Description,
		Occurrence:  core.Occurrence(strings.TrimSpace(req.Occurrence)),
		Interval:    req.Interval,
	}
	if v := strings.TrimSpace(req.ExecutionDate); v != "" {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return core.RecurringTemplate{}, fmt.Errorf("execution_date: %w", err)
		}
		rt.ExecutionDate = d
	}
	if err := rt.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}
	return rt, nil
}

// planRequest sets the user planning values for a month. Empty fields mean
// zero.
type planRequest struct {
	Budget     string `json:"budget,omitempty"`
	Income     string `json:"income,omitempty"`
	Investment string `json:"investment,omitempty"`
}

func (req planRequest) toPlanningValues() (core.PlanningValues, error) {
	var pv core.PlanningValues
	var err error
	if pv.Budget, err = optionalAmount(req.Budget, "budget"); err != nil {
		return core.PlanningValues{}, err
	}
	if pv.Income, err = optionalAmount(req.Income, "income"); err != nil {
		return core.PlanningValues{}, err
	}
	if pv.Investment, err = optionalAmount(req.Investment, "investment"); err != nil {
		return core.PlanningValues{}, err
	}
	return pv, nil
}

type budgetRequest struct {
	Budget string `json:"budget"`
}

func optionalAmount(v, field string) (core.Money, error) {
	if strings.TrimSpace(v) == "" {
		return core.Money{}, nil
	}
	cents, err := core.ParseDecimalToCents(v)
	if err != nil {
		return core.Money{}, fmt.Errorf("%s: %w", field, err)
	}
	return core.Money{Cents: cents}, nil
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// parseMonth parses a "2006-01" path segment into a UTC month start.
func parseMonth(v string) (time.Time, error) {
	t, err := time.Parse(monthLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: want YYYY-MM", v)
	}
	return t, nil
}
