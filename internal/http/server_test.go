package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"moneta/internal/clock"
	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/services"
	"moneta/internal/sheets/memory"
)

type stubRecords struct {
	mu  sync.Mutex
	txs map[string]core.Transaction
}

func newStubRecords() *stubRecords {
	return &stubRecords{txs: make(map[string]core.Transaction)}
}

func (s *stubRecords) key(userID, id string) string { return userID + "/" + id }

func (s *stubRecords) CreateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[s.key(tx.UserID, tx.ID)] = tx
	return nil
}

func (s *stubRecords) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[s.key(userID, id)]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (s *stubRecords) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(tx.UserID, tx.ID)
	if _, ok := s.txs[k]; !ok {
		return core.ErrNotFound
	}
	s.txs[k] = tx
	return nil
}

func (s *stubRecords) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(userID, id)
	if _, ok := s.txs[k]; !ok {
		return core.ErrNotFound
	}
	delete(s.txs, k)
	return nil
}

func (s *stubRecords) ListTransactionsByMonth(_ context.Context, userID string, monthStart time.Time) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for k, tx := range s.txs {
		if strings.HasPrefix(k, userID+"/") && clock.MonthStart(tx.CreatedAtLocal).Equal(monthStart) {
			out = append(out, tx)
		}
	}
	return out, nil
}

type stubAggregates struct {
	mu      sync.Mutex
	monthly map[string]int64
	targets map[string]core.MonthlyTarget
}

func newStubAggregates() *stubAggregates {
	return &stubAggregates{
		monthly: make(map[string]int64),
		targets: make(map[string]core.MonthlyTarget),
	}
}

func (s *stubAggregates) ApplyMonthlyDelta(_ context.Context, userID string, monthStart time.Time, typ core.TransactionType, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monthly[userID+"/"+monthStart.Format("2006-01")+"/"+string(typ)] += delta
	return nil
}

func (s *stubAggregates) ApplyCategoryDelta(context.Context, string, time.Time, core.TransactionType, string, int64) error {
	return nil
}

func (s *stubAggregates) ApplyPaymentModeDelta(context.Context, string, time.Time, core.TransactionType, string, int64) error {
	return nil
}

func (s *stubAggregates) GetMonthlyTarget(_ context.Context, userID string, monthStart time.Time) (core.MonthlyTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[userID+"/"+monthStart.Format("2006-01")]
	if !ok {
		return core.MonthlyTarget{}, core.ErrNotFound
	}
	return t, nil
}

func (s *stubAggregates) ListCategoryAmounts(context.Context, string, time.Time) ([]core.CategoryAmount, error) {
	return nil, nil
}

func (s *stubAggregates) ListPaymentModeAmounts(context.Context, string, time.Time) ([]core.PaymentModeAmount, error) {
	return nil, nil
}

func (s *stubAggregates) SetPlanningValues(_ context.Context, userID string, monthStart time.Time, pv core.PlanningValues) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := userID + "/" + monthStart.Format("2006-01")
	t := s.targets[k]
	t.Budget, t.Income, t.Investment = pv.Budget, pv.Income, pv.Investment
	s.targets[k] = t
	return nil
}

func (s *stubAggregates) SetCategoryBudget(context.Context, string, time.Time, string, core.Money) error {
	return nil
}

func (s *stubAggregates) RecomputeMonthAggregates(context.Context, string, time.Time) error {
	return nil
}

type stubTemplates struct {
	mu   sync.Mutex
	tpls map[string]core.RecurringTemplate
}

func newStubTemplates() *stubTemplates {
	return &stubTemplates{tpls: make(map[string]core.RecurringTemplate)}
}

func (s *stubTemplates) CreateTemplate(_ context.Context, rt core.RecurringTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tpls[rt.UserID+"/"+rt.ID] = rt
	return nil
}

func (s *stubTemplates) GetTemplate(_ context.Context, userID, id string) (core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.tpls[userID+"/"+id]
	if !ok {
		return core.RecurringTemplate{}, core.ErrNotFound
	}
	return rt, nil
}

func (s *stubTemplates) RescheduleTemplate(_ context.Context, userID, id string, executionDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.tpls[userID+"/"+id]
	if !ok {
		return core.ErrNotFound
	}
	rt.ExecutionDate = executionDate
	rt.IsNotified = false
	s.tpls[userID+"/"+id] = rt
	return nil
}

func (s *stubTemplates) DeleteTemplate(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tpls[userID+"/"+id]; !ok {
		return core.ErrNotFound
	}
	delete(s.tpls, userID+"/"+id)
	return nil
}

func (s *stubTemplates) ListTemplatesDueBefore(_ context.Context, userID string, date time.Time) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringTemplate
	for k, rt := range s.tpls {
		if strings.HasPrefix(k, userID+"/") && rt.ExecutionDate.Before(date) {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (s *stubTemplates) ListTemplatesDueBetween(_ context.Context, userID string, from, to time.Time) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringTemplate
	for k, rt := range s.tpls {
		if strings.HasPrefix(k, userID+"/") && !rt.ExecutionDate.Before(from) && !rt.ExecutionDate.After(to) {
			out = append(out, rt)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T) (*Server, *stubAggregates) {
	t.Helper()

	logger := log.New(log.DefaultConfig())
	clk := clock.NewResolverAt(func() time.Time {
		return time.Date(2024, 4, 15, 10, 30, 0, 0, time.UTC)
	})

	records := newStubRecords()
	aggregates := newStubAggregates()
	templates := newStubTemplates()

	ledger := services.NewLedgerService(records, aggregates, clk, nil, logger)
	recurring := services.NewRecurringService(templates, ledger, clk, logger)
	reports := services.NewReportService(aggregates, aggregates, clk)
	reconciler := services.NewReconciler(aggregates, logger)

	s := NewServer(":0", Options{
		Ledger:          ledger,
		Recurring:       recurring,
		Reports:         reports,
		Reconciler:      reconciler,
		Lister:          records,
		Exporter:        memory.New(),
		DefaultTimezone: "UTC",
		Logger:          logger,
	})
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})
	return s, aggregates
}

func doRequest(s *Server, method, path, userID, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		r.Header.Set(headerUserID, userID)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, r)
	return rec
}

func TestServer_AddTransaction(t *testing.T) {
	s, aggregates := newTestServer(t)

	rec := doRequest(s, "POST", "/api/transactions", "user-1",
		`{"amount":"12.50","type":"expense","category":"groceries","payment_mode":"card"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	var resp transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ID == "" || resp.Amount != "12.50" || resp.Date != "2024-04-15" {
		t.Errorf("response = %+v", resp)
	}

	if got := aggregates.monthly["user-1/2024-04/expense"]; got != 1250 {
		t.Errorf("monthly expense = %d, want 1250", got)
	}
}

func TestServer_AddTransaction_Rejections(t *testing.T) {
	s, _ := newTestServer(t)

	t.Run("missing user header", func(t *testing.T) {
		rec := doRequest(s, "POST", "/api/transactions", "",
			`{"amount":"12.50","type":"expense","category":"groceries","payment_mode":"card"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := doRequest(s, "POST", "/api/transactions", "user-1", `{"amount":`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		rec := doRequest(s, "POST", "/api/transactions", "user-1",
			`{"amount":"12.50","type":"expense","category":"","payment_mode":"card"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestServer_RemoveTransaction_NotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, "DELETE", "/api/transactions/nope", "user-1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServer_TransactionLifecycle(t *testing.T) {
	s, aggregates := newTestServer(t)

	rec := doRequest(s, "POST", "/api/transactions", "user-1",
		`{"amount":"30.00","type":"expense","category":"transport","payment_mode":"cash"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec = doRequest(s, "PUT", "/api/transactions/"+created.ID, "user-1",
		`{"amount":"45.00","type":"expense","category":"transport","payment_mode":"cash"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("edit status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := aggregates.monthly["user-1/2024-04/expense"]; got != 4500 {
		t.Errorf("monthly expense after edit = %d, want 4500", got)
	}

	rec = doRequest(s, "DELETE", "/api/transactions/"+created.ID, "user-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if got := aggregates.monthly["user-1/2024-04/expense"]; got != 0 {
		t.Errorf("monthly expense after delete = %d, want 0", got)
	}
}

func TestServer_RecurringDoneAndSkip(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, "POST", "/api/recurring", "user-1",
		`{"amount":"900.00","type":"expense","category":"housing","payment_mode":"bank","occurrence":"month","interval":1,"execution_date":"2024-04-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var tpl templateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tpl); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec = doRequest(s, "GET", "/api/recurring/overdue", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("overdue status = %d", rec.Code)
	}
	var list templateListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list.Templates) != 1 {
		t.Fatalf("overdue templates = %d, want 1", len(list.Templates))
	}

	rec = doRequest(s, "POST", "/api/recurring/"+tpl.ID+"/done", "user-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("done status = %d", rec.Code)
	}

	rec = doRequest(s, "POST", "/api/recurring/"+tpl.ID+"/skip", "user-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("skip status = %d", rec.Code)
	}

	rec = doRequest(s, "POST", "/api/recurring/missing/done", "user-1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("done on missing template status = %d, want 404", rec.Code)
	}
}

func TestServer_Reports(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, "PUT", "/api/reports/2024-04/plan", "user-1", `{"budget":"1500.00"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set plan status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(s, "GET", "/api/reports/2024-04", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	var summary summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if summary.Budget != "1500.00" {
		t.Errorf("budget = %q, want 1500.00", summary.Budget)
	}

	rec = doRequest(s, "GET", "/api/reports/not-a-month", "user-1", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad month status = %d, want 400", rec.Code)
	}

	rec = doRequest(s, "POST", "/api/reports/2024-04/export", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}
	var exported map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &exported); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if exported["ref"] != "mem:1" {
		t.Errorf("ref = %q, want mem:1", exported["ref"])
	}

	rec = doRequest(s, "POST", "/api/reports/2024-04/recompute", "user-1", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("recompute status = %d, want 204", rec.Code)
	}
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, "GET", "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
}

type failingExporter struct{}

func (failingExporter) WriteMonthSummary(context.Context, string, time.Time, core.MonthSummary) (string, error) {
	return "", errors.New("sheet unavailable")
}

func TestHandlerErrorLogsCarryRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{
		Level:     slog.LevelInfo,
		Component: log.ComponentHTTP,
		Handler:   slog.NewTextHandler(&buf, nil),
	})
	clk := clock.NewResolverAt(func() time.Time {
		return time.Date(2024, 4, 15, 10, 30, 0, 0, time.UTC)
	})

	records := newStubRecords()
	aggregates := newStubAggregates()
	ledger := services.NewLedgerService(records, aggregates, clk, nil, logger)
	s := NewServer(":0", Options{
		Ledger:          ledger,
		Recurring:       services.NewRecurringService(newStubTemplates(), ledger, clk, logger),
		Reports:         services.NewReportService(aggregates, aggregates, clk),
		Reconciler:      services.NewReconciler(aggregates, logger),
		Lister:          records,
		Exporter:        failingExporter{},
		DefaultTimezone: "UTC",
		Logger:          logger,
	})
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})

	rec := doRequest(s, "POST", "/api/reports/2024-04/export", "user-1", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("export status = %d, want 502", rec.Code)
	}
	if !strings.Contains(buf.String(), "request_id=req_") {
		t.Errorf("export failure log missing request id:\n%s", buf.String())
	}
}
