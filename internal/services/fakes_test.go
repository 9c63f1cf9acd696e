package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"moneta/internal/core"
)

// In-memory collaborators for engine tests. They record every issued delta so
// assertions can count operations, not just inspect end state.

type fakeRecords struct {
	mu        sync.Mutex
	txs       map[string]core.Transaction
	createErr error
	updateErr error
	deleteErr error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{txs: map[string]core.Transaction{}}
}

func (f *fakeRecords) CreateTransaction(_ context.Context, tx core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.txs[tx.ID] = tx
	return nil
}

func (f *fakeRecords) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[id]
	if !ok || tx.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (f *fakeRecords) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.txs[tx.ID]; !ok {
		return core.ErrNotFound
	}
	f.txs[tx.ID] = tx
	return nil
}

func (f *fakeRecords) DeleteTransaction(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	tx, ok := f.txs[id]
	if !ok || tx.UserID != userID {
		return core.ErrNotFound
	}
	delete(f.txs, id)
	return nil
}

func (f *fakeRecords) only() core.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.txs {
		return tx
	}
	return core.Transaction{}
}

type fakeAggregates struct {
	mu       sync.Mutex
	monthly  map[string]int64
	category map[string]int64
	mode     map[string]int64
	ops      int
	failOn   string // substring of the key that should fail
	failErr  error
}

func newFakeAggregates() *fakeAggregates {
	return &fakeAggregates{
		monthly:  map[string]int64{},
		category: map[string]int64{},
		mode:     map[string]int64{},
	}
}

func monthKey(month time.Time, parts ...string) string {
	key := month.Format("2006-01")
	for _, p := range parts {
		key += "/" + p
	}
	return key
}

func (f *fakeAggregates) apply(dst map[string]int64, key string, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops++
	if f.failOn != "" && strings.Contains(key, f.failOn) {
		return f.failErr
	}
	dst[key] += delta
	return nil
}

func (f *fakeAggregates) ApplyMonthlyDelta(_ context.Context, _ string, month time.Time, typ core.TransactionType, delta int64) error {
	return f.apply(f.monthly, monthKey(month, string(typ)), delta)
}

func (f *fakeAggregates) ApplyCategoryDelta(_ context.Context, _ string, month time.Time, typ core.TransactionType, category string, delta int64) error {
	return f.apply(f.category, monthKey(month, string(typ), category), delta)
}

func (f *fakeAggregates) ApplyPaymentModeDelta(_ context.Context, _ string, month time.Time, typ core.TransactionType, paymentMode string, delta int64) error {
	return f.apply(f.mode, monthKey(month, string(typ), paymentMode), delta)
}

func (f *fakeAggregates) opCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ops
}

func (f *fakeAggregates) snapshot() (monthly, category, mode map[string]int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneMap(f.monthly), cloneMap(f.category), cloneMap(f.mode)
}

func cloneMap(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func nonZero(m map[string]int64) map[string]int64 {
	out := map[string]int64{}
	for k, v := range m {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

type fakeTemplates struct {
	mu            sync.Mutex
	rts           map[string]core.RecurringTemplate
	rescheduleErr error
}

func newFakeTemplates() *fakeTemplates {
	return &fakeTemplates{rts: map[string]core.RecurringTemplate{}}
}

func (f *fakeTemplates) CreateTemplate(_ context.Context, rt core.RecurringTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rts[rt.ID] = rt
	return nil
}

func (f *fakeTemplates) GetTemplate(_ context.Context, userID, id string) (core.RecurringTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.rts[id]
	if !ok || rt.UserID != userID {
		return core.RecurringTemplate{}, core.ErrNotFound
	}
	return rt, nil
}

func (f *fakeTemplates) RescheduleTemplate(_ context.Context, userID, id string, executionDate time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rescheduleErr != nil {
		return f.rescheduleErr
	}
	rt, ok := f.rts[id]
	if !ok || rt.UserID != userID {
		return core.ErrNotFound
	}
	rt.ExecutionDate = executionDate
	rt.IsNotified = false
	f.rts[id] = rt
	return nil
}

func (f *fakeTemplates) DeleteTemplate(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.rts[id]
	if !ok || rt.UserID != userID {
		return core.ErrNotFound
	}
	delete(f.rts, id)
	return nil
}

func (f *fakeTemplates) ListTemplatesDueBefore(_ context.Context, userID string, date time.Time) ([]core.RecurringTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.RecurringTemplate
	for _, rt := range f.rts {
		if rt.UserID == userID && rt.ExecutionDate.Before(date) {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (f *fakeTemplates) ListTemplatesDueBetween(_ context.Context, userID string, from, to time.Time) ([]core.RecurringTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.RecurringTemplate
	for _, rt := range f.rts {
		if rt.UserID == userID && !rt.ExecutionDate.Before(from) && !rt.ExecutionDate.After(to) {
			out = append(out, rt)
		}
	}
	return out, nil
}

var errBoom = fmt.Errorf("boom")
