package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"moneta/internal/core"
)

// Export is one recorded WriteMonthSummary call.
type Export struct {
	UserID     string
	MonthStart time.Time
	Summary    core.MonthSummary
}

// Store is an in-memory summary writer for tests and local development.
type Store struct {
	mu      sync.Mutex
	exports []Export
}

func New() *Store {
	return &Store{}
}

// WriteMonthSummary records the export and returns a synthetic range
// reference.
func (s *Store) WriteMonthSummary(_ context.Context, userID string, monthStart time.Time, summary core.MonthSummary) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, Export{UserID: userID, MonthStart: monthStart, Summary: summary})
	return fmt.Sprintf("mem:%d", len(s.exports)), nil
}

// Exports returns a copy of everything written so far.
func (s *Store) Exports() []Export {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Export(nil), s.exports...)
}
