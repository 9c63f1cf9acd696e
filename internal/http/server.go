// Package http exposes the ledger over a JSON API. Callers identify
// themselves with the X-User-ID header and may override the configured
// timezone per request with X-Timezone.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/services"
	"moneta/internal/sheets"
)

// TransactionLister serves the raw transaction list for a user-month.
type TransactionLister interface {
	ListTransactionsByMonth(ctx context.Context, userID string, monthStart time.Time) ([]core.Transaction, error)
}

type Server struct {
	http.Server

	ledger     *services.LedgerService
	recurring  *services.RecurringService
	reports    *services.ReportService
	reconciler *services.Reconciler
	lister     TransactionLister
	exporter   sheets.SummaryWriter

	defaultTimezone string
	rateLimiter     *rateLimiter
	logger          *log.Logger
	shutdownOnce    sync.Once
}

// Options carries the collaborators the server routes to. Exporter may be
// nil, which disables the export endpoint.
type Options struct {
	Ledger          *services.LedgerService
	Recurring       *services.RecurringService
	Reports         *services.ReportService
	Reconciler      *services.Reconciler
	Lister          TransactionLister
	Exporter        sheets.SummaryWriter
	DefaultTimezone string
	Logger          *log.Logger
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	mux := http.NewServeMux()

	tz := opts.DefaultTimezone
	if tz == "" {
		tz = "UTC"
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:          opts.Ledger,
		recurring:       opts.Recurring,
		reports:         opts.Reports,
		reconciler:      opts.Reconciler,
		lister:          opts.Lister,
		exporter:        opts.Exporter,
		defaultTimezone: tz,
		rateLimiter:     newRateLimiter(),
		logger:          opts.Logger.WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/transactions", s.withMiddleware(s.handleAddTransaction))
	mux.HandleFunc("GET /api/transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withMiddleware(s.handleEditTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withMiddleware(s.handleRemoveTransaction))

	mux.HandleFunc("POST /api/recurring", s.withMiddleware(s.handleCreateTemplate))
	mux.HandleFunc("GET /api/recurring/overdue", s.withMiddleware(s.handleOverdue))
	mux.HandleFunc("GET /api/recurring/upcoming", s.withMiddleware(s.handleUpcoming))
	mux.HandleFunc("POST /api/recurring/{id}/done", s.withMiddleware(s.handleMarkDone))
	mux.HandleFunc("POST /api/recurring/{id}/skip", s.withMiddleware(s.handleSkip))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.withMiddleware(s.handleDeleteTemplate))

	mux.HandleFunc("GET /api/reports/current", s.withMiddleware(s.handleCurrentSummary))
	mux.HandleFunc("GET /api/reports/{month}", s.withMiddleware(s.handleMonthSummary))
	mux.HandleFunc("PUT /api/reports/{month}/plan", s.withMiddleware(s.handleSetPlan))
	mux.HandleFunc("PUT /api/reports/{month}/budgets/{category}", s.withMiddleware(s.handleSetCategoryBudget))
	mux.HandleFunc("POST /api/reports/{month}/recompute", s.withMiddleware(s.handleRecompute))
	mux.HandleFunc("POST /api/reports/{month}/export", s.withMiddleware(s.handleExport))

	return s
}

// withMiddleware adds request IDs, request logging, rate limiting on writes,
// and baseline security headers.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// requestIDFrom returns the request ID stamped by withMiddleware, or an
// empty string for contexts that never passed through it.
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops the rate limiter cleanup goroutine and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
