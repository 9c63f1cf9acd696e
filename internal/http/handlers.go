package http

import (
	"net/http"
	"strings"

	"moneta/internal/core"
	"moneta/internal/log"
)

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	userID, timezone, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.ledger.AddTransaction(r.Context(), userID, timezone, in)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Add transaction failed",
			log.FieldRequestID, requestIDFrom(r.Context()),
			log.FieldUserID, userID, log.FieldError, err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newTransactionResponse(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	month, err := parseMonth(strings.TrimSpace(r.URL.Query().Get("month")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.lister.ListTransactionsByMonth(r.Context(), userID, month)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := transactionListResponse{Transactions: make([]transactionResponse, 0, len(txs))}
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, newTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	userID, timezone, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	found, err := s.ledger.EditTransaction(r.Context(), userID, r.PathValue("id"), in, timezone)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Edit transaction failed",
			log.FieldRequestID, requestIDFrom(r.Context()),
			log.FieldUserID, userID,
			log.FieldTransactionID, r.PathValue("id"),
			log.FieldError, err)
		writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveTransaction(w http.ResponseWriter, r *http.Request) {
	userID, timezone, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	found, err := s.ledger.RemoveTransaction(r.Context(), userID, r.PathValue("id"), timezone)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	userID, timezone, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rt, err := req.toTemplate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.recurring.CreateTemplate(r.Context(), userID, timezone, rt)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTemplateResponse(created))
}

func (s *Server) handleOverdue(w http.ResponseWriter, r *http.Request) {
	userID, timezone, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	templates, err := s.recurring.Overdue(r.Context(), userID, timezone)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTemplateListResponse(templates))
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	userID, timezone, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	templates, err := s.recurring.Upcoming(r.Context(), userID, timezone)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTemplateListResponse(templates))
}

func (s *Server) handleMarkDone(w http.ResponseWriter, r *http.Request) {
	userID, timezone, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	found, err := s.recurring.MarkDone(r.Context(), userID, timezone, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	userID, _, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	found, err := s.recurring.Skip(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	userID, _, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	found, err := s.recurring.DeleteTemplate(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCurrentSummary(w http.ResponseWriter, r *http.Request) {
	userID, timezone, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	summary, err := s.reports.CurrentMonthSummary(r.Context(), userID, timezone)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse("current", summary))
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	userID, _, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	month, err := parseMonth(r.PathValue("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.reports.MonthSummary(r.Context(), userID, month)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(month.Format(monthLayout), summary))
}

func (s *Server) handleSetPlan(w http.ResponseWriter, r *http.Request) {
	userID, _, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	month, err := parseMonth(r.PathValue("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pv, err := req.toPlanningValues()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.reports.SetMonthlyPlan(r.Context(), userID, month, pv); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetCategoryBudget(w http.ResponseWriter, r *http.Request) {
	userID, _, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	month, err := parseMonth(r.PathValue("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	category := strings.TrimSpace(r.PathValue("category"))
	if category == "" {
		writeError(w, http.StatusBadRequest, core.ErrEmptyCategory.Error())
		return
	}

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cents, err := core.ParseDecimalToCents(req.Budget)
	if err != nil {
		writeError(w, http.StatusBadRequest, "budget: "+err.Error())
		return
	}

	if err := s.reports.SetCategoryBudget(r.Context(), userID, month, category, core.Money{Cents: cents}); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	userID, _, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	month, err := parseMonth(r.PathValue("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.reconciler.RecomputeMonth(r.Context(), userID, month); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	userID, _, err := s.identity(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export not configured")
		return
	}

	month, err := parseMonth(r.PathValue("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.reports.MonthSummary(r.Context(), userID, month)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	ref, err := s.exporter.WriteMonthSummary(r.Context(), userID, month, summary)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Month export failed",
			log.FieldRequestID, requestIDFrom(r.Context()),
			log.FieldUserID, userID,
			log.FieldMonth, month.Format(monthLayout),
			log.FieldError, err)
		writeError(w, http.StatusBadGateway, "export failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"ref": ref})
}
