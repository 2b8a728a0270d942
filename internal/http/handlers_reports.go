package http

import (
	"net/http"
	"strconv"

	applog "catorcena/internal/log"
	"catorcena/internal/services"
)

// withLedger loads a fresh ledger and hands it to render.
func (s *Server) withLedger(w http.ResponseWriter, r *http.Request, render func(services.Ledger) any) {
	ledger, err := s.svc.Ledger(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, render(ledger))
}

func (s *Server) handleRecurringReport(w http.ResponseWriter, r *http.Request) {
	s.withLedger(w, r, func(l services.Ledger) any {
		return services.RecurringExpenses(l)
	})
}

func (s *Server) handleInstallmentReport(w http.ResponseWriter, r *http.Request) {
	today := s.svc.Today()
	s.withLedger(w, r, func(l services.Ledger) any {
		return services.Installments(l, today)
	})
}

func (s *Server) handleInstallmentFlow(w http.ResponseWriter, r *http.Request) {
	s.withLedger(w, r, func(l services.Ledger) any {
		flow := services.MonthlyInstallmentFlow(l)
		if flow == nil {
			flow = []services.MonthAmount{}
		}
		return flow
	})
}

// handleExpenseMix includes debit accounts unless ?debit=false.
func (s *Server) handleExpenseMix(w http.ResponseWriter, r *http.Request) {
	includeDebit := true
	if v := r.URL.Query().Get("debit"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, applog.OpRead, badRequest("invalid debit %q", v))
			return
		}
		includeDebit = b
	}
	s.withLedger(w, r, func(l services.Ledger) any {
		return services.BuildExpenseMix(l, includeDebit)
	})
}

func (s *Server) handleExpenseReport(w http.ResponseWriter, r *http.Request) {
	filter, err := dateFilter(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	s.withLedger(w, r, func(l services.Ledger) any {
		return services.ExpensesInRange(l, filter)
	})
}
