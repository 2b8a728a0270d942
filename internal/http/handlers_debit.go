package http

import (
	"net/http"

	"catorcena/internal/core"
	applog "catorcena/internal/log"
	"catorcena/internal/services"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// asOfDate reads ?asOf=, defaulting to today.
func (s *Server) asOfDate(r *http.Request) (core.Date, error) {
	asOf, err := parseDate(r.URL.Query(), "asOf")
	if err != nil {
		return core.Date{}, err
	}
	if asOf.IsEmpty() {
		asOf = s.svc.Today()
	}
	return asOf, nil
}

func dateFilter(r *http.Request) (services.DateFilter, error) {
	q := r.URL.Query()
	from, err := parseDate(q, "from")
	if err != nil {
		return services.DateFilter{}, err
	}
	to, err := parseDate(q, "to")
	if err != nil {
		return services.DateFilter{}, err
	}
	if !from.IsEmpty() && !to.IsEmpty() && to.Before(from) {
		return services.DateFilter{}, badRequest("to is before from")
	}
	return services.DateFilter{From: from, To: to}, nil
}

func (s *Server) handleDebitSeries(w http.ResponseWriter, r *http.Request) {
	asOf, err := s.asOfDate(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	filter, err := dateFilter(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	series, err := s.svc.DebitSeries(r.Context(), mux.Vars(r)["id"], asOf, filter)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

type settleResponse struct {
	AccountID string            `json:"account_id"`
	Entries   []core.YieldEntry `json:"entries"`
}

func (s *Server) handleSettleYield(w http.ResponseWriter, r *http.Request) {
	asOf, err := s.asOfDate(r)
	if err != nil {
		writeError(w, r, applog.OpSettle, err)
		return
	}
	id := mux.Vars(r)["id"]
	entries, err := s.svc.SettleYield(r.Context(), id, asOf)
	if err != nil {
		writeError(w, r, applog.OpSettle, err)
		return
	}
	if entries == nil {
		entries = []core.YieldEntry{}
	}
	writeJSON(w, http.StatusOK, settleResponse{AccountID: id, Entries: entries})
}

type projectionResponse struct {
	Balance   decimal.Decimal `json:"balance"`
	Rate      decimal.Decimal `json:"annual_rate_percent"`
	From      core.Date       `json:"from"`
	Target    core.Date       `json:"target"`
	Projected decimal.Decimal `json:"projected"`
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	balance, err := parseDecimal(q, "balance")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	rate, err := parseDecimal(q, "rate")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	if rate.IsNegative() {
		writeError(w, r, applog.OpRead, badRequest("negative rate"))
		return
	}
	target, err := parseDate(q, "target")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	if target.IsEmpty() {
		writeError(w, r, applog.OpRead, badRequest("missing target"))
		return
	}
	today := s.svc.Today()
	writeJSON(w, http.StatusOK, projectionResponse{
		Balance:   balance,
		Rate:      rate,
		From:      today,
		Target:    target,
		Projected: services.ProjectCompound(balance, rate, today, target),
	})
}
