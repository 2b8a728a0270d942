package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"catorcena/internal/core"
	applog "catorcena/internal/log"
	"catorcena/internal/services"
	"catorcena/internal/sheets/csv"

	"github.com/gorilla/mux"
)

func (s *Server) handleYear(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r.URL.Query(), s.svc.Today())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	ys, err := s.svc.YearSummary(r.Context(), year)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, ys)
}

func (s *Server) handlePeriod(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r.URL.Query(), s.svc.Today())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	index, err := intVar(r, "index")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	ps, err := s.svc.PeriodSummary(r.Context(), year, index)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

type togglePaidResponse struct {
	core.PaidKey
	Paid bool `json:"paid"`
}

func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request) {
	var key core.PaidKey
	if err := decodeJSON(r, &key); err != nil {
		writeError(w, r, applog.OpToggle, err)
		return
	}
	paid, err := s.svc.TogglePaid(r.Context(), key)
	if err != nil {
		writeError(w, r, applog.OpToggle, err)
		return
	}
	writeJSON(w, http.StatusOK, togglePaidResponse{PaidKey: key, Paid: paid})
}

func (s *Server) handleInstallments(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.svc.InstallmentStatuses(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	if statuses == nil {
		statuses = []services.InstallmentStatus{}
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r.URL.Query(), s.svc.Today())
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	ys, err := s.svc.YearSummary(r.Context(), year)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}

	// Encode fully before writing so a failure can still become a 500.
	var buf bytes.Buffer
	if err := csv.Encode(&buf, services.ExportRows(ys.Periods)); err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="catorcenas-%d.csv"`, year))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handlePublishExport(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "export queue not configured"})
		return
	}
	year, err := parseYear(r.URL.Query(), s.svc.Today())
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	if err := s.publisher.PublishExportRequest(r.Context(), year); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Export request not queued",
			applog.FieldYear, year,
			applog.FieldError, err.Error())
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "export queue unavailable"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"year": strconv.Itoa(year), "status": "queued"})
}
