package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"catorcena/internal/core"
	applog "catorcena/internal/log"
	"catorcena/internal/services"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// validationErrors are the sentinel errors that describe a bad record.
var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidWeekday,
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrInvalidKind,
	core.ErrInvalidCard,
	core.ErrInvalidInstallmentPlan,
	core.ErrInvalidYieldConfig,
	core.ErrInvalidRecurrenceConfig,
	services.ErrInvalidPaidKey,
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// writeError maps err to a status and writes it. Server errors are logged
// and their details withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		applog.NewStructuredLogger(nil).LogError(r.Context(), "Request failed", err, op, nil)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}
