package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"catorcena/internal/core"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// errBadRequest marks malformed input that never reached validation.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decodeJSON reads one JSON value from the body into dst, rejecting unknown
// fields and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequest("unexpected data after JSON body")
	}
	return nil
}

// parseYear reads ?year=, defaulting to the year of today.
func parseYear(q url.Values, today core.Date) (int, error) {
	v := strings.TrimSpace(q.Get("year"))
	if v == "" {
		return today.Year(), nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1900 || y > 2999 {
		return 0, badRequest("invalid year %q", v)
	}
	return y, nil
}

// parseDate reads an optional YYYY-MM-DD query value; empty yields the zero Date.
func parseDate(q url.Values, name string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, badRequest("%s: %v", name, err)
	}
	return d, nil
}

func parseDecimal(q url.Values, name string) (decimal.Decimal, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return decimal.Zero, badRequest("missing %s", name)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, badRequest("invalid %s %q", name, v)
	}
	return d, nil
}

// intVar reads a numeric route variable. The route pattern guarantees digits.
func intVar(r *http.Request, name string) (int, error) {
	v := mux.Vars(r)[name]
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("invalid %s %q", name, v)
	}
	return n, nil
}
