package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func bufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Component: component, Handler: slog.NewTextHandler(buf, nil)})
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf, ComponentHTTP)
	l.Info("hello")

	if !strings.Contains(buf.String(), "component=http") {
		t.Errorf("missing component in %q", buf.String())
	}
	if strings.Count(buf.String(), "component=") != 1 {
		t.Errorf("component logged more than once: %q", buf.String())
	}
	if sub := l.WithComponent(ComponentCache); sub.Component() != ComponentCache {
		t.Errorf("sub component = %s", sub.Component())
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithPeriod(2025, 3).
		WithItem("c1-0-0").
		WithRequestID("").
		WithError(nil)

	if f[FieldYear] != 2025 || f[FieldPeriodIndex] != 3 || f[FieldItemID] != "c1-0-0" {
		t.Errorf("unexpected fields %v", f)
	}
	if _, ok := f[FieldRequestID]; ok {
		t.Error("empty request id should be skipped")
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Error("slice should hold key/value pairs")
	}
}

func TestMiddleware_InjectsLogger(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf, ComponentHTTP)
	idFrom := func(context.Context) string { return "req_1" }

	h := Middleware(l, idFrom)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NewStructuredLogger(nil).LogError(r.Context(), "boom", errors.New("disk full"), OpCreate, NewFields().WithCard("c1"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/cards", nil))

	out := buf.String()
	for _, want := range []string{"request_id=req_1", "card_id=c1", `error="disk full"`, "operation=create"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %q", want, out)
		}
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Errorf("component = %s", l.Component())
	}
}
