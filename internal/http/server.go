package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	applog "catorcena/internal/log"
	"catorcena/internal/middleware/ratelimit"
	"catorcena/internal/middleware/security"
	"catorcena/internal/middleware/trace"
	"catorcena/internal/services"

	"github.com/gorilla/mux"
)

// ExportPublisher queues an asynchronous export of one year.
type ExportPublisher interface {
	PublishExportRequest(ctx context.Context, year int) error
}

type Server struct {
	http.Server
	svc       *services.PeriodService
	publisher ExportPublisher
	logger    *applog.Logger

	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter

	shutdownOnce sync.Once
}

// Options holds the optional collaborators of the server.
type Options struct {
	// Publisher enables POST /api/export. Nil disables it.
	Publisher ExportPublisher
	Logger    *slog.Logger
	RateLimit ratelimit.Config
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.PeriodService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	detector := security.NewDetector(logger)
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		svc:       svc,
		publisher: opts.Publisher,
		logger:    applog.Wrap(logger, applog.ComponentHTTP),
		tracer:    trace.NewMiddleware(detector.ExtractClientIP, logger),
		detector:  detector,
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()
	router.Use(
		s.tracer.Middleware,
		applog.Middleware(s.logger, trace.GetRequestID),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.detector.Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited),
	)

	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/periods", s.handleYear).Methods("GET")
	api.HandleFunc("/periods/{index:[0-9]+}", s.handlePeriod).Methods("GET")
	api.HandleFunc("/paid/toggle", s.handleTogglePaid).Methods("POST")

	api.HandleFunc("/cards", s.handleCreateCard).Methods("POST")
	api.HandleFunc("/cards/{id}", s.handleUpdateCard).Methods("PUT")
	api.HandleFunc("/cards/{id}", s.handleDeleteCard).Methods("DELETE")
	api.HandleFunc("/cards/{id}/charges", s.handleAddCharge).Methods("POST")
	api.HandleFunc("/cards/{id}/charges/{index:[0-9]+}", s.handleDeleteCharge).Methods("DELETE")
	api.HandleFunc("/cards/{id}/installments", s.handleInstallments).Methods("GET")

	api.HandleFunc("/movements", s.handleCreateMovement).Methods("POST")
	api.HandleFunc("/movements/{id}", s.handleUpdateMovement).Methods("PUT")
	api.HandleFunc("/movements/{id}", s.handleDeleteMovement).Methods("DELETE")

	api.HandleFunc("/debit", s.handleCreateDebitAccount).Methods("POST")
	api.HandleFunc("/debit/{id}", s.handleUpdateDebitAccount).Methods("PUT")
	api.HandleFunc("/debit/{id}", s.handleDeleteDebitAccount).Methods("DELETE")
	api.HandleFunc("/debit/{id}/movements", s.handleAddDebitMovement).Methods("POST")
	api.HandleFunc("/debit/{id}/movements/{movementID}", s.handleDeleteDebitMovement).Methods("DELETE")
	api.HandleFunc("/debit/{id}/yield", s.handleDebitSeries).Methods("GET")
	api.HandleFunc("/debit/{id}/yield/settle", s.handleSettleYield).Methods("POST")
	api.HandleFunc("/projection", s.handleProjection).Methods("GET")

	api.HandleFunc("/reports/recurring", s.handleRecurringReport).Methods("GET")
	api.HandleFunc("/reports/installments", s.handleInstallmentReport).Methods("GET")
	api.HandleFunc("/reports/installments/monthly", s.handleInstallmentFlow).Methods("GET")
	api.HandleFunc("/reports/mix", s.handleExpenseMix).Methods("GET")
	api.HandleFunc("/reports/expenses", s.handleExpenseReport).Methods("GET")

	api.HandleFunc("/export.csv", s.handleExportCSV).Methods("GET")
	api.HandleFunc("/export", s.handlePublishExport).Methods("POST")

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
