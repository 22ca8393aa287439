// Package http exposes the debt tracker as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"tagihan/internal/amortization"
	"tagihan/internal/core"
	"tagihan/internal/ledger"
	applog "tagihan/internal/log"
	"tagihan/internal/middleware/ratelimit"
	"tagihan/internal/middleware/security"
	"tagihan/internal/middleware/trace"
	"tagihan/internal/services"
)

// DebtAPI is the service surface the handlers use.
type DebtAPI interface {
	Today() time.Time
	CreateCard(ctx context.Context, in services.CardInput) (core.Card, error)
	UpdateCard(ctx context.Context, id string, in services.CardInput) (core.Card, error)
	DeleteCard(ctx context.Context, id string) error
	ListCards(ctx context.Context) ([]core.Card, error)
	CardSummary(ctx context.Context, cardID string) (ledger.CardSummary, error)
	RecordTransaction(ctx context.Context, in services.TransactionInput) (core.Transaction, error)
	RecordPayment(ctx context.Context, cardID string, amount decimal.Decimal, date time.Time, note string) (core.Transaction, error)
	SetTransactionStatus(ctx context.Context, id string, status core.Status) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactions(ctx context.Context, cardID string) ([]core.Transaction, error)
	PaymentHistory(ctx context.Context, cardID string) ([]core.Transaction, error)
	Dashboard(ctx context.Context) (ledger.Portfolio, error)
	Bills(ctx context.Context) (ledger.Bills, error)
	SimulateInstallment(ctx context.Context, req services.PlanRequest) (services.Simulation, error)
	ApplyInstallment(ctx context.Context, req services.ApplyRequest) (core.Transaction, services.Simulation, error)
	SuggestPlans(ctx context.Context, req services.PlanRequest, tenors []int) ([]amortization.Suggestion, error)
	SuggestBankNames(ctx context.Context, query string) []string
	SuggestCardNames(ctx context.Context, bankName, query string) []string
}

var _ DebtAPI = (*services.DebtService)(nil)

type Options struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	Logger             *applog.Logger
	// Ready reports whether dependencies such as the database are usable.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	debts    DebtAPI
	ready    func(ctx context.Context) error
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, debts DebtAPI, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		debts:    debts,
		ready:    opts.Ready,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ClientIP)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(applog.Middleware(opts.Logger))
	r.Use(s.tracer.Middleware)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", trace.RequestIDHeader},
		ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		}))
		r.Use(middleware.Timeout(opts.RequestTimeout))
		r.Use(middleware.AllowContentType("application/json"))

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", s.handleListCards)
			r.Post("/", s.handleCreateCard)
			r.Route("/{cardID}", func(r chi.Router) {
				r.Get("/", s.handleGetCard)
				r.Put("/", s.handleUpdateCard)
				r.Delete("/", s.handleDeleteCard)
				r.Get("/transactions", s.handleCardTransactions)
				r.Get("/payments", s.handlePaymentHistory)
				r.Post("/payments", s.handleRecordPayment)
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Patch("/{txID}", s.handleSetStatus)
			r.Delete("/{txID}", s.handleDeleteTransaction)
		})

		r.Route("/installments", func(r chi.Router) {
			r.Post("/simulate", s.handleSimulate)
			r.Post("/apply", s.handleApply)
			r.Post("/suggestions", s.handleSuggestions)
		})

		r.Route("/names", func(r chi.Router) {
			r.Get("/banks", s.handleSuggestBankNames)
			r.Get("/cards", s.handleSuggestCardNames)
		})

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/reminders", s.handleReminders)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
