package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "tagihan/internal/log"
	"tagihan/internal/middleware/trace"
	"tagihan/internal/services"
	"tagihan/internal/storage"
	"tagihan/internal/storage/memory"
)

var june10 = time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	return newTestServerWithStore(t, memory.New(), time.UTC, opts)
}

func newTestServerWithStore(t *testing.T, store storage.Store, loc *time.Location, opts Options) *Server {
	t.Helper()
	n := 0
	svc := services.NewDebtService(store,
		services.WithClock(func() time.Time { return june10 }),
		services.WithLocation(loc),
		services.WithIDGenerator(func() string {
			n++
			return "id-" + string(rune('0'+n))
		}),
	)
	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = 1000
	}
	opts.Logger = applog.New(applog.Config{Output: io.Discard, Component: applog.ComponentHTTP})
	srv := NewServer(":0", svc, opts)
	t.Cleanup(srv.limiter.Stop)
	return srv
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.7:51234"
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createCard(t *testing.T, srv *Server, name string, dueDay int) string {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/cards", map[string]any{
		"bank_name":     "BCA",
		"card_name":     name,
		"last4_digits":  "1234",
		"credit_limit":  "20000000",
		"billing_day":   25,
		"due_day":       dueDay,
		"interest_rate": "1.75",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[map[string]any](t, rec)["id"].(string)
}

func TestCardEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	id := createCard(t, srv, "Everyday", 12)
	assert.Equal(t, "id-1", id)

	rec := do(t, srv, http.MethodGet, "/api/cards", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cards := decodeBody[[]map[string]any](t, rec)
	require.Len(t, cards, 1)
	assert.Equal(t, "Everyday", cards[0]["card_name"])
	assert.Equal(t, "20000000", cards[0]["credit_limit"])

	rec = do(t, srv, http.MethodGet, "/api/cards/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "0", summary["outstanding_balance"])
	assert.Equal(t, "2025-06-12", summary["next_due_date"])

	rec = do(t, srv, http.MethodPut, "/api/cards/"+id, map[string]any{
		"card_name":    "Travel",
		"credit_limit": "10000000",
		"billing_day":  1,
		"due_day":      20,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Travel", decodeBody[map[string]any](t, rec)["card_name"])

	rec = do(t, srv, http.MethodDelete, "/api/cards/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/cards/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestErrors(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{name: "malformed json", method: http.MethodPost, path: "/api/cards", body: `{"card_name":`, status: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: "/api/cards", body: `{"card_name":"x","colour":"red"}`, status: http.StatusBadRequest},
		{name: "trailing data", method: http.MethodPost, path: "/api/cards", body: `{"card_name":"x"} {}`, status: http.StatusBadRequest},
		{name: "bad amount", method: http.MethodPost, path: "/api/installments/simulate",
			body: map[string]any{"convention": "flat", "amount": "-10", "tenor": 3}, status: http.StatusUnprocessableEntity},
		{name: "unknown card", method: http.MethodGet, path: "/api/cards/missing/transactions", status: http.StatusNotFound},
		{name: "unknown transaction", method: http.MethodDelete, path: "/api/transactions/missing", status: http.StatusNotFound},
		{name: "unknown route", method: http.MethodGet, path: "/api/nothing", status: http.StatusNotFound},
		{name: "wrong method", method: http.MethodPatch, path: "/api/dashboard", status: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
		})
	}
}

func TestValidationDetails(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/api/cards", map[string]any{
		"credit_limit": "1000",
		"billing_day":  1,
		"due_day":      0,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody[errorResponse](t, rec)
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Details, "card_name")
	assert.Contains(t, body.Details, "due_day")
}

func TestEnumValidation(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodPost, "/api/installments/simulate", map[string]any{
		"convention": "balloon",
		"amount":     "1000",
		"tenor":      3,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, "failed 'convention' validation", decodeBody[errorResponse](t, rec).Details["convention"])

	rec = do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"card_id":     "any",
		"description": "Flight",
		"amount":      "1000",
		"category":    "travel",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, "failed 'category' validation", decodeBody[errorResponse](t, rec).Details["category"])

	rec = do(t, srv, http.MethodPost, "/api/installments/simulate", map[string]any{
		"convention":   "annuity",
		"amount":       "1000",
		"rate_percent": "0",
		"tenor":        3,
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUnsupportedContentType(t *testing.T) {
	srv := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/cards", bytes.NewBufferString("card_name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestTransactionsAndPayments(t *testing.T) {
	srv := newTestServer(t, Options{})
	cardID := createCard(t, srv, "Everyday", 12)

	rec := do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"card_id":     cardID,
		"description": "Groceries",
		"amount":      "250000",
		"category":    "food",
		"date":        "2025-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "unpaid", tx["status"])
	assert.Equal(t, "2025-06-01", tx["date"])

	rec = do(t, srv, http.MethodPost, "/api/cards/"+cardID+"/payments", map[string]any{"amount": "100000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pay := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "payment", pay["category"])
	assert.Equal(t, "2025-06-10", pay["date"])

	rec = do(t, srv, http.MethodGet, "/api/cards/"+cardID+"/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]map[string]any](t, rec), 1)

	rec = do(t, srv, http.MethodGet, "/api/transactions?card_id="+cardID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]map[string]any](t, rec), 2)

	rec = do(t, srv, http.MethodGet, "/api/cards/"+cardID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "150000", decodeBody[map[string]any](t, rec)["outstanding_balance"])

	rec = do(t, srv, http.MethodPatch, "/api/transactions/"+tx["id"].(string), map[string]any{"status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "paid", decodeBody[map[string]any](t, rec)["status"])

	rec = do(t, srv, http.MethodPatch, "/api/transactions/"+tx["id"].(string), map[string]any{"status": "pending"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/transactions/"+tx["id"].(string), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTransactionDatesInLocalZone(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tagihan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	wib := time.FixedZone("WIB", 7*60*60)
	srv := newTestServerWithStore(t, repo, wib, Options{})
	cardID := createCard(t, srv, "Everyday", 12)

	rec := do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"card_id":     cardID,
		"description": "Lunch",
		"amount":      "45000",
		"category":    "food",
		"date":        "2025-06-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/transactions?card_id="+cardID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txs := decodeBody[[]map[string]any](t, rec)
	require.Len(t, txs, 1)
	assert.Equal(t, "2025-06-10", txs[0]["date"])
}

func TestOversizedBody(t *testing.T) {
	srv := newTestServer(t, Options{})

	body := `{"card_name":"` + strings.Repeat("a", maxBodyBytes+1) + `"}`
	rec := do(t, srv, http.MethodPost, "/api/cards", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

func TestNameSuggestions(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := do(t, srv, http.MethodGet, "/api/names/banks?q=mandiri", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	banks := decodeBody[map[string][]string](t, rec)
	assert.Equal(t, []string{"Bank Mandiri"}, banks["suggestions"])

	rec = do(t, srv, http.MethodGet, "/api/names/cards?bank=BCA&q=everyday", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cards := decodeBody[map[string][]string](t, rec)
	assert.Equal(t, []string{"BCA Everyday Card"}, cards["suggestions"])

	rec = do(t, srv, http.MethodGet, "/api/names/cards?q=gold", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"suggestions":[]}`, rec.Body.String())
}

func TestInstallmentEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})
	cardID := createCard(t, srv, "Everyday", 12)

	rec := do(t, srv, http.MethodPost, "/api/installments/simulate", map[string]any{
		"convention":   "flat",
		"amount":       "5000000",
		"rate_percent": "21",
		"tenor":        12,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sim := decodeBody[simulationViewJSON](t, rec)
	assert.Equal(t, "504167", sim.Plan.MonthlyInstallment)
	assert.Equal(t, "1050000", sim.Plan.TotalInterest)
	assert.Len(t, sim.Plan.Schedule, 12)
	assert.Empty(t, sim.Advice)

	rec = do(t, srv, http.MethodPost, "/api/installments/apply", map[string]any{
		"card_id":      cardID,
		"description":  "Laptop",
		"convention":   "annuity",
		"amount":       "1000000",
		"rate_percent": "21",
		"rate_unit":    "annual",
		"tenor":        6,
		"with_advice":  true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var applied struct {
		Transaction map[string]any     `json:"transaction"`
		Simulation  simulationViewJSON `json:"simulation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &applied))
	assert.Equal(t, "Installment: Laptop", applied.Transaction["description"])
	assert.Equal(t, "1000000", applied.Transaction["amount"])
	assert.Equal(t, "177023", applied.Simulation.Plan.MonthlyInstallment)
	assert.NotEmpty(t, applied.Simulation.Advice)

	rec = do(t, srv, http.MethodPost, "/api/installments/apply", map[string]any{
		"card_id":     "missing",
		"description": "Laptop",
		"convention":  "flat",
		"amount":      "1000000",
		"tenor":       3,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/installments/suggestions", map[string]any{
		"convention":   "flat",
		"amount":       "5000000",
		"rate_percent": "21",
		"tenors":       []int{3, 6, 12},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var suggestions []struct {
		Plan     planViewJSON `json:"plan"`
		Cheapest bool         `json:"cheapest"`
		Lightest bool         `json:"lightest"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suggestions))
	require.Len(t, suggestions, 3)
	assert.True(t, suggestions[0].Cheapest)
	assert.False(t, suggestions[0].Lightest)
	assert.True(t, suggestions[2].Lightest)
	assert.Equal(t, 12, suggestions[2].Plan.Tenor)
}

type planViewJSON struct {
	Tenor              int              `json:"tenor"`
	MonthlyInstallment string           `json:"monthly_installment"`
	TotalInterest      string           `json:"total_interest"`
	Schedule           []map[string]any `json:"schedule"`
}

type simulationViewJSON struct {
	Plan   planViewJSON `json:"plan"`
	Advice string       `json:"advice"`
}

func TestDashboardAndReminders(t *testing.T) {
	srv := newTestServer(t, Options{})
	late := createCard(t, srv, "Late", 5)
	soon := createCard(t, srv, "Soon", 12)
	for _, id := range []string{late, soon} {
		rec := do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
			"card_id":     id,
			"description": "Hotel",
			"amount":      "1500000",
			"category":    "entertainment",
			"date":        "2025-06-01",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := do(t, srv, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "3000000", dash["total_debt"])
	assert.Equal(t, "40000000", dash["total_limit"])
	assert.Equal(t, "2025-06-12", dash["nearest_due_date"])
	assert.Equal(t, soon, dash["nearest_due_card_id"])

	rec = do(t, srv, http.MethodGet, "/api/reminders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bills struct {
		Overdue  []billView `json:"overdue"`
		Upcoming []billView `json:"upcoming"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bills))
	require.Len(t, bills.Overdue, 1)
	require.Len(t, bills.Upcoming, 1)
	assert.Equal(t, late, bills.Overdue[0].CardID)
	assert.Equal(t, -5, bills.Overdue[0].DaysUntilDue)
	assert.Equal(t, soon, bills.Upcoming[0].CardID)
	assert.Equal(t, 2, bills.Upcoming[0].DaysUntilDue)
}

func TestHealthAndReadiness(t *testing.T) {
	ready := errors.New("database unavailable")
	srv := newTestServer(t, Options{Ready: func(context.Context) error { return ready }})

	rec := do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ready = nil
	rec = do(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareHeaders(t *testing.T) {
	srv := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
	req.Header.Set(trace.RequestIDHeader, "client-42")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-42", rec.Header().Get(trace.RequestIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = do(t, srv, http.MethodGet, "/api/cards?q=../../etc/passwd", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		rec := do(t, srv, http.MethodGet, "/api/cards", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, srv, http.MethodGet, "/api/cards", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Health checks sit outside the limited group.
	rec = do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
