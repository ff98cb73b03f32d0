package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"FinTrader/internal/domain/models"
	"FinTrader/internal/middleware"
	"FinTrader/internal/services/cache"
	"FinTrader/internal/services/narrative"
	"FinTrader/internal/services/portfolio"
	"FinTrader/internal/services/ratelimit"
	"FinTrader/internal/services/risk"
	"FinTrader/internal/services/scoring"
	"FinTrader/internal/usecase"
	"FinTrader/pkg/config"
	xlogger "FinTrader/pkg/logger"
)

type nopPublisher struct{}

func (nopPublisher) PublishSignal(context.Context, *models.Signal) error { return nil }

func (nopPublisher) PublishOrder(context.Context, string, *models.Order) error { return nil }

func (nopPublisher) PublishClose(context.Context, *models.ClosedPosition) error { return nil }

func (nopPublisher) Close() error { return nil }

type memStore struct {
	closed []*models.ClosedPosition
}

func (m *memStore) Init(context.Context) error { return nil }

func (m *memStore) StoreClosed(_ context.Context, cp *models.ClosedPosition) error {
	m.closed = append(m.closed, cp)
	return nil
}

func (m *memStore) StoreDecision(context.Context, *models.Signal, *models.Order) error {
	return nil
}

func (m *memStore) QueryClosed(_ context.Context, symbol string, _, _ time.Time, limit int) ([]*models.ClosedPosition, error) {
	out := make([]*models.ClosedPosition, 0, len(m.closed))
	for _, cp := range m.closed {
		if symbol == "" || cp.Symbol == symbol {
			out = append(out, cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) Health(context.Context) error { return nil }
func (m *memStore) Close() error                 { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordSignal(string, string)     {}
func (nopMetrics) RecordDecision(string, string)   {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) SetOpenPositions(int)            {}
func (nopMetrics) SetPortfolioValue(float64)       {}
func (nopMetrics) AddRealizedPnL(float64)          {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}

func handlerConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Trading.InitialPortfolioValue = 100000
	cfg.Trading.Weights.Technical = 0.4
	cfg.Trading.Weights.Ownership = 0.3
	cfg.Trading.Weights.Sentiment = 0.2
	cfg.Trading.Weights.Risk = 0.1
	cfg.Trading.SignalThreshold = 0.6
	cfg.Trading.SentimentScoreGate = 0.3
	cfg.Trading.SentimentConfidenceGate = 0.6
	cfg.Risk.MaxPositionSize = 0.05
	cfg.Risk.MaxDailyLoss = 0.02
	cfg.Risk.StopLossPct = 0.03
	cfg.Risk.TakeProfitPct = 0.06
	cfg.Risk.MaxOpenPositions = 10
	cfg.Risk.MinVolume = 1_000_000
	cfg.Risk.MinConfidence = 0.6
	cfg.Risk.MinRiskReward = 1.5
	cfg.Risk.MaxHoldDays = 7
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "json"
	return cfg
}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newTestServer(t *testing.T) (*echo.Echo, *memStore, *portfolio.Portfolio) {
	t.Helper()
	cfg := handlerConfig()
	log := testLogger(t)

	book := portfolio.New(cfg, nil)
	store := &memStore{}
	metrics := nopMetrics{}

	evaluator := usecase.NewEvaluator(
		scoring.New(cfg, nil),
		risk.NewGate(cfg, book, nil),
		book,
		narrative.NewClient(cfg, nil, nil),
		nopPublisher{},
		store,
		metrics,
		nil,
	)
	updater := usecase.NewPositionUpdater(book, nopPublisher{}, store, metrics, nil)
	pipeline := middleware.NewTickPipeline(updater, metrics)

	h := NewTradingEchoHandler(log, evaluator, updater, pipeline, book, store,
		cache.NewMemory(), ratelimit.New(100, 100))

	e := echo.New()
	h.RegisterRoutes(e)
	return e, store, book
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const evaluateBody = `{
	"symbol": "AAPL",
	"price": 100,
	"volume": 5000000,
	"technical": {
		"oscillator_signal": "oversold",
		"trend": "bullish",
		"ma_trend": "bullish",
		"band_upper": 102,
		"band_lower": 98,
		"support": 90,
		"resistance": 120
	},
	"ownership": {"whale_count": 4, "total_held_pct": 75},
	"risk": {"risk_score": 4}
}`

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return env
}

func TestEvaluateEndpoint(t *testing.T) {
	e, _, book := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/evaluate", evaluateBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	var res struct {
		Signal struct {
			Direction  string  `json:"direction"`
			Confidence float64 `json:"confidence"`
		} `json:"signal"`
		Order *struct {
			Approved bool `json:"approved"`
		} `json:"order"`
	}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if res.Signal.Direction != "BUY" {
		t.Errorf("direction = %q, want BUY", res.Signal.Direction)
	}
	if res.Order == nil || !res.Order.Approved {
		t.Errorf("order not approved: %+v", res.Order)
	}
	if !book.HasOpenPosition("AAPL") {
		t.Errorf("no position opened")
	}
}

func TestEvaluateEndpointValidation(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/evaluate", `{"symbol":"","price":0}`)
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", env.Status)
	}
}

func TestTickAndCloseEndpoints(t *testing.T) {
	e, store, book := newTestServer(t)

	if rec := doJSON(t, e, http.MethodPost, "/api/evaluate", evaluateBody); rec.Code != http.StatusOK {
		t.Fatalf("evaluate status = %d", rec.Code)
	}

	// A tick inside the stop/take range leaves the position open.
	rec := doJSON(t, e, http.MethodPost, "/api/tick", `{"symbol":"AAPL","price":101,"volume":1000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("tick status = %d", rec.Code)
	}
	if !book.HasOpenPosition("AAPL") {
		t.Fatalf("in-range tick closed the position")
	}

	rec = doJSON(t, e, http.MethodPost, "/api/close", `{"symbol":"AAPL","price":103}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("close status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if book.HasOpenPosition("AAPL") {
		t.Errorf("position still open after manual close")
	}
	if len(store.closed) != 1 {
		t.Errorf("stored closed trades = %d, want 1", len(store.closed))
	}

	// Closing again reports not found in the envelope status.
	rec = doJSON(t, e, http.MethodPost, "/api/close", `{"symbol":"AAPL","price":103}`)
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", env.Status)
	}
}

func TestPortfolioAndPositionsEndpoints(t *testing.T) {
	e, _, _ := newTestServer(t)

	if rec := doJSON(t, e, http.MethodPost, "/api/evaluate", evaluateBody); rec.Code != http.StatusOK {
		t.Fatalf("evaluate status = %d", rec.Code)
	}

	rec := doJSON(t, e, http.MethodGet, "/api/portfolio", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("portfolio status = %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	var summary models.PortfolioSummary
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.OpenPositions != 1 || summary.TradesExecuted != 1 {
		t.Errorf("summary = %+v", summary)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/positions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("positions status = %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/risk", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("risk status = %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/daily", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("daily status = %d", rec.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	e, store, _ := newTestServer(t)
	store.closed = append(store.closed, &models.ClosedPosition{
		Symbol: "AAPL", Side: models.SideLong, PnL: 30, PnLPct: 2,
		ExitTime: time.Now().UTC(),
	})

	rec := doJSON(t, e, http.MethodGet, "/api/history?symbol=AAPL&limit=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d, body: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodGet, "/api/history?from=not-a-date", "")
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for bad from", env.Status)
	}
}

func TestEvaluateRateLimit(t *testing.T) {
	cfg := handlerConfig()
	log := testLogger(t)
	book := portfolio.New(cfg, nil)
	store := &memStore{}
	evaluator := usecase.NewEvaluator(
		scoring.New(cfg, nil),
		risk.NewGate(cfg, book, nil),
		book,
		narrative.NewClient(cfg, nil, nil),
		nopPublisher{},
		store,
		nopMetrics{},
		nil,
	)
	updater := usecase.NewPositionUpdater(book, nopPublisher{}, store, nopMetrics{}, nil)
	pipeline := middleware.NewTickPipeline(updater, nopMetrics{})

	// One-token bucket with no refill: the second request must be limited.
	h := NewTradingEchoHandler(log, evaluator, updater, pipeline, book, store,
		nil, ratelimit.New(1, 0))
	e := echo.New()
	h.RegisterRoutes(e)

	body := `{"symbol":"AAPL","price":100,"volume":5000000,"dry_run":true}`
	if rec := doJSON(t, e, http.MethodPost, "/api/evaluate", body); rec.Code != http.StatusOK {
		t.Fatalf("first evaluate status = %d", rec.Code)
	}

	rec := doJSON(t, e, http.MethodPost, "/api/evaluate", body)
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", env.Status)
	}
}
