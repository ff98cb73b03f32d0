package usecase

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"FinTrader/internal/domain/models"
	"FinTrader/internal/services/narrative"
	"FinTrader/internal/services/portfolio"
	"FinTrader/internal/services/risk"
	"FinTrader/internal/services/scoring"
	"FinTrader/pkg/config"
)

type fakePublisher struct {
	mu      sync.Mutex
	signals []*models.Signal
	orders  []*models.Order
	closes  []*models.ClosedPosition
}

func (f *fakePublisher) PublishSignal(_ context.Context, s *models.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, s)
	return nil
}

func (f *fakePublisher) PublishOrder(_ context.Context, _ string, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, o)
	return nil
}

func (f *fakePublisher) PublishClose(_ context.Context, cp *models.ClosedPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes = append(f.closes, cp)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeStore struct {
	mu        sync.Mutex
	decisions int
	closed    []*models.ClosedPosition
}

func (f *fakeStore) Init(context.Context) error { return nil }

func (f *fakeStore) StoreClosed(_ context.Context, cp *models.ClosedPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, cp)
	return nil
}

func (f *fakeStore) StoreDecision(_ context.Context, _ *models.Signal, _ *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions++
	return nil
}

func (f *fakeStore) QueryClosed(context.Context, string, time.Time, time.Time, int) ([]*models.ClosedPosition, error) {
	return nil, nil
}

func (f *fakeStore) Health(context.Context) error { return nil }
func (f *fakeStore) Close() error                 { return nil }

type fakeMetrics struct {
	mu        sync.Mutex
	decisions map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{decisions: make(map[string]int)}
}

func (f *fakeMetrics) RecordSignal(string, string) {}

func (f *fakeMetrics) RecordDecision(outcome, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions[outcome]++
}

func (f *fakeMetrics) RecordError(string)              {}
func (f *fakeMetrics) SetOpenPositions(int)            {}
func (f *fakeMetrics) SetPortfolioValue(float64)       {}
func (f *fakeMetrics) AddRealizedPnL(float64)          {}
func (f *fakeMetrics) RecordLastPrice(string, float64) {}
func (f *fakeMetrics) RecordLatency(string, float64)   {}

func evaluatorConfig() *config.Config {
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
	return cfg
}

type env struct {
	uc        *Evaluator
	book      *portfolio.Portfolio
	publisher *fakePublisher
	store     *fakeStore
	metrics   *fakeMetrics
}

func newEnv(t *testing.T, narrativeURL string) *env {
	t.Helper()
	cfg := evaluatorConfig()
	cfg.Narrative.ServiceURL = narrativeURL
	cfg.Narrative.Timeout = 2 * time.Second

	book := portfolio.New(cfg, nil)
	pub := &fakePublisher{}
	store := &fakeStore{}
	metrics := newFakeMetrics()
	uc := NewEvaluator(
		scoring.New(cfg, nil),
		risk.NewGate(cfg, book, nil),
		book,
		narrative.NewClient(cfg, nil, nil),
		pub,
		store,
		metrics,
		nil,
	)
	return &env{uc: uc, book: book, publisher: pub, store: store, metrics: metrics}
}

func bullishTechnical() *models.TechnicalSummary {
	return &models.TechnicalSummary{
		OscillatorSignal: models.SignalOversold,
		Trend:            models.TrendBullish,
		MATrend:          models.TrendBullish,
		BandUpper:        102,
		BandLower:        98,
		BandPosition:     models.BandMiddle,
		Support:          90,
		Resistance:       120,
	}
}

func bullishRequest() *models.EvaluateRequest {
	return &models.EvaluateRequest{
		Symbol:    "AAPL",
		Price:     100,
		Volume:    5_000_000,
		Technical: bullishTechnical(),
		Ownership: &models.OwnershipSummary{WhaleCount: 4, TotalHeldPct: 75},
		Risk:      &models.RiskNarrative{RiskScore: 4},
	}
}

func TestEvaluateHold(t *testing.T) {
	e := newEnv(t, "")
	req := &models.EvaluateRequest{
		Symbol: "AAPL",
		Price:  100,
		Volume: 5_000_000,
		Technical: &models.TechnicalSummary{
			OscillatorSignal: models.SignalNeutral,
			Trend:            models.TrendBullish,
		},
	}

	res, err := e.uc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Signal.Direction != models.DirectionHold {
		t.Fatalf("direction = %s, want HOLD", res.Signal.Direction)
	}
	if res.Order != nil {
		t.Errorf("HOLD produced an order: %+v", res.Order)
	}
	if len(e.publisher.signals) != 1 {
		t.Errorf("signals published = %d, want 1", len(e.publisher.signals))
	}
	if len(e.publisher.orders) != 0 {
		t.Errorf("orders published = %d, want 0 on HOLD", len(e.publisher.orders))
	}
	if e.metrics.decisions["hold"] != 1 {
		t.Errorf("hold decisions = %d, want 1", e.metrics.decisions["hold"])
	}
}

func TestEvaluateApprovedOpensPosition(t *testing.T) {
	e := newEnv(t, "")
	res, err := e.uc.Evaluate(context.Background(), bullishRequest())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if res.Signal.Direction != models.DirectionBuy {
		t.Fatalf("direction = %s, want BUY", res.Signal.Direction)
	}
	if res.Order == nil || !res.Order.Approved {
		t.Fatalf("order = %+v, want approved", res.Order)
	}
	if res.Position == nil {
		t.Fatalf("no position opened from approved order")
	}
	if !e.book.HasOpenPosition("AAPL") {
		t.Errorf("book has no open AAPL position")
	}
	if len(e.publisher.signals) != 1 || len(e.publisher.orders) != 1 {
		t.Errorf("published %d signals / %d orders, want 1/1",
			len(e.publisher.signals), len(e.publisher.orders))
	}
	if e.store.decisions != 1 {
		t.Errorf("stored decisions = %d, want 1", e.store.decisions)
	}
	if e.metrics.decisions["approved"] != 1 {
		t.Errorf("approved decisions = %d, want 1", e.metrics.decisions["approved"])
	}
	if res.Summary.TradesExecuted != 1 || res.Summary.SignalsGenerated != 1 {
		t.Errorf("summary counters = %+v", res.Summary)
	}
}

func TestEvaluateEmptyRiskRecordIsConservative(t *testing.T) {
	e := newEnv(t, "")
	req := bullishRequest()
	req.Risk = &models.RiskNarrative{} // absent fields, not a missing record

	res, err := e.uc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Order == nil || !res.Order.Approved {
		t.Fatalf("order = %+v, want approved", res.Order)
	}

	for _, r := range res.Signal.Reasoning {
		if r == "low risk" {
			t.Errorf("empty risk record scored as low risk: %v", res.Signal.Reasoning)
		}
	}

	// The record normalizes to risk score 7, so the sizing multiplier is
	// 1 - 0.7*0.5 = 0.65: 100000 * 0.05 * 0.65 * (2.5/2.6) / 100 = 31.25.
	if math.Abs(res.Order.Size-31.25) > 1e-9 {
		t.Errorf("size = %v, want 31.25 under the conservative default", res.Order.Size)
	}
}

func TestEvaluateDryRunSkipsExecution(t *testing.T) {
	e := newEnv(t, "")
	req := bullishRequest()
	req.DryRun = true

	res, err := e.uc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Order == nil || !res.Order.Approved {
		t.Fatalf("order = %+v, want approved", res.Order)
	}
	if res.Position != nil {
		t.Errorf("dry run opened a position: %+v", res.Position)
	}
	if e.book.OpenPositionCount() != 0 {
		t.Errorf("dry run mutated the book")
	}
}

func TestEvaluateRejectedRecordsDecision(t *testing.T) {
	e := newEnv(t, "")
	req := bullishRequest()
	req.Volume = 1000 // below the liquidity floor

	res, err := e.uc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Order == nil || res.Order.Approved {
		t.Fatalf("order = %+v, want rejected", res.Order)
	}
	if res.Position != nil {
		t.Errorf("rejected order opened a position")
	}
	if e.metrics.decisions["rejected"] != 1 {
		t.Errorf("rejected decisions = %d, want 1", e.metrics.decisions["rejected"])
	}
	if res.Summary.TradesRejected != 1 {
		t.Errorf("TradesRejected = %d, want 1", res.Summary.TradesRejected)
	}
}

func TestEvaluateFetchesSentimentWhenAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/sentiment":
			json.NewEncoder(w).Encode(map[string]interface{}{"score": 0.5, "confidence": 0.9})
		case "/api/v1/risk":
			json.NewEncoder(w).Encode(map[string]interface{}{"risk_score": 4})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := newEnv(t, srv.URL)
	req := bullishRequest()
	req.Risk = nil // force the narrative fetch

	res, err := e.uc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// Sentiment adds 2*0.2 to the score and 0.4 to the ceiling.
	if got, want := res.Signal.Score, 2.9; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("score = %v, want %v with fetched sentiment", got, want)
	}
	if got, want := res.Signal.MaxScore, 3.0; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("max score = %v, want %v", got, want)
	}
}

func TestTickHandlerClosesPosition(t *testing.T) {
	e := newEnv(t, "")
	res, err := e.uc.Evaluate(context.Background(), bullishRequest())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Position == nil {
		t.Fatalf("no position to exercise")
	}

	updater := NewPositionUpdater(e.book, e.publisher, e.store, e.metrics, nil)
	h := NewKafkaTickHandler("ticks", updater, e.metrics)
	if h.Topic() != "ticks" {
		t.Fatalf("topic = %q", h.Topic())
	}

	// Price at the take-profit level closes the position.
	msg := []byte(`{"symbol":"AAPL","t":1767225600000,"p":106,"v":1000}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if e.book.HasOpenPosition("AAPL") {
		t.Errorf("position still open after take-profit tick")
	}
	if len(e.publisher.closes) != 1 {
		t.Errorf("closes published = %d, want 1", len(e.publisher.closes))
	}
	if len(e.store.closed) != 1 {
		t.Errorf("closed trades stored = %d, want 1", len(e.store.closed))
	}
	if e.publisher.closes[0].Reason != models.CloseReasonTakeProfit {
		t.Errorf("reason = %q, want take_profit", e.publisher.closes[0].Reason)
	}
}
