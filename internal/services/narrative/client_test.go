package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"FinTrader/internal/services/cache"
	"FinTrader/pkg/config"
)

func narrativeConfig(url string, retries int) *config.Config {
	cfg := &config.Config{}
	cfg.Narrative.ServiceURL = url
	cfg.Narrative.Timeout = 2 * time.Second
	cfg.Narrative.Retries = retries
	cfg.Narrative.CacheTTL.Summary = time.Minute
	return cfg
}

func TestFetchSentimentDisabled(t *testing.T) {
	c := NewClient(narrativeConfig("", 0), nil, nil)
	got, err := c.FetchSentiment(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchSentiment: %v", err)
	}
	if got != nil {
		t.Fatalf("sentiment = %+v, want nil when unconfigured", got)
	}
}

func TestFetchSentiment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != sentimentPath {
			t.Errorf("path = %s, want %s", r.URL.Path, sentimentPath)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["symbol"] != "AAPL" {
			t.Errorf("symbol = %q, want AAPL", req["symbol"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"score":      0.5,
			"confidence": 0.9,
			"factors":    []string{"earnings beat"},
		})
	}))
	defer srv.Close()

	c := NewClient(narrativeConfig(srv.URL, 0), nil, nil)
	got, err := c.FetchSentiment(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchSentiment: %v", err)
	}
	if got.Score != 0.5 || got.Confidence != 0.9 {
		t.Errorf("sentiment = %+v, want score 0.5 confidence 0.9", got)
	}
}

func TestFetchSentimentFallbackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(narrativeConfig(srv.URL, 0), nil, nil)
	got, err := c.FetchSentiment(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchSentiment: %v", err)
	}
	if got == nil || got.Score != 0 || got.Confidence != 0.5 {
		t.Errorf("fallback = %+v, want neutral score 0 confidence 0.5", got)
	}
}

func TestFetchRiskFallbackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(narrativeConfig(srv.URL, 0), nil, nil)
	got, err := c.FetchRisk(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchRisk: %v", err)
	}
	if got == nil || got.RiskScore != 7 || got.PositionSizePct != 0.02 || got.StopLossPct != 0.03 {
		t.Errorf("fallback = %+v, want risk 7 / 2%% size / 3%% stop", got)
	}
}

func TestFetchRiskAbsentFieldsFallBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Parseable record with no risk_score at all.
		json.NewEncoder(w).Encode(map[string]interface{}{"factors": []string{"headline risk"}})
	}))
	defer srv.Close()

	c := NewClient(narrativeConfig(srv.URL, 0), nil, nil)
	got, err := c.FetchRisk(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchRisk: %v", err)
	}
	if got.RiskScore != 7 || got.PositionSizePct != 0.02 || got.StopLossPct != 0.03 {
		t.Errorf("risk = %+v, want conservative defaults for absent fields", got)
	}
}

func TestFetchRiskOutOfRangeScoreFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"risk_score": 42, "position_size_pct": 0.01, "stop_loss_pct": 0.05})
	}))
	defer srv.Close()

	c := NewClient(narrativeConfig(srv.URL, 0), nil, nil)
	got, err := c.FetchRisk(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchRisk: %v", err)
	}
	if got.RiskScore != 7 {
		t.Errorf("RiskScore = %d, want 7 for out-of-range score", got.RiskScore)
	}
	if got.PositionSizePct != 0.01 || got.StopLossPct != 0.05 {
		t.Errorf("risk = %+v, want in-range percentages kept", got)
	}
}

func TestFetchSentimentAbsentConfidenceFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"score": 0.8})
	}))
	defer srv.Close()

	c := NewClient(narrativeConfig(srv.URL, 0), nil, nil)
	got, err := c.FetchSentiment(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchSentiment: %v", err)
	}
	if got.Score != 0.8 || got.Confidence != 0.5 {
		t.Errorf("sentiment = %+v, want score 0.8 confidence 0.5", got)
	}
}

func TestFetchRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "flaky", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"score": 0.4, "confidence": 0.8})
	}))
	defer srv.Close()

	c := NewClient(narrativeConfig(srv.URL, 2), nil, nil)
	got, err := c.FetchSentiment(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchSentiment: %v", err)
	}
	if got.Score != 0.4 {
		t.Errorf("score = %v, want 0.4 after retries", got.Score)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestFetchSentimentUsesCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{"score": 0.5, "confidence": 0.9})
	}))
	defer srv.Close()

	c := NewClient(narrativeConfig(srv.URL, 0), cache.NewMemory(), nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.FetchSentiment(ctx, "AAPL"); err != nil {
			t.Fatalf("FetchSentiment #%d: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("upstream calls = %d, want 1 with warm cache", n)
	}
}
