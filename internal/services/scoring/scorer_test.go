package scoring

import (
	"math"
	"testing"

	"FinTrader/internal/domain/models"
	"FinTrader/pkg/config"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.Trading.Weights.Technical = 0.40
	c.Trading.Weights.Ownership = 0.30
	c.Trading.Weights.Sentiment = 0.20
	c.Trading.Weights.Risk = 0.10
	c.Trading.SignalThreshold = 0.6
	c.Trading.SentimentScoreGate = 0.3
	c.Trading.SentimentConfidenceGate = 0.6
	return c
}

func bullishTechnical() *models.TechnicalSummary {
	return &models.TechnicalSummary{
		OscillatorSignal: models.SignalOversold,
		Trend:            models.TrendBullish,
		MATrend:          models.TrendBullish,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreEndToEndExample(t *testing.T) {
	s := New(testConfig(), nil)

	// Oversold + bullish trend + bullish MA, 3 whales (neutral) with high
	// concentration, sentiment absent, mid risk. Technical 4*0.4 = 1.6,
	// ownership 1*0.3 = 0.3, risk 0, over max 1.6+0.9+0.1 = 2.6.
	own := &models.OwnershipSummary{WhaleCount: 3, TotalHeldPct: 75}
	risk := &models.RiskNarrative{RiskScore: 4}

	sig := s.Score("AAPL", bullishTechnical(), own, nil, risk)

	if sig.Direction != models.DirectionBuy {
		t.Fatalf("direction = %s, want BUY", sig.Direction)
	}
	if !almostEqual(sig.Score, 1.9) {
		t.Errorf("score = %v, want 1.9", sig.Score)
	}
	if !almostEqual(sig.MaxScore, 2.6) {
		t.Errorf("max score = %v, want 2.6", sig.MaxScore)
	}
	if !almostEqual(sig.Confidence, 1.9/2.6) {
		t.Errorf("confidence = %v, want %v", sig.Confidence, 1.9/2.6)
	}
	if len(sig.Reasoning) == 0 {
		t.Error("expected non-empty reasoning")
	}
}

func TestScoreWhaleBullishVariant(t *testing.T) {
	s := New(testConfig(), nil)

	// 4 whales turns the whale signal bullish: ownership sub-score 3.
	own := &models.OwnershipSummary{WhaleCount: 4, TotalHeldPct: 75}
	risk := &models.RiskNarrative{RiskScore: 4}

	sig := s.Score("AAPL", bullishTechnical(), own, nil, risk)

	if sig.Direction != models.DirectionBuy {
		t.Fatalf("direction = %s, want BUY", sig.Direction)
	}
	if !almostEqual(sig.Score, 2.5) {
		t.Errorf("score = %v, want 2.5", sig.Score)
	}
	if !almostEqual(sig.Confidence, 2.5/2.6) {
		t.Errorf("confidence = %v, want %v", sig.Confidence, 2.5/2.6)
	}
}

func TestScoreBearish(t *testing.T) {
	s := New(testConfig(), nil)

	tech := &models.TechnicalSummary{
		OscillatorSignal: models.SignalOverbought,
		Trend:            models.TrendBearish,
		MATrend:          models.TrendBearish,
	}
	sent := &models.SentimentSummary{Score: -0.8, Confidence: 0.9}
	risk := &models.RiskNarrative{RiskScore: 9}

	sig := s.Score("TSLA", tech, nil, sent, risk)

	// -1.6 - 0.4 - 0.1 = -2.1 over max 1.6+0.4+0.1 = 2.1
	if sig.Direction != models.DirectionSell {
		t.Fatalf("direction = %s, want SELL", sig.Direction)
	}
	if !almostEqual(sig.Score, -2.1) {
		t.Errorf("score = %v, want -2.1", sig.Score)
	}
	if !almostEqual(sig.Confidence, 1.0) {
		t.Errorf("confidence = %v, want 1.0", sig.Confidence)
	}
}

func TestScoreSentimentGating(t *testing.T) {
	s := New(testConfig(), nil)

	cases := []struct {
		name string
		sent models.SentimentSummary
		want float64
	}{
		{"strong positive high confidence", models.SentimentSummary{Score: 0.5, Confidence: 0.9}, 0.4},
		{"strong positive low confidence", models.SentimentSummary{Score: 0.5, Confidence: 0.6}, 0},
		{"weak positive high confidence", models.SentimentSummary{Score: 0.3, Confidence: 0.9}, 0},
		{"strong negative high confidence", models.SentimentSummary{Score: -0.5, Confidence: 0.9}, -0.4},
		{"boundary score exactly at gate", models.SentimentSummary{Score: -0.3, Confidence: 0.9}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := s.Score("X", nil, nil, &tc.sent, nil)
			if !almostEqual(sig.Score, tc.want) {
				t.Errorf("score = %v, want %v", sig.Score, tc.want)
			}
			if !almostEqual(sig.MaxScore, 0.4) {
				t.Errorf("max score = %v, want 0.4", sig.MaxScore)
			}
		})
	}
}

func TestScoreAllAbsentHolds(t *testing.T) {
	s := New(testConfig(), nil)

	sig := s.Score("AAPL", nil, nil, nil, nil)

	if sig.Direction != models.DirectionHold {
		t.Errorf("direction = %s, want HOLD", sig.Direction)
	}
	if sig.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", sig.Confidence)
	}
	if sig.MaxScore != 0 {
		t.Errorf("max score = %v, want 0", sig.MaxScore)
	}
}

func TestScoreConfidenceBounds(t *testing.T) {
	s := New(testConfig(), nil)

	techs := []*models.TechnicalSummary{
		nil,
		bullishTechnical(),
		{OscillatorSignal: models.SignalOverbought, Trend: models.TrendBearish, MATrend: models.TrendBearish},
	}
	owns := []*models.OwnershipSummary{nil, {WhaleCount: 10, TotalHeldPct: 90}, {WhaleCount: 1, TotalHeldPct: 5}}
	sents := []*models.SentimentSummary{nil, {Score: 1, Confidence: 1}, {Score: -1, Confidence: 1}}
	risks := []*models.RiskNarrative{nil, {RiskScore: 1}, {RiskScore: 10}}

	for _, tech := range techs {
		for _, own := range owns {
			for _, sent := range sents {
				for _, risk := range risks {
					sig := s.Score("X", tech, own, sent, risk)
					if sig.Confidence < 0 || sig.Confidence > 1 {
						t.Fatalf("confidence %v out of [0,1] for tech=%v own=%v sent=%v risk=%v",
							sig.Confidence, tech, own, sent, risk)
					}
					switch sig.Direction {
					case models.DirectionBuy, models.DirectionSell, models.DirectionHold:
					default:
						t.Fatalf("unexpected direction %q", sig.Direction)
					}
				}
			}
		}
	}
}

func TestScoreEvaluationIDUnique(t *testing.T) {
	s := New(testConfig(), nil)

	a := s.Score("AAPL", bullishTechnical(), nil, nil, nil)
	b := s.Score("AAPL", bullishTechnical(), nil, nil, nil)

	if a.EvaluationID == "" || a.EvaluationID == b.EvaluationID {
		t.Errorf("evaluation IDs not unique: %q vs %q", a.EvaluationID, b.EvaluationID)
	}
}
