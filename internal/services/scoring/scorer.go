package scoring

import (
	"math"
	"time"

	"FinTrader/internal/domain/models"
	"FinTrader/pkg/config"
	"FinTrader/pkg/logger"

	"github.com/google/uuid"
)

// Weights are the fixed category weights of the additive scorer.
type Weights struct {
	Technical float64
	Ownership float64
	Sentiment float64
	Risk      float64
}

// Scorer combines per-category analyses into a directional signal with a
// confidence value. Missing categories are skipped: they contribute nothing
// and reduce the attainable maximum, never raise an error.
type Scorer struct {
	weights           Weights
	threshold         float64 // raw-score cut for BUY/SELL
	sentimentGate     float64 // |sentiment score| required to count
	sentimentConfGate float64
	log               *logger.Logger
}

// New creates a Scorer from configuration.
func New(cfg *config.Config, log *logger.Logger) *Scorer {
	return &Scorer{
		weights: Weights{
			Technical: cfg.Trading.Weights.Technical,
			Ownership: cfg.Trading.Weights.Ownership,
			Sentiment: cfg.Trading.Weights.Sentiment,
			Risk:      cfg.Trading.Weights.Risk,
		},
		threshold:         cfg.Trading.SignalThreshold,
		sentimentGate:     cfg.Trading.SentimentScoreGate,
		sentimentConfGate: cfg.Trading.SentimentConfidenceGate,
		log:               log,
	}
}

// Score evaluates one symbol's analyses. Any of the four summaries may be nil.
func (s *Scorer) Score(symbol string, tech *models.TechnicalSummary, own *models.OwnershipSummary, sent *models.SentimentSummary, risk *models.RiskNarrative) *models.Signal {
	var score, maxScore float64
	reasoning := make([]string, 0, 6)

	if tech != nil {
		sub := 0.0

		switch tech.OscillatorSignal {
		case models.SignalOversold:
			sub += 2
			reasoning = append(reasoning, "oscillator oversold (bullish)")
		case models.SignalOverbought:
			sub -= 2
			reasoning = append(reasoning, "oscillator overbought (bearish)")
		}

		switch tech.Trend {
		case models.TrendBullish:
			sub++
			reasoning = append(reasoning, "trend bullish")
		case models.TrendBearish:
			sub--
			reasoning = append(reasoning, "trend bearish")
		}

		switch tech.MATrend {
		case models.TrendBullish:
			sub++
			reasoning = append(reasoning, "MA trend bullish")
		case models.TrendBearish:
			sub--
			reasoning = append(reasoning, "MA trend bearish")
		}

		score += sub * s.weights.Technical
		maxScore += 4 * s.weights.Technical
	}

	if own != nil {
		o := *own
		o.Normalize()
		sub := 0.0

		if o.WhaleSignal == models.TrendBullish {
			sub += 2
			reasoning = append(reasoning, "strong whale presence")
		}
		if o.Concentration == models.ConcentrationHigh {
			sub++
			reasoning = append(reasoning, "high institutional concentration")
		}

		score += sub * s.weights.Ownership
		maxScore += 3 * s.weights.Ownership
	}

	if sent != nil {
		// Noise filter: weak or low-confidence sentiment contributes nothing.
		if sent.Score > s.sentimentGate && sent.Confidence > s.sentimentConfGate {
			score += 2 * s.weights.Sentiment
			reasoning = append(reasoning, "positive sentiment")
		} else if sent.Score < -s.sentimentGate && sent.Confidence > s.sentimentConfGate {
			score -= 2 * s.weights.Sentiment
			reasoning = append(reasoning, "negative sentiment")
		}

		maxScore += 2 * s.weights.Sentiment
	}

	if risk != nil {
		if risk.RiskScore <= 3 {
			score += 1 * s.weights.Risk
			reasoning = append(reasoning, "low risk")
		} else if risk.RiskScore >= 8 {
			score -= 1 * s.weights.Risk
			reasoning = append(reasoning, "high risk")
		}

		maxScore += 1 * s.weights.Risk
	}

	sig := &models.Signal{
		EvaluationID: uuid.NewString(),
		Symbol:       symbol,
		Direction:    models.DirectionHold,
		Score:        score,
		MaxScore:     maxScore,
		Reasoning:    reasoning,
		Timestamp:    time.Now().UTC(),
	}

	if maxScore > 0 {
		sig.Confidence = math.Abs(score) / maxScore
		if score > s.threshold {
			sig.Direction = models.DirectionBuy
		} else if score < -s.threshold {
			sig.Direction = models.DirectionSell
		}
	}

	if s.log != nil {
		s.log.Debug("signal scored",
			logger.String("symbol", symbol),
			logger.String("direction", string(sig.Direction)),
			logger.Float64("score", sig.Score),
			logger.Float64("confidence", sig.Confidence),
		)
	}

	return sig
}
