package risk

import (
	"fmt"

	"FinTrader/internal/domain/models"
	"FinTrader/pkg/config"
	"FinTrader/pkg/logger"
)

// BookView is the portfolio state the gate reads. Implementations must return
// a consistent snapshot per call.
type BookView interface {
	HasOpenPosition(symbol string) bool
	OpenPositionCount() int
	TodayRealizedPnL() float64
	Value() float64
}

// Limits are the risk parameters the gate enforces.
type Limits struct {
	MaxPositionSize  float64 // fraction of portfolio at risk per position
	MaxDailyLoss     float64 // fraction of portfolio
	StopLossPct      float64
	TakeProfitPct    float64
	MaxOpenPositions int
	MinVolume        float64
	MinConfidence    float64
	MinRiskReward    float64
}

// Gate runs the sequential validation pipeline that turns a signal into an
// approved order with sizing, stop-loss, and take-profit, or a rejection with
// a specific reason. Rejections are normal outcomes, not errors.
type Gate struct {
	book   BookView
	limits Limits
	log    *logger.Logger
}

// NewGate creates a Gate from configuration.
func NewGate(cfg *config.Config, book BookView, log *logger.Logger) *Gate {
	return &Gate{
		book: book,
		limits: Limits{
			MaxPositionSize:  cfg.Risk.MaxPositionSize,
			MaxDailyLoss:     cfg.Risk.MaxDailyLoss,
			StopLossPct:      cfg.Risk.StopLossPct,
			TakeProfitPct:    cfg.Risk.TakeProfitPct,
			MaxOpenPositions: cfg.Risk.MaxOpenPositions,
			MinVolume:        cfg.Risk.MinVolume,
			MinConfidence:    cfg.Risk.MinConfidence,
			MinRiskReward:    cfg.Risk.MinRiskReward,
		},
		log: log,
	}
}

// Validate runs all checks in order and short-circuits on the first failure.
func (g *Gate) Validate(symbol string, sig *models.Signal, price, volume float64, tech *models.TechnicalSummary, riskNarrative *models.RiskNarrative) *models.Order {
	order := &models.Order{Symbol: symbol}

	// 1. One open position per symbol.
	if g.book.HasOpenPosition(symbol) {
		order.Reason = fmt.Sprintf("position already open for %s", symbol)
		return order
	}

	// 2. Concurrent position cap.
	if g.book.OpenPositionCount() >= g.limits.MaxOpenPositions {
		order.Reason = fmt.Sprintf("maximum of %d open positions reached", g.limits.MaxOpenPositions)
		return order
	}

	// 3. Daily loss limit against realized P&L.
	maxDailyLoss := g.book.Value() * g.limits.MaxDailyLoss
	if g.book.TodayRealizedPnL() <= -maxDailyLoss {
		order.Reason = "daily loss limit reached"
		return order
	}

	// 4. Position sizing.
	size := g.positionSize(price, sig, riskNarrative)
	if size <= 0 {
		order.Reason = "computed position size is zero or negative"
		return order
	}

	// 5. Protective levels.
	stop, take := g.stopTakeLevels(price, sig.Direction, tech)

	// 6. Risk/reward floor.
	rr := riskRewardRatio(price, stop, take, sig.Direction)
	if rr < g.limits.MinRiskReward {
		order.Reason = fmt.Sprintf("risk/reward ratio too low: %.2f", rr)
		return order
	}

	// 7. Liquidity floor.
	if volume < g.limits.MinVolume {
		order.Reason = fmt.Sprintf("insufficient volume: %.0f", volume)
		return order
	}

	// 8. Confidence floor. Exactly the minimum passes.
	if sig.Confidence < g.limits.MinConfidence {
		order.Reason = fmt.Sprintf("confidence too low: %.2f", sig.Confidence)
		return order
	}

	// 9. Risk amount cap.
	riskAmount := abs(price-stop) * size
	maxRisk := g.book.Value() * g.limits.MaxPositionSize
	if riskAmount > maxRisk {
		order.Reason = fmt.Sprintf("risk too high: %.2f > %.2f", riskAmount, maxRisk)
		return order
	}

	order.Approved = true
	order.Size = size
	order.StopLoss = stop
	order.TakeProfit = take
	order.RiskAmount = riskAmount

	if g.log != nil {
		g.log.Info("trade approved",
			logger.String("symbol", symbol),
			logger.Float64("size", size),
			logger.Float64("risk_reward", rr),
			logger.Float64("risk_amount", riskAmount),
		)
	}

	return order
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
