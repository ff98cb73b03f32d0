package risk

import "FinTrader/internal/domain/models"

// baselineBandWidth is the assumed band width fraction against which
// volatility is normalized when scaling stop/take distances.
const baselineBandWidth = 0.04

// positionSize converts portfolio value, confidence, and the narrative risk
// score into instrument units. A risk score of 10 halves the base size.
func (g *Gate) positionSize(price float64, sig *models.Signal, riskNarrative *models.RiskNarrative) float64 {
	if price <= 0 {
		return 0
	}

	riskScore := 5
	if riskNarrative != nil {
		riskScore = riskNarrative.RiskScore
	}

	riskMultiplier := 1.0 - (float64(riskScore)/10.0)*0.5
	sizePct := g.limits.MaxPositionSize * riskMultiplier * sig.Confidence

	return g.book.Value() * sizePct / price
}

// stopTakeLevels computes volatility-scaled stop-loss and take-profit prices.
// Support/resistance clamping applies to BUY only.
func (g *Gate) stopTakeLevels(price float64, direction models.Direction, tech *models.TechnicalSummary) (stop, take float64) {
	stopPct := g.limits.StopLossPct
	takePct := g.limits.TakeProfitPct

	if tech != nil && tech.BandWidth() > 0 && price > 0 {
		volatility := tech.BandWidth() / price
		multiplier := clamp(volatility/baselineBandWidth, 0.5, 2.0)
		stopPct *= multiplier
		takePct *= multiplier
	}

	switch direction {
	case models.DirectionBuy:
		stop = price * (1 - stopPct)
		take = price * (1 + takePct)
	case models.DirectionSell:
		stop = price * (1 + stopPct)
		take = price * (1 - takePct)
	default:
		stop = price * 0.97
		take = price * 1.03
	}

	if direction == models.DirectionBuy && tech != nil {
		if tech.Support > 0 {
			// Raise the stop to just under support when that is tighter.
			suggested := tech.Support * 0.995
			if suggested > stop {
				stop = suggested
			}
		}
		if tech.Resistance > 0 {
			// Pull the take to just under resistance if it stays above entry.
			suggested := tech.Resistance * 0.995
			if suggested < take && suggested > price {
				take = suggested
			}
		}
	}

	return stop, take
}

// riskRewardRatio measures the favorable price distance over the unfavorable
// one. Returns 0 when risk is non-positive or direction is HOLD.
func riskRewardRatio(price, stop, take float64, direction models.Direction) float64 {
	var risk, reward float64

	switch direction {
	case models.DirectionBuy:
		risk = price - stop
		reward = take - price
	case models.DirectionSell:
		risk = stop - price
		reward = price - take
	default:
		return 0
	}

	if risk <= 0 {
		return 0
	}
	return reward / risk
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
