package portfolio

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"FinTrader/internal/domain/models"
)

// computeMetrics derives trade statistics from the closed history. With no
// closed trades everything is zero. Sharpe needs at least two trades.
func computeMetrics(closed []*models.ClosedPosition, openRisk, portfolioValue float64) models.RiskMetrics {
	var m models.RiskMetrics
	if portfolioValue > 0 {
		m.OpenRiskPct = openRisk / portfolioValue * 100
	}
	if len(closed) == 0 {
		return m
	}

	pnls := make([]float64, len(closed))
	pnlPcts := make([]float64, len(closed))
	var wins, losses []float64
	for i, cp := range closed {
		pnls[i] = cp.PnL
		pnlPcts[i] = cp.PnLPct
		if cp.PnL > 0 {
			wins = append(wins, cp.PnL)
		} else if cp.PnL < 0 {
			losses = append(losses, cp.PnL)
		}
	}

	m.WinRate = float64(len(wins)) / float64(len(closed))
	if len(wins) > 0 {
		m.AvgWin = stat.Mean(wins, nil)
	}
	if len(losses) > 0 {
		m.AvgLoss = math.Abs(stat.Mean(losses, nil))
	}
	if m.AvgLoss != 0 {
		m.RiskRewardRatio = m.AvgWin / m.AvgLoss
	}

	if len(pnlPcts) >= 2 {
		sd := stat.PopStdDev(pnlPcts, nil)
		if sd != 0 {
			m.Sharpe = stat.Mean(pnlPcts, nil) / sd
		}
	}

	m.MaxDrawdown = maxDrawdown(pnls)
	m.VaR95 = percentile(pnls, 0.05)

	return m
}

// maxDrawdown is the largest drop of the cumulative P&L curve below its
// running peak, reported as a positive number. The peak is seeded from the
// first cumulative value, so a curve that only ever falls from its starting
// point still measures against its own first peak, not zero.
func maxDrawdown(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}
	cum := pnls[0]
	peak := cum
	var worst float64
	for _, v := range pnls[1:] {
		cum += v
		if cum > peak {
			peak = cum
		}
		if dd := cum - peak; dd < worst {
			worst = dd
		}
	}
	return math.Abs(worst)
}

// percentile interpolates linearly between closest ranks, with the rank
// computed as p*(n-1). This matches the convention the history metrics were
// originally reported with; gonum's stat.Quantile uses a different rank
// formula, so it cannot be used here.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
