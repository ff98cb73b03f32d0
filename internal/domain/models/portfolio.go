package models

import "time"

// RiskMetrics are the portfolio-level statistics derived from closed and open
// positions. All fields are well-defined for 0, 1, and N closed trades.
type RiskMetrics struct {
	WinRate         float64 `json:"win_rate"`
	AvgWin          float64 `json:"avg_win"`
	AvgLoss         float64 `json:"avg_loss"` // absolute mean of negative P&Ls
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
	Sharpe          float64 `json:"sharpe"` // mean(pnl%)/stddev(pnl%), 0 if fewer than 2 trades
	MaxDrawdown     float64 `json:"max_drawdown"`
	VaR95           float64 `json:"var_95"`
	OpenRiskPct     float64 `json:"open_risk_pct"` // sum of open risk amounts over portfolio value, percent
}

// PortfolioSummary is the externally served snapshot of portfolio state.
type PortfolioSummary struct {
	PortfolioValue   float64     `json:"portfolio_value"`
	InitialValue     float64     `json:"initial_value"`
	TotalPnL         float64     `json:"total_pnl"`
	TotalPnLPct      float64     `json:"total_pnl_pct"`
	OpenPositions    int         `json:"open_positions"`
	ClosedPositions  int         `json:"closed_positions"`
	SignalsGenerated int64       `json:"signals_generated"`
	TradesExecuted   int64       `json:"trades_executed"`
	TradesRejected   int64       `json:"trades_rejected"`
	Metrics          RiskMetrics `json:"metrics"`
	Timestamp        time.Time   `json:"timestamp"`
}

// DailyPnL is a realized P&L bucket for one UTC day.
type DailyPnL struct {
	Day    time.Time `json:"day"`
	Amount float64   `json:"amount"`
}
