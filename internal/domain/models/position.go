package models

import "time"

// Position side. Long positions come from BUY signals, short from SELL.
const (
	SideLong  = "long"
	SideShort = "short"
)

// Close reasons recorded on ClosedPosition.
const (
	CloseReasonStopLoss   = "stop_loss"
	CloseReasonTakeProfit = "take_profit"
	CloseReasonMaxHold    = "max_holding_period"
	CloseReasonManual     = "manual"
)

// Order is the validation gate result. It exists only transiently between
// the gate and the portfolio open.
type Order struct {
	Symbol     string  `json:"symbol"`
	Approved   bool    `json:"approved"`
	Reason     string  `json:"reason,omitempty"` // rejection reason, empty when approved
	Size       float64 `json:"size"`             // units of instrument
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	RiskAmount float64 `json:"risk_amount"` // money at risk between entry and stop
}

// Position is an open position tracked by the portfolio. At most one open
// position exists per symbol at any time.
type Position struct {
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"` // long | short
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	EntryTime  time.Time `json:"entry_time"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	RiskAmount float64   `json:"risk_amount"`
	Confidence float64   `json:"confidence"`
	Reasoning  []string  `json:"reasoning,omitempty"`
}

// ClosedPosition is the immutable record appended when a position closes.
type ClosedPosition struct {
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	PnL        float64   `json:"pnl"`
	PnLPct     float64   `json:"pnl_pct"` // relative to invested notional, in percent
	Reason     string    `json:"reason"`
	Confidence float64   `json:"confidence"`
}
