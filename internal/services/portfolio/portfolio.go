package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"FinTrader/internal/domain/models"
	"FinTrader/pkg/config"
	"FinTrader/pkg/logger"
	"FinTrader/pkg/util"
)

// Invariant violations. These indicate a contract breach by the caller and
// are surfaced as hard errors, never as gate-style rejections.
var (
	ErrPositionExists = errors.New("position already exists")
	ErrNoPosition     = errors.New("no open position")
)

// Portfolio is the mutex-guarded book of open positions, closed history, and
// realized value. All mutation funnels through Open, UpdateTick, and Close.
type Portfolio struct {
	mu           sync.RWMutex
	value        float64
	initialValue float64
	maxHoldDays  int
	open         map[string]*models.Position
	closed       []*models.ClosedPosition
	daily        map[time.Time]float64 // realized P&L per UTC day

	signalsGenerated int64
	tradesExecuted   int64
	tradesRejected   int64

	log *logger.Logger
	now func() time.Time
}

// New creates a Portfolio with the configured starting value.
func New(cfg *config.Config, log *logger.Logger) *Portfolio {
	return &Portfolio{
		value:        cfg.Trading.InitialPortfolioValue,
		initialValue: cfg.Trading.InitialPortfolioValue,
		maxHoldDays:  cfg.Risk.MaxHoldDays,
		open:         make(map[string]*models.Position),
		daily:        make(map[time.Time]float64),
		log:          log,
		now:          time.Now,
	}
}

// Open creates a position from an approved order. The existence check runs
// again under the book lock so a re-entrant call cannot open a duplicate even
// if it slipped past the validation gate.
func (p *Portfolio) Open(order *models.Order, price float64, sig *models.Signal) (*models.Position, error) {
	if !order.Approved {
		return nil, fmt.Errorf("order for %s is not approved", order.Symbol)
	}

	side := models.SideLong
	if sig.Direction == models.DirectionSell {
		side = models.SideShort
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.open[order.Symbol]; ok {
		return nil, fmt.Errorf("open %s: %w", order.Symbol, ErrPositionExists)
	}

	pos := &models.Position{
		Symbol:     order.Symbol,
		Side:       side,
		EntryPrice: price,
		Quantity:   order.Size,
		EntryTime:  p.now().UTC(),
		StopLoss:   order.StopLoss,
		TakeProfit: order.TakeProfit,
		RiskAmount: order.RiskAmount,
		Confidence: sig.Confidence,
		Reasoning:  sig.Reasoning,
	}
	p.open[order.Symbol] = pos
	p.tradesExecuted++

	if p.log != nil {
		p.log.Info("position opened",
			logger.String("symbol", pos.Symbol),
			logger.String("side", pos.Side),
			logger.Float64("entry_price", pos.EntryPrice),
			logger.Float64("quantity", pos.Quantity),
		)
	}

	snapshot := *pos
	return &snapshot, nil
}

// UpdateTick re-evaluates the symbol's open position against the price and
// closes it if an exit condition fires. Returns the closed record when a
// close happened, nil otherwise. A tick for a symbol with no open position
// is a no-op, not an error.
func (p *Portfolio) UpdateTick(symbol string, price float64) (*models.ClosedPosition, error) {
	if price <= 0 {
		return nil, fmt.Errorf("update %s: non-positive price %v", symbol, price)
	}

	p.mu.Lock()
	pos, ok := p.open[symbol]
	if !ok {
		p.mu.Unlock()
		return nil, nil
	}

	reason, shouldClose := p.exitCondition(pos, price)
	if !shouldClose {
		p.mu.Unlock()
		return nil, nil
	}
	cp := p.closeLocked(pos, price, reason)
	p.mu.Unlock()

	return cp, nil
}

// Close closes the symbol's open position at the given price. Closing a
// symbol with no open position is an invariant violation.
func (p *Portfolio) Close(symbol string, exitPrice float64, reason string) (*models.ClosedPosition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.open[symbol]
	if !ok {
		return nil, fmt.Errorf("close %s: %w", symbol, ErrNoPosition)
	}
	return p.closeLocked(pos, exitPrice, reason), nil
}

// exitCondition checks stop, take, and holding period in that order.
func (p *Portfolio) exitCondition(pos *models.Position, price float64) (string, bool) {
	if pos.Side == models.SideLong {
		if price <= pos.StopLoss {
			return models.CloseReasonStopLoss, true
		}
		if price >= pos.TakeProfit {
			return models.CloseReasonTakeProfit, true
		}
	} else {
		if price >= pos.StopLoss {
			return models.CloseReasonStopLoss, true
		}
		if price <= pos.TakeProfit {
			return models.CloseReasonTakeProfit, true
		}
	}

	if util.CalendarDaysSince(pos.EntryTime, p.now()) > p.maxHoldDays {
		return models.CloseReasonMaxHold, true
	}

	return "", false
}

// closeLocked finalizes a close. Caller holds p.mu.
func (p *Portfolio) closeLocked(pos *models.Position, exitPrice float64, reason string) *models.ClosedPosition {
	var pnl float64
	if pos.Side == models.SideLong {
		pnl = (exitPrice - pos.EntryPrice) * pos.Quantity
	} else {
		pnl = (pos.EntryPrice - exitPrice) * pos.Quantity
	}

	notional := pos.EntryPrice * pos.Quantity
	var pnlPct float64
	if notional != 0 {
		pnlPct = pnl / notional * 100
	}

	now := p.now().UTC()
	cp := &models.ClosedPosition{
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   pos.Quantity,
		EntryTime:  pos.EntryTime,
		ExitTime:   now,
		PnL:        pnl,
		PnLPct:     pnlPct,
		Reason:     reason,
		Confidence: pos.Confidence,
	}

	p.value += pnl
	p.daily[util.DayKey(now)] += pnl
	p.closed = append(p.closed, cp)
	delete(p.open, pos.Symbol)

	if p.log != nil {
		p.log.Info("position closed",
			logger.String("symbol", cp.Symbol),
			logger.Float64("pnl", cp.PnL),
			logger.Float64("pnl_pct", cp.PnLPct),
			logger.String("reason", reason),
		)
	}

	return cp
}

// HasOpenPosition implements risk.BookView.
func (p *Portfolio) HasOpenPosition(symbol string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.open[symbol]
	return ok
}

// OpenPositionCount implements risk.BookView.
func (p *Portfolio) OpenPositionCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.open)
}

// TodayRealizedPnL implements risk.BookView.
func (p *Portfolio) TodayRealizedPnL() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.daily[util.DayKey(p.now())]
}

// Value implements risk.BookView.
func (p *Portfolio) Value() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// OpenPositions returns a snapshot of all open positions.
func (p *Portfolio) OpenPositions() []models.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Position, 0, len(p.open))
	for _, pos := range p.open {
		out = append(out, *pos)
	}
	return out
}

// ClosedPositions returns a snapshot of the closed history, oldest first.
func (p *Portfolio) ClosedPositions() []models.ClosedPosition {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.ClosedPosition, 0, len(p.closed))
	for _, cp := range p.closed {
		out = append(out, *cp)
	}
	return out
}

// DailyLedger returns the realized P&L buckets ordered by day.
func (p *Portfolio) DailyLedger() []models.DailyPnL {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]models.DailyPnL, 0, len(p.daily))
	for day, amount := range p.daily {
		out = append(out, models.DailyPnL{Day: day, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

// RecordSignal bumps the signals-generated counter.
func (p *Portfolio) RecordSignal() {
	p.mu.Lock()
	p.signalsGenerated++
	p.mu.Unlock()
}

// RecordRejection bumps the trades-rejected counter.
func (p *Portfolio) RecordRejection() {
	p.mu.Lock()
	p.tradesRejected++
	p.mu.Unlock()
}

// Summary computes the portfolio snapshot with risk metrics.
func (p *Portfolio) Summary() models.PortfolioSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var totalPnL float64
	for _, cp := range p.closed {
		totalPnL += cp.PnL
	}
	var totalPnLPct float64
	if p.initialValue != 0 {
		totalPnLPct = totalPnL / p.initialValue * 100
	}

	openRisk := 0.0
	for _, pos := range p.open {
		openRisk += pos.RiskAmount
	}

	return models.PortfolioSummary{
		PortfolioValue:   p.value,
		InitialValue:     p.initialValue,
		TotalPnL:         totalPnL,
		TotalPnLPct:      totalPnLPct,
		OpenPositions:    len(p.open),
		ClosedPositions:  len(p.closed),
		SignalsGenerated: p.signalsGenerated,
		TradesExecuted:   p.tradesExecuted,
		TradesRejected:   p.tradesRejected,
		Metrics:          computeMetrics(p.closed, openRisk, p.value),
		Timestamp:        p.now().UTC(),
	}
}

// Metrics recomputes the risk statistics on demand.
func (p *Portfolio) Metrics() models.RiskMetrics {
	p.mu.RLock()
	defer p.mu.RUnlock()

	openRisk := 0.0
	for _, pos := range p.open {
		openRisk += pos.RiskAmount
	}
	return computeMetrics(p.closed, openRisk, p.value)
}
