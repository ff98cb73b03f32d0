package repository

import (
	"context"
	"time"

	"FinTrader/internal/domain/models"
)

// EventPublisher emits trade-decision events (signals, orders, closes) keyed
// by symbol for downstream consumers.
type EventPublisher interface {
	PublishSignal(ctx context.Context, s *models.Signal) error
	PublishOrder(ctx context.Context, evaluationID string, o *models.Order) error
	PublishClose(ctx context.Context, cp *models.ClosedPosition) error
	Close() error
}

// TradeStore persists the append-only decision and trade history.
type TradeStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreClosed(ctx context.Context, cp *models.ClosedPosition) error
	StoreDecision(ctx context.Context, s *models.Signal, o *models.Order) error
	QueryClosed(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.ClosedPosition, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records domain-level observability counters and gauges.
type Metrics interface {
	RecordSignal(direction, symbol string)
	RecordDecision(outcome, reason string)
	RecordError(kind string)
	SetOpenPositions(n int)
	SetPortfolioValue(v float64)
	AddRealizedPnL(pnl float64)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
