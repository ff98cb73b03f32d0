package repository

import (
	"context"

	"FinTrader/internal/domain/models"
	"FinTrader/internal/domain/repository"
	pkgkafka "FinTrader/pkg/kafka"
)

const (
	eventSignal = "signal"
	eventOrder  = "order"
	eventClose  = "close"
)

// KafkaEventPublisher emits decision events to the events topic, keyed by
// symbol so per-symbol ordering is preserved within a partition.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) repository.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishSignal(ctx context.Context, s *models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), map[string]interface{}{
		"event":         eventSignal,
		"evaluation_id": s.EvaluationID,
		"symbol":        s.Symbol,
		"direction":     s.Direction,
		"score":         s.Score,
		"max_score":     s.MaxScore,
		"confidence":    s.Confidence,
		"reasoning":     s.Reasoning,
		"ts":            s.Timestamp.UnixMilli(),
	})
}

func (p *KafkaEventPublisher) PublishOrder(ctx context.Context, evaluationID string, o *models.Order) error {
	return p.producer.Publish(ctx, p.topic, []byte(o.Symbol), map[string]interface{}{
		"event":         eventOrder,
		"evaluation_id": evaluationID,
		"symbol":        o.Symbol,
		"approved":      o.Approved,
		"reason":        o.Reason,
		"size":          o.Size,
		"stop_loss":     o.StopLoss,
		"take_profit":   o.TakeProfit,
		"risk_amount":   o.RiskAmount,
	})
}

func (p *KafkaEventPublisher) PublishClose(ctx context.Context, cp *models.ClosedPosition) error {
	return p.producer.Publish(ctx, p.topic, []byte(cp.Symbol), map[string]interface{}{
		"event":      eventClose,
		"symbol":     cp.Symbol,
		"side":       cp.Side,
		"exit_price": cp.ExitPrice,
		"quantity":   cp.Quantity,
		"pnl":        cp.PnL,
		"pnl_pct":    cp.PnLPct,
		"reason":     cp.Reason,
		"exit_time":  cp.ExitTime.UnixMilli(),
	})
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
