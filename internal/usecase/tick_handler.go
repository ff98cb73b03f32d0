package usecase

import (
	"context"
	"encoding/json"
	"time"

	"FinTrader/internal/domain/models"
	domrepo "FinTrader/internal/domain/repository"
	"FinTrader/internal/middleware"
)

// KafkaTickHandler consumes tick messages and feeds them to the pipeline.
type KafkaTickHandler struct {
	topic    string
	pipeline middleware.TickProcessor
	metrics  domrepo.Metrics
}

func NewKafkaTickHandler(topic string, pipeline middleware.TickProcessor, metrics domrepo.Metrics) *KafkaTickHandler {
	return &KafkaTickHandler{topic: topic, pipeline: pipeline, metrics: metrics}
}

func (h *KafkaTickHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t, p, v}
func (h *KafkaTickHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		P      float64 `json:"p"`
		V      float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	ts := time.Unix(m.T, 0).UTC()
	h.metrics.RecordLatency("tick_e2e_seconds", time.Since(ts).Seconds())

	return h.pipeline.ProcessTick(ctx, &models.Tick{
		Symbol:    m.Symbol,
		Price:     m.P,
		Volume:    m.V,
		Timestamp: ts,
	})
}
