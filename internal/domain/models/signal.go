package models

import "time"

// Direction is the directional call of a scored signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// Signal is the scorer output for one evaluation cycle. It is consumed
// immediately by the validation gate and published as an audit event; it is
// not persisted as a standalone entity beyond the cycle.
type Signal struct {
	EvaluationID string    `json:"evaluation_id"`
	Symbol       string    `json:"symbol"`
	Direction    Direction `json:"direction"`
	Confidence   float64   `json:"confidence"` // [0, 1]
	Score        float64   `json:"score"`      // raw weighted sum
	MaxScore     float64   `json:"max_score"`  // attainable magnitude given present categories
	Reasoning    []string  `json:"reasoning"`
	Timestamp    time.Time `json:"timestamp"`
}
