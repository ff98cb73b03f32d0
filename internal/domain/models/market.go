package models

import "time"

// Categorical labels produced by the upstream analyzers.
const (
	SignalOversold   = "oversold"
	SignalOverbought = "overbought"
	SignalNeutral    = "neutral"

	TrendBullish = "bullish"
	TrendBearish = "bearish"

	BandAboveUpper = "above_upper"
	BandBelowLower = "below_lower"
	BandMiddle     = "middle"

	VolumeHigh   = "high"
	VolumeLow    = "low"
	VolumeNormal = "normal"

	ConcentrationHigh   = "high"
	ConcentrationMedium = "medium"
	ConcentrationLow    = "low"
)

// TechnicalSummary is a read-only snapshot of indicator readings for one
// symbol, produced externally once per evaluation cycle.
type TechnicalSummary struct {
	Oscillator       float64 `json:"oscillator"`
	OscillatorSignal string  `json:"oscillator_signal"` // oversold | overbought | neutral
	TrendValue       float64 `json:"trend_value"`
	Trend            string  `json:"trend"`    // bullish | bearish
	MATrend          string  `json:"ma_trend"` // bullish | bearish
	CurrentVolume    float64 `json:"current_volume"`
	AverageVolume    float64 `json:"average_volume"`
	VolumeRatio      float64 `json:"volume_ratio"`
	VolumeSignal     string  `json:"volume_signal"` // high | low | normal
	BandUpper        float64 `json:"band_upper"`
	BandLower        float64 `json:"band_lower"`
	BandPosition     string  `json:"band_position"` // above_upper | below_lower | middle
	Support          float64 `json:"support"`
	Resistance       float64 `json:"resistance"`
}

// BandWidth returns the absolute width of the volatility band.
func (t *TechnicalSummary) BandWidth() float64 {
	if t.BandUpper <= t.BandLower {
		return 0
	}
	return t.BandUpper - t.BandLower
}

// OwnershipSummary aggregates tracked institutional holdings for a symbol.
type OwnershipSummary struct {
	WhaleCount    int     `json:"whale_count"`
	TotalHeldPct  float64 `json:"total_held_pct"`
	Concentration string  `json:"concentration"` // high | medium | low
	WhaleSignal   string  `json:"whale_signal"`  // bullish | neutral
}

// Normalize derives the categorical fields from the numeric ones when the
// upstream record carries only counts and percentages.
func (o *OwnershipSummary) Normalize() {
	if o.Concentration == "" {
		switch {
		case o.TotalHeldPct > 70:
			o.Concentration = ConcentrationHigh
		case o.TotalHeldPct > 40:
			o.Concentration = ConcentrationMedium
		default:
			o.Concentration = ConcentrationLow
		}
	}
	if o.WhaleSignal == "" {
		if o.WhaleCount > 3 {
			o.WhaleSignal = TrendBullish
		} else {
			o.WhaleSignal = SignalNeutral
		}
	}
}

// SentimentSummary is produced by the narrative service. Treated as untrusted;
// decode failures fall back to neutral (score 0.0, confidence 0.5).
type SentimentSummary struct {
	Score      float64  `json:"score"`      // [-1, 1]
	Confidence float64  `json:"confidence"` // [0, 1]
	Factors    []string `json:"factors,omitempty"`
}

// Normalize coerces absent or out-of-range fields to the neutral defaults.
func (s *SentimentSummary) Normalize() {
	if s.Score < -1 || s.Score > 1 {
		s.Score = 0
	}
	if s.Confidence <= 0 || s.Confidence > 1 {
		s.Confidence = 0.5
	}
}

// RiskNarrative is the forward-looking risk assessment from the narrative
// service. Decode failures fall back to a conservative score of 7.
type RiskNarrative struct {
	RiskScore       int      `json:"risk_score"` // [1, 10], 10 = highest risk
	PositionSizePct float64  `json:"position_size_pct"`
	StopLossPct     float64  `json:"stop_loss_pct"`
	Factors         []string `json:"factors,omitempty"`
}

// Normalize coerces absent or out-of-range fields to the conservative
// defaults. A record the service never scored must not read as low risk.
func (r *RiskNarrative) Normalize() {
	if r.RiskScore < 1 || r.RiskScore > 10 {
		r.RiskScore = 7
	}
	if r.PositionSizePct <= 0 {
		r.PositionSizePct = 0.02
	}
	if r.StopLossPct <= 0 {
		r.StopLossPct = 0.03
	}
}

// Tick is a market data point driving position re-evaluation.
type Tick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}
