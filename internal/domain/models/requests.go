package models

// Requests for trading HTTP endpoints. Defined in domain for consistency and reuse.

// EvaluateRequest carries one evaluation cycle's inputs. Sentiment and risk
// narrative are optional inline overrides; when absent they are fetched from
// the narrative service (and treated as absent on failure).
type EvaluateRequest struct {
	Symbol    string            `json:"symbol" validate:"required,min=1,max=12"`
	Price     float64           `json:"price" validate:"required,gt=0"`
	Volume    float64           `json:"volume" validate:"gte=0"`
	Technical *TechnicalSummary `json:"technical,omitempty"`
	Ownership *OwnershipSummary `json:"ownership,omitempty"`
	Sentiment *SentimentSummary `json:"sentiment,omitempty"`
	Risk      *RiskNarrative    `json:"risk,omitempty"`
	DryRun    bool              `json:"dry_run"` // score and validate without opening
}

// TickRequest pushes a price update for open position re-evaluation.
type TickRequest struct {
	Symbol string  `json:"symbol" validate:"required,min=1,max=12"`
	Price  float64 `json:"price" validate:"required,gt=0"`
	Volume float64 `json:"volume" validate:"gte=0"`
}

// CloseRequest closes an open position on demand.
type CloseRequest struct {
	Symbol string  `json:"symbol" validate:"required,min=1,max=12"`
	Price  float64 `json:"price" validate:"required,gt=0"`
}

// HistoryRequest filters the closed-position history.
type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}
