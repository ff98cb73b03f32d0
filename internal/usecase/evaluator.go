package usecase

import (
	"context"
	"fmt"
	"time"

	"FinTrader/internal/domain/models"
	domrepo "FinTrader/internal/domain/repository"
	"FinTrader/internal/services/narrative"
	"FinTrader/internal/services/portfolio"
	"FinTrader/internal/services/risk"
	"FinTrader/internal/services/scoring"
	"FinTrader/pkg/logger"
)

// Evaluator runs the full decision path for one symbol evaluation: score the
// inputs, validate the signal against the risk limits, and open the position
// if everything passes. Event publishing and history writes are best effort;
// a broker or store outage must not block trading decisions.
type Evaluator struct {
	scorer    *scoring.Scorer
	gate      *risk.Gate
	book      *portfolio.Portfolio
	narrative *narrative.Client
	publisher domrepo.EventPublisher
	store     domrepo.TradeStore
	metrics   domrepo.Metrics
	log       *logger.Logger
}

func NewEvaluator(
	scorer *scoring.Scorer,
	gate *risk.Gate,
	book *portfolio.Portfolio,
	nc *narrative.Client,
	publisher domrepo.EventPublisher,
	store domrepo.TradeStore,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *Evaluator {
	return &Evaluator{
		scorer:    scorer,
		gate:      gate,
		book:      book,
		narrative: nc,
		publisher: publisher,
		store:     store,
		metrics:   metrics,
		log:       log,
	}
}

// EvaluateResult is the outcome of one evaluation. Order is nil for HOLD
// signals; Position is nil unless a trade was opened.
type EvaluateResult struct {
	Signal   *models.Signal          `json:"signal"`
	Order    *models.Order           `json:"order,omitempty"`
	Position *models.Position        `json:"position,omitempty"`
	Summary  models.PortfolioSummary `json:"portfolio"`
}

// Evaluate scores the request and, unless DryRun is set, executes the
// resulting decision against the portfolio.
func (uc *Evaluator) Evaluate(ctx context.Context, req *models.EvaluateRequest) (*EvaluateResult, error) {
	start := time.Now()

	sent := req.Sentiment
	riskNarr := req.Risk
	if sent == nil {
		var err error
		if sent, err = uc.narrative.FetchSentiment(ctx, req.Symbol); err != nil {
			return nil, fmt.Errorf("fetch sentiment: %w", err)
		}
	} else {
		s := *sent
		s.Normalize()
		sent = &s
	}
	if riskNarr == nil {
		var err error
		if riskNarr, err = uc.narrative.FetchRisk(ctx, req.Symbol); err != nil {
			return nil, fmt.Errorf("fetch risk narrative: %w", err)
		}
	} else {
		r := *riskNarr
		r.Normalize()
		riskNarr = &r
	}

	sig := uc.scorer.Score(req.Symbol, req.Technical, req.Ownership, sent, riskNarr)
	uc.book.RecordSignal()
	uc.metrics.RecordSignal(string(sig.Direction), req.Symbol)
	uc.publishSignal(ctx, sig)

	res := &EvaluateResult{Signal: sig}

	if sig.Direction == models.DirectionHold {
		uc.metrics.RecordDecision("hold", "")
		res.Summary = uc.book.Summary()
		uc.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
		return res, nil
	}

	order := uc.gate.Validate(req.Symbol, sig, req.Price, req.Volume, req.Technical, riskNarr)
	res.Order = order
	uc.recordDecision(ctx, sig, order)

	if order.Approved && !req.DryRun {
		pos, err := uc.book.Open(order, req.Price, sig)
		if err != nil {
			return nil, fmt.Errorf("open position: %w", err)
		}
		res.Position = pos
		uc.metrics.SetOpenPositions(uc.book.OpenPositionCount())
		uc.metrics.RecordLastPrice(req.Symbol, req.Price)
	}

	res.Summary = uc.book.Summary()
	uc.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
	return res, nil
}

func (uc *Evaluator) publishSignal(ctx context.Context, sig *models.Signal) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishSignal(ctx, sig); err != nil {
		uc.metrics.RecordError("publish_signal")
		if uc.log != nil {
			uc.log.Warn("signal publish failed",
				logger.String("symbol", sig.Symbol), logger.Error(err))
		}
	}
}

func (uc *Evaluator) recordDecision(ctx context.Context, sig *models.Signal, order *models.Order) {
	if order.Approved {
		uc.metrics.RecordDecision("approved", "")
	} else {
		uc.book.RecordRejection()
		uc.metrics.RecordDecision("rejected", order.Reason)
	}

	if uc.store != nil {
		if err := uc.store.StoreDecision(ctx, sig, order); err != nil {
			uc.metrics.RecordError("store_decision")
			if uc.log != nil {
				uc.log.Warn("decision store failed",
					logger.String("symbol", sig.Symbol), logger.Error(err))
			}
		}
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishOrder(ctx, sig.EvaluationID, order); err != nil {
			uc.metrics.RecordError("publish_order")
			if uc.log != nil {
				uc.log.Warn("order publish failed",
					logger.String("symbol", sig.Symbol), logger.Error(err))
			}
		}
	}
}
