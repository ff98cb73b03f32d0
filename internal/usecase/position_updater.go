package usecase

import (
	"context"
	"fmt"

	"FinTrader/internal/domain/models"
	domrepo "FinTrader/internal/domain/repository"
	"FinTrader/internal/services/portfolio"
	"FinTrader/pkg/logger"
)

// PositionUpdater applies price ticks to the book and finalizes any close
// they trigger. It is the downstream stage of the tick pipeline.
type PositionUpdater struct {
	book      *portfolio.Portfolio
	publisher domrepo.EventPublisher
	store     domrepo.TradeStore
	metrics   domrepo.Metrics
	log       *logger.Logger
}

func NewPositionUpdater(
	book *portfolio.Portfolio,
	publisher domrepo.EventPublisher,
	store domrepo.TradeStore,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *PositionUpdater {
	return &PositionUpdater{
		book:      book,
		publisher: publisher,
		store:     store,
		metrics:   metrics,
		log:       log,
	}
}

// ProcessTick updates the symbol's position against the tick price. When the
// tick closes a position the close is persisted and published.
func (u *PositionUpdater) ProcessTick(ctx context.Context, t *models.Tick) error {
	u.metrics.RecordLastPrice(t.Symbol, t.Price)

	cp, err := u.book.UpdateTick(t.Symbol, t.Price)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.Symbol, err)
	}
	if cp == nil {
		return nil
	}
	u.finalizeClose(ctx, cp)
	return nil
}

// CloseManual closes an open position at the given price on request.
func (u *PositionUpdater) CloseManual(ctx context.Context, symbol string, price float64) (*models.ClosedPosition, error) {
	cp, err := u.book.Close(symbol, price, models.CloseReasonManual)
	if err != nil {
		return nil, err
	}
	u.finalizeClose(ctx, cp)
	return cp, nil
}

func (u *PositionUpdater) finalizeClose(ctx context.Context, cp *models.ClosedPosition) {
	u.metrics.SetOpenPositions(u.book.OpenPositionCount())
	u.metrics.SetPortfolioValue(u.book.Value())
	u.metrics.AddRealizedPnL(cp.PnL)

	if u.store != nil {
		if err := u.store.StoreClosed(ctx, cp); err != nil {
			u.metrics.RecordError("store_closed")
			if u.log != nil {
				u.log.Warn("closed trade store failed",
					logger.String("symbol", cp.Symbol), logger.Error(err))
			}
		}
	}
	if u.publisher != nil {
		if err := u.publisher.PublishClose(ctx, cp); err != nil {
			u.metrics.RecordError("publish_close")
			if u.log != nil {
				u.log.Warn("close publish failed",
					logger.String("symbol", cp.Symbol), logger.Error(err))
			}
		}
	}
}
