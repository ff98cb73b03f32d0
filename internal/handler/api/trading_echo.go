package api

import (
	"encoding/json"
	"errors"
	"time"

	"FinTrader/internal/domain/models"
	domrepo "FinTrader/internal/domain/repository"
	"FinTrader/internal/middleware"
	"FinTrader/internal/services/cache"
	"FinTrader/internal/services/portfolio"
	"FinTrader/internal/services/ratelimit"
	"FinTrader/internal/usecase"
	xhttp "FinTrader/pkg/http"
	xlogger "FinTrader/pkg/logger"

	"github.com/labstack/echo/v4"
)

const summaryCacheTTL = 2 * time.Second

// TradingEchoHandler exposes the trading API over Echo.
type TradingEchoHandler struct {
	logger    *xlogger.Logger
	evaluator *usecase.Evaluator
	updater   *usecase.PositionUpdater
	pipeline  middleware.TickProcessor
	book      *portfolio.Portfolio
	store     domrepo.TradeStore
	summaries cache.BytesCache
	limiter   *ratelimit.Limiter
}

func NewTradingEchoHandler(
	logger *xlogger.Logger,
	evaluator *usecase.Evaluator,
	updater *usecase.PositionUpdater,
	pipeline middleware.TickProcessor,
	book *portfolio.Portfolio,
	store domrepo.TradeStore,
	summaries cache.BytesCache,
	limiter *ratelimit.Limiter,
) *TradingEchoHandler {
	return &TradingEchoHandler{
		logger:    logger,
		evaluator: evaluator,
		updater:   updater,
		pipeline:  pipeline,
		book:      book,
		store:     store,
		summaries: summaries,
		limiter:   limiter,
	}
}

func (h *TradingEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/evaluate", h.Evaluate)
	g.POST("/tick", h.Tick)
	g.POST("/close", h.ClosePosition)
	g.GET("/portfolio", h.Portfolio)
	g.GET("/positions", h.Positions)
	g.GET("/risk", h.RiskMetrics)
	g.GET("/daily", h.DailyPnL)
	g.GET("/history", h.History)
}

func (h *TradingEchoHandler) Evaluate(c echo.Context) error {
	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.limiter != nil && !h.limiter.Allow(req.Symbol) {
		return xhttp.AppErrorResponse(c,
			xhttp.TooManyRequestsError("evaluation rate limit exceeded for "+req.Symbol))
	}

	res, err := h.evaluator.Evaluate(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, portfolio.ErrPositionExists) {
			return xhttp.AppErrorResponse(c,
				xhttp.ConflictError("position already open for "+req.Symbol))
		}
		h.logger.Error("evaluate usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TradingEchoHandler) Tick(c echo.Context) error {
	req := &models.TickRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tick := &models.Tick{
		Symbol:    req.Symbol,
		Price:     req.Price,
		Volume:    req.Volume,
		Timestamp: time.Now().UTC(),
	}
	if err := h.pipeline.ProcessTick(c.Request().Context(), tick); err != nil {
		h.logger.Error("tick pipeline error",
			xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":        req.Symbol,
		"position_open": h.book.HasOpenPosition(req.Symbol),
	})
}

func (h *TradingEchoHandler) ClosePosition(c echo.Context) error {
	req := &models.CloseRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cp, err := h.updater.CloseManual(c.Request().Context(), req.Symbol, req.Price)
	if err != nil {
		if errors.Is(err, portfolio.ErrNoPosition) {
			return xhttp.AppErrorResponse(c,
				xhttp.NotFoundError("no open position for "+req.Symbol))
		}
		h.logger.Error("close usecase error",
			xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, cp)
}

func (h *TradingEchoHandler) Portfolio(c echo.Context) error {
	ctx := c.Request().Context()

	if h.summaries != nil {
		if b, ok, _ := h.summaries.GetBytes(ctx, "portfolio:summary"); ok {
			var cached models.PortfolioSummary
			if json.Unmarshal(b, &cached) == nil {
				c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=2")
				return xhttp.SuccessResponse(c, cached)
			}
		}
	}

	summary := h.book.Summary()
	if h.summaries != nil {
		if b, err := json.Marshal(summary); err == nil {
			if err := h.summaries.SetBytes(ctx, "portfolio:summary", b, summaryCacheTTL); err != nil {
				h.logger.Warn("summary cache write failed", xlogger.Error(err))
			}
		}
	}
	return xhttp.SuccessResponse(c, summary)
}

func (h *TradingEchoHandler) Positions(c echo.Context) error {
	positions := h.book.OpenPositions()
	total := int64(len(positions))
	if limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && limit < len(positions) {
		positions = positions[:limit]
	}
	return xhttp.ListResponse(c, positions, total)
}

func (h *TradingEchoHandler) RiskMetrics(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.book.Metrics())
}

func (h *TradingEchoHandler) DailyPnL(c echo.Context) error {
	ledger := h.book.DailyLedger()
	return xhttp.ListResponse(c, ledger, int64(len(ledger)))
}

func (h *TradingEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from, to, err := parseHistoryRange(req.From, req.To)
	if err != nil {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError(err.Error()))
	}

	rows, err := h.store.QueryClosed(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("history query error",
			xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// parseHistoryRange accepts RFC 3339 timestamps or bare dates. An empty
// range defaults to the last 30 days.
func parseHistoryRange(fromStr, toStr string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	var err error
	if fromStr != "" {
		if from, err = parseTimeParam(fromStr); err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from: " + fromStr)
		}
	}
	if toStr != "" {
		if to, err = parseTimeParam(toStr); err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to: " + toStr)
		}
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, errors.New("from must be <= to")
	}
	return from, to, nil
}

func parseTimeParam(s string) (time.Time, error) {
	if t, ok := xhttp.ParseTime(s); ok {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
