package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinTrader/internal/domain/models"
	pkgch "FinTrader/pkg/clickhouse"
	applogger "FinTrader/pkg/logger"
)

const (
	closedTable    = "trades_closed"
	decisionsTable = "decisions"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ` + closedTable + ` (
        symbol      LowCardinality(String),
        side        LowCardinality(String),
        entry_price Float64,
        exit_price  Float64,
        quantity    Float64,
        entry_time  DateTime64(3, 'UTC'),
        exit_time   DateTime64(3, 'UTC'),
        pnl         Float64,
        pnl_pct     Float64,
        reason      LowCardinality(String),
        confidence  Float64
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMM(exit_time)
    ORDER BY (symbol, exit_time)`,

	`CREATE TABLE IF NOT EXISTS ` + decisionsTable + ` (
        evaluation_id String,
        symbol        LowCardinality(String),
        direction     LowCardinality(String),
        score         Float64,
        max_score     Float64,
        confidence    Float64,
        approved      UInt8,
        reject_reason String,
        size          Float64,
        stop_loss     Float64,
        take_profit   Float64,
        risk_amount   Float64,
        created_at    DateTime64(3, 'UTC')
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMM(created_at)
    ORDER BY (symbol, created_at)`,
}

// CHTradeStore persists decisions and closed trades in ClickHouse.
type CHTradeStore struct {
	db *sql.DB
	ch *pkgch.Client
	l  *applogger.Logger
}

func NewCHTradeStore(ch *pkgch.Client) *CHTradeStore {
	return &CHTradeStore{db: ch.DB(), ch: ch}
}

// SetLogger injects a structured logger.
func (s *CHTradeStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHTradeStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, schemaStatements)
}

func (s *CHTradeStore) StoreClosed(ctx context.Context, cp *models.ClosedPosition) error {
	q := `INSERT INTO ` + closedTable + ` (symbol, side, entry_price, exit_price, quantity,
        entry_time, exit_time, pnl, pnl_pct, reason, confidence)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		cp.Symbol,
		cp.Side,
		cp.EntryPrice,
		cp.ExitPrice,
		cp.Quantity,
		cp.EntryTime,
		cp.ExitTime,
		cp.PnL,
		cp.PnLPct,
		cp.Reason,
		cp.Confidence,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse closed trade insert error",
				applogger.String("symbol", cp.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store closed trade: %w", err)
	}
	return nil
}

func (s *CHTradeStore) StoreDecision(ctx context.Context, sig *models.Signal, o *models.Order) error {
	approved := uint8(0)
	if o.Approved {
		approved = 1
	}
	q := `INSERT INTO ` + decisionsTable + ` (evaluation_id, symbol, direction, score, max_score,
        confidence, approved, reject_reason, size, stop_loss, take_profit, risk_amount, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		sig.EvaluationID,
		sig.Symbol,
		string(sig.Direction),
		sig.Score,
		sig.MaxScore,
		sig.Confidence,
		approved,
		o.Reason,
		o.Size,
		o.StopLoss,
		o.TakeProfit,
		o.RiskAmount,
		sig.Timestamp,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse decision insert error",
				applogger.String("symbol", sig.Symbol),
				applogger.String("evaluation_id", sig.EvaluationID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store decision: %w", err)
	}
	return nil
}

func (s *CHTradeStore) QueryClosed(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.ClosedPosition, error) {
	q := `SELECT symbol, side, entry_price, exit_price, quantity, entry_time, exit_time,
        pnl, pnl_pct, reason, confidence
        FROM ` + closedTable + `
        WHERE exit_time >= ? AND exit_time <= ?`
	args := []interface{}{from, to}
	if symbol != "" {
		q += ` AND symbol = ?`
		args = append(args, symbol)
	}
	q += ` ORDER BY exit_time DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse closed trade query error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query closed trades: %w", err)
	}
	defer rows.Close()

	out := make([]*models.ClosedPosition, 0, limit)
	for rows.Next() {
		var cp models.ClosedPosition
		if err := rows.Scan(
			&cp.Symbol,
			&cp.Side,
			&cp.EntryPrice,
			&cp.ExitPrice,
			&cp.Quantity,
			&cp.EntryTime,
			&cp.ExitTime,
			&cp.PnL,
			&cp.PnLPct,
			&cp.Reason,
			&cp.Confidence,
		); err != nil {
			return nil, fmt.Errorf("scan closed trade: %w", err)
		}
		out = append(out, &cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHTradeStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHTradeStore) Close() error {
	return s.ch.Close()
}
