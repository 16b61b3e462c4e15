package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

const tradeColumns = `id, coin_id, symbol, name, action, entry_type, entry_price,
       target_price, stop_price, probability, regime, mode, reasoning, result,
       created_at, filled_at, closed_at, last_monitored_at, last_price,
       exit_price, profit_loss_pct`

// CreateTrade inserts a PENDING trade only if no other PENDING trade exists.
// The NOT EXISTS guard and the partial UNIQUE index both map to ErrActiveTradeExists.
func (s *SQLiteStorage) CreateTrade(ctx context.Context, t domain.TradeRecord) error {
	if t.ID == "" || t.CoinID == "" {
		return fmt.Errorf("storage.CreateTrade: %w: missing id or coin", ErrInvalidInput)
	}
	if t.Result != "" && t.Result != domain.ResultPending {
		return fmt.Errorf("storage.CreateTrade: %w: result %s", ErrInvalidInput, t.Result)
	}
	if t.Mode == "" {
		t.Mode = domain.ParseMode(s.defaultMode)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, coin_id, symbol, name, action, entry_type, entry_price,
		                    target_price, stop_price, probability, regime, mode, reasoning,
		                    result, created_at, filled_at, last_price)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'PENDING', ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM trades WHERE result = 'PENDING')`,
		t.ID, t.CoinID, t.Symbol, t.Name, string(t.Action), string(t.EntryType),
		t.EntryPrice, t.TargetPrice, t.StopPrice, t.Probability, string(t.Regime),
		string(t.Mode), t.Reasoning, formatTime(t.CreatedAt), formatTimePtr(t.FilledAt),
		t.LastPrice,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrActiveTradeExists
		}
		return fmt.Errorf("storage.CreateTrade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage.CreateTrade: rows affected: %w", err)
	}
	if n == 0 {
		return ErrActiveTradeExists
	}
	return nil
}

// ActiveTrade devuelve el trade PENDING, o nil si no hay ninguno.
func (s *SQLiteStorage) ActiveTrade(ctx context.Context) (*domain.TradeRecord, error) {
	trades, err := s.queryTrades(ctx, `
		SELECT `+tradeColumns+` FROM trades WHERE result = 'PENDING' LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("storage.ActiveTrade: %w", err)
	}
	if len(trades) == 0 {
		return nil, nil
	}
	return &trades[0], nil
}

// ClosedTrades returns every non-PENDING trade ordered by close time.
func (s *SQLiteStorage) ClosedTrades(ctx context.Context) ([]domain.TradeRecord, error) {
	trades, err := s.queryTrades(ctx, `
		SELECT `+tradeColumns+` FROM trades
		WHERE result != 'PENDING' AND closed_at IS NOT NULL
		ORDER BY closed_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.ClosedTrades: %w", err)
	}
	return trades, nil
}

// Trades returns the most recent trades first, up to limit (0 = all).
func (s *SQLiteStorage) Trades(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	q := `SELECT ` + tradeColumns + ` FROM trades ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	trades, err := s.queryTrades(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.Trades: %w", err)
	}
	return trades, nil
}

// MarkFilled records the entry fill of a PENDING trade.
func (s *SQLiteStorage) MarkFilled(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE trades SET filled_at = ?
		WHERE id = ? AND result = 'PENDING' AND filled_at IS NULL`,
		formatTime(at), id)
	if err != nil {
		return fmt.Errorf("storage.MarkFilled: %w", err)
	}
	return expectOneRow(res, "storage.MarkFilled")
}

// TouchTrade updates last-monitored time and last seen price of a PENDING trade.
func (s *SQLiteStorage) TouchTrade(ctx context.Context, id string, at time.Time, price float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE trades SET last_monitored_at = ?, last_price = ?
		WHERE id = ? AND result = 'PENDING'`,
		formatTime(at), price, id)
	if err != nil {
		return fmt.Errorf("storage.TouchTrade: %w", err)
	}
	return expectOneRow(res, "storage.TouchTrade")
}

// CloseTrade moves a PENDING trade to a terminal result. The WHERE clause
// makes the transition happen at most once.
func (s *SQLiteStorage) CloseTrade(ctx context.Context, c domain.TradeClose) error {
	if !c.Result.IsTerminal() {
		return fmt.Errorf("storage.CloseTrade: %w: result %q", ErrInvalidInput, c.Result)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE trades
		SET result = ?, closed_at = ?, exit_price = ?, profit_loss_pct = ?,
		    last_monitored_at = ?, last_price = CASE WHEN ? > 0 THEN ? ELSE last_price END
		WHERE id = ? AND result = 'PENDING'`,
		string(c.Result), formatTime(c.ClosedAt), c.ExitPrice, c.ProfitLossPct,
		formatTime(c.ClosedAt), c.ExitPrice, c.ExitPrice, c.ID)
	if err != nil {
		return fmt.Errorf("storage.CloseTrade: %w", err)
	}
	return expectOneRow(res, "storage.CloseTrade")
}

// --- helpers internos ---

func (s *SQLiteStorage) queryTrades(ctx context.Context, query string, args ...any) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var (
			t                            domain.TradeRecord
			name, regime, reasoning      sql.NullString
			action, entryType, mode, res string
			createdAt                    string
			filledAt, closedAt, lastMon  sql.NullString
		)
		if err := rows.Scan(
			&t.ID, &t.CoinID, &t.Symbol, &name, &action, &entryType, &t.EntryPrice,
			&t.TargetPrice, &t.StopPrice, &t.Probability, &regime, &mode, &reasoning, &res,
			&createdAt, &filledAt, &closedAt, &lastMon, &t.LastPrice,
			&t.ExitPrice, &t.ProfitLossPct,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		t.Name = name.String
		t.Regime = domain.Regime(regime.String)
		t.Reasoning = reasoning.String
		t.Action = domain.Action(action)
		t.EntryType = domain.EntryType(entryType)
		t.Mode = domain.Mode(mode)
		t.Result = domain.TradeResult(res)

		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", t.ID, err)
		}
		if t.FilledAt, err = parseNullTime(filledAt); err != nil {
			return nil, fmt.Errorf("parse filled_at of %s: %w", t.ID, err)
		}
		if t.ClosedAt, err = parseNullTime(closedAt); err != nil {
			return nil, fmt.Errorf("parse closed_at of %s: %w", t.ID, err)
		}
		if t.LastMonitoredAt, err = parseNullTime(lastMon); err != nil {
			return nil, fmt.Errorf("parse last_monitored_at of %s: %w", t.ID, err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// expectOneRow maps "no row updated" to ErrTradeNotPending.
func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrTradeNotPending)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
