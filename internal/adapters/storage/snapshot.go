package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

const snapshotColumns = `coin_id, symbol, name, price, market_cap, market_cap_rank,
       volume_24h, change_1h, change_24h, change_7d, change_30d, rsi_14, atr_14,
       volume_to_mcap`

// LatestSnapshot devuelve las monedas del último ciclo de ingestión dentro del
// universo pedido. Las monedas de q.CoinIDs se incluyen siempre.
// Ordenadas por rank y luego coin_id para que el resultado sea determinista.
func (s *SQLiteStorage) LatestSnapshot(ctx context.Context, q domain.UniverseQuery) (domain.MarketSnapshot, error) {
	var fetchedAt string
	err := s.db.QueryRowContext(ctx, `SELECT fetched_at FROM snapshot_meta WHERE id = 1`).Scan(&fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MarketSnapshot{}, ErrSnapshotUnavailable
	}
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("storage.LatestSnapshot: meta: %w", err)
	}

	snap := domain.MarketSnapshot{}
	if snap.FetchedAt, err = parseTime(fetchedAt); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("storage.LatestSnapshot: parse fetched_at: %w", err)
	}

	var (
		conds []string
		args  []any
	)
	if q.MaxRank > 0 {
		conds = append(conds, `(market_cap_rank BETWEEN 1 AND ? AND volume_24h > ?)`)
		args = append(args, q.MaxRank, q.MinVolume24h)
	}
	if len(q.CoinIDs) > 0 {
		ph := strings.TrimSuffix(strings.Repeat("?,", len(q.CoinIDs)), ",")
		conds = append(conds, `coin_id IN (`+ph+`)`)
		for _, id := range q.CoinIDs {
			args = append(args, id)
		}
	}
	if len(conds) == 0 {
		return snap, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+` FROM coin_snapshots
		WHERE `+strings.Join(conds, " OR ")+`
		ORDER BY CASE WHEN market_cap_rank > 0 THEN market_cap_rank ELSE 1000000 END, coin_id`,
		args...)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("storage.LatestSnapshot: query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.CoinSnapshot
		var name sql.NullString
		if err := rows.Scan(
			&c.ID, &c.Symbol, &name, &c.Price, &c.MarketCap, &c.MarketCapRank,
			&c.Volume24h, &c.Change1h, &c.Change24h, &c.Change7d, &c.Change30d,
			&c.RSI14, &c.ATR14, &c.VolumeToMcap,
		); err != nil {
			return domain.MarketSnapshot{}, fmt.Errorf("storage.LatestSnapshot: scan row: %w", err)
		}
		c.Name = name.String
		snap.Coins = append(snap.Coins, c)
	}
	if err := rows.Err(); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("storage.LatestSnapshot: rows: %w", err)
	}
	return snap, nil
}

// ReplaceSnapshot sustituye el snapshot completo en una transacción.
// Es el camino de escritura del job de ingestión; el engine nunca lo llama.
func (s *SQLiteStorage) ReplaceSnapshot(ctx context.Context, snap domain.MarketSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.ReplaceSnapshot: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM coin_snapshots`); err != nil {
		return fmt.Errorf("storage.ReplaceSnapshot: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO coin_snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.ReplaceSnapshot: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range snap.Coins {
		if c.ID == "" {
			return fmt.Errorf("storage.ReplaceSnapshot: %w: coin without id", ErrInvalidInput)
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Symbol, c.Name, c.Price, c.MarketCap, c.MarketCapRank,
			c.Volume24h, c.Change1h, c.Change24h, c.Change7d, c.Change30d,
			c.RSI14, c.ATR14, c.VolumeToMcap,
		); err != nil {
			return fmt.Errorf("storage.ReplaceSnapshot: insert %s: %w", c.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, fetched_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET fetched_at = excluded.fetched_at`,
		formatTime(snap.FetchedAt),
	); err != nil {
		return fmt.Errorf("storage.ReplaceSnapshot: meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.ReplaceSnapshot: commit: %w", err)
	}
	return nil
}
