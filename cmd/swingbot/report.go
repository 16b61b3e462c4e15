package main

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/swingbot/internal/adapters/notify"
	"github.com/alejandrodnm/swingbot/internal/domain"
)

type tradeReader interface {
	ClosedTrades(ctx context.Context) ([]domain.TradeRecord, error)
	Trades(ctx context.Context, limit int) ([]domain.TradeRecord, error)
}

// printReport deriva la performance del ledger e imprime el historial.
func printReport(ctx context.Context, r tradeReader, c *notify.Console, limit int) error {
	closed, err := r.ClosedTrades(ctx)
	if err != nil {
		return fmt.Errorf("printReport: %w", err)
	}
	trades, err := r.Trades(ctx, limit)
	if err != nil {
		return fmt.Errorf("printReport: %w", err)
	}
	c.PrintReport(domain.DerivePerformance(closed), trades)
	return nil
}
