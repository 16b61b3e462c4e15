package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/swingbot/internal/domain"
	"github.com/alejandrodnm/swingbot/internal/ports"
)

// monitor evalúa el trade PENDING contra el snapshot actual: fill de la
// entrada LIMIT, timeout de entrada y salida por target o stop. No hay
// ninguna otra condición de salida.
func (inv *invocation) monitor(ctx context.Context, t domain.TradeRecord) error {
	e, now := inv.e, inv.view.now

	snap, err := e.snapshot(ctx, domain.UniverseQuery{CoinIDs: []string{t.CoinID}}, now)
	if err != nil {
		return err
	}
	coin, hasPrice := snap.Coin(t.CoinID)
	price := coin.Price
	if price <= 0 {
		hasPrice = false
	}

	inv.d.WithTrade(t)
	inv.d.Regime = t.Regime

	if !t.IsFilled() {
		deadline := t.CreatedAt.Add(e.cfg.EntryTimeout)
		switch {
		// el timeout manda: un cruce visto después del deadline llega tarde
		case !now.Before(deadline):
			return inv.closeNotExecuted(ctx, t, price)

		case hasPrice && t.EntryCrossed(price):
			if err := e.ledger.MarkFilled(ctx, t.ID, now); err != nil {
				return raceOrOffline("mark filled", err)
			}
			filledAt := now
			t.FilledAt = &filledAt
			inv.d.WithTrade(t)
			if err := inv.moveTo(domain.StatusTradeActive); err != nil {
				return err
			}
			inv.reason("limit entry %.6g filled at %.6g", t.EntryPrice, price)
			slog.Info("engine: limit entry filled", "id", t.ID, "coin", t.CoinID, "price", price)
			// sigue a la evaluación de salida con el mismo precio

		default:
			if err := inv.moveTo(domain.StatusTradeReady); err != nil {
				return err
			}
			inv.d.NextActionAt = &deadline
			inv.d.Progress = e.progress(t, price, hasPrice, now)
			if hasPrice {
				inv.d.Price = price
				if err := e.ledger.TouchTrade(ctx, t.ID, now, price); err != nil {
					return raceOrOffline("touch trade", err)
				}
				inv.reason("waiting for %s limit %.6g (price %.6g), %s left",
					t.Action, t.EntryPrice, price, deadline.Sub(now).Round(time.Minute))
			} else {
				inv.reason("no price for %s in snapshot; limit still pending", t.CoinID)
			}
			return nil
		}
	}

	if err := inv.moveTo(domain.StatusTradeActive); err != nil {
		return err
	}
	if !hasPrice {
		// sin precio el trade queda intacto
		inv.d.Progress = e.progress(t, 0, false, now)
		inv.reason("no price for %s in snapshot; trade left untouched", t.CoinID)
		return nil
	}
	inv.d.Price = price

	switch {
	case t.TargetReached(price):
		return inv.closeExecuted(ctx, t, domain.ResultSuccess, price)
	case t.StopReached(price):
		return inv.closeExecuted(ctx, t, domain.ResultFailed, price)
	}

	if err := e.ledger.TouchTrade(ctx, t.ID, now, price); err != nil {
		return raceOrOffline("touch trade", err)
	}
	inv.d.Progress = e.progress(t, price, true, now)
	inv.reason("%s %s at %.6g: P&L %+.2f%%, %.2f%% to target, %.2f%% to stop",
		t.Action, t.Symbol, price, inv.d.Progress.PnLPct,
		inv.d.Progress.DistanceToTarget, inv.d.Progress.DistanceToStop)
	return nil
}

// closeExecuted cierra un trade llenado en target (SUCCESS) o stop (FAILED).
func (inv *invocation) closeExecuted(ctx context.Context, t domain.TradeRecord, result domain.TradeResult, price float64) error {
	now := inv.view.now
	pnl := round4(t.PnLPercent(price))
	if err := inv.e.ledger.CloseTrade(ctx, domain.TradeClose{
		ID: t.ID, Result: result, ClosedAt: now, ExitPrice: price, ProfitLossPct: pnl,
	}); err != nil {
		return raceOrOffline("close trade", err)
	}
	if err := inv.moveTo(domain.StatusTradeClosed); err != nil {
		return err
	}

	closed := inv.applyClose(t, result, now, price, pnl)
	inv.d.WithTrade(closed)

	// próxima acción: fin del cooldown o de la protección, lo que sea más tarde
	next, _ := inv.e.cooldownUntil(inv.d.Performance, now)
	if until, ok := inv.e.protectionUntil(inv.d.Performance, now); ok && until.After(next) {
		next = until
	}
	if next.Before(now) {
		next = now
	}
	inv.d.NextActionAt = &next

	what := "target"
	if result == domain.ResultFailed {
		what = "stop"
	}
	inv.reason("%s hit at %.6g: closed %s with P&L %+.2f%%", what, price, result, pnl)
	slog.Info("engine: trade closed",
		"id", t.ID, "coin", t.CoinID, "result", result, "exit", price, "pnl_pct", pnl)
	return nil
}

// closeNotExecuted cierra un LIMIT que no se llenó a tiempo: P&L cero, sin cooldown.
func (inv *invocation) closeNotExecuted(ctx context.Context, t domain.TradeRecord, price float64) error {
	now := inv.view.now
	if err := inv.e.ledger.CloseTrade(ctx, domain.TradeClose{
		ID: t.ID, Result: domain.ResultNotExecuted, ClosedAt: now, ExitPrice: price,
	}); err != nil {
		return raceOrOffline("close not executed", err)
	}
	if err := inv.moveTo(domain.StatusNotExecuted); err != nil {
		return err
	}
	inv.d.WithTrade(inv.applyClose(t, domain.ResultNotExecuted, now, price, 0))
	inv.reason("limit entry %.6g not filled within %s: not executed", t.EntryPrice, inv.e.cfg.EntryTimeout)
	slog.Info("engine: limit entry expired", "id", t.ID, "coin", t.CoinID)

	if err := inv.moveTo(domain.StatusWaiting); err != nil {
		return err
	}
	next, throttled := inv.e.nextScan(inv.view.state.LastScanAt, now)
	if !throttled {
		next = now
	}
	inv.d.NextScanAt = &next
	inv.d.NextActionAt = &next
	return nil
}

// applyClose devuelve la copia cerrada del trade y recalcula la performance
// con el nuevo cierre incluido.
func (inv *invocation) applyClose(t domain.TradeRecord, result domain.TradeResult, at time.Time, price, pnl float64) domain.TradeRecord {
	closedAt := at
	t.Result = result
	t.ClosedAt = &closedAt
	t.ExitPrice = price
	t.ProfitLossPct = pnl
	if price > 0 {
		t.LastPrice = price
	}
	history := append(append([]domain.TradeRecord(nil), inv.view.closed...), t)
	inv.d.Performance = domain.DerivePerformance(history)
	return t
}

// progress calcula la vista en vivo del trade.
func (e *Engine) progress(t domain.TradeRecord, price float64, hasPrice bool, now time.Time) *domain.TradeProgress {
	p := &domain.TradeProgress{
		Filled:         t.IsFilled(),
		PriceAvailable: hasPrice,
		Elapsed:        now.Sub(t.CreatedAt),
	}
	if t.FilledAt != nil {
		p.Elapsed = now.Sub(*t.FilledAt)
	} else if left := t.CreatedAt.Add(e.cfg.EntryTimeout).Sub(now); left > 0 {
		p.EntryTimeoutLeft = left
	}
	if !hasPrice || price <= 0 {
		return p
	}
	s := t.Action.Sign()
	p.CurrentPrice = price
	if p.Filled {
		p.PnLPct = round4(t.PnLPercent(price))
	}
	p.DistanceToTarget = round4((t.TargetPrice - price) / price * 100 * s)
	p.DistanceToStop = round4((price - t.StopPrice) / price * 100 * s)
	return p
}

// raceOrOffline: ErrTradeNotPending significa que otra invocación cambió el
// trade; cualquier otro error deja el sistema offline.
func raceOrOffline(step string, err error) error {
	if errors.Is(err, ports.ErrTradeNotPending) {
		return errLostRace
	}
	return offline(step, err)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
