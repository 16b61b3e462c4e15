package engine

// transitions.go: los pasos de una invocación, en orden estricto.
//
// Cada paso lee la ledgerView y decide si la invocación termina ahí (done)
// o pasa al siguiente. Los cambios de estado solo ocurren vía moveTo, que
// valida cada arista contra la tabla de domain.CanTransition.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/swingbot/internal/domain"
	"github.com/alejandrodnm/swingbot/internal/ports"
)

type step func(ctx context.Context) (done bool, err error)

// invocation acumula la Decision mientras recorre los pasos.
type invocation struct {
	e       *Engine
	view    ledgerView
	current domain.Status
	d       *domain.Decision
}

// moveTo valida y registra la transición current → to. Los self-loops no se
// registran en el camino.
func (inv *invocation) moveTo(to domain.Status) error {
	if !domain.CanTransition(inv.current, to) {
		return &domain.TransitionError{From: inv.current, To: to}
	}
	if inv.current != to {
		inv.d.Transitions = append(inv.d.Transitions, domain.Transition{From: inv.current, To: to})
	}
	inv.current = to
	inv.d.Status = to
	return nil
}

func (inv *invocation) reason(format string, args ...any) {
	inv.d.Reasoning = append(inv.d.Reasoning, fmt.Sprintf(format, args...))
}

// guardActive: con un trade PENDING el control pasa entero al monitor.
func (inv *invocation) guardActive(ctx context.Context) (bool, error) {
	if inv.view.active == nil {
		return false, nil
	}
	return true, inv.monitor(ctx, *inv.view.active)
}

// checkProtection: racha de pérdidas ≥ umbral ⇒ CAPITAL_PROTECTION hasta que
// venza la ventana anclada al cierre del último trade ejecutado.
func (inv *invocation) checkProtection(context.Context) (bool, error) {
	until, active := inv.e.protectionUntil(inv.view.perf, inv.view.now)
	if !active {
		return false, nil
	}
	if err := inv.moveTo(domain.StatusCapitalProtection); err != nil {
		return true, err
	}
	inv.d.NextActionAt = &until
	inv.reason("%d consecutive losses: capital protection for %s more",
		inv.view.perf.ConsecutiveLosses, until.Sub(inv.view.now).Round(time.Minute))
	return true, nil
}

// checkCooldown: pausa corta tras un cierre; más larga tras una pérdida.
// Un NOT_EXECUTED no genera cooldown.
func (inv *invocation) checkCooldown(context.Context) (bool, error) {
	until, active := inv.e.cooldownUntil(inv.view.perf, inv.view.now)
	if !active {
		return false, nil
	}
	if err := inv.moveTo(domain.StatusCooldown); err != nil {
		return true, err
	}
	inv.d.NextActionAt = &until
	inv.reason("cooldown after %s: %s remaining",
		inv.view.perf.LastResult, until.Sub(inv.view.now).Round(time.Minute))
	return true, nil
}

// checkThrottle: sin escrituras; si el último scan es reciente devuelve WAITING.
func (inv *invocation) checkThrottle(context.Context) (bool, error) {
	if err := inv.moveTo(domain.StatusWaiting); err != nil {
		return true, err
	}
	next, throttled := inv.e.nextScan(inv.view.state.LastScanAt, inv.view.now)
	if !throttled {
		return false, nil
	}
	inv.d.NextScanAt = &next
	inv.d.NextActionAt = &next
	inv.reason("last scan %s ago; next scan in %s",
		inv.view.now.Sub(*inv.view.state.LastScanAt).Round(time.Second),
		next.Sub(inv.view.now).Round(time.Second))
	return true, nil
}

// scan lee el snapshot, reclama el scan (CAS sobre last_scan_at), corre el
// funnel y, si hay ganador, intenta crear el trade con compare-and-create.
func (inv *invocation) scan(ctx context.Context) (bool, error) {
	e, now := inv.e, inv.view.now

	snap, err := e.snapshot(ctx, e.funnel.Universe(e.cfg.ReferenceCoins...), now)
	if err != nil {
		return true, err
	}

	claimed, err := e.ledger.ClaimScan(ctx, now, e.cfg.ScanInterval)
	if err != nil {
		return true, offline("claim scan", err)
	}
	if !claimed {
		// otra invocación escaneó entre nuestra lectura y el CAS
		return true, inv.waitForConcurrentScan(ctx)
	}
	next := now.Add(e.cfg.ScanInterval)
	inv.d.NextScanAt = &next
	inv.d.NextActionAt = &next

	refs := make([]*domain.CoinSnapshot, 0, len(e.cfg.ReferenceCoins))
	for _, id := range e.cfg.ReferenceCoins {
		if c, ok := snap.Coin(id); ok {
			refs = append(refs, &c)
		}
	}
	regime := domain.ClassifyRegime(refs...)
	inv.d.Regime = regime.Regime

	res := e.funnel.Run(ctx, snap.Coins, regime)
	inv.d.Diagnostics = &res.Diagnostics
	inv.reason("regime %s (avg 24h %+.2f%%, 7d %+.2f%%, 30d %+.2f%%)",
		regime.Regime, regime.Avg24h, regime.Avg7d, regime.Avg30d)

	if len(res.Opportunities) == 0 {
		inv.reason("no opportunity qualified: %d scanned, %d eligible, %d passed filters, %d passed setup",
			res.Diagnostics.Scanned, res.Diagnostics.Eligible, res.Diagnostics.PassedFilters, res.Diagnostics.PassedSetup)
		return true, nil
	}

	pick, ok := e.rerank(ctx, res.Opportunities, ports.RerankContext{Regime: regime, Performance: inv.view.perf})
	if !ok {
		inv.d.Diagnostics.Rejections = append(inv.d.Diagnostics.Rejections, vetoRejections(res.Opportunities, e.cfg.RerankTopN)...)
		inv.reason("re-ranker rejected all %d candidates: %s", min(len(res.Opportunities), e.cfg.RerankTopN), pick.rationale)
		return true, nil
	}

	return true, inv.openTrade(ctx, pick, regime.Regime)
}

// waitForConcurrentScan relee el estado para informar la espera real.
func (inv *invocation) waitForConcurrentScan(ctx context.Context) error {
	st, err := inv.e.ledger.SystemState(ctx)
	if err != nil {
		return offline("read system state", err)
	}
	next, throttled := inv.e.nextScan(st.LastScanAt, inv.view.now)
	if throttled {
		inv.d.NextScanAt = &next
		inv.d.NextActionAt = &next
	}
	inv.reason("scan already performed by a concurrent invocation")
	return nil
}

// openTrade persiste el ganador. Perder la carrera de compare-and-create no
// es un error: se responde como si no hubiera oportunidad.
func (inv *invocation) openTrade(ctx context.Context, pick selection, regime domain.Regime) error {
	now, opp := inv.view.now, pick.opp

	reasons := append([]string(nil), opp.Reasons...)
	if pick.rationale != "" {
		reasons = append(reasons, "re-rank: "+pick.rationale)
	}
	t := domain.TradeRecord{
		ID:          inv.e.newID(),
		CoinID:      opp.Coin.ID,
		Symbol:      opp.Coin.Symbol,
		Name:        opp.Coin.Name,
		Action:      opp.Action,
		EntryType:   opp.EntryType,
		EntryPrice:  opp.EntryPrice,
		TargetPrice: opp.TargetPrice,
		StopPrice:   opp.StopPrice,
		Probability: opp.Probability,
		Regime:      regime,
		Mode:        inv.view.state.Mode,
		Reasoning:   strings.Join(reasons, "; "),
		Result:      domain.ResultPending,
		CreatedAt:   now,
		LastPrice:   opp.Coin.Price,
	}
	if opp.EntryType == domain.EntryImmediate {
		t.FilledAt = &now
	}

	if err := inv.e.ledger.CreateTrade(ctx, t); err != nil {
		if errors.Is(err, ports.ErrActiveTradeExists) {
			slog.Info("engine: trade creation aborted, another trade is active", "coin", t.CoinID)
			inv.reason("trade creation aborted: another trade became active")
			return nil
		}
		return offline("create trade", err)
	}

	if err := inv.moveTo(domain.StatusTradeReady); err != nil {
		return err
	}
	if t.IsFilled() {
		if err := inv.moveTo(domain.StatusTradeActive); err != nil {
			return err
		}
	}

	inv.d.WithTrade(t)
	inv.d.Price = opp.Coin.Price
	inv.d.NextScanAt = nil
	inv.d.NextActionAt = nil
	if !t.IsFilled() {
		deadline := now.Add(inv.e.cfg.EntryTimeout)
		inv.d.NextActionAt = &deadline
	}
	inv.d.Reasoning = append(inv.d.Reasoning, reasons...)

	slog.Info("engine: trade opened",
		"id", t.ID,
		"coin", t.CoinID,
		"action", t.Action,
		"entry_type", t.EntryType,
		"entry", t.EntryPrice,
		"target", t.TargetPrice,
		"stop", t.StopPrice,
		"probability", t.Probability,
	)
	return nil
}

// vetoRejections marca como rechazados en la etapa rerank los candidatos vetados.
func vetoRejections(opps []domain.Opportunity, topN int) []domain.Rejection {
	n := min(len(opps), topN)
	out := make([]domain.Rejection, 0, n)
	for _, o := range opps[:n] {
		out = append(out, domain.Rejection{
			CoinID: o.Coin.ID, Symbol: o.Coin.Symbol, Stage: domain.StageRerank,
			Reasons: []string{"vetoed by re-ranker"},
		})
	}
	return out
}

// --- reglas de tiempo ---

// protectionUntil devuelve el fin de la ventana de protección y si sigue activa.
func (e *Engine) protectionUntil(perf domain.Performance, now time.Time) (time.Time, bool) {
	if e.cfg.ProtectionThreshold <= 0 || perf.ConsecutiveLosses < e.cfg.ProtectionThreshold || perf.LastExecutedAt == nil {
		return time.Time{}, false
	}
	until := perf.LastExecutedAt.Add(e.cfg.ProtectionWindow)
	return until, now.Before(until)
}

// cooldownUntil depende del último cierre: SUCCESS o FAILED.
func (e *Engine) cooldownUntil(perf domain.Performance, now time.Time) (time.Time, bool) {
	if perf.LastClosedAt == nil {
		return time.Time{}, false
	}
	var d time.Duration
	switch perf.LastResult {
	case domain.ResultSuccess:
		d = e.cfg.CooldownAfterWin
	case domain.ResultFailed:
		d = e.cfg.CooldownAfterLoss
	default:
		return time.Time{}, false
	}
	until := perf.LastClosedAt.Add(d)
	return until, now.Before(until)
}

// nextScan devuelve cuándo toca el próximo scan y si ahora está limitado.
func (e *Engine) nextScan(lastScan *time.Time, now time.Time) (time.Time, bool) {
	if lastScan == nil {
		return now, false
	}
	next := lastScan.Add(e.cfg.ScanInterval)
	return next, now.Before(next)
}
