package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/swingbot/internal/adapters/storage"
	"github.com/alejandrodnm/swingbot/internal/application/funnel"
	"github.com/alejandrodnm/swingbot/internal/domain"
	"github.com/alejandrodnm/swingbot/internal/ports"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	t   *testing.T
	db  *storage.SQLiteStorage
	clk *clock
	eng *Engine
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()
	db, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "swing.db"), "paper")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clk := &clock{now: t0}
	opts = append([]Option{WithClock(clk.Now)}, opts...)
	eng := New(cfg, db, db, funnel.New(funnel.DefaultConfig(), nil), opts...)
	return &harness{t: t, db: db, clk: clk, eng: eng}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DecisionTimeout = 5 * time.Second
	return cfg
}

// setMarket publica un snapshot fresco con las referencias (que no califican) más coins.
func (h *harness) setMarket(coins ...domain.CoinSnapshot) {
	h.t.Helper()
	all := append([]domain.CoinSnapshot{refCoin("bitcoin", 1), refCoin("ethereum", 2)}, coins...)
	require.NoError(h.t, h.db.ReplaceSnapshot(context.Background(),
		domain.MarketSnapshot{Coins: all, FetchedAt: h.clk.Now()}))
}

func (h *harness) decide() *domain.Decision {
	h.t.Helper()
	d, err := h.eng.Decide(context.Background())
	require.NoError(h.t, err)
	require.NotNil(h.t, d)
	return d
}

func (h *harness) seedTrade(tr domain.TradeRecord) {
	h.t.Helper()
	require.NoError(h.t, h.db.CreateTrade(context.Background(), tr))
}

func (h *harness) seedClosed(id string, result domain.TradeResult, closedAt time.Time, pnl float64) {
	h.t.Helper()
	tr := filledBuy(id, "solana", 100, 110, 95)
	tr.CreatedAt = closedAt.Add(-6 * time.Hour)
	h.seedTrade(tr)
	require.NoError(h.t, h.db.CloseTrade(context.Background(), domain.TradeClose{
		ID: id, Result: result, ClosedAt: closedAt, ProfitLossPct: pnl,
	}))
}

// refCoin define un TRENDING_UP pero con RSI sobrecomprado: nunca califica.
func refCoin(id string, rank int) domain.CoinSnapshot {
	c := candidate(id, rank, 100)
	c.RSI14 = 78
	return c
}

// candidate califica en TRENDING_UP con entrada inmediata, stop 4.5% y target 13.5%.
func candidate(id string, rank int, price float64) domain.CoinSnapshot {
	return domain.CoinSnapshot{
		ID: id, Symbol: id[:3], Name: id,
		Price: price, MarketCap: 50e9, MarketCapRank: rank, Volume24h: 5e9,
		Change1h: 0.2, Change24h: 1.5, Change7d: 8, Change30d: 15,
		RSI14: 52, ATR14: price * 0.03,
	}
}

func priced(id string, price float64) domain.CoinSnapshot {
	return candidate(id, 5, price)
}

func filledBuy(id, coin string, entry, target, stop float64) domain.TradeRecord {
	filled := t0
	return domain.TradeRecord{
		ID: id, CoinID: coin, Symbol: "SOL", Name: "Solana",
		Action: domain.ActionBuy, EntryType: domain.EntryImmediate,
		EntryPrice: entry, TargetPrice: target, StopPrice: stop,
		Probability: 80, Regime: domain.RegimeTrendingUp,
		CreatedAt: t0, FilledAt: &filled,
	}
}

func transitions(pairs ...domain.Status) []domain.Transition {
	out := []domain.Transition{}
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.Transition{From: pairs[i], To: pairs[i+1]})
	}
	return out
}

func TestEngine_OpensImmediateTrade(t *testing.T) {
	h := newHarness(t, testConfig())
	h.setMarket(candidate("solana", 5, 100))

	d := h.decide()
	assert.Equal(t, domain.StatusTradeActive, d.Status)
	assert.Equal(t, transitions(
		domain.StatusWaiting, domain.StatusTradeReady,
		domain.StatusTradeReady, domain.StatusTradeActive,
	), d.Transitions)
	assert.Equal(t, "solana", d.CoinID)
	assert.Equal(t, domain.ActionBuy, d.Action)
	assert.Equal(t, domain.RegimeTrendingUp, d.Regime)
	assert.InDelta(t, 113.5, d.TargetPrice, 1e-9)
	assert.InDelta(t, 95.5, d.StopPrice, 1e-9)
	require.NotNil(t, d.Diagnostics)
	assert.Equal(t, 1, d.Diagnostics.Qualified)

	active, err := h.db.ActiveTrade(context.Background())
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, active.IsFilled())
	assert.Equal(t, domain.ModePaper, active.Mode)
	assert.NotEmpty(t, active.Reasoning)
}

func TestEngine_LimitTradeReportsReady(t *testing.T) {
	h := newHarness(t, testConfig())
	c := candidate("solana", 5, 100)
	c.Change1h = 1.2
	h.setMarket(c)

	d := h.decide()
	assert.Equal(t, domain.StatusTradeReady, d.Status)
	assert.Equal(t, domain.EntryLimit, d.EntryType)
	assert.InDelta(t, 99.4, d.EntryPrice, 1e-9)
	require.NotNil(t, d.NextActionAt)
	assert.Equal(t, t0.Add(24*time.Hour), *d.NextActionAt)

	active, err := h.db.ActiveTrade(context.Background())
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.False(t, active.IsFilled())
}

func TestEngine_ExitOnTarget(t *testing.T) {
	h := newHarness(t, testConfig())
	h.seedTrade(filledBuy("t1", "solana", 100, 110, 95))

	for _, p := range []float64{101, 108} {
		h.clk.Advance(time.Hour)
		h.setMarket(priced("solana", p))
		d := h.decide()
		assert.Equal(t, domain.StatusTradeActive, d.Status)
		require.NotNil(t, d.Progress)
		assert.InDelta(t, p-100, d.Progress.PnLPct, 1e-6)
	}

	h.clk.Advance(time.Hour)
	h.setMarket(priced("solana", 111))
	d := h.decide()
	assert.Equal(t, domain.StatusTradeClosed, d.Status)
	assert.Equal(t, transitions(domain.StatusTradeActive, domain.StatusTradeClosed), d.Transitions)
	require.NotNil(t, d.ActiveTrade)
	assert.Equal(t, domain.ResultSuccess, d.ActiveTrade.Result)
	assert.InDelta(t, 111.0, d.ActiveTrade.ExitPrice, 1e-9)
	assert.InDelta(t, 11.0, d.ActiveTrade.ProfitLossPct, 1e-6)
	assert.Equal(t, 1, d.Performance.SuccessfulTrades)
	require.NotNil(t, d.NextActionAt)
	assert.Equal(t, h.clk.Now().Add(2*time.Hour), *d.NextActionAt)

	closed, err := h.db.ClosedTrades(context.Background())
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, domain.ResultSuccess, closed[0].Result)

	// siguiente invocación: cooldown tras ganar
	h.clk.Advance(time.Minute)
	d = h.decide()
	assert.Equal(t, domain.StatusCooldown, d.Status)
	assert.Equal(t, transitions(domain.StatusTradeClosed, domain.StatusCooldown), d.Transitions)
}

func TestEngine_ExitOnStop(t *testing.T) {
	h := newHarness(t, testConfig())
	h.seedTrade(filledBuy("t1", "solana", 100, 110, 95))

	for _, p := range []float64{101, 96} {
		h.clk.Advance(time.Hour)
		h.setMarket(priced("solana", p))
		assert.Equal(t, domain.StatusTradeActive, h.decide().Status, "price %.0f", p)
	}

	h.clk.Advance(time.Hour)
	h.setMarket(priced("solana", 94))
	d := h.decide()
	assert.Equal(t, domain.StatusTradeClosed, d.Status)
	require.NotNil(t, d.ActiveTrade)
	assert.Equal(t, domain.ResultFailed, d.ActiveTrade.Result)
	assert.InDelta(t, 94.0, d.ActiveTrade.ExitPrice, 1e-9)
	assert.InDelta(t, -6.0, d.ActiveTrade.ProfitLossPct, 1e-6)
	assert.Equal(t, 1, d.Performance.ConsecutiveLosses)
	require.NotNil(t, d.NextActionAt)
	assert.Equal(t, h.clk.Now().Add(4*time.Hour), *d.NextActionAt)
}

func TestEngine_ProgressOnOpenTrade(t *testing.T) {
	h := newHarness(t, testConfig())
	h.seedTrade(filledBuy("t1", "solana", 100, 110, 95))
	h.clk.Advance(3 * time.Hour)
	h.setMarket(priced("solana", 105))

	d := h.decide()
	require.NotNil(t, d.Progress)
	assert.True(t, d.Progress.PriceAvailable)
	assert.InDelta(t, 5.0, d.Progress.PnLPct, 1e-6)
	assert.InDelta(t, 4.7619, d.Progress.DistanceToTarget, 1e-4)
	assert.InDelta(t, 9.5238, d.Progress.DistanceToStop, 1e-4)
	assert.Equal(t, 3*time.Hour, d.Progress.Elapsed)

	active, err := h.db.ActiveTrade(context.Background())
	require.NoError(t, err)
	require.NotNil(t, active.LastMonitoredAt)
	assert.InDelta(t, 105.0, active.LastPrice, 1e-9)
}

func TestEngine_MissingPriceLeavesTradeUntouched(t *testing.T) {
	h := newHarness(t, testConfig())
	h.seedTrade(filledBuy("t1", "solana", 100, 110, 95))
	h.setMarket() // solo referencias

	d := h.decide()
	assert.Equal(t, domain.StatusTradeActive, d.Status)
	require.NotNil(t, d.Progress)
	assert.False(t, d.Progress.PriceAvailable)

	active, err := h.db.ActiveTrade(context.Background())
	require.NoError(t, err)
	assert.Nil(t, active.LastMonitoredAt)
}

func TestEngine_LimitFill(t *testing.T) {
	h := newHarness(t, testConfig())
	tr := filledBuy("t1", "solana", 99, 110, 95)
	tr.EntryType, tr.FilledAt = domain.EntryLimit, nil
	h.seedTrade(tr)

	h.clk.Advance(time.Hour)
	h.setMarket(priced("solana", 99.5))
	d := h.decide()
	assert.Equal(t, domain.StatusTradeReady, d.Status)
	assert.Empty(t, d.Transitions)
	require.NotNil(t, d.Progress)
	assert.Equal(t, 23*time.Hour, d.Progress.EntryTimeoutLeft)

	h.clk.Advance(time.Hour)
	h.setMarket(priced("solana", 98.7))
	d = h.decide()
	assert.Equal(t, domain.StatusTradeActive, d.Status)
	assert.Equal(t, transitions(domain.StatusTradeReady, domain.StatusTradeActive), d.Transitions)

	active, err := h.db.ActiveTrade(context.Background())
	require.NoError(t, err)
	require.NotNil(t, active.FilledAt)
	assert.Equal(t, t0.Add(2*time.Hour), *active.FilledAt)
}

func TestEngine_LimitEntryTimeout(t *testing.T) {
	h := newHarness(t, testConfig())
	tr := filledBuy("t1", "solana", 90, 100, 87)
	tr.EntryType, tr.FilledAt = domain.EntryLimit, nil
	h.seedTrade(tr)

	h.clk.Advance(23 * time.Hour)
	h.setMarket(priced("solana", 95))
	assert.Equal(t, domain.StatusTradeReady, h.decide().Status)

	h.clk.Advance(time.Hour)
	h.setMarket(priced("solana", 95))
	d := h.decide()
	assert.Equal(t, domain.StatusWaiting, d.Status)
	assert.Equal(t, transitions(
		domain.StatusTradeReady, domain.StatusNotExecuted,
		domain.StatusNotExecuted, domain.StatusWaiting,
	), d.Transitions)
	require.NotNil(t, d.ActiveTrade)
	assert.Equal(t, domain.ResultNotExecuted, d.ActiveTrade.Result)
	assert.Zero(t, d.ActiveTrade.ProfitLossPct)
	assert.Equal(t, 1, d.Performance.NotExecuted)
	assert.Zero(t, d.Performance.TotalTrades)

	// sin cooldown: la siguiente invocación ya escanea y abre
	h.clk.Advance(time.Minute)
	d = h.decide()
	assert.Equal(t, domain.StatusTradeActive, d.Status)
	assert.Equal(t, domain.StatusNotExecuted, d.Transitions[0].From)
}

func TestEngine_LimitCrossedAfterTimeoutIsNotExecuted(t *testing.T) {
	h := newHarness(t, testConfig())
	tr := filledBuy("t1", "solana", 90, 100, 87)
	tr.EntryType, tr.FilledAt = domain.EntryLimit, nil
	h.seedTrade(tr)

	// primera invocación 6h después del deadline, con el precio ya por debajo del límite
	h.clk.Advance(30 * time.Hour)
	h.setMarket(priced("solana", 89))
	d := h.decide()
	assert.Equal(t, domain.StatusWaiting, d.Status)
	assert.Equal(t, transitions(
		domain.StatusTradeReady, domain.StatusNotExecuted,
		domain.StatusNotExecuted, domain.StatusWaiting,
	), d.Transitions)
	require.NotNil(t, d.ActiveTrade)
	assert.Equal(t, domain.ResultNotExecuted, d.ActiveTrade.Result)
	assert.Nil(t, d.ActiveTrade.FilledAt)
	assert.Zero(t, d.ActiveTrade.ProfitLossPct)

	active, err := h.db.ActiveTrade(context.Background())
	require.NoError(t, err)
	assert.Nil(t, active)
}

func shortTrade(id string, entry, target, stop float64) domain.TradeRecord {
	tr := filledBuy(id, "solana", entry, target, stop)
	tr.Action, tr.Regime = domain.ActionSell, domain.RegimeTrendingDown
	return tr
}

func TestEngine_SellTrade(t *testing.T) {
	t.Run("limit fill then target", func(t *testing.T) {
		h := newHarness(t, testConfig())
		tr := shortTrade("t1", 102, 90, 106)
		tr.EntryType, tr.FilledAt = domain.EntryLimit, nil
		h.seedTrade(tr)

		h.clk.Advance(time.Hour)
		h.setMarket(priced("solana", 101.5))
		assert.Equal(t, domain.StatusTradeReady, h.decide().Status)

		h.clk.Advance(time.Hour)
		h.setMarket(priced("solana", 102.3))
		d := h.decide()
		assert.Equal(t, domain.StatusTradeActive, d.Status)
		assert.Equal(t, transitions(domain.StatusTradeReady, domain.StatusTradeActive), d.Transitions)
		require.NotNil(t, d.Progress)
		assert.Less(t, d.Progress.PnLPct, 0.0)

		h.clk.Advance(time.Hour)
		h.setMarket(priced("solana", 96.9))
		d = h.decide()
		assert.Equal(t, domain.StatusTradeActive, d.Status)
		require.NotNil(t, d.Progress)
		assert.InDelta(t, 5.0, d.Progress.PnLPct, 1e-6)

		h.clk.Advance(time.Hour)
		h.setMarket(priced("solana", 89.76))
		d = h.decide()
		assert.Equal(t, domain.StatusTradeClosed, d.Status)
		require.NotNil(t, d.ActiveTrade)
		assert.Equal(t, domain.ResultSuccess, d.ActiveTrade.Result)
		assert.InDelta(t, 12.0, d.ActiveTrade.ProfitLossPct, 1e-6)
		assert.Equal(t, 1, d.Performance.SuccessfulTrades)
	})

	t.Run("stop breached above entry", func(t *testing.T) {
		h := newHarness(t, testConfig())
		h.seedTrade(shortTrade("t1", 100, 88, 104))

		h.clk.Advance(time.Hour)
		h.setMarket(priced("solana", 103))
		d := h.decide()
		assert.Equal(t, domain.StatusTradeActive, d.Status)
		require.NotNil(t, d.Progress)
		assert.InDelta(t, -3.0, d.Progress.PnLPct, 1e-6)

		h.clk.Advance(time.Hour)
		h.setMarket(priced("solana", 105))
		d = h.decide()
		assert.Equal(t, domain.StatusTradeClosed, d.Status)
		require.NotNil(t, d.ActiveTrade)
		assert.Equal(t, domain.ResultFailed, d.ActiveTrade.Result)
		assert.InDelta(t, 105.0, d.ActiveTrade.ExitPrice, 1e-9)
		assert.InDelta(t, -5.0, d.ActiveTrade.ProfitLossPct, 1e-6)
		assert.Equal(t, 1, d.Performance.ConsecutiveLosses)
	})
}

func TestEngine_Cooldown(t *testing.T) {
	tests := []struct {
		name   string
		result domain.TradeResult
		wait   time.Duration
	}{
		{"after win", domain.ResultSuccess, 2 * time.Hour},
		{"after loss", domain.ResultFailed, 4 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testConfig())
			h.setMarket(candidate("solana", 5, 100))
			closedAt := t0.Add(-time.Hour)
			h.seedClosed("c1", tt.result, closedAt, 3)

			d := h.decide()
			assert.Equal(t, domain.StatusCooldown, d.Status)
			require.NotNil(t, d.NextActionAt)
			assert.Equal(t, closedAt.Add(tt.wait), *d.NextActionAt)

			h.clk.Advance(tt.wait)
			h.setMarket(candidate("solana", 5, 100))
			d = h.decide()
			assert.Equal(t, domain.StatusTradeActive, d.Status)
		})
	}
}

func TestEngine_CapitalProtectionAndReset(t *testing.T) {
	h := newHarness(t, testConfig())
	h.seedClosed("c1", domain.ResultFailed, t0.Add(-3*time.Hour), -4)
	h.seedClosed("c2", domain.ResultFailed, t0.Add(-2*time.Hour), -4)
	h.seedClosed("c3", domain.ResultFailed, t0.Add(-time.Hour), -4)
	h.setMarket(candidate("solana", 5, 100))

	d := h.decide()
	assert.Equal(t, domain.StatusCapitalProtection, d.Status)
	assert.Equal(t, transitions(domain.StatusTradeClosed, domain.StatusCapitalProtection), d.Transitions)
	assert.Equal(t, 3, d.Performance.ConsecutiveLosses)
	require.NotNil(t, d.NextActionAt)
	assert.Equal(t, t0.Add(23*time.Hour), *d.NextActionAt)
	assert.Nil(t, d.Diagnostics, "no scan during protection")

	// ventana vencida: escanea y abre
	h.clk.Advance(23 * time.Hour)
	h.setMarket(candidate("solana", 5, 100))
	d = h.decide()
	assert.Equal(t, domain.StatusTradeActive, d.Status)

	// el trade llega a target: la racha vuelve a cero
	h.clk.Advance(time.Hour)
	h.setMarket(priced("solana", 114))
	d = h.decide()
	assert.Equal(t, domain.StatusTradeClosed, d.Status)
	assert.Equal(t, 0, d.Performance.ConsecutiveLosses)
	assert.Equal(t, 4, d.Performance.TotalTrades)
}

func TestEngine_ScanThrottleIsIdempotent(t *testing.T) {
	h := newHarness(t, testConfig())
	h.setMarket() // nada califica

	first := h.decide()
	assert.Equal(t, domain.StatusWaiting, first.Status)
	require.NotNil(t, first.Diagnostics)
	require.NotNil(t, first.NextScanAt)
	assert.Equal(t, t0.Add(30*time.Minute), *first.NextScanAt)

	h.clk.Advance(10 * time.Minute)
	second := h.decide()
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Transitions, second.Transitions)
	require.NotNil(t, second.NextScanAt)
	assert.Equal(t, *first.NextScanAt, *second.NextScanAt)
	assert.Nil(t, second.Diagnostics, "funnel not re-run")

	st, err := h.db.SystemState(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st.LastScanAt)
	assert.Equal(t, t0, *st.LastScanAt)
}

func TestEngine_ConcurrentInvocationsOpenOneTrade(t *testing.T) {
	for _, interval := range []time.Duration{30 * time.Minute, 0} {
		t.Run(fmt.Sprintf("interval=%s", interval), func(t *testing.T) {
			cfg := testConfig()
			cfg.ScanInterval = interval
			h := newHarness(t, cfg)
			h.setMarket(candidate("solana", 5, 100), candidate("cardano", 8, 100))

			var wg sync.WaitGroup
			errs := make(chan error, 12)
			for i := 0; i < 12; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := h.eng.Decide(context.Background())
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				assert.NoError(t, err)
			}

			trades, err := h.db.Trades(context.Background(), 0)
			require.NoError(t, err)
			pending := 0
			for _, tr := range trades {
				if tr.Result == domain.ResultPending {
					pending++
				}
			}
			assert.Equal(t, 1, pending)
			assert.Len(t, trades, 1)
		})
	}
}

func TestEngine_OfflineWithoutSnapshot(t *testing.T) {
	h := newHarness(t, testConfig())

	_, err := h.eng.Decide(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSystemOffline)
	assert.ErrorIs(t, err, ports.ErrSnapshotUnavailable)

	st, err := h.db.SystemState(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st.LastScanAt, "failed invocation must not consume the scan")
}

type fakeRefresher struct{ calls chan struct{} }

func (f *fakeRefresher) RequestRefresh(context.Context) error {
	f.calls <- struct{}{}
	return nil
}

func TestEngine_StaleSnapshotRequestsRefresh(t *testing.T) {
	ref := &fakeRefresher{calls: make(chan struct{}, 1)}
	h := newHarness(t, testConfig(), WithRefresher(ref))
	h.setMarket(candidate("solana", 5, 100))
	h.clk.Advance(20 * time.Minute)

	d := h.decide()
	assert.Equal(t, domain.StatusTradeActive, d.Status, "stale snapshot is still used")

	select {
	case <-ref.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh not requested")
	}
}

type fakeReranker struct {
	res   ports.RerankResult
	err   error
	delay time.Duration
	got   []domain.Opportunity
}

func (f *fakeReranker) Rank(ctx context.Context, c []domain.Opportunity, _ ports.RerankContext) (ports.RerankResult, error) {
	f.got = c
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ports.RerankResult{}, ctx.Err()
		}
	}
	return f.res, f.err
}

func TestEngine_Rerank(t *testing.T) {
	market := []domain.CoinSnapshot{candidate("solana", 5, 100), candidate("cardano", 8, 100)}

	t.Run("selects and adjusts within bounds", func(t *testing.T) {
		rr := &fakeReranker{res: ports.RerankResult{Selected: 1, ScoreAdjustment: -50, Rationale: "cleaner chart"}}
		h := newHarness(t, testConfig(), WithReranker(rr))
		h.setMarket(market...)

		d := h.decide()
		assert.Len(t, rr.got, 2)
		assert.Equal(t, "cardano", d.CoinID)
		// 92 - 10 (ajuste acotado)
		assert.InDelta(t, 82.0, d.Probability, 1e-9)
		assert.Contains(t, d.Reasoning, "re-rank: cleaner chart")
	})

	t.Run("reject all is zero opportunities", func(t *testing.T) {
		rr := &fakeReranker{res: ports.RerankResult{RejectAll: true, Rationale: "macro risk"}}
		h := newHarness(t, testConfig(), WithReranker(rr))
		h.setMarket(market...)

		d := h.decide()
		assert.Equal(t, domain.StatusWaiting, d.Status)
		require.NotNil(t, d.Diagnostics)
		vetoed := 0
		for _, r := range d.Diagnostics.Rejections {
			if r.Stage == domain.StageRerank {
				vetoed++
			}
		}
		assert.Equal(t, 2, vetoed)

		active, err := h.db.ActiveTrade(context.Background())
		require.NoError(t, err)
		assert.Nil(t, active)
	})

	t.Run("unavailable falls back to funnel order", func(t *testing.T) {
		rr := &fakeReranker{err: ports.ErrRerankerUnavailable}
		h := newHarness(t, testConfig(), WithReranker(rr))
		h.setMarket(market...)
		assert.Equal(t, "solana", h.decide().CoinID)
	})

	t.Run("timeout falls back to funnel order", func(t *testing.T) {
		cfg := testConfig()
		cfg.RerankTimeout = 20 * time.Millisecond
		rr := &fakeReranker{delay: time.Second, res: ports.RerankResult{Selected: 1}}
		h := newHarness(t, cfg, WithReranker(rr))
		h.setMarket(market...)
		assert.Equal(t, "solana", h.decide().CoinID)
	})
}
