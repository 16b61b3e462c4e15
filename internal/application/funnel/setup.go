package funnel

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

// evaluation es el resultado de pasar un activo por el funnel: una
// oportunidad, o el rechazo con la etapa donde salió.
type evaluation struct {
	stage domain.FunnelStage // etapa del rechazo; vacío si calificó
	opp   *domain.Opportunity
	rej   *domain.Rejection
}

func reject(c domain.CoinSnapshot, stage domain.FunnelStage, reasons ...string) evaluation {
	return evaluation{
		stage: stage,
		rej:   &domain.Rejection{CoinID: c.ID, Symbol: c.Symbol, Stage: stage, Reasons: reasons},
	}
}

// evaluate ejecuta filtros → setup → score para una moneda elegible.
func (f *Funnel) evaluate(ctx context.Context, c domain.CoinSnapshot, regime domain.RegimeReading) evaluation {
	action, why, ok := f.chooseAction(c, regime.Regime)
	if !ok {
		return reject(c, domain.StageFilter, why)
	}

	reasons := []string{why}
	var failed []string
	for _, ch := range f.filterChecks(c, action, regime.Regime) {
		if ch.ok {
			reasons = append(reasons, ch.reason)
		} else {
			failed = append(failed, ch.reason)
		}
	}
	if len(failed) > 0 {
		return reject(c, domain.StageFilter, failed...)
	}

	opp, err := f.buildSetup(c, action)
	if err != nil {
		return reject(c, domain.StageSetup, err.Error())
	}
	reasons = append(reasons, fmt.Sprintf("%s entry %.6g, target %+.2f%%, stop -%.2f%%, R:R %.2f",
		opp.EntryType, opp.EntryPrice, opp.TargetPct, opp.StopPct, opp.RiskReward))

	opp.Whale = f.whaleSignal(ctx, c)
	opp.Breakdown = domain.ScoreBreakdown{
		Base:       domain.ScoreBase,
		Trend:      domain.TrendScore(action, c),
		RSI:        domain.RSIScore(c.RSI14),
		Volume:     domain.VolumeScore(c.VolumeMcapRatio()),
		Whale:      domain.WhaleScore(action, opp.Whale, f.cfg.WhaleOpposeConfidence),
		Rank:       domain.RankBonus(c.MarketCapRank),
		Volatility: domain.VolatilityBonus(c.ATRPercent()),
	}
	opp.Probability = round2(opp.Breakdown.Total())
	if opp.Probability < f.cfg.MinProbability {
		return reject(c, domain.StageScore,
			fmt.Sprintf("probability %.1f below minimum %.0f", opp.Probability, f.cfg.MinProbability))
	}
	if opp.Whale.Intent != domain.WhaleNeutral {
		reasons = append(reasons, fmt.Sprintf("whales %s (%.0f%% confidence)", opp.Whale.Intent, opp.Whale.Confidence))
	}
	reasons = append(reasons, fmt.Sprintf("probability %.1f", opp.Probability))

	opp.ExpectedHours = domain.ExpectedHoursToTarget(opp.TargetPct, c.Change24h, c.Change7d,
		f.cfg.MinExpectedHours, f.cfg.MaxExpectedHours)
	opp.Reasons = reasons
	return evaluation{opp: &opp}
}

// buildSetup calcula stop, target y entrada a partir del ATR.
func (f *Funnel) buildSetup(c domain.CoinSnapshot, action domain.Action) (domain.Opportunity, error) {
	atr := c.ATRPercent()
	stopPct := domain.StopLossPercent(atr, f.cfg.StopATRMultiple, f.cfg.MinStopPct, f.cfg.MaxStopPct)
	targetPct := domain.TargetPercent(stopPct, f.cfg.PreferredRR, f.cfg.MaxTargetPct)
	rr := domain.RiskReward(targetPct, stopPct)
	if rr < f.cfg.MinRiskReward {
		return domain.Opportunity{}, fmt.Errorf("risk/reward %.2f below minimum %.2f", rr, f.cfg.MinRiskReward)
	}

	entryType := domain.EntryImmediate
	entry := c.Price
	if math.Abs(c.Change1h) > f.cfg.NearEntry1h {
		entryType = domain.EntryLimit
		pullback := domain.PullbackPercent(c.Change1h, f.cfg.MinPullbackPct, f.cfg.MaxPullbackPct)
		entry = domain.LimitEntryPrice(action, c.Price, pullback)
	}
	target, stop := domain.PriceLevels(action, entry, targetPct, stopPct)

	return domain.Opportunity{
		Coin:        c,
		Action:      action,
		EntryType:   entryType,
		EntryPrice:  entry,
		TargetPrice: target,
		StopPrice:   stop,
		TargetPct:   round2(targetPct),
		StopPct:     round2(stopPct),
		RiskReward:  round2(rr),
	}, nil
}

// whaleSignal consulta el colaborador con timeout; cualquier fallo es neutral.
func (f *Funnel) whaleSignal(ctx context.Context, c domain.CoinSnapshot) domain.WhaleSignal {
	if f.whales == nil {
		return domain.NeutralWhale
	}
	if f.cfg.WhaleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.WhaleTimeout)
		defer cancel()
	}
	sig, err := f.whales.Intent(ctx, c)
	if err != nil {
		slog.Debug("funnel: whale intel unavailable", "coin", c.ID, "err", err)
		return domain.NeutralWhale
	}
	return sig
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
