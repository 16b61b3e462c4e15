package funnel

import (
	"fmt"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

// universeReasons devuelve por qué c queda fuera del universo elegible (vacío = elegible).
func (f *Funnel) universeReasons(c domain.CoinSnapshot) []string {
	var reasons []string
	if c.Price <= 0 {
		reasons = append(reasons, "no price")
	}
	if f.cfg.MaxRank > 0 && (c.MarketCapRank <= 0 || c.MarketCapRank > f.cfg.MaxRank) {
		reasons = append(reasons, fmt.Sprintf("rank %d outside top %d", c.MarketCapRank, f.cfg.MaxRank))
	}
	if c.Volume24h <= f.cfg.MinVolume24h {
		reasons = append(reasons, fmt.Sprintf("24h volume $%.0fM not above $%.0fM",
			c.Volume24h/1e6, f.cfg.MinVolume24h/1e6))
	}
	return reasons
}

// chooseAction decide la dirección según el régimen. En CHOPPY solo pasan
// los outliers direccionales claros.
func (f *Funnel) chooseAction(c domain.CoinSnapshot, regime domain.Regime) (domain.Action, string, bool) {
	switch {
	case regime.IsBullish():
		return domain.ActionBuy, fmt.Sprintf("BUY in %s", regime), true
	case regime == domain.RegimeTrendingDown:
		return domain.ActionSell, fmt.Sprintf("SELL in %s", regime), true
	}

	switch {
	case c.Change24h >= f.cfg.ChoppyMin24h && c.Change7d >= f.cfg.ChoppyMin7d:
		return domain.ActionBuy, fmt.Sprintf("BUY breakout in %s (24h %+.2f%%, 7d %+.2f%%)",
			regime, c.Change24h, c.Change7d), true
	case c.Change24h <= -f.cfg.ChoppyMin24h && c.Change7d <= -f.cfg.ChoppyMin7d:
		return domain.ActionSell, fmt.Sprintf("SELL breakdown in %s (24h %+.2f%%, 7d %+.2f%%)",
			regime, c.Change24h, c.Change7d), true
	}
	return "", fmt.Sprintf("no clear directional move in %s (24h %+.2f%%, 7d %+.2f%%)",
		regime, c.Change24h, c.Change7d), false
}

// check is one setup filter: ok plus a human-readable reason in both cases.
type check struct {
	ok     bool
	reason string
}

// filterChecks evalúa todos los filtros; no corta en el primer fallo para
// que los diagnósticos tengan la lista completa.
func (f *Funnel) filterChecks(c domain.CoinSnapshot, a domain.Action, regime domain.Regime) []check {
	return []check{
		f.trendCheck(c, a, regime),
		f.rsiCheck(c, a),
		f.volatilityCheck(c),
		f.volumeCheck(c),
		f.liquidityCheck(c),
	}
}

func (f *Funnel) trendCheck(c domain.CoinSnapshot, a domain.Action, regime domain.Regime) check {
	maxAdverse := f.cfg.MaxAdverse24h
	if regime == domain.RegimeDipInUptrend {
		maxAdverse = f.cfg.DipMaxAdverse24h
	}
	s := a.Sign()
	// con s = -1 las ventanas de SELL se leen como las de BUY
	ok := c.Change7d*s >= 0 && c.Change30d*s >= 0 && c.Change24h*s >= -maxAdverse
	windows := fmt.Sprintf("24h %+.2f%%, 7d %+.2f%%, 30d %+.2f%%", c.Change24h, c.Change7d, c.Change30d)
	if ok {
		return check{true, fmt.Sprintf("trend aligned with %s (%s)", a, windows)}
	}
	return check{false, fmt.Sprintf("trend against %s (%s)", a, windows)}
}

func (f *Funnel) rsiCheck(c domain.CoinSnapshot, a domain.Action) check {
	switch {
	case c.RSI14 <= 0:
		return check{true, "RSI unavailable"}
	case a == domain.ActionBuy && c.RSI14 >= f.cfg.RSIOverbought:
		return check{false, fmt.Sprintf("RSI %.1f overbought for BUY", c.RSI14)}
	case a == domain.ActionSell && c.RSI14 <= f.cfg.RSIOversold:
		return check{false, fmt.Sprintf("RSI %.1f oversold for SELL", c.RSI14)}
	}
	return check{true, fmt.Sprintf("RSI %.1f compatible with %s", c.RSI14, a)}
}

func (f *Funnel) volatilityCheck(c domain.CoinSnapshot) check {
	atr := c.ATRPercent()
	src := "ATR"
	if c.ATR14 <= 0 {
		src = "est. ATR"
	}
	if atr < f.cfg.MinATRPct || atr > f.cfg.MaxATRPct {
		return check{false, fmt.Sprintf("%s %.2f%% outside [%.0f%%, %.0f%%]", src, atr, f.cfg.MinATRPct, f.cfg.MaxATRPct)}
	}
	return check{true, fmt.Sprintf("%s %.2f%% within band", src, atr)}
}

func (f *Funnel) volumeCheck(c domain.CoinSnapshot) check {
	r := c.VolumeMcapRatio()
	if r < f.cfg.MinVolMcap || r > f.cfg.MaxVolMcap {
		return check{false, fmt.Sprintf("volume/mcap %.3f outside [%.2f, %.2f]", r, f.cfg.MinVolMcap, f.cfg.MaxVolMcap)}
	}
	return check{true, fmt.Sprintf("volume/mcap %.3f", r)}
}

func (f *Funnel) liquidityCheck(c domain.CoinSnapshot) check {
	if c.MarketCap < f.cfg.MinMarketCap {
		return check{false, fmt.Sprintf("market cap $%.0fM below $%.0fM", c.MarketCap/1e6, f.cfg.MinMarketCap/1e6)}
	}
	return check{true, fmt.Sprintf("market cap $%.1fB", c.MarketCap/1e9)}
}
