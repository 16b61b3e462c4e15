package domain

// Regime is the coarse directional classification of the market.
type Regime string

const (
	RegimeTrendingUp   Regime = "TRENDING_UP"
	RegimeDipInUptrend Regime = "DIP_IN_UPTREND"
	RegimeTrendingDown Regime = "TRENDING_DOWN"
	RegimeChoppy       Regime = "CHOPPY"
)

// IsBullish returns true for the regimes where BUY setups are taken.
func (r Regime) IsBullish() bool {
	return r == RegimeTrendingUp || r == RegimeDipInUptrend
}

const (
	dipThreshold24h = -1.5 // avg 24h at or below this inside an uptrend = dip
	pullbackMin30d  = 5.0  // 30d strength that turns a soft 7d into a dip
	pullbackFloor7d = -5.0
)

// RegimeReading is the classifier output with the averaged inputs that produced it.
type RegimeReading struct {
	Regime    Regime  `json:"regime"`
	Avg24h    float64 `json:"avg_24h"`
	Avg7d     float64 `json:"avg_7d"`
	Avg30d    float64 `json:"avg_30d"`
	Reference int     `json:"reference_assets"` // how many reference assets were present
}

// ClassifyRegime derives the regime from the reference assets' multi-window
// momentum. Missing references are skipped; with none present the market is CHOPPY.
func ClassifyRegime(refs ...*CoinSnapshot) RegimeReading {
	var r RegimeReading
	for _, c := range refs {
		if c == nil {
			continue
		}
		r.Avg24h += c.Change24h
		r.Avg7d += c.Change7d
		r.Avg30d += c.Change30d
		r.Reference++
	}
	if r.Reference == 0 {
		r.Regime = RegimeChoppy
		return r
	}
	n := float64(r.Reference)
	r.Avg24h /= n
	r.Avg7d /= n
	r.Avg30d /= n

	switch {
	case r.Avg30d > 0 && r.Avg7d > 0:
		if r.Avg24h <= dipThreshold24h {
			r.Regime = RegimeDipInUptrend
		} else {
			r.Regime = RegimeTrendingUp
		}
	case r.Avg30d >= pullbackMin30d && r.Avg7d <= 0 && r.Avg7d > pullbackFloor7d:
		r.Regime = RegimeDipInUptrend
	case r.Avg30d < 0 && r.Avg7d < 0:
		r.Regime = RegimeTrendingDown
	default:
		r.Regime = RegimeChoppy
	}
	return r
}
