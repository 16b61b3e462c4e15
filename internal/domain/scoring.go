package domain

import "math"

// PnLPercent devuelve el P&L direccional en porcentaje.
// BUY gana cuando el precio sube; SELL es el espejo.
//
// Fórmula: (price - entry) / entry × 100 × sign(action)
func PnLPercent(action Action, entry, price float64) float64 {
	if entry <= 0 {
		return 0
	}
	return (price - entry) / entry * 100 * action.Sign()
}

// StopLossPercent calcula el stop en % a partir del ATR, acotado a [minPct, maxPct].
//
// Fórmula: clamp(atrPct × multiple, minPct, maxPct)
func StopLossPercent(atrPct, multiple, minPct, maxPct float64) float64 {
	return clamp(atrPct*multiple, minPct, maxPct)
}

// TargetPercent deriva el target del stop con el múltiplo R:R preferido,
// limitado por maxTargetPct. El R:R resultante puede quedar por debajo del
// preferido cuando el cap actúa; el caller debe validarlo con RiskReward.
func TargetPercent(stopPct, preferredRR, maxTargetPct float64) float64 {
	t := stopPct * preferredRR
	if maxTargetPct > 0 && t > maxTargetPct {
		t = maxTargetPct
	}
	return t
}

// RiskReward devuelve target% / stop%. 0 si stop% no es positivo.
func RiskReward(targetPct, stopPct float64) float64 {
	if stopPct <= 0 {
		return 0
	}
	return targetPct / stopPct
}

// PullbackPercent es el retroceso para una entrada LIMIT: la mitad del
// movimiento de la última hora, acotado a [minPct, maxPct].
func PullbackPercent(change1h, minPct, maxPct float64) float64 {
	return clamp(math.Abs(change1h)/2, minPct, maxPct)
}

// LimitEntryPrice devuelve el precio de entrada tras un retroceso a favor del trade.
func LimitEntryPrice(action Action, price, pullbackPct float64) float64 {
	return price * (1 - action.Sign()*pullbackPct/100)
}

// PriceLevels devuelve target y stop absolutos para una entrada.
func PriceLevels(action Action, entry, targetPct, stopPct float64) (target, stop float64) {
	s := action.Sign()
	target = entry * (1 + s*targetPct/100)
	stop = entry * (1 - s*stopPct/100)
	return target, stop
}

// ExpectedHoursToTarget estima las horas hasta el target con la velocidad
// reciente del precio (%/h), acotado a [minHours, maxHours].
//
// Fórmula: targetPct / max(|24h|/24, |7d|/168, 0.05)
func ExpectedHoursToTarget(targetPct, change24h, change7d, minHours, maxHours float64) float64 {
	speed := math.Max(math.Abs(change24h)/24, math.Abs(change7d)/168)
	speed = math.Max(speed, 0.05)
	return clamp(targetPct/speed, minHours, maxHours)
}

// --- probability components ---

const (
	ScoreBase          = 40.0
	maxTrendScore      = 25.0
	maxRSIScore        = 15.0
	maxVolumeScore     = 10.0
	maxWhaleBonus      = 10.0
	whaleOpposePenalty = 15.0
	maxRankBonus       = 5.0
	volSweetSpotBonus  = 5.0

	rsiNeutralLow  = 45.0
	rsiNeutralHigh = 55.0
	rsiFadeWidth   = 20.0

	sweetSpotLow  = 2.0
	sweetSpotHigh = 6.0
)

// ScoreBreakdown keeps each weighted component of a probability score.
type ScoreBreakdown struct {
	Base       float64 `json:"base"`
	Trend      float64 `json:"trend"`
	RSI        float64 `json:"rsi"`
	Volume     float64 `json:"volume"`
	Whale      float64 `json:"whale"`
	Rank       float64 `json:"rank"`
	Volatility float64 `json:"volatility"`
}

// Total returns the sum clamped to [0, 100].
func (b ScoreBreakdown) Total() float64 {
	return clamp(b.Base+b.Trend+b.RSI+b.Volume+b.Whale+b.Rank+b.Volatility, 0, 100)
}

// TrendScore premia ventanas alineadas con la acción (5 pts cada una) más la
// magnitud del movimiento de 7d (hasta 10 pts).
func TrendScore(action Action, c CoinSnapshot) float64 {
	s := action.Sign()
	aligned := 0.0
	for _, ch := range []float64{c.Change24h, c.Change7d, c.Change30d} {
		if ch*s > 0 {
			aligned++
		}
	}
	magnitude := 0.0
	if c.Change7d*s > 0 {
		magnitude = math.Min(math.Abs(c.Change7d), 20) / 2
	}
	return math.Min(aligned*5+magnitude, maxTrendScore)
}

// RSIScore da el máximo dentro de la banda neutral 45–55 y decae linealmente
// hasta 0 a 20 puntos de distancia.
func RSIScore(rsi float64) float64 {
	if rsi <= 0 {
		return 0
	}
	var dist float64
	switch {
	case rsi < rsiNeutralLow:
		dist = rsiNeutralLow - rsi
	case rsi > rsiNeutralHigh:
		dist = rsi - rsiNeutralHigh
	}
	if dist >= rsiFadeWidth {
		return 0
	}
	return maxRSIScore * (1 - dist/rsiFadeWidth)
}

// VolumeScore confirma el movimiento con volumen relativo al market cap.
func VolumeScore(volMcap float64) float64 {
	switch {
	case volMcap >= 0.10:
		return maxVolumeScore
	case volMcap >= 0.05:
		return maxVolumeScore / 2
	}
	return 0
}

// WhaleScore suma un bonus proporcional a la confianza si las ballenas van a
// favor de la acción, y penaliza si van en contra con confianza ≥ opposeConfidence.
func WhaleScore(action Action, w WhaleSignal, opposeConfidence float64) float64 {
	switch {
	case w.AlignedWith(action):
		return maxWhaleBonus * clamp(w.Confidence, 0, 100) / 100
	case w.Opposes(action) && w.Confidence >= opposeConfidence:
		return -whaleOpposePenalty
	}
	return 0
}

// RankBonus favorece los activos de mayor capitalización.
func RankBonus(rank int) float64 {
	switch {
	case rank <= 0:
		return 0
	case rank <= 5:
		return maxRankBonus
	case rank <= 10:
		return 3
	case rank <= 20:
		return 1
	}
	return 0
}

// VolatilityBonus premia un ATR% dentro del sweet spot [2, 6].
func VolatilityBonus(atrPct float64) float64 {
	if atrPct >= sweetSpotLow && atrPct <= sweetSpotHigh {
		return volSweetSpotBonus
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if hi > lo && v > hi {
		return hi
	}
	return v
}
