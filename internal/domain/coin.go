package domain

import "time"

// CoinSnapshot is a point-in-time read of one tradable asset, produced by the
// external ingestion job. The engine never mutates it.
type CoinSnapshot struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	MarketCap     float64 `json:"market_cap"`
	MarketCapRank int     `json:"market_cap_rank"`
	Volume24h     float64 `json:"volume_24h"`
	Change1h      float64 `json:"change_1h"`  // %
	Change24h     float64 `json:"change_24h"` // %
	Change7d      float64 `json:"change_7d"`  // %
	Change30d     float64 `json:"change_30d"` // %
	RSI14         float64 `json:"rsi_14"`
	ATR14         float64 `json:"atr_14"` // absolute, same unit as Price
	VolumeToMcap  float64 `json:"volume_to_mcap"`
}

// ATRPercent returns ATR as a percentage of price. When the ingestion job did
// not provide ATR it falls back to half of the absolute 24h move.
func (c CoinSnapshot) ATRPercent() float64 {
	if c.Price <= 0 {
		return 0
	}
	if c.ATR14 > 0 {
		return c.ATR14 / c.Price * 100
	}
	return abs(c.Change24h) / 2
}

// VolumeMcapRatio returns the volume/market-cap ratio, computing it if the
// snapshot left it empty.
func (c CoinSnapshot) VolumeMcapRatio() float64 {
	if c.VolumeToMcap > 0 {
		return c.VolumeToMcap
	}
	if c.MarketCap <= 0 {
		return 0
	}
	return c.Volume24h / c.MarketCap
}

// MarketSnapshot is the latest ingestion cycle as read by the engine.
type MarketSnapshot struct {
	Coins     []CoinSnapshot `json:"coins"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Coin returns the snapshot of the given coin id, if present.
func (s MarketSnapshot) Coin(id string) (CoinSnapshot, bool) {
	for _, c := range s.Coins {
		if c.ID == id {
			return c, true
		}
	}
	return CoinSnapshot{}, false
}

// Age returns how old the snapshot is relative to now.
func (s MarketSnapshot) Age(now time.Time) time.Duration {
	if s.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(s.FetchedAt)
}

// UniverseQuery restricts which coins the snapshot reader returns.
// Coins listed in CoinIDs are always included regardless of rank or volume.
// A zero MaxRank returns only the coins in CoinIDs.
type UniverseQuery struct {
	MaxRank      int
	MinVolume24h float64
	CoinIDs      []string
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
