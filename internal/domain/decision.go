package domain

import "time"

// Decision is the single response of one engine invocation.
type Decision struct {
	Status      Status       `json:"status"`
	Mode        Mode         `json:"mode"`
	Regime      Regime       `json:"regime,omitempty"`
	Transitions []Transition `json:"transitions"`

	CoinID      string    `json:"coin_id,omitempty"`
	Symbol      string    `json:"symbol,omitempty"`
	Name        string    `json:"name,omitempty"`
	Action      Action    `json:"action,omitempty"`
	EntryType   EntryType `json:"entry_type,omitempty"`
	Price       float64   `json:"price,omitempty"`
	EntryPrice  float64   `json:"entry_price,omitempty"`
	TargetPrice float64   `json:"target_price,omitempty"`
	StopPrice   float64   `json:"stop_price,omitempty"`
	Probability float64   `json:"probability,omitempty"`

	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
	Reasoning   []string     `json:"reasoning"`

	NextActionAt *time.Time `json:"next_action_at,omitempty"`
	NextScanAt   *time.Time `json:"next_scan_at,omitempty"`

	Performance Performance    `json:"performance"`
	ActiveTrade *TradeRecord   `json:"active_trade,omitempty"`
	Progress    *TradeProgress `json:"progress,omitempty"`

	DecidedAt time.Time `json:"decided_at"`
}

// WaitFor returns how long until NextActionAt, or 0.
func (d Decision) WaitFor() time.Duration {
	if d.NextActionAt == nil {
		return 0
	}
	if w := d.NextActionAt.Sub(d.DecidedAt); w > 0 {
		return w
	}
	return 0
}

// WithTrade copies the trade identity and levels into the decision.
func (d *Decision) WithTrade(t TradeRecord) {
	d.CoinID = t.CoinID
	d.Symbol = t.Symbol
	d.Name = t.Name
	d.Action = t.Action
	d.EntryType = t.EntryType
	d.EntryPrice = t.EntryPrice
	d.TargetPrice = t.TargetPrice
	d.StopPrice = t.StopPrice
	d.Probability = t.Probability
	tc := t
	d.ActiveTrade = &tc
}
