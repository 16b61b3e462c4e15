package domain

import "time"

// Action is the direction of a trade.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Sign returns +1 for BUY and -1 for SELL, used to mirror P&L and distances.
func (a Action) Sign() float64 {
	if a == ActionSell {
		return -1
	}
	return 1
}

// EntryType says whether a trade enters at the current price or waits for a pullback.
type EntryType string

const (
	EntryImmediate EntryType = "IMMEDIATE"
	EntryLimit     EntryType = "LIMIT"
)

// TradeResult is the lifecycle field of a TradeRecord. PENDING is the only
// non-terminal value; a closed record is never reopened.
type TradeResult string

const (
	ResultPending     TradeResult = "PENDING"
	ResultSuccess     TradeResult = "SUCCESS"
	ResultFailed      TradeResult = "FAILED"
	ResultNotExecuted TradeResult = "NOT_EXECUTED"
)

// IsTerminal returns true for every result except PENDING.
func (r TradeResult) IsTerminal() bool {
	switch r {
	case ResultSuccess, ResultFailed, ResultNotExecuted:
		return true
	}
	return false
}

// Executed returns true if the trade actually entered the market.
func (r TradeResult) Executed() bool {
	return r == ResultSuccess || r == ResultFailed
}

// TradeRecord is one row per trade attempt in the ledger.
type TradeRecord struct {
	ID              string      `json:"id"`
	CoinID          string      `json:"coin_id"`
	Symbol          string      `json:"symbol"`
	Name            string      `json:"name"`
	Action          Action      `json:"action"`
	EntryType       EntryType   `json:"entry_type"`
	EntryPrice      float64     `json:"entry_price"`
	TargetPrice     float64     `json:"target_price"`
	StopPrice       float64     `json:"stop_price"`
	Probability     float64     `json:"probability"`
	Regime          Regime      `json:"regime"`
	Mode            Mode        `json:"mode"`
	Reasoning       string      `json:"reasoning"`
	Result          TradeResult `json:"result"`
	CreatedAt       time.Time   `json:"created_at"`
	FilledAt        *time.Time  `json:"filled_at,omitempty"`
	ClosedAt        *time.Time  `json:"closed_at,omitempty"`
	LastMonitoredAt *time.Time  `json:"last_monitored_at,omitempty"`
	LastPrice       float64     `json:"last_price"`
	ExitPrice       float64     `json:"exit_price"`
	ProfitLossPct   float64     `json:"profit_loss_pct"`
}

// IsFilled returns true once the entry has executed.
func (t TradeRecord) IsFilled() bool {
	return t.FilledAt != nil
}

// PnLPercent returns the directional P&L in percent at the given price.
func (t TradeRecord) PnLPercent(price float64) float64 {
	return PnLPercent(t.Action, t.EntryPrice, price)
}

// TargetReached reports whether price has reached the target in the trade's direction.
func (t TradeRecord) TargetReached(price float64) bool {
	if t.Action == ActionSell {
		return price <= t.TargetPrice
	}
	return price >= t.TargetPrice
}

// StopReached reports whether price has reached or breached the stop.
func (t TradeRecord) StopReached(price float64) bool {
	if t.Action == ActionSell {
		return price >= t.StopPrice
	}
	return price <= t.StopPrice
}

// EntryCrossed reports whether a limit entry would have filled at price.
func (t TradeRecord) EntryCrossed(price float64) bool {
	if t.Action == ActionSell {
		return price >= t.EntryPrice
	}
	return price <= t.EntryPrice
}

// TradeClose is the terminal transition of a PENDING record.
type TradeClose struct {
	ID            string
	Result        TradeResult
	ClosedAt      time.Time
	ExitPrice     float64
	ProfitLossPct float64
}

// TradeProgress is the live view of an open trade reported by the monitor.
type TradeProgress struct {
	CurrentPrice     float64       `json:"current_price"`
	Filled           bool          `json:"filled"`
	PnLPct           float64       `json:"pnl_pct"`
	DistanceToTarget float64       `json:"distance_to_target_pct"`
	DistanceToStop   float64       `json:"distance_to_stop_pct"`
	Elapsed          time.Duration `json:"elapsed"`
	EntryTimeoutLeft time.Duration `json:"entry_timeout_left,omitempty"`
	PriceAvailable   bool          `json:"price_available"`
}
