package domain

import (
	"fmt"
	"time"
)

// Mode is the operating mode persisted in the system state row.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// ParseMode devuelve el modo para s, o paper si s no es reconocido.
func ParseMode(s string) Mode {
	if Mode(s) == ModeLive {
		return ModeLive
	}
	return ModePaper
}

// SystemState is the single mutable row owned by the decision engine.
type SystemState struct {
	Mode       Mode       `json:"mode"`
	LastScanAt *time.Time `json:"last_scan_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Status is one of the seven engine states.
type Status string

const (
	StatusWaiting           Status = "WAITING"
	StatusTradeReady        Status = "TRADE_READY"
	StatusTradeActive       Status = "TRADE_ACTIVE"
	StatusTradeClosed       Status = "TRADE_CLOSED"
	StatusNotExecuted       Status = "NOT_EXECUTED"
	StatusCooldown          Status = "COOLDOWN"
	StatusCapitalProtection Status = "CAPITAL_PROTECTION"
)

// transitions is the explicit state machine. Self-loops are the states an
// invocation may report repeatedly while nothing changes.
var transitions = map[Status][]Status{
	StatusWaiting:           {StatusWaiting, StatusTradeReady},
	StatusTradeReady:        {StatusTradeReady, StatusTradeActive, StatusNotExecuted},
	StatusTradeActive:       {StatusTradeActive, StatusTradeClosed},
	StatusTradeClosed:       {StatusCooldown, StatusCapitalProtection, StatusWaiting},
	StatusNotExecuted:       {StatusCooldown, StatusCapitalProtection, StatusWaiting},
	StatusCooldown:          {StatusCooldown, StatusWaiting},
	StatusCapitalProtection: {StatusCapitalProtection, StatusWaiting},
}

// CanTransition reports whether the state machine allows from → to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition is one edge taken by an invocation.
type Transition struct {
	From Status `json:"from"`
	To   Status `json:"to"`
}

// TransitionError is returned when an edge is not in the table.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s", e.From, e.To)
}

// RestingState derives the state implied by the ledger before an invocation
// acts: the open trade's state, the last close, or WAITING on an empty ledger.
func RestingState(active *TradeRecord, perf Performance) Status {
	if active != nil {
		if active.IsFilled() {
			return StatusTradeActive
		}
		return StatusTradeReady
	}
	switch perf.LastResult {
	case ResultSuccess, ResultFailed:
		return StatusTradeClosed
	case ResultNotExecuted:
		return StatusNotExecuted
	}
	return StatusWaiting
}
