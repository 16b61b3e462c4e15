package domain

import (
	"sort"
	"time"
)

// Performance holds the derived counters. It is never stored: every invocation
// recomputes it from the closed rows of the ledger with DerivePerformance.
type Performance struct {
	TotalTrades       int         `json:"total_trades"` // SUCCESS + FAILED
	SuccessfulTrades  int         `json:"successful_trades"`
	FailedTrades      int         `json:"failed_trades"`
	NotExecuted       int         `json:"not_executed"`
	AccuracyPct       float64     `json:"accuracy_pct"`
	ConsecutiveLosses int         `json:"consecutive_losses"`
	TotalPnLPct       float64     `json:"total_pnl_pct"`
	AvgPnLPct         float64     `json:"avg_pnl_pct"`
	BestPnLPct        float64     `json:"best_pnl_pct"`
	WorstPnLPct       float64     `json:"worst_pnl_pct"`
	LastResult        TradeResult `json:"last_result,omitempty"`
	LastClosedAt      *time.Time  `json:"last_closed_at,omitempty"`
	// LastExecutedAt is the close time of the most recent SUCCESS or FAILED.
	LastExecutedAt     *time.Time  `json:"last_executed_at,omitempty"`
	LastExecutedResult TradeResult `json:"last_executed_result,omitempty"`
}

// DerivePerformance is a pure function of the closed trades. PENDING rows are
// ignored; the input is not modified. NOT_EXECUTED closes are neutral for the
// loss streak.
func DerivePerformance(trades []TradeRecord) Performance {
	closed := make([]TradeRecord, 0, len(trades))
	for _, t := range trades {
		if t.Result.IsTerminal() && t.ClosedAt != nil {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		ci, cj := *closed[i].ClosedAt, *closed[j].ClosedAt
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return closed[i].ID < closed[j].ID
	})

	var p Performance
	for _, t := range closed {
		closedAt := *t.ClosedAt
		p.LastResult = t.Result
		p.LastClosedAt = &closedAt

		switch t.Result {
		case ResultNotExecuted:
			p.NotExecuted++
			continue
		case ResultSuccess:
			p.SuccessfulTrades++
			p.ConsecutiveLosses = 0
		case ResultFailed:
			p.FailedTrades++
			p.ConsecutiveLosses++
		}

		if p.TotalTrades == 0 || t.ProfitLossPct > p.BestPnLPct {
			p.BestPnLPct = t.ProfitLossPct
		}
		if p.TotalTrades == 0 || t.ProfitLossPct < p.WorstPnLPct {
			p.WorstPnLPct = t.ProfitLossPct
		}
		p.TotalTrades++
		p.TotalPnLPct += t.ProfitLossPct
		p.LastExecutedAt = &closedAt
		p.LastExecutedResult = t.Result
	}

	if p.TotalTrades > 0 {
		p.AccuracyPct = float64(p.SuccessfulTrades) / float64(p.TotalTrades) * 100
		p.AvgPnLPct = p.TotalPnLPct / float64(p.TotalTrades)
	}
	return p
}
