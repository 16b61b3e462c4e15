package notify

import (
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

// PrintReport imprime la performance derivada y el historial de trades.
func (c *Console) PrintReport(perf domain.Performance, trades []domain.TradeRecord) {
	if perf.TotalTrades == 0 && perf.NotExecuted == 0 && len(trades) == 0 {
		fmt.Fprintln(c.out, "\n  No trades yet.")
		return
	}

	fmt.Fprintln(c.out, "\n=== PERFORMANCE ===")
	fmt.Fprintf(c.out, "  Trades:       %d (%d won, %d lost, %d not executed)\n",
		perf.TotalTrades, perf.SuccessfulTrades, perf.FailedTrades, perf.NotExecuted)
	fmt.Fprintf(c.out, "  Accuracy:     %.1f%%\n", perf.AccuracyPct)
	fmt.Fprintf(c.out, "  Total P&L:    %+.2f%%  (avg %+.2f%%, best %+.2f%%, worst %+.2f%%)\n",
		perf.TotalPnLPct, perf.AvgPnLPct, perf.BestPnLPct, perf.WorstPnLPct)
	fmt.Fprintf(c.out, "  Loss streak:  %d\n", perf.ConsecutiveLosses)
	if perf.LastClosedAt != nil {
		fmt.Fprintf(c.out, "  Last close:   %s (%s)\n", perf.LastClosedAt.Format("2006-01-02 15:04"), perf.LastResult)
	}

	if len(trades) == 0 {
		return
	}
	fmt.Fprintln(c.out)
	c.printTrades(trades)
}

func (c *Console) printTrades(trades []domain.TradeRecord) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Opened", "Coin", "Side", "Entry", "Target", "Stop", "Prob", "Result", "Exit", "P&L")

	for _, t := range trades {
		exit, pnl := "-", "-"
		if t.ClosedAt != nil {
			exit = price(t.ExitPrice)
			pnl = fmt.Sprintf("%+.2f%%", t.ProfitLossPct)
		} else if t.IsFilled() && t.LastPrice > 0 {
			pnl = fmt.Sprintf("%+.2f%% (open)", t.PnLPercent(t.LastPrice))
		}
		side := string(t.Action)
		if t.EntryType == domain.EntryLimit {
			side += " LMT"
		}
		table.Append(
			t.CreatedAt.Format("01-02 15:04"),
			t.Symbol,
			side,
			price(t.EntryPrice),
			price(t.TargetPrice),
			price(t.StopPrice),
			fmt.Sprintf("%.0f", t.Probability),
			string(t.Result),
			exit,
			pnl,
		)
	}
	table.Render()
}
