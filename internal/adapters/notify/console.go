package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

// Format selecciona cómo se imprime cada decisión.
type Format string

const (
	FormatCompact Format = "compact" // una línea por invocación
	FormatTable   Format = "table"   // detalle con tabla de rechazos
	FormatJSON    Format = "json"    // la Decision tal cual
)

// ParseFormat devuelve el formato para s, o compact si no se reconoce.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(s)) {
	case FormatTable:
		return FormatTable
	case FormatJSON:
		return FormatJSON
	}
	return FormatCompact
}

// Console implementa ports.Notifier.
type Console struct {
	out    io.Writer
	format Format
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(format Format) *Console {
	return &Console{out: os.Stdout, format: format}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, format Format) *Console {
	return &Console{out: w, format: format}
}

// NotifyDecision imprime la decisión en el formato configurado.
func (c *Console) NotifyDecision(_ context.Context, d *domain.Decision) error {
	if d == nil {
		return nil
	}
	switch c.format {
	case FormatJSON:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("notify.NotifyDecision: encode: %w", err)
		}
	case FormatTable:
		c.printFull(d)
	default:
		c.printCompact(d)
	}
	return nil
}

// printCompact imprime lo esencial en una o dos líneas.
func (c *Console) printCompact(d *domain.Decision) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s][%s] %s", d.DecidedAt.Format("15:04:05"), strings.ToUpper(string(d.Mode)), d.Status)
	if d.Regime != "" {
		fmt.Fprintf(&sb, " | %s", d.Regime)
	}

	switch d.Status {
	case domain.StatusTradeReady, domain.StatusTradeActive:
		fmt.Fprintf(&sb, " | %s %s entry %s tgt %s stop %s p%.0f",
			d.Action, d.Symbol, price(d.EntryPrice), price(d.TargetPrice), price(d.StopPrice), d.Probability)
		if p := d.Progress; p != nil && p.PriceAvailable && p.Filled {
			fmt.Fprintf(&sb, " | now %s P&L %+.2f%%", price(p.CurrentPrice), p.PnLPct)
		}
	case domain.StatusTradeClosed, domain.StatusNotExecuted:
		if t := d.ActiveTrade; t != nil {
			fmt.Fprintf(&sb, " | %s %s %s at %s P&L %+.2f%%",
				t.Action, t.Symbol, t.Result, price(t.ExitPrice), t.ProfitLossPct)
		}
	case domain.StatusWaiting:
		if dg := d.Diagnostics; dg != nil {
			fmt.Fprintf(&sb, " | %d scanned, %d qualified", dg.Scanned, dg.Qualified)
		}
	}

	if w := d.WaitFor(); w > 0 {
		fmt.Fprintf(&sb, " | next in %s", w.Round(time.Minute))
	}
	fmt.Fprintf(&sb, " | W%d/L%d streak %d",
		d.Performance.SuccessfulTrades, d.Performance.FailedTrades, d.Performance.ConsecutiveLosses)

	if len(d.Reasoning) > 0 {
		fmt.Fprintf(&sb, "\n  >> %s", d.Reasoning[len(d.Reasoning)-1])
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la decisión completa: camino, trade, razonamiento y rechazos.
func (c *Console) printFull(d *domain.Decision) {
	fmt.Fprintf(c.out, "\n[%s] %s (%s)", d.DecidedAt.Format("2006-01-02 15:04:05"), d.Status, d.Mode)
	if d.Regime != "" {
		fmt.Fprintf(c.out, " regime %s", d.Regime)
	}
	fmt.Fprintln(c.out)

	if len(d.Transitions) > 0 {
		steps := make([]string, 0, len(d.Transitions)+1)
		steps = append(steps, string(d.Transitions[0].From))
		for _, t := range d.Transitions {
			steps = append(steps, string(t.To))
		}
		fmt.Fprintf(c.out, "  path: %s\n", strings.Join(steps, " → "))
	}

	if d.CoinID != "" {
		fmt.Fprintf(c.out, "  %s %s (%s) %s entry %s | target %s | stop %s | probability %.1f\n",
			d.Action, d.Symbol, d.Name, d.EntryType,
			price(d.EntryPrice), price(d.TargetPrice), price(d.StopPrice), d.Probability)
	}
	if p := d.Progress; p != nil {
		if !p.PriceAvailable {
			fmt.Fprintln(c.out, "  price: unavailable")
		} else {
			fmt.Fprintf(c.out, "  price %s | P&L %+.2f%% | to target %.2f%% | to stop %.2f%% | open %s\n",
				price(p.CurrentPrice), p.PnLPct, p.DistanceToTarget, p.DistanceToStop, p.Elapsed.Round(time.Minute))
		}
	}

	for _, r := range d.Reasoning {
		fmt.Fprintf(c.out, "  - %s\n", r)
	}

	if dg := d.Diagnostics; dg != nil {
		fmt.Fprintf(c.out, "  funnel: %d scanned → %d eligible → %d filters → %d setup → %d qualified\n",
			dg.Scanned, dg.Eligible, dg.PassedFilters, dg.PassedSetup, dg.Qualified)
		c.printRejections(dg.Rejections)
	}

	if d.NextActionAt != nil {
		fmt.Fprintf(c.out, "  next action: %s (in %s)\n",
			d.NextActionAt.Format("2006-01-02 15:04"), d.WaitFor().Round(time.Minute))
	}
}

// printRejections excluye los rechazos de universo: son la mayoría y no aportan.
func (c *Console) printRejections(rejs []domain.Rejection) {
	rows := 0
	table := tablewriter.NewWriter(c.out)
	table.Header("Coin", "Stage", "Reasons")
	for _, r := range rejs {
		if r.Stage == domain.StageUniverse {
			continue
		}
		table.Append(r.Symbol, string(r.Stage), truncate(strings.Join(r.Reasons, "; "), 90))
		rows++
	}
	if rows > 0 {
		table.Render()
	}
}

// price formatea con más decimales cuanto menor es el precio.
func price(p float64) string {
	switch {
	case p == 0:
		return "-"
	case p >= 1000:
		return fmt.Sprintf("%.2f", p)
	case p >= 1:
		return fmt.Sprintf("%.4f", p)
	}
	return fmt.Sprintf("%.6g", p)
}

// truncate corta por runas, nunca en medio de un carácter multibyte.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:max(maxLen, 0)])
	}
	return string(r[:maxLen-3]) + "..."
}
