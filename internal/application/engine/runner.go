package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/swingbot/internal/domain"
	"github.com/alejandrodnm/swingbot/internal/ports"
)

// minWait evita invocaciones en bucle cuando NextActionAt ya venció.
const minWait = time.Second

// Runner invoca el Engine periódicamente y notifica cada decisión.
type Runner struct {
	engine   *Engine
	notifier ports.Notifier
	interval time.Duration
}

// NewRunner crea un Runner con un intervalo máximo entre invocaciones.
func NewRunner(e *Engine, n ports.Notifier, interval time.Duration) *Runner {
	return &Runner{engine: e, notifier: n, interval: interval}
}

// Run invoca el engine hasta que ctx se cancele. Espera el intervalo, o menos
// si la decisión anterior pide actuar antes (fin de cooldown, timeout de entrada).
func (r *Runner) Run(ctx context.Context) error {
	slog.Info("runner starting", "interval", r.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("runner stopped")
			return nil
		case <-timer.C:
			wait := r.interval
			d, err := r.RunOnce(ctx)
			if err != nil {
				slog.Error("engine invocation failed", "err", err)
			} else if w := d.WaitFor(); w > 0 && w < wait {
				wait = max(w, minWait)
			}
			timer.Reset(wait)
		}
	}
}

// RunOnce ejecuta exactamente una invocación y notifica la decisión.
func (r *Runner) RunOnce(ctx context.Context) (*domain.Decision, error) {
	start := time.Now()
	d, err := r.engine.Decide(ctx)
	if err != nil {
		return nil, err
	}
	if r.notifier != nil {
		if err := r.notifier.NotifyDecision(ctx, d); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
	slog.Debug("invocation complete", "status", d.Status, "elapsed", time.Since(start).Round(time.Millisecond))
	return d, nil
}
