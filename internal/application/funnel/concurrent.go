package funnel

// concurrent.go: worker pool para evaluar los activos en paralelo.
//
// Cada evaluación puede esperar al colaborador de ballenas (red), así que se
// reparten entre workers. El resultado se escribe por índice: el orden de
// salida es el de entrada, nunca el de finalización.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

// evaluateConcurrent evalúa todas las monedas con un pool de workers.
// Si workers <= 0 usa runtime.NumCPU() × 2.
func evaluateConcurrent(
	ctx context.Context,
	f *Funnel,
	coins []domain.CoinSnapshot,
	regime domain.RegimeReading,
	workers int,
) []evaluation {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if workers > len(coins) {
		workers = len(coins)
	}

	results := make([]evaluation, len(coins))
	workCh := make(chan int, len(coins))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				results[idx] = f.evaluate(ctx, coins[idx], regime)
			}
		}()
	}

	for i := range coins {
		workCh <- i
	}
	close(workCh)
	wg.Wait()

	slog.Debug("funnel: concurrent evaluation complete",
		"coins", len(coins),
		"workers", workers,
	)
	return results
}
