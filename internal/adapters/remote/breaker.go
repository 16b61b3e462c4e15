package remote

import (
	"errors"
	"time"

	cb "github.com/sony/gobreaker"
)

// newBreaker abre el circuito tras 3 fallos seguidos o >50% de fallos con
// al menos 10 llamadas en la ventana. Medio abierto tras cooldown.
func newBreaker(name string, cooldown time.Duration) *cb.CircuitBreaker {
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	st := cb.Settings{
		Name:     name,
		Interval: 5 * time.Minute,
		Timeout:  cooldown,
	}
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 10 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.5
	}
	return cb.NewCircuitBreaker(st)
}

// breakerOpen reports whether err comes from the breaker refusing the call.
func breakerOpen(err error) bool {
	return errors.Is(err, cb.ErrOpenState) || errors.Is(err, cb.ErrTooManyRequests)
}
