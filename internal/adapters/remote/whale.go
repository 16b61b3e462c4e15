package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	cb "github.com/sony/gobreaker"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

type intentResponse struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Whales consulta GET {base}/intent?coin=<id> detrás de un circuit breaker.
type Whales struct {
	client  *Client
	breaker *cb.CircuitBreaker
}

// NewWhales crea el adaptador de whale intelligence.
func NewWhales(client *Client, breakerCooldown time.Duration) *Whales {
	return &Whales{client: client, breaker: newBreaker("whale-intel", breakerCooldown)}
}

// Intent implements ports.WhaleIntel. Unknown intents map to neutral and the
// confidence is clamped to [0, 100].
func (w *Whales) Intent(ctx context.Context, coin domain.CoinSnapshot) (domain.WhaleSignal, error) {
	out, err := w.breaker.Execute(func() (interface{}, error) {
		var resp intentResponse
		if err := w.client.get(ctx, "/intent?coin="+url.QueryEscape(coin.ID), &resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		if breakerOpen(err) {
			return domain.NeutralWhale, fmt.Errorf("remote.Intent %s: breaker open: %w", coin.ID, err)
		}
		return domain.NeutralWhale, fmt.Errorf("remote.Intent %s: %w", coin.ID, err)
	}
	return toSignal(out.(intentResponse)), nil
}

func toSignal(r intentResponse) domain.WhaleSignal {
	var intent domain.WhaleIntent
	switch domain.WhaleIntent(strings.ToLower(strings.TrimSpace(r.Intent))) {
	case domain.WhaleAccumulating:
		intent = domain.WhaleAccumulating
	case domain.WhaleDistributing:
		intent = domain.WhaleDistributing
	default:
		return domain.NeutralWhale
	}
	conf := r.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 100 {
		conf = 100
	}
	return domain.WhaleSignal{Intent: intent, Confidence: conf}
}
