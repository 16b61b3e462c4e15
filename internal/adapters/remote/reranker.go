package remote

import (
	"context"
	"fmt"
	"time"

	cb "github.com/sony/gobreaker"

	"github.com/alejandrodnm/swingbot/internal/domain"
	"github.com/alejandrodnm/swingbot/internal/ports"
)

type rankRequest struct {
	Candidates  []domain.Opportunity `json:"candidates"`
	Regime      domain.RegimeReading `json:"regime"`
	Performance domain.Performance   `json:"performance"`
}

// Reranker envía el top-N al servicio de re-ranking (POST {base}/rank).
type Reranker struct {
	client  *Client
	breaker *cb.CircuitBreaker
}

// NewReranker crea el adaptador de re-ranking.
func NewReranker(client *Client, breakerCooldown time.Duration) *Reranker {
	return &Reranker{client: client, breaker: newBreaker("reranker", breakerCooldown)}
}

// Rank implements ports.Reranker. Any failure, an open breaker or an
// out-of-range selection is reported as ports.ErrRerankerUnavailable.
func (r *Reranker) Rank(ctx context.Context, candidates []domain.Opportunity, rc ports.RerankContext) (ports.RerankResult, error) {
	if len(candidates) == 0 {
		return ports.RerankResult{}, fmt.Errorf("remote.Rank: no candidates: %w", ports.ErrRerankerUnavailable)
	}

	out, err := r.breaker.Execute(func() (interface{}, error) {
		var res ports.RerankResult
		req := rankRequest{Candidates: candidates, Regime: rc.Regime, Performance: rc.Performance}
		if err := r.client.post(ctx, "/rank", req, &res); err != nil {
			return nil, err
		}
		if !res.RejectAll && (res.Selected < 0 || res.Selected >= len(candidates)) {
			return nil, fmt.Errorf("selected index %d out of range [0,%d)", res.Selected, len(candidates))
		}
		return res, nil
	})
	if err != nil {
		return ports.RerankResult{}, fmt.Errorf("remote.Rank: %v: %w", err, ports.ErrRerankerUnavailable)
	}
	return out.(ports.RerankResult), nil
}
