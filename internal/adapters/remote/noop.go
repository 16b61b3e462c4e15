package remote

import (
	"context"
	"errors"

	"github.com/alejandrodnm/swingbot/internal/domain"
	"github.com/alejandrodnm/swingbot/internal/ports"
)

// ErrDisabled is returned by the disabled collaborators.
var ErrDisabled = errors.New("collaborator disabled")

// DisabledWhales is the whale collaborator when no endpoint is configured.
// It never fabricates a signal: every asset scores with a neutral whale.
type DisabledWhales struct{}

func (DisabledWhales) Intent(context.Context, domain.CoinSnapshot) (domain.WhaleSignal, error) {
	return domain.NeutralWhale, ErrDisabled
}

// NoopReranker always reports unavailable, so the funnel order is used.
type NoopReranker struct{}

func (NoopReranker) Rank(context.Context, []domain.Opportunity, ports.RerankContext) (ports.RerankResult, error) {
	return ports.RerankResult{}, ports.ErrRerankerUnavailable
}

// NoopRefresher ignores refresh requests (no ingestion endpoint configured).
type NoopRefresher struct{}

func (NoopRefresher) RequestRefresh(context.Context) error { return nil }
