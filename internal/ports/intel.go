package ports

import (
	"context"
	"errors"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

// WhaleIntel classifies large-holder activity for one coin.
// Optional: the engine scores with a neutral signal when it is absent or fails.
type WhaleIntel interface {
	Intent(ctx context.Context, coin domain.CoinSnapshot) (domain.WhaleSignal, error)
}

// ErrRerankerUnavailable is returned by a Reranker that cannot answer.
var ErrRerankerUnavailable = errors.New("reranker unavailable")

// RerankContext is what the re-ranking collaborator sees besides the candidates.
type RerankContext struct {
	Regime      domain.RegimeReading `json:"regime"`
	Performance domain.Performance   `json:"performance"`
}

// RerankResult is the collaborator's answer. Selected indexes the candidate
// slice; RejectAll vetoes every candidate.
type RerankResult struct {
	Selected        int     `json:"selected_index"`
	RejectAll       bool    `json:"reject_all"`
	ScoreAdjustment float64 `json:"score_adjustment"`
	Rationale       string  `json:"rationale"`
}

// Reranker may reorder or veto the top-N opportunities. Any error, including
// a timeout, means the funnel's own ranking is used.
type Reranker interface {
	Rank(ctx context.Context, candidates []domain.Opportunity, rc RerankContext) (RerankResult, error)
}
