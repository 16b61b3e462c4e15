package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/alejandrodnm/swingbot/internal/domain"
	"github.com/alejandrodnm/swingbot/internal/ports"
)

// selection es la oportunidad elegida tras el re-ranking opcional.
type selection struct {
	opp       domain.Opportunity
	rationale string
}

// rerank consulta al colaborador con el top-N. Devuelve ok=false solo si el
// colaborador vetó todos los candidatos; cualquier fallo o timeout usa el
// orden del funnel.
func (e *Engine) rerank(ctx context.Context, opps []domain.Opportunity, rc ports.RerankContext) (selection, bool) {
	fallback := selection{opp: opps[0]}
	if e.reranker == nil || e.cfg.RerankTopN <= 0 {
		return fallback, true
	}

	top := opps[:min(len(opps), e.cfg.RerankTopN)]
	candidates := append([]domain.Opportunity(nil), top...)

	if e.cfg.RerankTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RerankTimeout)
		defer cancel()
	}

	res, err := e.reranker.Rank(ctx, candidates, rc)
	switch {
	case errors.Is(err, ports.ErrRerankerUnavailable):
		slog.Debug("engine: re-ranker unavailable, using funnel order", "err", err)
		return fallback, true
	case err != nil:
		slog.Warn("engine: re-ranker failed, using funnel order", "err", err)
		return fallback, true
	}

	if res.RejectAll {
		slog.Info("engine: re-ranker rejected all candidates", "rationale", res.Rationale)
		return selection{rationale: res.Rationale}, false
	}
	if res.Selected < 0 || res.Selected >= len(top) {
		slog.Warn("engine: re-ranker selected out of range, using funnel order", "selected", res.Selected)
		return fallback, true
	}

	pick := top[res.Selected]
	adj := math.Max(-e.cfg.MaxScoreAdjustment, math.Min(e.cfg.MaxScoreAdjustment, res.ScoreAdjustment))
	pick.Probability = math.Max(0, math.Min(100, pick.Probability+adj))

	slog.Info("engine: re-ranked",
		"selected", pick.Coin.ID,
		"index", res.Selected,
		"adjustment", adj,
	)
	return selection{opp: pick, rationale: res.Rationale}, true
}
