package funnel

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/swingbot/internal/domain"
	"github.com/alejandrodnm/swingbot/internal/ports"
)

// Config contiene los umbrales del funnel. Porcentajes en puntos (2 = 2%).
type Config struct {
	// Universo
	MaxRank      int
	MinVolume24h float64
	MinMarketCap float64

	// Filtros
	MaxAdverse24h    float64 // máximo movimiento 24h en contra tolerado
	DipMaxAdverse24h float64 // idem en DIP_IN_UPTREND
	ChoppyMin24h     float64 // movimiento mínimo para operar en CHOPPY
	ChoppyMin7d      float64
	RSIOverbought    float64
	RSIOversold      float64
	MinATRPct        float64
	MaxATRPct        float64
	MinVolMcap       float64
	MaxVolMcap       float64

	// Setup
	StopATRMultiple float64
	MinStopPct      float64
	MaxStopPct      float64
	PreferredRR     float64
	MaxTargetPct    float64
	MinRiskReward   float64
	NearEntry1h     float64 // |1h| ≤ esto ⇒ entrada IMMEDIATE
	MinPullbackPct  float64
	MaxPullbackPct  float64

	// Score
	MinProbability        float64
	WhaleOpposeConfidence float64
	MinExpectedHours      float64
	MaxExpectedHours      float64

	Workers      int           // goroutines de evaluación (0 = NumCPU*2)
	WhaleTimeout time.Duration // por activo
}

// DefaultConfig devuelve los umbrales por defecto.
func DefaultConfig() Config {
	return Config{
		MaxRank:      30,
		MinVolume24h: 50_000_000,
		MinMarketCap: 500_000_000,

		MaxAdverse24h:    2,
		DipMaxAdverse24h: 6,
		ChoppyMin24h:     5,
		ChoppyMin7d:      10,
		RSIOverbought:    70,
		RSIOversold:      30,
		MinATRPct:        1,
		MaxATRPct:        12,
		MinVolMcap:       0.02,
		MaxVolMcap:       2.0,

		StopATRMultiple: 1.5,
		MinStopPct:      2,
		MaxStopPct:      5,
		PreferredRR:     3,
		MaxTargetPct:    15,
		MinRiskReward:   2.5,
		NearEntry1h:     0.5,
		MinPullbackPct:  0.3,
		MaxPullbackPct:  1.5,

		MinProbability:        70,
		WhaleOpposeConfidence: 60,
		MinExpectedHours:      4,
		MaxExpectedHours:      168,

		WhaleTimeout: 3 * time.Second,
	}
}

// Result is the output of one funnel run.
type Result struct {
	Opportunities []domain.Opportunity // ranked, best first
	Diagnostics   domain.Diagnostics
}

// Top returns the best opportunity, if any.
func (r Result) Top() (domain.Opportunity, bool) {
	if len(r.Opportunities) == 0 {
		return domain.Opportunity{}, false
	}
	return r.Opportunities[0], true
}

// Funnel filtra, construye el setup, puntúa y rankea los activos de un snapshot.
type Funnel struct {
	cfg    Config
	whales ports.WhaleIntel
}

// New crea un Funnel. whales puede ser nil: todos los activos puntúan con
// una señal neutral.
func New(cfg Config, whales ports.WhaleIntel) *Funnel {
	return &Funnel{cfg: cfg, whales: whales}
}

// Config devuelve la configuración activa.
func (f *Funnel) Config() Config { return f.cfg }

// Universe is the snapshot query matching this funnel's eligibility rules.
func (f *Funnel) Universe(coinIDs ...string) domain.UniverseQuery {
	return domain.UniverseQuery{
		MaxRank:      f.cfg.MaxRank,
		MinVolume24h: f.cfg.MinVolume24h,
		CoinIDs:      coinIDs,
	}
}

// Run evalúa cada moneda contra el régimen dado y devuelve las oportunidades
// rankeadas más los diagnósticos. Para una misma entrada (y mismas señales de
// ballenas) el resultado es idéntico sin importar el orden de los workers.
func (f *Funnel) Run(ctx context.Context, coins []domain.CoinSnapshot, regime domain.RegimeReading) Result {
	ordered := make([]domain.CoinSnapshot, len(coins))
	copy(ordered, coins)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := rankKey(ordered[i].MarketCapRank), rankKey(ordered[j].MarketCapRank)
		if ri != rj {
			return ri < rj
		}
		return ordered[i].ID < ordered[j].ID
	})

	diag := domain.Diagnostics{Scanned: len(ordered)}
	eligible := make([]domain.CoinSnapshot, 0, len(ordered))
	for _, c := range ordered {
		if reasons := f.universeReasons(c); len(reasons) > 0 {
			diag.Rejections = append(diag.Rejections, domain.Rejection{
				CoinID: c.ID, Symbol: c.Symbol, Stage: domain.StageUniverse, Reasons: reasons,
			})
			continue
		}
		eligible = append(eligible, c)
	}
	diag.Eligible = len(eligible)

	evals := evaluateConcurrent(ctx, f, eligible, regime, f.cfg.Workers)

	opps := make([]domain.Opportunity, 0, len(evals))
	for _, e := range evals {
		if e.stage != domain.StageFilter {
			diag.PassedFilters++
		}
		if e.stage != domain.StageFilter && e.stage != domain.StageSetup {
			diag.PassedSetup++
		}
		if e.opp != nil {
			opps = append(opps, *e.opp)
			continue
		}
		diag.Rejections = append(diag.Rejections, *e.rej)
	}
	diag.Qualified = len(opps)

	Rank(opps)

	slog.Debug("funnel: run complete",
		"regime", regime.Regime,
		"scanned", diag.Scanned,
		"eligible", diag.Eligible,
		"passed_filters", diag.PassedFilters,
		"passed_setup", diag.PassedSetup,
		"qualified", diag.Qualified,
	)
	return Result{Opportunities: opps, Diagnostics: diag}
}

// Rank ordena por probabilidad desc, horas esperadas asc y coin id asc.
// Es un orden total: dos ejecuciones con la misma entrada dan el mismo orden.
func Rank(opps []domain.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		a, b := opps[i], opps[j]
		if a.Probability != b.Probability {
			return a.Probability > b.Probability
		}
		if a.ExpectedHours != b.ExpectedHours {
			return a.ExpectedHours < b.ExpectedHours
		}
		return a.Coin.ID < b.Coin.ID
	})
}

// rankKey manda los activos sin rank al final.
func rankKey(r int) int {
	if r <= 0 {
		return 1 << 30
	}
	return r
}
