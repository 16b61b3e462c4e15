package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/swingbot/internal/application/funnel"
	"github.com/alejandrodnm/swingbot/internal/domain"
	"github.com/alejandrodnm/swingbot/internal/ports"
)

// ErrSystemOffline is returned when the ledger or the market snapshot cannot
// be read. No trade decision is made or persisted.
var ErrSystemOffline = errors.New("system offline")

// Config contiene los tiempos y umbrales del engine.
type Config struct {
	ScanInterval        time.Duration
	ProtectionThreshold int // pérdidas consecutivas que activan CAPITAL_PROTECTION
	ProtectionWindow    time.Duration
	CooldownAfterWin    time.Duration
	CooldownAfterLoss   time.Duration
	EntryTimeout        time.Duration
	SnapshotStaleAfter  time.Duration

	ReferenceCoins     []string // activos que definen el régimen
	RerankTopN         int
	MaxScoreAdjustment float64

	DecisionTimeout time.Duration // cota de toda la invocación
	RerankTimeout   time.Duration
	RefreshTimeout  time.Duration
}

// DefaultConfig devuelve la configuración por defecto.
func DefaultConfig() Config {
	return Config{
		ScanInterval:        30 * time.Minute,
		ProtectionThreshold: 3,
		ProtectionWindow:    24 * time.Hour,
		CooldownAfterWin:    2 * time.Hour,
		CooldownAfterLoss:   4 * time.Hour,
		EntryTimeout:        24 * time.Hour,
		SnapshotStaleAfter:  15 * time.Minute,

		ReferenceCoins:     []string{"bitcoin", "ethereum"},
		RerankTopN:         3,
		MaxScoreAdjustment: 10,

		DecisionTimeout: 30 * time.Second,
		RerankTimeout:   10 * time.Second,
		RefreshTimeout:  10 * time.Second,
	}
}

// Engine decide, en cada invocación, qué hacer con el único trade permitido.
// No guarda estado entre invocaciones: todo sale del ledger.
type Engine struct {
	cfg       Config
	ledger    ports.Ledger
	snapshots ports.SnapshotReader
	funnel    *funnel.Funnel
	refresher ports.SnapshotRefresher
	reranker  ports.Reranker
	now       func() time.Time
	newID     func() string
}

// Option configura dependencias opcionales del Engine.
type Option func(*Engine)

// WithClock sustituye el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRefresher wires the ingestion refresh collaborator.
func WithRefresher(r ports.SnapshotRefresher) Option {
	return func(e *Engine) { e.refresher = r }
}

// WithReranker wires the optional re-ranking collaborator.
func WithReranker(r ports.Reranker) Option {
	return func(e *Engine) { e.reranker = r }
}

// WithIDGenerator sustituye el generador de IDs de trade.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New crea un Engine con todas las dependencias inyectadas.
func New(cfg Config, ledger ports.Ledger, snapshots ports.SnapshotReader, f *funnel.Funnel, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		ledger:    ledger,
		snapshots: snapshots,
		funnel:    f,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ledgerView es la foto del ledger al inicio de una invocación. No se muta:
// los pasos de la máquina de estados solo la leen.
type ledgerView struct {
	now    time.Time
	state  domain.SystemState
	active *domain.TradeRecord
	closed []domain.TradeRecord
	perf   domain.Performance
}

// Decide runs one invocation of the state machine and returns its decision.
// Safe to call concurrently and arbitrarily often: the ledger's
// compare-and-create and ClaimScan keep the invariants.
func (e *Engine) Decide(ctx context.Context) (*domain.Decision, error) {
	if e.cfg.DecisionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.DecisionTimeout)
		defer cancel()
	}

	d, err := e.decide(ctx)
	if errors.Is(err, errLostRace) {
		// otra invocación cerró o llenó el trade entre la lectura y la escritura
		slog.Debug("engine: lost race on active trade, re-reading ledger")
		d, err = e.decide(ctx)
	}
	if errors.Is(err, errLostRace) {
		return nil, fmt.Errorf("engine.Decide: %w: %w", ErrSystemOffline, err)
	}
	return d, err
}

// errLostRace: una escritura condicional sobre el trade activo no aplicó.
var errLostRace = errors.New("active trade changed concurrently")

func (e *Engine) decide(ctx context.Context) (*domain.Decision, error) {
	view, err := e.readLedger(ctx)
	if err != nil {
		return nil, err
	}

	inv := &invocation{
		e:       e,
		view:    view,
		current: domain.RestingState(view.active, view.perf),
		d: &domain.Decision{
			Mode:        view.state.Mode,
			Performance: view.perf,
			DecidedAt:   view.now,
			Transitions: []domain.Transition{},
			Reasoning:   []string{},
		},
	}
	inv.d.Status = inv.current

	steps := []step{
		inv.guardActive,
		inv.checkProtection,
		inv.checkCooldown,
		inv.checkThrottle,
		inv.scan,
	}
	for _, s := range steps {
		done, err := s(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}

	slog.Info("engine: decision",
		"status", inv.d.Status,
		"coin", inv.d.CoinID,
		"action", inv.d.Action,
		"probability", inv.d.Probability,
		"transitions", len(inv.d.Transitions),
	)
	return inv.d, nil
}

// readLedger lee estado, trade activo y cerrados; cualquier fallo es fatal.
func (e *Engine) readLedger(ctx context.Context) (ledgerView, error) {
	v := ledgerView{now: e.now()}

	var err error
	if v.state, err = e.ledger.SystemState(ctx); err != nil {
		return v, offline("read system state", err)
	}
	if v.active, err = e.ledger.ActiveTrade(ctx); err != nil {
		return v, offline("read active trade", err)
	}
	if v.closed, err = e.ledger.ClosedTrades(ctx); err != nil {
		return v, offline("read closed trades", err)
	}
	v.perf = domain.DerivePerformance(v.closed)
	return v, nil
}

// snapshot lee el snapshot y, si está viejo, pide un refresh sin esperar.
func (e *Engine) snapshot(ctx context.Context, q domain.UniverseQuery, now time.Time) (domain.MarketSnapshot, error) {
	snap, err := e.snapshots.LatestSnapshot(ctx, q)
	if err != nil {
		return snap, offline("read market snapshot", err)
	}
	if age := snap.Age(now); e.cfg.SnapshotStaleAfter > 0 && age > e.cfg.SnapshotStaleAfter {
		e.requestRefresh(age)
	}
	return snap, nil
}

// requestRefresh es fire-and-forget: usa un contexto propio con timeout para
// no depender de la invocación que lo disparó.
func (e *Engine) requestRefresh(age time.Duration) {
	if e.refresher == nil {
		return
	}
	slog.Info("engine: snapshot stale, requesting refresh", "age", age.Round(time.Second))
	timeout := e.cfg.RefreshTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := e.refresher.RequestRefresh(ctx); err != nil {
			slog.Warn("engine: snapshot refresh failed", "err", err)
		}
	}()
}

func offline(step string, err error) error {
	return fmt.Errorf("engine: %s: %w: %w", step, ErrSystemOffline, err)
}
