package ports

import (
	"context"
	"errors"
	"time"

	"github.com/alejandrodnm/swingbot/internal/domain"
)

// Errores compartidos entre el engine y los adaptadores de persistencia.
var (
	// ErrActiveTradeExists: CreateTrade lost the compare-and-create race.
	ErrActiveTradeExists = errors.New("active trade already exists")

	// ErrTradeNotPending: the trade was already closed. Closed trades are never reopened.
	ErrTradeNotPending = errors.New("trade is not pending")

	// ErrSnapshotUnavailable: the ingestion job has not produced a snapshot yet.
	ErrSnapshotUnavailable = errors.New("market snapshot unavailable")
)

// Ledger is the sole source of truth for trades and the system-state row.
// Counters are never stored here; they are derived from ClosedTrades.
type Ledger interface {
	// ActiveTrade devuelve el trade PENDING, o nil si no hay ninguno.
	ActiveTrade(ctx context.Context) (*domain.TradeRecord, error)

	// ClosedTrades returns every non-PENDING trade ordered by close time.
	ClosedTrades(ctx context.Context) ([]domain.TradeRecord, error)

	// Trades returns the most recent trades first, up to limit (0 = all).
	Trades(ctx context.Context, limit int) ([]domain.TradeRecord, error)

	// CreateTrade inserts t only if no PENDING trade exists (compare-and-create).
	// Returns ErrActiveTradeExists otherwise.
	CreateTrade(ctx context.Context, t domain.TradeRecord) error

	// MarkFilled records the entry fill of a PENDING limit trade.
	MarkFilled(ctx context.Context, id string, at time.Time) error

	// TouchTrade updates last-monitored time and last seen price of a PENDING trade.
	TouchTrade(ctx context.Context, id string, at time.Time, price float64) error

	// CloseTrade moves a PENDING trade to its terminal result exactly once.
	// Returns ErrTradeNotPending if the trade is already closed.
	CloseTrade(ctx context.Context, c domain.TradeClose) error

	// SystemState returns the state row, creating it with defaults if missing.
	SystemState(ctx context.Context) (domain.SystemState, error)

	// ClaimScan sets last_scan_at = now only if the previous scan is at least
	// interval old. Returns false when another invocation scanned recently.
	ClaimScan(ctx context.Context, now time.Time, interval time.Duration) (bool, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
