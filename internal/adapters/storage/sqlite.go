package storage

// sqlite.go: ledger y snapshot de mercado en un único archivo SQLite.
//
// Estrategia:
//   - `trades`: una fila por intento de trade. Un índice UNIQUE parcial sobre
//     result = 'PENDING' garantiza en la propia DB que nunca hay dos trades en vuelo.
//   - `system_state`: una sola fila (id = 1), creada de forma lazy.
//   - `coin_snapshots` + `snapshot_meta`: los escribe el job de ingestión externo;
//     el engine solo los lee.
//   - Timestamps como TEXT UTC de ancho fijo: el orden lexicográfico es el cronológico,
//     así las comparaciones de ClaimScan se hacen en SQL.

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
    id                TEXT PRIMARY KEY,
    coin_id           TEXT NOT NULL,
    symbol            TEXT NOT NULL,
    name              TEXT,
    action            TEXT NOT NULL,
    entry_type        TEXT NOT NULL,
    entry_price       REAL NOT NULL,
    target_price      REAL NOT NULL,
    stop_price        REAL NOT NULL,
    probability       REAL NOT NULL DEFAULT 0,
    regime            TEXT,
    mode              TEXT NOT NULL DEFAULT 'paper',
    reasoning         TEXT,
    result            TEXT NOT NULL DEFAULT 'PENDING',
    created_at        TEXT NOT NULL,
    filled_at         TEXT,
    closed_at         TEXT,
    last_monitored_at TEXT,
    last_price        REAL NOT NULL DEFAULT 0,
    exit_price        REAL NOT NULL DEFAULT 0,
    profit_loss_pct   REAL NOT NULL DEFAULT 0
);

-- Como mucho un trade en vuelo, garantizado por la DB
CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_single_pending ON trades(result) WHERE result = 'PENDING';
CREATE INDEX IF NOT EXISTS idx_trades_closed ON trades(closed_at);
CREATE INDEX IF NOT EXISTS idx_trades_created ON trades(created_at DESC);

CREATE TABLE IF NOT EXISTS system_state (
    id           INTEGER PRIMARY KEY CHECK (id = 1),
    mode         TEXT NOT NULL DEFAULT 'paper',
    last_scan_at TEXT,
    updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS coin_snapshots (
    coin_id         TEXT PRIMARY KEY,
    symbol          TEXT NOT NULL,
    name            TEXT,
    price           REAL NOT NULL,
    market_cap      REAL NOT NULL DEFAULT 0,
    market_cap_rank INTEGER NOT NULL DEFAULT 0,
    volume_24h      REAL NOT NULL DEFAULT 0,
    change_1h       REAL NOT NULL DEFAULT 0,
    change_24h      REAL NOT NULL DEFAULT 0,
    change_7d       REAL NOT NULL DEFAULT 0,
    change_30d      REAL NOT NULL DEFAULT 0,
    rsi_14          REAL NOT NULL DEFAULT 0,
    atr_14          REAL NOT NULL DEFAULT 0,
    volume_to_mcap  REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS snapshot_meta (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    fetched_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snap_rank ON coin_snapshots(market_cap_rank);
`

// timeLayout es de ancho fijo y siempre UTC para que TEXT ordene cronológicamente.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStorage implementa ports.Ledger y ports.SnapshotReader usando SQLite
// (pure Go, sin CGo).
type SQLiteStorage struct {
	db          *sql.DB
	defaultMode string
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
// mode es el modo con el que se inicializa system_state si la fila no existe.
func NewSQLiteStorage(path, mode string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	if mode == "" {
		mode = "paper"
	}
	return &SQLiteStorage{db: db, defaultMode: mode}, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// filas escritas por herramientas externas pueden venir en RFC3339
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
