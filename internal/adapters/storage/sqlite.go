package storage

// sqlite.go: journal del bot sobre SQLite.
//
// Tablas:
//   - `orders`: una fila por orden aceptada, con la señal que la originó.
//   - `closed_trades`: posiciones cerradas con su P&L realizado.
//   - `cycles`: resumen ligero por ciclo del pipeline.
//   - `backtest_runs`: métricas de cada corrida de backtest.
//   - `price_history`: cache de series de precios descargadas para backtests.
//
// Prune automático al arrancar: cycles > 30d. Órdenes y trades no se borran.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id             TEXT PRIMARY KEY,
    exchange_id    TEXT NOT NULL DEFAULT '',
    market_id      TEXT NOT NULL,
    token_id       TEXT NOT NULL,
    side           TEXT NOT NULL,
    price          REAL NOT NULL,
    size           REAL NOT NULL,
    fee            REAL NOT NULL DEFAULT 0,
    strategy_id    TEXT NOT NULL,
    status         TEXT NOT NULL,
    estimated_prob REAL NOT NULL DEFAULT 0,
    edge           REAL NOT NULL DEFAULT 0,
    confidence     REAL NOT NULL DEFAULT 0,
    created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS closed_trades (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id     TEXT NOT NULL,
    market_id    TEXT NOT NULL,
    token_id     TEXT NOT NULL,
    strategy_id  TEXT NOT NULL,
    side         TEXT NOT NULL,
    entry_price  REAL NOT NULL,
    exit_price   REAL NOT NULL,
    size         REAL NOT NULL,
    realized_pnl REAL NOT NULL,
    reason       TEXT NOT NULL,
    opened_at    TEXT NOT NULL,
    closed_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cycles (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at  TEXT    NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    markets     INTEGER NOT NULL DEFAULT 0,
    signals     INTEGER NOT NULL DEFAULT 0,
    accepted    INTEGER NOT NULL DEFAULT 0,
    rejected    INTEGER NOT NULL DEFAULT 0,
    orders      INTEGER NOT NULL DEFAULT 0,
    error       TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS backtest_runs (
    run_id            TEXT PRIMARY KEY,
    strategy_id       TEXT NOT NULL,
    from_ts           TEXT NOT NULL,
    to_ts             TEXT NOT NULL,
    points            INTEGER NOT NULL,
    initial_balance   REAL NOT NULL,
    final_balance     REAL NOT NULL,
    trades            INTEGER NOT NULL,
    win_rate          REAL NOT NULL,
    annualized_return REAL NOT NULL,
    sharpe            REAL NOT NULL,
    max_drawdown      REAL NOT NULL,
    created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS price_history (
    token_id TEXT NOT NULL,
    ts       TEXT NOT NULL,
    price    REAL NOT NULL,
    PRIMARY KEY (token_id, ts)
);

CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_market  ON orders(market_id);
CREATE INDEX IF NOT EXISTS idx_trades_closed  ON closed_trades(closed_at DESC);
CREATE INDEX IF NOT EXISTS idx_cycles_at      ON cycles(started_at DESC);
`

const retentionCycles = 30 * 24 * time.Hour

// timeLayout tiene ancho fijo para que el orden lexicográfico coincida con el temporal.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStorage implementa ports.Journal usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
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

	s := &SQLiteStorage{db: db, now: time.Now}
	s.pruneOld(context.Background())
	return s, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina ciclos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := s.now().UTC().Add(-retentionCycles)
	s.db.ExecContext(ctx, `DELETE FROM cycles WHERE started_at < ?`, formatTime(cutoff))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
