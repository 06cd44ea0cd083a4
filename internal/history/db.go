// Package history records a run's ticks, prices and events for later
// inspection. It only appends; nothing here is ever loaded back into a game.
package history

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/port-authority/internal/engine"
)

// schemaVersion is stored in PRAGMA user_version. Older files predate
// per-run keys and are rebuilt on open.
const schemaVersion = 2

// DB wraps a SQLite connection holding run history. Each Open starts a new
// run; every write and query is scoped to it.
type DB struct {
	conn *sqlx.DB
	run  int64
}

// Open opens or creates a SQLite database at the given path and starts a
// new run in it.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := db.startRun(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("start run: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// RunID identifies the run this connection writes to.
func (db *DB) RunID() int64 { return db.run }

func (db *DB) migrate() error {
	var version int
	if err := db.conn.Get(&version, "PRAGMA user_version"); err != nil {
		return err
	}
	if version < schemaVersion {
		var old int
		if err := db.conn.Get(&old, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'ticks'"); err != nil {
			return err
		}
		if old > 0 {
			slog.Warn("history schema outdated, dropping previous runs", "version", version)
		}
		legacy := `
		DROP TABLE IF EXISTS ticks;
		DROP TABLE IF EXISTS resource_stats;
		DROP TABLE IF EXISTS events;
		DROP TABLE IF EXISTS run_meta;
		`
		if _, err := db.conn.Exec(legacy); err != nil {
			return err
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ticks (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		day INTEGER NOT NULL,
		hour INTEGER NOT NULL,
		population INTEGER NOT NULL,
		starving INTEGER NOT NULL,
		wealth REAL NOT NULL,
		staffed INTEGER NOT NULL,
		merchants INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS resource_stats (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		resource TEXT NOT NULL,
		stock REAL NOT NULL,
		price REAL NOT NULL,
		import_modifier REAL NOT NULL,
		export_modifier REAL NOT NULL,
		import_forbidden INTEGER NOT NULL,
		export_forbidden INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick, resource)
	);

	CREATE TABLE IF NOT EXISTS events (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_resource_stats_resource ON resource_stats(run_id, resource, tick);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return err
	}
	_, err := db.conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	return err
}

func (db *DB) startRun() error {
	res, err := db.conn.Exec("INSERT INTO runs (started_at) VALUES (?)",
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	db.run, err = res.LastInsertId()
	return err
}

// RecordTick appends one tick's state and any events not yet stored.
func (db *DB) RecordTick(state engine.GameState, events []engine.LogEvent) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	staffed := 0
	for _, f := range state.Facilities {
		if f.Agent != "" {
			staffed++
		}
	}
	_, err = tx.Exec(`INSERT OR REPLACE INTO ticks
		(run_id, tick, day, hour, population, starving, wealth, staffed, merchants)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		db.run, state.Tick, state.Day, state.Hour, state.Population, state.StarvingPopulation,
		state.Wealth, staffed, len(state.Merchants),
	)
	if err != nil {
		return fmt.Errorf("insert tick %d: %w", state.Tick, err)
	}

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO resource_stats
		(run_id, tick, resource, stock, price, import_modifier, export_modifier, import_forbidden, export_forbidden)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range state.Resources {
		_, err := stmt.Exec(
			db.run, state.Tick, string(r.Resource), r.Stock, r.Price,
			r.ImportPriceModifier, r.ExportPriceModifier,
			boolInt(r.ImportForbidden), boolInt(r.ExportForbidden),
		)
		if err != nil {
			return fmt.Errorf("insert %s stats: %w", r.Resource, err)
		}
	}

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT OR IGNORE INTO events (run_id, seq, tick, kind, message) VALUES (?, ?, ?, ?, ?)",
			db.run, e.Seq, e.Tick, string(e.Kind), e.Message,
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", e.Seq, err)
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in the current run's metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (run_id, key, value) VALUES (?, ?, ?)",
		db.run, key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE run_id = ? AND key = ?", db.run, key)
	return value, err
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.LogEvent, error) {
	var events []engine.LogEvent
	err := db.conn.Select(&events,
		"SELECT seq, tick, kind, message FROM events WHERE run_id = ? ORDER BY seq DESC LIMIT ?",
		db.run, limit,
	)
	return events, err
}

// PricePoint is one resource's price and stock at a tick.
type PricePoint struct {
	Tick  uint64  `db:"tick" json:"tick"`
	Price float64 `db:"price" json:"price"`
	Stock float64 `db:"stock" json:"stock"`
}

// PriceHistory returns up to limit most recent points for resource, oldest first.
func (db *DB) PriceHistory(resource string, limit int) ([]PricePoint, error) {
	var points []PricePoint
	err := db.conn.Select(&points,
		`SELECT tick, price, stock FROM (
			SELECT tick, price, stock FROM resource_stats
			WHERE run_id = ? AND resource = ? ORDER BY tick DESC LIMIT ?
		) ORDER BY tick ASC`,
		db.run, resource, limit,
	)
	return points, err
}

// TickCount returns the number of ticks recorded in the current run.
func (db *DB) TickCount() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM ticks WHERE run_id = ?", db.run)
	return n, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
