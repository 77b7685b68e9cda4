package signal

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fxd-io/fxdisk/uarr"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteBackend persists signal records in a SQLite database.
// Uses WAL mode for concurrent read access.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite creates or opens a signal database at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// Append inserts one record. The delta is stored UArr-encoded.
func (b *SQLiteBackend) Append(rec Record) error {
	delta, err := uarr.Encode(rec.Delta)
	if err != nil {
		return fmt.Errorf("encoding signal delta: %w", err)
	}
	_, err = b.db.Exec(
		`INSERT INTO signals (ts_ns, kind, base_version, new_version, node_id, delta)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Timestamp, int64(rec.Kind), int64(rec.BaseVersion), int64(rec.NewVersion),
		rec.SourceNodeID, delta,
	)
	if err != nil {
		return fmt.Errorf("inserting signal: %w", err)
	}
	return nil
}

// ReadAll returns every stored record in insertion order.
func (b *SQLiteBackend) ReadAll() ([]Record, error) {
	rows, err := b.db.Query(
		`SELECT ts_ns, kind, base_version, new_version, node_id, delta
		 FROM signals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying signals: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		var kind, base, next int64
		var delta []byte
		if err := rows.Scan(&rec.Timestamp, &kind, &base, &next, &rec.SourceNodeID, &delta); err != nil {
			return nil, fmt.Errorf("scanning signal: %w", err)
		}
		rec.Kind = Kind(kind)
		rec.BaseVersion = uint64(base)
		rec.NewVersion = uint64(next)
		rec.Delta, err = uarr.Decode(delta)
		if err != nil {
			return nil, fmt.Errorf("decoding signal delta: %w", err)
		}
		rec.Seq = uint64(len(recs))
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating signals: %w", err)
	}
	return recs, nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
