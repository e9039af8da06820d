// Package database stores extracted stats snapshots in SQLite.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lance13c/mlbstats/internal/stats"
)

// ErrNotFound is returned when a snapshot id does not exist.
var ErrNotFound = errors.New("snapshot not found")

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Create database directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// PRAGMA foreign_keys is per connection.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.InitSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// InitSchema creates the database tables if they don't exist
func (db *DB) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		variant TEXT NOT NULL,
		columns TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		captured_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS snapshot_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		player TEXT NOT NULL,
		cells TEXT NOT NULL,
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_captured_at ON snapshots(captured_at);
	CREATE INDEX IF NOT EXISTS idx_snapshots_variant ON snapshots(variant);
	CREATE INDEX IF NOT EXISTS idx_rows_snapshot_id ON snapshot_rows(snapshot_id);
	CREATE INDEX IF NOT EXISTS idx_rows_player ON snapshot_rows(player);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SaveSnapshot stores snap and its rows in one transaction and returns the
// new snapshot id.
func (db *DB) SaveSnapshot(ctx context.Context, snap *stats.Snapshot) (int64, error) {
	if err := snap.Validate(); err != nil {
		return 0, err
	}
	columns, err := json.Marshal(snap.Columns)
	if err != nil {
		return 0, fmt.Errorf("failed to encode columns: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (url, variant, columns, row_count, captured_at)
		VALUES (?, ?, ?, ?, ?)
	`, snap.URL, snap.Variant.String(), string(columns), len(snap.Rows), snap.CapturedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_rows (snapshot_id, position, player, cells)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, row := range snap.Rows {
		cells, err := json.Marshal([]string(row))
		if err != nil {
			return 0, fmt.Errorf("failed to encode row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, row.Player(), string(cells)); err != nil {
			return 0, fmt.Errorf("failed to save row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

// ListSnapshots returns the most recent snapshots, newest first.
func (db *DB) ListSnapshots(ctx context.Context, limit int) ([]SnapshotSummary, error) {
	query := `
		SELECT id, url, variant, columns, row_count, captured_at
		FROM snapshots
		ORDER BY captured_at DESC, id DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var summaries []SnapshotSummary
	for rows.Next() {
		var (
			s       SnapshotSummary
			variant string
			columns string
		)
		if err := rows.Scan(&s.ID, &s.URL, &variant, &columns, &s.RowCount, &s.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if s.Variant, err = stats.ParseVariant(variant); err != nil {
			return nil, fmt.Errorf("snapshot %d: %w", s.ID, err)
		}
		var cols []string
		if err := json.Unmarshal([]byte(columns), &cols); err != nil {
			return nil, fmt.Errorf("snapshot %d: failed to decode columns: %w", s.ID, err)
		}
		s.ColumnCount = len(cols)
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// GetSnapshot loads a stored snapshot with its rows in their original order.
func (db *DB) GetSnapshot(ctx context.Context, id int64) (*stats.Snapshot, error) {
	var (
		snap    stats.Snapshot
		variant string
		columns string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT url, variant, columns, captured_at
		FROM snapshots
		WHERE id = ?
	`, id).Scan(&snap.URL, &variant, &columns, &snap.CapturedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if snap.Variant, err = stats.ParseVariant(variant); err != nil {
		return nil, fmt.Errorf("snapshot %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(columns), &snap.Columns); err != nil {
		return nil, fmt.Errorf("snapshot %d: failed to decode columns: %w", id, err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT cells
		FROM snapshot_rows
		WHERE snapshot_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var row stats.Row
		if err := json.Unmarshal([]byte(cells), &row); err != nil {
			return nil, fmt.Errorf("snapshot %d: failed to decode row: %w", id, err)
		}
		snap.Rows = append(snap.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &snap, nil
}

// DeleteSnapshot removes a snapshot and, through the cascade, its rows.
func (db *DB) DeleteSnapshot(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// PlayerHistory returns every stored row for player in one variant, oldest
// snapshot first.
func (db *DB) PlayerHistory(ctx context.Context, player string, v stats.Variant) ([]PlayerEntry, error) {
	query := `
		SELECT s.id, s.captured_at, s.columns, r.cells
		FROM snapshot_rows r
		JOIN snapshots s ON s.id = r.snapshot_id
		WHERE r.player = ? AND s.variant = ?
		ORDER BY s.captured_at ASC, s.id ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, player, v.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query player history: %w", err)
	}
	defer rows.Close()

	var entries []PlayerEntry
	for rows.Next() {
		var (
			e       PlayerEntry
			columns string
			cells   string
		)
		if err := rows.Scan(&e.SnapshotID, &e.CapturedAt, &columns, &cells); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		if err := json.Unmarshal([]byte(columns), &e.Columns); err != nil {
			return nil, fmt.Errorf("snapshot %d: failed to decode columns: %w", e.SnapshotID, err)
		}
		if err := json.Unmarshal([]byte(cells), &e.Row); err != nil {
			return nil, fmt.Errorf("snapshot %d: failed to decode row: %w", e.SnapshotID, err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// GetStatistics returns database statistics
func (db *DB) GetStatistics(ctx context.Context) (*Statistics, error) {
	var s Statistics

	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&s.Snapshots); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshot_rows").Scan(&s.Rows); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(DISTINCT player) FROM snapshot_rows").Scan(&s.Players); err != nil {
		return nil, err
	}

	// MAX() loses the column type, so the driver would hand back a string.
	var last time.Time
	err := db.conn.QueryRowContext(ctx, "SELECT captured_at FROM snapshots ORDER BY captured_at DESC LIMIT 1").Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		s.LastCapture = &last
	}

	return &s, nil
}
