package database

import (
	"time"

	"github.com/lance13c/mlbstats/internal/stats"
)

// SnapshotSummary is a stored snapshot without its rows.
type SnapshotSummary struct {
	ID          int64
	URL         string
	Variant     stats.Variant
	ColumnCount int
	RowCount    int
	CapturedAt  time.Time
}

// PlayerEntry is one stored row of a player with the header it was read under.
type PlayerEntry struct {
	SnapshotID int64
	CapturedAt time.Time
	Columns    []string
	Row        stats.Row
}

// Statistics summarises the database contents.
type Statistics struct {
	Snapshots   int
	Rows        int
	Players     int
	LastCapture *time.Time
}
