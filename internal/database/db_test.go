package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lance13c/mlbstats/internal/stats"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "nested", "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func snapshotAt(v stats.Variant, at time.Time, hr string) *stats.Snapshot {
	return &stats.Snapshot{
		Variant:    v,
		URL:        "https://www.mlb.com/stats/",
		Columns:    []string{"player", "pos", "team", "hr"},
		Rows:       []stats.Row{{"Aaron Judge", "RF", "NYY", hr}, {"Shohei Ohtani", "DH", "LAD", "54"}},
		CapturedAt: at,
	}
}

func TestSaveAndGetSnapshot(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	at := time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)
	want := snapshotAt(stats.Standard, at, "58")

	id, err := db.SaveSnapshot(ctx, want)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := db.GetSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want.Variant, got.Variant)
	assert.Equal(t, want.URL, got.URL)
	assert.Equal(t, want.Columns, got.Columns)
	assert.Equal(t, want.Rows, got.Rows)
	assert.True(t, at.Equal(got.CapturedAt), "captured_at %v", got.CapturedAt)
}

func TestSaveSnapshotRejectsMisalignedRows(t *testing.T) {
	db := openTestDB(t)
	snap := snapshotAt(stats.Standard, time.Now(), "58")
	snap.Rows[1] = snap.Rows[1][:2]

	_, err := db.SaveSnapshot(context.Background(), snap)
	assert.True(t, errors.Is(err, stats.ErrRowShape), "got %v", err)

	list, err := db.ListSnapshots(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListSnapshotsNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	_, err := db.SaveSnapshot(ctx, snapshotAt(stats.Standard, base, "50"))
	require.NoError(t, err)
	_, err = db.SaveSnapshot(ctx, snapshotAt(stats.Expanded, base.Add(48*time.Hour), "55"))
	require.NoError(t, err)
	newest, err := db.SaveSnapshot(ctx, snapshotAt(stats.Standard, base.Add(96*time.Hour), "58"))
	require.NoError(t, err)

	list, err := db.ListSnapshots(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newest, list[0].ID)
	assert.Equal(t, stats.Standard, list[0].Variant)
	assert.Equal(t, stats.Expanded, list[1].Variant)
	assert.Equal(t, 2, list[0].RowCount)
	assert.Equal(t, 4, list[0].ColumnCount)
}

func TestDeleteSnapshotCascades(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	id, err := db.SaveSnapshot(ctx, snapshotAt(stats.Standard, time.Now(), "58"))
	require.NoError(t, err)

	require.NoError(t, db.DeleteSnapshot(ctx, id))

	_, err = db.GetSnapshot(ctx, id)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	st, err := db.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Snapshots)
	assert.Zero(t, st.Rows, "rows are removed with their snapshot")

	err = db.DeleteSnapshot(ctx, id)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestPlayerHistory(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	for i, hr := range []string{"50", "55", "58"} {
		_, err := db.SaveSnapshot(ctx, snapshotAt(stats.Standard, base.Add(time.Duration(i)*24*time.Hour), hr))
		require.NoError(t, err)
	}
	_, err := db.SaveSnapshot(ctx, snapshotAt(stats.Expanded, base, "0"))
	require.NoError(t, err)

	entries, err := db.PlayerHistory(ctx, "Aaron Judge", stats.Standard)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, hr := range []string{"50", "55", "58"} {
		assert.Equal(t, hr, entries[i].Row[3])
		assert.Equal(t, "hr", entries[i].Columns[3])
	}

	entries, err = db.PlayerHistory(ctx, "Nobody", stats.Standard)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGetStatistics(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	st, err := db.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Nil(t, st.LastCapture)

	at := time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)
	_, err = db.SaveSnapshot(ctx, snapshotAt(stats.Standard, at, "58"))
	require.NoError(t, err)
	_, err = db.SaveSnapshot(ctx, snapshotAt(stats.Expanded, at.Add(-time.Hour), "58"))
	require.NoError(t, err)

	st, err = db.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Snapshots)
	assert.Equal(t, 4, st.Rows)
	assert.Equal(t, 2, st.Players)
	require.NotNil(t, st.LastCapture)
	assert.True(t, at.Equal(*st.LastCapture))
}
