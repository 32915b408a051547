package journal

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func d(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('events','equity','runs')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["events"])
	assert.True(t, found["equity"])
	assert.True(t, found["runs"])
}

func TestSQLiteEventRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	open := EventRecord{
		EventID:    "E1",
		RunID:      "R1",
		PositionID: "P1",
		Date:       d(2024, 3, 1),
		Type:       EventOpen,
		Instrument: "call",
		Strike:     44000,
		Expiration: d(2024, 3, 31),
		Quantity:   -1,
		Price:      812.5,
		Spot:       40000,
		CashEffect: 812.5,
		Reason:     "covered call",
	}
	settle := open
	settle.EventID = "E2"
	settle.Type = EventSettle
	settle.Date = d(2024, 3, 31)
	settle.Price = 6000
	settle.Spot = 50000
	settle.CashEffect = -6000
	settle.Reason = "expired itm"

	other := open
	other.EventID = "E3"
	other.RunID = "R2"

	require.NoError(t, j.RecordEvent(settle))
	require.NoError(t, j.RecordEvent(open))
	require.NoError(t, j.RecordEvent(other))

	got, err := j.GetEvent("E1")
	require.NoError(t, err)
	assert.Equal(t, open.PositionID, got.PositionID)
	assert.Equal(t, open.Instrument, got.Instrument)
	assert.InDelta(t, open.Strike, got.Strike, 1e-9)
	assert.InDelta(t, open.Quantity, got.Quantity, 1e-9)
	assert.True(t, got.Date.Equal(open.Date))
	assert.True(t, got.Expiration.Equal(open.Expiration))
	assert.Equal(t, open.Reason, got.Reason)

	list, err := j.ListEventsByRun("R1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "E1", list[0].EventID, "ordered by date")
	assert.Equal(t, "E2", list[1].EventID)
	assert.InDelta(t, -6000, list[1].CashEffect, 1e-9)

	_, err = j.GetEvent("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteEquityRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, j.RecordEquity(EquitySnapshot{
			RunID:         "R1",
			Date:          d(2024, 1, 1+i),
			Equity:        100000 + float64(i),
			Cash:          99000,
			SpotQty:       0.5,
			Spot:          40000,
			PositionValue: -200,
			Regime:        "low",
		}))
	}

	eq, err := j.ListEquityByRun("R1")
	require.NoError(t, err)
	require.Len(t, eq, 3)
	assert.InDelta(t, 100002, eq[2].Equity, 1e-9)
	assert.Equal(t, "low", eq[0].Regime)
	assert.True(t, eq[1].Date.Equal(d(2024, 1, 2)))

	none, err := j.ListEquityByRun("nope")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteRuns(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	r := RunRecord{
		RunID:       "R1",
		Created:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Strategy:    "wheel",
		Dataset:     "btc.csv",
		Start:       d(2023, 1, 1),
		End:         d(2023, 12, 31),
		StartEquity: 100000,
		FinalEquity: 112000,
		TotalReturn: 0.12,
		MaxDrawdown: 0.08,
		Sharpe:      1.1,
		Trades:      24,
		Assignments: 3,
	}
	require.NoError(t, j.RecordRun(r))

	got, err := j.GetRun("R1")
	require.NoError(t, err)
	assert.Equal(t, "wheel", got.Strategy)
	assert.Equal(t, 24, got.Trades)
	assert.True(t, got.End.Equal(r.End))

	r2 := r
	r2.RunID = "R2"
	r2.Created = r.Created.Add(time.Hour)
	require.NoError(t, j.RecordRun(r2))

	runs, err := j.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "R2", runs[0].RunID)
}

func TestSQLiteConcurrentWriters(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "R", Date: d(2024, 1, 1).AddDate(0, 0, w*25+i)}))
			}
		}(w)
	}
	wg.Wait()

	eq, err := j.ListEquityByRun("R")
	require.NoError(t, err)
	assert.Len(t, eq, 100)
}
