package market

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekdays Mon 2024-01-01 .. Fri 2024-01-12
func testSeries(t *testing.T) *Series {
	t.Helper()
	var rows []Observation
	for d := day(2024, 1, 1); !d.After(day(2024, 1, 12)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		rows = append(rows, Observation{Date: d, Spot: 40000, IV: 0.55, Rate: 0.04})
	}
	s, err := NewSeries(rows)
	require.NoError(t, err)
	return s
}

func TestNewSeriesRejectsNonMonotonic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rows []Observation
	}{
		{
			name: "duplicate",
			rows: []Observation{
				{Date: day(2024, 1, 2), Spot: 1, IV: 0.5},
				{Date: day(2024, 1, 2), Spot: 1, IV: 0.5},
			},
		},
		{
			name: "backwards",
			rows: []Observation{
				{Date: day(2024, 1, 3), Spot: 1, IV: 0.5},
				{Date: day(2024, 1, 2), Spot: 1, IV: 0.5},
			},
		},
		{
			name: "same day different clock",
			rows: []Observation{
				{Date: time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC), Spot: 1, IV: 0.5},
				{Date: time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC), Spot: 1, IV: 0.5},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewSeries(tt.rows)
			assert.ErrorIs(t, err, ErrNonMonotonicDates)
		})
	}
}

func TestNewSeriesValidatesRows(t *testing.T) {
	t.Parallel()

	_, err := NewSeries([]Observation{{Date: day(2024, 1, 2), Spot: 0, IV: 0.5}})
	assert.ErrorIs(t, err, ErrBadObservation)

	_, err = NewSeries([]Observation{{Date: day(2024, 1, 2), Spot: 10, IV: -1}})
	assert.ErrorIs(t, err, ErrBadObservation)
}

func TestSeriesResolve(t *testing.T) {
	t.Parallel()
	s := testSeries(t)

	sat := day(2024, 1, 6)
	tests := []struct {
		name    string
		target  time.Time
		match   Match
		want    time.Time
		wantErr bool
	}{
		{"exact hit", day(2024, 1, 3), MatchExact, day(2024, 1, 3), false},
		{"exact miss", sat, MatchExact, time.Time{}, true},
		{"higher", sat, MatchHigher, day(2024, 1, 8), false},
		{"lower", sat, MatchLower, day(2024, 1, 5), false},
		{"nearest saturday goes back", sat, MatchNearest, day(2024, 1, 5), false},
		{"nearest sunday goes forward", day(2024, 1, 7), MatchNearest, day(2024, 1, 8), false},
		{"higher past end", day(2024, 1, 13), MatchHigher, time.Time{}, true},
		{"nearest past end", day(2024, 1, 20), MatchNearest, time.Time{}, true},
		{"lower before start", day(2023, 12, 31), MatchLower, time.Time{}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := s.Resolve(tt.target, tt.match)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", FormatDay(got), FormatDay(tt.want))
		})
	}
}

func TestSeriesSliceAndIndex(t *testing.T) {
	t.Parallel()
	s := testSeries(t)

	sub := s.Slice(day(2024, 1, 6), day(2024, 1, 10))
	require.Equal(t, 3, sub.Len())
	assert.True(t, sub.First().Date.Equal(day(2024, 1, 8)))
	assert.True(t, sub.Last().Date.Equal(day(2024, 1, 10)))

	assert.Equal(t, 0, s.Index(day(2024, 1, 1)))
	assert.Equal(t, -1, s.Index(day(2024, 1, 6)))
}

func TestIVUnit(t *testing.T) {
	t.Parallel()

	u, err := ParseIVUnit("")
	require.NoError(t, err)
	assert.Equal(t, IVPercent, u)
	_, err = ParseIVUnit("bps")
	assert.Error(t, err)

	assert.InDelta(t, 0.55, IVPercent.Decimal(55), 1e-12)
	assert.InDelta(t, 0.55, IVDecimal.Decimal(0.55), 1e-12)

	// conversion is linear, so ordering survives around any cutoff
	prev := -1.0
	for _, v := range []float64{0.5, 1.9, 2.0, 2.5, 45, 190} {
		got := IVPercent.Decimal(v)
		assert.Greater(t, got, prev, "iv %v", v)
		prev = got
	}
}

func TestLoadCSV(t *testing.T) {
	t.Parallel()

	in := `date,spot,iv,rate
2024-01-02,42000,55.1,0.045

2024-01-03,42500.5,54
2024-01-04T00:00:00Z,43000,53,0.044
`
	s, err := LoadCSV(strings.NewReader(in), IVPercent)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())

	assert.InDelta(t, 0.551, s.At(0).Sigma(), 1e-12)
	assert.InDelta(t, 0.54, s.At(1).IV, 1e-12)
	assert.InDelta(t, 0.53, s.At(2).IV, 1e-12)

	assert.InDelta(t, 42000, s.At(0).Spot, 1e-9)
	assert.InDelta(t, 0.045, s.At(0).Rate, 1e-12)
	assert.InDelta(t, 0, s.At(1).Rate, 1e-12)
	assert.True(t, s.At(2).Date.Equal(day(2024, 1, 4)))
}

func TestLoadCSVBadRows(t *testing.T) {
	t.Parallel()

	_, err := LoadCSV(strings.NewReader("2024-01-02,abc,55\n"), IVPercent)
	assert.Error(t, err)

	_, err = LoadCSV(strings.NewReader("2024-01-03,1,55\n2024-01-02,1,55\n"), IVPercent)
	assert.ErrorIs(t, err, ErrNonMonotonicDates)

	_, err = LoadCSV(strings.NewReader("2024-01-02,1,55\n"), IVUnit("bps"))
	assert.Error(t, err)
}
