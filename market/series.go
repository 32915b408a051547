package market

import (
	"fmt"
	"sort"
	"time"
)

// Match selects how a target date is resolved against the trading calendar.
type Match string

const (
	MatchExact   Match = "exact"   // must match exactly
	MatchHigher  Match = "higher"  // first available date on or after target
	MatchLower   Match = "lower"   // last available date on or before target
	MatchNearest Match = "nearest" // closest available date, ties go later
)

func ParseMatch(s string) (Match, error) {
	switch m := Match(s); m {
	case MatchExact, MatchHigher, MatchLower, MatchNearest:
		return m, nil
	case "":
		return MatchHigher, nil
	}
	return "", fmt.Errorf("unknown date match %q (exact, higher, lower, nearest)", s)
}

// Series is an ordered, date-deduplicated run of observations. It is
// read-only once built and safe to share between concurrent runs.
type Series struct {
	obs []Observation
}

// NewSeries validates rows and their ordering. Dates are truncated to UTC days.
func NewSeries(rows []Observation) (*Series, error) {
	obs := make([]Observation, len(rows))
	for i, o := range rows {
		o.Date = Day(o.Date)
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if i > 0 && !o.Date.After(obs[i-1].Date) {
			return nil, fmt.Errorf("%w: %s follows %s", ErrNonMonotonicDates,
				FormatDay(o.Date), FormatDay(obs[i-1].Date))
		}
		obs[i] = o
	}
	return &Series{obs: obs}, nil
}

func (s *Series) Len() int { return len(s.obs) }

func (s *Series) At(i int) Observation { return s.obs[i] }

func (s *Series) First() Observation { return s.obs[0] }

func (s *Series) Last() Observation { return s.obs[len(s.obs)-1] }

// Observations returns a copy of the rows.
func (s *Series) Observations() []Observation {
	out := make([]Observation, len(s.obs))
	copy(out, s.obs)
	return out
}

// Index returns the position of date in the series, or -1.
func (s *Series) Index(date time.Time) int {
	d := Day(date)
	i := s.search(d)
	if i < len(s.obs) && s.obs[i].Date.Equal(d) {
		return i
	}
	return -1
}

// Slice returns the sub-series with from <= date <= to. The rows are shared.
func (s *Series) Slice(from, to time.Time) *Series {
	lo := s.search(Day(from))
	hi := s.search(Day(to).AddDate(0, 0, 1))
	if hi < lo {
		hi = lo
	}
	return &Series{obs: s.obs[lo:hi]}
}

// Window returns the sub-series of rows [i, j).
func (s *Series) Window(i, j int) *Series {
	return &Series{obs: s.obs[i:j]}
}

// Resolve maps target onto a trading date in the series.
func (s *Series) Resolve(target time.Time, m Match) (time.Time, error) {
	if len(s.obs) == 0 {
		return time.Time{}, fmt.Errorf("%w: empty series", ErrMissingDate)
	}
	d := Day(target)
	i := s.search(d)
	exact := i < len(s.obs) && s.obs[i].Date.Equal(d)
	if exact {
		return d, nil
	}

	miss := func() (time.Time, error) {
		return time.Time{}, fmt.Errorf("%w: %s (%s match)", ErrMissingDate, FormatDay(d), m)
	}

	switch m {
	case MatchExact:
		return miss()
	case MatchHigher:
		if i >= len(s.obs) {
			return miss()
		}
		return s.obs[i].Date, nil
	case MatchLower:
		if i == 0 {
			return miss()
		}
		return s.obs[i-1].Date, nil
	case MatchNearest:
		switch {
		case i >= len(s.obs):
			return miss()
		case i == 0:
			return s.obs[0].Date, nil
		}
		up, down := s.obs[i].Date, s.obs[i-1].Date
		if up.Sub(d) <= d.Sub(down) {
			return up, nil
		}
		return down, nil
	}
	return time.Time{}, fmt.Errorf("unknown date match %q", m)
}

func (s *Series) search(d time.Time) int {
	return sort.Search(len(s.obs), func(i int) bool {
		return !s.obs[i].Date.Before(d)
	})
}
