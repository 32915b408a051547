package market

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNonMonotonicDates is returned when observation dates do not strictly increase.
	ErrNonMonotonicDates = errors.New("non-monotonic dates")

	// ErrMissingDate is returned when a date cannot be resolved against the series calendar.
	ErrMissingDate = errors.New("missing date")

	ErrBadObservation = errors.New("bad observation")
)

const dateLayout = "2006-01-02"

// Observation is one end-of-day market record for the underlying.
type Observation struct {
	Date time.Time
	Spot float64
	IV   float64 // implied vol, decimal
	Rate float64
}

// Sigma returns the implied vol as a decimal.
func (o Observation) Sigma() float64 {
	return o.IV
}

func (o Observation) Validate() error {
	if o.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrBadObservation)
	}
	if o.Spot <= 0 {
		return fmt.Errorf("%w: %s spot must be positive, got %g", ErrBadObservation, FormatDay(o.Date), o.Spot)
	}
	if o.IV < 0 {
		return fmt.Errorf("%w: %s iv must be non-negative, got %g", ErrBadObservation, FormatDay(o.Date), o.IV)
	}
	return nil
}

// IVUnit is how a data source quotes implied vol.
type IVUnit string

const (
	// IVPercent is percent points, as the DVOL index is quoted (55.0).
	IVPercent IVUnit = "percent"
	// IVDecimal is a plain decimal (0.55).
	IVDecimal IVUnit = "decimal"
)

func ParseIVUnit(s string) (IVUnit, error) {
	switch u := IVUnit(s); u {
	case IVPercent, IVDecimal:
		return u, nil
	case "":
		return IVPercent, nil
	}
	return "", fmt.Errorf("unknown iv unit %q (want percent or decimal)", s)
}

// Decimal converts v from u to a decimal vol.
func (u IVUnit) Decimal(v float64) float64 {
	if u == IVDecimal {
		return v
	}
	return v / 100
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// AddDays returns the calendar day n days after t.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		// accept full timestamps too
		t2, err2 := time.Parse(time.RFC3339, s)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
		}
		t = t2
	}
	return Day(t), nil
}

func FormatDay(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
