package regime

import (
	"fmt"
	"strings"
)

// Regime is a discrete volatility regime. Ordinals are ordered from
// cheapest to richest volatility.
type Regime int

const (
	Low Regime = iota
	Mid
	High
	Extreme
)

// All lists every regime in ordinal order.
var All = []Regime{Low, Mid, High, Extreme}

func (r Regime) String() string {
	switch r {
	case Low:
		return "low"
	case Mid:
		return "mid"
	case High:
		return "high"
	case Extreme:
		return "extreme"
	default:
		return "unknown"
	}
}

func (r Regime) Valid() bool {
	return r >= Low && r <= Extreme
}

// ParseRegime accepts the regime names case-insensitively; "normal" is Mid.
func ParseRegime(s string) (Regime, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, nil
	case "mid", "normal", "medium":
		return Mid, nil
	case "high":
		return High, nil
	case "extreme":
		return Extreme, nil
	}
	return 0, fmt.Errorf("unknown regime %q", s)
}

func (r Regime) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid regime %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Regime) UnmarshalText(b []byte) error {
	v, err := ParseRegime(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
