package pricing

import (
	"fmt"
	"strings"
)

// Kind is the option type.
type Kind int

const (
	Put Kind = iota
	Call
)

func (k Kind) String() string {
	switch k {
	case Put:
		return "put"
	case Call:
		return "call"
	}
	return "unknown"
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "put", "p":
		return Put, nil
	case "call", "c":
		return Call, nil
	}
	return 0, fmt.Errorf("unknown option kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Intrinsic is the exercise value of one unit at spot.
func (k Kind) Intrinsic(spot, strike float64) float64 {
	if k == Call {
		return max(spot-strike, 0)
	}
	return max(strike-spot, 0)
}

// Side is the trade direction.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

func (s Side) Opposite() Side {
	if s == Sell {
		return Buy
	}
	return Sell
}

// SideOf returns the side that opens a signed quantity: negative is sold.
func SideOf(qty float64) Side {
	if qty < 0 {
		return Sell
	}
	return Buy
}
