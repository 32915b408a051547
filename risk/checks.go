package risk

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeCash          = errors.New("negative cash")
	ErrNegativeAssetQuantity = errors.New("negative asset quantity")
)

const (
	CodeNegativeCash  = "NEGATIVE_CASH"
	CodeNegativeAsset = "NEGATIVE_ASSET"
)

// tolerance absorbs float dust from fractional sizing (cash/strike etc).
const tolerance = 1e-9

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	Projected Projection
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Err returns nil when the decision is allowed, otherwise an error that
// wraps the sentinel of the first violation.
func (d Decision) Err() error {
	if d.Allowed || len(d.Violations) == 0 {
		return nil
	}
	v := d.Violations[0]
	switch v.Code {
	case CodeNegativeCash:
		return fmt.Errorf("%w: %s", ErrNegativeCash, v.Msg)
	case CodeNegativeAsset:
		return fmt.Errorf("%w: %s", ErrNegativeAssetQuantity, v.Msg)
	}
	return fmt.Errorf("risk violation %s: %s", v.Code, v.Msg)
}

// Evaluate checks a projected account against p.
func Evaluate(p Policy, proj Projection) Decision {
	d := Decision{Allowed: true, Projected: proj}

	if p.NoLeverage && proj.Cash < -tolerance {
		d.add(CodeNegativeCash,
			fmt.Sprintf("projected cash %.2f is below zero", proj.Cash))
	}
	if p.NoShortSpot && proj.SpotQty < -tolerance {
		d.add(CodeNegativeAsset,
			fmt.Sprintf("projected spot quantity %.8f is below zero", proj.SpotQty))
	}
	return d
}
