package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/optsim/pricing"
)

// size applies the configured contract rounding and minimum. It returns 0
// when the quantity is too small to trade.
func (c Config) size(q float64) float64 {
	if c.WholeContracts {
		q = math.Floor(q)
	}
	if q <= 0 || q < c.MinQuantity {
		return 0
	}
	return q
}

// cashSecuredPut sells puts against all of cash.
func (c Config) cashSecuredPut(ctx Context, cash float64, reason string) *Instruction {
	if cash <= 0 {
		return nil
	}
	k := c.Put.Strike(pricing.Put, ctx.Obs, c.Days)
	if k <= 0 {
		return nil
	}
	q := c.size(cash / k)
	if q == 0 {
		return nil
	}
	return &Instruction{
		Legs:   []Leg{{Kind: pricing.Put, Strike: k, Days: c.Days, Quantity: -q}},
		Reason: reason,
	}
}

// coveredCall sells calls against qty spot.
func (c Config) coveredCall(ctx Context, qty float64, reason string) *Instruction {
	q := c.size(qty)
	if q == 0 {
		return nil
	}
	k := c.Call.Strike(pricing.Call, ctx.Obs, c.Days)
	return &Instruction{
		Legs:   []Leg{{Kind: pricing.Call, Strike: k, Days: c.Days, Quantity: -q}},
		Reason: reason,
	}
}

// collar buys a protective put and sells a capping call on the spot the
// account will hold after the instruction's own spot trade. The pair is
// skipped when its net debit exceeds the cash left after that trade.
func (c Config) collar(ctx Context, reason string) (*Instruction, error) {
	spot := ctx.Obs.Spot
	cash := ctx.Account.Cash
	held := ctx.Account.SpotQty
	in := &Instruction{Reason: reason}

	if held <= 0 {
		if c.BuyInFraction <= 0 || cash <= 0 {
			return nil, nil
		}
		buy := cash * c.BuyInFraction / spot
		in.Spot = buy
		held = buy
		cash -= buy * spot
	} else if c.CashReserve > 0 {
		target := (cash + held*spot) * c.CashReserve
		if cash < target {
			sell := math.Min((target-cash)/spot, held)
			in.Spot = -sell
			held -= sell
			cash += sell * spot
		}
	}

	q := c.size(held)
	if q == 0 {
		return nil, nil
	}
	if ctx.Quoter == nil {
		return nil, fmt.Errorf("collar: quoter is required")
	}

	kPut := c.Protect.Strike(pricing.Put, ctx.Obs, c.Days)
	kCall := c.Cap.Strike(pricing.Call, ctx.Obs, c.Days)
	put, err := ctx.Quoter.Quote(pricing.Put, kPut, c.Days, pricing.Buy)
	if err != nil {
		return nil, fmt.Errorf("collar put: %w", err)
	}
	call, err := ctx.Quoter.Quote(pricing.Call, kCall, c.Days, pricing.Sell)
	if err != nil {
		return nil, fmt.Errorf("collar call: %w", err)
	}

	debit := (put.Execution - call.Execution) * q
	if debit > cash {
		return nil, nil
	}
	in.Legs = []Leg{
		{Kind: pricing.Put, Strike: kPut, Days: c.Days, Quantity: q},
		{Kind: pricing.Call, Strike: kCall, Days: c.Days, Quantity: -q},
	}
	return in, nil
}
