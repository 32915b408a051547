package sim

import (
	"fmt"
	"time"

	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/pricing"
)

const qtyEpsilon = 1e-12

// SettleExpirations settles every position expiring on or before today at
// intrinsic value and removes it from the open set.
//
// Under physical settlement an in-the-money position moves spot at the
// strike instead: calls hand spot to the holder, puts hand it to the
// writer. When that transfer would leave cash or spot negative the
// position is cash-settled.
func (l *Ledger) SettleExpirations(obs market.Observation) ([]Event, error) {
	d := market.Day(obs.Date)
	if !l.today.IsZero() && d.Before(l.today) {
		return nil, fmt.Errorf("settle %s: %w", market.FormatDay(d), ErrPastDate)
	}
	if d.After(l.today) {
		l.today = d
	}

	var (
		out  []Event
		keep = l.state.Positions[:0]
	)
	for _, p := range l.state.Positions {
		if p.Expiration.After(d) {
			keep = append(keep, p)
			continue
		}
		out = append(out, l.settle(p, obs.Spot, d))
	}
	// clear the tail so settled positions are not retained by the backing array
	for i := len(keep); i < len(l.state.Positions); i++ {
		l.state.Positions[i] = Position{}
	}
	l.state.Positions = keep

	for i := range out {
		if err := l.record(&out[i]); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (l *Ledger) settle(p Position, spot float64, d time.Time) Event {
	payoff := p.Kind.Intrinsic(spot, p.Strike)
	ev := Event{
		Date:       d,
		Type:       journal.EventSettle,
		PositionID: p.ID,
		Instrument: p.Kind.String(),
		Strike:     p.Strike,
		Expiration: p.Expiration,
		Quantity:   p.Quantity,
		Price:      payoff,
		Spot:       spot,
		Assigned:   payoff > 0 && p.Short(),
	}

	switch {
	case payoff == 0:
		ev.Reason = "expired worthless"
	case l.cfg.Settlement == SettlePhysical:
		cash, asset := physical(p)
		if l.state.Cash+cash >= 0 && l.state.SpotQty+asset >= -qtyEpsilon {
			ev.CashEffect = cash
			ev.AssetEffect = asset
			ev.Physical = true
			ev.Reason = "physical"
			break
		}
		ev.CashEffect = p.Quantity * payoff
		ev.Reason = "cash (physical unaffordable)"
	default:
		ev.CashEffect = p.Quantity * payoff
		ev.Reason = "cash"
	}
	if ev.Assigned {
		ev.Reason = "assigned, " + ev.Reason
	}

	l.state.Cash += ev.CashEffect
	l.state.SpotQty += ev.AssetEffect
	if l.state.SpotQty > -qtyEpsilon && l.state.SpotQty < qtyEpsilon {
		l.state.SpotQty = 0
	}
	return ev
}

// physical returns the cash and spot moved by exercising p at its strike.
// A call holder receives spot and pays the strike, a put holder does the
// reverse; a negative quantity takes the writer's side.
func physical(p Position) (cash, asset float64) {
	if p.Kind == pricing.Call {
		return -p.Strike * p.Quantity, p.Quantity
	}
	return p.Strike * p.Quantity, -p.Quantity
}
