package sim

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/pkg/id"
	"github.com/rustyeddy/optsim/pricing"
	"github.com/rustyeddy/optsim/regime"
)

var (
	ErrPositionCollision = errors.New("position collision")
	ErrPastDate          = errors.New("date is before the ledger's current day")
	ErrInvalidExpiration = errors.New("expiration must be after the open date")
	ErrBadInstruction    = errors.New("bad instruction")
)

// SettlementMode selects how in-the-money expirations are settled.
type SettlementMode string

const (
	SettleCash     SettlementMode = "cash"
	SettlePhysical SettlementMode = "physical"
)

// CollisionPolicy decides what happens when an open request names a
// kind/strike/expiration that is already held.
type CollisionPolicy string

const (
	// CollisionReject refuses any second position on the same contract.
	CollisionReject CollisionPolicy = "reject"
	// CollisionMerge adds to a same-sign position; opposite signs are still refused.
	CollisionMerge CollisionPolicy = "merge"
)

// Pricer quotes positions for marking. *pricing.Kernel implements it.
type Pricer interface {
	Price(pricing.Request, *pricing.Calibration) (pricing.Result, error)
}

type Config struct {
	RunID      string
	Cash       float64
	SpotQty    float64
	Settlement SettlementMode
	Collision  CollisionPolicy
}

// AccountState is the mutable account of one run.
type AccountState struct {
	Cash      float64
	SpotQty   float64
	Positions []Position
	History   []Snapshot
}

// Ledger owns one run's AccountState. It is not safe for concurrent use;
// parallel runs each get their own Ledger.
type Ledger struct {
	cfg     Config
	pricer  Pricer
	journal journal.Journal

	state  AccountState
	events []Event

	today  time.Time
	marked bool
}

// New creates a ledger. j may be nil.
func New(cfg Config, p Pricer, j journal.Journal) (*Ledger, error) {
	if p == nil {
		return nil, fmt.Errorf("ledger: pricer is required")
	}
	if cfg.Settlement == "" {
		cfg.Settlement = SettleCash
	}
	if cfg.Collision == "" {
		cfg.Collision = CollisionReject
	}
	switch cfg.Settlement {
	case SettleCash, SettlePhysical:
	default:
		return nil, fmt.Errorf("ledger: unknown settlement mode %q", cfg.Settlement)
	}
	switch cfg.Collision {
	case CollisionReject, CollisionMerge:
	default:
		return nil, fmt.Errorf("ledger: unknown collision policy %q", cfg.Collision)
	}
	if cfg.SpotQty < 0 {
		return nil, fmt.Errorf("ledger: starting spot quantity must be non-negative")
	}
	if cfg.RunID == "" {
		cfg.RunID = id.WithPrefix(id.Run)
	}

	return &Ledger{
		cfg:     cfg,
		pricer:  p,
		journal: j,
		state:   AccountState{Cash: cfg.Cash, SpotQty: cfg.SpotQty},
	}, nil
}

func (l *Ledger) RunID() string { return l.cfg.RunID }

func (l *Ledger) Settlement() SettlementMode { return l.cfg.Settlement }

func (l *Ledger) Cash() float64 { return l.state.Cash }

func (l *Ledger) SpotQty() float64 { return l.state.SpotQty }

// State returns a copy of the account.
func (l *Ledger) State() AccountState {
	s := l.state
	s.Positions = append([]Position(nil), l.state.Positions...)
	s.History = append([]Snapshot(nil), l.state.History...)
	return s
}

func (l *Ledger) View() AccountView {
	return AccountView{
		Date:      l.today,
		Cash:      l.state.Cash,
		SpotQty:   l.state.SpotQty,
		Positions: append([]Position(nil), l.state.Positions...),
	}
}

func (l *Ledger) History() []Snapshot {
	return append([]Snapshot(nil), l.state.History...)
}

func (l *Ledger) Events() []Event {
	return append([]Event(nil), l.events...)
}

// MarkToMarket revalues every open position at today's market and appends
// an equity snapshot. It must run once per day, before settlement and entries.
func (l *Ledger) MarkToMarket(obs market.Observation, rg regime.Regime, cal *pricing.Calibration) (Snapshot, error) {
	d := market.Day(obs.Date)
	if l.marked && !d.After(l.today) {
		return Snapshot{}, fmt.Errorf("mark %s: %w: last mark %s",
			market.FormatDay(d), market.ErrNonMonotonicDates, market.FormatDay(l.today))
	}
	if !l.marked && !l.today.IsZero() && d.Before(l.today) {
		return Snapshot{}, fmt.Errorf("mark %s: %w", market.FormatDay(d), ErrPastDate)
	}

	posValue, err := l.positionValue(obs, rg, cal)
	if err != nil {
		return Snapshot{}, fmt.Errorf("mark %s: %w", market.FormatDay(d), err)
	}

	snap := Snapshot{
		Date:          d,
		Equity:        l.state.Cash + l.state.SpotQty*obs.Spot + posValue,
		Cash:          l.state.Cash,
		SpotQty:       l.state.SpotQty,
		Spot:          obs.Spot,
		PositionValue: posValue,
		Regime:        rg.String(),
	}
	l.state.History = append(l.state.History, snap)
	l.today = d
	l.marked = true

	if l.journal != nil {
		if err := l.journal.RecordEquity(snap.record(l.cfg.RunID)); err != nil {
			return snap, fmt.Errorf("journal equity: %w", err)
		}
	}
	return snap, nil
}

// Equity recomputes cash + spot + marks without recording anything.
func (l *Ledger) Equity(obs market.Observation, rg regime.Regime, cal *pricing.Calibration) (float64, error) {
	v, err := l.positionValue(obs, rg, cal)
	if err != nil {
		return 0, err
	}
	return l.state.Cash + l.state.SpotQty*obs.Spot + v, nil
}

func (l *Ledger) positionValue(obs market.Observation, rg regime.Regime, cal *pricing.Calibration) (float64, error) {
	var sum float64
	for _, p := range l.state.Positions {
		v, err := l.markPosition(p, obs, rg, cal)
		if err != nil {
			return 0, fmt.Errorf("position %s: %w", p.ID, err)
		}
		sum += v
	}
	return sum, nil
}

// markPosition is the signed unwind value of p. Positions at or past
// expiration are worth their intrinsic value.
func (l *Ledger) markPosition(p Position, obs market.Observation, rg regime.Regime, cal *pricing.Calibration) (float64, error) {
	days := market.DaysBetween(obs.Date, p.Expiration)
	if days <= 0 {
		return p.Quantity * p.Kind.Intrinsic(obs.Spot, p.Strike), nil
	}

	res, err := l.pricer.Price(pricing.Request{
		Spot:   obs.Spot,
		Strike: p.Strike,
		Days:   float64(days),
		Vol:    obs.Sigma(),
		Rate:   obs.Rate,
		Kind:   p.Kind,
		Side:   p.OpenSide().Opposite(),
		Regime: rg,
	}, cal)
	if err != nil {
		return 0, err
	}
	return p.Quantity * res.Execution, nil
}

// OpenPosition books a new position at premium per unit. Selling credits
// cash and buying debits it.
func (l *Ledger) OpenPosition(req OpenRequest, premium float64, today time.Time) (Position, error) {
	d := market.Day(today)
	if !l.today.IsZero() && d.Before(l.today) {
		return Position{}, fmt.Errorf("open %s: %w", market.FormatDay(d), ErrPastDate)
	}
	if req.Quantity == 0 || math.IsNaN(req.Quantity) || math.IsInf(req.Quantity, 0) {
		return Position{}, fmt.Errorf("%w: quantity must be non-zero", ErrBadInstruction)
	}
	if req.Strike <= 0 {
		return Position{}, fmt.Errorf("%w: strike must be positive", ErrBadInstruction)
	}
	if premium < 0 || math.IsNaN(premium) {
		return Position{}, fmt.Errorf("%w: premium must be non-negative", ErrBadInstruction)
	}
	exp := market.Day(req.Expiration)
	if !exp.After(d) {
		return Position{}, fmt.Errorf("open %s exp %s: %w", market.FormatDay(d), market.FormatDay(exp), ErrInvalidExpiration)
	}

	cash := -req.Quantity * premium

	idx := l.find(req.Kind, req.Strike, exp)
	var pos Position
	if idx >= 0 {
		held := l.state.Positions[idx]
		if l.cfg.Collision == CollisionReject || (held.Quantity < 0) != (req.Quantity < 0) {
			return Position{}, fmt.Errorf("%w: %s %g exp %s already held (qty %g)", ErrPositionCollision,
				req.Kind, req.Strike, market.FormatDay(exp), held.Quantity)
		}
		q := held.Quantity + req.Quantity
		held.EntryPremium = (held.EntryPremium*math.Abs(held.Quantity) + premium*math.Abs(req.Quantity)) / math.Abs(q)
		held.Quantity = q
		l.state.Positions[idx] = held
		pos = held
	} else {
		pos = Position{
			ID:           id.WithPrefix(id.Position),
			Kind:         req.Kind,
			Strike:       req.Strike,
			Expiration:   exp,
			Quantity:     req.Quantity,
			EntryPremium: premium,
			OpenDate:     d,
		}
		l.state.Positions = append(l.state.Positions, pos)
	}
	l.state.Cash += cash
	if d.After(l.today) {
		l.today = d
	}

	ev := Event{
		Date:       d,
		Type:       journal.EventOpen,
		PositionID: pos.ID,
		Instrument: req.Kind.String(),
		Strike:     req.Strike,
		Expiration: exp,
		Quantity:   req.Quantity,
		Price:      premium,
		CashEffect: cash,
		Reason:     req.Reason,
	}
	return pos, l.record(&ev)
}

// TradeSpot buys (qty > 0) or sells (qty < 0) spot at price.
func (l *Ledger) TradeSpot(qty, price float64, today time.Time, reason string) (Event, error) {
	d := market.Day(today)
	if !l.today.IsZero() && d.Before(l.today) {
		return Event{}, fmt.Errorf("spot %s: %w", market.FormatDay(d), ErrPastDate)
	}
	if qty == 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return Event{}, fmt.Errorf("%w: spot quantity must be non-zero", ErrBadInstruction)
	}
	if price <= 0 {
		return Event{}, fmt.Errorf("%w: spot price must be positive", ErrBadInstruction)
	}

	l.state.Cash -= qty * price
	l.state.SpotQty += qty
	if d.After(l.today) {
		l.today = d
	}

	ev := Event{
		Date:        d,
		Type:        journal.EventSpot,
		Instrument:  "spot",
		Quantity:    qty,
		Price:       price,
		Spot:        price,
		CashEffect:  -qty * price,
		AssetEffect: qty,
		Reason:      reason,
	}
	err := l.record(&ev)
	return ev, err
}

func (l *Ledger) find(kind pricing.Kind, strike float64, exp time.Time) int {
	for i, p := range l.state.Positions {
		if p.Kind == kind && p.Expiration.Equal(exp) && sameStrike(p.Strike, strike) {
			return i
		}
	}
	return -1
}

func sameStrike(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

func (l *Ledger) record(ev *Event) error {
	if ev.ID == "" {
		ev.ID = id.WithPrefix(id.Event)
	}
	l.events = append(l.events, *ev)
	if l.journal == nil {
		return nil
	}
	if err := l.journal.RecordEvent(ev.record(l.cfg.RunID)); err != nil {
		return fmt.Errorf("journal event: %w", err)
	}
	return nil
}
