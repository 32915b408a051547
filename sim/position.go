package sim

import (
	"time"

	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/pricing"
)

// Position is one open option position.
type Position struct {
	ID           string
	Kind         pricing.Kind
	Strike       float64
	Expiration   time.Time
	Quantity     float64 // negative = short
	EntryPremium float64 // per unit
	OpenDate     time.Time
}

func (p Position) Short() bool { return p.Quantity < 0 }

// OpenSide is the side that opened the position; marks and unwinds use
// the opposite one.
func (p Position) OpenSide() pricing.Side { return pricing.SideOf(p.Quantity) }

// OpenRequest asks the ledger to open (or extend) a position.
type OpenRequest struct {
	Kind       pricing.Kind
	Strike     float64
	Expiration time.Time
	Quantity   float64 // negative = sell
	Reason     string
}

// Snapshot is one row of the equity history.
type Snapshot struct {
	Date          time.Time
	Equity        float64
	Cash          float64
	SpotQty       float64
	Spot          float64
	PositionValue float64
	Regime        string
}

// Event is one row of the trade log.
type Event struct {
	ID          string
	Date        time.Time
	Type        string // journal.EventOpen, EventSettle, EventSpot
	PositionID  string
	Instrument  string
	Strike      float64
	Expiration  time.Time
	Quantity    float64
	Price       float64
	Spot        float64
	CashEffect  float64
	AssetEffect float64
	Reason      string

	Assigned bool // short position settled in the money
	Physical bool // settled by spot transfer
}

func (e Event) record(runID string) journal.EventRecord {
	return journal.EventRecord{
		EventID:     e.ID,
		RunID:       runID,
		PositionID:  e.PositionID,
		Date:        e.Date,
		Type:        e.Type,
		Instrument:  e.Instrument,
		Strike:      e.Strike,
		Expiration:  e.Expiration,
		Quantity:    e.Quantity,
		Price:       e.Price,
		Spot:        e.Spot,
		CashEffect:  e.CashEffect,
		AssetEffect: e.AssetEffect,
		Reason:      e.Reason,
	}
}

func (s Snapshot) record(runID string) journal.EquitySnapshot {
	return journal.EquitySnapshot{
		RunID:         runID,
		Date:          s.Date,
		Equity:        s.Equity,
		Cash:          s.Cash,
		SpotQty:       s.SpotQty,
		Spot:          s.Spot,
		PositionValue: s.PositionValue,
		Regime:        s.Regime,
	}
}

// AccountView is a read-only copy of the account handed to strategies.
type AccountView struct {
	Date      time.Time
	Cash      float64
	SpotQty   float64
	Positions []Position
}

func (v AccountView) Flat() bool { return len(v.Positions) == 0 && v.SpotQty <= 0 }

func (v AccountView) HasOptions() bool { return len(v.Positions) > 0 }

func (v AccountView) HasSpot() bool { return v.SpotQty > 0 }

// Count returns how many open positions match kind and short-ness.
func (v AccountView) Count(kind pricing.Kind, short bool) int {
	n := 0
	for _, p := range v.Positions {
		if p.Kind == kind && p.Short() == short {
			n++
		}
	}
	return n
}
