package journal

import "time"

// Event types.
const (
	EventOpen   = "open"
	EventSettle = "settle"
	EventSpot   = "spot"
)

// EventRecord is one entry of a run's trade log.
type EventRecord struct {
	EventID     string
	RunID       string
	PositionID  string
	Date        time.Time
	Type        string // open, settle, spot
	Instrument  string // put, call or spot
	Strike      float64
	Expiration  time.Time
	Quantity    float64 // signed, negative = sold
	Price       float64 // premium, settlement value or spot fill per unit
	Spot        float64
	CashEffect  float64
	AssetEffect float64
	Reason      string
}

// EquitySnapshot is one day of a run's equity history.
type EquitySnapshot struct {
	RunID         string
	Date          time.Time
	Equity        float64
	Cash          float64
	SpotQty       float64
	Spot          float64
	PositionValue float64
	Regime        string
}

type Journal interface {
	RecordEvent(EventRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// RunRecorder is implemented by journals that keep a run summary table.
type RunRecorder interface {
	RecordRun(RunRecord) error
}
