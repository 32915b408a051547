package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"
)

type CSVJournal struct {
	mu     sync.Mutex
	events *csv.Writer
	equity *csv.Writer
	vf, ef *os.File
}

var (
	eventHeader  = []string{"event_id", "run_id", "position_id", "date", "type", "instrument", "strike", "expiration", "quantity", "price", "spot", "cash_effect", "asset_effect", "reason"}
	equityHeader = []string{"run_id", "date", "equity", "cash", "spot_qty", "spot", "position_value", "regime"}
)

func NewCSV(eventsPath, equityPath string) (*CSVJournal, error) {
	vf, err := os.Create(eventsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		vf.Close()
		return nil, err
	}

	vw := csv.NewWriter(vf)
	ew := csv.NewWriter(ef)

	if err := vw.Write(eventHeader); err != nil {
		return nil, err
	}
	if err := ew.Write(equityHeader); err != nil {
		return nil, err
	}

	vw.Flush()
	if err := vw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{events: vw, equity: ew, vf: vf, ef: ef}, nil
}

func (j *CSVJournal) RecordEvent(e EventRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.events.Write([]string{
		e.EventID,
		e.RunID,
		e.PositionID,
		date(e.Date),
		e.Type,
		e.Instrument,
		f(e.Strike),
		date(e.Expiration),
		f(e.Quantity),
		f(e.Price),
		f(e.Spot),
		f(e.CashEffect),
		f(e.AssetEffect),
		e.Reason,
	})
	if err != nil {
		return err
	}
	j.events.Flush()
	return j.events.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.equity.Write([]string{
		e.RunID,
		date(e.Date),
		f(e.Equity),
		f(e.Cash),
		f(e.SpotQty),
		f(e.Spot),
		f(e.PositionValue),
		e.Regime,
	})
	if err != nil {
		return err
	}

	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.events.Flush()
	if err := j.events.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.vf.Close(); err != nil {
		return err
	}
	if err := j.ef.Close(); err != nil {
		return err
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
