package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a Journal backed by a single database file. It may be shared
// by concurrent runs; writes are serialized on one connection.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordEvent(e EventRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO events
		(event_id, run_id, position_id, date, type, instrument, strike, expiration,
		 quantity, price, spot, cash_effect, asset_effect, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EventID, e.RunID, e.PositionID, e.Date, e.Type, e.Instrument, e.Strike, e.Expiration,
		e.Quantity, e.Price, e.Spot, e.CashEffect, e.AssetEffect, e.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, date, equity, cash, spot_qty, spot, position_value, regime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Date, e.Equity, e.Cash, e.SpotQty, e.Spot, e.PositionValue, e.Regime,
	)
	return err
}

func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, created, strategy, dataset, start_date, end_date, start_equity, final_equity,
		 total_return, max_drawdown, sharpe, trades, assignments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Strategy, r.Dataset, r.Start, r.End, r.StartEquity, r.FinalEquity,
		r.TotalReturn, r.MaxDrawdown, r.Sharpe, r.Trades, r.Assignments,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
