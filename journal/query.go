package journal

import (
	"database/sql"
	"errors"
	"fmt"
)

const eventColumns = `event_id, run_id, position_id, date, type, instrument, strike, expiration,
	quantity, price, spot, cash_effect, asset_effect, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (EventRecord, error) {
	var rec EventRecord
	err := s.Scan(
		&rec.EventID,
		&rec.RunID,
		&rec.PositionID,
		&rec.Date,
		&rec.Type,
		&rec.Instrument,
		&rec.Strike,
		&rec.Expiration,
		&rec.Quantity,
		&rec.Price,
		&rec.Spot,
		&rec.CashEffect,
		&rec.AssetEffect,
		&rec.Reason,
	)
	return rec, err
}

// GetEvent returns a single event record by ID.
func (j *SQLite) GetEvent(eventID string) (EventRecord, error) {
	row := j.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE event_id = ?`, eventID)
	rec, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return EventRecord{}, fmt.Errorf("event %q not found", eventID)
		}
		return EventRecord{}, err
	}
	return rec, nil
}

// ListEventsByRun returns a run's trade log in the order it was written.
func (j *SQLite) ListEventsByRun(runID string) ([]EventRecord, error) {
	rows, err := j.db.Query(`SELECT `+eventColumns+` FROM events
		WHERE run_id = ?
		ORDER BY date ASC, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		rec, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityByRun returns a run's equity history ordered by date.
func (j *SQLite) ListEquityByRun(runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, date, equity, cash, spot_qty, spot, position_value, regime
		FROM equity
		WHERE run_id = ?
		ORDER BY date ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(
			&e.RunID,
			&e.Date,
			&e.Equity,
			&e.Cash,
			&e.SpotQty,
			&e.Spot,
			&e.PositionValue,
			&e.Regime,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const runColumns = `run_id, created, strategy, dataset, start_date, end_date, start_equity, final_equity,
	total_return, max_drawdown, sharpe, trades, assignments`

func scanRun(s scanner) (RunRecord, error) {
	var r RunRecord
	err := s.Scan(
		&r.RunID,
		&r.Created,
		&r.Strategy,
		&r.Dataset,
		&r.Start,
		&r.End,
		&r.StartEquity,
		&r.FinalEquity,
		&r.TotalReturn,
		&r.MaxDrawdown,
		&r.Sharpe,
		&r.Trades,
		&r.Assignments,
	)
	return r, err
}

func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	r, err := scanRun(j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("run %q not found", runID)
		}
		return RunRecord{}, err
	}
	return r, nil
}

// ListRuns returns every recorded run, newest first.
func (j *SQLite) ListRuns() ([]RunRecord, error) {
	rows, err := j.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
