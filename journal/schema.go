// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS events (
	event_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	position_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	type TEXT NOT NULL,
	instrument TEXT NOT NULL,
	strike REAL NOT NULL,
	expiration DATETIME NOT NULL,
	quantity REAL NOT NULL,
	price REAL NOT NULL,
	spot REAL NOT NULL,
	cash_effect REAL NOT NULL,
	asset_effect REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	equity REAL NOT NULL,
	cash REAL NOT NULL,
	spot_qty REAL NOT NULL,
	spot REAL NOT NULL,
	position_value REAL NOT NULL,
	regime TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	dataset TEXT NOT NULL,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	start_equity REAL NOT NULL,
	final_equity REAL NOT NULL,
	total_return REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	sharpe REAL NOT NULL,
	trades INTEGER NOT NULL,
	assignments INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, date);
CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, date);
`
