package store

const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE TABLE IF NOT EXISTS trade_records (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL REFERENCES users(id),
	id      TEXT NOT NULL,
	payload TEXT NOT NULL,
	UNIQUE (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_trade_records_user ON trade_records(user_id, seq);

CREATE TABLE IF NOT EXISTS dividend_records (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL REFERENCES users(id),
	id      TEXT NOT NULL,
	payload TEXT NOT NULL,
	UNIQUE (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_dividend_records_user ON dividend_records(user_id, seq);

CREATE TABLE IF NOT EXISTS assets (
	user_id              TEXT NOT NULL REFERENCES users(id),
	ticker               TEXT NOT NULL,
	name                 TEXT NOT NULL DEFAULT '',
	class                TEXT NOT NULL DEFAULT '',
	opening_quantity     TEXT NOT NULL DEFAULT '0',
	opening_average_cost TEXT NOT NULL DEFAULT '0',
	PRIMARY KEY (user_id, ticker)
);

CREATE TABLE IF NOT EXISTS fundamentals (
	ticker               TEXT PRIMARY KEY,
	eps                  TEXT NOT NULL DEFAULT '0',
	book_value_per_share TEXT NOT NULL DEFAULT '0',
	dividend_per_share   TEXT NOT NULL DEFAULT '0',
	trailing_yield       TEXT NOT NULL DEFAULT '0',
	growth_rate          TEXT NOT NULL DEFAULT '0',
	discount_rate        TEXT NOT NULL DEFAULT '0',
	updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users(id),
	name        TEXT NOT NULL,
	institution TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL DEFAULT 'other'
);

CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);

CREATE TABLE IF NOT EXISTS cash_transactions (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users(id),
	account_id  TEXT NOT NULL REFERENCES accounts(id),
	kind        TEXT NOT NULL,
	amount      TEXT NOT NULL,
	occurred_at TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_cash_transactions_user ON cash_transactions(user_id, occurred_at);

CREATE TABLE IF NOT EXISTS quotes (
	ticker     TEXT PRIMARY KEY,
	price      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS report_snapshots (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id       TEXT NOT NULL REFERENCES users(id),
	snapshot_date TEXT NOT NULL,
	data          TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	UNIQUE (user_id, snapshot_date)
);

CREATE INDEX IF NOT EXISTS idx_report_snapshots_user_date ON report_snapshots(user_id, snapshot_date);
`
