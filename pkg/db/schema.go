package db

import "fmt"

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    account_type TEXT NOT NULL,
    trading_mode TEXT NOT NULL DEFAULT 'NORMAL',
    cash_balance REAL NOT NULL DEFAULT 0,
    margin_balance REAL NOT NULL DEFAULT 0,
    portfolio_margin_available REAL NOT NULL DEFAULT 0,
    internalization_enabled INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    parent_order_id TEXT,
    account_id TEXT NOT NULL,
    session_id TEXT NOT NULL,
    ticker TEXT NOT NULL,
    side TEXT NOT NULL,
    order_type TEXT NOT NULL,
    asset_class TEXT NOT NULL DEFAULT 'EQUITY',
    price REAL NOT NULL,
    quantity REAL NOT NULL,
    filled_quantity REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    liquidity_tag TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_orders_open_match
    ON orders (account_id, ticker, side, price, status);

CREATE TABLE IF NOT EXISTS positions (
    account_id TEXT NOT NULL,
    session_id TEXT,
    ticker TEXT NOT NULL,
    quantity REAL NOT NULL DEFAULT 0,
    avg_price REAL NOT NULL DEFAULT 0,
    asset_class TEXT NOT NULL DEFAULT 'EQUITY',
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (account_id, ticker)
);

CREATE TABLE IF NOT EXISTS risk_settings (
    session_id TEXT PRIMARY KEY,
    max_position_value REAL,
    max_messages_per_second INTEGER NOT NULL DEFAULT 100,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS margin_requirements (
    asset_class TEXT NOT NULL,
    account_type TEXT NOT NULL,
    initial_margin_rate REAL NOT NULL,
    maintenance_margin_rate REAL NOT NULL,
    PRIMARY KEY (asset_class, account_type)
);

CREATE TABLE IF NOT EXISTS instrument_margin_overrides (
    instrument_id TEXT PRIMARY KEY,
    initial_margin_rate REAL NOT NULL,
    maintenance_margin_rate REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS notional_limits (
    session_id TEXT NOT NULL,
    asset_class TEXT NOT NULL,
    max_order_notional REAL,
    max_total_notional REAL,
    PRIMARY KEY (session_id, asset_class)
);

CREATE TABLE IF NOT EXISTS trading_permissions (
    trading_mode TEXT NOT NULL,
    asset_class TEXT NOT NULL,
    allow_buy INTEGER NOT NULL DEFAULT 1,
    allow_sell INTEGER NOT NULL DEFAULT 1,
    allow_short INTEGER NOT NULL DEFAULT 0,
    allow_options INTEGER NOT NULL DEFAULT 0,
    allow_spreads INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (trading_mode, asset_class)
);

CREATE TABLE IF NOT EXISTS instruments (
    ticker TEXT PRIMARY KEY,
    contract_size REAL NOT NULL DEFAULT 1,
    strike_price REAL
);
`

// ApplyMigrations creates all tables if they do not exist yet.
func ApplyMigrations(d *Database) error {
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
