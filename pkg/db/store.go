// Package db implements the gateway's relational store on SQLite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a lookup matches no row. Callers in the
// risk pipeline translate it into a missing-configuration denial.
var ErrNotFound = errors.New("record not found")

// TradeWriter is the write surface available inside WithTransaction.
// Both *sql.Tx-backed transactions and test fakes implement it.
type TradeWriter interface {
	UpdateOrderStatus(ctx context.Context, orderID, status string, filledQuantity float64, liquidityTag string) error
	UpdatePosition(ctx context.Context, accountID, sessionID, ticker string, deltaQuantity, price float64) error
}

// runner abstracts *sql.DB and *sql.Tx so the same statements serve
// both direct calls and transactional blocks.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ----------------------------------------
// Accounts
// ----------------------------------------

// GetAccount returns the account row or ErrNotFound.
func (d *Database) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var a Account
	var internalize int
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, account_type, trading_mode, cash_balance, margin_balance,
		       portfolio_margin_available, internalization_enabled
		FROM accounts
		WHERE id = ?
	`, accountID).Scan(&a.ID, &a.AccountType, &a.TradingMode, &a.CashBalance,
		&a.MarginBalance, &a.PortfolioMarginAvailable, &internalize)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	a.InternalizationEnabled = internalize == 1
	return &a, nil
}

// ----------------------------------------
// Orders
// ----------------------------------------

const orderColumns = `id, COALESCE(parent_order_id, ''), account_id, session_id, ticker,
	side, order_type, asset_class, price, quantity, filled_quantity, status,
	COALESCE(liquidity_tag, ''), created_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.ParentOrderID, &o.AccountID, &o.SessionID, &o.Ticker,
		&o.Side, &o.OrderType, &o.AssetClass, &o.Price, &o.Quantity,
		&o.FilledQuantity, &o.Status, &o.LiquidityTag, &o.CreatedAt)
	return o, err
}

// GetOrder returns a single order by id or ErrNotFound.
func (d *Database) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	row := d.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return &o, nil
}

// GetOpenOrders returns OPEN orders matching (account, ticker, side,
// price), oldest first so the internalization tie-break is by creation
// time.
func (d *Database) GetOpenOrders(ctx context.Context, accountID, ticker, side string, price float64) ([]Order, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE account_id = ? AND ticker = ? AND side = ? AND price = ? AND status = ?
		ORDER BY created_at ASC, id ASC
	`, accountID, ticker, side, price, StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("query open orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CreateOrder inserts a new order row.
func (d *Database) CreateOrder(ctx context.Context, o Order) error {
	return createOrder(ctx, d.DB, o)
}

func createOrder(ctx context.Context, r runner, o Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	_, err := r.ExecContext(ctx, `
		INSERT INTO orders (id, parent_order_id, account_id, session_id, ticker, side,
		                    order_type, asset_class, price, quantity, filled_quantity,
		                    status, liquidity_tag, created_at)
		VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?)
	`, o.ID, o.ParentOrderID, o.AccountID, o.SessionID, o.Ticker, o.Side,
		o.OrderType, o.AssetClass, o.Price, o.Quantity, o.FilledQuantity,
		o.Status, o.LiquidityTag, o.CreatedAt)
	return err
}

// UpdateOrderStatus sets the status, adds to the cumulative fill and,
// when non-empty, overwrites the liquidity tag.
func (d *Database) UpdateOrderStatus(ctx context.Context, orderID, status string, filledQuantity float64, liquidityTag string) error {
	return updateOrderStatus(ctx, d.DB, orderID, status, filledQuantity, liquidityTag)
}

func updateOrderStatus(ctx context.Context, r runner, orderID, status string, filledQuantity float64, liquidityTag string) error {
	_, err := r.ExecContext(ctx, `
		UPDATE orders
		SET status = ?,
		    filled_quantity = filled_quantity + ?,
		    liquidity_tag = COALESCE(NULLIF(?, ''), liquidity_tag),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, filledQuantity, liquidityTag, orderID)
	return err
}

// UpdateOrderQuantity rewrites the open quantity of an order.
func (d *Database) UpdateOrderQuantity(ctx context.Context, orderID string, quantity float64) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE orders
		SET quantity = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, quantity, orderID)
	return err
}

// ----------------------------------------
// Positions
// ----------------------------------------

// GetPositions returns all position rows for an account.
func (d *Database) GetPositions(ctx context.Context, accountID string) ([]Position, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT account_id, COALESCE(session_id, ''), ticker, quantity, avg_price, asset_class, updated_at
		FROM positions
		WHERE account_id = ?
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.AccountID, &p.SessionID, &p.Ticker, &p.Quantity,
			&p.AvgPrice, &p.AssetClass, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// UpdatePosition applies a signed quantity delta to the (account,
// ticker) position, creating the row if absent. The price becomes the
// new average price.
func (d *Database) UpdatePosition(ctx context.Context, accountID, sessionID, ticker string, deltaQuantity, price float64) error {
	return updatePosition(ctx, d.DB, accountID, sessionID, ticker, deltaQuantity, price)
}

func updatePosition(ctx context.Context, r runner, accountID, sessionID, ticker string, deltaQuantity, price float64) error {
	_, err := r.ExecContext(ctx, `
		INSERT INTO positions (account_id, session_id, ticker, quantity, avg_price, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(account_id, ticker) DO UPDATE SET
			quantity = quantity + excluded.quantity,
			avg_price = excluded.avg_price,
			session_id = excluded.session_id,
			updated_at = CURRENT_TIMESTAMP
	`, accountID, sessionID, ticker, deltaQuantity, price)
	return err
}

// ----------------------------------------
// Risk configuration lookups
// ----------------------------------------

// GetRiskSettings returns per-session risk settings or ErrNotFound.
func (d *Database) GetRiskSettings(ctx context.Context, sessionID string) (*RiskSettings, error) {
	s := RiskSettings{SessionID: sessionID}
	var maxPos sql.NullFloat64
	err := d.DB.QueryRowContext(ctx, `
		SELECT max_position_value, max_messages_per_second
		FROM risk_settings
		WHERE session_id = ?
	`, sessionID).Scan(&maxPos, &s.MaxMessagesPerSecond)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query risk settings: %w", err)
	}
	if maxPos.Valid {
		v := maxPos.Float64
		s.MaxPositionValue = &v
	}
	return &s, nil
}

// GetMarginRates returns the default margin rates for (asset_class,
// account_type) or ErrNotFound.
func (d *Database) GetMarginRates(ctx context.Context, assetClass, accountType string) (*MarginRates, error) {
	var m MarginRates
	err := d.DB.QueryRowContext(ctx, `
		SELECT initial_margin_rate, maintenance_margin_rate
		FROM margin_requirements
		WHERE asset_class = ? AND account_type = ?
	`, assetClass, accountType).Scan(&m.InitialMarginRate, &m.MaintenanceMarginRate)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query margin rates: %w", err)
	}
	return &m, nil
}

// GetInstrumentMarginRates returns the per-instrument margin override
// or ErrNotFound when no override exists.
func (d *Database) GetInstrumentMarginRates(ctx context.Context, ticker string) (*MarginRates, error) {
	var m MarginRates
	err := d.DB.QueryRowContext(ctx, `
		SELECT initial_margin_rate, maintenance_margin_rate
		FROM instrument_margin_overrides
		WHERE instrument_id = ?
	`, ticker).Scan(&m.InitialMarginRate, &m.MaintenanceMarginRate)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query instrument margin override: %w", err)
	}
	return &m, nil
}

// GetNotionalLimits returns the notional limits row for (session,
// asset_class) or ErrNotFound. Nil bounds mean unbounded.
func (d *Database) GetNotionalLimits(ctx context.Context, sessionID, assetClass string) (*NotionalLimit, error) {
	var maxOrder, maxTotal sql.NullFloat64
	err := d.DB.QueryRowContext(ctx, `
		SELECT max_order_notional, max_total_notional
		FROM notional_limits
		WHERE session_id = ? AND asset_class = ?
	`, sessionID, assetClass).Scan(&maxOrder, &maxTotal)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query notional limits: %w", err)
	}
	var n NotionalLimit
	if maxOrder.Valid {
		v := maxOrder.Float64
		n.MaxOrderNotional = &v
	}
	if maxTotal.Valid {
		v := maxTotal.Float64
		n.MaxTotalNotional = &v
	}
	return &n, nil
}

// GetTradingPermissions returns the permission flags for
// (trading_mode, asset_class) or ErrNotFound.
func (d *Database) GetTradingPermissions(ctx context.Context, tradingMode, assetClass string) (*TradingPermission, error) {
	var buy, sell, short, options, spreads int
	err := d.DB.QueryRowContext(ctx, `
		SELECT allow_buy, allow_sell, allow_short, allow_options, allow_spreads
		FROM trading_permissions
		WHERE trading_mode = ? AND asset_class = ?
	`, tradingMode, assetClass).Scan(&buy, &sell, &short, &options, &spreads)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query trading permissions: %w", err)
	}
	return &TradingPermission{
		AllowBuy:     buy == 1,
		AllowSell:    sell == 1,
		AllowShort:   short == 1,
		AllowOptions: options == 1,
		AllowSpreads: spreads == 1,
	}, nil
}

// GetContractSize returns the instrument contract size or ErrNotFound.
func (d *Database) GetContractSize(ctx context.Context, ticker string) (float64, error) {
	var size float64
	err := d.DB.QueryRowContext(ctx,
		`SELECT contract_size FROM instruments WHERE ticker = ?`, ticker).Scan(&size)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query contract size: %w", err)
	}
	return size, nil
}

// GetStrikePrice returns the option strike for the ticker. ErrNotFound
// covers both a missing instrument and a NULL strike.
func (d *Database) GetStrikePrice(ctx context.Context, ticker string) (float64, error) {
	var strike sql.NullFloat64
	err := d.DB.QueryRowContext(ctx,
		`SELECT strike_price FROM instruments WHERE ticker = ?`, ticker).Scan(&strike)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query strike price: %w", err)
	}
	if !strike.Valid {
		return 0, ErrNotFound
	}
	return strike.Float64, nil
}

// ----------------------------------------
// Transactions
// ----------------------------------------

// txWriter exposes the write statements on a *sql.Tx.
type txWriter struct {
	tx *sql.Tx
}

func (t *txWriter) UpdateOrderStatus(ctx context.Context, orderID, status string, filledQuantity float64, liquidityTag string) error {
	return updateOrderStatus(ctx, t.tx, orderID, status, filledQuantity, liquidityTag)
}

func (t *txWriter) UpdatePosition(ctx context.Context, accountID, sessionID, ticker string, deltaQuantity, price float64) error {
	return updatePosition(ctx, t.tx, accountID, sessionID, ticker, deltaQuantity, price)
}

// WithTransaction runs fn inside a single transaction; any error from
// fn rolls everything back so no partial state becomes visible.
func (d *Database) WithTransaction(ctx context.Context, fn func(TradeWriter) error) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&txWriter{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
