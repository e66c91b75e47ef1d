package db

import "time"

// Order sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order types.
const (
	OrderTypeLimit  = "LIMIT"
	OrderTypeMarket = "MARKET"
	OrderTypeSpread = "SPREAD"
)

// Asset classes.
const (
	AssetEquity = "EQUITY"
	AssetOption = "OPTION"
	AssetFuture = "FUTURE"
)

// Order statuses. FILLED, CANCELED and REJECTED are terminal.
const (
	StatusNew             = "NEW"
	StatusOpen            = "OPEN"
	StatusSentToMarket    = "SENT_TO_MARKET"
	StatusPartiallyFilled = "PARTIALLY_FILLED"
	StatusFilled          = "FILLED"
	StatusCanceled        = "CANCELED"
	StatusRejected        = "REJECTED"
)

// LiquidityInternalized tags fills crossed inside the gateway.
const LiquidityInternalized = "INTERNALIZED"

// Account types.
const (
	AccountCash             = "CASH"
	AccountMargin           = "MARGIN"
	AccountDayTradingMargin = "DAY_TRADING_MARGIN"
	AccountPortfolioMargin  = "PORTFOLIO_MARGIN"
)

// TradingModeNormal is the default account trading mode.
const TradingModeNormal = "NORMAL"

// Order represents an order as persisted in the orders table. Legs are
// carried on in-flight spread orders only and are not persisted.
type Order struct {
	ID             string
	ParentOrderID  string // set on residuals spawned by internalization
	AccountID      string
	SessionID      string
	Ticker         string
	Side           string
	OrderType      string
	AssetClass     string
	Price          float64
	Quantity       float64
	FilledQuantity float64
	Status         string
	LiquidityTag   string
	Legs           []OrderLeg
	CreatedAt      time.Time
}

// OrderLeg is one leg of a spread order.
type OrderLeg struct {
	Ticker     string
	Side       string
	AssetClass string
	Quantity   float64
	Price      float64
}

// IsSpread reports whether the order is a multi-leg spread.
func (o *Order) IsSpread() bool {
	return o.OrderType == OrderTypeSpread
}

// OppositeSide returns the side a resting order must have to cross with
// this one.
func (o *Order) OppositeSide() string {
	if o.Side == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Account holds balances and per-account routing flags.
type Account struct {
	ID                       string
	AccountType              string
	TradingMode              string
	CashBalance              float64
	MarginBalance            float64
	PortfolioMarginAvailable float64
	InternalizationEnabled   bool
}

// Position is the net signed position per (account, ticker). Negative
// quantity means short. A zero-quantity row is treated as absent for
// availability checks.
type Position struct {
	AccountID  string
	SessionID  string
	Ticker     string
	Quantity   float64
	AvgPrice   float64
	AssetClass string
	UpdatedAt  time.Time
}

// RiskSettings is the per-session risk configuration. MaxPositionValue
// is nil when the credit limit is not set for the session.
type RiskSettings struct {
	SessionID            string
	MaxPositionValue     *float64
	MaxMessagesPerSecond int
}

// MarginRates holds initial/maintenance margin rates, either per
// (asset_class, account_type) or as a per-instrument override.
type MarginRates struct {
	InitialMarginRate     float64
	MaintenanceMarginRate float64
}

// NotionalLimit bounds order and total notional per (session, asset
// class). A nil bound means unbounded in that direction.
type NotionalLimit struct {
	MaxOrderNotional *float64
	MaxTotalNotional *float64
}

// TradingPermission holds the per (trading_mode, asset_class) flags.
type TradingPermission struct {
	AllowBuy     bool
	AllowSell    bool
	AllowShort   bool
	AllowOptions bool
	AllowSpreads bool
}

// Instrument is reference data for a tradable instrument. StrikePrice
// is nil for non-options.
type Instrument struct {
	Ticker       string
	ContractSize float64
	StrikePrice  *float64
}
