// Package risk implements the pre-trade risk pipeline: an ordered set
// of plugins evaluated with short-circuit on first denial.
package risk

import (
	"context"

	"order-gateway/pkg/db"
)

// Store is the read surface risk plugins need. Implemented by
// *db.Database and by test fakes.
type Store interface {
	GetRiskSettings(ctx context.Context, sessionID string) (*db.RiskSettings, error)
	GetPositions(ctx context.Context, accountID string) ([]db.Position, error)
	GetMarginRates(ctx context.Context, assetClass, accountType string) (*db.MarginRates, error)
	GetInstrumentMarginRates(ctx context.Context, ticker string) (*db.MarginRates, error)
	GetContractSize(ctx context.Context, ticker string) (float64, error)
	GetStrikePrice(ctx context.Context, ticker string) (float64, error)
	GetNotionalLimits(ctx context.Context, sessionID, assetClass string) (*db.NotionalLimit, error)
	GetTradingPermissions(ctx context.Context, tradingMode, assetClass string) (*db.TradingPermission, error)
}

// MarketData provides last-trade marks for tickers.
type MarketData interface {
	LastTrade(ctx context.Context, ticker string) (float64, error)
}

// Plugin is a single pre-trade check. Implementations must be safe for
// concurrent use and, with the exception of MessageThrottling,
// stateless: two calls on identical inputs yield identical results.
// Plugins never return errors; failures become (false, reason).
type Plugin interface {
	Name() string
	Check(ctx context.Context, o db.Order, acct db.Account, sessionID string, settings db.RiskSettings) (ok bool, reason string)
}
