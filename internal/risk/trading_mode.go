package risk

import (
	"context"
	"errors"
	"fmt"
	"log"

	"order-gateway/pkg/db"
)

// TradingModeCheck enforces the per (trading_mode, asset_class)
// permission flags: buy/sell, options, spreads and short sales.
type TradingModeCheck struct {
	store Store
}

func NewTradingModeCheck(store Store) *TradingModeCheck {
	return &TradingModeCheck{store: store}
}

func (c *TradingModeCheck) Name() string { return "TradingMode" }

func (c *TradingModeCheck) Check(ctx context.Context, o db.Order, acct db.Account, sessionID string, settings db.RiskSettings) (bool, string) {
	mode := acct.TradingMode
	if mode == "" {
		mode = db.TradingModeNormal
	}

	perms, err := c.store.GetTradingPermissions(ctx, mode, o.AssetClass)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, fmt.Sprintf("Trading permissions not defined for mode %s and asset class %s", mode, o.AssetClass)
		}
		log.Printf("TradingModeCheck: permissions for %s/%s: %v", mode, o.AssetClass, err)
		return false, "Error in trading mode check"
	}

	if o.IsSpread() && !perms.AllowSpreads {
		return false, fmt.Sprintf("Spread orders not allowed in mode %s", mode)
	}
	if o.AssetClass == db.AssetOption && !perms.AllowOptions {
		return false, fmt.Sprintf("Options trading not allowed in mode %s", mode)
	}
	if o.Side == db.SideBuy && !perms.AllowBuy {
		return false, fmt.Sprintf("Buying not allowed for %s in mode %s", o.AssetClass, mode)
	}
	if o.Side == db.SideSell && !perms.AllowSell {
		return false, fmt.Sprintf("Selling not allowed for %s in mode %s", o.AssetClass, mode)
	}

	// A SELL without a long position big enough to cover it is a short
	// sale.
	if o.Side == db.SideSell && !perms.AllowShort {
		covered, err := c.positionCovers(ctx, o)
		if err != nil {
			log.Printf("TradingModeCheck: positions for %s: %v", o.AccountID, err)
			return false, "Error in trading mode check"
		}
		if !covered {
			return false, fmt.Sprintf("Short selling not allowed in mode %s", mode)
		}
	}
	return true, ""
}

// positionCovers reports whether the account holds a long position in
// the ticker at least as large as the order quantity.
func (c *TradingModeCheck) positionCovers(ctx context.Context, o db.Order) (bool, error) {
	positions, err := c.store.GetPositions(ctx, o.AccountID)
	if err != nil {
		return false, err
	}
	for _, p := range positions {
		if p.Ticker == o.Ticker {
			return p.Quantity >= o.Quantity, nil
		}
	}
	return false, nil
}
