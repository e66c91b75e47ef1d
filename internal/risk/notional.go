package risk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"order-gateway/pkg/db"
)

// NotionalLimitCheck bounds the gross economic value of a single order
// and of the account's open positions plus the order, per (session,
// asset class).
type NotionalLimitCheck struct {
	store Store
	md    MarketData
}

func NewNotionalLimitCheck(store Store, md MarketData) *NotionalLimitCheck {
	return &NotionalLimitCheck{store: store, md: md}
}

func (c *NotionalLimitCheck) Name() string { return "NotionalLimit" }

func (c *NotionalLimitCheck) Check(ctx context.Context, o db.Order, acct db.Account, sessionID string, settings db.RiskSettings) (bool, string) {
	limits, err := c.store.GetNotionalLimits(ctx, sessionID, o.AssetClass)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, fmt.Sprintf("Notional limits not set for asset class %s", o.AssetClass)
		}
		log.Printf("NotionalLimitCheck: limits for %s/%s: %v", sessionID, o.AssetClass, err)
		return false, "Error in notional limit check"
	}

	orderNotional, err := c.orderNotional(ctx, o)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, "Failed to calculate order notional value"
		}
		log.Printf("NotionalLimitCheck: order notional for %s: %v", o.ID, err)
		return false, "Error in notional limit check"
	}

	if limits.MaxOrderNotional != nil && orderNotional > *limits.MaxOrderNotional {
		return false, fmt.Sprintf("Order notional value %.2f exceeds maximum allowed %.2f", orderNotional, *limits.MaxOrderNotional)
	}

	if limits.MaxTotalNotional != nil {
		total, err := c.totalNotional(ctx, acct.ID, orderNotional)
		if err != nil {
			log.Printf("NotionalLimitCheck: total notional for %s: %v", acct.ID, err)
			return false, "Error in notional limit check"
		}
		if total > *limits.MaxTotalNotional {
			return false, fmt.Sprintf("Total notional value %.2f exceeds maximum allowed %.2f", total, *limits.MaxTotalNotional)
		}
	}
	return true, ""
}

// orderNotional follows the contract-size rule; spreads sum their legs.
func (c *NotionalLimitCheck) orderNotional(ctx context.Context, o db.Order) (float64, error) {
	if !o.IsSpread() {
		return grossValue(ctx, c.store, o.AssetClass, o.Ticker, o.Price, o.Quantity)
	}
	if len(o.Legs) < 2 {
		return 0, db.ErrNotFound
	}
	var total float64
	for _, leg := range o.Legs {
		legNotional, err := grossValue(ctx, c.store, leg.AssetClass, leg.Ticker, leg.Price, leg.Quantity)
		if err != nil {
			return 0, err
		}
		total += legNotional
	}
	return total, nil
}

// totalNotional marks every non-flat position and adds the order.
// Positions lacking a price or contract size are skipped silently.
func (c *NotionalLimitCheck) totalNotional(ctx context.Context, accountID string, orderNotional float64) (float64, error) {
	positions, err := c.store.GetPositions(ctx, accountID)
	if err != nil {
		return 0, err
	}

	total := orderNotional
	for _, p := range positions {
		if p.Quantity == 0 {
			continue
		}
		mark, err := c.md.LastTrade(ctx, p.Ticker)
		if err != nil {
			continue
		}
		notional := math.Abs(p.Quantity) * mark
		if isDerivative(p.AssetClass) {
			size, err := c.store.GetContractSize(ctx, p.Ticker)
			if err != nil {
				continue
			}
			notional *= size
		}
		total += notional
	}
	return total, nil
}
