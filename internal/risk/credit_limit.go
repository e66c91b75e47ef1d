package risk

import (
	"context"
	"log"

	"order-gateway/pkg/db"
)

// CreditLimitCheck denies orders that would push the account's total
// position value past the session's max_position_value.
type CreditLimitCheck struct {
	store Store
	md    MarketData
}

func NewCreditLimitCheck(store Store, md MarketData) *CreditLimitCheck {
	return &CreditLimitCheck{store: store, md: md}
}

func (c *CreditLimitCheck) Name() string { return "CreditLimit" }

func (c *CreditLimitCheck) Check(ctx context.Context, o db.Order, acct db.Account, sessionID string, settings db.RiskSettings) (bool, string) {
	if settings.MaxPositionValue == nil {
		return false, "Credit limit not set for session."
	}

	positions, err := c.store.GetPositions(ctx, acct.ID)
	if err != nil {
		log.Printf("CreditLimitCheck: positions for %s: %v", acct.ID, err)
		return false, "Error in credit limit check"
	}

	var totalPositionValue float64
	for _, p := range positions {
		mark, err := c.md.LastTrade(ctx, p.Ticker)
		if err != nil {
			log.Printf("CreditLimitCheck: mark for %s: %v", p.Ticker, err)
			return false, "Error in credit limit check"
		}
		totalPositionValue += p.Quantity * mark
	}

	orderValue := o.Quantity * o.Price
	if totalPositionValue+orderValue > *settings.MaxPositionValue {
		return false, "Credit limit exceeded."
	}
	return true, ""
}
