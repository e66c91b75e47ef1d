package risk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"order-gateway/pkg/db"
)

// MarginCheck verifies the account can cover the initial margin of the
// order. Rates resolve per-instrument first, then by (asset_class,
// account_type). Spread orders use net per-leg margin minus the
// vertical-spread offset, evaluated against cash + margin balance.
type MarginCheck struct {
	store Store
}

func NewMarginCheck(store Store) *MarginCheck {
	return &MarginCheck{store: store}
}

func (c *MarginCheck) Name() string { return "Margin" }

func (c *MarginCheck) Check(ctx context.Context, o db.Order, acct db.Account, sessionID string, settings db.RiskSettings) (bool, string) {
	if o.IsSpread() {
		return c.checkSpread(ctx, o, acct)
	}

	rates, err := c.marginRates(ctx, o.AssetClass, acct.AccountType, o.Ticker)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, fmt.Sprintf("Margin rates not defined for asset class %s and account type %s", o.AssetClass, acct.AccountType)
		}
		log.Printf("MarginCheck: margin rates for %s/%s: %v", o.AssetClass, acct.AccountType, err)
		return false, "Error in margin check"
	}

	orderValue, err := grossValue(ctx, c.store, o.AssetClass, o.Ticker, o.Price, o.Quantity)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, "Failed to calculate order value"
		}
		log.Printf("MarginCheck: order value for %s: %v", o.Ticker, err)
		return false, "Error in margin check"
	}

	required := orderValue * rates.InitialMarginRate

	switch acct.AccountType {
	case db.AccountCash:
		if required > acct.CashBalance {
			return false, "Insufficient cash balance for the order"
		}
	case db.AccountMargin, db.AccountDayTradingMargin:
		if required > acct.CashBalance+acct.MarginBalance {
			return false, "Insufficient margin balance for the order"
		}
	case db.AccountPortfolioMargin:
		if required > acct.PortfolioMarginAvailable {
			return false, "Insufficient portfolio margin available"
		}
	default:
		return false, fmt.Sprintf("Unknown account type: %s", acct.AccountType)
	}
	return true, ""
}

// checkSpread sums per-leg initial margin, subtracts the spread offset
// and checks the result against cash + margin balance. A fully offset
// spread requires no margin at all.
func (c *MarginCheck) checkSpread(ctx context.Context, o db.Order, acct db.Account) (bool, string) {
	if len(o.Legs) < 2 {
		return false, "Invalid spread order: Less than two legs"
	}

	var netRequired float64
	for _, leg := range o.Legs {
		rates, err := c.marginRates(ctx, leg.AssetClass, acct.AccountType, leg.Ticker)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return false, fmt.Sprintf("Margin rates not defined for leg %s", leg.Ticker)
			}
			log.Printf("MarginCheck: leg margin rates for %s: %v", leg.Ticker, err)
			return false, "Error in margin check"
		}
		legValue, err := grossValue(ctx, c.store, leg.AssetClass, leg.Ticker, leg.Price, leg.Quantity)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return false, fmt.Sprintf("Failed to calculate order value for leg %s", leg.Ticker)
			}
			log.Printf("MarginCheck: leg value for %s: %v", leg.Ticker, err)
			return false, "Error in margin check"
		}
		netRequired += legValue * rates.InitialMarginRate
	}

	required := netRequired - c.spreadMarginOffset(ctx, o)
	if required < 0 {
		required = 0
	}

	if required > acct.CashBalance+acct.MarginBalance {
		return false, "Insufficient margin balance for the spread order"
	}
	return true, ""
}

// spreadMarginOffset recognizes the bounded risk of a two-leg vertical
// option spread: |strike1 - strike2| x contract size x min leg
// quantity. Any other shape, or missing strike/contract data, yields
// no offset.
func (c *MarginCheck) spreadMarginOffset(ctx context.Context, o db.Order) float64 {
	if len(o.Legs) != 2 {
		return 0
	}
	leg1, leg2 := o.Legs[0], o.Legs[1]
	if leg1.AssetClass != db.AssetOption || leg2.AssetClass != db.AssetOption {
		return 0
	}

	strike1, err := c.store.GetStrikePrice(ctx, leg1.Ticker)
	if err != nil {
		return 0
	}
	strike2, err := c.store.GetStrikePrice(ctx, leg2.Ticker)
	if err != nil {
		return 0
	}
	contractSize, err := c.store.GetContractSize(ctx, leg1.Ticker)
	if err != nil {
		return 0
	}

	return math.Abs(strike1-strike2) * contractSize * math.Min(leg1.Quantity, leg2.Quantity)
}

// marginRates resolves the instrument override first, then the default
// for (asset_class, account_type).
func (c *MarginCheck) marginRates(ctx context.Context, assetClass, accountType, ticker string) (*db.MarginRates, error) {
	if ticker != "" {
		rates, err := c.store.GetInstrumentMarginRates(ctx, ticker)
		if err == nil {
			return rates, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
	}
	return c.store.GetMarginRates(ctx, assetClass, accountType)
}
