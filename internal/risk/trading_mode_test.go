package risk

import (
	"context"
	"testing"

	"order-gateway/pkg/db"
)

func allowAll() *db.TradingPermission {
	return &db.TradingPermission{AllowBuy: true, AllowSell: true, AllowShort: true, AllowOptions: true, AllowSpreads: true}
}

func TestTradingModeCheck(t *testing.T) {
	settings := db.RiskSettings{SessionID: "sess-1"}

	t.Run("permissions missing", func(t *testing.T) {
		c := NewTradingModeCheck(&fakeStore{})
		o := db.Order{AssetClass: db.AssetEquity, Side: db.SideBuy, Quantity: 1}
		acct := db.Account{TradingMode: "RESTRICTED"}
		ok, reason := c.Check(context.Background(), o, acct, "sess-1", settings)
		if ok || reason != "Trading permissions not defined for mode RESTRICTED and asset class EQUITY" {
			t.Fatalf("ok=%v reason=%q", ok, reason)
		}
	})

	t.Run("empty mode defaults to NORMAL", func(t *testing.T) {
		store := &fakeStore{permissions: map[string]*db.TradingPermission{
			"NORMAL/EQUITY": allowAll(),
		}}
		c := NewTradingModeCheck(store)
		o := db.Order{AssetClass: db.AssetEquity, Side: db.SideBuy, Quantity: 1}
		ok, reason := c.Check(context.Background(), o, db.Account{}, "sess-1", settings)
		if !ok {
			t.Fatalf("expected pass, got %q", reason)
		}
	})

	t.Run("buy not allowed", func(t *testing.T) {
		perms := allowAll()
		perms.AllowBuy = false
		store := &fakeStore{permissions: map[string]*db.TradingPermission{
			"LIQUIDATION_ONLY/EQUITY": perms,
		}}
		c := NewTradingModeCheck(store)
		o := db.Order{AssetClass: db.AssetEquity, Side: db.SideBuy, Quantity: 1}
		acct := db.Account{TradingMode: "LIQUIDATION_ONLY"}
		ok, reason := c.Check(context.Background(), o, acct, "sess-1", settings)
		if ok || reason != "Buying not allowed for EQUITY in mode LIQUIDATION_ONLY" {
			t.Fatalf("ok=%v reason=%q", ok, reason)
		}
	})

	t.Run("sell not allowed", func(t *testing.T) {
		perms := allowAll()
		perms.AllowSell = false
		store := &fakeStore{permissions: map[string]*db.TradingPermission{
			"NORMAL/EQUITY": perms,
		}}
		c := NewTradingModeCheck(store)
		o := db.Order{AssetClass: db.AssetEquity, Side: db.SideSell, Quantity: 1}
		ok, reason := c.Check(context.Background(), o, db.Account{TradingMode: "NORMAL"}, "sess-1", settings)
		if ok || reason != "Selling not allowed for EQUITY in mode NORMAL" {
			t.Fatalf("ok=%v reason=%q", ok, reason)
		}
	})

	t.Run("options not allowed", func(t *testing.T) {
		perms := allowAll()
		perms.AllowOptions = false
		store := &fakeStore{permissions: map[string]*db.TradingPermission{
			"NORMAL/OPTION": perms,
		}}
		c := NewTradingModeCheck(store)
		o := db.Order{AssetClass: db.AssetOption, Side: db.SideBuy, Quantity: 1}
		ok, reason := c.Check(context.Background(), o, db.Account{TradingMode: "NORMAL"}, "sess-1", settings)
		if ok || reason != "Options trading not allowed in mode NORMAL" {
			t.Fatalf("ok=%v reason=%q", ok, reason)
		}
	})

	t.Run("spreads not allowed", func(t *testing.T) {
		perms := allowAll()
		perms.AllowSpreads = false
		store := &fakeStore{permissions: map[string]*db.TradingPermission{
			"NORMAL/OPTION": perms,
		}}
		c := NewTradingModeCheck(store)
		o := db.Order{AssetClass: db.AssetOption, OrderType: db.OrderTypeSpread, Side: db.SideBuy, Quantity: 1,
			Legs: []db.OrderLeg{{Ticker: "A"}, {Ticker: "B"}}}
		ok, reason := c.Check(context.Background(), o, db.Account{TradingMode: "NORMAL"}, "sess-1", settings)
		if ok || reason != "Spread orders not allowed in mode NORMAL" {
			t.Fatalf("ok=%v reason=%q", ok, reason)
		}
	})
}

func TestTradingModeShortSale(t *testing.T) {
	perms := allowAll()
	perms.AllowShort = false
	mkStore := func(positions []db.Position) *fakeStore {
		return &fakeStore{
			permissions: map[string]*db.TradingPermission{"NORMAL/EQUITY": perms},
			positions:   map[string][]db.Position{"acct-1": positions},
		}
	}
	settings := db.RiskSettings{SessionID: "sess-1"}
	acct := db.Account{ID: "acct-1", TradingMode: "NORMAL"}

	t.Run("uncovered sell denied", func(t *testing.T) {
		c := NewTradingModeCheck(mkStore([]db.Position{
			{AccountID: "acct-1", Ticker: "AAPL", Quantity: 20},
		}))
		o := db.Order{AccountID: "acct-1", Ticker: "AAPL", AssetClass: db.AssetEquity, Side: db.SideSell, Quantity: 30}
		ok, reason := c.Check(context.Background(), o, acct, "sess-1", settings)
		if ok || reason != "Short selling not allowed in mode NORMAL" {
			t.Fatalf("ok=%v reason=%q", ok, reason)
		}
	})

	t.Run("covered sell allowed", func(t *testing.T) {
		c := NewTradingModeCheck(mkStore([]db.Position{
			{AccountID: "acct-1", Ticker: "AAPL", Quantity: 20},
		}))
		o := db.Order{AccountID: "acct-1", Ticker: "AAPL", AssetClass: db.AssetEquity, Side: db.SideSell, Quantity: 20}
		ok, reason := c.Check(context.Background(), o, acct, "sess-1", settings)
		if !ok {
			t.Fatalf("expected pass, got %q", reason)
		}
	})

	t.Run("no position denied", func(t *testing.T) {
		c := NewTradingModeCheck(mkStore(nil))
		o := db.Order{AccountID: "acct-1", Ticker: "AAPL", AssetClass: db.AssetEquity, Side: db.SideSell, Quantity: 1}
		ok, reason := c.Check(context.Background(), o, acct, "sess-1", settings)
		if ok || reason != "Short selling not allowed in mode NORMAL" {
			t.Fatalf("ok=%v reason=%q", ok, reason)
		}
	})
}
