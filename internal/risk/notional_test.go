package risk

import (
	"context"
	"testing"

	"order-gateway/pkg/db"
)

func TestNotionalLimitCheck(t *testing.T) {
	acct := db.Account{ID: "acct-1"}
	settings := db.RiskSettings{SessionID: "sess-1"}

	t.Run("limits not configured", func(t *testing.T) {
		c := NewNotionalLimitCheck(&fakeStore{}, &fakeMarketData{})
		o := db.Order{AssetClass: db.AssetEquity, Quantity: 1, Price: 1}
		ok, reason := c.Check(context.Background(), o, acct, "sess-1", settings)
		if ok || reason != "Notional limits not set for asset class EQUITY" {
			t.Fatalf("ok=%v reason=%q", ok, reason)
		}
	})

	t.Run("order notional exceeded", func(t *testing.T) {
		store := &fakeStore{notionals: map[string]*db.NotionalLimit{
			"sess-1/EQUITY": {MaxOrderNotional: floatPtr(5000)},
		}}
		c := NewNotionalLimitCheck(store, &fakeMarketData{})
		o := db.Order{AssetClass: db.AssetEquity, Ticker: "AAPL", Quantity: 60, Price: 100}
		ok, reason := c.Check(context.Background(), o, acct, "sess-1", settings)
		if ok || reason != "Order notional value 6000.00 exceeds maximum allowed 5000.00" {
			t.Fatalf("ok=%v reason=%q", ok, reason)
		}
	})

	t.Run("order notional within limit", func(t *testing.T) {
		store := &fakeStore{notionals: map[string]*db.NotionalLimit{
			"sess-1/EQUITY": {MaxOrderNotional: floatPtr(5000)},
		}}
		c := NewNotionalLimitCheck(store, &fakeMarketData{})
		o := db.Order{AssetClass: db.AssetEquity, Ticker: "AAPL", Quantity: 40, Price: 100}
		ok, reason := c.Check(context.Background(), o, acct, "sess-1", settings)
		if !ok {
			t.Fatalf("expected pass, got %q", reason)
		}
	})

	t.Run("total notional includes positions", func(t *testing.T) {
		store := &fakeStore{
			notionals: map[string]*db.NotionalLimit{
				"sess-1/EQUITY": {MaxTotalNotional: floatPtr(10000)},
			},
			positions: map[string][]db.Position{
				"acct-1": {{Ticker: "MSFT", Quantity: 30, AssetClass: db.AssetEquity}},
			},
		}
		md := &fakeMarketData{marks: map[string]float64{"MSFT": 200}}
		c := NewNotionalLimitCheck(store, md)

		// Positions mark to 6000; order adds 5000: 11000 > 10000.
		o := db.Order{AssetClass: db.AssetEquity, Ticker: "AAPL", Quantity: 50, Price: 100}
		ok, reason := c.Check(context.Background(), o, acct, "sess-1", settings)
		if ok || reason != "Total notional value 11000.00 exceeds maximum allowed 10000.00" {
			t.Fatalf("ok=%v reason=%q", ok, reason)
		}
	})

	t.Run("short position counts at absolute value", func(t *testing.T) {
		store := &fakeStore{
			notionals: map[string]*db.NotionalLimit{
				"sess-1/EQUITY": {MaxTotalNotional: floatPtr(10000)},
			},
			positions: map[string][]db.Position{
				"acct-1": {{Ticker: "MSFT", Quantity: -30, AssetClass: db.AssetEquity}},
			},
		}
		md := &fakeMarketData{marks: map[string]float64{"MSFT": 200}}
		c := NewNotionalLimitCheck(store, md)

		o := db.Order{AssetClass: db.AssetEquity, Ticker: "AAPL", Quantity: 50, Price: 100}
		ok, _ := c.Check(context.Background(), o, acct, "sess-1", settings)
		if ok {
			t.Fatal("short position should count toward total notional")
		}
	})

	t.Run("unmarkable position skipped", func(t *testing.T) {
		store := &fakeStore{
			notionals: map[string]*db.NotionalLimit{
				"sess-1/EQUITY": {MaxTotalNotional: floatPtr(10000)},
			},
			positions: map[string][]db.Position{
				"acct-1": {{Ticker: "DELISTED", Quantity: 1000, AssetClass: db.AssetEquity}},
			},
		}
		c := NewNotionalLimitCheck(store, &fakeMarketData{})
		o := db.Order{AssetClass: db.AssetEquity, Ticker: "AAPL", Quantity: 50, Price: 100}
		ok, reason := c.Check(context.Background(), o, acct, "sess-1", settings)
		if !ok {
			t.Fatalf("expected pass with unmarkable position skipped, got %q", reason)
		}
	})

	t.Run("spread sums legs", func(t *testing.T) {
		store := &fakeStore{
			notionals: map[string]*db.NotionalLimit{
				"sess-1/OPTION": {MaxOrderNotional: floatPtr(500)},
			},
			contracts: map[string]float64{"XYZ100C": 100, "XYZ110C": 100},
		}
		c := NewNotionalLimitCheck(store, &fakeMarketData{})
		o := db.Order{
			OrderType:  db.OrderTypeSpread,
			AssetClass: db.AssetOption,
			Legs: []db.OrderLeg{
				{Ticker: "XYZ100C", AssetClass: db.AssetOption, Quantity: 1, Price: 5},
				{Ticker: "XYZ110C", AssetClass: db.AssetOption, Quantity: 1, Price: 1},
			},
		}
		// 5*100 + 1*100 = 600 > 500.
		ok, reason := c.Check(context.Background(), o, acct, "sess-1", settings)
		if ok || reason != "Order notional value 600.00 exceeds maximum allowed 500.00" {
			t.Fatalf("ok=%v reason=%q", ok, reason)
		}
	})

	t.Run("spread with one leg", func(t *testing.T) {
		store := &fakeStore{notionals: map[string]*db.NotionalLimit{
			"sess-1/OPTION": {MaxOrderNotional: floatPtr(500)},
		}}
		c := NewNotionalLimitCheck(store, &fakeMarketData{})
		o := db.Order{
			OrderType:  db.OrderTypeSpread,
			AssetClass: db.AssetOption,
			Legs:       []db.OrderLeg{{Ticker: "XYZ100C", AssetClass: db.AssetOption, Quantity: 1, Price: 5}},
		}
		ok, reason := c.Check(context.Background(), o, acct, "sess-1", settings)
		if ok || reason != "Failed to calculate order notional value" {
			t.Fatalf("ok=%v reason=%q", ok, reason)
		}
	})
}
