package risk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"order-gateway/pkg/db"
)

// DefaultPluginOrder is the canonical registration order: cheapest
// first so denials short-circuit before the database-heavy checks.
var DefaultPluginOrder = []string{
	"MessageThrottling",
	"TradingMode",
	"CreditLimit",
	"NotionalLimit",
	"Margin",
}

// BuildPlugins instantiates plugins by name in the given order.
// Plugins that need marks receive the MarketData capability.
func BuildPlugins(names []string, store Store, md MarketData) ([]Plugin, error) {
	if len(names) == 0 {
		names = DefaultPluginOrder
	}
	plugins := make([]Plugin, 0, len(names))
	for _, name := range names {
		switch name {
		case "MessageThrottling":
			plugins = append(plugins, NewMessageThrottlingCheck(0))
		case "TradingMode":
			plugins = append(plugins, NewTradingModeCheck(store))
		case "CreditLimit":
			plugins = append(plugins, NewCreditLimitCheck(store, md))
		case "NotionalLimit":
			plugins = append(plugins, NewNotionalLimitCheck(store, md))
		case "Margin":
			plugins = append(plugins, NewMarginCheck(store))
		default:
			return nil, fmt.Errorf("unknown risk plugin %q", name)
		}
	}
	return plugins, nil
}

// Pipeline evaluates an order against its plugins in order, stopping
// at the first denial.
type Pipeline struct {
	store   Store
	plugins []Plugin
}

// NewPipeline builds a pipeline over an ordered plugin list.
func NewPipeline(store Store, plugins ...Plugin) *Pipeline {
	return &Pipeline{store: store, plugins: plugins}
}

// CheckOrder loads the session risk settings and runs every plugin in
// registration order. The first denial wins and later plugins are not
// invoked.
func (p *Pipeline) CheckOrder(ctx context.Context, o db.Order, acct db.Account, sessionID string) (bool, string) {
	settings, err := p.store.GetRiskSettings(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.Printf("pipeline: load risk settings for %s: %v", sessionID, err)
		}
		return false, "Risk settings not found for session."
	}

	for _, pl := range p.plugins {
		ok, reason := safeCheck(ctx, pl, o, acct, sessionID, *settings)
		if !ok {
			log.Printf("pipeline: order %s denied by %s: %s", o.ID, pl.Name(), reason)
			return false, reason
		}
	}
	return true, ""
}

// safeCheck shields the pipeline from a misbehaving plugin: a panic
// becomes a denial instead of taking the worker down.
func safeCheck(ctx context.Context, pl Plugin, o db.Order, acct db.Account, sessionID string, settings db.RiskSettings) (ok bool, reason string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pipeline: %s panicked on order %s: %v", pl.Name(), o.ID, r)
			ok = false
			reason = fmt.Sprintf("%s internal error", pl.Name())
		}
	}()
	return pl.Check(ctx, o, acct, sessionID, settings)
}

// Close releases plugins that hold background resources (currently the
// throttle reset loop).
func (p *Pipeline) Close() {
	for _, pl := range p.plugins {
		if c, ok := pl.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
