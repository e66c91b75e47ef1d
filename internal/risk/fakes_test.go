package risk

import (
	"context"

	"order-gateway/pkg/db"
)

// fakeStore serves risk configuration from maps. A nil map entry means
// the row does not exist and lookups return db.ErrNotFound.
type fakeStore struct {
	settings    map[string]*db.RiskSettings
	positions   map[string][]db.Position
	marginRates map[string]*db.MarginRates // key: assetClass + "/" + accountType
	instrRates  map[string]*db.MarginRates
	contracts   map[string]float64
	strikes     map[string]float64
	notionals   map[string]*db.NotionalLimit // key: sessionID + "/" + assetClass
	permissions map[string]*db.TradingPermission

	positionsErr error
}

func (f *fakeStore) GetRiskSettings(ctx context.Context, sessionID string) (*db.RiskSettings, error) {
	if s, ok := f.settings[sessionID]; ok {
		return s, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) GetPositions(ctx context.Context, accountID string) ([]db.Position, error) {
	if f.positionsErr != nil {
		return nil, f.positionsErr
	}
	return f.positions[accountID], nil
}

func (f *fakeStore) GetMarginRates(ctx context.Context, assetClass, accountType string) (*db.MarginRates, error) {
	if m, ok := f.marginRates[assetClass+"/"+accountType]; ok {
		return m, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) GetInstrumentMarginRates(ctx context.Context, ticker string) (*db.MarginRates, error) {
	if m, ok := f.instrRates[ticker]; ok {
		return m, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) GetContractSize(ctx context.Context, ticker string) (float64, error) {
	if size, ok := f.contracts[ticker]; ok {
		return size, nil
	}
	return 0, db.ErrNotFound
}

func (f *fakeStore) GetStrikePrice(ctx context.Context, ticker string) (float64, error) {
	if strike, ok := f.strikes[ticker]; ok {
		return strike, nil
	}
	return 0, db.ErrNotFound
}

func (f *fakeStore) GetNotionalLimits(ctx context.Context, sessionID, assetClass string) (*db.NotionalLimit, error) {
	if n, ok := f.notionals[sessionID+"/"+assetClass]; ok {
		return n, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) GetTradingPermissions(ctx context.Context, tradingMode, assetClass string) (*db.TradingPermission, error) {
	if p, ok := f.permissions[tradingMode+"/"+assetClass]; ok {
		return p, nil
	}
	return nil, db.ErrNotFound
}

// fakeMarketData returns marks from a map; unknown tickers error.
type fakeMarketData struct {
	marks map[string]float64
	err   error
}

func (f *fakeMarketData) LastTrade(ctx context.Context, ticker string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if mark, ok := f.marks[ticker]; ok {
		return mark, nil
	}
	return 0, db.ErrNotFound
}

// spyPlugin records invocations and returns a fixed verdict.
type spyPlugin struct {
	name   string
	ok     bool
	reason string
	calls  int
	panics bool
}

func (s *spyPlugin) Name() string { return s.name }

func (s *spyPlugin) Check(ctx context.Context, o db.Order, acct db.Account, sessionID string, settings db.RiskSettings) (bool, string) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.ok, s.reason
}

func floatPtr(v float64) *float64 { return &v }
