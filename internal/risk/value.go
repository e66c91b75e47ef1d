package risk

import (
	"context"

	"order-gateway/pkg/db"
)

// isDerivative reports whether the asset class scales by contract size.
func isDerivative(assetClass string) bool {
	return assetClass == db.AssetOption || assetClass == db.AssetFuture
}

// grossValue computes price x quantity, scaled by contract size for
// options and futures. Returns db.ErrNotFound when the contract size
// is missing.
func grossValue(ctx context.Context, store Store, assetClass, ticker string, price, quantity float64) (float64, error) {
	if !isDerivative(assetClass) {
		return price * quantity, nil
	}
	size, err := store.GetContractSize(ctx, ticker)
	if err != nil {
		return 0, err
	}
	return price * quantity * size, nil
}
