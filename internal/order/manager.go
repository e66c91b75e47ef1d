// Package order decides, after risk approval, whether an order is
// internalized against a resting order of the same account or routed
// to the external market, and keeps orders and positions consistent
// either way.
package order

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"order-gateway/internal/events"
	"order-gateway/internal/fix"
	"order-gateway/pkg/db"
)

// Store is the persistence surface the manager needs.
type Store interface {
	GetAccount(ctx context.Context, accountID string) (*db.Account, error)
	GetOrder(ctx context.Context, orderID string) (*db.Order, error)
	GetOpenOrders(ctx context.Context, accountID, ticker, side string, price float64) ([]db.Order, error)
	CreateOrder(ctx context.Context, o db.Order) error
	UpdateOrderStatus(ctx context.Context, orderID, status string, filledQuantity float64, liquidityTag string) error
	WithTransaction(ctx context.Context, fn func(db.TradeWriter) error) error
}

// Reconciliation is published when the internalization transaction
// fails after the resting order was already canceled at the venue.
type Reconciliation struct {
	IncomingOrderID string
	RestingOrderID  string
	Reason          string
}

// Manager routes risk-approved orders. Poll settings default to 10
// attempts at 500 ms, a 5 s cancel-wait window.
type Manager struct {
	store Store
	gw    fix.Gateway
	bus   *events.Bus

	CancelPollInterval time.Duration
	CancelPollAttempts int
}

func NewManager(store Store, gw fix.Gateway, bus *events.Bus) *Manager {
	return &Manager{
		store:              store,
		gw:                 gw,
		bus:                bus,
		CancelPollInterval: 500 * time.Millisecond,
		CancelPollAttempts: 10,
	}
}

// ProcessOrder persists the order and either internalizes it against a
// resting opposite-side order or routes it to the market. markPrice is
// the last trade; it fills in the price of market orders. Store
// failures surface to the counterparty as a reject, never silently.
func (m *Manager) ProcessOrder(ctx context.Context, o db.Order, sessionID string, markPrice float64) error {
	if err := m.processOrder(ctx, o, sessionID, markPrice); err != nil {
		log.Printf("order: processing %s failed: %v", o.ID, err)
		m.gw.SendReject(o, sessionID, "Internal error while processing order")
		return err
	}
	return nil
}

func (m *Manager) processOrder(ctx context.Context, o db.Order, sessionID string, markPrice float64) error {
	if o.Price == 0 {
		o.Price = markPrice
	}
	o.Status = db.StatusNew
	if err := m.store.CreateOrder(ctx, o); err != nil {
		return fmt.Errorf("create order %s: %w", o.ID, err)
	}

	acct, err := m.store.GetAccount(ctx, o.AccountID)
	if err != nil {
		return fmt.Errorf("load account %s: %w", o.AccountID, err)
	}

	if acct.InternalizationEnabled && !o.IsSpread() {
		done, err := m.attemptInternalization(ctx, o, sessionID)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	return m.routeToMarket(ctx, o, sessionID)
}

// attemptInternalization runs the cancel-wait-internalize protocol.
// It reports false when no match exists or the cancel never confirms;
// the caller then routes the order to market.
func (m *Manager) attemptInternalization(ctx context.Context, incoming db.Order, sessionID string) (bool, error) {
	matches, err := m.store.GetOpenOrders(ctx, incoming.AccountID, incoming.Ticker, incoming.OppositeSide(), incoming.Price)
	if err != nil {
		return false, fmt.Errorf("find resting orders for %s: %w", incoming.ID, err)
	}
	if len(matches) == 0 {
		return false, nil
	}
	resting := matches[0] // oldest first

	m.gw.SendOrderCancelRequest(resting)
	if !m.waitForCancel(ctx, resting.ID) {
		log.Printf("order: cancel of %s not confirmed, routing %s to market", resting.ID, incoming.ID)
		return false, nil
	}

	execQty := incoming.Quantity
	restingOpen := resting.Quantity - resting.FilledQuantity
	if restingOpen < execQty {
		execQty = restingOpen
	}

	err = m.store.WithTransaction(ctx, func(w db.TradeWriter) error {
		if err := w.UpdateOrderStatus(ctx, incoming.ID, db.StatusFilled, execQty, db.LiquidityInternalized); err != nil {
			return fmt.Errorf("fill incoming %s: %w", incoming.ID, err)
		}
		if err := w.UpdateOrderStatus(ctx, resting.ID, db.StatusFilled, execQty, db.LiquidityInternalized); err != nil {
			return fmt.Errorf("fill resting %s: %w", resting.ID, err)
		}
		if err := w.UpdatePosition(ctx, incoming.AccountID, incoming.SessionID, incoming.Ticker,
			signedQuantity(incoming.Side, execQty), incoming.Price); err != nil {
			return fmt.Errorf("position for incoming %s: %w", incoming.ID, err)
		}
		if err := w.UpdatePosition(ctx, resting.AccountID, resting.SessionID, resting.Ticker,
			signedQuantity(resting.Side, execQty), resting.Price); err != nil {
			return fmt.Errorf("position for resting %s: %w", resting.ID, err)
		}
		return nil
	})
	if err != nil {
		log.Printf("order: internalization of %s vs %s failed: %v", incoming.ID, resting.ID, err)
		m.bus.Publish(events.EventReconciliation, Reconciliation{
			IncomingOrderID: incoming.ID,
			RestingOrderID:  resting.ID,
			Reason:          err.Error(),
		})
		return true, err
	}

	m.gw.SendExecutionReport(incoming, sessionID, incoming.Price, execQty, db.LiquidityInternalized)
	m.gw.SendExecutionReport(resting, resting.SessionID, resting.Price, execQty, db.LiquidityInternalized)
	m.bus.Publish(events.EventOrderFilled, incoming.ID)
	m.bus.Publish(events.EventOrderFilled, resting.ID)

	if residual := incoming.Quantity - execQty; residual > 0 {
		if err := m.routeResidual(ctx, incoming, sessionID, residual); err != nil {
			return true, err
		}
	}
	if residual := restingOpen - execQty; residual > 0 {
		if err := m.routeResidual(ctx, resting, resting.SessionID, residual); err != nil {
			return true, err
		}
	}
	return true, nil
}

// waitForCancel polls the resting order's status until it reads
// CANCELED or the attempts run out.
func (m *Manager) waitForCancel(ctx context.Context, orderID string) bool {
	for i := 0; i < m.CancelPollAttempts; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(m.CancelPollInterval):
		}
		o, err := m.store.GetOrder(ctx, orderID)
		if err != nil {
			log.Printf("order: poll cancel of %s: %v", orderID, err)
			continue
		}
		if o.Status == db.StatusCanceled {
			return true
		}
	}
	return false
}

// routeResidual spawns a fresh NEW child order for the unfilled
// remainder of a parent and routes it to the market.
func (m *Manager) routeResidual(ctx context.Context, parent db.Order, sessionID string, quantity float64) error {
	child := db.Order{
		ID:            uuid.NewString(),
		ParentOrderID: parent.ID,
		AccountID:     parent.AccountID,
		SessionID:     parent.SessionID,
		Ticker:        parent.Ticker,
		Side:          parent.Side,
		OrderType:     parent.OrderType,
		AssetClass:    parent.AssetClass,
		Price:         parent.Price,
		Quantity:      quantity,
		Status:        db.StatusNew,
	}
	if err := m.store.CreateOrder(ctx, child); err != nil {
		return fmt.Errorf("create residual of %s: %w", parent.ID, err)
	}
	log.Printf("order: residual %.2f of %s re-routed as %s", quantity, parent.ID, child.ID)
	return m.routeToMarket(ctx, child, sessionID)
}

func (m *Manager) routeToMarket(ctx context.Context, o db.Order, sessionID string) error {
	m.gw.SendNewOrder(o, sessionID)
	if err := m.store.UpdateOrderStatus(ctx, o.ID, db.StatusSentToMarket, 0, ""); err != nil {
		return fmt.Errorf("mark %s sent to market: %w", o.ID, err)
	}
	return nil
}

func signedQuantity(side string, qty float64) float64 {
	if side == db.SideSell {
		return -qty
	}
	return qty
}
