// Package fix defines the boundary to the session-protocol adapter.
// The wire codec itself lives outside the core; the gateway consumes
// structured orders and emits typed outbound events.
package fix

import (
	"time"

	"order-gateway/internal/events"
	"order-gateway/pkg/db"
)

// NewOrderToMarket asks the adapter to submit an order to the external venue.
type NewOrderToMarket struct {
	Order     db.Order
	SessionID string
}

// OrderCancelRequest asks the adapter to cancel a resting order at the venue.
type OrderCancelRequest struct {
	Order db.Order
}

// ExecutionReport notifies the originating session of a fill.
type ExecutionReport struct {
	Order        db.Order
	SessionID    string
	Price        float64
	Quantity     float64
	LiquidityTag string
	Timestamp    time.Time
}

// Reject notifies the originating session that an order was refused.
type Reject struct {
	Order     db.Order
	SessionID string
	Reason    string
}

// Gateway is the outbound surface the core drives. Implementations may
// block on the session; callers treat the calls as fire-and-forget.
type Gateway interface {
	SendNewOrder(o db.Order, sessionID string)
	SendOrderCancelRequest(o db.Order)
	SendExecutionReport(o db.Order, sessionID string, price, quantity float64, liquidityTag string)
	SendReject(o db.Order, sessionID, reason string)
}

// BusGateway publishes outbound events on the internal bus, where the
// session adapter (and the ops websocket) pick them up.
type BusGateway struct {
	Bus *events.Bus
}

// NewBusGateway wraps the bus in the Gateway interface.
func NewBusGateway(bus *events.Bus) *BusGateway {
	return &BusGateway{Bus: bus}
}

func (g *BusGateway) SendNewOrder(o db.Order, sessionID string) {
	g.Bus.Publish(events.EventNewOrderToMarket, NewOrderToMarket{Order: o, SessionID: sessionID})
}

func (g *BusGateway) SendOrderCancelRequest(o db.Order) {
	g.Bus.Publish(events.EventOrderCancelRequest, OrderCancelRequest{Order: o})
}

func (g *BusGateway) SendExecutionReport(o db.Order, sessionID string, price, quantity float64, liquidityTag string) {
	g.Bus.Publish(events.EventExecutionReport, ExecutionReport{
		Order:        o,
		SessionID:    sessionID,
		Price:        price,
		Quantity:     quantity,
		LiquidityTag: liquidityTag,
		Timestamp:    time.Now(),
	})
}

func (g *BusGateway) SendReject(o db.Order, sessionID, reason string) {
	g.Bus.Publish(events.EventOrderRejected, Reject{Order: o, SessionID: sessionID, Reason: reason})
}
