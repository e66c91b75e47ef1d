package fix

import (
	"testing"
	"time"

	"order-gateway/internal/events"
	"order-gateway/pkg/db"
)

func recv(t *testing.T, ch <-chan any) any {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func TestBusGateway(t *testing.T) {
	bus := events.NewBus()
	g := NewBusGateway(bus)
	o := db.Order{ID: "o1", Ticker: "AAPL", Side: db.SideBuy, Quantity: 10, Price: 50}

	t.Run("new order", func(t *testing.T) {
		ch, unsub := bus.Subscribe(events.EventNewOrderToMarket, 1)
		defer unsub()

		g.SendNewOrder(o, "sess-1")
		msg := recv(t, ch).(NewOrderToMarket)
		if msg.Order.ID != "o1" || msg.SessionID != "sess-1" {
			t.Fatalf("payload = %+v", msg)
		}
	})

	t.Run("cancel request", func(t *testing.T) {
		ch, unsub := bus.Subscribe(events.EventOrderCancelRequest, 1)
		defer unsub()

		g.SendOrderCancelRequest(o)
		msg := recv(t, ch).(OrderCancelRequest)
		if msg.Order.ID != "o1" {
			t.Fatalf("payload = %+v", msg)
		}
	})

	t.Run("execution report", func(t *testing.T) {
		ch, unsub := bus.Subscribe(events.EventExecutionReport, 1)
		defer unsub()

		g.SendExecutionReport(o, "sess-1", 50, 60, db.LiquidityInternalized)
		msg := recv(t, ch).(ExecutionReport)
		if msg.Quantity != 60 || msg.LiquidityTag != db.LiquidityInternalized {
			t.Fatalf("payload = %+v", msg)
		}
		if msg.Timestamp.IsZero() {
			t.Fatal("timestamp not set")
		}
	})

	t.Run("reject", func(t *testing.T) {
		ch, unsub := bus.Subscribe(events.EventOrderRejected, 1)
		defer unsub()

		g.SendReject(o, "sess-1", "Credit limit exceeded.")
		msg := recv(t, ch).(Reject)
		if msg.Reason != "Credit limit exceeded." {
			t.Fatalf("payload = %+v", msg)
		}
	})
}
