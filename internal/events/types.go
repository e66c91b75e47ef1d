package events

// Event enumerates high-level topics inside the gateway.
type Event string

const (
	EventNewOrderToMarket   Event = "order.sent_to_market"
	EventOrderCancelRequest Event = "order.cancel_request"
	EventExecutionReport    Event = "execution_report"
	EventOrderRejected      Event = "order.rejected"
	EventOrderFilled        Event = "order.filled"
	EventRiskDenied         Event = "risk.denied"
	EventReconciliation     Event = "reconciliation"
)
