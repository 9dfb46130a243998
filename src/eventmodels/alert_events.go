package eventmodels

import (
	"time"
)

// TradingViewAlertEvent is published by the Redis listeners for each message
// pulled off the stream or channel. Ack removes the message from Redis and
// must be called exactly once, after the alert has been dispatched.
type TradingViewAlertEvent struct {
	StreamID   string
	Message    *TradingViewWebhookMessage
	ReceivedAt time.Time
	Ack        func()
}

// AlertHandledEvent is published by the decoder once an alert has been fully
// dispatched. The notifiers key off it to flush their queues.
type AlertHandledEvent struct {
	UniqueKey string
	Ticker    string
	Direction Direction
	Kind      OrderKind
	State     ErrorState
	Elapsed   time.Duration
}

// OrderUpdateEvent is republished from the gateway's order feed after the
// stores have been brought up to date.
type OrderUpdateEvent struct {
	OrderID      int64
	Ticker       string
	OrderRef     string
	Status       OrderStatus
	Filled       float64
	Remaining    float64
	AvgFillPrice float64
}
