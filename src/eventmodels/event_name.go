package eventmodels

type EventName string

const (
	TradingViewAlertEventName EventName = "TradingViewAlertEvent"
	AlertHandledEventName     EventName = "AlertHandledEvent"
	OrderUpdateEventName      EventName = "OrderUpdateEvent"
	Error                     EventName = "DefaultError"
)
