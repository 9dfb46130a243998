package eventmodels

// OrderStatus mirrors the gateway's order lifecycle states.
type OrderStatus string

const (
	OrderStatusPendingSubmit OrderStatus = "PendingSubmit"
	OrderStatusPreSubmitted  OrderStatus = "PreSubmitted"
	OrderStatusSubmitted     OrderStatus = "Submitted"
	OrderStatusFilled        OrderStatus = "Filled"
	OrderStatusCancelled     OrderStatus = "Cancelled"
	OrderStatusPendingCancel OrderStatus = "PendingCancel"
	OrderStatusInactive      OrderStatus = "Inactive"

	// OrderStatusPortfolio marks synthetic store rows that snapshot broker
	// positions rather than orders.
	OrderStatusPortfolio OrderStatus = "Portfolio"
)

func (s OrderStatus) IsActive() bool {
	switch s {
	case OrderStatusPendingSubmit, OrderStatusPreSubmitted, OrderStatusSubmitted:
		return true
	default:
		return false
	}
}

func (s OrderStatus) IsDone() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusInactive:
		return true
	default:
		return false
	}
}
