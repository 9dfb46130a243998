package eventmodels

import (
	"fmt"
	"strings"
)

// OrderRefMaxLen is the broker-side cap on order reference strings.
const OrderRefMaxLen = 20

// AllContractsQty is the sentinel quantity meaning "the whole position".
const AllContractsQty = -1e10

// TradingOrder is the decoded trading intent of one webhook alert, ready for
// the order placer. Prices are still chart prices; the placer snaps them to
// the contract's minimum tick before submission.
type TradingOrder struct {
	Symbol    string
	Currency  string
	Contract  ContractKind
	Direction Direction
	Action    Action
	Kind      OrderKind
	Metrics   OrderMetrics
	OrderRef  string
	Timeframe string
	UniqueKey string
}

// NewTradingOrder builds the order intent for an alert on behalf of the bot
// with the given gateway client id. The client id namespaces the order
// reference so several bots can trade one account without clobbering each
// other's orders.
func NewTradingOrder(msg *TradingViewWebhookMessage, clientID int, uniqueKey string) (*TradingOrder, error) {
	if !msg.Direction.IsKnown() {
		return nil, fmt.Errorf("NewTradingOrder: unrecognized direction %q", msg.Direction)
	}

	metrics := msg.OrderMetrics()

	order := &TradingOrder{
		Symbol:    msg.Ticker,
		Currency:  msg.Currency,
		Contract:  msg.Contract,
		Direction: msg.Direction,
		Action:    msg.Direction.Action(),
		Metrics:   metrics,
		OrderRef:  ExtendedOrderRef(clientID, msg.Timeframe, msg.OrderRef),
		Timeframe: msg.Timeframe,
		UniqueKey: uniqueKey,
	}

	switch {
	case msg.Direction.IsEntry():
		order.Kind = ClassifyEntry(metrics)
	case msg.Direction.IsExit():
		order.Kind = ClassifyExit(metrics)
	default:
		order.Kind = OrderKindMarket
	}

	return order, nil
}

// ExtendedOrderRef namespaces a chart order reference with the client id and
// timeframe, clipped to the broker's reference length limit.
func ExtendedOrderRef(clientID int, timeframe string, orderRef string) string {
	ref := fmt.Sprintf("C%d_%s_%s", clientID, timeframe, orderRef)
	if len(ref) > OrderRefMaxLen {
		ref = ref[:OrderRefMaxLen]
	}

	return ref
}

// OrderRefPrefix is the namespace shared by every order this client places.
func OrderRefPrefix(clientID int) string {
	return fmt.Sprintf("C%d_", clientID)
}

// OwnsOrderRef reports whether an order reference was produced by the client
// with the given id.
func OwnsOrderRef(clientID int, orderRef string) bool {
	return strings.HasPrefix(orderRef, OrderRefPrefix(clientID))
}
