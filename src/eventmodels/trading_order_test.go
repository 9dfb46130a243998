package eventmodels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionAction(t *testing.T) {
	cases := []struct {
		direction Direction
		action    Action
	}{
		{DirectionEntryLong, ActionBuy},
		{DirectionExitShort, ActionBuy},
		{DirectionEntryShort, ActionSell},
		{DirectionExitLong, ActionSell},
		{DirectionClose, ActionSell},
		{DirectionCloseAll, ActionSell},
		{DirectionCancelLong, ActionBuy},
		{DirectionCancelShort, ActionSell},
		{DirectionAlert, ActionUnknown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.action, tc.direction.Action(), "direction %s", tc.direction)
	}

	assert.Equal(t, ActionSell, ActionBuy.Reverse())
	assert.Equal(t, ActionBuy, ActionSell.Reverse())
}

func TestExtendedOrderRef(t *testing.T) {
	t.Run("short refs pass through with the namespace", func(t *testing.T) {
		assert.Equal(t, "C1_1D_o77", ExtendedOrderRef(1, "1D", "o77"))
	})

	t.Run("long refs are clipped to the broker limit", func(t *testing.T) {
		ref := ExtendedOrderRef(12, "240", "averylongreferencename")
		assert.Len(t, ref, OrderRefMaxLen)
		assert.Equal(t, "C12_240_averylongref", ref)
	})
}

func TestOwnsOrderRef(t *testing.T) {
	assert.True(t, OwnsOrderRef(1, "C1_1D_o77"))
	assert.False(t, OwnsOrderRef(1, "C11_1D_o77"))
	assert.False(t, OwnsOrderRef(2, "C1_1D_o77"))
	assert.False(t, OwnsOrderRef(1, "manual order"))
}

func TestNewTradingOrder(t *testing.T) {
	clientID := 1
	msg := &TradingViewWebhookMessage{
		Timestamp: 1700000000000,
		Ticker:    "AAPL",
		Timeframe: "1D",
		Key:       "k",
		Currency:  "USD",
		ClientID:  &clientID,
		Contract:  ContractStock,
		OrderRef:  "o77",
		Metrics: []Metric{
			{Name: MetricQty, Value: 10},
			{Name: MetricEntryLimit, Value: 182.4},
		},
	}

	t.Run("entry classifies through the entry table", func(t *testing.T) {
		msg.Direction = DirectionEntryLong
		order, err := NewTradingOrder(msg, clientID, "2023-11-14 22:13:20.000")
		require.NoError(t, err)
		assert.Equal(t, ActionBuy, order.Action)
		assert.Equal(t, OrderKindLimit, order.Kind)
		assert.Equal(t, "C1_1D_o77", order.OrderRef)
		assert.Equal(t, "2023-11-14 22:13:20.000", order.UniqueKey)
	})

	t.Run("exit classifies through the exit table", func(t *testing.T) {
		msg.Direction = DirectionExitLong
		msg.Metrics = []Metric{{Name: MetricExitStop, Value: 170}}
		order, err := NewTradingOrder(msg, clientID, "key")
		require.NoError(t, err)
		assert.Equal(t, OrderKindUpdateStopLoss, order.Kind)
	})

	t.Run("close is a market intent", func(t *testing.T) {
		msg.Direction = DirectionClose
		msg.Metrics = nil
		order, err := NewTradingOrder(msg, clientID, "key")
		require.NoError(t, err)
		assert.Equal(t, OrderKindMarket, order.Kind)
	})

	t.Run("unknown direction errors", func(t *testing.T) {
		msg.Direction = "strategy.hedge"
		_, err := NewTradingOrder(msg, clientID, "key")
		assert.Error(t, err)
	})
}
