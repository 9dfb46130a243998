package eventmodels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTradingViewWebhookMessage(t *testing.T) {
	valid := `{
		"timestamp": 1700000000000,
		"ticker": "AAPL",
		"timeframe": "1D",
		"key": "WebhookReceived",
		"currency": "USD",
		"clientId": 1,
		"contract": "stock",
		"orderRef": "o77",
		"direction": "strategy.entrylong",
		"metrics": [
			{"name": "qty", "value": 10},
			{"name": "price", "value": 182.5},
			{"name": "entry.limit", "value": 182.4}
		]
	}`

	t.Run("valid message", func(t *testing.T) {
		msg, err := ParseTradingViewWebhookMessage([]byte(valid))
		require.NoError(t, err)
		assert.Equal(t, "AAPL", msg.Ticker)
		assert.Equal(t, DirectionEntryLong, msg.Direction)
		require.NotNil(t, msg.ClientID)
		assert.Equal(t, 1, *msg.ClientID)

		m := msg.OrderMetrics()
		assert.Equal(t, 10.0, m.Qty)
		assert.Equal(t, 182.5, m.Price)
		assert.Equal(t, 182.4, m.EntryLimit)
		assert.Equal(t, 0.0, m.ExitStop)
	})

	t.Run("null clientId is allowed", func(t *testing.T) {
		msg, err := ParseTradingViewWebhookMessage([]byte(`{
			"timestamp": 1700000000000,
			"ticker": "EURUSD",
			"timeframe": "1h",
			"key": "k",
			"currency": "USD",
			"clientId": null,
			"contract": "forex",
			"orderRef": "fx",
			"direction": "strategy.close"
		}`))
		require.NoError(t, err)
		assert.Nil(t, msg.ClientID)
	})

	t.Run("missing timestamp is rejected", func(t *testing.T) {
		_, err := ParseTradingViewWebhookMessage([]byte(`{
			"ticker": "AAPL",
			"timeframe": "1D",
			"key": "k",
			"currency": "USD",
			"contract": "stock",
			"orderRef": "o",
			"direction": "strategy.entrylong"
		}`))
		assert.Error(t, err)
	})

	t.Run("unknown contract kind is rejected", func(t *testing.T) {
		_, err := ParseTradingViewWebhookMessage([]byte(`{
			"timestamp": 1700000000000,
			"ticker": "AAPL",
			"timeframe": "1D",
			"key": "k",
			"currency": "USD",
			"contract": "future",
			"orderRef": "o",
			"direction": "strategy.entrylong"
		}`))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseTradingViewWebhookMessage([]byte(`{"timestamp":`))
		assert.Error(t, err)
	})

	t.Run("unknown metric names are ignored", func(t *testing.T) {
		msg, err := ParseTradingViewWebhookMessage([]byte(`{
			"timestamp": 1700000000000,
			"ticker": "AAPL",
			"timeframe": "1D",
			"key": "k",
			"currency": "USD",
			"contract": "stock",
			"orderRef": "o",
			"direction": "strategy.entrylong",
			"metrics": [{"name": "rsi", "value": 70}, {"name": "qty", "value": 5}]
		}`))
		require.NoError(t, err)
		assert.Equal(t, OrderMetrics{Qty: 5}, msg.OrderMetrics())
	})
}

func TestWebhookMessageTime(t *testing.T) {
	msg := TradingViewWebhookMessage{Timestamp: 1700000000000}
	assert.Equal(t, int64(1700000000), msg.Time().Unix())
	assert.Equal(t, "UTC", msg.Time().Location().String())
}
