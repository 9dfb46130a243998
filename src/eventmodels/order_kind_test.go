package eventmodels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyEntry(t *testing.T) {
	t.Run("no price metrics is a market order", func(t *testing.T) {
		assert.Equal(t, OrderKindMarket, ClassifyEntry(OrderMetrics{Qty: 10}))
	})

	t.Run("entry limit alone", func(t *testing.T) {
		assert.Equal(t, OrderKindLimit, ClassifyEntry(OrderMetrics{EntryLimit: 100}))
	})

	t.Run("entry stop alone", func(t *testing.T) {
		assert.Equal(t, OrderKindStop, ClassifyEntry(OrderMetrics{EntryStop: 100}))
	})

	t.Run("entry limit and stop", func(t *testing.T) {
		assert.Equal(t, OrderKindStopLimit, ClassifyEntry(OrderMetrics{EntryLimit: 100, EntryStop: 99}))
	})

	t.Run("limit entry with both exits is a bracket", func(t *testing.T) {
		m := OrderMetrics{EntryLimit: 100, ExitLimit: 110, ExitStop: 95}
		assert.Equal(t, OrderKindBracketLimit, ClassifyEntry(m))
	})

	t.Run("stop entry with both exits is a bracket", func(t *testing.T) {
		m := OrderMetrics{EntryStop: 100, ExitLimit: 110, ExitStop: 95}
		assert.Equal(t, OrderKindBracketStop, ClassifyEntry(m))
	})

	t.Run("market entry with both exits is a bracket", func(t *testing.T) {
		m := OrderMetrics{ExitLimit: 110, ExitStop: 95}
		assert.Equal(t, OrderKindBracketMarket, ClassifyEntry(m))
	})

	t.Run("single attached exit legs", func(t *testing.T) {
		assert.Equal(t, OrderKindMarketWithProfitTaker, ClassifyEntry(OrderMetrics{ExitLimit: 110}))
		assert.Equal(t, OrderKindMarketWithStopLoss, ClassifyEntry(OrderMetrics{ExitStop: 95}))
		assert.Equal(t, OrderKindLimitWithProfitTaker, ClassifyEntry(OrderMetrics{EntryLimit: 100, ExitLimit: 110}))
		assert.Equal(t, OrderKindLimitWithStopLoss, ClassifyEntry(OrderMetrics{EntryLimit: 100, ExitStop: 95}))
	})

	t.Run("stop entry with a single exit leg is unsupported", func(t *testing.T) {
		assert.Equal(t, OrderKindUnsupported, ClassifyEntry(OrderMetrics{EntryStop: 100, ExitLimit: 110}))
		assert.Equal(t, OrderKindUnsupported, ClassifyEntry(OrderMetrics{EntryStop: 100, ExitStop: 95}))
	})

	t.Run("all four metrics is unsupported", func(t *testing.T) {
		m := OrderMetrics{EntryLimit: 100, EntryStop: 99, ExitLimit: 110, ExitStop: 95}
		assert.Equal(t, OrderKindUnsupported, ClassifyEntry(m))
	})
}

func TestClassifyExit(t *testing.T) {
	t.Run("both exit legs update the bracket", func(t *testing.T) {
		assert.Equal(t, OrderKindUpdateBracket, ClassifyExit(OrderMetrics{ExitLimit: 110, ExitStop: 95}))
	})

	t.Run("single legs", func(t *testing.T) {
		assert.Equal(t, OrderKindUpdateProfitTaker, ClassifyExit(OrderMetrics{ExitLimit: 110}))
		assert.Equal(t, OrderKindUpdateStopLoss, ClassifyExit(OrderMetrics{ExitStop: 95}))
	})

	t.Run("entry metrics on an exit are unsupported", func(t *testing.T) {
		assert.Equal(t, OrderKindUnsupported, ClassifyExit(OrderMetrics{EntryLimit: 100}))
		assert.Equal(t, OrderKindUnsupported, ClassifyExit(OrderMetrics{}))
	})
}
