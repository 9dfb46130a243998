package dbutils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradingboat/tbot/src/eventmodels"
)

func newTestStore(t *testing.T) *OrderStore {
	t.Helper()

	db, err := InitSQLite(filepath.Join(t.TempDir(), "tbot_sqlite3"))
	require.NoError(t, err)

	return NewOrderStore(db)
}

func orderRow(ticker, orderRef, action, orderType, status string, orderID int64, qty float64) *eventmodels.OrderRecord {
	return &eventmodels.OrderRecord{
		UniqueKey:   "2023-11-14 22:13:20.000",
		Ticker:      ticker,
		OrderRef:    orderRef,
		Action:      action,
		OrderType:   orderType,
		OrderStatus: status,
		OrderID:     orderID,
		Qty:         qty,
	}
}

func TestOrderStore_Exists(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Insert(orderRow("AAPL", "C1_1D_o1", "BUY", "MKT", "Submitted", 101, 10)))

	found, err := store.Exists("2023-11-14 22:13:20.000", "AAPL", "C1_1D_o1")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.Exists("2023-11-14 22:13:20.000", "AAPL", "C1_1D_o2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOrderStore_FindActive(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Insert(orderRow("AAPL", "C1_1D_o1", "BUY", "MKT", "Filled", 101, 10)))
	require.NoError(t, store.Insert(orderRow("AAPL", "C1_1D_o1", "BUY", "LMT", "Submitted", 102, 10)))
	require.NoError(t, store.Insert(orderRow("AAPL", "C1_1D_o1", "SELL", "LMT", "Submitted", 103, 10)))

	t.Run("matches the newest active row for the action", func(t *testing.T) {
		row, err := store.FindActive("AAPL", "C1_1D_o1", eventmodels.ActionBuy)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, int64(102), row.OrderID)
	})

	t.Run("no rows for an unknown ticker", func(t *testing.T) {
		row, err := store.FindActive("MSFT", "C1_1D_o1", eventmodels.ActionBuy)
		require.NoError(t, err)
		assert.Nil(t, row)
	})

	t.Run("narrowing by order type", func(t *testing.T) {
		row, err := store.FindActiveByType("AAPL", "C1_1D_o1", "LMT")
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, int64(103), row.OrderID)
	})
}

func TestOrderStore_FilledQty(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Insert(orderRow("AAPL", "C1_1D_o1", "BUY", "MKT", "Filled", 101, 10)))
	require.NoError(t, store.Insert(orderRow("AAPL", "C1_1D_o1", "SELL", "MKT", "Filled", 102, 4)))
	require.NoError(t, store.Insert(orderRow("AAPL", "C1_1D_o1", "BUY", "MKT", "Submitted", 103, 99)))

	t.Run("sell fills count negative", func(t *testing.T) {
		qty, err := store.FilledQty("AAPL", "C1_1D_o1", 10)
		require.NoError(t, err)
		assert.Equal(t, 6.0, qty)
	})

	t.Run("lookback of one sees only the newest fill", func(t *testing.T) {
		qty, err := store.FilledQty("AAPL", "C1_1D_o1", 1)
		require.NoError(t, err)
		assert.Equal(t, -4.0, qty)
	})
}

func TestOrderStore_UpdateStatus(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Insert(orderRow("AAPL", "C1_1D_o1", "BUY", "MKT", "Submitted", 101, 10)))

	t.Run("fills carry the average price", func(t *testing.T) {
		err := store.UpdateStatus(&eventmodels.OrderUpdateEvent{
			OrderID:      101,
			Status:       eventmodels.OrderStatusFilled,
			AvgFillPrice: 182.33,
		})
		require.NoError(t, err)

		row, err := store.FindByOrderID(101)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, "Filled", row.OrderStatus)
		assert.Equal(t, 182.33, row.AvgFillPrice)
	})

	t.Run("unknown order ids are ignored", func(t *testing.T) {
		err := store.UpdateStatus(&eventmodels.OrderUpdateEvent{
			OrderID: 999,
			Status:  eventmodels.OrderStatusFilled,
		})
		assert.NoError(t, err)
	})
}

func TestOrderStore_MarkCancelled(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Insert(orderRow("AAPL", "C1_1D_o1", "BUY", "LMT", "Submitted", 101, 10)))
	require.NoError(t, store.Insert(orderRow("AAPL", "C1_1D_o1", "BUY", "STP", "PreSubmitted", 102, 10)))
	require.NoError(t, store.Insert(orderRow("AAPL", "C1_1D_o1", "SELL", "LMT", "Submitted", 103, 10)))
	require.NoError(t, store.Insert(orderRow("AAPL", "C1_1D_o1", "BUY", "MKT", "Filled", 104, 10)))

	t.Run("cancels active rows for one side", func(t *testing.T) {
		n, err := store.MarkCancelled("AAPL", "C1_1D_o1", eventmodels.ActionBuy)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("unknown action cancels every remaining active row", func(t *testing.T) {
		n, err := store.MarkCancelled("AAPL", "C1_1D_o1", eventmodels.ActionUnknown)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("filled rows stay filled", func(t *testing.T) {
		row, err := store.FindByOrderID(104)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, "Filled", row.OrderStatus)
	})
}

func TestOrderStore_Portfolio(t *testing.T) {
	store := newTestStore(t)

	t.Run("first upsert creates the snapshot row", func(t *testing.T) {
		require.NoError(t, store.UpsertPortfolio("AAPL", 10, 1823.3, 180.1, 22.0, 0))

		pos, err := store.PositionSize("AAPL")
		require.NoError(t, err)
		assert.Equal(t, 10.0, pos)
	})

	t.Run("second upsert updates in place", func(t *testing.T) {
		require.NoError(t, store.UpsertPortfolio("AAPL", -4, -730.0, 182.5, -3.0, 12.0))

		pos, err := store.PositionSize("AAPL")
		require.NoError(t, err)
		assert.Equal(t, -4.0, pos)

		rows, err := store.Recent(10)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
		assert.Equal(t, "Ptf_AAPL", rows[0].UniqueKey)
	})

	t.Run("missing snapshot reads as flat", func(t *testing.T) {
		pos, err := store.PositionSize("MSFT")
		require.NoError(t, err)
		assert.Equal(t, 0.0, pos)
	})

	t.Run("fresh snapshots survive the purge", func(t *testing.T) {
		n, err := store.PurgeStalePortfolio()
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}
