package eventconsumers

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradingboat/tbot/src/dbutils"
	"github.com/tradingboat/tbot/src/eventmodels"
	pubsub "github.com/tradingboat/tbot/src/eventpubsub"
)

type fakeExecutor struct {
	state eventmodels.ErrorState

	entries int
	exits   int
	closes  int
	cancels int
}

func (f *fakeExecutor) PlaceEntry(ctx context.Context, order *eventmodels.TradingOrder) (eventmodels.ErrorState, error) {
	f.entries++
	return f.state, nil
}

func (f *fakeExecutor) UpdateExit(ctx context.Context, order *eventmodels.TradingOrder) (eventmodels.ErrorState, error) {
	f.exits++
	return f.state, nil
}

func (f *fakeExecutor) Close(ctx context.Context, order *eventmodels.TradingOrder) (eventmodels.ErrorState, error) {
	f.closes++
	return f.state, nil
}

func (f *fakeExecutor) Cancel(ctx context.Context, order *eventmodels.TradingOrder) (eventmodels.ErrorState, error) {
	f.cancels++
	return f.state, nil
}

type fakeGateway struct {
	connected bool
	connects  int
}

func (f *fakeGateway) IsConnected() bool { return f.connected }

func (f *fakeGateway) Connect(ctx context.Context) error {
	f.connects++
	f.connected = true
	return nil
}

func newDecoderFixture(t *testing.T, executor *fakeExecutor, gateway *fakeGateway) (*DecoderClient, *dbutils.AlertStore, *dbutils.ErrorStore) {
	t.Helper()

	pubsub.Init()

	db, err := dbutils.InitSQLite(filepath.Join(t.TempDir(), "tbot_sqlite3"))
	require.NoError(t, err)

	alerts := dbutils.NewAlertStore(db)
	errors := dbutils.NewErrorStore(db)

	var wg sync.WaitGroup
	client := NewDecoderClient(&wg, executor, gateway, alerts, errors, 1, false)

	return client, alerts, errors
}

func decoderAlert(direction eventmodels.Direction, clientID *int) *eventmodels.TradingViewAlertEvent {
	return &eventmodels.TradingViewAlertEvent{
		Message: &eventmodels.TradingViewWebhookMessage{
			Timestamp: 1700000000000,
			Ticker:    "AAPL",
			Timeframe: "1D",
			Key:       "k",
			Currency:  "USD",
			ClientID:  clientID,
			Contract:  eventmodels.ContractStock,
			OrderRef:  "o1",
			Direction: direction,
			Metrics:   []eventmodels.Metric{{Name: eventmodels.MetricQty, Value: 10}},
		},
		Ack: func() {},
	}
}

func TestDecoderAlertHandler(t *testing.T) {
	t.Run("entry dispatches to the placer and records the alert", func(t *testing.T) {
		executor := &fakeExecutor{state: eventmodels.ErrorStateSubmitted}
		gateway := &fakeGateway{connected: true}
		client, alerts, errors := newDecoderFixture(t, executor, gateway)

		acked := false
		ev := decoderAlert(eventmodels.DirectionEntryLong, nil)
		ev.Ack = func() { acked = true }

		client.alertHandler(ev)

		assert.Equal(t, 1, executor.entries)
		assert.True(t, acked)

		rows, err := alerts.Recent(1)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "AAPL", rows[0].Ticker)
		assert.Equal(t, "2023-11-14 22:13:20.000", rows[0].UniqueKey)

		// clean submits produce no error row
		errRows, err := errors.Recent(1)
		require.NoError(t, err)
		assert.Empty(t, errRows)
	})

	t.Run("failed dispatch records an error row", func(t *testing.T) {
		executor := &fakeExecutor{state: eventmodels.ErrorStateNoClosePos}
		gateway := &fakeGateway{connected: true}
		client, _, errors := newDecoderFixture(t, executor, gateway)

		client.alertHandler(decoderAlert(eventmodels.DirectionClose, nil))

		assert.Equal(t, 1, executor.closes)

		rows, err := errors.Recent(1)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "ENOCLSPOS", rows[0].ErrorState)
	})

	t.Run("alert addressed to another client is dropped but still acked", func(t *testing.T) {
		executor := &fakeExecutor{state: eventmodels.ErrorStateSubmitted}
		gateway := &fakeGateway{connected: true}
		client, alerts, _ := newDecoderFixture(t, executor, gateway)

		other := 2
		acked := false
		ev := decoderAlert(eventmodels.DirectionEntryLong, &other)
		ev.Ack = func() { acked = true }

		client.alertHandler(ev)

		assert.Zero(t, executor.entries)

		// an unacked entry would sit at the stream head and starve every
		// alert queued behind it
		assert.True(t, acked)

		rows, err := alerts.Recent(1)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("disconnected gateway triggers a reconnect attempt", func(t *testing.T) {
		executor := &fakeExecutor{state: eventmodels.ErrorStateSubmitted}
		gateway := &fakeGateway{connected: false}
		client, _, _ := newDecoderFixture(t, executor, gateway)

		client.alertHandler(decoderAlert(eventmodels.DirectionEntryLong, nil))

		assert.Equal(t, 1, gateway.connects)
		assert.Equal(t, 1, executor.entries)
	})

	t.Run("cancel and exit routes", func(t *testing.T) {
		executor := &fakeExecutor{state: eventmodels.ErrorStateCancelled}
		gateway := &fakeGateway{connected: true}
		client, _, _ := newDecoderFixture(t, executor, gateway)

		client.alertHandler(decoderAlert(eventmodels.DirectionCancelAll, nil))
		assert.Equal(t, 1, executor.cancels)

		ev := decoderAlert(eventmodels.DirectionExitLong, nil)
		ev.Message.Metrics = []eventmodels.Metric{{Name: eventmodels.MetricExitStop, Value: 170}}
		client.alertHandler(ev)
		assert.Equal(t, 1, executor.exits)
	})

	t.Run("informational alert is recorded and nothing trades", func(t *testing.T) {
		executor := &fakeExecutor{state: eventmodels.ErrorStateSubmitted}
		gateway := &fakeGateway{connected: true}
		client, alerts, errors := newDecoderFixture(t, executor, gateway)

		client.alertHandler(decoderAlert(eventmodels.DirectionAlert, nil))

		assert.Zero(t, executor.entries+executor.exits+executor.closes+executor.cancels)

		rows, err := alerts.Recent(1)
		require.NoError(t, err)
		assert.Len(t, rows, 1)

		errRows, err := errors.Recent(1)
		require.NoError(t, err)
		assert.Empty(t, errRows)
	})
}
