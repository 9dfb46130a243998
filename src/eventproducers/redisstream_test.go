package eventproducers

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradingboat/tbot/src/eventmodels"
	pubsub "github.com/tradingboat/tbot/src/eventpubsub"
)

const testStreamKey = "REDIS_SKEY_1"

func xaddAlert(t *testing.T, rdb *redis.Client, ts int64, clientID int, ticker string) {
	t.Helper()

	payload, err := json.Marshal(map[string]interface{}{
		"timestamp": ts,
		"ticker":    ticker,
		"timeframe": "1D",
		"key":       "k",
		"currency":  "USD",
		"clientId":  clientID,
		"contract":  "stock",
		"orderRef":  "o1",
		"direction": "strategy.entrylong",
	})
	require.NoError(t, err)

	err = rdb.XAdd(context.Background(), &redis.XAddArgs{
		Stream: testStreamKey,
		Values: map[string]interface{}{AlertField: string(payload)},
	}).Err()
	require.NoError(t, err)
}

func startStreamClient(t *testing.T, rdb *redis.Client) (context.CancelFunc, *sync.WaitGroup) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	NewRedisStreamClient(&wg, rdb, testStreamKey, 40*time.Millisecond, NewAlertValidator(false)).Start(ctx)

	return cancel, &wg
}

func TestRedisStreamClient_ExactlyOnceDispatch(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	pubsub.Init()

	var mu sync.Mutex
	dispatched := 0

	// The handler holds the alert well past the read block interval before
	// acking, the window in which a second read would double-dispatch.
	pubsub.SubscribeSequential("test", eventmodels.TradingViewAlertEventName, func(ev *eventmodels.TradingViewAlertEvent) {
		mu.Lock()
		dispatched++
		mu.Unlock()

		time.Sleep(300 * time.Millisecond)
		ev.Ack()
	})

	xaddAlert(t, rdb, 1700000000000, 1, "AAPL")

	cancel, wg := startStreamClient(t, rdb)
	defer func() {
		cancel()
		wg.Wait()
	}()

	require.Eventually(t, func() bool {
		n, err := rdb.XLen(context.Background(), testStreamKey).Result()
		return err == nil && n == 0
	}, 3*time.Second, 20*time.Millisecond, "entry was never acked off the stream")

	// grace period to catch a late duplicate dispatch
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, dispatched)
}

func TestRedisStreamClient_DrainsPastForeignEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	pubsub.Init()

	var mu sync.Mutex
	mineSeen := 0

	// Acks everything it is handed, the way the decoder does, counting only
	// the alerts addressed to this client.
	pubsub.SubscribeSequential("test", eventmodels.TradingViewAlertEventName, func(ev *eventmodels.TradingViewAlertEvent) {
		defer ev.Ack()

		if ev.Message.ClientID != nil && *ev.Message.ClientID == 1 {
			mu.Lock()
			mineSeen++
			mu.Unlock()
		}
	})

	// a misdirected entry sits ahead of this client's own alert
	xaddAlert(t, rdb, 1700000000000, 2, "MSFT")
	xaddAlert(t, rdb, 1700000000001, 1, "AAPL")

	cancel, wg := startStreamClient(t, rdb)
	defer func() {
		cancel()
		wg.Wait()
	}()

	require.Eventually(t, func() bool {
		n, err := rdb.XLen(context.Background(), testStreamKey).Result()
		return err == nil && n == 0
	}, 3*time.Second, 20*time.Millisecond, "stream never drained past the foreign entry")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, mineSeen)
}

func TestRedisStreamClient_DeletesInvalidEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	pubsub.Init()

	err := rdb.XAdd(context.Background(), &redis.XAddArgs{
		Stream: testStreamKey,
		Values: map[string]interface{}{AlertField: `{"ticker":`},
	}).Err()
	require.NoError(t, err)

	cancel, wg := startStreamClient(t, rdb)
	defer func() {
		cancel()
		wg.Wait()
	}()

	require.Eventually(t, func() bool {
		n, err := rdb.XLen(context.Background(), testStreamKey).Result()
		return err == nil && n == 0
	}, 3*time.Second, 20*time.Millisecond, "malformed entry was not deleted")
}
