package eventconsumers

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// WatchdogClient pings Redis and the gateway on an interval, reconnecting
// the gateway when its session has dropped.
type WatchdogClient struct {
	wg       *sync.WaitGroup
	rdb      *redis.Client
	gateway  GatewayConn
	interval time.Duration
}

func NewWatchdogClient(wg *sync.WaitGroup, rdb *redis.Client, gateway GatewayConn, interval time.Duration) *WatchdogClient {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &WatchdogClient{
		wg:       wg,
		rdb:      rdb,
		gateway:  gateway,
		interval: interval,
	}
}

func (c *WatchdogClient) Start(ctx context.Context) {
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("stopping WatchdogClient consumer")
				return
			case <-ticker.C:
				c.check(ctx)
			}
		}
	}()
}

func (c *WatchdogClient) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := c.rdb.Ping(pingCtx).Err(); err != nil {
		log.Errorf("WatchdogClient: redis ping failed: %v", err)
	} else {
		log.Debug("WatchdogClient: redis ping ok")
	}

	if !c.gateway.IsConnected() {
		log.Warn("WatchdogClient: gateway disconnected, reconnecting")
		if err := c.gateway.Connect(pingCtx); err != nil {
			log.Errorf("WatchdogClient: gateway reconnect failed: %v", err)
		}
	}
}
