package eventconsumers

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// PortfolioRefresher is implemented by the order placer.
type PortfolioRefresher interface {
	RefreshPortfolio(ctx context.Context) error
}

// PortfolioSyncClient periodically snapshots broker positions into the
// order store so close alerts can size themselves without a gateway round
// trip on the hot path.
type PortfolioSyncClient struct {
	wg       *sync.WaitGroup
	placer   PortfolioRefresher
	interval time.Duration
}

func NewPortfolioSyncClient(wg *sync.WaitGroup, placer PortfolioRefresher, interval time.Duration) *PortfolioSyncClient {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &PortfolioSyncClient{
		wg:       wg,
		placer:   placer,
		interval: interval,
	}
}

func (c *PortfolioSyncClient) Start(ctx context.Context) {
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("stopping PortfolioSyncClient consumer")
				return
			case <-ticker.C:
				refreshCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
				if err := c.placer.RefreshPortfolio(refreshCtx); err != nil {
					log.Warnf("PortfolioSyncClient: %v", err)
				}
				cancel()
			}
		}
	}()
}
