package eventconsumers

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tradingboat/tbot/src/services/ibclient"
)

// PositionFlattener is implemented by the order placer.
type PositionFlattener interface {
	FlattenAll(ctx context.Context) error
}

// PnLMonitorClient polls the account's daily PnL and, when the configured
// loss threshold is breached, cancels every working order and flattens all
// positions. The kill switch fires at most once per trading day.
type PnLMonitorClient struct {
	wg        *sync.WaitGroup
	ib        *ibclient.Client
	placer    PositionFlattener
	threshold float64

	trippedOn string
}

func NewPnLMonitorClient(wg *sync.WaitGroup, ib *ibclient.Client, placer PositionFlattener, threshold float64) *PnLMonitorClient {
	return &PnLMonitorClient{
		wg:        wg,
		ib:        ib,
		placer:    placer,
		threshold: threshold,
	}
}

func (c *PnLMonitorClient) Start(ctx context.Context) {
	if c.threshold >= 0 {
		log.Info("pnl monitor disabled: no negative threshold configured")
		return
	}

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()

		log.Infof("pnl monitor armed at %.2f", c.threshold)

		for {
			select {
			case <-ctx.Done():
				log.Info("stopping PnLMonitorClient consumer")
				return
			case <-ticker.C:
				c.poll(ctx)
			}
		}
	}()
}

func (c *PnLMonitorClient) poll(ctx context.Context) {
	if !c.ib.IsConnected() {
		return
	}

	pollCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	pnl, err := c.ib.DailyPnL(pollCtx)
	if err != nil {
		log.Warnf("PnLMonitorClient: %v", err)
		return
	}

	today := time.Now().UTC().Format("2006-01-02")
	if c.trippedOn == today {
		return
	}

	if pnl.DailyPnl > c.threshold {
		log.Debugf("PnLMonitorClient: daily pnl %.2f above threshold %.2f", pnl.DailyPnl, c.threshold)
		return
	}

	log.Errorf("daily loss limit hit: pnl %.2f <= threshold %.2f, flattening account", pnl.DailyPnl, c.threshold)
	c.trippedOn = today

	if err := c.placer.FlattenAll(pollCtx); err != nil {
		log.Errorf("PnLMonitorClient: flatten failed: %v", err)
	}
}
