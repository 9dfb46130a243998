package eventconsumers

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/tradingboat/tbot/src/dbutils"
	"github.com/tradingboat/tbot/src/eventmodels"
	pubsub "github.com/tradingboat/tbot/src/eventpubsub"
	"github.com/tradingboat/tbot/src/services/ibclient"
)

// OrderStatusClient bridges the gateway's order feed into the store and the
// event bus. Orders belonging to other clients on the same account are
// filtered by reference prefix.
type OrderStatusClient struct {
	wg       *sync.WaitGroup
	ib       *ibclient.Client
	orders   *dbutils.OrderStore
	clientID int
}

func NewOrderStatusClient(wg *sync.WaitGroup, ib *ibclient.Client, orders *dbutils.OrderStore, clientID int) *OrderStatusClient {
	return &OrderStatusClient{
		wg:       wg,
		ib:       ib,
		orders:   orders,
		clientID: clientID,
	}
}

func (c *OrderStatusClient) Start(ctx context.Context) {
	c.wg.Add(1)

	c.ib.Events.On(ibclient.OnOrderUpdate, func(payload ...interface{}) {
		if len(payload) == 0 {
			return
		}

		ev, ok := payload[0].(*eventmodels.OrderUpdateEvent)
		if !ok {
			return
		}

		c.orderUpdateHandler(ev)
	})

	c.ib.Events.On(ibclient.OnDisconnected, func(payload ...interface{}) {
		log.Warn("gateway connection lost")
	})

	go func() {
		defer c.wg.Done()
		<-ctx.Done()
		log.Info("stopping OrderStatusClient consumer")
		c.ib.Events.RemoveAllListeners(ibclient.OnOrderUpdate)
	}()
}

func (c *OrderStatusClient) orderUpdateHandler(ev *eventmodels.OrderUpdateEvent) {
	if ev.OrderRef != "" && !eventmodels.OwnsOrderRef(c.clientID, ev.OrderRef) {
		log.Debugf("ignoring order update for foreign ref %s", ev.OrderRef)
		return
	}

	log.Infof("OrderStatusClient <- order %d %s %s filled=%.4f", ev.OrderID, ev.Ticker, ev.Status, ev.Filled)

	if err := c.orders.UpdateStatus(ev); err != nil {
		log.Errorf("OrderStatusClient: %v", err)
	}

	pubsub.Publish("OrderStatusClient", eventmodels.OrderUpdateEventName, ev)
}
