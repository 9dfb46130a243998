package eventproducers

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/tradingboat/tbot/src/eventmodels"
	pubsub "github.com/tradingboat/tbot/src/eventpubsub"
)

// RedisPubSubClient is the fire-and-forget alternative to the stream
// listener. Messages missed while the bot is down are gone, which some
// operators prefer for stale-alert safety.
type RedisPubSubClient struct {
	wg        *sync.WaitGroup
	rdb       *redis.Client
	channel   string
	validator *AlertValidator
}

func NewRedisPubSubClient(wg *sync.WaitGroup, rdb *redis.Client, channel string, validator *AlertValidator) *RedisPubSubClient {
	return &RedisPubSubClient{
		wg:        wg,
		rdb:       rdb,
		channel:   channel,
		validator: validator,
	}
}

func (c *RedisPubSubClient) Start(ctx context.Context) {
	c.wg.Add(1)

	sub := c.rdb.Subscribe(ctx, c.channel)

	go func() {
		defer c.wg.Done()
		defer sub.Close()

		log.Infof("listening on redis channel %s", c.channel)

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				log.Info("stopping RedisPubSubClient producer")
				return
			case message, ok := <-ch:
				if !ok {
					log.Warn("RedisPubSubClient: subscription channel closed")
					return
				}
				c.handleMessage(message)
			}
		}
	}()
}

func (c *RedisPubSubClient) handleMessage(message *redis.Message) {
	msg, err := eventmodels.ParseTradingViewWebhookMessage([]byte(message.Payload))
	if err != nil {
		pubsub.PublishError("RedisPubSubClient", err)
		return
	}

	if err := c.validator.Validate(msg); err != nil {
		pubsub.PublishError("RedisPubSubClient", err)
		return
	}

	pubsub.Publish("RedisPubSubClient", eventmodels.TradingViewAlertEventName, &eventmodels.TradingViewAlertEvent{
		Message:    msg,
		ReceivedAt: time.Now().UTC(),
		Ack:        func() {},
	})
}
