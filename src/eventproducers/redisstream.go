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

// RedisStreamClient pulls webhook alerts off a Redis stream one at a time
// and publishes them for the decoder. Entries are deleted only after the
// decoder acks, so an alert in flight during a crash is re-read on restart.
type RedisStreamClient struct {
	wg        *sync.WaitGroup
	rdb       *redis.Client
	streamKey string
	blockFor  time.Duration
	validator *AlertValidator
}

func NewRedisStreamClient(wg *sync.WaitGroup, rdb *redis.Client, streamKey string, blockFor time.Duration, validator *AlertValidator) *RedisStreamClient {
	return &RedisStreamClient{
		wg:        wg,
		rdb:       rdb,
		streamKey: streamKey,
		blockFor:  blockFor,
		validator: validator,
	}
}

func (c *RedisStreamClient) Start(ctx context.Context) {
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		log.Infof("listening on redis stream %s", c.streamKey)

		for {
			select {
			case <-ctx.Done():
				log.Info("stopping RedisStreamClient producer")
				return
			default:
			}

			streams, err := c.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{c.streamKey, "0"},
				Count:   1,
				Block:   c.blockFor,
			}).Result()
			if err != nil {
				if err == redis.Nil || ctx.Err() != nil {
					continue
				}

				log.Errorf("RedisStreamClient: XREAD: %v", err)
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
				continue
			}

			for _, stream := range streams {
				for _, message := range stream.Messages {
					c.handleMessage(ctx, message)
				}
			}
		}
	}()
}

func (c *RedisStreamClient) handleMessage(ctx context.Context, message redis.XMessage) {
	raw, ok := message.Values[AlertField].(string)
	if !ok {
		log.Warnf("RedisStreamClient: entry %s has no %q field", message.ID, AlertField)
		c.deleteEntry(message.ID)
		return
	}

	msg, err := eventmodels.ParseTradingViewWebhookMessage([]byte(raw))
	if err != nil {
		pubsub.PublishError("RedisStreamClient", err)
		c.deleteEntry(message.ID)
		return
	}

	if err := c.validator.Validate(msg); err != nil {
		pubsub.PublishError("RedisStreamClient", err)
		c.deleteEntry(message.ID)
		return
	}

	entryID := message.ID
	acked := make(chan struct{})
	var once sync.Once

	pubsub.Publish("RedisStreamClient", eventmodels.TradingViewAlertEventName, &eventmodels.TradingViewAlertEvent{
		StreamID:   entryID,
		Message:    msg,
		ReceivedAt: time.Now().UTC(),
		Ack: func() {
			once.Do(func() {
				c.deleteEntry(entryID)
				close(acked)
			})
		},
	})

	// Hold the read loop until the decoder acks; reading from "0" again
	// while the entry is still on the stream would dispatch it twice. An
	// alert in flight during shutdown stays put and is redelivered on
	// restart.
	select {
	case <-acked:
	case <-ctx.Done():
	}
}

func (c *RedisStreamClient) deleteEntry(id string) {
	// Deletion happens after ctx may already be cancelled; use a fresh
	// context so shutdown does not leave acked entries behind.
	deleteCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.rdb.XDel(deleteCtx, c.streamKey, id).Err(); err != nil {
		log.Errorf("RedisStreamClient: XDEL %s: %v", id, err)
	}
}
