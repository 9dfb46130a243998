package webhookapi

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/tradingboat/tbot/src/eventproducers"
	"github.com/tradingboat/tbot/src/utils"
)

// RedisPublisher forwards webhook bodies into Redis, choosing stream or
// pub/sub to match what the listeners consume.
type RedisPublisher struct {
	rdb      *redis.Client
	settings *utils.Settings
}

func NewRedisPublisher(rdb *redis.Client, settings *utils.Settings) *RedisPublisher {
	return &RedisPublisher{
		rdb:      rdb,
		settings: settings,
	}
}

func (p *RedisPublisher) PublishAlert(r *http.Request, raw []byte) error {
	ctx := r.Context()

	if p.settings.UsesRedisStream {
		id, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: p.settings.RedisStreamKey(),
			Values: map[string]interface{}{eventproducers.AlertField: string(raw)},
		}).Result()
		if err != nil {
			return fmt.Errorf("PublishAlert: XADD: %w", err)
		}

		log.Debugf("queued alert %s on %s", id, p.settings.RedisStreamKey())
		return nil
	}

	if err := p.rdb.Publish(ctx, p.settings.RedisChannelKey(), raw).Err(); err != nil {
		return fmt.Errorf("PublishAlert: PUBLISH: %w", err)
	}

	log.Debugf("published alert on %s", p.settings.RedisChannelKey())
	return nil
}
