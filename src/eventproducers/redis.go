package eventproducers

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tradingboat/tbot/src/utils"
)

// AlertField is the hash field carrying the webhook JSON inside each stream
// entry. The webhook receiver and the listeners must agree on it.
const AlertField = "tradingboat"

// NewRedisClient connects over the unix socket when one is configured,
// otherwise TCP.
func NewRedisClient(settings *utils.Settings) *redis.Client {
	opts := &redis.Options{
		Password: settings.RedisPassword,
	}

	if settings.RedisUnixSocket != "" {
		opts.Network = "unix"
		opts.Addr = settings.RedisUnixSocket
	} else {
		opts.Addr = fmt.Sprintf("%s:%d", settings.RedisHost, settings.RedisPort)
	}

	return redis.NewClient(opts)
}
