package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const DEFAULT_ENV_DIR = "/home/tbot"
const ENV_FILENAME = ".env"

// InitEnvironmentVariables loads the dotenv file from the user's home
// directory, falling back to /home/tbot/.env. Variables already present in
// the process environment take precedence over file values.
func InitEnvironmentVariables() error {
	home, err := os.UserHomeDir()
	if err != nil {
		home = DEFAULT_ENV_DIR
	}

	envFile := filepath.Join(home, ENV_FILENAME)
	if _, statErr := os.Stat(envFile); statErr != nil {
		envFile = filepath.Join(DEFAULT_ENV_DIR, ENV_FILENAME)
	}

	if err := godotenv.Load(envFile); err != nil {
		log.Warnf("no dotenv file loaded (%v): relying on process environment", err)
		return nil
	}

	log.Infof("loaded environment from %s", envFile)
	return nil
}

// Settings is the resolved TBOT_* environment. Every field has a default so
// the process can start with an empty environment and a local gateway.
type Settings struct {
	LogLevel string
	LogFile  string

	HTTPHost          string
	HTTPPort          int
	WebhookKey        string
	UserAgentRequired string

	RedisHost        string
	RedisPort        int
	RedisPassword    string
	RedisUnixSocket  string
	UsesRedisStream  bool
	RedisReadTimeout time.Duration

	IBGatewayAddr string
	IBGatewayPort int
	ClientID      int

	DBOffice string
	DBHome   string

	DiscordWebhookURL string
	TelegramToken     string
	TelegramChatID    string

	ValidateTimestamps bool
	WatchdogInterval   time.Duration
	ProfilerEnabled    bool

	PnLThreshold  float64
	RoutingConfig string
}

func NewSettings() *Settings {
	return &Settings{
		LogLevel: GetEnv("TBOT_LOGLEVEL", "INFO"),
		LogFile:  GetEnv("TBOT_LOGFILE", ""),

		HTTPHost:          GetEnv("TBOT_HTTP_HOST", "0.0.0.0"),
		HTTPPort:          GetEnvInt("TBOT_HTTP_PORT", 5000),
		WebhookKey:        GetEnv("TVWB_UNIQUE_KEY", "WebhookReceived"),
		UserAgentRequired: GetEnv("TBOT_HTTP_USER_AGENT", ""),

		RedisHost:        GetEnv("TBOT_REDIS_HOST", "127.0.0.1"),
		RedisPort:        GetEnvInt("TBOT_REDIS_PORT", 6379),
		RedisPassword:    GetEnv("TBOT_REDIS_PASSWORD", ""),
		RedisUnixSocket:  GetEnv("TBOT_REDIS_UNIXDOMAIN_SOCK", ""),
		UsesRedisStream:  GetEnvBool("TBOT_USES_REDIS_STREAM", true),
		RedisReadTimeout: time.Duration(GetEnvInt("TBOT_REDIS_READ_TIMEOUT_MS", 40)) * time.Millisecond,

		IBGatewayAddr: GetEnv("TBOT_IBKR_IPADDR", "127.0.0.1"),
		IBGatewayPort: GetEnvInt("TBOT_IBKR_PORT", 4002),
		ClientID:      GetEnvInt("TBOT_IBKR_CLIENTID", 1),

		DBOffice: GetEnv("TBOT_DB_OFFICE", ""),
		DBHome:   GetEnv("TBOT_DB_HOME", filepath.Join(os.TempDir(), "tbot_sqlite3")),

		DiscordWebhookURL: GetEnv("TBOT_DISCORD_WEBHOOK", ""),
		TelegramToken:     GetEnv("TBOT_TELEGRAM_TOKEN", ""),
		TelegramChatID:    GetEnv("TBOT_TELEGRAM_CHAT_ID", ""),

		ValidateTimestamps: GetEnvBool("TBOT_VALIDATE_TIMESTAMPS", false),
		WatchdogInterval:   time.Duration(GetEnvInt64("TBOT_WATCHDOG_USEC", 300_000_000)) * time.Microsecond,
		ProfilerEnabled:    GetEnvBool("TBOT_PROFILER", false),

		PnLThreshold:  GetEnvFloat("TBOT_PNL_THRESHOLD", 0),
		RoutingConfig: GetEnv("TBOT_ROUTING_CONFIG", ""),
	}
}

// RedisStreamKey returns the stream consumed for alerts, suffixed with the
// gateway client id so multiple bots can share one Redis instance.
func (s *Settings) RedisStreamKey() string {
	return fmt.Sprintf("REDIS_SKEY_%d", s.ClientID)
}

// RedisChannelKey returns the pub/sub channel used when streams are disabled.
func (s *Settings) RedisChannelKey() string {
	return fmt.Sprintf("REDIS_CH_%d", s.ClientID)
}

func GetEnv(name string, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func GetEnvInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("invalid integer for %s: %q, using %d", name, v, fallback)
		return fallback
	}

	return n
}

func GetEnvInt64(name string, fallback int64) int64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Warnf("invalid integer for %s: %q, using %d", name, v, fallback)
		return fallback
	}

	return n
}

func GetEnvFloat(name string, fallback float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warnf("invalid float for %s: %q, using %v", name, v, fallback)
		return fallback
	}

	return f
}

func GetEnvBool(name string, fallback bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}

	b, err := ParseBool(v)
	if err != nil {
		log.Warnf("invalid boolean for %s: %q, using %v", name, v, fallback)
		return fallback
	}

	return b
}
