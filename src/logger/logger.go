package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otellogrus"
)

// Init configures the process-wide logrus logger. Output always goes to
// stderr; when logFile is non-empty it is mirrored there as well. Every entry
// carries the gateway client id so interleaved logs from multiple bots stay
// attributable.
func Init(level string, logFile string, clientID int) error {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("unrecognized log level %q: %w", level, err)
	}

	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}

		log.SetOutput(io.MultiWriter(os.Stderr, f))
	} else {
		log.SetOutput(os.Stderr)
	}

	log.AddHook(otellogrus.NewHook(otellogrus.WithLevels(
		log.PanicLevel,
		log.FatalLevel,
		log.ErrorLevel,
		log.WarnLevel,
	)))

	log.AddHook(&clientIDHook{clientID: clientID})

	return nil
}

type clientIDHook struct {
	clientID int
}

func (h *clientIDHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *clientIDHook) Fire(entry *log.Entry) error {
	entry.Data["clientId"] = h.clientID
	return nil
}
