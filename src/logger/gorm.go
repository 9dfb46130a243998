package logger

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// slowQueryThreshold flags store operations that hold up the decoder; the
// alert path blocks on sqlite writes.
const slowQueryThreshold = 200 * time.Millisecond

// LogrusLogger routes gorm's SQL trace output through the process logger so
// store activity shows up next to the event log instead of on stdout.
type LogrusLogger struct {
	logger *logrus.Logger
}

func NewLogrusLogger() *LogrusLogger {
	return &LogrusLogger{
		logger: logrus.StandardLogger(),
	}
}

func (l *LogrusLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	return &clone
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Infof(msg, data...)
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Warnf(msg, data...)
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.logger.WithContext(ctx).Errorf(msg, data...)
}

func (l *LogrusLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	// Record-not-found is an ordinary outcome for the store lookups
	// (duplicate checks, position lookups), not an error worth logging.
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		sql, rows := fc()
		l.fields(ctx, elapsed, rows, sql).Error(err)
		return
	}

	if elapsed >= slowQueryThreshold {
		sql, rows := fc()
		l.fields(ctx, elapsed, rows, sql).Warnf("slow query >= %v", slowQueryThreshold)
		return
	}

	if l.logger.IsLevelEnabled(logrus.DebugLevel) {
		sql, rows := fc()
		l.fields(ctx, elapsed, rows, sql).Debug("SQL")
	}
}

func (l *LogrusLogger) fields(ctx context.Context, elapsed time.Duration, rows int64, sql string) *logrus.Entry {
	return l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"elapsed": elapsed,
		"rows":    rows,
		"sql":     sql,
	})
}
