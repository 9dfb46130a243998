package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdk_trace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tradingboat/tbot/src/dbutils"
	"github.com/tradingboat/tbot/src/eventconsumers"
	"github.com/tradingboat/tbot/src/eventproducers"
	"github.com/tradingboat/tbot/src/eventpubsub"
	"github.com/tradingboat/tbot/src/logger"
	"github.com/tradingboat/tbot/src/services"
	"github.com/tradingboat/tbot/src/services/ibclient"
	"github.com/tradingboat/tbot/src/utils"
)

func main() {
	run()
}

// setupOTelSDK bootstraps the OpenTelemetry trace pipeline. If it does not
// return an error, call shutdown for proper cleanup.
func setupOTelSDK(ctx context.Context) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error

	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	prop := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(prop)

	traceExporter, err := otlptrace.New(ctx, otlptracehttp.NewClient())
	if err != nil {
		return nil, err
	}

	res, _ := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", "tbot")))

	tracerProvider := sdk_trace.NewTracerProvider(
		sdk_trace.WithBatcher(traceExporter),
		sdk_trace.WithResource(res),
	)

	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	return shutdown, nil
}

func run() {
	if err := utils.InitEnvironmentVariables(); err != nil {
		log.Panic(err)
	}

	settings := utils.NewSettings()

	if err := logger.Init(settings.LogLevel, settings.LogFile, settings.ClientID); err != nil {
		log.Panic(err)
	}

	log.Infof("Log level set to %v", log.GetLevel())

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	eventpubsub.Init()

	otelShutdown, err := setupOTelSDK(ctx)
	if err != nil {
		log.Warnf("telemetry disabled: %v", err)
		otelShutdown = func(context.Context) error { return nil }
	}

	// Database: honor the office/home handover before opening.
	dbPath, err := dbutils.ResolveDatabaseFile(settings.DBOffice, settings.DBHome)
	if err != nil {
		log.Fatalf("failed to resolve database file: %v", err)
	}

	db, err := dbutils.InitSQLite(dbPath)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	alertStore := dbutils.NewAlertStore(db)
	orderStore := dbutils.NewOrderStore(db)
	errorStore := dbutils.NewErrorStore(db)

	// Gateway client
	routing, err := ibclient.LoadRoutingTable(settings.RoutingConfig)
	if err != nil {
		log.Fatalf("failed to load routing config: %v", err)
	}

	ib := ibclient.NewClient(settings.IBGatewayAddr, settings.IBGatewayPort, settings.ClientID, routing)
	if err := ib.Connect(ctx); err != nil {
		// The watchdog keeps retrying; alerts arriving meanwhile will fail
		// their dispatch and be recorded.
		log.Errorf("initial gateway connect failed: %v", err)
	}

	ib.StartTickle(ctx, &wg)
	ib.StreamOrderFeed(ctx, &wg)

	placer := services.NewOrderPlacer(ib, orderStore)

	// Redis listeners
	rdb := eventproducers.NewRedisClient(settings)
	validator := eventproducers.NewAlertValidator(settings.ValidateTimestamps)

	// Start event clients
	eventconsumers.NewDecoderClient(&wg, placer, ib, alertStore, errorStore, settings.ClientID, settings.ProfilerEnabled).Start(ctx)
	eventconsumers.NewOrderStatusClient(&wg, ib, orderStore, settings.ClientID).Start(ctx)
	eventconsumers.NewPortfolioSyncClient(&wg, placer, 0).Start(ctx)
	eventconsumers.NewDiscordNotifierClient(&wg, settings.DiscordWebhookURL, errorStore).Start(ctx)
	eventconsumers.NewTelegramNotifierClient(&wg, settings.TelegramToken, settings.TelegramChatID).Start(ctx)
	eventconsumers.NewWatchdogClient(&wg, rdb, ib, settings.WatchdogInterval).Start(ctx)
	eventconsumers.NewPnLMonitorClient(&wg, ib, placer, settings.PnLThreshold).Start(ctx)

	if settings.UsesRedisStream {
		eventproducers.NewRedisStreamClient(&wg, rdb, settings.RedisStreamKey(), settings.RedisReadTimeout, validator).Start(ctx)
	} else {
		eventproducers.NewRedisPubSubClient(&wg, rdb, settings.RedisChannelKey(), validator).Start(ctx)
	}

	// Create channel for shutdown signals.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	signal.Notify(stop, syscall.SIGTERM)

	log.Info("Main: init complete")

	// Block here until program is shut down
	<-stop

	cancel()

	wg.Wait()

	if err := otelShutdown(context.Background()); err != nil {
		log.Warnf("telemetry shutdown: %v", err)
	}

	log.Info("Main: gracefully stopped!")
}
