package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tradingboat/tbot/src/dbutils"
	"github.com/tradingboat/tbot/src/eventproducers"
	"github.com/tradingboat/tbot/src/eventproducers/webhookapi"
	"github.com/tradingboat/tbot/src/logger"
	"github.com/tradingboat/tbot/src/utils"
)

var runCmd = &cobra.Command{
	Use:   "webhookserver",
	Short: "Receives TradingView webhook alerts and queues them in Redis",
	Run: func(cmd *cobra.Command, args []string) {
		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			log.Fatalf("error getting port: %v", err)
		}

		if err := run(port); err != nil {
			log.Fatal(err)
		}
	},
}

func run(port int) error {
	if err := utils.InitEnvironmentVariables(); err != nil {
		return err
	}

	settings := utils.NewSettings()
	if port > 0 {
		settings.HTTPPort = port
	}

	if err := logger.Init(settings.LogLevel, settings.LogFile, settings.ClientID); err != nil {
		return err
	}

	dbPath, err := dbutils.ResolveDatabaseFile(settings.DBOffice, settings.DBHome)
	if err != nil {
		return fmt.Errorf("run: resolve db: %w", err)
	}

	db, err := dbutils.InitSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("run: init db: %w", err)
	}

	rdb := eventproducers.NewRedisClient(settings)
	publisher := webhookapi.NewRedisPublisher(rdb, settings)
	api := webhookapi.NewServer(publisher, dbutils.NewAlertStore(db), settings.WebhookKey)

	router := mux.NewRouter()
	api.SetupHandler(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", settings.HTTPHost, settings.HTTPPort),
		Handler:      otelhttp.NewHandler(router, "webhookserver"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("run: shutdown: %w", err)
	}

	log.Info("webhookserver: gracefully stopped")
	return nil
}

func main() {
	runCmd.Flags().Int("port", 0, "Override TBOT_HTTP_PORT")

	if err := runCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
