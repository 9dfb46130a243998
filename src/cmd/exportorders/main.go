package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tradingboat/tbot/src/dbutils"
	"github.com/tradingboat/tbot/src/eventmodels"
	"github.com/tradingboat/tbot/src/utils"
)

var runCmd = &cobra.Command{
	Use:   "exportorders",
	Short: "Exports the order and error tables to csv",
	Run: func(cmd *cobra.Command, args []string) {
		outDir, err := cmd.Flags().GetString("outDir")
		if err != nil {
			log.Fatalf("error getting outDir: %v", err)
		}

		display, err := cmd.Flags().GetBool("print")
		if err != nil {
			log.Fatalf("error getting print: %v", err)
		}

		if err := run(outDir, display); err != nil {
			log.Fatal(err)
		}
	},
}

func run(outDir string, display bool) error {
	if err := utils.InitEnvironmentVariables(); err != nil {
		return err
	}

	settings := utils.NewSettings()

	dbPath, err := dbutils.ResolveDatabaseFile(settings.DBOffice, settings.DBHome)
	if err != nil {
		return fmt.Errorf("run: resolve db: %w", err)
	}

	db, err := dbutils.InitSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("run: init db: %w", err)
	}

	orders, err := dbutils.NewOrderStore(db).All()
	if err != nil {
		return fmt.Errorf("run: fetch orders: %w", err)
	}

	errRows, err := dbutils.NewErrorStore(db).Recent(dbutils.RetentionRows)
	if err != nil {
		return fmt.Errorf("run: fetch errors: %w", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("run: mkdir: %w", err)
	}

	ordersFile, err := os.Create(filepath.Join(outDir, "orders.csv"))
	if err != nil {
		return fmt.Errorf("run: create orders.csv: %w", err)
	}
	defer ordersFile.Close()

	if err := gocsv.MarshalFile(&orders, ordersFile); err != nil {
		return fmt.Errorf("run: write orders.csv: %w", err)
	}

	errorsFile, err := os.Create(filepath.Join(outDir, "errors.csv"))
	if err != nil {
		return fmt.Errorf("run: create errors.csv: %w", err)
	}
	defer errorsFile.Close()

	if err := gocsv.MarshalFile(&errRows, errorsFile); err != nil {
		return fmt.Errorf("run: write errors.csv: %w", err)
	}

	log.Infof("exported %d orders and %d errors to %s", len(orders), len(errRows), outDir)

	if display {
		rows := make([]eventmodels.OrderRecord, 0, len(orders))
		for _, o := range orders {
			rows = append(rows, *o)
		}

		dbutils.RenderOrders(os.Stdout, rows)
		dbutils.RenderErrors(os.Stdout, errRows)
	}

	return nil
}

func main() {
	runCmd.Flags().String("outDir", "export", "Directory to write csv files to")
	runCmd.Flags().Bool("print", false, "Also print the order table to stdout")

	if err := runCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
