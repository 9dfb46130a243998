package dbutils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradingboat/tbot/src/eventmodels"
	"github.com/tradingboat/tbot/src/logger"
)

func InitSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.NewLogrusLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&eventmodels.AlertRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := db.AutoMigrate(&eventmodels.OrderRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := db.AutoMigrate(&eventmodels.ErrorRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// ResolveDatabaseFile implements the office/home handover: when an office
// copy of the database exists it is moved to the home path on startup, so
// the bot can follow its operator between machines via a synced directory.
func ResolveDatabaseFile(officePath, homePath string) (string, error) {
	if officePath == "" || officePath == homePath {
		return homePath, nil
	}

	if _, err := os.Stat(officePath); err != nil {
		return homePath, nil
	}

	if err := moveFile(officePath, homePath); err != nil {
		return "", fmt.Errorf("failed to move database %s -> %s: %w", officePath, homePath, err)
	}

	log.Infof("moved database file %s -> %s", officePath, homePath)
	return homePath, nil
}

// moveFile copies then removes, because the two paths are commonly on
// different filesystems where rename(2) fails.
func moveFile(src, dst string) error {
	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	if err := out.Close(); err != nil {
		return err
	}

	return os.Remove(src)
}
