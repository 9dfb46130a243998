package dbutils

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/tradingboat/tbot/src/eventmodels"
)

type AlertStore struct {
	db *gorm.DB
}

func NewAlertStore(db *gorm.DB) *AlertStore {
	return &AlertStore{db: db}
}

func (s *AlertStore) Insert(rec *eventmodels.AlertRecord) error {
	if result := s.db.Create(rec); result.Error != nil {
		return fmt.Errorf("AlertStore.Insert: %w", result.Error)
	}

	return nil
}

// Recent returns the newest n alerts, newest first.
func (s *AlertStore) Recent(n int) ([]eventmodels.AlertRecord, error) {
	var rows []eventmodels.AlertRecord
	result := s.db.Order("id desc").Limit(n).Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("AlertStore.Recent: %w", result.Error)
	}

	return rows, nil
}

func (s *AlertStore) FindByUniqueKey(uniqueKey string) (*eventmodels.AlertRecord, error) {
	var row eventmodels.AlertRecord
	result := s.db.Where("uniquekey = ?", uniqueKey).Order("id desc").First(&row)
	if result.Error != nil {
		return nil, fmt.Errorf("AlertStore.FindByUniqueKey: %w", result.Error)
	}

	return &row, nil
}
