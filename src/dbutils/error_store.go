package dbutils

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/tradingboat/tbot/src/eventmodels"
)

type ErrorStore struct {
	db *gorm.DB
}

func NewErrorStore(db *gorm.DB) *ErrorStore {
	return &ErrorStore{db: db}
}

func (s *ErrorStore) Insert(rec *eventmodels.ErrorRecord) error {
	if result := s.db.Create(rec); result.Error != nil {
		return fmt.Errorf("ErrorStore.Insert: %w", result.Error)
	}

	return nil
}

// Unreported returns error rows the notifiers have not yet delivered,
// oldest first.
func (s *ErrorStore) Unreported(limit int) ([]eventmodels.ErrorRecord, error) {
	var rows []eventmodels.ErrorRecord
	result := s.db.Where("reported = ?", false).Order("id asc").Limit(limit).Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("ErrorStore.Unreported: %w", result.Error)
	}

	return rows, nil
}

func (s *ErrorStore) MarkReported(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	result := s.db.Model(&eventmodels.ErrorRecord{}).
		Where("id IN ?", ids).
		Update("reported", true)
	if result.Error != nil {
		return fmt.Errorf("ErrorStore.MarkReported: %w", result.Error)
	}

	return nil
}

func (s *ErrorStore) Recent(n int) ([]eventmodels.ErrorRecord, error) {
	var rows []eventmodels.ErrorRecord
	result := s.db.Order("id desc").Limit(n).Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("ErrorStore.Recent: %w", result.Error)
	}

	return rows, nil
}
