package dbutils

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tradingboat/tbot/src/eventmodels"
)

// RetentionRows caps the orders table; the oldest rows beyond it are
// trimmed after each insert.
const RetentionRows = 3600

// PortfolioTTL is how long a portfolio snapshot row stays valid before the
// stale purge removes it.
const PortfolioTTL = 4 * time.Hour

func portfolioKey(ticker string) string {
	return "Ptf_" + ticker
}

type OrderStore struct {
	db *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Insert(rec *eventmodels.OrderRecord) error {
	if result := s.db.Create(rec); result.Error != nil {
		return fmt.Errorf("OrderStore.Insert: %w", result.Error)
	}

	if err := s.trim(); err != nil {
		log.Warnf("OrderStore.Insert: trim failed: %v", err)
	}

	return nil
}

// trim enforces the retention cap by dropping the oldest non-portfolio rows.
func (s *OrderStore) trim() error {
	var count int64
	if result := s.db.Model(&eventmodels.OrderRecord{}).Count(&count); result.Error != nil {
		return result.Error
	}

	if count <= RetentionRows {
		return nil
	}

	result := s.db.
		Where("orderstatus <> ?", string(eventmodels.OrderStatusPortfolio)).
		Order("id asc").
		Limit(int(count - RetentionRows)).
		Delete(&eventmodels.OrderRecord{})

	return result.Error
}

// Exists reports whether an order row was already written for the same alert
// bar and reference, which marks a duplicate delivery.
func (s *OrderStore) Exists(uniqueKey string, ticker string, orderRef string) (bool, error) {
	var count int64
	result := s.db.Model(&eventmodels.OrderRecord{}).
		Where("uniquekey = ? AND ticker = ? AND orderref = ?", uniqueKey, ticker, orderRef).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("OrderStore.Exists: %w", result.Error)
	}

	return count > 0, nil
}

func (s *OrderStore) FindByOrderID(orderID int64) (*eventmodels.OrderRecord, error) {
	var row eventmodels.OrderRecord
	result := s.db.Where("orderid = ?", orderID).Order("id desc").First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("OrderStore.FindByOrderID: %w", result.Error)
	}

	return &row, nil
}

// FindActive returns the most recent order in an active state matching the
// ticker, reference and action.
func (s *OrderStore) FindActive(ticker, orderRef string, action eventmodels.Action) (*eventmodels.OrderRecord, error) {
	var row eventmodels.OrderRecord
	result := s.db.
		Where("ticker = ? AND orderref = ? AND action = ?", ticker, orderRef, string(action)).
		Where("orderstatus IN ?", activeStatuses()).
		Order("id desc").
		First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("OrderStore.FindActive: %w", result.Error)
	}

	return &row, nil
}

// FindActiveByType narrows FindActive to a specific broker order type, used
// when an exit alert updates one leg of a bracket.
func (s *OrderStore) FindActiveByType(ticker, orderRef, orderType string) (*eventmodels.OrderRecord, error) {
	var row eventmodels.OrderRecord
	result := s.db.
		Where("ticker = ? AND orderref = ? AND ordertype = ?", ticker, orderRef, orderType).
		Where("orderstatus IN ?", activeStatuses()).
		Order("id desc").
		First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("OrderStore.FindActiveByType: %w", result.Error)
	}

	return &row, nil
}

// FilledQty sums the signed quantity of the newest lookback filled orders
// for the reference. SELL fills count negative, so the sum is the net
// position those fills produced.
func (s *OrderStore) FilledQty(ticker, orderRef string, lookback int) (float64, error) {
	var rows []eventmodels.OrderRecord
	result := s.db.
		Where("ticker = ? AND orderref = ? AND orderstatus = ?", ticker, orderRef, string(eventmodels.OrderStatusFilled)).
		Order("id desc").
		Limit(lookback).
		Find(&rows)
	if result.Error != nil {
		return 0, fmt.Errorf("OrderStore.FilledQty: %w", result.Error)
	}

	var qty float64
	for _, row := range rows {
		if row.Action == string(eventmodels.ActionSell) {
			qty -= row.Qty
		} else {
			qty += row.Qty
		}
	}

	return qty, nil
}

// UpdateStatus applies an order feed update to the newest row for the order
// id. Unknown order ids are ignored so a shared account does not pollute
// this bot's records.
func (s *OrderStore) UpdateStatus(ev *eventmodels.OrderUpdateEvent) error {
	row, err := s.FindByOrderID(ev.OrderID)
	if err != nil {
		return err
	}
	if row == nil {
		return nil
	}

	updates := map[string]interface{}{
		"orderstatus": string(ev.Status),
	}
	if ev.AvgFillPrice > 0 {
		updates["avgfillprice"] = ev.AvgFillPrice
	}

	result := s.db.Model(&eventmodels.OrderRecord{}).Where("id = ?", row.ID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("OrderStore.UpdateStatus: %w", result.Error)
	}

	return nil
}

// UpdatePrices rewrites the price fields of one row after an in-place order
// modification.
func (s *OrderStore) UpdatePrices(id uint, lmtPrice, auxPrice float64) error {
	updates := map[string]interface{}{}
	if lmtPrice > 0 {
		updates["lmtprice"] = lmtPrice
	}
	if auxPrice > 0 {
		updates["auxprice"] = auxPrice
	}
	if len(updates) == 0 {
		return nil
	}

	result := s.db.Model(&eventmodels.OrderRecord{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("OrderStore.UpdatePrices: %w", result.Error)
	}

	return nil
}

// MarkCancelled flips every active row matching the key to Cancelled and
// returns how many rows changed.
func (s *OrderStore) MarkCancelled(ticker, orderRef string, action eventmodels.Action) (int64, error) {
	query := s.db.Model(&eventmodels.OrderRecord{}).
		Where("ticker = ? AND orderref = ?", ticker, orderRef).
		Where("orderstatus IN ?", activeStatuses())
	if action != eventmodels.ActionUnknown {
		query = query.Where("action = ?", string(action))
	}

	result := query.Update("orderstatus", string(eventmodels.OrderStatusCancelled))
	if result.Error != nil {
		return 0, fmt.Errorf("OrderStore.MarkCancelled: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// UpsertPortfolio refreshes the synthetic snapshot row for a broker
// position.
func (s *OrderStore) UpsertPortfolio(ticker string, position, mrkValue, avgPrice, unrealized, realized float64) error {
	key := portfolioKey(ticker)

	updates := map[string]interface{}{
		"timestamp":     time.Now().UTC(),
		"position":      position,
		"mrkvalue":      mrkValue,
		"avgprice":      avgPrice,
		"unrealizedpnl": unrealized,
		"realizedpnl":   realized,
	}

	result := s.db.Model(&eventmodels.OrderRecord{}).
		Where("uniquekey = ? AND orderstatus = ?", key, string(eventmodels.OrderStatusPortfolio)).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("OrderStore.UpsertPortfolio: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		return nil
	}

	rec := &eventmodels.OrderRecord{
		CreatedAt:    time.Now().UTC(),
		UniqueKey:    key,
		Ticker:       ticker,
		OrderStatus:  string(eventmodels.OrderStatusPortfolio),
		Position:     position,
		MrkValue:     mrkValue,
		AvgPrice:     avgPrice,
		UnrealizedPn: unrealized,
		RealizedPn:   realized,
	}

	if result := s.db.Create(rec); result.Error != nil {
		return fmt.Errorf("OrderStore.UpsertPortfolio: %w", result.Error)
	}

	return nil
}

// PositionSize reads the snapshot position for a ticker. Zero means no
// snapshot or a flat position.
func (s *OrderStore) PositionSize(ticker string) (float64, error) {
	var row eventmodels.OrderRecord
	result := s.db.
		Where("uniquekey = ? AND orderstatus = ?", portfolioKey(ticker), string(eventmodels.OrderStatusPortfolio)).
		Order("id desc").
		First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("OrderStore.PositionSize: %w", result.Error)
	}

	return row.Position, nil
}

// PurgeStalePortfolio drops snapshot rows the gateway has not refreshed
// within the TTL.
func (s *OrderStore) PurgeStalePortfolio() (int64, error) {
	cutoff := time.Now().UTC().Add(-PortfolioTTL)
	result := s.db.
		Where("orderstatus = ? AND timestamp < ?", string(eventmodels.OrderStatusPortfolio), cutoff).
		Delete(&eventmodels.OrderRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("OrderStore.PurgeStalePortfolio: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// Recent returns the newest n rows, newest first.
func (s *OrderStore) Recent(n int) ([]eventmodels.OrderRecord, error) {
	var rows []eventmodels.OrderRecord
	result := s.db.Order("id desc").Limit(n).Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("OrderStore.Recent: %w", result.Error)
	}

	return rows, nil
}

// All returns every row in insertion order, for export.
func (s *OrderStore) All() ([]*eventmodels.OrderRecord, error) {
	var rows []*eventmodels.OrderRecord
	result := s.db.Order("id asc").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("OrderStore.All: %w", result.Error)
	}

	return rows, nil
}

func activeStatuses() []string {
	return []string{
		string(eventmodels.OrderStatusPendingSubmit),
		string(eventmodels.OrderStatusPreSubmitted),
		string(eventmodels.OrderStatusSubmitted),
	}
}
