package eventmodels

import (
	"time"
)

// AlertRecord is one received webhook alert as persisted for audit.
type AlertRecord struct {
	ID        uint      `gorm:"primaryKey" csv:"-"`
	CreatedAt time.Time `gorm:"column:timestamp" csv:"timestamp"`
	UniqueKey string    `gorm:"column:uniquekey;index" csv:"uniquekey"`
	Ticker    string    `gorm:"column:ticker" csv:"ticker"`
	Timeframe string    `gorm:"column:timeframe" csv:"timeframe"`
	Direction string    `gorm:"column:direction" csv:"direction"`
	Contract  string    `gorm:"column:contract" csv:"contract"`
	Qty       float64   `gorm:"column:qty" csv:"qty"`
	Price     float64   `gorm:"column:price" csv:"price"`
	OrderRef  string    `gorm:"column:orderref" csv:"orderref"`
	Payload   string    `gorm:"column:payload" csv:"-"`
}

func (AlertRecord) TableName() string {
	return "tbot_alerts"
}

// OrderRecord tracks one broker order leg, or a portfolio snapshot row when
// OrderStatus is "Portfolio".
type OrderRecord struct {
	ID           uint      `gorm:"primaryKey" csv:"-"`
	CreatedAt    time.Time `gorm:"column:timestamp" csv:"timestamp"`
	UniqueKey    string    `gorm:"column:uniquekey;index" csv:"uniquekey"`
	TVPrice      float64   `gorm:"column:tv_price" csv:"tv_price"`
	OrderID      int64     `gorm:"column:orderid;index" csv:"orderid"`
	ParentID     int64     `gorm:"column:parentid" csv:"parentid"`
	Ticker       string    `gorm:"column:ticker;index:idx_orders_ticker_ref" csv:"ticker"`
	Action       string    `gorm:"column:action" csv:"action"`
	OrderType    string    `gorm:"column:ordertype" csv:"ordertype"`
	Qty          float64   `gorm:"column:qty" csv:"qty"`
	LmtPrice     float64   `gorm:"column:lmtprice" csv:"lmtprice"`
	AuxPrice     float64   `gorm:"column:auxprice" csv:"auxprice"`
	AvgFillPrice float64   `gorm:"column:avgfillprice" csv:"avgfillprice"`
	OrderStatus  string    `gorm:"column:orderstatus;index" csv:"orderstatus"`
	OrderRef     string    `gorm:"column:orderref;index:idx_orders_ticker_ref" csv:"orderref"`
	Position     float64   `gorm:"column:position" csv:"position"`
	MrkValue     float64   `gorm:"column:mrkvalue" csv:"mrkvalue"`
	AvgPrice     float64   `gorm:"column:avgprice" csv:"avgprice"`
	UnrealizedPn float64   `gorm:"column:unrealizedpnl" csv:"unrealizedpnl"`
	RealizedPn   float64   `gorm:"column:realizedpnl" csv:"realizedpnl"`
}

func (OrderRecord) TableName() string {
	return "tbot_orders"
}

// ErrorRecord notes the disposition of an alert that did not submit cleanly.
type ErrorRecord struct {
	ID         uint      `gorm:"primaryKey" csv:"-"`
	CreatedAt  time.Time `gorm:"column:timestamp" csv:"timestamp"`
	UniqueKey  string    `gorm:"column:uniquekey;index" csv:"uniquekey"`
	Ticker     string    `gorm:"column:ticker" csv:"ticker"`
	OrderRef   string    `gorm:"column:orderref" csv:"orderref"`
	ErrorState string    `gorm:"column:errorstate" csv:"errorstate"`
	Message    string    `gorm:"column:message" csv:"message"`
	Reported   bool      `gorm:"column:reported;index" csv:"reported"`
}

func (ErrorRecord) TableName() string {
	return "tbot_errors"
}
