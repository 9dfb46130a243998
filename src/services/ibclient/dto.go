package ibclient

import (
	"encoding/json"
)

type GatewayErrorDTO struct {
	Error string `json:"error"`
}

type AuthStatusDTO struct {
	Authenticated bool   `json:"authenticated"`
	Competing     bool   `json:"competing"`
	Connected     bool   `json:"connected"`
	Message       string `json:"message"`
}

type AccountDTO struct {
	ID          string `json:"accountId"`
	AccountVan  string `json:"accountVan"`
	DisplayName string `json:"displayName"`
	Currency    string `json:"currency"`
	Type        string `json:"type"`
}

// SummaryValueDTO is one line of the account summary ledger.
type SummaryValueDTO struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// LedgerDTO is one currency's balance slice of the account ledger.
type LedgerDTO struct {
	Currency       string  `json:"currency"`
	CashBalance    float64 `json:"cashbalance"`
	SettledCash    float64 `json:"settledcash"`
	NetLiquidation float64 `json:"netliquidationvalue"`
	UnrealizedPnl  float64 `json:"unrealizedpnl"`
}

type PositionDTO struct {
	ConID         int64   `json:"conid"`
	ContractDesc  string  `json:"contractDesc"`
	Position      float64 `json:"position"`
	MktPrice      float64 `json:"mktPrice"`
	MktValue      float64 `json:"mktValue"`
	AvgCost       float64 `json:"avgCost"`
	AvgPrice      float64 `json:"avgPrice"`
	UnrealizedPnl float64 `json:"unrealizedPnl"`
	RealizedPnl   float64 `json:"realizedPnl"`
	Currency      string  `json:"currency"`
	SecType       string  `json:"assetClass"`
	Ticker        string  `json:"ticker"`
}

type LiveOrderDTO struct {
	OrderID      int64       `json:"orderId"`
	ConID        int64       `json:"conid"`
	Ticker       string      `json:"ticker"`
	OrderRef     string      `json:"order_ref"`
	OrderType    string      `json:"orderType"`
	Side         string      `json:"side"`
	Status       string      `json:"status"`
	Price        json.Number `json:"price"`
	AuxPrice     json.Number `json:"auxPrice"`
	TotalSize    float64     `json:"totalSize"`
	FilledQty    float64     `json:"filledQuantity"`
	RemainingQty float64     `json:"remainingQuantity"`
	AvgPrice     json.Number `json:"avgPrice"`
	ParentID     int64       `json:"parentId"`
}

type LiveOrdersDTO struct {
	Orders []LiveOrderDTO `json:"orders"`
}

// OrderTicket is one order leg as submitted to the gateway. Bracket legs
// reference their parent through ParentID, which holds the parent's COID.
type OrderTicket struct {
	AcctID    string  `json:"acctId"`
	ConID     int64   `json:"conid"`
	COID      string  `json:"cOID,omitempty"`
	ParentID  string  `json:"parentId,omitempty"`
	OrderType string  `json:"orderType"`
	Side      string  `json:"side"`
	TIF       string  `json:"tif"`
	Quantity  float64 `json:"quantity,omitempty"`
	CashQty   float64 `json:"cashQty,omitempty"`
	Price     float64 `json:"price,omitempty"`
	AuxPrice  float64 `json:"auxPrice,omitempty"`
	Referrer  string  `json:"referrer,omitempty"`
}

// PlaceOrderReplyDTO is either a submitted order acknowledgement or a
// confirmation prompt the caller must answer through /iserver/reply.
type PlaceOrderReplyDTO struct {
	ID        string   `json:"id"`
	OrderID   string   `json:"order_id"`
	LocalID   string   `json:"local_order_id"`
	Status    string   `json:"order_status"`
	Message   []string `json:"message"`
	MessageID string   `json:"messageId"`
}

type ContractSearchResultDTO struct {
	ConID       int64                `json:"conid"`
	Symbol      string               `json:"symbol"`
	CompanyName string               `json:"companyName"`
	Description string               `json:"description"`
	SecType     string               `json:"secType"`
	Sections    []ContractSectionDTO `json:"sections"`
}

type ContractSectionDTO struct {
	SecType  string `json:"secType"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
	ConID    string `json:"conid"`
}

type ContractRulesDTO struct {
	Rules struct {
		Increments []PriceIncrementDTO `json:"incrementRules"`
	} `json:"rules"`
}

type PriceIncrementDTO struct {
	LowerEdge float64 `json:"lowerEdge"`
	Increment float64 `json:"increment"`
}

type PnlPartitionDTO struct {
	DailyPnl float64 `json:"dpl"`
	NetLiq   float64 `json:"nl"`
	UnrlPnl  float64 `json:"upl"`
}

type PnlDTO struct {
	Partitions map[string]PnlPartitionDTO `json:"upnl"`
}
