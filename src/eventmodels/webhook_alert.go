package eventmodels

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Metric carries one named number from a chart alert. The strategy scripts
// only emit the six names the decoder understands; anything else is ignored.
type Metric struct {
	Name  string  `json:"name" validate:"required"`
	Value float64 `json:"value"`
}

const (
	MetricQty        = "qty"
	MetricPrice      = "price"
	MetricEntryStop  = "entry.stop"
	MetricEntryLimit = "entry.limit"
	MetricExitStop   = "exit.stop"
	MetricExitLimit  = "exit.limit"
)

// TradingViewWebhookMessage is the JSON body posted by a TradingView alert.
// ClientID is a pointer because the chart may leave it null, in which case
// the receiving bot substitutes its own gateway client id.
type TradingViewWebhookMessage struct {
	Timestamp int64        `json:"timestamp" validate:"required,gt=0"`
	Ticker    string       `json:"ticker" validate:"required"`
	Timeframe string       `json:"timeframe" validate:"required"`
	Key       string       `json:"key" validate:"required"`
	Currency  string       `json:"currency" validate:"required"`
	ClientID  *int         `json:"clientId"`
	Contract  ContractKind `json:"contract" validate:"required,oneof=stock forex crypto"`
	OrderRef  string       `json:"orderRef" validate:"required"`
	Direction Direction    `json:"direction" validate:"required"`
	Metrics   []Metric     `json:"metrics" validate:"omitempty,dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func ParseTradingViewWebhookMessage(data []byte) (*TradingViewWebhookMessage, error) {
	var msg TradingViewWebhookMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("ParseTradingViewWebhookMessage: unmarshal: %w", err)
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	return &msg, nil
}

func (m *TradingViewWebhookMessage) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("TradingViewWebhookMessage: validation: %w", err)
	}

	return nil
}

// Time is the chart time of the alert bar, not the delivery time.
func (m *TradingViewWebhookMessage) Time() time.Time {
	return time.UnixMilli(m.Timestamp).UTC()
}

// OrderMetrics is the decoded view of the metrics array. Absent metrics stay
// at zero, which downstream classification treats as "not present".
type OrderMetrics struct {
	Qty        float64
	Price      float64
	EntryStop  float64
	EntryLimit float64
	ExitStop   float64
	ExitLimit  float64
}

func (m *TradingViewWebhookMessage) OrderMetrics() OrderMetrics {
	var om OrderMetrics
	for _, metric := range m.Metrics {
		switch metric.Name {
		case MetricQty:
			om.Qty = metric.Value
		case MetricPrice:
			om.Price = metric.Value
		case MetricEntryStop:
			om.EntryStop = metric.Value
		case MetricEntryLimit:
			om.EntryLimit = metric.Value
		case MetricExitStop:
			om.ExitStop = metric.Value
		case MetricExitLimit:
			om.ExitLimit = metric.Value
		}
	}

	return om
}
