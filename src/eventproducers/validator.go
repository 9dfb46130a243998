package eventproducers

import (
	"fmt"
	"sync"

	"github.com/tradingboat/tbot/src/eventmodels"
)

// duplicateWindow caps how many alert timestamps the gate remembers before
// it starts evicting the oldest.
const duplicateWindow = 10000

// AlertValidator gates messages coming off Redis before they reach the
// decoder: structural validation plus, optionally, a duplicate-timestamp
// check for charts that fire the same bar twice.
type AlertValidator struct {
	checkDuplicates bool

	mu    sync.Mutex
	seen  map[int64]struct{}
	order []int64
}

func NewAlertValidator(checkDuplicates bool) *AlertValidator {
	return &AlertValidator{
		checkDuplicates: checkDuplicates,
		seen:            make(map[int64]struct{}),
	}
}

func (v *AlertValidator) Validate(msg *eventmodels.TradingViewWebhookMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	if !v.checkDuplicates {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, dup := v.seen[msg.Timestamp]; dup {
		return fmt.Errorf("duplicate alert timestamp %d", msg.Timestamp)
	}

	v.seen[msg.Timestamp] = struct{}{}
	v.order = append(v.order, msg.Timestamp)

	if len(v.order) > duplicateWindow {
		oldest := v.order[0]
		v.order = v.order[1:]
		delete(v.seen, oldest)
	}

	return nil
}
