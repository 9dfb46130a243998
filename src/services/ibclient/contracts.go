package ibclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/tradingboat/tbot/src/eventmodels"
)

// Contract is a resolved, routable instrument.
type Contract struct {
	ConID    int64
	Symbol   string
	SecType  string
	Exchange string
	Currency string
}

func secTypeFor(kind eventmodels.ContractKind) string {
	switch kind {
	case eventmodels.ContractForex:
		return "CASH"
	case eventmodels.ContractCrypto:
		return "CRYPTO"
	default:
		return "STK"
	}
}

var contractCache = struct {
	mu sync.RWMutex
	m  map[string]Contract
}{m: make(map[string]Contract)}

// ResolveContract finds the contract id for a ticker. Forex tickers arrive
// as pairs like EURUSD; the base currency is searched and the quote currency
// becomes the contract currency. Results are cached for the process
// lifetime, contract ids do not change intraday.
func (c *Client) ResolveContract(ctx context.Context, kind eventmodels.ContractKind, ticker string, currency string) (Contract, error) {
	secType := secTypeFor(kind)

	symbol := ticker
	if kind == eventmodels.ContractForex && len(ticker) == 6 {
		symbol = ticker[:3]
		currency = ticker[3:]
	}

	cacheKey := fmt.Sprintf("%s/%s/%s", secType, symbol, currency)
	contractCache.mu.RLock()
	if cached, ok := contractCache.m[cacheKey]; ok {
		contractCache.mu.RUnlock()
		return cached, nil
	}
	contractCache.mu.RUnlock()

	var results []ContractSearchResultDTO
	path := fmt.Sprintf("/iserver/secdef/search?symbol=%s&secType=%s", url.QueryEscape(symbol), secType)
	if err := c.get(ctx, path, &results); err != nil {
		return Contract{}, fmt.Errorf("ResolveContract %s: %w", ticker, err)
	}

	for _, result := range results {
		conID := result.ConID
		matched := strings.EqualFold(result.SecType, secType)

		for _, section := range result.Sections {
			if !strings.EqualFold(section.SecType, secType) {
				continue
			}
			if section.Currency != "" && currency != "" && !strings.EqualFold(section.Currency, currency) {
				continue
			}

			matched = true
			if section.ConID != "" {
				if id, err := strconv.ParseInt(section.ConID, 10, 64); err == nil {
					conID = id
				}
			}
			break
		}

		if !matched || conID == 0 {
			continue
		}

		contract := Contract{
			ConID:    conID,
			Symbol:   symbol,
			SecType:  secType,
			Exchange: c.routing.Exchange(kind, ticker),
			Currency: strings.ToUpper(currency),
		}

		contractCache.mu.Lock()
		contractCache.m[cacheKey] = contract
		contractCache.mu.Unlock()

		return contract, nil
	}

	return Contract{}, fmt.Errorf("ResolveContract: no %s contract for %s", secType, ticker)
}
