package ibclient

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// marketRules caches each contract's price increment ladder and snaps chart
// prices onto it. The gateway rejects orders whose price is off-tick, and
// chart prices routinely are.
type marketRules struct {
	client *Client

	mu    sync.RWMutex
	cache map[int64][]PriceIncrementDTO
}

func newMarketRules(client *Client) *marketRules {
	return &marketRules{
		client: client,
		cache:  make(map[int64][]PriceIncrementDTO),
	}
}

func (r *marketRules) increments(ctx context.Context, conID int64) ([]PriceIncrementDTO, error) {
	r.mu.RLock()
	if cached, ok := r.cache[conID]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	var dto ContractRulesDTO
	path := fmt.Sprintf("/iserver/contract/%d/info-and-rules", conID)
	if err := r.client.get(ctx, path, &dto); err != nil {
		return nil, fmt.Errorf("marketRules: %w", err)
	}

	increments := dto.Rules.Increments
	if len(increments) == 0 {
		increments = []PriceIncrementDTO{{LowerEdge: 0, Increment: 0.01}}
	}

	r.mu.Lock()
	r.cache[conID] = increments
	r.mu.Unlock()

	return increments, nil
}

// AdjustPrice rounds a price up to the contract's tick at that price level.
// Rounding up rather than to-nearest keeps buy limits marketable.
func (c *Client) AdjustPrice(ctx context.Context, conID int64, price float64) (float64, error) {
	if price <= 0 {
		return price, nil
	}

	increments, err := c.rules.increments(ctx, conID)
	if err != nil {
		return 0, err
	}

	tick := increments[0].Increment
	for _, rule := range increments {
		if price >= rule.LowerEdge {
			tick = rule.Increment
		}
	}

	if tick <= 0 {
		return price, nil
	}

	adjusted := math.Ceil(price/tick) * tick

	// Scrub float drift so 0.1+0.2 style artifacts don't reach the wire.
	return math.Round(adjusted*1e9) / 1e9, nil
}
