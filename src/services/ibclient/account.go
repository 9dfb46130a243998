package ibclient

import (
	"context"
	"fmt"
	"strings"
)

func (c *Client) Accounts(ctx context.Context) ([]AccountDTO, error) {
	var accounts []AccountDTO
	if err := c.get(ctx, "/portfolio/accounts", &accounts); err != nil {
		return nil, err
	}

	return accounts, nil
}

// AccountSummary returns the ledger keyed by tag name, e.g. "availablefunds"
// and "netliquidation".
func (c *Client) AccountSummary(ctx context.Context) (map[string]SummaryValueDTO, error) {
	summary := make(map[string]SummaryValueDTO)
	path := fmt.Sprintf("/portfolio/%s/summary", c.AccountID())
	if err := c.get(ctx, path, &summary); err != nil {
		return nil, err
	}

	return summary, nil
}

// Ledger returns the account's cash balances keyed by currency. The gateway
// always includes a "BASE" entry aggregating the rest.
func (c *Client) Ledger(ctx context.Context) (map[string]LedgerDTO, error) {
	ledger := make(map[string]LedgerDTO)
	path := fmt.Sprintf("/portfolio/%s/ledger", c.AccountID())
	if err := c.get(ctx, path, &ledger); err != nil {
		return nil, err
	}

	return ledger, nil
}

// AvailableFunds reads the settled cash in the given currency for the
// pre-trade balance check, falling back to the base-currency aggregate when
// the account holds no ledger in that currency.
func (c *Client) AvailableFunds(ctx context.Context, currency string) (float64, error) {
	ledger, err := c.Ledger(ctx)
	if err != nil {
		return 0, err
	}

	if entry, ok := ledger[strings.ToUpper(currency)]; ok {
		return entry.SettledCash, nil
	}

	entry, ok := ledger["BASE"]
	if !ok {
		return 0, fmt.Errorf("ibclient.AvailableFunds: no ledger entry for %s and no BASE aggregate", currency)
	}

	return entry.SettledCash, nil
}

func (c *Client) Positions(ctx context.Context) ([]PositionDTO, error) {
	var positions []PositionDTO
	path := fmt.Sprintf("/portfolio/%s/positions/0", c.AccountID())
	if err := c.get(ctx, path, &positions); err != nil {
		return nil, err
	}

	return positions, nil
}

// DailyPnL reads the day's realized plus unrealized profit across the
// account's partitions.
func (c *Client) DailyPnL(ctx context.Context) (*PnlPartitionDTO, error) {
	var pnl PnlDTO
	if err := c.get(ctx, "/iserver/account/pnl/partitioned", &pnl); err != nil {
		return nil, err
	}

	total := PnlPartitionDTO{}
	for _, part := range pnl.Partitions {
		total.DailyPnl += part.DailyPnl
		total.UnrlPnl += part.UnrlPnl
		total.NetLiq += part.NetLiq
	}

	return &total, nil
}
