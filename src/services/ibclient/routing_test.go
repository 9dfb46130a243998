package ibclient

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradingboat/tbot/src/eventmodels"
)

func TestRoutingTable(t *testing.T) {
	t.Run("defaults per contract kind", func(t *testing.T) {
		table := DefaultRoutingTable()
		assert.Equal(t, "SMART", table.Exchange(eventmodels.ContractStock, "AAPL"))
		assert.Equal(t, "IDEALPRO", table.Exchange(eventmodels.ContractForex, "EURUSD"))
		assert.Equal(t, "PAXOS", table.Exchange(eventmodels.ContractCrypto, "BTC"))
	})

	t.Run("yaml overrides win per ticker", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "routing.yml")
		require.NoError(t, os.WriteFile(path, []byte(`
overrides:
  - ticker: SOXL
    exchange: NASDAQ
`), 0644))

		table, err := LoadRoutingTable(path)
		require.NoError(t, err)
		assert.Equal(t, "NASDAQ", table.Exchange(eventmodels.ContractStock, "SOXL"))
		assert.Equal(t, "SMART", table.Exchange(eventmodels.ContractStock, "AAPL"))
	})

	t.Run("empty path returns the defaults", func(t *testing.T) {
		table, err := LoadRoutingTable("")
		require.NoError(t, err)
		assert.Equal(t, "SMART", table.Exchange(eventmodels.ContractStock, "AAPL"))
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := LoadRoutingTable("/nonexistent/routing.yml")
		assert.Error(t, err)
	})
}
