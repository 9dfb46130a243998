package ibclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedgerTestClient(t *testing.T, ledgerJSON string) *Client {
	t.Helper()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/api/portfolio/DU111111/ledger" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ledgerJSON))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("127.0.0.1", 5000, 1, DefaultRoutingTable())
	c.baseURL = srv.URL + "/v1/api"
	c.accountID = "DU111111"

	return c
}

func TestAvailableFunds(t *testing.T) {
	c := newLedgerTestClient(t, `{
		"BASE": {"currency": "BASE", "cashbalance": 52000, "settledcash": 50000},
		"USD":  {"currency": "USD",  "cashbalance": 31000, "settledcash": 30000},
		"EUR":  {"currency": "EUR",  "cashbalance": 12500, "settledcash": 12000}
	}`)

	t.Run("balance comes from the order's own currency", func(t *testing.T) {
		funds, err := c.AvailableFunds(context.Background(), "EUR")
		require.NoError(t, err)
		assert.Equal(t, 12000.0, funds)
	})

	t.Run("currency lookup ignores case", func(t *testing.T) {
		funds, err := c.AvailableFunds(context.Background(), "usd")
		require.NoError(t, err)
		assert.Equal(t, 30000.0, funds)
	})

	t.Run("unheld currency falls back to the base aggregate", func(t *testing.T) {
		funds, err := c.AvailableFunds(context.Background(), "JPY")
		require.NoError(t, err)
		assert.Equal(t, 50000.0, funds)
	})
}

func TestAvailableFundsEmptyLedger(t *testing.T) {
	c := newLedgerTestClient(t, `{}`)

	_, err := c.AvailableFunds(context.Background(), "USD")
	assert.Error(t, err)
}
