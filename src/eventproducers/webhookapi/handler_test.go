package webhookapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradingboat/tbot/src/dbutils"
	"github.com/tradingboat/tbot/src/eventmodels"
)

type fakePublisher struct {
	published [][]byte
	err       error
}

func (f *fakePublisher) PublishAlert(r *http.Request, raw []byte) error {
	if f.err != nil {
		return f.err
	}

	f.published = append(f.published, raw)
	return nil
}

func newTestServer(t *testing.T, publisher *fakePublisher) (*mux.Router, *dbutils.AlertStore) {
	t.Helper()

	db, err := dbutils.InitSQLite(filepath.Join(t.TempDir(), "tbot_sqlite3"))
	require.NoError(t, err)

	alerts := dbutils.NewAlertStore(db)

	router := mux.NewRouter()
	NewServer(publisher, alerts, "WebhookReceived").SetupHandler(router)

	return router, alerts
}

const validBody = `{
	"timestamp": 1700000000000,
	"ticker": "AAPL",
	"timeframe": "1D",
	"key": "WebhookReceived",
	"currency": "USD",
	"clientId": 1,
	"contract": "stock",
	"orderRef": "o77",
	"direction": "strategy.entrylong",
	"metrics": [{"name": "qty", "value": 10}]
}`

func TestWebhookHandler(t *testing.T) {
	t.Run("valid alert is queued", func(t *testing.T) {
		publisher := &fakePublisher{}
		router, _ := newTestServer(t, publisher)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(validBody)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "1700000000000")
		require.Len(t, publisher.published, 1)
	})

	t.Run("wrong key is unauthorized", func(t *testing.T) {
		publisher := &fakePublisher{}
		router, _ := newTestServer(t, publisher)

		body := strings.Replace(validBody, "WebhookReceived", "guessed", 1)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, publisher.published)
	})

	t.Run("invalid payload is unprocessable", func(t *testing.T) {
		publisher := &fakePublisher{}
		router, _ := newTestServer(t, publisher)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"ticker": "AAPL"}`)))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Empty(t, publisher.published)
	})

	t.Run("publish failure maps to bad gateway", func(t *testing.T) {
		publisher := &fakePublisher{err: errors.New("redis down")}
		router, _ := newTestServer(t, publisher)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(validBody)))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("get is not allowed", func(t *testing.T) {
		publisher := &fakePublisher{}
		router, _ := newTestServer(t, publisher)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestAlertsHandler(t *testing.T) {
	publisher := &fakePublisher{}
	router, alerts := newTestServer(t, publisher)

	for i := 0; i < 3; i++ {
		require.NoError(t, alerts.Insert(&eventmodels.AlertRecord{
			CreatedAt: time.Now().UTC(),
			UniqueKey: "2023-11-14 22:13:20.000",
			Ticker:    "AAPL",
		}))
	}

	t.Run("returns recent alerts", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alerts", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "AAPL")
	})

	t.Run("limit is honored", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alerts?limit=1", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, strings.Count(rec.Body.String(), "AAPL"))
	})
}

func TestHealthHandler(t *testing.T) {
	router, _ := newTestServer(t, &fakePublisher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "up")
}
