package webhookapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"

	"github.com/tradingboat/tbot/src/dbutils"
	"github.com/tradingboat/tbot/src/eventmodels"
)

var queryDecoder = schema.NewDecoder()

type recentAlertsQuery struct {
	Limit int `schema:"limit"`
}

// Server is the TradingView-facing HTTP surface: it accepts webhook posts,
// forwards them into Redis, and exposes read-only views of the alert store.
type Server struct {
	publisher  AlertPublisher
	alerts     *dbutils.AlertStore
	webhookKey string
}

// AlertPublisher hands a validated webhook body to the Redis side.
type AlertPublisher interface {
	PublishAlert(r *http.Request, raw []byte) error
}

func NewServer(publisher AlertPublisher, alerts *dbutils.AlertStore, webhookKey string) *Server {
	return &Server{
		publisher:  publisher,
		alerts:     alerts,
		webhookKey: webhookKey,
	}
}

func (s *Server) SetupHandler(router *mux.Router) {
	router.HandleFunc("/webhook", s.webhookHandler).Methods(http.MethodPost)
	router.HandleFunc("/alerts", s.alertsHandler).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
}

func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	msg, err := eventmodels.ParseTradingViewWebhookMessage(body)
	if err != nil {
		log.Warnf("webhookHandler: %v", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// The key doubles as a shared secret; posts without it are dropped
	// without revealing why.
	if s.webhookKey != "" && msg.Key != s.webhookKey {
		log.Warnf("webhookHandler: rejected alert with bad key from %s", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.publisher.PublishAlert(r, body); err != nil {
		log.Errorf("webhookHandler: publish: %v", err)
		writeError(w, http.StatusBadGateway, "failed to enqueue alert")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":        true,
		"timestamp": msg.Timestamp,
	})
}

func (s *Server) alertsHandler(w http.ResponseWriter, r *http.Request) {
	var query recentAlertsQuery
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "invalid query: "+err.Error())
		return
	}

	if query.Limit <= 0 || query.Limit > 500 {
		query.Limit = 50
	}

	rows, err := s.alerts.Recent(query.Limit)
	if err != nil {
		log.Errorf("alertsHandler: %v", err)
		writeError(w, http.StatusInternalServerError, "store error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "up"})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
}
