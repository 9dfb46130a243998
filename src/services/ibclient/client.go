package ibclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kataras/go-events"
	log "github.com/sirupsen/logrus"
)

// Event topics emitted by the client's order feed.
const (
	OnConnected    events.EventName = "connected"
	OnDisconnected events.EventName = "disconnected"
	OnOrderUpdate  events.EventName = "orderUpdate"
)

// Client talks to an Interactive Brokers Client Portal gateway over its
// local REST API. The gateway serves a self-signed certificate, so TLS
// verification is disabled the same way the official clients do for
// localhost.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	clientID   int

	mu        sync.RWMutex
	accountID string
	connected bool

	Events  events.EventEmmiter
	routing *RoutingTable
	rules   *marketRules
}

func NewClient(addr string, port int, clientID int, routing *RoutingTable) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	c := &Client{
		baseURL: fmt.Sprintf("https://%s:%d/v1/api", addr, port),
		wsURL:   fmt.Sprintf("wss://%s:%d/v1/api/ws", addr, port),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		clientID: clientID,
		Events:   events.New(),
		routing:  routing,
	}

	c.rules = newMarketRules(c)

	return c
}

func (c *Client) ClientID() int {
	return c.clientID
}

// Connect verifies the gateway session and caches the account id. The
// gateway must already be logged in; this client never handles credentials.
func (c *Client) Connect(ctx context.Context) error {
	status, err := c.AuthStatus(ctx)
	if err != nil {
		return fmt.Errorf("ibclient.Connect: %w", err)
	}

	if !status.Authenticated {
		if err := c.Reauthenticate(ctx); err != nil {
			return fmt.Errorf("ibclient.Connect: reauthenticate: %w", err)
		}
	}

	accounts, err := c.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("ibclient.Connect: %w", err)
	}

	if len(accounts) == 0 {
		return fmt.Errorf("ibclient.Connect: gateway reports no accounts")
	}

	c.mu.Lock()
	c.accountID = accounts[0].ID
	c.connected = true
	c.mu.Unlock()

	log.Infof("connected to gateway, account %s", accounts[0].ID)
	c.Events.Emit(OnConnected, accounts[0].ID)

	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) AccountID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID
}

func (c *Client) markDisconnected() {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	c.mu.Unlock()

	if wasConnected {
		c.Events.Emit(OnDisconnected)
	}
}

// StartTickle keeps the gateway session alive. The gateway logs sessions out
// after a few minutes without traffic.
func (c *Client) StartTickle(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)

	go func() {
		defer wg.Done()

		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("stopping gateway tickle")
				return
			case <-ticker.C:
				if err := c.Tickle(ctx); err != nil {
					log.Warnf("gateway tickle failed: %v", err)
					c.markDisconnected()
				}
			}
		}
	}()
}

func (c *Client) AuthStatus(ctx context.Context) (*AuthStatusDTO, error) {
	var status AuthStatusDTO
	if err := c.post(ctx, "/iserver/auth/status", nil, &status); err != nil {
		return nil, err
	}

	return &status, nil
}

func (c *Client) Reauthenticate(ctx context.Context) error {
	return c.post(ctx, "/iserver/reauthenticate", nil, nil)
}

func (c *Client) Tickle(ctx context.Context) error {
	return c.post(ctx, "/tickle", nil, nil)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) delete(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method string, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ibclient: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("ibclient: new request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.markDisconnected()
		return fmt.Errorf("ibclient: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("ibclient: %s %s: read body: %w", method, path, err)
	}

	if res.StatusCode >= 400 {
		var gwErr GatewayErrorDTO
		if jsonErr := json.Unmarshal(data, &gwErr); jsonErr == nil && gwErr.Error != "" {
			return fmt.Errorf("ibclient: %s %s: %d: %s", method, path, res.StatusCode, gwErr.Error)
		}
		return fmt.Errorf("ibclient: %s %s: %d: %s", method, path, res.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("ibclient: %s %s: unmarshal: %w. payload: %s", method, path, err, string(data))
	}

	return nil
}
