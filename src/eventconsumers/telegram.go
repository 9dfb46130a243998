package eventconsumers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tradingboat/tbot/src/eventmodels"
	pubsub "github.com/tradingboat/tbot/src/eventpubsub"
)

// TelegramNotifierClient mirrors alert dispositions to a Telegram chat
// through the bot API.
type TelegramNotifierClient struct {
	wg         *sync.WaitGroup
	token      string
	chatID     string
	queue      chan string
	httpClient *http.Client
}

func NewTelegramNotifierClient(wg *sync.WaitGroup, token string, chatID string) *TelegramNotifierClient {
	return &TelegramNotifierClient{
		wg:         wg,
		token:      token,
		chatID:     chatID,
		queue:      make(chan string, 256),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *TelegramNotifierClient) Start(ctx context.Context) {
	if c.token == "" || c.chatID == "" {
		log.Info("telegram notifier disabled: no token or chat id configured")
		return
	}

	c.wg.Add(1)

	pubsub.Subscribe("TelegramNotifierClient", eventmodels.AlertHandledEventName, c.alertHandledHandler)

	go func() {
		defer c.wg.Done()

		for {
			select {
			case <-ctx.Done():
				log.Info("stopping TelegramNotifierClient consumer")
				return
			case text := <-c.queue:
				if err := c.sendMessage(text); err != nil {
					log.Errorf("TelegramNotifierClient: %v", err)
				}
			}
		}
	}()
}

func (c *TelegramNotifierClient) alertHandledHandler(ev *eventmodels.AlertHandledEvent) {
	var text string
	if ev.State.OK() {
		text = fmt.Sprintf("✅ %s %s -> %s [%s]", ev.Ticker, ev.Direction, ev.Kind, ev.UniqueKey)
	} else {
		text = fmt.Sprintf("❌ %s %s: %s (%s) [%s]", ev.Ticker, ev.Direction, ev.State, ev.State.Description(), ev.UniqueKey)
	}

	select {
	case c.queue <- text:
	default:
		log.Warn("TelegramNotifierClient: queue full, dropping notification")
	}
}

func (c *TelegramNotifierClient) sendMessage(text string) error {
	body := map[string]interface{}{
		"chat_id": c.chatID,
		"text":    text,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("telegram sendMessage (Marshal): %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.token)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("telegram sendMessage (NewRequest): %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage (Do): %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("telegram sendMessage: %d: %s", res.StatusCode, string(data))
	}

	return nil
}
