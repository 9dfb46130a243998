package eventconsumers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tradingboat/tbot/src/dbutils"
	"github.com/tradingboat/tbot/src/eventmodels"
	pubsub "github.com/tradingboat/tbot/src/eventpubsub"
)

const (
	discordColorGreen = 0x2ecc71
	discordColorRed   = 0xe74c3c
	discordColorGrey  = 0x95a5a6

	// errorFlushInterval paces the periodic sweep for error rows the
	// notifier has not delivered yet.
	errorFlushInterval = 60 * time.Second
)

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// DiscordNotifierClient forwards alert dispositions and unreported errors to
// a Discord webhook. Sends are queued and drained off the hot path; a 429
// from Discord pauses the drain for the advertised retry window.
type DiscordNotifierClient struct {
	wg         *sync.WaitGroup
	webhookURL string
	errors     *dbutils.ErrorStore
	queue      chan discordEmbed
	httpClient *http.Client
}

func NewDiscordNotifierClient(wg *sync.WaitGroup, webhookURL string, errors *dbutils.ErrorStore) *DiscordNotifierClient {
	return &DiscordNotifierClient{
		wg:         wg,
		webhookURL: webhookURL,
		errors:     errors,
		queue:      make(chan discordEmbed, 256),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *DiscordNotifierClient) Start(ctx context.Context) {
	if c.webhookURL == "" {
		log.Info("discord notifier disabled: no webhook configured")
		return
	}

	c.wg.Add(1)

	pubsub.Subscribe("DiscordNotifierClient", eventmodels.AlertHandledEventName, c.alertHandledHandler)
	pubsub.Subscribe("DiscordNotifierClient", eventmodels.OrderUpdateEventName, c.orderUpdateHandler)

	go func() {
		defer c.wg.Done()

		flush := time.NewTicker(errorFlushInterval)
		defer flush.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("stopping DiscordNotifierClient consumer")
				return
			case embed := <-c.queue:
				c.send(embed)
			case <-flush.C:
				c.flushErrors()
			}
		}
	}()
}

func (c *DiscordNotifierClient) alertHandledHandler(ev *eventmodels.AlertHandledEvent) {
	color := discordColorGreen
	if !ev.State.OK() {
		color = discordColorRed
	} else if ev.State == eventmodels.ErrorStateCancelled {
		color = discordColorGrey
	}

	state := string(ev.State)
	if state == "" {
		state = "OK"
	}

	embed := discordEmbed{
		Title: fmt.Sprintf("%s %s", ev.Ticker, ev.Direction),
		Color: color,
		Fields: []discordEmbedField{
			{Name: "state", Value: state, Inline: true},
			{Name: "kind", Value: ev.Kind.String(), Inline: true},
			{Name: "key", Value: ev.UniqueKey, Inline: true},
			{Name: "latency", Value: ev.Elapsed.Round(time.Millisecond).String(), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if !ev.State.OK() {
		embed.Description = ev.State.Description()
	}

	c.enqueue(embed)
}

func (c *DiscordNotifierClient) orderUpdateHandler(ev *eventmodels.OrderUpdateEvent) {
	if !ev.Status.IsDone() {
		return
	}

	color := discordColorGreen
	if ev.Status == eventmodels.OrderStatusCancelled {
		color = discordColorGrey
	}

	c.enqueue(discordEmbed{
		Title: fmt.Sprintf("order %d %s", ev.OrderID, ev.Status),
		Color: color,
		Fields: []discordEmbedField{
			{Name: "ticker", Value: ev.Ticker, Inline: true},
			{Name: "ref", Value: ev.OrderRef, Inline: true},
			{Name: "avg fill", Value: fmt.Sprintf("%.4f", ev.AvgFillPrice), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *DiscordNotifierClient) flushErrors() {
	rows, err := c.errors.Unreported(20)
	if err != nil {
		log.Errorf("DiscordNotifierClient: %v", err)
		return
	}

	if len(rows) == 0 {
		return
	}

	var ids []uint
	fields := make([]discordEmbedField, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
		fields = append(fields, discordEmbedField{
			Name:  fmt.Sprintf("%s %s", row.Ticker, row.ErrorState),
			Value: fmt.Sprintf("%s (%s)", row.Message, row.UniqueKey),
		})
	}

	c.enqueue(discordEmbed{
		Title:     fmt.Sprintf("%d unreported errors", len(rows)),
		Color:     discordColorRed,
		Fields:    fields,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	if err := c.errors.MarkReported(ids); err != nil {
		log.Errorf("DiscordNotifierClient: %v", err)
	}
}

func (c *DiscordNotifierClient) enqueue(embed discordEmbed) {
	select {
	case c.queue <- embed:
	default:
		log.Warn("DiscordNotifierClient: queue full, dropping notification")
	}
}

func (c *DiscordNotifierClient) send(embed discordEmbed) {
	body := map[string]interface{}{
		"embeds": []discordEmbed{embed},
	}

	for attempt := 0; attempt < 2; attempt++ {
		retryAfter, err := c.post(body)
		if err == nil {
			return
		}

		if retryAfter > 0 {
			log.Warnf("DiscordNotifierClient: rate limited, sleeping %v", retryAfter)
			time.Sleep(retryAfter)
			continue
		}

		log.Errorf("DiscordNotifierClient: %v", err)
		return
	}
}

// post returns a non-zero retry hint when Discord rate limits the webhook.
func (c *DiscordNotifierClient) post(body map[string]interface{}) (time.Duration, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("discord post (Marshal): %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return 0, fmt.Errorf("discord post (NewRequest): %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("discord post (Do): %w", err)
	}
	defer res.Body.Close()

	data, _ := io.ReadAll(res.Body)

	if res.StatusCode == http.StatusTooManyRequests {
		retryAfter := 2 * time.Second
		if header := res.Header.Get("Retry-After"); header != "" {
			if seconds, parseErr := strconv.ParseFloat(header, 64); parseErr == nil {
				retryAfter = time.Duration(seconds * float64(time.Second))
			}
		}
		return retryAfter, fmt.Errorf("discord post: rate limited")
	}

	if res.StatusCode >= 400 {
		return 0, fmt.Errorf("discord post: %d: %s", res.StatusCode, string(data))
	}

	return 0, nil
}
