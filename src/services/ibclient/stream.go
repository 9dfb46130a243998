package ibclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/tradingboat/tbot/src/eventmodels"
)

func orderFeedSubscribe() []byte {
	return []byte("sor+{}")
}

type orderFeedMessageDTO struct {
	Topic string            `json:"topic"`
	Args  []orderFeedArgDTO `json:"args"`
}

type orderFeedArgDTO struct {
	OrderID      int64   `json:"orderId"`
	Ticker       string  `json:"ticker"`
	OrderRef     string  `json:"order_ref"`
	Status       string  `json:"status"`
	FilledQty    float64 `json:"filledQuantity"`
	RemainingQty float64 `json:"remainingQuantity"`
	AvgPrice     float64 `json:"avgFillPrice"`
}

func (c *Client) dialOrderFeed() (*websocket.Conn, error) {
	dialer := *websocket.DefaultDialer
	dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	conn, _, err := dialer.Dial(c.wsURL, nil)
	if err != nil {
		return nil, err
	}

	// The gateway needs a beat after the upgrade before it accepts
	// subscriptions.
	time.Sleep(2 * time.Second)

	if err := conn.WriteMessage(websocket.TextMessage, orderFeedSubscribe()); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// StreamOrderFeed subscribes to the gateway's order status topic and emits
// an OnOrderUpdate event per change. Read errors trigger a reconnect with
// backoff until ctx is cancelled.
func (c *Client) StreamOrderFeed(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)

	go func() {
		defer wg.Done()

		var conn *websocket.Conn
		defer func() {
			if conn != nil {
				conn.Close()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				log.Info("stopping gateway order feed")
				return
			default:
			}

			if conn == nil {
				newConn, err := c.dialOrderFeed()
				if err != nil {
					log.Errorf("order feed: failed to connect: %v", err)
					c.markDisconnected()

					select {
					case <-ctx.Done():
						return
					case <-time.After(5 * time.Second):
					}
					continue
				}

				log.Infof("order feed connected to %s", c.wsURL)
				conn = newConn
			}

			conn.SetReadDeadline(time.Now().UTC().Add(90 * time.Second))
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Errorf("order feed: ReadMessage(): %v", err)
				conn.Close()
				conn = nil
				continue
			}

			var dto orderFeedMessageDTO
			if err := json.Unmarshal(message, &dto); err != nil {
				log.Errorf("order feed: failed to unmarshal message: %v", err)
				continue
			}

			switch {
			case dto.Topic == "sor":
				for _, arg := range dto.Args {
					c.Events.Emit(OnOrderUpdate, &eventmodels.OrderUpdateEvent{
						OrderID:      arg.OrderID,
						Ticker:       arg.Ticker,
						OrderRef:     arg.OrderRef,
						Status:       eventmodels.OrderStatus(arg.Status),
						Filled:       arg.FilledQty,
						Remaining:    arg.RemainingQty,
						AvgFillPrice: arg.AvgPrice,
					})
				}
			case dto.Topic == "system" || strings.HasPrefix(dto.Topic, "act"):
				// heartbeat and account chatter
			default:
				log.Debugf("order feed: ignoring topic %q", dto.Topic)
			}
		}
	}()
}
