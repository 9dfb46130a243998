package ibclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// maxConfirmRounds bounds the reply loop answering the gateway's order
// confirmation prompts (price cap warnings and the like).
const maxConfirmRounds = 5

func (c *Client) LiveOrders(ctx context.Context) ([]LiveOrderDTO, error) {
	var dto LiveOrdersDTO
	if err := c.get(ctx, "/iserver/account/orders", &dto); err != nil {
		return nil, err
	}

	return dto.Orders, nil
}

// LiveOrdersByRef filters the live order book down to orders whose reference
// starts with ref, which catches every leg this client submitted for it.
func (c *Client) LiveOrdersByRef(ctx context.Context, ref string) ([]LiveOrderDTO, error) {
	orders, err := c.LiveOrders(ctx)
	if err != nil {
		return nil, err
	}

	var matched []LiveOrderDTO
	for _, order := range orders {
		if strings.HasPrefix(order.OrderRef, ref) {
			matched = append(matched, order)
		}
	}

	return matched, nil
}

// PlaceOrders submits a batch of tickets as one group and answers any
// confirmation prompts the gateway raises. The returned order ids are
// parallel to the submitted tickets.
func (c *Client) PlaceOrders(ctx context.Context, tickets []OrderTicket) ([]int64, error) {
	if len(tickets) == 0 {
		return nil, fmt.Errorf("ibclient.PlaceOrders: empty ticket batch")
	}

	body := map[string]interface{}{"orders": tickets}
	path := fmt.Sprintf("/iserver/account/%s/orders", c.AccountID())

	var replies []PlaceOrderReplyDTO
	if err := c.post(ctx, path, body, &replies); err != nil {
		return nil, err
	}

	for round := 0; round < maxConfirmRounds; round++ {
		if len(replies) == 0 {
			return nil, fmt.Errorf("ibclient.PlaceOrders: empty reply from gateway")
		}

		// Replies carrying an order_id are final acknowledgements.
		if replies[0].OrderID != "" {
			return parseOrderIDs(replies)
		}

		prompt := replies[0]
		log.Infof("confirming gateway prompt %s: %v", prompt.ID, prompt.Message)

		var next []PlaceOrderReplyDTO
		replyPath := fmt.Sprintf("/iserver/reply/%s", prompt.ID)
		if err := c.post(ctx, replyPath, map[string]interface{}{"confirmed": true}, &next); err != nil {
			return nil, fmt.Errorf("ibclient.PlaceOrders: confirm %s: %w", prompt.ID, err)
		}

		replies = next
	}

	return nil, fmt.Errorf("ibclient.PlaceOrders: gateway kept prompting after %d confirmations", maxConfirmRounds)
}

func parseOrderIDs(replies []PlaceOrderReplyDTO) ([]int64, error) {
	ids := make([]int64, 0, len(replies))
	for _, reply := range replies {
		id, err := strconv.ParseInt(reply.OrderID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ibclient: unparsable order id %q: %w", reply.OrderID, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// ModifyOrder rewrites an open order's price fields in place. The gateway
// may raise the same confirmation prompts as a fresh submission.
func (c *Client) ModifyOrder(ctx context.Context, orderID int64, ticket OrderTicket) error {
	path := fmt.Sprintf("/iserver/account/%s/order/%d", c.AccountID(), orderID)

	var replies []PlaceOrderReplyDTO
	if err := c.post(ctx, path, ticket, &replies); err != nil {
		return err
	}

	for round := 0; round < maxConfirmRounds; round++ {
		if len(replies) == 0 || replies[0].OrderID != "" {
			return nil
		}

		prompt := replies[0]
		log.Infof("confirming gateway prompt %s: %v", prompt.ID, prompt.Message)

		var next []PlaceOrderReplyDTO
		replyPath := fmt.Sprintf("/iserver/reply/%s", prompt.ID)
		if err := c.post(ctx, replyPath, map[string]interface{}{"confirmed": true}, &next); err != nil {
			return fmt.Errorf("ibclient.ModifyOrder: confirm %s: %w", prompt.ID, err)
		}

		replies = next
	}

	return fmt.Errorf("ibclient.ModifyOrder: gateway kept prompting after %d confirmations", maxConfirmRounds)
}

func (c *Client) CancelOrder(ctx context.Context, orderID int64) error {
	path := fmt.Sprintf("/iserver/account/%s/order/%d", c.AccountID(), orderID)
	return c.delete(ctx, path, nil)
}
