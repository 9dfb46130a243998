package eventconsumers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tradingboat/tbot/src/dbutils"
	"github.com/tradingboat/tbot/src/eventmodels"
	pubsub "github.com/tradingboat/tbot/src/eventpubsub"
	"github.com/tradingboat/tbot/src/utils"
)

// TradeExecutor is what the decoder needs from the order placer.
type TradeExecutor interface {
	PlaceEntry(ctx context.Context, order *eventmodels.TradingOrder) (eventmodels.ErrorState, error)
	UpdateExit(ctx context.Context, order *eventmodels.TradingOrder) (eventmodels.ErrorState, error)
	Close(ctx context.Context, order *eventmodels.TradingOrder) (eventmodels.ErrorState, error)
	Cancel(ctx context.Context, order *eventmodels.TradingOrder) (eventmodels.ErrorState, error)
}

// GatewayConn is the connection surface the decoder checks before
// dispatching.
type GatewayConn interface {
	IsConnected() bool
	Connect(ctx context.Context) error
}

// DecoderClient turns webhook alerts into broker activity. It consumes
// sequentially: one alert is fully dispatched and acked before the next is
// looked at, so ordering from a single chart is preserved.
type DecoderClient struct {
	wg       *sync.WaitGroup
	executor TradeExecutor
	gateway  GatewayConn
	alerts   *dbutils.AlertStore
	errors   *dbutils.ErrorStore
	clientID int
	profiler *LatencyProfiler
}

func NewDecoderClient(wg *sync.WaitGroup, executor TradeExecutor, gateway GatewayConn, alerts *dbutils.AlertStore, errors *dbutils.ErrorStore, clientID int, profilerEnabled bool) *DecoderClient {
	var profiler *LatencyProfiler
	if profilerEnabled {
		profiler = NewLatencyProfiler("decoder", 100)
	}

	return &DecoderClient{
		wg:       wg,
		executor: executor,
		gateway:  gateway,
		alerts:   alerts,
		errors:   errors,
		clientID: clientID,
		profiler: profiler,
	}
}

func (c *DecoderClient) Start(ctx context.Context) {
	c.wg.Add(1)

	pubsub.SubscribeSequential("DecoderClient", eventmodels.TradingViewAlertEventName, c.alertHandler)

	go func() {
		defer c.wg.Done()
		<-ctx.Done()
		log.Info("stopping DecoderClient consumer")
	}()
}

func (c *DecoderClient) alertHandler(ev *eventmodels.TradingViewAlertEvent) {
	started := time.Now().UTC()
	msg := ev.Message

	defer ev.Ack()

	// The stream key is already namespaced per client id, so an alert
	// addressed to a different bot is a misdirected post; drop it. Leaving
	// it unacked would wedge the stream head.
	if msg.ClientID != nil && *msg.ClientID != c.clientID {
		log.Debugf("dropping alert addressed to clientId %d", *msg.ClientID)
		return
	}

	uniqueKey := utils.FormatUniqueKey(msg.Timestamp)
	log.Infof("DecoderClient <- %s %s %s [%s]", msg.Ticker, msg.Direction, msg.Timeframe, uniqueKey)

	c.recordAlert(uniqueKey, msg)

	if !c.gateway.IsConnected() {
		if err := c.gateway.Connect(context.Background()); err != nil {
			log.Errorf("DecoderClient: gateway reconnect failed: %v", err)
		}
	}

	state, kind := c.dispatch(msg, uniqueKey)
	elapsed := time.Since(started)

	if !state.OK() {
		c.recordError(uniqueKey, msg, state)
	}

	pubsub.Publish("DecoderClient", eventmodels.AlertHandledEventName, &eventmodels.AlertHandledEvent{
		UniqueKey: uniqueKey,
		Ticker:    msg.Ticker,
		Direction: msg.Direction,
		Kind:      kind,
		State:     state,
		Elapsed:   elapsed,
	})

	if c.profiler != nil {
		c.profiler.Observe(elapsed)
	}
}

func (c *DecoderClient) dispatch(msg *eventmodels.TradingViewWebhookMessage, uniqueKey string) (eventmodels.ErrorState, eventmodels.OrderKind) {
	order, err := eventmodels.NewTradingOrder(msg, c.clientID, uniqueKey)
	if err != nil {
		log.Warnf("DecoderClient: %v", err)
		return eventmodels.ErrorStateUnrecognized, eventmodels.OrderKindUnsupported
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var state eventmodels.ErrorState
	switch {
	case msg.Direction.IsEntry():
		state, err = c.executor.PlaceEntry(ctx, order)
	case msg.Direction.IsExit():
		state, err = c.executor.UpdateExit(ctx, order)
	case msg.Direction.IsClose():
		state, err = c.executor.Close(ctx, order)
	case msg.Direction.IsCancel():
		state, err = c.executor.Cancel(ctx, order)
	case msg.Direction == eventmodels.DirectionAlert:
		// Informational alert: recorded, nothing to trade.
		state = eventmodels.ErrorStateNone
	default:
		state = eventmodels.ErrorStateUnrecognized
	}

	if err != nil {
		log.Errorf("DecoderClient: %s %s: [%s] %v", msg.Ticker, msg.Direction, state, err)
	} else {
		log.Infof("DecoderClient: %s %s -> %s", msg.Ticker, msg.Direction, state)
	}

	return state, order.Kind
}

func (c *DecoderClient) recordAlert(uniqueKey string, msg *eventmodels.TradingViewWebhookMessage) {
	metrics := msg.OrderMetrics()

	payload, err := json.Marshal(msg)
	if err != nil {
		payload = nil
	}

	rec := &eventmodels.AlertRecord{
		CreatedAt: time.Now().UTC(),
		UniqueKey: uniqueKey,
		Ticker:    msg.Ticker,
		Timeframe: msg.Timeframe,
		Direction: string(msg.Direction),
		Contract:  string(msg.Contract),
		Qty:       metrics.Qty,
		Price:     metrics.Price,
		OrderRef:  msg.OrderRef,
		Payload:   string(payload),
	}

	if err := c.alerts.Insert(rec); err != nil {
		log.Errorf("DecoderClient: recordAlert: %v", err)
	}
}

func (c *DecoderClient) recordError(uniqueKey string, msg *eventmodels.TradingViewWebhookMessage, state eventmodels.ErrorState) {
	rec := &eventmodels.ErrorRecord{
		CreatedAt:  time.Now().UTC(),
		UniqueKey:  uniqueKey,
		Ticker:     msg.Ticker,
		OrderRef:   msg.OrderRef,
		ErrorState: string(state),
		Message:    state.Description(),
	}

	if err := c.errors.Insert(rec); err != nil {
		log.Errorf("DecoderClient: recordError: %v", err)
	}
}
