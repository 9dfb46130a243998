package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/tradingboat/tbot/src/dbutils"
	"github.com/tradingboat/tbot/src/eventmodels"
	"github.com/tradingboat/tbot/src/services/ibclient"
)

const (
	orderTypeMarket    = "MKT"
	orderTypeLimit     = "LMT"
	orderTypeStop      = "STP"
	orderTypeStopLimit = "STOP_LIMIT"

	tifGTC = "GTC"
	tifIOC = "IOC"
)

// OrderPlacer turns decoded trading intents into gateway order batches and
// keeps the order store in step with what was submitted.
type OrderPlacer struct {
	ib     *ibclient.Client
	orders *dbutils.OrderStore
}

func NewOrderPlacer(ib *ibclient.Client, orders *dbutils.OrderStore) *OrderPlacer {
	return &OrderPlacer{
		ib:     ib,
		orders: orders,
	}
}

// PlaceEntry submits the order batch for an entry alert.
func (p *OrderPlacer) PlaceEntry(ctx context.Context, order *eventmodels.TradingOrder) (eventmodels.ErrorState, error) {
	if order.Kind == eventmodels.OrderKindUnsupported {
		return eventmodels.ErrorStateBadOrderType, fmt.Errorf("unsupported metric combination for %s", order.Symbol)
	}

	exists, err := p.orders.Exists(order.UniqueKey, order.Symbol, order.OrderRef)
	if err != nil {
		return eventmodels.ErrorStateBadMessage, err
	}
	if exists {
		return eventmodels.ErrorStateDuplicateOrder, fmt.Errorf("duplicate order %s for %s", order.OrderRef, order.Symbol)
	}

	if order.Metrics.Qty <= 0 {
		return eventmodels.ErrorStateCalcQty, fmt.Errorf("entry for %s has no positive qty metric", order.Symbol)
	}

	if order.Contract == eventmodels.ContractCrypto && !cryptoSupports(order.Kind) {
		return eventmodels.ErrorStateNotSupported, fmt.Errorf("order kind %v not supported for crypto", order.Kind)
	}

	contract, err := p.ib.ResolveContract(ctx, order.Contract, order.Symbol, order.Currency)
	if err != nil {
		return eventmodels.ErrorStateNoContract, err
	}

	if state, err := p.checkFunds(ctx, order); state != eventmodels.ErrorStateNone {
		return state, err
	}

	metrics, err := p.adjustMetrics(ctx, contract, order.Metrics)
	if err != nil {
		return eventmodels.ErrorStateCalcQty, err
	}

	tickets, err := p.buildEntryTickets(order, contract, metrics)
	if err != nil {
		return eventmodels.ErrorStateBadOrderType, err
	}

	ids, err := p.ib.PlaceOrders(ctx, tickets)
	if err != nil {
		return eventmodels.ErrorStateNotSupported, err
	}

	p.recordTickets(order, tickets, ids)

	return eventmodels.ErrorStateSubmitted, nil
}

// UpdateExit rewrites the exit legs of a working bracket in place.
func (p *OrderPlacer) UpdateExit(ctx context.Context, order *eventmodels.TradingOrder) (eventmodels.ErrorState, error) {
	// Crypto orders never carry bracket legs, so there is nothing to rewrite.
	if order.Contract == eventmodels.ContractCrypto {
		return eventmodels.ErrorStateNotSupported, fmt.Errorf("exit updates are not supported for crypto order %s", order.Symbol)
	}

	contract, err := p.ib.ResolveContract(ctx, order.Contract, order.Symbol, order.Currency)
	if err != nil {
		return eventmodels.ErrorStateNoContract, err
	}

	metrics, err := p.adjustMetrics(ctx, contract, order.Metrics)
	if err != nil {
		return eventmodels.ErrorStateCalcQty, err
	}

	switch order.Kind {
	case eventmodels.OrderKindUpdateProfitTaker:
		return p.modifyLeg(ctx, order, contract, orderTypeLimit, metrics.ExitLimit, 0)
	case eventmodels.OrderKindUpdateStopLoss:
		return p.modifyLeg(ctx, order, contract, orderTypeStop, 0, metrics.ExitStop)
	case eventmodels.OrderKindUpdateBracket:
		if state, err := p.modifyLeg(ctx, order, contract, orderTypeLimit, metrics.ExitLimit, 0); state != eventmodels.ErrorStateSubmitted {
			return state, err
		}
		return p.modifyLeg(ctx, order, contract, orderTypeStop, 0, metrics.ExitStop)
	default:
		return eventmodels.ErrorStateBadOrderType, fmt.Errorf("exit for %s carries no exit metrics", order.Symbol)
	}
}

func (p *OrderPlacer) modifyLeg(ctx context.Context, order *eventmodels.TradingOrder, contract ibclient.Contract, orderType string, lmtPrice, auxPrice float64) (eventmodels.ErrorState, error) {
	leg, err := p.orders.FindActiveByType(order.Symbol, order.OrderRef, orderType)
	if err != nil {
		return eventmodels.ErrorStateBadMessage, err
	}
	if leg == nil {
		return eventmodels.ErrorStateNoActiveOrder, fmt.Errorf("no active %s leg for %s %s", orderType, order.Symbol, order.OrderRef)
	}

	if leg.ParentID != 0 {
		parent, err := p.orders.FindByOrderID(leg.ParentID)
		if err != nil {
			return eventmodels.ErrorStateBadMessage, err
		}
		if parent != nil && parent.OrderStatus != string(eventmodels.OrderStatusFilled) {
			return eventmodels.ErrorStateParentNotFill, fmt.Errorf("parent order %d not filled for %s", leg.ParentID, order.Symbol)
		}
	}

	ticket := ibclient.OrderTicket{
		AcctID:    p.ib.AccountID(),
		ConID:     contract.ConID,
		OrderType: orderType,
		Side:      leg.Action,
		TIF:       tifGTC,
		Quantity:  leg.Qty,
		Price:     lmtPrice,
		AuxPrice:  auxPrice,
	}

	if err := p.ib.ModifyOrder(ctx, leg.OrderID, ticket); err != nil {
		return eventmodels.ErrorStateNoActiveOrder, err
	}

	if err := p.orders.UpdatePrices(leg.ID, lmtPrice, auxPrice); err != nil {
		log.Warnf("modifyLeg: store update failed: %v", err)
	}

	return eventmodels.ErrorStateSubmitted, nil
}

// Close flattens some or all of the position behind an order reference with
// a market order.
func (p *OrderPlacer) Close(ctx context.Context, order *eventmodels.TradingOrder) (eventmodels.ErrorState, error) {
	contract, err := p.ib.ResolveContract(ctx, order.Contract, order.Symbol, order.Currency)
	if err != nil {
		return eventmodels.ErrorStateNoContract, err
	}

	position, err := p.positionFor(ctx, order.Symbol)
	if err != nil {
		return eventmodels.ErrorStateCalcQty, err
	}

	var signed float64
	if order.Direction == eventmodels.DirectionCloseAll {
		if position == 0 {
			return eventmodels.ErrorStateNoMarketPosDB, fmt.Errorf("no market position for %s", order.Symbol)
		}

		// Pull the working orders for this reference before flattening so
		// an exit leg doesn't fill against the close.
		p.cancelWorking(ctx, order.Symbol, order.OrderRef)
		signed = position
	} else {
		signed, err = p.closeQty(order, position)
		if err != nil {
			if state, ok := stateFromErr(err); ok {
				return state, err
			}
			return eventmodels.ErrorStateCalcQty, err
		}
	}

	if position == 0 {
		return eventmodels.ErrorStateNoClosePos, fmt.Errorf("no position to close for %s", order.Symbol)
	}

	if math.Abs(signed) > math.Abs(position) {
		return eventmodels.ErrorStateQtyTooBig, fmt.Errorf("close qty %.4f exceeds position %.4f for %s", signed, position, order.Symbol)
	}

	side := eventmodels.ActionSell
	if signed < 0 {
		side = eventmodels.ActionBuy
	}

	ticket := ibclient.OrderTicket{
		AcctID:    p.ib.AccountID(),
		ConID:     contract.ConID,
		COID:      newCOID(order.OrderRef),
		OrderType: orderTypeMarket,
		Side:      string(side),
		TIF:       p.tifFor(order.Contract),
		Quantity:  math.Abs(signed),
		Referrer:  order.OrderRef,
	}

	ids, err := p.ib.PlaceOrders(ctx, []ibclient.OrderTicket{ticket})
	if err != nil {
		return eventmodels.ErrorStateNotSupported, err
	}

	order.Action = side
	p.recordTickets(order, []ibclient.OrderTicket{ticket}, ids)

	return eventmodels.ErrorStateSubmitted, nil
}

// closeQty resolves how much of the position a strategy.close alert covers.
// An explicit qty metric closes that much in the direction of the position;
// otherwise the net of the reference's most recent fill decides.
func (p *OrderPlacer) closeQty(order *eventmodels.TradingOrder, position float64) (float64, error) {
	qty := order.Metrics.Qty
	if qty > 0 && qty != math.Abs(eventmodels.AllContractsQty) {
		if position < 0 {
			return -qty, nil
		}
		return qty, nil
	}

	signed, err := p.orders.FilledQty(order.Symbol, order.OrderRef, 1)
	if err != nil {
		return 0, err
	}

	if signed == 0 {
		if position != 0 {
			return position, nil
		}
		return 0, &stateError{state: eventmodels.ErrorStateNoEntryPosDB, msg: fmt.Sprintf("no filled entry on record for %s %s", order.Symbol, order.OrderRef)}
	}

	return signed, nil
}

// Cancel pulls this client's working orders matching the alert.
func (p *OrderPlacer) Cancel(ctx context.Context, order *eventmodels.TradingOrder) (eventmodels.ErrorState, error) {
	ref := order.OrderRef
	if order.Direction == eventmodels.DirectionCancelAll {
		ref = eventmodels.OrderRefPrefix(p.ib.ClientID())
	}

	live, err := p.ib.LiveOrdersByRef(ctx, ref)
	if err != nil {
		return eventmodels.ErrorStateNoActiveOrder, err
	}

	cancelled := 0
	for _, o := range live {
		if order.Direction != eventmodels.DirectionCancelAll {
			if !strings.EqualFold(o.Side, string(order.Action)) {
				continue
			}
			if order.Symbol != "" && !strings.EqualFold(o.Ticker, order.Symbol) {
				continue
			}
		}

		if eventmodels.OrderStatus(o.Status).IsDone() {
			continue
		}

		if err := p.ib.CancelOrder(ctx, o.OrderID); err != nil {
			log.Errorf("Cancel: order %d: %v", o.OrderID, err)
			continue
		}
		cancelled++
	}

	action := order.Action
	if order.Direction == eventmodels.DirectionCancelAll {
		action = eventmodels.ActionUnknown
	}

	marked, err := p.orders.MarkCancelled(order.Symbol, order.OrderRef, action)
	if err != nil {
		log.Warnf("Cancel: store update failed: %v", err)
	}

	if cancelled == 0 && marked == 0 {
		return eventmodels.ErrorStateNoOpenTrade, fmt.Errorf("no open orders to cancel for %s %s", order.Symbol, order.OrderRef)
	}

	return eventmodels.ErrorStateCancelled, nil
}

// RefreshPortfolio snapshots broker positions into the store and drops
// entries the gateway no longer reports.
func (p *OrderPlacer) RefreshPortfolio(ctx context.Context) error {
	positions, err := p.ib.Positions(ctx)
	if err != nil {
		return fmt.Errorf("RefreshPortfolio: %w", err)
	}

	for _, pos := range positions {
		ticker := pos.Ticker
		if ticker == "" {
			ticker = pos.ContractDesc
		}

		if err := p.orders.UpsertPortfolio(ticker, pos.Position, pos.MktValue, pos.AvgPrice, pos.UnrealizedPnl, pos.RealizedPnl); err != nil {
			log.Errorf("RefreshPortfolio: %v", err)
		}
	}

	if purged, err := p.orders.PurgeStalePortfolio(); err != nil {
		log.Warnf("RefreshPortfolio: purge: %v", err)
	} else if purged > 0 {
		log.Infof("purged %d stale portfolio rows", purged)
	}

	return nil
}

// FlattenAll cancels every working order this client owns and market-closes
// every open position. The PnL monitor invokes it when the daily loss limit
// trips.
func (p *OrderPlacer) FlattenAll(ctx context.Context) error {
	prefix := eventmodels.OrderRefPrefix(p.ib.ClientID())

	live, err := p.ib.LiveOrdersByRef(ctx, prefix)
	if err != nil {
		return fmt.Errorf("FlattenAll: %w", err)
	}

	for _, o := range live {
		if eventmodels.OrderStatus(o.Status).IsDone() {
			continue
		}
		if err := p.ib.CancelOrder(ctx, o.OrderID); err != nil {
			log.Errorf("FlattenAll: cancel %d: %v", o.OrderID, err)
		}
	}

	positions, err := p.ib.Positions(ctx)
	if err != nil {
		return fmt.Errorf("FlattenAll: %w", err)
	}

	for _, pos := range positions {
		if pos.Position == 0 {
			continue
		}

		side := eventmodels.ActionSell
		if pos.Position < 0 {
			side = eventmodels.ActionBuy
		}

		ticket := ibclient.OrderTicket{
			AcctID:    p.ib.AccountID(),
			ConID:     pos.ConID,
			COID:      newCOID("flatten"),
			OrderType: orderTypeMarket,
			Side:      string(side),
			TIF:       tifGTC,
			Quantity:  math.Abs(pos.Position),
			Referrer:  "flatten",
		}

		if _, err := p.ib.PlaceOrders(ctx, []ibclient.OrderTicket{ticket}); err != nil {
			log.Errorf("FlattenAll: close %s: %v", pos.ContractDesc, err)
		}
	}

	return nil
}

// cancelWorking pulls every live order for the reference, best effort.
func (p *OrderPlacer) cancelWorking(ctx context.Context, ticker, ref string) {
	live, err := p.ib.LiveOrdersByRef(ctx, ref)
	if err != nil {
		log.Warnf("cancelWorking: %v", err)
		return
	}

	for _, o := range live {
		if eventmodels.OrderStatus(o.Status).IsDone() {
			continue
		}
		if err := p.ib.CancelOrder(ctx, o.OrderID); err != nil {
			log.Errorf("cancelWorking: order %d: %v", o.OrderID, err)
		}
	}

	if _, err := p.orders.MarkCancelled(ticker, ref, eventmodels.ActionUnknown); err != nil {
		log.Warnf("cancelWorking: store update failed: %v", err)
	}
}

func (p *OrderPlacer) positionFor(ctx context.Context, ticker string) (float64, error) {
	position, err := p.orders.PositionSize(ticker)
	if err != nil {
		return 0, err
	}
	if position != 0 {
		return position, nil
	}

	// The snapshot may be cold right after startup; ask the gateway.
	if err := p.RefreshPortfolio(ctx); err != nil {
		log.Warnf("positionFor: %v", err)
		return 0, nil
	}

	return p.orders.PositionSize(ticker)
}

// checkFunds compares the order's notional cost against the settled cash
// held in the order's own currency. Failing to read the ledger is logged but
// does not block the order.
func (p *OrderPlacer) checkFunds(ctx context.Context, order *eventmodels.TradingOrder) (eventmodels.ErrorState, error) {
	refPrice := order.Metrics.EntryLimit
	if refPrice <= 0 {
		refPrice = order.Metrics.Price
	}
	if refPrice <= 0 {
		return eventmodels.ErrorStateNone, nil
	}

	funds, err := p.ib.AvailableFunds(ctx, order.Currency)
	if err != nil {
		log.Warnf("checkFunds: %v", err)
		return eventmodels.ErrorStateNone, nil
	}

	cost := order.Metrics.Qty * refPrice
	if cost > funds {
		return eventmodels.ErrorStateNoFunds, fmt.Errorf("order cost %.2f exceeds available funds %.2f", cost, funds)
	}

	return eventmodels.ErrorStateNone, nil
}

// adjustMetrics snaps every price metric onto the contract's tick ladder.
func (p *OrderPlacer) adjustMetrics(ctx context.Context, contract ibclient.Contract, m eventmodels.OrderMetrics) (eventmodels.OrderMetrics, error) {
	var err error
	for _, price := range []*float64{&m.EntryLimit, &m.EntryStop, &m.ExitLimit, &m.ExitStop} {
		if *price <= 0 {
			continue
		}
		if *price, err = p.ib.AdjustPrice(ctx, contract.ConID, *price); err != nil {
			return m, err
		}
	}

	return m, nil
}

func (p *OrderPlacer) tifFor(kind eventmodels.ContractKind) string {
	if kind == eventmodels.ContractCrypto {
		return tifIOC
	}
	return tifGTC
}

// cryptoSupports reports whether the venue can express the order shape; the
// crypto exchange takes plain market and limit orders only.
func cryptoSupports(kind eventmodels.OrderKind) bool {
	return kind == eventmodels.OrderKindMarket || kind == eventmodels.OrderKindLimit
}

func (p *OrderPlacer) buildEntryTickets(order *eventmodels.TradingOrder, contract ibclient.Contract, m eventmodels.OrderMetrics) ([]ibclient.OrderTicket, error) {
	acct := p.ib.AccountID()
	tif := p.tifFor(order.Contract)
	reverse := string(order.Action.Reverse())

	parent := ibclient.OrderTicket{
		AcctID:   acct,
		ConID:    contract.ConID,
		COID:     newCOID(order.OrderRef),
		Side:     string(order.Action),
		TIF:      tif,
		Quantity: m.Qty,
		Referrer: order.OrderRef,
	}

	switch order.Kind {
	case eventmodels.OrderKindMarket, eventmodels.OrderKindBracketMarket,
		eventmodels.OrderKindMarketWithProfitTaker, eventmodels.OrderKindMarketWithStopLoss:
		parent.OrderType = orderTypeMarket
	case eventmodels.OrderKindLimit, eventmodels.OrderKindBracketLimit,
		eventmodels.OrderKindLimitWithProfitTaker, eventmodels.OrderKindLimitWithStopLoss:
		parent.OrderType = orderTypeLimit
		parent.Price = m.EntryLimit
	case eventmodels.OrderKindStop, eventmodels.OrderKindBracketStop:
		parent.OrderType = orderTypeStop
		parent.AuxPrice = m.EntryStop
	case eventmodels.OrderKindStopLimit:
		parent.OrderType = orderTypeStopLimit
		parent.Price = m.EntryLimit
		parent.AuxPrice = m.EntryStop
	default:
		return nil, fmt.Errorf("buildEntryTickets: unsupported kind %v", order.Kind)
	}

	if order.Contract == eventmodels.ContractCrypto && parent.OrderType == orderTypeMarket && order.Action == eventmodels.ActionBuy {
		// The crypto venue prices market buys in cash, not units, so the qty
		// metric carries the cash amount directly.
		parent.CashQty = m.Qty
		parent.Quantity = 0
	}

	tickets := []ibclient.OrderTicket{parent}

	withProfitTaker := false
	withStopLoss := false
	switch order.Kind {
	case eventmodels.OrderKindBracketLimit, eventmodels.OrderKindBracketStop, eventmodels.OrderKindBracketMarket:
		withProfitTaker = true
		withStopLoss = true
	case eventmodels.OrderKindMarketWithProfitTaker, eventmodels.OrderKindLimitWithProfitTaker:
		withProfitTaker = true
	case eventmodels.OrderKindMarketWithStopLoss, eventmodels.OrderKindLimitWithStopLoss:
		withStopLoss = true
	}

	if withProfitTaker {
		tickets = append(tickets, ibclient.OrderTicket{
			AcctID:    acct,
			ConID:     contract.ConID,
			COID:      newCOID(order.OrderRef),
			ParentID:  parent.COID,
			OrderType: orderTypeLimit,
			Side:      reverse,
			TIF:       tif,
			Quantity:  m.Qty,
			Price:     m.ExitLimit,
			Referrer:  order.OrderRef,
		})
	}

	if withStopLoss {
		tickets = append(tickets, ibclient.OrderTicket{
			AcctID:    acct,
			ConID:     contract.ConID,
			COID:      newCOID(order.OrderRef),
			ParentID:  parent.COID,
			OrderType: orderTypeStop,
			Side:      reverse,
			TIF:       tif,
			Quantity:  m.Qty,
			AuxPrice:  m.ExitStop,
			Referrer:  order.OrderRef,
		})
	}

	return tickets, nil
}

// recordTickets writes one store row per submitted leg.
func (p *OrderPlacer) recordTickets(order *eventmodels.TradingOrder, tickets []ibclient.OrderTicket, ids []int64) {
	var parentID int64
	if len(ids) > 0 {
		parentID = ids[0]
	}

	for i, ticket := range tickets {
		var orderID int64
		if i < len(ids) {
			orderID = ids[i]
		}

		rec := &eventmodels.OrderRecord{
			CreatedAt:   time.Now().UTC(),
			UniqueKey:   order.UniqueKey,
			TVPrice:     order.Metrics.Price,
			OrderID:     orderID,
			Ticker:      order.Symbol,
			Action:      ticket.Side,
			OrderType:   ticket.OrderType,
			Qty:         ticket.Quantity,
			LmtPrice:    ticket.Price,
			AuxPrice:    ticket.AuxPrice,
			OrderStatus: string(eventmodels.OrderStatusPendingSubmit),
			OrderRef:    order.OrderRef,
		}

		if ticket.ParentID != "" {
			rec.ParentID = parentID
		}

		if err := p.orders.Insert(rec); err != nil {
			log.Errorf("recordTickets: %v", err)
		}
	}
}

func newCOID(ref string) string {
	return fmt.Sprintf("%s-%s", ref, uuid.NewString()[:8])
}

// stateError carries a terminal disposition through an error path.
type stateError struct {
	state eventmodels.ErrorState
	msg   string
}

func (e *stateError) Error() string {
	return e.msg
}

func stateFromErr(err error) (eventmodels.ErrorState, bool) {
	if se, ok := err.(*stateError); ok {
		return se.state, true
	}
	return eventmodels.ErrorStateNone, false
}
