package eventmodels

// OrderKind is the broker order shape derived from which price metrics an
// alert carries. Entries and exits interpret the same four metrics
// differently, so they classify through separate tables.
type OrderKind int

const (
	OrderKindUnsupported OrderKind = iota
	OrderKindMarket
	OrderKindLimit
	OrderKindStop
	OrderKindStopLimit
	OrderKindBracketLimit
	OrderKindBracketStop
	OrderKindBracketMarket
	OrderKindMarketWithProfitTaker
	OrderKindMarketWithStopLoss
	OrderKindLimitWithProfitTaker
	OrderKindLimitWithStopLoss
	OrderKindUpdateBracket
	OrderKindUpdateProfitTaker
	OrderKindUpdateStopLoss
)

func (k OrderKind) String() string {
	switch k {
	case OrderKindMarket:
		return "market"
	case OrderKindLimit:
		return "limit"
	case OrderKindStop:
		return "stop"
	case OrderKindStopLimit:
		return "stop-limit"
	case OrderKindBracketLimit:
		return "bracket-limit"
	case OrderKindBracketStop:
		return "bracket-stop"
	case OrderKindBracketMarket:
		return "bracket-market"
	case OrderKindMarketWithProfitTaker:
		return "market+profit-taker"
	case OrderKindMarketWithStopLoss:
		return "market+stop-loss"
	case OrderKindLimitWithProfitTaker:
		return "limit+profit-taker"
	case OrderKindLimitWithStopLoss:
		return "limit+stop-loss"
	case OrderKindUpdateBracket:
		return "update-bracket"
	case OrderKindUpdateProfitTaker:
		return "update-profit-taker"
	case OrderKindUpdateStopLoss:
		return "update-stop-loss"
	default:
		return "unsupported"
	}
}

// presence packs which of the four price metrics are set into four bits:
// entry.limit, entry.stop, exit.limit, exit.stop from high to low.
func (m OrderMetrics) presence() uint8 {
	var v uint8
	if m.EntryLimit > 0 {
		v |= 0b1000
	}
	if m.EntryStop > 0 {
		v |= 0b0100
	}
	if m.ExitLimit > 0 {
		v |= 0b0010
	}
	if m.ExitStop > 0 {
		v |= 0b0001
	}

	return v
}

// ClassifyEntry resolves the order shape for entrylong/entryshort alerts.
func ClassifyEntry(m OrderMetrics) OrderKind {
	switch m.presence() {
	case 0b0000:
		return OrderKindMarket
	case 0b1000:
		return OrderKindLimit
	case 0b0100:
		return OrderKindStop
	case 0b1100:
		return OrderKindStopLimit
	case 0b1011:
		return OrderKindBracketLimit
	case 0b0111:
		return OrderKindBracketStop
	case 0b0011:
		return OrderKindBracketMarket
	case 0b0010:
		return OrderKindMarketWithProfitTaker
	case 0b0001:
		return OrderKindMarketWithStopLoss
	case 0b1010:
		return OrderKindLimitWithProfitTaker
	case 0b1001:
		return OrderKindLimitWithStopLoss
	default:
		return OrderKindUnsupported
	}
}

// ClassifyExit resolves the order shape for exitlong/exitshort alerts, which
// only ever adjust the attached exit legs of an earlier entry.
func ClassifyExit(m OrderMetrics) OrderKind {
	switch m.presence() {
	case 0b0011:
		return OrderKindUpdateBracket
	case 0b0010:
		return OrderKindUpdateProfitTaker
	case 0b0001:
		return OrderKindUpdateStopLoss
	default:
		return OrderKindUnsupported
	}
}
