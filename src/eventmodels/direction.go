package eventmodels

// Direction is the strategy intent string sent by the chart script.
type Direction string

const (
	DirectionEntryLong   Direction = "strategy.entrylong"
	DirectionEntryShort  Direction = "strategy.entryshort"
	DirectionExitLong    Direction = "strategy.exitlong"
	DirectionExitShort   Direction = "strategy.exitshort"
	DirectionClose       Direction = "strategy.close"
	DirectionCloseAll    Direction = "strategy.close_all"
	DirectionCancelLong  Direction = "strategy.cancellong"
	DirectionCancelShort Direction = "strategy.cancelshort"
	DirectionCancelAll   Direction = "strategy.cancel_all"
	DirectionAlert       Direction = "strategy.alert"
)

type Action string

const (
	ActionBuy     Action = "BUY"
	ActionSell    Action = "SELL"
	ActionUnknown Action = ""
)

// Action maps the strategy intent to a broker side. Close directions resolve
// their side later from the open position, so they report SELL here and the
// order placer flips it when the position is short.
func (d Direction) Action() Action {
	switch d {
	case DirectionEntryLong, DirectionExitShort:
		return ActionBuy
	case DirectionEntryShort, DirectionExitLong:
		return ActionSell
	case DirectionClose, DirectionCloseAll:
		return ActionSell
	case DirectionCancelLong:
		return ActionBuy
	case DirectionCancelShort:
		return ActionSell
	default:
		return ActionUnknown
	}
}

func (a Action) Reverse() Action {
	switch a {
	case ActionBuy:
		return ActionSell
	case ActionSell:
		return ActionBuy
	default:
		return ActionUnknown
	}
}

func (d Direction) IsEntry() bool {
	return d == DirectionEntryLong || d == DirectionEntryShort
}

func (d Direction) IsExit() bool {
	return d == DirectionExitLong || d == DirectionExitShort
}

func (d Direction) IsClose() bool {
	return d == DirectionClose || d == DirectionCloseAll
}

func (d Direction) IsCancel() bool {
	return d == DirectionCancelLong || d == DirectionCancelShort || d == DirectionCancelAll
}

func (d Direction) IsKnown() bool {
	switch d {
	case DirectionEntryLong, DirectionEntryShort, DirectionExitLong, DirectionExitShort,
		DirectionClose, DirectionCloseAll, DirectionCancelLong, DirectionCancelShort,
		DirectionCancelAll, DirectionAlert:
		return true
	default:
		return false
	}
}

// ContractKind selects the security type and routing for an alert.
type ContractKind string

const (
	ContractStock  ContractKind = "stock"
	ContractForex  ContractKind = "forex"
	ContractCrypto ContractKind = "crypto"
)
