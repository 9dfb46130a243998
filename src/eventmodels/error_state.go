package eventmodels

// ErrorState is the terminal disposition of a handled alert. SUBMITTED and
// CANCELLED are successes; everything else names the reason an alert did not
// turn into broker activity. The codes are stored verbatim and surfaced by
// the notifiers.
type ErrorState string

const (
	ErrorStateNone           ErrorState = ""
	ErrorStateSubmitted      ErrorState = "SUBMITTED"
	ErrorStateCancelled      ErrorState = "CANCELLED"
	ErrorStateUnrecognized   ErrorState = "UNRECOG"
	ErrorStateBadMessage     ErrorState = "EBADMSG"
	ErrorStateNoContract     ErrorState = "ENOCNTR"
	ErrorStateCalcQty        ErrorState = "ECALCQTY"
	ErrorStateQtyTooBig      ErrorState = "E2BIGQTY"
	ErrorStateBadOrderType   ErrorState = "EBADORDTP"
	ErrorStateNotSupported   ErrorState = "ENOTSUP"
	ErrorStateNoClosePos     ErrorState = "ENOCLSPOS"
	ErrorStateNoEntryInDB    ErrorState = "ENOENTRDB"
	ErrorStateNoEntryPosDB   ErrorState = "ENENTPOSDB"
	ErrorStateNoMarketPosDB  ErrorState = "ENOMKTPOSDB"
	ErrorStateNoActiveOrder  ErrorState = "ENOACTV"
	ErrorStateParentNotFill  ErrorState = "ENOPARFL"
	ErrorStateDuplicateOrder ErrorState = "EDUPORD"
	ErrorStateNoOpenTrade    ErrorState = "ENOOPNTRD"
	ErrorStateNoFunds        ErrorState = "ENOFUNDS"
)

func (s ErrorState) OK() bool {
	return s == ErrorStateSubmitted || s == ErrorStateCancelled || s == ErrorStateNone
}

func (s ErrorState) Description() string {
	switch s {
	case ErrorStateSubmitted:
		return "orders submitted to the gateway"
	case ErrorStateCancelled:
		return "matching orders cancelled"
	case ErrorStateUnrecognized:
		return "unrecognized strategy direction"
	case ErrorStateBadMessage:
		return "malformed webhook message"
	case ErrorStateNoContract:
		return "no tradable contract found"
	case ErrorStateCalcQty:
		return "failed to calculate order quantity"
	case ErrorStateQtyTooBig:
		return "calculated quantity exceeds broker position"
	case ErrorStateBadOrderType:
		return "unsupported combination of price metrics"
	case ErrorStateNotSupported:
		return "order shape not supported for this contract"
	case ErrorStateNoClosePos:
		return "no position to close"
	case ErrorStateNoEntryInDB:
		return "no matching entry order on record"
	case ErrorStateNoEntryPosDB:
		return "no filled entry position on record"
	case ErrorStateNoMarketPosDB:
		return "no market position on record"
	case ErrorStateNoActiveOrder:
		return "no active order to update or cancel"
	case ErrorStateParentNotFill:
		return "parent order has not filled"
	case ErrorStateDuplicateOrder:
		return "duplicate order reference"
	case ErrorStateNoOpenTrade:
		return "no open trade for this reference"
	case ErrorStateNoFunds:
		return "insufficient available funds"
	default:
		return "unknown state"
	}
}
