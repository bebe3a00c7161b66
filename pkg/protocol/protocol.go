// Package protocol holds the fixed-layout binary command and response
// records exchanged with the matching engine.
package protocol

import "strconv"

type Command byte

const (
	CommandPlaceOrder  Command = 1
	CommandCancelOrder Command = 2
	CommandMoveOrder   Command = 3
	CommandReduceOrder Command = 4
	QueryL2            Command = 5
)

func (c Command) String() string {
	switch c {
	case CommandPlaceOrder:
		return "PLACE_ORDER"
	case CommandCancelOrder:
		return "CANCEL_ORDER"
	case CommandMoveOrder:
		return "MOVE_ORDER"
	case CommandReduceOrder:
		return "REDUCE_ORDER"
	case QueryL2:
		return "L2_QUERY"
	}
	return "COMMAND(" + strconv.Itoa(int(c)) + ")"
}

// Valid reports whether c is one of the known command tags.
func (c Command) Valid() bool {
	return c >= CommandPlaceOrder && c <= QueryL2
}

type Action byte

const (
	Ask Action = 0
	Bid Action = 1
)

func (a Action) String() string {
	if a == Bid {
		return "BID"
	}
	return "ASK"
}

func (a Action) Opposite() Action {
	if a == Bid {
		return Ask
	}
	return Bid
}

type OrderType byte

const (
	GTC       OrderType = 0
	IOC       OrderType = 1
	IOCBudget OrderType = 2
	FOK       OrderType = 3
	FOKBudget OrderType = 4
)

func (t OrderType) String() string {
	switch t {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case IOCBudget:
		return "IOC_BUDGET"
	case FOK:
		return "FOK"
	case FOKBudget:
		return "FOK_BUDGET"
	}
	return "ORDER_TYPE(" + strconv.Itoa(int(t)) + ")"
}

type ResultCode int16

const (
	Success                      ResultCode = 0
	UnknownOrderID               ResultCode = 1
	UnsupportedCommand           ResultCode = 2
	InvalidOrderBookID           ResultCode = 3
	IncorrectOrderSize           ResultCode = 4
	IncorrectReduceSize          ResultCode = 5
	MoveFailedPriceOverRiskLimit ResultCode = 6
	UnsupportedOrderType         ResultCode = 7
	IncorrectL2SizeLimit         ResultCode = 8
	UnknownSymbol                ResultCode = 9
)

var resultCodeNames = [...]string{
	"SUCCESS",
	"UNKNOWN_ORDER_ID",
	"UNSUPPORTED_COMMAND",
	"INVALID_ORDER_BOOK_ID",
	"INCORRECT_ORDER_SIZE",
	"INCORRECT_REDUCE_SIZE",
	"MOVE_FAILED_PRICE_OVER_RISK_LIMIT",
	"UNSUPPORTED_ORDER_TYPE",
	"INCORRECT_L2_SIZE_LIMIT",
	"UNKNOWN_SYMBOL",
}

func (c ResultCode) String() string {
	if c >= 0 && int(c) < len(resultCodeNames) {
		return resultCodeNames[c]
	}
	return "RESULT_CODE(" + strconv.Itoa(int(c)) + ")"
}

// Command record layouts, offsets relative to the record start.
const (
	PlaceOffsetUID              = 0
	PlaceOffsetOrderID          = 8
	PlaceOffsetPrice            = 16
	PlaceOffsetReservedBidPrice = 24
	PlaceOffsetSize             = 32
	PlaceOffsetUserCookie       = 40
	PlaceOffsetAction           = 44
	PlaceOffsetType             = 45
	PlaceRecordSize             = 46

	CancelOffsetUID     = 0
	CancelOffsetOrderID = 8
	CancelRecordSize    = 16

	ReduceOffsetUID     = 0
	ReduceOffsetOrderID = 8
	ReduceOffsetSize    = 16
	ReduceRecordSize    = 24

	MoveOffsetUID     = 0
	MoveOffsetOrderID = 8
	MoveOffsetPrice   = 16
	MoveRecordSize    = 24

	L2OffsetLimit     = 0
	L2QueryRecordSize = 4
)

// Response layouts.
const (
	TagSize            = 1
	HeaderSize         = TagSize + 8 + 8
	PlaceHeaderSize    = HeaderSize + 4
	ResultSize         = 2
	RemainingSizeBytes = 8

	TradeOffsetMakerOrderID     = 0
	TradeOffsetMakerUID         = 8
	TradeOffsetPrice            = 16
	TradeOffsetReservedBidPrice = 24
	TradeOffsetVolume           = 32
	TradeOffsetMakerCompleted   = 40
	TradeEventSize              = 41

	ReduceEventOffsetPrice            = 0
	ReduceEventOffsetReservedBidPrice = 8
	ReduceEventOffsetVolume           = 16
	ReduceEventSize                   = 24

	L2RecordOffsetPrice  = 0
	L2RecordOffsetVolume = 8
	L2RecordOffsetOrders = 16
	L2RecordSize         = 20

	// L2 tail: askCount(4) bidCount(4) result(2), addressed from the end.
	L2TailSize = 4 + 4 + ResultSize
)
