package protocol

import (
	"fmt"

	"github.com/joripage/matching-core/pkg/buffer"
)

type TradeEvent struct {
	MakerOrderID        uint64
	MakerUID            uint64
	TradePrice          int64
	ReservedBidPrice    int64
	TradeVolume         int64
	MakerOrderCompleted bool
}

type ReduceEvent struct {
	ReducedVolume    int64
	Price            int64
	ReservedBidPrice int64
}

// TradeEventsBlock groups what happened to the taker order during one
// command.
type TradeEventsBlock struct {
	TakerOrderID        uint64
	TakerUID            uint64
	TakerAction         Action
	TakerOrderCompleted bool
	Trades              []TradeEvent
	ReduceEvent         *ReduceEvent
}

type Response interface {
	Command() Command
	ResultCode() ResultCode
}

// CommandResponse is the decoded form of a place, cancel, move or reduce
// response.
type CommandResponse struct {
	Code           ResultCode
	UID            uint64
	OrderID        uint64
	TakerAction    Action
	OrderCompleted bool
	// RemainingSize is only meaningful when OrderCompleted is false.
	RemainingSize int64
	Trades        []TradeEvent
	Reduce        *ReduceEvent
}

func (r *CommandResponse) ResultCode() ResultCode { return r.Code }

// EventsBlock returns nil when the command produced neither trades nor a
// reduce event.
func (r *CommandResponse) EventsBlock() *TradeEventsBlock {
	if len(r.Trades) == 0 && r.Reduce == nil {
		return nil
	}
	return &TradeEventsBlock{
		TakerOrderID:        r.OrderID,
		TakerUID:            r.UID,
		TakerAction:         r.TakerAction,
		TakerOrderCompleted: r.OrderCompleted,
		Trades:              r.Trades,
		ReduceEvent:         r.Reduce,
	}
}

type PlaceResponse struct {
	CommandResponse
	UserCookie int32
}

type CancelResponse struct{ CommandResponse }

type MoveResponse struct{ CommandResponse }

type ReduceResponse struct{ CommandResponse }

func (*PlaceResponse) Command() Command  { return CommandPlaceOrder }
func (*CancelResponse) Command() Command { return CommandCancelOrder }
func (*MoveResponse) Command() Command   { return CommandMoveOrder }
func (*ReduceResponse) Command() Command { return CommandReduceOrder }

type L2Record struct {
	Price  int64
	Volume int64
	Orders int32
}

type L2Response struct {
	Code ResultCode
	Asks []L2Record
	Bids []L2Record
}

func (*L2Response) Command() Command         { return QueryL2 }
func (r *L2Response) ResultCode() ResultCode { return r.Code }

// Decode parses one complete response message. The reader must cover
// exactly the message, since the layout is computed from its end.
func Decode(r *buffer.Reader) (Response, error) {
	if r.Size() < TagSize {
		return nil, fmt.Errorf("%w: empty response", buffer.ErrOutOfBounds)
	}
	cmd := Command(r.GetUint8(0))
	switch cmd {
	case CommandPlaceOrder:
		base, err := decodeCommand(r, cmd)
		if err != nil {
			return nil, err
		}
		return &PlaceResponse{CommandResponse: base, UserCookie: r.GetInt(HeaderSize)}, nil
	case CommandCancelOrder:
		base, err := decodeCommand(r, cmd)
		if err != nil {
			return nil, err
		}
		return &CancelResponse{base}, nil
	case CommandMoveOrder:
		base, err := decodeCommand(r, cmd)
		if err != nil {
			return nil, err
		}
		return &MoveResponse{base}, nil
	case CommandReduceOrder:
		base, err := decodeCommand(r, cmd)
		if err != nil {
			return nil, err
		}
		return &ReduceResponse{base}, nil
	case QueryL2:
		var view L2View
		if err := view.wrap(r); err != nil {
			return nil, err
		}
		return view.ToResponse(), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownCommand, cmd)
}

func decodeCommand(r *buffer.Reader, cmd Command) (CommandResponse, error) {
	l, err := commandLayout(r, cmd)
	if err != nil {
		return CommandResponse{}, err
	}
	resp := CommandResponse{
		Code:           l.result.Code,
		UID:            r.GetUint64(TagSize),
		OrderID:        r.GetUint64(TagSize + 8),
		TakerAction:    l.result.TakerAction(),
		OrderCompleted: l.result.TakerCompleted,
	}
	if l.remainingOffset >= 0 {
		resp.RemainingSize = r.GetLong(l.remainingOffset)
	}
	if n := l.tradeCount(); n > 0 {
		resp.Trades = make([]TradeEvent, n)
		for i := range resp.Trades {
			resp.Trades[i] = readTradeEvent(r, l.tradesStart+i*TradeEventSize)
		}
	}
	if l.reduceOffset >= 0 {
		ev := readReduceEvent(r, l.reduceOffset)
		resp.Reduce = &ev
	}
	return resp, r.Err()
}

// responseLayout locates the optional sections of a command response. The
// result code is the last field and its flags tell which sections precede
// it, so everything is addressed backwards from the message end.
type responseLayout struct {
	result          Result
	tradesStart     int
	tradesEnd       int
	reduceOffset    int
	remainingOffset int
}

func (l responseLayout) tradeCount() int {
	return (l.tradesEnd - l.tradesStart) / TradeEventSize
}

func commandLayout(r *buffer.Reader, cmd Command) (responseLayout, error) {
	size := r.Size()
	headerSize := HeaderSize
	if cmd == CommandPlaceOrder {
		headerSize = PlaceHeaderSize
	}
	if size < headerSize+ResultSize {
		return responseLayout{}, fmt.Errorf("%w: %s response of %d bytes", buffer.ErrOutOfBounds, cmd, size)
	}

	l := responseLayout{
		result:          UnpackResult(r.GetShort(size - ResultSize)),
		tradesStart:     headerSize,
		reduceOffset:    -1,
		remainingOffset: -1,
	}
	reduceEndRev := ResultSize
	if !l.result.TakerCompleted {
		reduceEndRev += RemainingSizeBytes
		l.remainingOffset = size - reduceEndRev
	}
	reduceStart := size - reduceEndRev
	if l.result.ReduceEvent {
		reduceStart -= ReduceEventSize
		l.reduceOffset = reduceStart
	}
	l.tradesEnd = reduceStart

	blockLen := l.tradesEnd - l.tradesStart
	if blockLen < 0 || blockLen%TradeEventSize != 0 {
		return responseLayout{}, fmt.Errorf("%w: %s response has %d bytes of trade events", ErrTradeBlockLength, cmd, blockLen)
	}
	if blockLen > 0 && cmd != CommandPlaceOrder && cmd != CommandMoveOrder {
		return responseLayout{}, fmt.Errorf("%w: %s response carries trade events", ErrTradeBlockLength, cmd)
	}
	return l, nil
}

func readTradeEvent(r *buffer.Reader, offset int) TradeEvent {
	return TradeEvent{
		MakerOrderID:        r.GetUint64(offset + TradeOffsetMakerOrderID),
		MakerUID:            r.GetUint64(offset + TradeOffsetMakerUID),
		TradePrice:          r.GetLong(offset + TradeOffsetPrice),
		ReservedBidPrice:    r.GetLong(offset + TradeOffsetReservedBidPrice),
		TradeVolume:         r.GetLong(offset + TradeOffsetVolume),
		MakerOrderCompleted: r.GetBool(offset + TradeOffsetMakerCompleted),
	}
}

func readReduceEvent(r *buffer.Reader, offset int) ReduceEvent {
	return ReduceEvent{
		Price:            r.GetLong(offset + ReduceEventOffsetPrice),
		ReservedBidPrice: r.GetLong(offset + ReduceEventOffsetReservedBidPrice),
		ReducedVolume:    r.GetLong(offset + ReduceEventOffsetVolume),
	}
}

func readL2Record(r *buffer.Reader, offset int) L2Record {
	return L2Record{
		Price:  r.GetLong(offset + L2RecordOffsetPrice),
		Volume: r.GetLong(offset + L2RecordOffsetVolume),
		Orders: r.GetInt(offset + L2RecordOffsetOrders),
	}
}
