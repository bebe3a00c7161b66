package protocol

import (
	"errors"
	"fmt"

	"github.com/joripage/matching-core/pkg/buffer"
)

var ErrL2RecordCount = errors.New("L2 record counts do not match the message size")

// CommandResult is the header and tail of a command response as seen by a
// Handler. RemainingSize is only meaningful when OrderCompleted is false.
type CommandResult struct {
	Code           ResultCode
	UID            uint64
	OrderID        uint64
	Action         Action
	OrderCompleted bool
	RemainingSize  int64
}

// Handler receives decoded responses. Trade and reduce events are delivered
// before the result callback of the same message.
type Handler interface {
	OnTradeEvent(taker CommandResult, trade TradeEvent)
	OnReduceEvent(taker CommandResult, reduce ReduceEvent)
	OnPlaceResult(res CommandResult, userCookie int32)
	OnCancelResult(res CommandResult)
	OnMoveResult(res CommandResult)
	OnReduceResult(res CommandResult)
	// OnL2Result gets a view that is only valid during the call.
	OnL2Result(code ResultCode, view *L2View)
}

// NopHandler can be embedded to implement only some callbacks.
type NopHandler struct{}

func (NopHandler) OnTradeEvent(CommandResult, TradeEvent)   {}
func (NopHandler) OnReduceEvent(CommandResult, ReduceEvent) {}
func (NopHandler) OnPlaceResult(CommandResult, int32)       {}
func (NopHandler) OnCancelResult(CommandResult)             {}
func (NopHandler) OnMoveResult(CommandResult)               {}
func (NopHandler) OnReduceResult(CommandResult)             {}
func (NopHandler) OnL2Result(ResultCode, *L2View)           {}

// FastDecoder streams responses into a Handler without building response
// values. It is not safe for concurrent use.
type FastDecoder struct {
	handler Handler
	view    L2View
}

func NewFastDecoder(h Handler) *FastDecoder {
	return &FastDecoder{handler: h}
}

func (d *FastDecoder) Decode(r *buffer.Reader) error {
	if r.Size() < TagSize {
		return fmt.Errorf("%w: empty response", buffer.ErrOutOfBounds)
	}
	cmd := Command(r.GetUint8(0))
	if !cmd.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCommand, cmd)
	}
	if cmd == QueryL2 {
		if err := d.view.wrap(r); err != nil {
			return err
		}
		d.handler.OnL2Result(d.view.code, &d.view)
		d.view.r = nil
		return nil
	}

	l, err := commandLayout(r, cmd)
	if err != nil {
		return err
	}
	res := CommandResult{
		Code:           l.result.Code,
		UID:            r.GetUint64(TagSize),
		OrderID:        r.GetUint64(TagSize + 8),
		Action:         l.result.TakerAction(),
		OrderCompleted: l.result.TakerCompleted,
	}
	if l.remainingOffset >= 0 {
		res.RemainingSize = r.GetLong(l.remainingOffset)
	}
	for off := l.tradesStart; off < l.tradesEnd; off += TradeEventSize {
		d.handler.OnTradeEvent(res, readTradeEvent(r, off))
	}
	if l.reduceOffset >= 0 {
		d.handler.OnReduceEvent(res, readReduceEvent(r, l.reduceOffset))
	}
	if err := r.Err(); err != nil {
		return err
	}

	switch cmd {
	case CommandPlaceOrder:
		d.handler.OnPlaceResult(res, r.GetInt(HeaderSize))
	case CommandCancelOrder:
		d.handler.OnCancelResult(res)
	case CommandMoveOrder:
		d.handler.OnMoveResult(res)
	case CommandReduceOrder:
		d.handler.OnReduceResult(res)
	}
	return nil
}

// L2View reads L2 records in place: asks first, then bids.
type L2View struct {
	r    *buffer.Reader
	code ResultCode
	asks int
	bids int
}

func (v *L2View) wrap(r *buffer.Reader) error {
	size := r.Size()
	if size < TagSize+L2TailSize {
		return fmt.Errorf("%w: L2 response of %d bytes", buffer.ErrOutOfBounds, size)
	}
	code := UnpackResult(r.GetShort(size - ResultSize)).Code
	bids := int(r.GetInt(size - ResultSize - 4))
	asks := int(r.GetInt(size - ResultSize - 8))
	if asks < 0 || bids < 0 || TagSize+(asks+bids)*L2RecordSize != size-L2TailSize {
		return fmt.Errorf("%w: %d asks, %d bids in %d bytes", ErrL2RecordCount, asks, bids, size)
	}
	v.r, v.code, v.asks, v.bids = r, code, asks, bids
	return nil
}

func (v *L2View) ResultCode() ResultCode { return v.code }

func (v *L2View) AskCount() int { return v.asks }

func (v *L2View) BidCount() int { return v.bids }

func (v *L2View) IsEmpty() bool { return v.asks == 0 && v.bids == 0 }

func (v *L2View) Ask(i int) (L2Record, error) {
	if i < 0 || i >= v.asks {
		return L2Record{}, fmt.Errorf("%w: ask record %d of %d", buffer.ErrOutOfBounds, i, v.asks)
	}
	return readL2Record(v.r, TagSize+i*L2RecordSize), nil
}

func (v *L2View) Bid(i int) (L2Record, error) {
	if i < 0 || i >= v.bids {
		return L2Record{}, fmt.Errorf("%w: bid record %d of %d", buffer.ErrOutOfBounds, i, v.bids)
	}
	return readL2Record(v.r, TagSize+(v.asks+i)*L2RecordSize), nil
}

// ToResponse copies the view into an L2Response.
func (v *L2View) ToResponse() *L2Response {
	resp := &L2Response{
		Code: v.code,
		Asks: make([]L2Record, v.asks),
		Bids: make([]L2Record, v.bids),
	}
	for i := range resp.Asks {
		resp.Asks[i] = readL2Record(v.r, TagSize+i*L2RecordSize)
	}
	for i := range resp.Bids {
		resp.Bids[i] = readL2Record(v.r, TagSize+(v.asks+i)*L2RecordSize)
	}
	return resp
}
