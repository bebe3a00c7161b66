package protocol

import "github.com/joripage/matching-core/pkg/buffer"

// EventsWriter appends response records in wire order:
// header, trade events, optional reduce event, optional remaining size,
// result code.
type EventsWriter struct {
	w *buffer.Writer
}

func NewEventsWriter(w *buffer.Writer) *EventsWriter {
	return &EventsWriter{w: w}
}

func (e *EventsWriter) Writer() *buffer.Writer { return e.w }

func (e *EventsWriter) AppendTag(cmd Command) {
	e.w.AppendByte(byte(cmd))
}

// AppendHeader writes tag, uid and order id.
func (e *EventsWriter) AppendHeader(cmd Command, uid, orderID uint64) {
	e.w.AppendByte(byte(cmd))
	e.w.AppendUint64(uid)
	e.w.AppendUint64(orderID)
}

func (e *EventsWriter) AppendPlaceHeader(uid, orderID uint64, userCookie int32) {
	e.AppendHeader(CommandPlaceOrder, uid, orderID)
	e.w.AppendInt(userCookie)
}

func (e *EventsWriter) AppendTradeEvent(makerOrderID, makerUID uint64, price, reservedBidPrice, volume int64, makerCompleted bool) {
	e.w.AppendUint64(makerOrderID)
	e.w.AppendUint64(makerUID)
	e.w.AppendLong(price)
	e.w.AppendLong(reservedBidPrice)
	e.w.AppendLong(volume)
	e.w.AppendBool(makerCompleted)
}

func (e *EventsWriter) AppendReduceEvent(price, reservedBidPrice, reducedVolume int64) {
	e.w.AppendLong(price)
	e.w.AppendLong(reservedBidPrice)
	e.w.AppendLong(reducedVolume)
}

func (e *EventsWriter) AppendRemainingSize(size int64) {
	e.w.AppendLong(size)
}

func (e *EventsWriter) AppendResult(r Result) {
	e.w.AppendShort(r.Pack())
}

func (e *EventsWriter) AppendL2Record(price, volume int64, orders int32) {
	e.w.AppendLong(price)
	e.w.AppendLong(volume)
	e.w.AppendInt(orders)
}

func (e *EventsWriter) AppendL2Tail(asks, bids int32, code ResultCode) {
	e.w.AppendInt(asks)
	e.w.AppendInt(bids)
	e.w.AppendShort(Result{Code: code}.Pack())
}
