// file: pkg/orderbook/orderbook.go

package orderbook

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/joripage/matching-core/pkg/buffer"
	"github.com/joripage/matching-core/pkg/protocol"
)

type Options struct {
	Debug  bool
	Logger *zap.Logger
}

// OrderBook matches orders of a single instrument. Handlers read a command
// record from a buffer and append the response to the output writer. A
// handler returns an error only when the book is corrupted or the record
// cannot be read; rejections are reported as result codes.
//
// OrderBook is not safe for concurrent use.
type OrderBook struct {
	spec SymbolSpecification

	asks *priceLadder // lowest price is best
	bids *priceLadder // highest price is best

	idIndex map[uint64]*Order

	events    *protocol.EventsWriter
	completed []uint64

	debug  bool
	logger *zap.Logger
}

func New(spec SymbolSpecification, out *buffer.Writer, opts Options) *OrderBook {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderBook{
		spec:    spec,
		asks:    newPriceLadder(func(a, b int64) bool { return a < b }),
		bids:    newPriceLadder(func(a, b int64) bool { return a > b }),
		idIndex: make(map[uint64]*Order),
		events:  protocol.NewEventsWriter(out),
		debug:   opts.Debug,
		logger:  logger,
	}
}

func (ob *OrderBook) SymbolSpec() SymbolSpecification {
	return ob.spec
}

func (ob *OrderBook) side(action protocol.Action) *priceLadder {
	if action == protocol.Bid {
		return ob.bids
	}
	return ob.asks
}

func (ob *OrderBook) opposite(action protocol.Action) *priceLadder {
	return ob.side(action.Opposite())
}

// NewOrder handles a place record at offset.
func (ob *OrderBook) NewOrder(r *buffer.Reader, offset int, timestamp int64) error {
	cmd, err := protocol.ReadPlaceOrder(r, offset)
	if err != nil {
		return err
	}
	ob.events.AppendPlaceHeader(cmd.UID, cmd.OrderID, cmd.UserCookie)

	if ob.debug {
		ob.logger.Debug("place order",
			zap.Uint64("order_id", cmd.OrderID),
			zap.Uint64("uid", cmd.UID),
			zap.Stringer("action", cmd.Action),
			zap.Stringer("type", cmd.Type),
			zap.Int64("price", cmd.Price),
			zap.Int64("size", cmd.Size),
		)
	}

	if cmd.Size <= 0 {
		ob.events.AppendResult(protocol.NewResult(protocol.IncorrectOrderSize, true, cmd.Action, false))
		return nil
	}

	switch cmd.Type {
	case protocol.GTC:
		ob.placeGtc(cmd, timestamp)
	case protocol.IOC:
		ob.matchIoc(cmd)
	case protocol.FOKBudget:
		return ob.matchFokBudget(cmd)
	default:
		ob.logger.Warn("unsupported order type",
			zap.Uint64("order_id", cmd.OrderID),
			zap.Stringer("type", cmd.Type),
		)
		ob.events.AppendResult(protocol.NewResult(protocol.UnsupportedOrderType, true, cmd.Action, false))
	}
	return nil
}

func (ob *OrderBook) placeGtc(cmd protocol.PlaceOrder, timestamp int64) {
	filled := ob.tryMatchInstantly(cmd.Size, cmd.ReservedBidPrice, ob.opposite(cmd.Action), true, cmd.Price, 0)
	if filled == cmd.Size {
		ob.events.AppendResult(protocol.NewResult(protocol.Success, true, cmd.Action, false))
		return
	}

	remaining := cmd.Size - filled
	if _, exists := ob.idIndex[cmd.OrderID]; exists {
		// the trades stand, the remainder is rejected
		ob.logger.Warn("duplicate order id, rejecting unmatched remainder",
			zap.Uint64("order_id", cmd.OrderID),
			zap.Uint64("uid", cmd.UID),
			zap.Int64("rejected", remaining),
		)
		ob.events.AppendReduceEvent(cmd.Price, cmd.ReservedBidPrice, remaining)
		ob.events.AppendResult(protocol.NewResult(protocol.Success, true, cmd.Action, true))
		return
	}

	order := &Order{
		OrderID:         cmd.OrderID,
		Price:           cmd.Price,
		Size:            cmd.Size,
		Filled:          filled,
		ReserveBidPrice: cmd.ReservedBidPrice,
		Action:          cmd.Action,
		UID:             cmd.UID,
		Timestamp:       timestamp,
	}
	ob.side(cmd.Action).getOrCreate(cmd.Price).put(order)
	ob.idIndex[cmd.OrderID] = order

	ob.events.AppendRemainingSize(remaining)
	ob.events.AppendResult(protocol.NewResult(protocol.Success, false, cmd.Action, false))
}

func (ob *OrderBook) matchIoc(cmd protocol.PlaceOrder) {
	filled := ob.tryMatchInstantly(cmd.Size, cmd.ReservedBidPrice, ob.opposite(cmd.Action), true, cmd.Price, 0)
	rejected := cmd.Size - filled
	if rejected != 0 {
		ob.events.AppendReduceEvent(cmd.Price, cmd.ReservedBidPrice, rejected)
	}
	ob.events.AppendResult(protocol.NewResult(protocol.Success, true, cmd.Action, rejected != 0))
}

// matchFokBudget fills the whole size or nothing. The price field carries
// the budget: the most a bid may spend in total, or the least an ask must
// receive.
func (ob *OrderBook) matchFokBudget(cmd protocol.PlaceOrder) error {
	opposite := ob.opposite(cmd.Action)
	budget, enough := checkBudgetToFill(cmd.Size, opposite)
	canMatch := enough && (budget == cmd.Price || ((cmd.Action == protocol.Bid) != (budget > cmd.Price)))

	if ob.debug {
		ob.logger.Debug("budget check",
			zap.Uint64("order_id", cmd.OrderID),
			zap.Int64("budget", budget),
			zap.Int64("limit", cmd.Price),
			zap.Bool("can_match", canMatch),
		)
	}

	if canMatch {
		filled := ob.tryMatchInstantly(cmd.Size, cmd.ReservedBidPrice, opposite, false, 0, 0)
		if filled != cmd.Size {
			return fmt.Errorf("%w: order %d filled %d of %d", errFokBudgetFill, cmd.OrderID, filled, cmd.Size)
		}
	} else {
		ob.events.AppendReduceEvent(cmd.Price, cmd.ReservedBidPrice, cmd.Size)
	}
	ob.events.AppendResult(protocol.NewResult(protocol.Success, true, cmd.Action, !canMatch))
	return nil
}

// lookup returns the order only when it belongs to uid.
func (ob *OrderBook) lookup(orderID, uid uint64) (*Order, bool) {
	order, ok := ob.idIndex[orderID]
	if !ok || order.UID != uid {
		return nil, false
	}
	return order, true
}

func (ob *OrderBook) unknownOrder() {
	ob.events.AppendResult(protocol.NewResult(protocol.UnknownOrderID, true, protocol.Ask, false))
}

// removeOrder takes a resting order out of the index and its bucket.
func (ob *OrderBook) removeOrder(order *Order) error {
	delete(ob.idIndex, order.OrderID)
	side := ob.side(order.Action)
	b := side.get(order.Price)
	if b == nil {
		return fmt.Errorf("%w: no %s level %d for order %d", errUnknownOrder, order.Action, order.Price, order.OrderID)
	}
	if _, err := b.remove(order.OrderID); err != nil {
		return err
	}
	if b.numOrders() == 0 {
		side.delete(order.Price)
	}
	return nil
}

func (ob *OrderBook) CancelOrder(r *buffer.Reader, offset int) error {
	cmd, err := protocol.ReadCancelOrder(r, offset)
	if err != nil {
		return err
	}
	ob.events.AppendHeader(protocol.CommandCancelOrder, cmd.UID, cmd.OrderID)

	order, ok := ob.lookup(cmd.OrderID, cmd.UID)
	if !ok {
		ob.unknownOrder()
		return nil
	}
	if err := ob.removeOrder(order); err != nil {
		return err
	}

	if ob.debug {
		ob.logger.Debug("cancel order", zap.Uint64("order_id", order.OrderID), zap.Int64("unmatched", order.UnmatchedSize()))
	}

	ob.events.AppendReduceEvent(order.Price, order.ReserveBidPrice, order.UnmatchedSize())
	ob.events.AppendResult(protocol.NewResult(protocol.Success, true, order.Action, true))
	return nil
}

func (ob *OrderBook) ReduceOrder(r *buffer.Reader, offset int) error {
	cmd, err := protocol.ReadReduceOrder(r, offset)
	if err != nil {
		return err
	}
	ob.events.AppendHeader(protocol.CommandReduceOrder, cmd.UID, cmd.OrderID)

	order, ok := ob.lookup(cmd.OrderID, cmd.UID)
	if !ok {
		ob.unknownOrder()
		return nil
	}
	if cmd.Size <= 0 {
		ob.events.AppendRemainingSize(order.UnmatchedSize())
		ob.events.AppendResult(protocol.NewResult(protocol.IncorrectReduceSize, false, order.Action, false))
		return nil
	}

	remaining := order.UnmatchedSize()
	reduceBy := min(remaining, cmd.Size)
	canRemove := reduceBy == remaining

	ob.events.AppendReduceEvent(order.Price, order.ReserveBidPrice, reduceBy)
	if canRemove {
		if err := ob.removeOrder(order); err != nil {
			return err
		}
	} else {
		b := ob.side(order.Action).get(order.Price)
		if b == nil {
			return fmt.Errorf("%w: no %s level %d for order %d", errUnknownOrder, order.Action, order.Price, order.OrderID)
		}
		order.Size -= reduceBy
		b.reduceSize(reduceBy)
		ob.events.AppendRemainingSize(order.UnmatchedSize())
	}

	if ob.debug {
		ob.logger.Debug("reduce order", zap.Uint64("order_id", order.OrderID), zap.Int64("reduced", reduceBy), zap.Bool("removed", canRemove))
	}

	ob.events.AppendResult(protocol.NewResult(protocol.Success, canRemove, order.Action, true))
	return nil
}

func (ob *OrderBook) MoveOrder(r *buffer.Reader, offset int) error {
	cmd, err := protocol.ReadMoveOrder(r, offset)
	if err != nil {
		return err
	}
	ob.events.AppendHeader(protocol.CommandMoveOrder, cmd.UID, cmd.OrderID)

	order, ok := ob.lookup(cmd.OrderID, cmd.UID)
	if !ok {
		ob.unknownOrder()
		return nil
	}

	if ob.spec.IsExchangeType() && order.Action == protocol.Bid && cmd.Price > order.ReserveBidPrice {
		ob.events.AppendRemainingSize(order.UnmatchedSize())
		ob.events.AppendResult(protocol.NewResult(protocol.MoveFailedPriceOverRiskLimit, false, order.Action, false))
		return nil
	}

	side := ob.side(order.Action)
	b := side.get(order.Price)
	if b == nil {
		return fmt.Errorf("%w: no %s level %d for order %d", errUnknownOrder, order.Action, order.Price, order.OrderID)
	}
	if _, err := b.remove(order.OrderID); err != nil {
		return err
	}
	if b.numOrders() == 0 {
		side.delete(order.Price)
	}

	if ob.debug {
		ob.logger.Debug("move order", zap.Uint64("order_id", order.OrderID), zap.Int64("from", order.Price), zap.Int64("to", cmd.Price))
	}

	order.Price = cmd.Price
	order.Filled = ob.tryMatchInstantly(order.Size, order.ReserveBidPrice, ob.opposite(order.Action), true, cmd.Price, order.Filled)

	if order.UnmatchedSize() == 0 {
		delete(ob.idIndex, order.OrderID)
		ob.events.AppendResult(protocol.NewResult(protocol.Success, true, order.Action, false))
		return nil
	}

	side.getOrCreate(cmd.Price).put(order)
	ob.events.AppendRemainingSize(order.UnmatchedSize())
	ob.events.AppendResult(protocol.NewResult(protocol.Success, false, order.Action, false))
	return nil
}

// SendL2Snapshot writes up to limit levels per side, asks first.
func (ob *OrderBook) SendL2Snapshot(r *buffer.Reader, offset int) error {
	query, err := protocol.ReadL2Query(r, offset)
	if err != nil {
		return err
	}
	ob.events.AppendTag(protocol.QueryL2)

	if query.Limit <= 0 {
		ob.events.AppendL2Tail(0, 0, protocol.IncorrectL2SizeLimit)
		return nil
	}

	limit := int(query.Limit)
	asks := ob.appendLevels(ob.asks, limit)
	bids := ob.appendLevels(ob.bids, limit)
	ob.events.AppendL2Tail(int32(asks), int32(bids), protocol.Success)
	return nil
}

func (ob *OrderBook) appendLevels(side *priceLadder, limit int) int {
	n := 0
	side.ascend(func(b *bucket) bool {
		if n == limit {
			return false
		}
		ob.events.AppendL2Record(b.price, b.totalVolume, int32(b.numOrders()))
		n++
		return true
	})
	return n
}
