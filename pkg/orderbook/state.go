package orderbook

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/joripage/matching-core/pkg/protocol"
)

func (ob *OrderBook) OrderByID(orderID uint64) (*Order, bool) {
	order, ok := ob.idIndex[orderID]
	return order, ok
}

// FindUserOrders returns the resting orders of uid, asks before bids, each
// side in price then queue order.
func (ob *OrderBook) FindUserOrders(uid uint64) []*Order {
	var list []*Order
	collect := func(o *Order) {
		if o.UID == uid {
			list = append(list, o)
		}
	}
	ob.forEachOrder(ob.asks, collect)
	ob.forEachOrder(ob.bids, collect)
	return list
}

// AskOrders lists resting asks in execution order.
func (ob *OrderBook) AskOrders() []*Order {
	var list []*Order
	ob.forEachOrder(ob.asks, func(o *Order) { list = append(list, o) })
	return list
}

// BidOrders lists resting bids in execution order.
func (ob *OrderBook) BidOrders() []*Order {
	var list []*Order
	ob.forEachOrder(ob.bids, func(o *Order) { list = append(list, o) })
	return list
}

func (ob *OrderBook) forEachOrder(side *priceLadder, fn func(*Order)) {
	side.ascend(func(b *bucket) bool {
		b.forEachOrder(fn)
		return true
	})
}

// VerifyInternalState checks every structural invariant of the book.
func (ob *OrderBook) VerifyInternalState() error {
	resident := 0
	for _, side := range []struct {
		action protocol.Action
		ladder *priceLadder
	}{
		{protocol.Ask, ob.asks},
		{protocol.Bid, ob.bids},
	} {
		l := side.ladder
		if len(l.prices) != len(l.buckets) {
			return fmt.Errorf("%w: %s ladder has %d prices and %d buckets", ErrInternalState, side.action, len(l.prices), len(l.buckets))
		}
		for i, price := range l.prices {
			if i > 0 && !l.better(price, l.prices[i-1]) {
				return fmt.Errorf("%w: %s prices out of order at %d", ErrInternalState, side.action, price)
			}
			b, ok := l.buckets[price]
			if !ok || b.price != price {
				return fmt.Errorf("%w: %s level %d has no matching bucket", ErrInternalState, side.action, price)
			}
			if b.numOrders() == 0 {
				return fmt.Errorf("%w: empty %s bucket at %d", ErrInternalState, side.action, price)
			}
			if err := b.validate(); err != nil {
				return err
			}
			var verr error
			b.forEachOrder(func(o *Order) {
				resident++
				if verr != nil {
					return
				}
				switch {
				case o.Action != side.action:
					verr = fmt.Errorf("%w: order %d of side %s rests on %s", ErrInternalState, o.OrderID, o.Action, side.action)
				case o.Price != price:
					verr = fmt.Errorf("%w: order %d priced %d rests at %d", ErrInternalState, o.OrderID, o.Price, price)
				case o.UnmatchedSize() <= 0:
					verr = fmt.Errorf("%w: order %d rests with nothing unmatched", ErrInternalState, o.OrderID)
				case ob.idIndex[o.OrderID] != o:
					verr = fmt.Errorf("%w: order %d", errInvalidOrderID, o.OrderID)
				}
			})
			if verr != nil {
				return verr
			}
		}
	}
	if resident != len(ob.idIndex) {
		return fmt.Errorf("%w: %d resting orders, %d indexed", errInvalidOrderID, resident, len(ob.idIndex))
	}
	return nil
}

// StateHash digests the resting orders of both sides in execution order and
// the symbol mode. Two books with the same content hash equally regardless
// of how they got there.
func (ob *OrderBook) StateHash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	hashOrder := func(o *Order) {
		put(o.OrderID)
		put(uint64(o.Price))
		put(uint64(o.Size))
		put(uint64(o.Filled))
		put(uint64(o.ReserveBidPrice))
		put(uint64(o.Action))
		put(o.UID)
	}
	ob.forEachOrder(ob.asks, hashOrder)
	put(0xFFFFFFFFFFFFFFFF)
	ob.forEachOrder(ob.bids, hashOrder)
	if ob.spec.IsExchangeType() {
		put(1)
	} else {
		put(0)
	}
	return h.Sum64()
}
