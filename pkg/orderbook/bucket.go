package orderbook

import (
	"fmt"

	"github.com/gammazero/deque"

	"github.com/joripage/matching-core/pkg/protocol"
)

// tradeEventWriter receives one trade per maker order touched by a match.
type tradeEventWriter interface {
	AppendTradeEvent(makerOrderID, makerUID uint64, price, reservedBidPrice, volume int64, makerCompleted bool)
}

// bucket holds the resting orders of one price level in time priority.
type bucket struct {
	price       int64
	orders      *deque.Deque[*Order]
	totalVolume int64
}

func newBucket(price int64) *bucket {
	return &bucket{
		price:  price,
		orders: &deque.Deque[*Order]{},
	}
}

func (b *bucket) put(order *Order) {
	b.orders.PushBack(order)
	b.totalVolume += order.UnmatchedSize()
}

func (b *bucket) remove(orderID uint64) (*Order, error) {
	i := b.orders.Index(func(o *Order) bool { return o.OrderID == orderID })
	if i < 0 {
		return nil, fmt.Errorf("%w: id %d at price %d", errUnknownOrder, orderID, b.price)
	}
	order := b.orders.Remove(i)
	b.totalVolume -= order.UnmatchedSize()
	return order, nil
}

// reduceSize adjusts the aggregate volume after an order in the bucket was
// reduced in place.
func (b *bucket) reduceSize(delta int64) {
	b.totalVolume -= delta
}

// match fills up to volumeToCollect from the oldest orders. Completed makers
// leave the bucket and their ids are appended to completed, which the caller
// owns and uses to purge its index.
func (b *bucket) match(volumeToCollect, takerReserveBidPrice int64, events tradeEventWriter, completed []uint64) (int64, []uint64) {
	var matched int64
	for b.orders.Len() > 0 && volumeToCollect > 0 {
		maker := b.orders.Front()
		v := min(volumeToCollect, maker.UnmatchedSize())
		matched += v
		volumeToCollect -= v
		maker.Filled += v
		b.totalVolume -= v

		makerCompleted := maker.UnmatchedSize() == 0

		// the bid side of the trade holds the reservation
		bidderHoldPrice := maker.ReserveBidPrice
		if maker.Action == protocol.Ask {
			bidderHoldPrice = takerReserveBidPrice
		}
		events.AppendTradeEvent(maker.OrderID, maker.UID, maker.Price, bidderHoldPrice, v, makerCompleted)

		if !makerCompleted {
			break
		}
		b.orders.PopFront()
		completed = append(completed, maker.OrderID)
	}
	return matched, completed
}

func (b *bucket) numOrders() int {
	return b.orders.Len()
}

// forEachOrder visits orders in execution-queue order.
func (b *bucket) forEachOrder(fn func(*Order)) {
	for i := 0; i < b.orders.Len(); i++ {
		fn(b.orders.At(i))
	}
}

func (b *bucket) ordersList() []*Order {
	list := make([]*Order, 0, b.orders.Len())
	b.forEachOrder(func(o *Order) { list = append(list, o) })
	return list
}

func (b *bucket) validate() error {
	var sum int64
	b.forEachOrder(func(o *Order) { sum += o.UnmatchedSize() })
	if sum != b.totalVolume {
		return fmt.Errorf("%w: price %d holds %d, recorded %d", errBucketVolume, b.price, sum, b.totalVolume)
	}
	return nil
}
