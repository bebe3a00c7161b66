package orderbook

import "github.com/joripage/matching-core/pkg/protocol"

// Order is a resting limit order. Only Price, Size and Filled change while
// it lives in the book.
type Order struct {
	OrderID         uint64
	Price           int64
	Size            int64
	Filled          int64
	ReserveBidPrice int64 // BID only: price reserved by the risk layer
	Action          protocol.Action
	UID             uint64
	Timestamp       int64
}

func (o *Order) UnmatchedSize() int64 {
	return o.Size - o.Filled
}
