package orderbook

// tryMatchInstantly sweeps the given side best level first, starting from an
// already filled amount, and returns the new filled amount. When bounded is
// set only levels at limit or better take part. Emptied levels are dropped
// and completed makers are purged from the index.
func (ob *OrderBook) tryMatchInstantly(takerSize, takerReserveBidPrice int64, side *priceLadder, bounded bool, limit, filled int64) int64 {
	for filled < takerSize {
		b := side.best()
		if b == nil || (bounded && side.better(limit, b.price)) {
			break
		}

		var matched int64
		matched, ob.completed = b.match(takerSize-filled, takerReserveBidPrice, ob.events, ob.completed[:0])
		filled += matched

		for _, id := range ob.completed {
			delete(ob.idIndex, id)
		}
		if b.numOrders() == 0 {
			side.delete(b.price)
		}
	}
	return filled
}

// checkBudgetToFill returns what filling size from the whole side would
// cost, or false when the side cannot supply size.
func checkBudgetToFill(size int64, side *priceLadder) (int64, bool) {
	var budget int64
	side.ascend(func(b *bucket) bool {
		if size > b.totalVolume {
			size -= b.totalVolume
			budget += b.totalVolume * b.price
			return true
		}
		budget += size * b.price
		size = 0
		return false
	})
	return budget, size == 0
}
