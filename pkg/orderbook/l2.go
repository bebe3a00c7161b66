package orderbook

import "slices"

// L2MarketData is aggregated depth, best price first on both sides.
type L2MarketData struct {
	AskPrices  []int64
	AskVolumes []int64
	AskOrders  []int32
	BidPrices  []int64
	BidVolumes []int64
	BidOrders  []int32
}

func (d *L2MarketData) AskSize() int { return len(d.AskPrices) }

func (d *L2MarketData) BidSize() int { return len(d.BidPrices) }

func (d *L2MarketData) TotalAskVolume() int64 {
	var total int64
	for _, v := range d.AskVolumes {
		total += v
	}
	return total
}

func (d *L2MarketData) TotalBidVolume() int64 {
	var total int64
	for _, v := range d.BidVolumes {
		total += v
	}
	return total
}

func (d *L2MarketData) Equal(o *L2MarketData) bool {
	return slices.Equal(d.AskPrices, o.AskPrices) &&
		slices.Equal(d.AskVolumes, o.AskVolumes) &&
		slices.Equal(d.AskOrders, o.AskOrders) &&
		slices.Equal(d.BidPrices, o.BidPrices) &&
		slices.Equal(d.BidVolumes, o.BidVolumes) &&
		slices.Equal(d.BidOrders, o.BidOrders)
}

// L2MarketDataSnapshot returns up to limit levels per side. A negative limit
// means all levels.
func (ob *OrderBook) L2MarketDataSnapshot(limit int) *L2MarketData {
	data := &L2MarketData{}
	ob.FillAsks(limit, data)
	ob.FillBids(limit, data)
	return data
}

// FillAsks overwrites the ask side of data, reusing its slices.
func (ob *OrderBook) FillAsks(limit int, data *L2MarketData) {
	data.AskPrices, data.AskVolumes, data.AskOrders = fillSide(ob.asks, limit,
		data.AskPrices[:0], data.AskVolumes[:0], data.AskOrders[:0])
}

// FillBids overwrites the bid side of data, reusing its slices.
func (ob *OrderBook) FillBids(limit int, data *L2MarketData) {
	data.BidPrices, data.BidVolumes, data.BidOrders = fillSide(ob.bids, limit,
		data.BidPrices[:0], data.BidVolumes[:0], data.BidOrders[:0])
}

func fillSide(side *priceLadder, limit int, prices, volumes []int64, orders []int32) ([]int64, []int64, []int32) {
	side.ascend(func(b *bucket) bool {
		if limit >= 0 && len(prices) == limit {
			return false
		}
		prices = append(prices, b.price)
		volumes = append(volumes, b.totalVolume)
		orders = append(orders, int32(b.numOrders()))
		return true
	})
	return prices, volumes, orders
}

// TotalAskBuckets returns the number of ask levels, capped at limit.
func (ob *OrderBook) TotalAskBuckets(limit int) int {
	return min(limit, ob.asks.Len())
}

func (ob *OrderBook) TotalBidBuckets(limit int) int {
	return min(limit, ob.bids.Len())
}
