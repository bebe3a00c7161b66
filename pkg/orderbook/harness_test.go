package orderbook

import (
	"slices"
	"testing"

	"github.com/joripage/matching-core/pkg/buffer"
	"github.com/joripage/matching-core/pkg/protocol"
)

const (
	uid1 uint64 = 8320000192882333412
	uid2 uint64 = 8320000192882333413

	initialPrice int64 = 81600
	maxPrice     int64 = 400000

	// commands are written after a few unrelated bytes so offsets are
	// exercised
	cmdOffset = 5
)

type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// harness drives an OrderBook through encoded commands and decoded
// responses, verifying the book after each command.
type harness struct {
	t    fataler
	book *OrderBook
	in   *buffer.Writer
	out  *buffer.Writer
}

func newHarness(t fataler, exchange bool) *harness {
	out := buffer.NewWriter(256)
	return &harness{
		t:    t,
		book: New(SymbolSpec{SymbolID: 1, ExchangeType: exchange}, out, Options{}),
		in:   buffer.NewWriter(64),
		out:  out,
	}
}

func (h *harness) run(cmd protocol.Encodable) protocol.Response {
	h.t.Helper()
	h.in.Reset()
	h.in.Skip(cmdOffset)
	protocol.Append(h.in, cmd)
	r := buffer.NewReader(h.in.Bytes())

	h.out.Reset()
	var err error
	switch cmd.Command() {
	case protocol.CommandPlaceOrder:
		err = h.book.NewOrder(r, cmdOffset, 0)
	case protocol.CommandCancelOrder:
		err = h.book.CancelOrder(r, cmdOffset)
	case protocol.CommandReduceOrder:
		err = h.book.ReduceOrder(r, cmdOffset)
	case protocol.CommandMoveOrder:
		err = h.book.MoveOrder(r, cmdOffset)
	case protocol.QueryL2:
		err = h.book.SendL2Snapshot(r, cmdOffset)
	}
	if err != nil {
		h.t.Fatalf("%s failed: %v", cmd.Command(), err)
	}

	resp, err := protocol.Decode(buffer.NewReader(h.out.Bytes()))
	if err != nil {
		h.t.Fatalf("cannot decode %s response: %v", cmd.Command(), err)
	}
	if err := h.book.VerifyInternalState(); err != nil {
		h.t.Fatalf("after %s: %v", cmd.Command(), err)
	}
	return resp
}

func (h *harness) place(typ protocol.OrderType, orderID, uid uint64, price, reserve, size int64, action protocol.Action) *protocol.PlaceResponse {
	h.t.Helper()
	resp := h.run(protocol.PlaceOrder{
		UID:              uid,
		OrderID:          orderID,
		Price:            price,
		ReservedBidPrice: reserve,
		Size:             size,
		UserCookie:       int32(orderID),
		Action:           action,
		Type:             typ,
	}).(*protocol.PlaceResponse)
	if resp.UID != uid || resp.OrderID != orderID || resp.UserCookie != int32(orderID) {
		h.t.Fatalf("place header mismatch: %+v", resp)
	}
	return resp
}

func (h *harness) cancel(orderID, uid uint64) *protocol.CancelResponse {
	h.t.Helper()
	return h.run(protocol.CancelOrder{UID: uid, OrderID: orderID}).(*protocol.CancelResponse)
}

func (h *harness) reduce(orderID, uid uint64, size int64) *protocol.ReduceResponse {
	h.t.Helper()
	return h.run(protocol.ReduceOrder{UID: uid, OrderID: orderID, Size: size}).(*protocol.ReduceResponse)
}

func (h *harness) move(orderID, uid uint64, price int64) *protocol.MoveResponse {
	h.t.Helper()
	return h.run(protocol.MoveOrder{UID: uid, OrderID: orderID, Price: price}).(*protocol.MoveResponse)
}

func (h *harness) l2(limit int32) *protocol.L2Response {
	h.t.Helper()
	return h.run(protocol.L2Query{Limit: limit}).(*protocol.L2Response)
}

func (h *harness) expectL2(want *L2MarketData) {
	h.t.Helper()
	got := h.book.L2MarketDataSnapshot(-1)
	if !got.Equal(want) {
		h.t.Fatalf("unexpected depth\nwant %+v\ngot  %+v", want, got)
	}
}

// clear sweeps both sides with IOC orders and checks the book ends empty.
func (h *harness) clear() {
	h.t.Helper()
	snapshot := h.book.L2MarketDataSnapshot(-1)
	if v := snapshot.TotalAskVolume(); v > 0 {
		resp := h.place(protocol.IOC, 100000000000, ^uint64(0), maxPrice, maxPrice, v, protocol.Bid)
		if resp.Reduce != nil {
			h.t.Fatalf("ask sweep left %d unmatched", resp.Reduce.ReducedVolume)
		}
	}
	if v := snapshot.TotalBidVolume(); v > 0 {
		resp := h.place(protocol.IOC, 100000000001, ^uint64(0)-1, 1, 0, v, protocol.Ask)
		if resp.Reduce != nil {
			h.t.Fatalf("bid sweep left %d unmatched", resp.Reduce.ReducedVolume)
		}
	}
	empty := h.book.L2MarketDataSnapshot(-1)
	if empty.AskSize() != 0 || empty.BidSize() != 0 || len(h.book.idIndex) != 0 {
		h.t.Fatalf("book not empty after sweep: %+v", empty)
	}
}

func fixtureDepth() *L2MarketData {
	return &L2MarketData{
		AskPrices:  []int64{81599, 81600, 200954, 201000},
		AskVolumes: []int64{75, 100, 10, 60},
		AskOrders:  []int32{2, 1, 1, 2},
		BidPrices:  []int64{81593, 81590, 81200, 10000, 9136},
		BidVolumes: []int64{40, 21, 20, 13, 2},
		BidOrders:  []int32{1, 2, 1, 2, 1},
	}
}

// newFixture returns an exchange-mode book holding six asks and seven bids.
// The book is swept clean when the test ends.
func newFixture(t *testing.T) (*harness, *L2MarketData) {
	t.Helper()
	h := newHarness(t, true)

	h.place(protocol.GTC, ^uint64(0), uid2, initialPrice, 0, 13, protocol.Ask)
	h.cancel(^uint64(0), uid2)

	h.place(protocol.GTC, 1, uid1, 81600, 0, 100, protocol.Ask)
	h.place(protocol.GTC, 2, uid1, 81599, 0, 50, protocol.Ask)
	h.place(protocol.GTC, 3, uid1, 81599, 0, 25, protocol.Ask)
	h.place(protocol.GTC, 8, uid1, 201000, 0, 28, protocol.Ask)
	h.place(protocol.GTC, 9, uid1, 201000, 0, 32, protocol.Ask)
	h.place(protocol.GTC, 10, uid1, 200954, 0, 10, protocol.Ask)

	h.place(protocol.GTC, 4, uid1, 81593, 82000, 40, protocol.Bid)
	h.place(protocol.GTC, 5, uid1, 81590, 82000, 20, protocol.Bid)
	h.place(protocol.GTC, 6, uid1, 81590, 82000, 1, protocol.Bid)
	h.place(protocol.GTC, 7, uid1, 81200, 82000, 20, protocol.Bid)
	h.place(protocol.GTC, 11, uid1, 10000, 12000, 12, protocol.Bid)
	h.place(protocol.GTC, 12, uid1, 10000, 12000, 1, protocol.Bid)
	h.place(protocol.GTC, 13, uid1, 9136, 12000, 2, protocol.Bid)

	expected := fixtureDepth()
	h.expectL2(expected)
	t.Cleanup(h.clear)
	return h, expected
}

func removeLevel(prices, volumes []int64, orders []int32, i int) ([]int64, []int64, []int32) {
	return slices.Delete(prices, i, i+1), slices.Delete(volumes, i, i+1), slices.Delete(orders, i, i+1)
}

func (d *L2MarketData) removeAsk(i int) *L2MarketData {
	d.AskPrices, d.AskVolumes, d.AskOrders = removeLevel(d.AskPrices, d.AskVolumes, d.AskOrders, i)
	return d
}

func (d *L2MarketData) removeBid(i int) *L2MarketData {
	d.BidPrices, d.BidVolumes, d.BidOrders = removeLevel(d.BidPrices, d.BidVolumes, d.BidOrders, i)
	return d
}

func (d *L2MarketData) insertAsk(i int, price, volume int64) *L2MarketData {
	d.AskPrices = slices.Insert(d.AskPrices, i, price)
	d.AskVolumes = slices.Insert(d.AskVolumes, i, volume)
	d.AskOrders = slices.Insert(d.AskOrders, i, 1)
	return d
}

func (d *L2MarketData) insertBid(i int, price, volume int64) *L2MarketData {
	d.BidPrices = slices.Insert(d.BidPrices, i, price)
	d.BidVolumes = slices.Insert(d.BidVolumes, i, volume)
	d.BidOrders = slices.Insert(d.BidOrders, i, 1)
	return d
}

func expectTrade(t *testing.T, got protocol.TradeEvent, makerID uint64, price, volume int64) {
	t.Helper()
	if got.MakerOrderID != makerID || got.TradePrice != price || got.TradeVolume != volume {
		t.Fatalf("expected trade with %d at %d for %d, got %+v", makerID, price, volume, got)
	}
}

func expectSingleReduce(t *testing.T, resp *protocol.CommandResponse, action protocol.Action, price, reserve, volume int64, completed bool) {
	t.Helper()
	if resp.Code != protocol.Success {
		t.Fatalf("expected success, got %s", resp.Code)
	}
	block := resp.EventsBlock()
	if block == nil || block.ReduceEvent == nil || len(block.Trades) != 0 {
		t.Fatalf("expected a single reduce event, got %+v", block)
	}
	want := protocol.ReduceEvent{ReducedVolume: volume, Price: price, ReservedBidPrice: reserve}
	if *block.ReduceEvent != want {
		t.Fatalf("expected %+v, got %+v", want, *block.ReduceEvent)
	}
	if block.TakerAction != action || block.TakerOrderCompleted != completed {
		t.Fatalf("expected %s completed=%v, got %s completed=%v", action, completed, block.TakerAction, block.TakerOrderCompleted)
	}
}

func expectNoEvents(t *testing.T, resp *protocol.CommandResponse, code protocol.ResultCode) {
	t.Helper()
	if resp.Code != code {
		t.Fatalf("expected %s, got %s", code, resp.Code)
	}
	if block := resp.EventsBlock(); block != nil {
		t.Fatalf("expected no events, got %+v", block)
	}
}
