package main

import (
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/joripage/matching-core/pkg/buffer"
	"github.com/joripage/matching-core/pkg/orderbook"
	"github.com/joripage/matching-core/pkg/protocol"
)

const (
	minPrice = 10_000
	maxPrice = 10_100
	minQty   = 1
	maxQty   = 100
	numUsers = 16
)

type counters struct {
	protocol.NopHandler
	trades      int
	tradedQty   int64
	reduces     int
	placed      int
	cancelled   int
	moved       int
	reduced     int
	rejected    map[protocol.ResultCode]int
	depthLevels int
}

func (c *counters) OnTradeEvent(_ protocol.CommandResult, tr protocol.TradeEvent) {
	c.trades++
	c.tradedQty += tr.TradeVolume
}

func (c *counters) OnReduceEvent(protocol.CommandResult, protocol.ReduceEvent) { c.reduces++ }

func (c *counters) count(res protocol.CommandResult, ok *int) {
	if res.Code != protocol.Success {
		c.rejected[res.Code]++
		return
	}
	*ok++
}

func (c *counters) OnPlaceResult(res protocol.CommandResult, _ int32) { c.count(res, &c.placed) }
func (c *counters) OnCancelResult(res protocol.CommandResult)        { c.count(res, &c.cancelled) }
func (c *counters) OnMoveResult(res protocol.CommandResult)          { c.count(res, &c.moved) }
func (c *counters) OnReduceResult(res protocol.CommandResult)        { c.count(res, &c.reduced) }

func (c *counters) OnL2Result(_ protocol.ResultCode, v *protocol.L2View) {
	c.depthLevels += v.AskCount() + v.BidCount()
}

type workload struct {
	rnd    *rand.Rand
	nextID uint64
	live   []uint64
	owner  map[uint64]uint64
}

func (w *workload) price() int64 {
	return int64(minPrice + w.rnd.Intn(maxPrice-minPrice+1))
}

func (w *workload) next() protocol.Encodable {
	roll := w.rnd.Intn(100)
	if len(w.live) > 0 && roll < 30 {
		i := w.rnd.Intn(len(w.live))
		id := w.live[i]
		uid := w.owner[id]
		switch {
		case roll < 15:
			w.live[i] = w.live[len(w.live)-1]
			w.live = w.live[:len(w.live)-1]
			return protocol.CancelOrder{UID: uid, OrderID: id}
		case roll < 22:
			return protocol.MoveOrder{UID: uid, OrderID: id, Price: w.price()}
		default:
			return protocol.ReduceOrder{UID: uid, OrderID: id, Size: int64(w.rnd.Intn(maxQty) + 1)}
		}
	}
	if roll == 99 {
		return protocol.L2Query{Limit: 20}
	}

	w.nextID++
	action := protocol.Action(w.rnd.Intn(2))
	uid := uint64(w.rnd.Intn(numUsers) + 1)
	place := protocol.PlaceOrder{
		UID:              uid,
		OrderID:          w.nextID,
		Price:            w.price(),
		ReservedBidPrice: maxPrice,
		Size:             int64(w.rnd.Intn(maxQty-minQty+1) + minQty),
		UserCookie:       int32(w.nextID),
		Action:           action,
		Type:             protocol.GTC,
	}
	if roll >= 85 {
		place.Type = protocol.IOC
		return place
	}
	w.live = append(w.live, w.nextID)
	w.owner[w.nextID] = uid
	return place
}

func main() {
	var (
		numCommands int
		seed        int64
		exchange    bool
	)
	flag.IntVar(&numCommands, "n", 1_000_000, "number of commands")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	flag.BoolVar(&exchange, "exchange", true, "run the symbol in exchange mode")
	flag.Parse()

	proc := orderbook.NewProcessor(orderbook.SymbolSpec{SymbolID: 1, ExchangeType: exchange}, nil)
	stats := &counters{rejected: map[protocol.ResultCode]int{}}
	decoder := protocol.NewFastDecoder(stats)

	w := &workload{rnd: rand.New(rand.NewSource(seed)), owner: map[uint64]uint64{}}
	frames := make([][]byte, numCommands)
	for i := range frames {
		frames[i] = protocol.Frame(w.next())
	}

	start := time.Now()
	for i, frame := range frames {
		out, err := proc.Process(frame, int64(i))
		if err != nil {
			fmt.Printf("command %d failed: %v\n", i, err)
			return
		}
		if err := decoder.Decode(buffer.NewReader(out)); err != nil {
			fmt.Printf("response %d undecodable: %v\n", i, err)
			return
		}
	}
	elapsed := time.Since(start)

	fmt.Println("--------")
	fmt.Printf("Seed             : %d\n", seed)
	fmt.Printf("Commands         : %d\n", numCommands)
	fmt.Printf("Placed           : %d\n", stats.placed)
	fmt.Printf("Cancelled        : %d\n", stats.cancelled)
	fmt.Printf("Moved            : %d\n", stats.moved)
	fmt.Printf("Reduced          : %d\n", stats.reduced)
	fmt.Printf("Rejected         : %v\n", stats.rejected)
	fmt.Printf("Trades           : %d\n", stats.trades)
	fmt.Printf("Traded Qty       : %d\n", stats.tradedQty)
	fmt.Printf("Reduce Events    : %d\n", stats.reduces)
	fmt.Printf("L2 Levels Seen   : %d\n", stats.depthLevels)
	fmt.Printf("Time Taken       : %s\n", elapsed)
	fmt.Printf("Throughput       : %.0f cmd/s\n", float64(numCommands)/elapsed.Seconds())

	if err := proc.VerifyInternalState(); err != nil {
		fmt.Printf("order book inconsistent: %v\n", err)
		return
	}
	fmt.Printf("State Hash       : %016x\n", proc.StateHash())
}
