package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joripage/matching-core/pkg/buffer"
	"github.com/joripage/matching-core/pkg/marketdata"
	"github.com/joripage/matching-core/pkg/orderbook"
	"github.com/joripage/matching-core/pkg/protocol"
)

var ctx = context.Background()

// Measures how fast depth documents can be pushed to redis, one publisher per
// symbol, all sharing a client.
func main() {
	var (
		addr    string
		symbols int
		ops     int
		depth   int
	)
	flag.StringVar(&addr, "addr", "localhost:6379", "redis address")
	flag.IntVar(&symbols, "symbols", 10, "concurrent symbols")
	flag.IntVar(&ops, "ops", 1000, "publications per symbol")
	flag.IntVar(&depth, "depth", 20, "levels per side")
	flag.Parse()

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis unreachable: %v", err)
	}
	store := marketdata.NewRedisStore(rdb)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(symbols)
	errs := make([]int, symbols)

	for s := 0; s < symbols; s++ {
		go func(id int) {
			defer wg.Done()
			name := fmt.Sprintf("SYM%03d", id)
			pub := marketdata.NewDepthPublisher(store, "bench", time.Minute,
				marketdata.Instrument{ID: int32(id), Name: name, PriceScale: 100, SizeScale: 1}, nil)
			l2 := buildDepth(int32(id), depth)
			for i := 0; i < ops; i++ {
				if err := pub.Publish(ctx, uint64(i+1), l2); err != nil {
					errs[id]++
				}
			}
		}(s)
	}

	wg.Wait()
	duration := time.Since(start)

	failed := 0
	for _, n := range errs {
		failed += n
	}
	total := symbols * ops
	fmt.Printf("Published %d depth documents (%d failed) in %s (%.2f ops/sec)\n",
		total, failed, duration, float64(total)/duration.Seconds())

	raw, err := store.Get(ctx, marketdata.DepthKey("bench", "SYM000"))
	if err != nil {
		log.Fatalf("read back failed: %v", err)
	}
	fmt.Printf("SYM000 depth document: %d bytes\n", len(raw))
}

// buildDepth fills a book with depth levels per side and takes its L2
// snapshot through the binary query, so the document matches what the engine
// publishes.
func buildDepth(symbolID int32, depth int) *protocol.L2Response {
	proc := orderbook.NewProcessor(orderbook.SymbolSpec{SymbolID: symbolID}, nil)
	var id uint64
	for i := 0; i < depth; i++ {
		id++
		proc.Submit(protocol.PlaceOrder{UID: 1, OrderID: id, Price: int64(10_001 + i), Size: 10, Action: protocol.Ask, Type: protocol.GTC}, 0)
		id++
		proc.Submit(protocol.PlaceOrder{UID: 2, OrderID: id, Price: int64(10_000 - i), ReservedBidPrice: 10_000, Size: 10, Action: protocol.Bid, Type: protocol.GTC}, 0)
	}
	out, err := proc.Submit(protocol.L2Query{Limit: int32(depth)}, 0)
	if err != nil {
		log.Fatalf("l2 query failed: %v", err)
	}
	resp, err := protocol.Decode(buffer.NewReader(out))
	if err != nil {
		log.Fatalf("l2 decode failed: %v", err)
	}
	return resp.(*protocol.L2Response)
}
