package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/joripage/matching-core/pkg/buffer"
	"github.com/joripage/matching-core/pkg/journal"
	"github.com/joripage/matching-core/pkg/orderbook"
	"github.com/joripage/matching-core/pkg/protocol"
)

type recordingPublisher struct {
	fail    int
	records []journal.Record
}

func (p *recordingPublisher) PublishRecords(_ context.Context, recs ...journal.Record) error {
	if p.fail > 0 {
		p.fail--
		return errors.New("broker down")
	}
	p.records = append(p.records, recs...)
	return nil
}

type recordingDepth struct {
	seqs []uint64
	last *protocol.L2Response
}

func (d *recordingDepth) Publish(_ context.Context, seq uint64, l2 *protocol.L2Response) error {
	d.seqs = append(d.seqs, seq)
	d.last = l2
	return nil
}

func message(offset int64, cmd protocol.Encodable) journal.Message {
	return journal.Message{Topic: "commands", Offset: offset, Value: protocol.Frame(cmd)}
}

func newTestService(pub ResponsePublisher, depth DepthSink, every int) *Service {
	proc := orderbook.NewProcessor(orderbook.SymbolSpec{SymbolID: 1}, &orderbook.ProcessorConfig{VerifyEveryCommand: true})
	return NewService(proc, pub, depth, Config{Symbol: "BTC-USD", EventsTopic: "events", L2Depth: 5, PublishEvery: every})
}

func TestHandleBatchPublishesResponses(t *testing.T) {
	pub := &recordingPublisher{}
	depth := &recordingDepth{}
	svc := newTestService(pub, depth, 2)

	batch := []journal.Message{
		message(0, protocol.PlaceOrder{UID: 1, OrderID: 1, Price: 100, Size: 10, Action: protocol.Ask, Type: protocol.GTC}),
		message(1, protocol.PlaceOrder{UID: 2, OrderID: 2, Price: 100, ReservedBidPrice: 100, Size: 4, Action: protocol.Bid, Type: protocol.IOC}),
		{Topic: "commands", Offset: 2, Value: []byte{99}},
	}
	if err := svc.HandleBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pub.records) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(pub.records))
	}
	rec := pub.records[1]
	if rec.Headers[journal.HeaderSeq] != "2" || string(rec.Key) != "BTC-USD" || rec.Topic != "events" {
		t.Fatalf("unexpected record %+v", rec)
	}
	resp, err := protocol.Decode(buffer.NewReader(rec.Value))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	place := resp.(*protocol.PlaceResponse)
	if len(place.Trades) != 1 || place.Trades[0].TradeVolume != 4 || place.OrderID != 2 {
		t.Fatalf("unexpected response %+v", place)
	}

	if stats := svc.Stats(); stats.Seq != 2 || stats.Rejected != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(depth.seqs) != 1 || depth.seqs[0] != 2 {
		t.Fatalf("expected one depth publication at seq 2, got %v", depth.seqs)
	}
	if len(depth.last.Asks) != 1 || depth.last.Asks[0].Volume != 6 || len(depth.last.Bids) != 0 {
		t.Fatalf("unexpected depth %+v", depth.last)
	}
}

func TestHandleBatchRedeliveryIsNotReapplied(t *testing.T) {
	pub := &recordingPublisher{fail: 1}
	svc := newTestService(pub, nil, 0)

	batch := []journal.Message{
		message(10, protocol.PlaceOrder{UID: 1, OrderID: 1, Price: 100, Size: 10, Action: protocol.Ask, Type: protocol.GTC}),
		message(11, protocol.ReduceOrder{UID: 1, OrderID: 1, Size: 3}),
	}
	if err := svc.HandleBatch(context.Background(), batch); err == nil {
		t.Fatalf("expected publish failure")
	}
	if err := svc.HandleBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pub.records) != 2 {
		t.Fatalf("expected each response once, got %d", len(pub.records))
	}
	if svc.Stats().Seq != 2 {
		t.Fatalf("commands applied twice: %+v", svc.Stats())
	}
	snapshot := svc.proc.L2Snapshot(-1)
	if snapshot.AskSize() != 1 || snapshot.AskVolumes[0] != 7 {
		t.Fatalf("unexpected book %+v", snapshot)
	}
}

func TestPublishDepthWithoutSink(t *testing.T) {
	svc := newTestService(&recordingPublisher{}, nil, 1)
	if err := svc.PublishDepth(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
