package protocol

import (
	"errors"
	"testing"

	"github.com/joripage/matching-core/pkg/buffer"
)

func buildPlaceResponse() []byte {
	w := buffer.NewWriter(16)
	ev := NewEventsWriter(w)
	ev.AppendPlaceHeader(10, 20, 30)
	ev.AppendTradeEvent(2, 100, 81599, 82000, 50, true)
	ev.AppendTradeEvent(3, 101, 81599, 82000, 5, false)
	ev.AppendRemainingSize(45)
	ev.AppendResult(NewResult(Success, false, Bid, false))
	return w.Bytes()
}

func TestDecodePlaceResponse(t *testing.T) {
	msg := buildPlaceResponse()
	if len(msg) != PlaceHeaderSize+2*TradeEventSize+RemainingSizeBytes+ResultSize {
		t.Fatalf("unexpected message size %d", len(msg))
	}

	resp, err := Decode(buffer.NewReader(msg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	place, ok := resp.(*PlaceResponse)
	if !ok {
		t.Fatalf("expected *PlaceResponse, got %T", resp)
	}
	if place.UID != 10 || place.OrderID != 20 || place.UserCookie != 30 {
		t.Fatalf("bad header %+v", place)
	}
	if place.Code != Success || place.OrderCompleted || place.TakerAction != Bid {
		t.Fatalf("bad result %+v", place)
	}
	if place.RemainingSize != 45 {
		t.Fatalf("expected remaining 45, got %d", place.RemainingSize)
	}
	if len(place.Trades) != 2 || place.Reduce != nil {
		t.Fatalf("expected 2 trades and no reduce, got %+v", place)
	}
	want := TradeEvent{MakerOrderID: 3, MakerUID: 101, TradePrice: 81599, ReservedBidPrice: 82000, TradeVolume: 5}
	if place.Trades[1] != want {
		t.Fatalf("expected %+v, got %+v", want, place.Trades[1])
	}

	block := place.EventsBlock()
	if block == nil || block.TakerOrderID != 20 || block.TakerUID != 10 || len(block.Trades) != 2 {
		t.Fatalf("bad events block %+v", block)
	}
}

func TestDecodeCancelWithReduce(t *testing.T) {
	w := buffer.NewWriter(0)
	ev := NewEventsWriter(w)
	ev.AppendHeader(CommandCancelOrder, 1, 5)
	ev.AppendReduceEvent(81590, 82000, 20)
	ev.AppendResult(NewResult(Success, true, Bid, true))

	resp, err := Decode(buffer.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel := resp.(*CancelResponse)
	if !cancel.OrderCompleted || cancel.Reduce == nil {
		t.Fatalf("bad cancel %+v", cancel)
	}
	if *cancel.Reduce != (ReduceEvent{ReducedVolume: 20, Price: 81590, ReservedBidPrice: 82000}) {
		t.Fatalf("bad reduce %+v", *cancel.Reduce)
	}
	if len(cancel.Trades) != 0 {
		t.Fatalf("cancel must not carry trades")
	}
}

func TestDecodeReduceWithRemainingAndReduce(t *testing.T) {
	w := buffer.NewWriter(0)
	ev := NewEventsWriter(w)
	ev.AppendHeader(CommandReduceOrder, 1, 5)
	ev.AppendReduceEvent(81590, 82000, 3)
	ev.AppendRemainingSize(17)
	ev.AppendResult(NewResult(Success, false, Bid, true))

	resp, err := Decode(buffer.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reduce := resp.(*ReduceResponse)
	if reduce.RemainingSize != 17 || reduce.Reduce.ReducedVolume != 3 {
		t.Fatalf("bad reduce response %+v", reduce)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	msg := buildPlaceResponse()

	// drop one trade byte: block length is no longer a multiple of 41
	bad := append(append([]byte{}, msg[:PlaceHeaderSize+1]...), msg[PlaceHeaderSize+2:]...)
	if _, err := Decode(buffer.NewReader(bad)); !errors.Is(err, ErrTradeBlockLength) {
		t.Fatalf("expected trade block length error, got %v", err)
	}

	unknown := append([]byte{}, msg...)
	unknown[0] = 9
	if _, err := Decode(buffer.NewReader(unknown)); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected unknown command, got %v", err)
	}

	if _, err := Decode(buffer.NewReader([]byte{byte(CommandCancelOrder), 1})); !errors.Is(err, buffer.ErrOutOfBounds) {
		t.Fatalf("expected out of bounds, got %v", err)
	}
}

func buildL2Response() []byte {
	w := buffer.NewWriter(0)
	ev := NewEventsWriter(w)
	ev.AppendTag(QueryL2)
	ev.AppendL2Record(81599, 75, 2)
	ev.AppendL2Record(81600, 100, 1)
	ev.AppendL2Record(81593, 40, 1)
	ev.AppendL2Tail(2, 1, Success)
	return w.Bytes()
}

func TestDecodeL2(t *testing.T) {
	resp, err := Decode(buffer.NewReader(buildL2Response()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l2 := resp.(*L2Response)
	if l2.Code != Success || len(l2.Asks) != 2 || len(l2.Bids) != 1 {
		t.Fatalf("bad L2 %+v", l2)
	}
	if l2.Asks[1] != (L2Record{Price: 81600, Volume: 100, Orders: 1}) {
		t.Fatalf("bad ask %+v", l2.Asks[1])
	}
	if l2.Bids[0] != (L2Record{Price: 81593, Volume: 40, Orders: 1}) {
		t.Fatalf("bad bid %+v", l2.Bids[0])
	}

	msg := buildL2Response()
	msg[len(msg)-ResultSize-4] = 5
	if _, err := Decode(buffer.NewReader(msg)); !errors.Is(err, ErrL2RecordCount) {
		t.Fatalf("expected record count error, got %v", err)
	}
}

type recordingHandler struct {
	NopHandler
	calls  []string
	trades []TradeEvent
	place  CommandResult
	cookie int32
	l2     *L2Response
	bid0   L2Record
}

func (h *recordingHandler) OnTradeEvent(_ CommandResult, trade TradeEvent) {
	h.calls = append(h.calls, "trade")
	h.trades = append(h.trades, trade)
}

func (h *recordingHandler) OnReduceEvent(CommandResult, ReduceEvent) {
	h.calls = append(h.calls, "reduce")
}

func (h *recordingHandler) OnPlaceResult(res CommandResult, userCookie int32) {
	h.calls = append(h.calls, "place")
	h.place, h.cookie = res, userCookie
}

func (h *recordingHandler) OnCancelResult(CommandResult) {
	h.calls = append(h.calls, "cancel")
}

func (h *recordingHandler) OnL2Result(_ ResultCode, view *L2View) {
	h.calls = append(h.calls, "l2")
	h.l2 = view.ToResponse()
	h.bid0, _ = view.Bid(0)
}

func TestFastDecoderCallbacks(t *testing.T) {
	h := &recordingHandler{}
	d := NewFastDecoder(h)

	if err := d.Decode(buffer.NewReader(buildPlaceResponse())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w := buffer.NewWriter(0)
	ev := NewEventsWriter(w)
	ev.AppendHeader(CommandCancelOrder, 1, 5)
	ev.AppendReduceEvent(81590, 82000, 20)
	ev.AppendResult(NewResult(Success, true, Bid, true))
	if err := d.Decode(buffer.NewReader(w.Bytes())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Decode(buffer.NewReader(buildL2Response())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"trade", "trade", "place", "reduce", "cancel", "l2"}
	if len(h.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, h.calls)
	}
	for i := range want {
		if h.calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, h.calls)
		}
	}
	if h.cookie != 30 || h.place.RemainingSize != 45 || h.place.OrderCompleted {
		t.Fatalf("bad place result %+v cookie %d", h.place, h.cookie)
	}
	if h.trades[0].MakerOrderID != 2 || !h.trades[0].MakerOrderCompleted {
		t.Fatalf("bad first trade %+v", h.trades[0])
	}
	if len(h.l2.Asks) != 2 || h.bid0.Price != 81593 {
		t.Fatalf("bad l2 %+v bid0 %+v", h.l2, h.bid0)
	}
}

func TestL2ViewBounds(t *testing.T) {
	var v L2View
	if err := v.wrap(buffer.NewReader(buildL2Response())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := v.Ask(2); !errors.Is(err, buffer.ErrOutOfBounds) {
		t.Fatalf("expected out of bounds, got %v", err)
	}
	if _, err := v.Bid(-1); !errors.Is(err, buffer.ErrOutOfBounds) {
		t.Fatalf("expected out of bounds, got %v", err)
	}
	if v.IsEmpty() {
		t.Fatalf("view should not be empty")
	}
}

func TestFastDecoderRejectsUnknownTag(t *testing.T) {
	d := NewFastDecoder(NopHandler{})
	if err := d.Decode(buffer.NewReader([]byte{0, 0, 0})); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected unknown command, got %v", err)
	}
}
