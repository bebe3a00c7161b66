package protocol

const (
	flagReduceEvent    = 1 << 14
	flagTakerBid       = 1 << 13
	flagTakerCompleted = 1 << 12
	resultCodeMask     = flagTakerCompleted - 1
)

// Result is the outcome of one command. It is packed into the trailing
// 16-bit field of the response only when written to the wire.
type Result struct {
	Code           ResultCode
	ReduceEvent    bool
	TakerBid       bool
	TakerCompleted bool
}

func NewResult(code ResultCode, takerCompleted bool, action Action, reduceEvent bool) Result {
	return Result{
		Code:           code,
		ReduceEvent:    reduceEvent,
		TakerBid:       action == Bid,
		TakerCompleted: takerCompleted,
	}
}

func (r Result) TakerAction() Action {
	if r.TakerBid {
		return Bid
	}
	return Ask
}

func (r Result) Pack() int16 {
	v := int16(r.Code) & resultCodeMask
	if r.ReduceEvent {
		v |= flagReduceEvent
	}
	if r.TakerBid {
		v |= flagTakerBid
	}
	if r.TakerCompleted {
		v |= flagTakerCompleted
	}
	return v
}

func UnpackResult(v int16) Result {
	return Result{
		Code:           ResultCode(v & resultCodeMask),
		ReduceEvent:    v&flagReduceEvent != 0,
		TakerBid:       v&flagTakerBid != 0,
		TakerCompleted: v&flagTakerCompleted != 0,
	}
}
