package orderbook

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/joripage/matching-core/pkg/buffer"
	"github.com/joripage/matching-core/pkg/protocol"
)

type ProcessorConfig struct {
	Debug              bool
	ResponseBufferSize int
	// VerifyEveryCommand runs VerifyInternalState after each command.
	VerifyEveryCommand bool
	Logger             *zap.Logger
}

// ResponseCallback gets the response of every successful command. response
// is only valid during the call.
type ResponseCallback func(cmd protocol.Command, response []byte)

// Processor serializes commands for one instrument. A frame is the command
// tag followed by the command record.
type Processor struct {
	mu        sync.Mutex
	book      *OrderBook
	out       *buffer.Writer
	callbacks []ResponseCallback
	cfg       *ProcessorConfig
	logger    *zap.Logger
}

func NewProcessor(spec SymbolSpecification, cfg *ProcessorConfig) *Processor {
	if cfg == nil {
		cfg = &ProcessorConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	size := cfg.ResponseBufferSize
	if size <= 0 {
		size = 4096
	}
	out := buffer.NewWriter(size)
	return &Processor{
		book:   New(spec, out, Options{Debug: cfg.Debug, Logger: logger}),
		out:    out,
		cfg:    cfg,
		logger: logger,
	}
}

func (p *Processor) RegisterResponseCallback(cb ResponseCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, cb)
}

// Process runs one framed command. The returned slice is reused by the next
// call.
func (p *Processor) Process(frame []byte, timestamp int64) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(frame) < protocol.TagSize {
		return nil, fmt.Errorf("%w: empty frame", buffer.ErrOutOfBounds)
	}
	cmd := protocol.Command(frame[0])
	r := buffer.NewReader(frame)
	p.out.Reset()

	var err error
	switch cmd {
	case protocol.CommandPlaceOrder:
		err = p.book.NewOrder(r, protocol.TagSize, timestamp)
	case protocol.CommandCancelOrder:
		err = p.book.CancelOrder(r, protocol.TagSize)
	case protocol.CommandMoveOrder:
		err = p.book.MoveOrder(r, protocol.TagSize)
	case protocol.CommandReduceOrder:
		err = p.book.ReduceOrder(r, protocol.TagSize)
	case protocol.QueryL2:
		err = p.book.SendL2Snapshot(r, protocol.TagSize)
	default:
		err = fmt.Errorf("%w: %d", protocol.ErrUnknownCommand, cmd)
	}
	if err == nil && p.cfg.VerifyEveryCommand {
		err = p.book.VerifyInternalState()
	}
	if err != nil {
		p.out.Reset()
		p.logger.Error("command failed", zap.Stringer("command", cmd), zap.Error(err))
		return nil, err
	}

	response := p.out.Bytes()
	for _, cb := range p.callbacks {
		cb(cmd, response)
	}
	return response, nil
}

// Submit frames and processes an encoded command.
func (p *Processor) Submit(cmd protocol.Encodable, timestamp int64) ([]byte, error) {
	return p.Process(protocol.Frame(cmd), timestamp)
}

func (p *Processor) L2Snapshot(limit int) *L2MarketData {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.book.L2MarketDataSnapshot(limit)
}

func (p *Processor) VerifyInternalState() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.book.VerifyInternalState()
}

func (p *Processor) StateHash() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.book.StateHash()
}
