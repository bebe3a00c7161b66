// Package engine connects a Processor to the command journal, the response
// journal and the depth cache.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joripage/matching-core/pkg/buffer"
	"github.com/joripage/matching-core/pkg/journal"
	"github.com/joripage/matching-core/pkg/orderbook"
	"github.com/joripage/matching-core/pkg/protocol"
)

type ResponsePublisher interface {
	PublishRecords(ctx context.Context, recs ...journal.Record) error
}

type DepthSink interface {
	Publish(ctx context.Context, seq uint64, l2 *protocol.L2Response) error
}

type Config struct {
	Symbol      string
	EventsTopic string
	L2Depth     int
	// PublishEvery is the number of applied commands between depth
	// publications.
	PublishEvery int
	Logger       *zap.Logger
}

type Stats struct {
	// Seq counts applied commands and numbers their responses.
	Seq      uint64
	Rejected uint64
}

// Service applies journaled commands. It is driven by a single consumer
// goroutine and is not safe for concurrent HandleBatch calls.
type Service struct {
	proc  *orderbook.Processor
	out   ResponsePublisher
	depth DepthSink
	cfg   Config

	logger     *zap.Logger
	applied    map[int]int64
	pending    []journal.Record
	seq        uint64
	rejected   uint64
	sinceDepth int
}

func NewService(proc *orderbook.Processor, out ResponsePublisher, depth DepthSink, cfg Config) *Service {
	if cfg.L2Depth <= 0 {
		cfg.L2Depth = 10
	}
	if cfg.PublishEvery <= 0 {
		cfg.PublishEvery = 100
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		proc:    proc,
		out:     out,
		depth:   depth,
		cfg:     cfg,
		logger:  logger.With(zap.String("symbol", cfg.Symbol)),
		applied: make(map[int]int64),
	}
}

// HandleBatch applies every message not applied before and publishes the
// responses. When publishing fails the batch is redelivered; messages already
// applied are skipped then and their buffered responses are sent again.
func (s *Service) HandleBatch(ctx context.Context, batch []journal.Message) error {
	for _, m := range batch {
		if last, ok := s.applied[m.Partition]; ok && m.Offset <= last {
			continue
		}
		s.applied[m.Partition] = m.Offset
		s.apply(m)
	}

	if err := s.out.PublishRecords(ctx, s.pending...); err != nil {
		return fmt.Errorf("publish responses: %w", err)
	}
	s.pending = s.pending[:0]

	if s.depth != nil && s.sinceDepth >= s.cfg.PublishEvery {
		s.sinceDepth = 0
		if err := s.PublishDepth(ctx); err != nil {
			s.logger.Warn("depth publication skipped", zap.Error(err))
		}
	}
	return nil
}

func (s *Service) apply(m journal.Message) {
	ts := m.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	resp, err := s.proc.Process(m.Value, ts.UnixNano())
	if err != nil {
		s.rejected++
		s.logger.Warn("command dropped",
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Error(err))
		return
	}
	s.seq++
	s.sinceDepth++
	s.pending = append(s.pending, journal.ResponseRecord(s.cfg.EventsTopic, s.cfg.Symbol, s.seq, protocol.Command(resp[0]), resp))
}

// PublishDepth queries the book through the binary L2 command and hands the
// decoded result to the depth sink.
func (s *Service) PublishDepth(ctx context.Context) error {
	if s.depth == nil {
		return nil
	}
	out, err := s.proc.Submit(protocol.L2Query{Limit: int32(s.cfg.L2Depth)}, time.Now().UnixNano())
	if err != nil {
		return err
	}
	resp, err := protocol.Decode(buffer.NewReader(out))
	if err != nil {
		return err
	}
	l2, ok := resp.(*protocol.L2Response)
	if !ok {
		return fmt.Errorf("unexpected %s response to L2 query", resp.Command())
	}
	return s.depth.Publish(ctx, s.seq, l2)
}

func (s *Service) Stats() Stats {
	return Stats{Seq: s.seq, Rejected: s.rejected}
}
