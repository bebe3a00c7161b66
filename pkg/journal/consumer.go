package journal

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ErrSkipCommit tells the consumer to leave a batch uncommitted without
// retrying it.
var ErrSkipCommit = errors.New("skip commit")

var ErrConsumerClosed = errors.New("journal: consumer not initialized")

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BatchHandler processes one batch. A nil return commits the batch.
type BatchHandler func(ctx context.Context, batch []Message) error

type ConsumerConfig struct {
	Brokers    []string
	GroupID    string
	Topic      string
	MaxRetries int
	BackoffMin time.Duration
	BackoffMax time.Duration
	DLQTopic   string
	// Batch options
	BatchSize    int
	BatchTimeout time.Duration
	Logger       *zap.Logger
}

// ConsumerGroup delivers batches to a single handler goroutine, so batches
// never overlap and offsets are committed in order.
type ConsumerGroup struct {
	r      messageReader
	cfg    ConsumerConfig
	dlq    *Producer
	logger *zap.Logger
}

func NewConsumerGroup(cfg ConsumerConfig) (*ConsumerGroup, error) {
	if cfg.GroupID == "" {
		return nil, errors.New("journal: consumer group id is required")
	}
	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	})

	var dlq *Producer
	if cfg.DLQTopic != "" {
		dlq = NewProducer(ProducerConfig{Brokers: cfg.Brokers, Logger: cfg.Logger})
	}
	return newConsumerGroup(rd, dlq, cfg), nil
}

func newConsumerGroup(r messageReader, dlq *Producer, cfg ConsumerConfig) *ConsumerGroup {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffMin == 0 {
		cfg.BackoffMin = 100 * time.Millisecond
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 200 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}
	return &ConsumerGroup{r: r, cfg: cfg, dlq: dlq, logger: logger}
}

func (cg *ConsumerGroup) Close() error {
	if cg == nil {
		return nil
	}
	if cg.dlq != nil {
		_ = cg.dlq.Close()
	}
	if cg.r != nil {
		return cg.r.Close()
	}
	return nil
}

// Run fetches until ctx is done or the reader is closed. A batch is handed
// over when it reaches BatchSize or when BatchTimeout passes with messages
// pending. Run returns nil when the reader reports io.EOF.
func (cg *ConsumerGroup) Run(ctx context.Context, handler BatchHandler) error {
	if cg == nil || cg.r == nil {
		return ErrConsumerClosed
	}

	msgs := make(chan kafka.Message, cg.cfg.BatchSize)
	fetchErr := make(chan error, 1)

	go func() {
		defer close(msgs)
		for {
			m, err := cg.r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, io.EOF) {
					fetchErr <- err
					return
				}
				cg.logger.Warn("kafka fetch failed", zap.String("topic", cg.cfg.Topic), zap.Error(err))
				select {
				case <-time.After(cg.cfg.BackoffMin):
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case msgs <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(cg.cfg.BatchTimeout)
	defer ticker.Stop()

	batch := make([]kafka.Message, 0, cg.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := cg.deliver(ctx, handler, batch)
		batch = batch[:0]
		return err
	}

	for {
		select {
		case m, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if err := flush(); err != nil {
					return err
				}
				if err := <-fetchErr; !errors.Is(err, io.EOF) {
					return err
				}
				return nil
			}
			batch = append(batch, m)
			if len(batch) >= cg.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// deliver runs handler with retries. Exhausted batches go to the DLQ, when
// one is configured, and are committed so the group moves on.
func (cg *ConsumerGroup) deliver(ctx context.Context, handler BatchHandler, ms []kafka.Message) error {
	wrapped := make([]Message, len(ms))
	for i, m := range ms {
		wrapped[i] = wrapMessage(m)
	}

	retry := retryPolicy(ctx, cg.cfg.BackoffMin, cg.cfg.BackoffMax, cg.cfg.MaxRetries)
	skip := false
	err := backoff.RetryNotify(func() error {
		err := handler(ctx, wrapped)
		if errors.Is(err, ErrSkipCommit) {
			skip = true
			return nil
		}
		return err
	}, retry, func(err error, wait time.Duration) {
		cg.logger.Warn("batch handler failed, retrying",
			zap.Int("messages", len(ms)),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if skip {
		return nil
	}
	if err != nil {
		cg.logger.Error("batch handler gave up",
			zap.Int("messages", len(ms)),
			zap.Int64("first_offset", ms[0].Offset),
			zap.Error(err))
		if cg.dlq != nil {
			recs := make([]Record, len(ms))
			for i, m := range ms {
				recs[i] = Record{Topic: cg.cfg.DLQTopic, Key: m.Key, Value: m.Value, Headers: headersToMap(m.Headers)}
			}
			if dlqErr := cg.dlq.PublishRecords(ctx, recs...); dlqErr != nil {
				return dlqErr
			}
		}
	}
	return cg.r.CommitMessages(ctx, ms...)
}
