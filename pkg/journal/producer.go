package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrProducerClosed = errors.New("journal: producer not initialized")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ProducerConfig struct {
	Brokers      []string
	Balancer     kafka.Balancer
	BatchSize    int
	BatchBytes   int64
	BatchTimeout time.Duration
	RequiredAcks kafka.RequiredAcks
	// MaxRetries is the number of extra write attempts after a failure.
	MaxRetries int
	Logger     *zap.Logger
}

type Producer struct {
	w          messageWriter
	maxRetries int
	logger     *zap.Logger
	now        func() time.Time
}

func NewProducer(cfg ProducerConfig) *Producer {
	if cfg.Balancer == nil {
		cfg.Balancer = &kafka.Hash{}
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchBytes == 0 {
		cfg.BatchBytes = 1 << 20
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.RequiredAcks == 0 {
		cfg.RequiredAcks = kafka.RequireOne
	}
	wr := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               cfg.Balancer,
		BatchSize:              cfg.BatchSize,
		BatchBytes:             cfg.BatchBytes,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		RequiredAcks:           cfg.RequiredAcks,
	}
	return newProducer(wr, cfg)
}

func newProducer(w messageWriter, cfg ProducerConfig) *Producer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Producer{w: w, maxRetries: cfg.MaxRetries, logger: logger, now: time.Now}
}

func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error {
	return p.PublishRecords(ctx, Record{Topic: topic, Key: key, Value: value, Headers: headers})
}

func (p *Producer) PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, []byte(key), b, headers)
}

// PublishRecords writes recs in one call, retrying the whole write with
// exponential backoff. Records keep their relative order.
func (p *Producer) PublishRecords(ctx context.Context, recs ...Record) error {
	if p == nil || p.w == nil {
		return ErrProducerClosed
	}
	if len(recs) == 0 {
		return nil
	}
	now := p.now()
	msgs := make([]kafka.Message, len(recs))
	for i, r := range recs {
		msgs[i] = r.kafkaMessage(now)
	}

	retry := retryPolicy(ctx, 50*time.Millisecond, time.Second, p.maxRetries)
	return backoff.RetryNotify(func() error {
		return p.w.WriteMessages(ctx, msgs...)
	}, retry, func(err error, wait time.Duration) {
		p.logger.Warn("kafka write failed, retrying",
			zap.Int("messages", len(msgs)),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
}

func (p *Producer) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}
