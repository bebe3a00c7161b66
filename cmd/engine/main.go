package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/joripage/matching-core/config"
	redis_wrapper "github.com/joripage/matching-core/pkg/infra/redis"
	"github.com/joripage/matching-core/pkg/engine"
	"github.com/joripage/matching-core/pkg/journal"
	"github.com/joripage/matching-core/pkg/logging"
	"github.com/joripage/matching-core/pkg/marketdata"
	"github.com/joripage/matching-core/pkg/orderbook"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel)).Named(cfg.ServiceName)
	defer logger.Sync()
	zap.ReplaceGlobals(logger.Zap())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.NewRequestContext(ctx)

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		logger.Warn(ctx, "could not convert config to JSON", zap.Error(err))
	} else {
		logger.Debug(ctx, "load config", zap.ByteString("config", configBytes))
	}

	proc := orderbook.NewProcessor(cfg.Symbol, &orderbook.ProcessorConfig{
		Debug:              cfg.Engine.Debug,
		ResponseBufferSize: cfg.Engine.ResponseBufferSize,
		VerifyEveryCommand: cfg.Engine.VerifyEveryCommand,
		Logger:             logger.Zap().Named("orderbook"),
	})

	producer := journal.NewProducer(journal.ProducerConfig{
		Brokers:    cfg.Kafka.Brokers,
		MaxRetries: cfg.Kafka.MaxRetries,
		Logger:     logger.Zap(),
	})
	defer producer.Close()

	var depth engine.DepthSink
	if cfg.Redis != nil {
		client, err := redis_wrapper.InitRedisWithBackoff(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal(ctx, "connect redis", zap.Error(err))
		}
		defer client.Close()
		depth = marketdata.NewDepthPublisher(
			marketdata.NewRedisStore(client),
			cfg.MarketData.KeyPrefix,
			time.Duration(cfg.MarketData.TTLSeconds)*time.Second,
			marketdata.Instrument{
				ID:         cfg.Symbol.ID,
				Name:       cfg.Symbol.Name,
				PriceScale: cfg.Symbol.PriceScale,
				SizeScale:  cfg.Symbol.SizeScale,
			},
			logger.Zap().Named("marketdata"),
		)
	}

	svc := engine.NewService(proc, producer, depth, engine.Config{
		Symbol:       cfg.Symbol.Name,
		EventsTopic:  cfg.Kafka.EventsTopic,
		L2Depth:      cfg.Engine.L2Depth,
		PublishEvery: cfg.MarketData.PublishEvery,
		Logger:       logger.Zap(),
	})

	consumer, err := journal.NewConsumerGroup(journal.ConsumerConfig{
		Brokers:      cfg.Kafka.Brokers,
		GroupID:      cfg.Kafka.GroupID,
		Topic:        cfg.Kafka.CommandsTopic,
		MaxRetries:   cfg.Kafka.MaxRetries,
		DLQTopic:     cfg.Kafka.DLQTopic,
		BatchSize:    cfg.Kafka.BatchSize,
		BatchTimeout: time.Duration(cfg.Kafka.BatchTimeoutMs) * time.Millisecond,
		Logger:       logger.Zap(),
	})
	if err != nil {
		logger.Fatal(ctx, "init consumer", zap.Error(err))
	}
	defer consumer.Close()

	logger.Info(ctx, "engine started",
		zap.String("symbol", cfg.Symbol.Name),
		zap.String("commands_topic", cfg.Kafka.CommandsTopic),
		zap.String("events_topic", cfg.Kafka.EventsTopic))

	if err := consumer.Run(ctx, svc.HandleBatch); err != nil && ctx.Err() == nil {
		logger.Error(ctx, "consumer stopped", zap.Error(err))
	}

	stats := svc.Stats()
	if err := proc.VerifyInternalState(); err != nil {
		logger.Error(ctx, "order book inconsistent at shutdown", zap.Error(err))
	}
	logger.Info(ctx, "engine stopped",
		zap.Uint64("seq", stats.Seq),
		zap.Uint64("rejected", stats.Rejected),
		zap.Uint64("state_hash", proc.StateHash()))
}
