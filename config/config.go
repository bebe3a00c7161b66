package config

import (
	"errors"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	redis_wrapper "github.com/joripage/matching-core/pkg/infra/redis"
)

type AppConfig struct {
	ServiceName string                     `yaml:"service_name"`
	LogLevel    string                     `yaml:"log_level"`
	Symbol      SymbolConfig               `yaml:"symbol"`
	Engine      EngineConfig               `yaml:"engine"`
	Kafka       KafkaConfig                `yaml:"kafka"`
	Redis       *redis_wrapper.RedisConfig `yaml:"redis"`
	MarketData  MarketDataConfig           `yaml:"market_data"`
}

// SymbolConfig describes the single instrument served by one engine.
// Prices and sizes travel as scaled integers; the scales only matter for
// human-facing output.
type SymbolConfig struct {
	ID           int32  `yaml:"id"`
	Name         string `yaml:"name"`
	ExchangeType bool   `yaml:"exchange_type"`
	PriceScale   int32  `yaml:"price_scale"`
	SizeScale    int32  `yaml:"size_scale"`
}

func (s SymbolConfig) IsExchangeType() bool {
	return s.ExchangeType
}

type EngineConfig struct {
	Debug              bool `yaml:"debug"`
	ResponseBufferSize int  `yaml:"response_buffer_size"`
	L2Depth            int  `yaml:"l2_depth"`
	VerifyEveryCommand bool `yaml:"verify_every_command"`
}

type KafkaConfig struct {
	Brokers        []string `yaml:"brokers"`
	CommandsTopic  string   `yaml:"commands_topic"`
	EventsTopic    string   `yaml:"events_topic"`
	DLQTopic       string   `yaml:"dlq_topic"`
	GroupID        string   `yaml:"group_id"`
	BatchSize      int      `yaml:"batch_size"`
	BatchTimeoutMs int      `yaml:"batch_timeout_ms"`
	MaxRetries     int      `yaml:"max_retries"`
}

type MarketDataConfig struct {
	KeyPrefix    string `yaml:"key_prefix"`
	TTLSeconds   int    `yaml:"ttl_seconds"`
	PublishEvery int    `yaml:"publish_every"`
}

var ErrMissingBrokers = errors.New("config: kafka.brokers is empty")

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}

	cfg, err := Parse(configBytes)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}

// Parse expands ${VAR} references in raw and decodes it.
func Parse(raw []byte) (*AppConfig, error) {
	raw = []byte(os.ExpandEnv(string(raw)))

	cfg := &AppConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Validate checks the settings the engine binary cannot run without.
func (c *AppConfig) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return ErrMissingBrokers
	}
	if c.Kafka.CommandsTopic == "" || c.Kafka.EventsTopic == "" {
		return errors.New("config: kafka topics must be set")
	}
	return nil
}

func (c *AppConfig) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "matching-engine"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Symbol.Name == "" {
		c.Symbol.Name = "DEFAULT"
	}
	if c.Symbol.PriceScale <= 0 {
		c.Symbol.PriceScale = 1
	}
	if c.Symbol.SizeScale <= 0 {
		c.Symbol.SizeScale = 1
	}
	if c.Engine.ResponseBufferSize <= 0 {
		c.Engine.ResponseBufferSize = 4096
	}
	if c.Engine.L2Depth <= 0 {
		c.Engine.L2Depth = 10
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = c.ServiceName
	}
	if c.Kafka.BatchSize <= 0 {
		c.Kafka.BatchSize = 50
	}
	if c.Kafka.BatchTimeoutMs <= 0 {
		c.Kafka.BatchTimeoutMs = 200
	}
	if c.MarketData.KeyPrefix == "" {
		c.MarketData.KeyPrefix = "md"
	}
	if c.MarketData.TTLSeconds <= 0 {
		c.MarketData.TTLSeconds = 60
	}
	if c.MarketData.PublishEvery <= 0 {
		c.MarketData.PublishEvery = 100
	}
}
