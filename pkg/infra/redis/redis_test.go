package redis_wrapper

import (
	"context"
	"testing"
	"time"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := &RedisConfig{
		ConnectionURL:      "redis://:secret@cache:6380/3",
		PoolSize:           8,
		DialTimeoutSeconds: 2,
		IdleTimeoutSeconds: 30,
	}
	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 3 || opts.Password != "secret" {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.PoolSize != 8 || opts.DialTimeout != 2*time.Second || opts.ConnMaxIdleTime != 30*time.Second {
		t.Fatalf("unexpected pool settings %+v", opts)
	}
}

func TestInitRedisWithBackoffRejectsBadURL(t *testing.T) {
	_, err := InitRedisWithBackoff(context.Background(), &RedisConfig{ConnectionURL: "http://nope"})
	if err == nil {
		t.Fatalf("expected a parse error")
	}
}

func TestInitRedisWithBackoffStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	// nothing listens on port 1
	_, err := InitRedisWithBackoff(ctx, &RedisConfig{
		ConnectionURL:      "redis://127.0.0.1:1/0",
		DialTimeoutSeconds: 1,
	})
	if err == nil {
		t.Fatalf("expected connect failure")
	}
}
