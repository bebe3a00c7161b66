// Package marketdata publishes order book depth for consumers that do not
// speak the binary protocol.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/matching-core/pkg/protocol"
)

// Store is the key/value sink the depth document is written to.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Instrument struct {
	ID         int32
	Name       string
	PriceScale int32
	SizeScale  int32
}

type Level struct {
	Price  string `json:"price"`
	Volume string `json:"volume"`
	Orders int32  `json:"orders"`
}

type Depth struct {
	Symbol    string  `json:"symbol"`
	SymbolID  int32   `json:"symbol_id"`
	Seq       uint64  `json:"seq"`
	Timestamp int64   `json:"timestamp"`
	Asks      []Level `json:"asks"`
	Bids      []Level `json:"bids"`
}

type DepthPublisher struct {
	store      Store
	key        string
	ttl        time.Duration
	instrument Instrument
	priceScale decimal.Decimal
	sizeScale  decimal.Decimal
	logger     *zap.Logger
	now        func() time.Time
}

func NewDepthPublisher(store Store, keyPrefix string, ttl time.Duration, instrument Instrument, logger *zap.Logger) *DepthPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepthPublisher{
		store:      store,
		key:        DepthKey(keyPrefix, instrument.Name),
		ttl:        ttl,
		instrument: instrument,
		priceScale: scale(instrument.PriceScale),
		sizeScale:  scale(instrument.SizeScale),
		logger:     logger,
		now:        time.Now,
	}
}

// DepthKey is the store key holding the depth document of symbol.
func DepthKey(prefix, symbol string) string {
	return fmt.Sprintf("%s:%s:depth", prefix, symbol)
}

func (p *DepthPublisher) Key() string {
	return p.key
}

// Build converts an L2 response into the published document. Scaled
// integers become decimal strings so no precision is lost in JSON.
func (p *DepthPublisher) Build(seq uint64, l2 *protocol.L2Response) *Depth {
	d := &Depth{
		Symbol:    p.instrument.Name,
		SymbolID:  p.instrument.ID,
		Seq:       seq,
		Timestamp: p.now().UnixMilli(),
		Asks:      make([]Level, 0, len(l2.Asks)),
		Bids:      make([]Level, 0, len(l2.Bids)),
	}
	for _, r := range l2.Asks {
		d.Asks = append(d.Asks, p.level(r))
	}
	for _, r := range l2.Bids {
		d.Bids = append(d.Bids, p.level(r))
	}
	return d
}

func (p *DepthPublisher) Publish(ctx context.Context, seq uint64, l2 *protocol.L2Response) error {
	if l2.Code != protocol.Success {
		return fmt.Errorf("marketdata: l2 query failed: %s", l2.Code)
	}
	body, err := json.Marshal(p.Build(seq, l2))
	if err != nil {
		return err
	}
	if err := p.store.Set(ctx, p.key, body, p.ttl); err != nil {
		p.logger.Warn("publish depth failed", zap.String("key", p.key), zap.Error(err))
		return err
	}
	p.logger.Debug("depth published",
		zap.String("key", p.key),
		zap.Uint64("seq", seq),
		zap.Int("asks", len(l2.Asks)),
		zap.Int("bids", len(l2.Bids)))
	return nil
}

func (p *DepthPublisher) level(r protocol.L2Record) Level {
	return Level{
		Price:  descale(r.Price, p.priceScale),
		Volume: descale(r.Volume, p.sizeScale),
		Orders: r.Orders,
	}
}

func scale(s int32) decimal.Decimal {
	if s <= 1 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt32(s)
}

func descale(v int64, s decimal.Decimal) string {
	return decimal.NewFromInt(v).Div(s).String()
}
