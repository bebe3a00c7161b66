// Package journal moves binary command and response frames through Kafka.
//
// Commands are consumed in batches by a single worker so that the engine sees
// them in partition order. Responses are published keyed by symbol, which
// pins one instrument to one partition.
package journal

import (
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	kafka "github.com/segmentio/kafka-go"

	"github.com/joripage/matching-core/pkg/protocol"
)

const (
	HeaderCommand   = "command"
	HeaderSeq       = "seq"
	HeaderMessageID = "message_id"
)

type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
	Headers   map[string]string
}

// Record is an outgoing message.
type Record struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ResponseRecord builds the journal entry for one engine response. The frame
// is copied because the engine reuses its response buffer.
func ResponseRecord(topic, symbol string, seq uint64, cmd protocol.Command, frame []byte) Record {
	return Record{
		Topic: topic,
		Key:   []byte(symbol),
		Value: slices.Clone(frame),
		Headers: map[string]string{
			HeaderCommand:   cmd.String(),
			HeaderSeq:       strconv.FormatUint(seq, 10),
			HeaderMessageID: uuid.NewString(),
		},
	}
}

func (r Record) kafkaMessage(now time.Time) kafka.Message {
	return kafka.Message{
		Topic:   r.Topic,
		Key:     r.Key,
		Value:   r.Value,
		Headers: toKafkaHeaders(r.Headers),
		Time:    now,
	}
}

func wrapMessage(m kafka.Message) Message {
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Time:      m.Time,
		Headers:   headersToMap(m.Headers),
	}
}

func toKafkaHeaders(h map[string]string) []kafka.Header {
	if len(h) == 0 {
		return nil
	}
	out := make([]kafka.Header, 0, len(h))
	for _, k := range slices.Sorted(maps.Keys(h)) {
		out = append(out, kafka.Header{Key: k, Value: []byte(h[k])})
	}
	return out
}

func headersToMap(hs []kafka.Header) map[string]string {
	out := make(map[string]string, len(hs))
	for _, h := range hs {
		out[h.Key] = string(h.Value)
	}
	return out
}
