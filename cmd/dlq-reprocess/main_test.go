package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
	"github.com/vladislavdragonenkov/foodorder/internal/messaging/kafka"
)

type fakeOffsets struct {
	partitions []int32
	oldest     map[int32]int64
	newest     map[int32]int64
	err        error
}

func (f *fakeOffsets) GetOffset(_ string, partition int32, at int64) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if at == sarama.OffsetOldest {
		return f.oldest[partition], nil
	}
	return f.newest[partition], nil
}

func (f *fakeOffsets) Partitions(string) ([]int32, error) { return f.partitions, nil }
func (f *fakeOffsets) Close() error { return nil }

// fakePartition переопределяет только то, что читает replayPartition.
type fakePartition struct {
	sarama.PartitionConsumer
	messages chan *sarama.ConsumerMessage
	errs     chan *sarama.ConsumerError
}

func (p *fakePartition) Messages() <-chan *sarama.ConsumerMessage { return p.messages }
func (p *fakePartition) Errors() <-chan *sarama.ConsumerError { return p.errs }
func (p *fakePartition) Close() error { return nil }

type fakeConsumer struct {
	partitions map[int32]*fakePartition
}

func (c *fakeConsumer) ConsumePartition(_ string, partition int32, _ int64) (sarama.PartitionConsumer, error) {
	pc, ok := c.partitions[partition]
	if !ok {
		return nil, errors.New("unexpected partition")
	}
	return pc, nil
}

func (c *fakeConsumer) Close() error { return nil }

type republished struct {
	topic string
	env   kafka.Envelope
	at    time.Time
}

type fakeRepublisher struct {
	sent []republished
	err  error
}

func (r *fakeRepublisher) Republish(topic string, env kafka.Envelope, now time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, republished{topic: topic, env: env, at: now})
	return nil
}

func (r *fakeRepublisher) Close() error { return nil }

func dlqMessage(t *testing.T, offset int64, id, eventType string) *sarama.ConsumerMessage {
	t.Helper()
	env := kafka.NewEnvelope(domain.OutboxMessage{
		ID:            id,
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   "order-" + id,
		EventType:     eventType,
		Payload:       []byte(`{"order_id":1}`),
	}, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Offset: offset, Value: raw}
}

func partitionWith(msgs ...*sarama.ConsumerMessage) *fakePartition {
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &fakePartition{messages: ch, errs: make(chan *sarama.ConsumerError)}
}

func baseConfig() config {
	return config{
		sourceTopic: kafka.TopicOrderEventsDLQ,
		targetTopic: kafka.TopicOrderEvents,
		limit:       10,
		idleTimeout: 200 * time.Millisecond,
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig(nil, func(key string) string {
		if key == "KAFKA_BROKERS" {
			return " broker-1:9092, ,broker-2:9092 "
		}
		return ""
	})
	require.NoError(t, err)
	require.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.brokers)
	require.Equal(t, kafka.TopicOrderEventsDLQ, cfg.sourceTopic)
	require.Equal(t, kafka.TopicOrderEvents, cfg.targetTopic)
	require.False(t, cfg.execute)

	noEnv := func(string) string { return "" }
	for name, args := range map[string][]string{
		"no brokers":   {},
		"same topics":  {"-brokers=b:9092", "-target-topic=" + kafka.TopicOrderEventsDLQ},
		"zero limit":   {"-brokers=b:9092", "-limit=0"},
		"bad timeout":  {"-brokers=b:9092", "-idle-timeout=0s"},
		"unknown flag": {"-brokers=b:9092", "-all"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseConfig(args, noEnv)
			require.Error(t, err)
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := decodeEnvelope(dlqMessage(t, 0, "outbox-1", domain.EventTypeOrderSubmitted).Value)
	require.NoError(t, err)
	require.Equal(t, "outbox-1", env.ID)
	require.Equal(t, "order-outbox-1", env.PartitionKey())

	_, err = decodeEnvelope([]byte("not json"))
	require.Error(t, err)
	_, err = decodeEnvelope([]byte(`{"event_type":"order.submitted"}`))
	require.Error(t, err)
	_, err = decodeEnvelope([]byte(`{"id":"x"}`))
	require.Error(t, err)
}

func TestReplay_DryRunDoesNotPublish(t *testing.T) {
	offsets := &fakeOffsets{
		partitions: []int32{0},
		oldest:     map[int32]int64{0: 0},
		newest:     map[int32]int64{0: 2},
	}
	consumer := &fakeConsumer{partitions: map[int32]*fakePartition{
		0: partitionWith(
			dlqMessage(t, 0, "outbox-1", domain.EventTypeOrderSubmitted),
			dlqMessage(t, 1, "outbox-2", domain.EventTypeOrderSubmitted),
		),
	}}

	stats, err := replay(context.Background(), baseConfig(), offsets, consumer, nil, time.Now)
	require.NoError(t, err)
	require.Equal(t, replayStats{processed: 2, replayed: 2}, stats)
}

func TestReplay_ExecuteRepublishesAndFilters(t *testing.T) {
	offsets := &fakeOffsets{
		partitions: []int32{1, 0},
		oldest:     map[int32]int64{0: 5, 1: 0},
		newest:     map[int32]int64{0: 8, 1: 1},
	}
	consumer := &fakeConsumer{partitions: map[int32]*fakePartition{
		0: partitionWith(
			dlqMessage(t, 5, "outbox-1", domain.EventTypeOrderSubmitted),
			&sarama.ConsumerMessage{Offset: 6, Value: []byte("garbage")},
			dlqMessage(t, 7, "outbox-3", domain.EventTypeOrderRejected),
		),
		1: partitionWith(dlqMessage(t, 0, "outbox-4", domain.EventTypeOrderSubmitted)),
	}}
	producer := &fakeRepublisher{}
	replayedAt := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	cfg := baseConfig()
	cfg.execute = true
	cfg.eventType = domain.EventTypeOrderSubmitted

	stats, err := replay(context.Background(), cfg, offsets, consumer, producer, func() time.Time { return replayedAt })
	require.NoError(t, err)
	require.Equal(t, replayStats{processed: 4, replayed: 2, skipped: 2}, stats)

	require.Len(t, producer.sent, 2)
	require.Equal(t, "outbox-1", producer.sent[0].env.ID)
	require.Equal(t, "outbox-4", producer.sent[1].env.ID)
	for _, sent := range producer.sent {
		require.Equal(t, kafka.TopicOrderEvents, sent.topic)
		require.Equal(t, replayedAt, sent.at)
	}
}

func TestReplay_RespectsLimit(t *testing.T) {
	offsets := &fakeOffsets{
		partitions: []int32{0, 1},
		oldest:     map[int32]int64{0: 0, 1: 0},
		newest:     map[int32]int64{0: 3, 1: 3},
	}
	consumer := &fakeConsumer{partitions: map[int32]*fakePartition{
		0: partitionWith(
			dlqMessage(t, 0, "a", domain.EventTypeOrderSubmitted),
			dlqMessage(t, 1, "b", domain.EventTypeOrderSubmitted),
			dlqMessage(t, 2, "c", domain.EventTypeOrderSubmitted),
		),
	}}

	cfg := baseConfig()
	cfg.limit = 2
	stats, err := replay(context.Background(), cfg, offsets, consumer, nil, time.Now)
	require.NoError(t, err)
	require.Equal(t, 2, stats.processed)
}

func TestReplay_Errors(t *testing.T) {
	cfg := baseConfig()
	cfg.execute = true
	_, err := replay(context.Background(), cfg, &fakeOffsets{}, &fakeConsumer{}, nil, time.Now)
	require.ErrorContains(t, err, "producer is required")

	offsets := &fakeOffsets{partitions: []int32{0}, err: errors.New("broker down")}
	_, err = replay(context.Background(), baseConfig(), offsets, &fakeConsumer{}, nil, time.Now)
	require.ErrorContains(t, err, "broker down")

	offsets = &fakeOffsets{partitions: []int32{0}, oldest: map[int32]int64{0: 0}, newest: map[int32]int64{0: 1}}
	consumer := &fakeConsumer{partitions: map[int32]*fakePartition{
		0: partitionWith(dlqMessage(t, 0, "a", domain.EventTypeOrderSubmitted)),
	}}
	_, err = replay(context.Background(), cfg, offsets, consumer, &fakeRepublisher{err: errors.New("send failed")}, time.Now)
	require.ErrorContains(t, err, "send failed")
}

func TestReplay_IdleTimeoutStopsPartition(t *testing.T) {
	offsets := &fakeOffsets{
		partitions: []int32{0},
		oldest:     map[int32]int64{0: 0},
		newest:     map[int32]int64{0: 10},
	}
	consumer := &fakeConsumer{partitions: map[int32]*fakePartition{
		0: partitionWith(dlqMessage(t, 0, "a", domain.EventTypeOrderSubmitted)),
	}}

	cfg := baseConfig()
	cfg.idleTimeout = 20 * time.Millisecond
	stats, err := replay(context.Background(), cfg, offsets, consumer, nil, time.Now)
	require.NoError(t, err)
	require.Equal(t, 1, stats.processed)
}
