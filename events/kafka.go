package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yeremiapane/restaurant-ops/utils"
)

// KafkaForwarder writes notices to a topic keyed by restaurant so one restaurant's
// notices stay ordered within a partition.
type KafkaForwarder struct {
	writer *kafka.Writer
}

func NewKafkaForwarder(brokers []string, topic string) *KafkaForwarder {
	return &KafkaForwarder{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 20 * time.Millisecond,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					utils.ErrorLogger.Errorf("Kafka delivery of %d notices failed: %v", len(messages), err)
				}
			},
		},
	}
}

func (f *KafkaForwarder) Forward(ctx context.Context, n Notice) error {
	msg, err := encodeNotice(n)
	if err != nil {
		return err
	}
	return f.writer.WriteMessages(ctx, msg)
}

func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}

// KafkaBridge consumes the shared topic and delivers notices written by other
// replicas to the local bus.
type KafkaBridge struct {
	reader *kafka.Reader
	bus    *Bus
}

// NewKafkaBridge uses a consumer group per replica so every replica sees every notice.
func NewKafkaBridge(brokers []string, groupPrefix, topic string, bus *Bus) *KafkaBridge {
	return &KafkaBridge{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     groupPrefix + "-" + bus.Origin(),
			Topic:       topic,
			StartOffset: kafka.LastOffset,
			MaxWait:     500 * time.Millisecond,
		}),
		bus: bus,
	}
}

// Run blocks until ctx is cancelled.
func (b *KafkaBridge) Run(ctx context.Context) error {
	for {
		m, err := b.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			utils.ErrorLogger.Errorf("Kafka read error: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		n, err := decodeNotice(m)
		if err != nil {
			utils.ErrorLogger.Errorf("Skipping malformed change notice at offset %d: %v", m.Offset, err)
			continue
		}
		if !b.accept(n) {
			continue
		}
		b.bus.Deliver(n)
	}
}

func (b *KafkaBridge) accept(n Notice) bool {
	return n.Origin != b.bus.Origin() && n.RestaurantID != 0
}

func (b *KafkaBridge) Close() error {
	return b.reader.Close()
}

func encodeNotice(n Notice) (kafka.Message, error) {
	value, err := json.Marshal(n)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode notice: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(n.RestaurantID), 10)),
		Value: value,
		Time:  n.At,
	}, nil
}

func decodeNotice(m kafka.Message) (Notice, error) {
	var n Notice
	if err := json.Unmarshal(m.Value, &n); err != nil {
		return Notice{}, err
	}
	if n.Collection == "" || n.Action == "" {
		return Notice{}, errors.New("missing collection or action")
	}
	return n, nil
}
