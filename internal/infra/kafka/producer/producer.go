package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/prok/internal/config"
	"github.com/aliskhannn/prok/internal/model"
)

// sender is the part of the Kafka producer client Publish needs.
type sender interface {
	SendWithRetry(ctx context.Context, s retry.Strategy, key, value []byte) error
	Close() error
}

// Producer publishes media events to Kafka.
type Producer struct {
	client   sender
	strategy retry.Strategy
}

// New creates a Producer writing to cfg.Topic.
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	return &Producer{
		client:   clientSender{wbfkafka.NewProducer(cfg.Brokers, cfg.Topic)},
		strategy: s,
	}
}

// Publish sends event as JSON. The stored and deleted events of one image
// share a key and therefore a partition.
func (p *Producer) Publish(ctx context.Context, event model.ImageEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("producer: failed to marshal %s event: %w", event.Type, err)
	}

	if err := p.client.SendWithRetry(ctx, p.strategy, Key(event), data); err != nil {
		return fmt.Errorf("producer: failed to send %s event: %w", event.Type, err)
	}

	return nil
}

// Close flushes and closes the Kafka writer.
func (p *Producer) Close() error {
	return p.client.Close()
}

// Key returns the partition key of an event: subfolder/first name, or the
// subfolder alone when the event carries no names.
func Key(event model.ImageEvent) []byte {
	if len(event.Names) == 0 {
		return []byte(event.Subfolder)
	}

	return []byte(event.Subfolder + "/" + event.Names[0])
}

// clientSender adapts the wbf producer to sender.
type clientSender struct {
	p *wbfkafka.Producer
}

func (s clientSender) SendWithRetry(ctx context.Context, st retry.Strategy, key, value []byte) error {
	return s.p.SendWithRetry(ctx, st, key, value)
}

func (s clientSender) Close() error { return s.p.Close() }
