package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/prok/internal/config"
)

// fetchBackoff is the pause after a fetch that failed all of its retries.
const fetchBackoff = 500 * time.Millisecond

// reader is the part of the Kafka consumer client the loop needs.
type reader interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
	Close() error
}

// eventHandler processes one media event message.
type eventHandler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// Consumer reads media events from the configured topic and hands each one
// to the event handler.
type Consumer struct {
	client   reader
	handler  eventHandler
	topic    string
	strategy retry.Strategy
}

// New creates a Consumer subscribed to cfg.Topic in group cfg.GroupID.
func New(cfg *config.Kafka, s retry.Strategy, h eventHandler) *Consumer {
	client := clientReader{wbfkafka.NewConsumer(cfg.Brokers, cfg.Topic, cfg.GroupID)}
	return newConsumer(client, cfg.Topic, s, h)
}

func newConsumer(r reader, topic string, s retry.Strategy, h eventHandler) *Consumer {
	return &Consumer{
		client:   r,
		handler:  h,
		topic:    topic,
		strategy: s,
	}
}

// Consume runs until ctx is canceled. A message is committed only after the
// handler accepted it; a failed message stays uncommitted and is redelivered
// after a rebalance or restart.
func (c *Consumer) Consume(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	zlog.Logger.Info().Str("topic", c.topic).Msg("starting media event consumer")

	for ctx.Err() == nil {
		msg, err := c.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			zlog.Logger.Err(err).Str("topic", c.topic).Msg("failed to fetch media event")
			sleep(ctx, fetchBackoff)
			continue
		}

		c.process(ctx, msg)
	}

	zlog.Logger.Info().Str("topic", c.topic).Msg("media event consumer stopped")
}

// Close releases the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.client.Close()
}

func (c *Consumer) fetch(ctx context.Context) (kafka.Message, error) {
	var msg kafka.Message
	err := retry.Do(func() error {
		var fetchErr error
		msg, fetchErr = c.client.Fetch(ctx)
		return fetchErr
	}, c.strategy)

	return msg, err
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	if err := c.handler.Handle(ctx, msg); err != nil {
		zlog.Logger.Err(err).
			Int64("offset", msg.Offset).
			Str("key", string(msg.Key)).
			Msg("failed to handle media event")
		return
	}

	if err := retry.Do(func() error {
		return c.client.Commit(ctx, msg)
	}, c.strategy); err != nil {
		zlog.Logger.Err(err).Int64("offset", msg.Offset).Msg("failed to commit media event")
		return
	}

	zlog.Logger.Debug().
		Int64("offset", msg.Offset).
		Str("key", string(msg.Key)).
		Msg("media event handled")
}

// clientReader adapts the wbf consumer to reader.
type clientReader struct {
	c *wbfkafka.Consumer
}

func (r clientReader) Fetch(ctx context.Context) (kafka.Message, error) { return r.c.Fetch(ctx) }

func (r clientReader) Commit(ctx context.Context, msg kafka.Message) error {
	return r.c.Commit(ctx, msg)
}

func (r clientReader) Close() error { return r.c.Close() }

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
