package consumer

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

// scriptedReader serves msgs in order and cancels the consumer once they
// are exhausted.
type scriptedReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *scriptedReader) Fetch(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *scriptedReader) Commit(_ context.Context, msg kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.committed = append(r.committed, msg.Offset)
	return nil
}

func (r *scriptedReader) Close() error { return nil }

type handlerFunc func(ctx context.Context, msg kafka.Message) error

func (f handlerFunc) Handle(ctx context.Context, msg kafka.Message) error { return f(ctx, msg) }

func TestConsumeCommitsOnlyHandledMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &scriptedReader{
		msgs:   []kafka.Message{{Offset: 1}, {Offset: 2}, {Offset: 3}},
		cancel: cancel,
	}

	var handled []int64
	h := handlerFunc(func(_ context.Context, msg kafka.Message) error {
		handled = append(handled, msg.Offset)
		if msg.Offset == 2 {
			return errors.New("bucket unavailable")
		}
		return nil
	})

	c := newConsumer(r, "media", retry.Strategy{Attempts: 1}, h)

	var wg sync.WaitGroup
	wg.Add(1)
	c.Consume(ctx, &wg)
	wg.Wait()

	assert.Equal(t, []int64{1, 2, 3}, handled)
	assert.Equal(t, []int64{1, 3}, r.committed)
}

func TestConsumeStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &scriptedReader{cancel: cancel}
	h := handlerFunc(func(context.Context, kafka.Message) error {
		t.Fatal("handler must not run")
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	newConsumer(r, "media", retry.Strategy{Attempts: 1}, h).Consume(ctx, &wg)
	wg.Wait()

	assert.Empty(t, r.committed)
}
