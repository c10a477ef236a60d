package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/prok/internal/model"
)

func TestKey(t *testing.T) {
	stored := model.ImageEvent{Type: model.EventStored, Subfolder: "posts", Names: []string{"img_1_a.png", "thumb_img_1_a.png"}}
	deleted := model.ImageEvent{Type: model.EventDeleted, Subfolder: "posts", Names: []string{"img_1_a.png"}}

	assert.Equal(t, []byte("posts/img_1_a.png"), Key(stored))
	assert.Equal(t, Key(stored), Key(deleted))
	assert.Equal(t, []byte("posts"), Key(model.ImageEvent{Subfolder: "posts"}))
}

type recordingSender struct {
	key, value []byte
	err        error
}

func (s *recordingSender) SendWithRetry(_ context.Context, _ retry.Strategy, key, value []byte) error {
	s.key, s.value = key, value
	return s.err
}

func (s *recordingSender) Close() error { return nil }

func TestPublish(t *testing.T) {
	rs := &recordingSender{}
	p := &Producer{client: rs, strategy: retry.Strategy{Attempts: 1}}

	event := model.ImageEvent{Type: model.EventStored, Subfolder: "profile", Names: []string{"img_1_a.jpg"}}
	require.NoError(t, p.Publish(context.Background(), event))

	assert.Equal(t, []byte("profile/img_1_a.jpg"), rs.key)

	var got model.ImageEvent
	require.NoError(t, json.Unmarshal(rs.value, &got))
	assert.Equal(t, event, got)
}

func TestPublishWrapsSendError(t *testing.T) {
	boom := errors.New("broker down")
	p := &Producer{client: &recordingSender{err: boom}}

	err := p.Publish(context.Background(), model.ImageEvent{Type: model.EventDeleted, Subfolder: "posts"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
