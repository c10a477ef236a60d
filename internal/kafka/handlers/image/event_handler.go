package image

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/prok/internal/model"
)

// mirror is the remote copy of the image storage.
type mirror interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, subdir, filename string) error
}

// source opens locally stored images.
type source interface {
	Open(subdir, filename string) (*os.File, error)
}

// EventHandler handles Kafka messages about stored and deleted images
// by replicating them to the mirror.
type EventHandler struct {
	mirror mirror
	source source
}

// NewEventHandler creates a new handler with the given mirror and local source.
func NewEventHandler(m mirror, s source) *EventHandler {
	return &EventHandler{mirror: m, source: s}
}

// Handle processes a Kafka message containing an image event.
func (h *EventHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.ImageEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}

	switch event.Type {
	case model.EventStored:
		for _, name := range event.Names {
			if err := h.copy(ctx, event.Subfolder, name); err != nil {
				return fmt.Errorf("mirror %s/%s: %w", event.Subfolder, name, err)
			}
		}
	case model.EventDeleted:
		for _, name := range event.Names {
			if err := h.mirror.Delete(ctx, event.Subfolder, name); err != nil {
				return fmt.Errorf("remove %s/%s: %w", event.Subfolder, name, err)
			}
		}
	default:
		zlog.Logger.Warn().Str("type", event.Type).Msg("unknown image event, skipping")
	}

	return nil
}

// copy uploads one local file. A file that has been deleted in the
// meantime is skipped, its deleted event will follow.
func (h *EventHandler) copy(ctx context.Context, subdir, name string) error {
	f, err := h.source.Open(subdir, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			zlog.Logger.Warn().Str("name", name).Msg("image vanished before mirroring")
			return nil
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	_, err = h.mirror.Save(ctx, subdir, name, f, info.Size(), mt.String())
	return err
}
