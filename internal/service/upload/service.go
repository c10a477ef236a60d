package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/prok/internal/model"
)

// ReasonUnknownSubfolder is returned for uploads into an unregistered tag.
const ReasonUnknownSubfolder = "Unknown upload destination"

// contentValidator checks an upload by its bytes.
type contentValidator interface {
	Validate(filename string, body io.ReadSeeker, declared int64) model.ValidationOutcome
}

// nameGenerator generates storage names.
type nameGenerator interface {
	Sanitize(raw string) (string, error)
}

// fileStorage stages raw uploads and removes stored variants.
type fileStorage interface {
	Stage(ctx context.Context, src io.Reader) (string, func(), error)
	Delete(ctx context.Context, subdir, filename string) error
}

// processor writes the primary and thumbnail variants.
type processor interface {
	Transcode(ctx context.Context, job model.TranscodeJob) (model.TranscodeResult, error)
}

// publisher announces stored and deleted images (e.g., to Kafka).
type publisher interface {
	Publish(ctx context.Context, event model.ImageEvent) error
}

// observer records pipeline outcomes (e.g., Prometheus metrics).
type observer interface {
	RecordUpload(subfolder string, duration time.Duration, res model.UploadResult, err error)
}

// Service is the upload pipeline: validate, name, stage, transcode.
// It keeps no state between calls.
type Service struct {
	validator   contentValidator
	sanitizer   nameGenerator
	fileStorage fileStorage
	processor   processor
	namespace   model.Namespace
	publisher   publisher
	observer    observer
}

// NewService creates a new Service. pub may be nil, in which case no
// events are published.
func NewService(v contentValidator, s nameGenerator, fs fileStorage, p processor, ns model.Namespace, pub publisher) *Service {
	return &Service{
		validator:   v,
		sanitizer:   s,
		fileStorage: fs,
		processor:   p,
		namespace:   ns,
		publisher:   pub,
	}
}

// WithObserver makes the service report every Accept call to o.
func (s *Service) WithObserver(o observer) *Service {
	s.observer = o
	return s
}

// Accept runs one upload through the pipeline and returns the names of the
// stored variants. It stops at the first failing stage. Validation
// failures are returned as *model.ValidationError. Each call creates new
// names, identical bytes are never deduplicated.
//
// Whatever the outcome, the staged copy is removed, and if ctx is done
// after variants were written they are deleted again.
func (s *Service) Accept(ctx context.Context, req model.UploadRequest) (model.UploadResult, error) {
	start := time.Now()
	res, err := s.accept(ctx, req)
	if s.observer != nil {
		s.observer.RecordUpload(req.Subfolder, time.Since(start), res, err)
	}

	return res, err
}

func (s *Service) accept(ctx context.Context, req model.UploadRequest) (model.UploadResult, error) {
	if !s.namespace.Has(req.Subfolder) {
		return model.UploadResult{}, &model.ValidationError{Reason: ReasonUnknownSubfolder}
	}

	if err := s.validator.Validate(req.Filename, req.Body, req.DeclaredLength).Err(); err != nil {
		return model.UploadResult{}, err
	}

	name, err := s.sanitizer.Sanitize(req.Filename)
	if err != nil {
		return model.UploadResult{}, err
	}

	if err := ctx.Err(); err != nil {
		return model.UploadResult{}, fmt.Errorf("upload: aborted: %w", err)
	}

	src, cleanup, err := s.fileStorage.Stage(ctx, req.Body)
	if err != nil {
		return model.UploadResult{}, fmt.Errorf("upload: failed to stage file: %w", err)
	}
	defer cleanup()

	job := model.TranscodeJob{
		SourcePath:    src,
		Subfolder:     req.Subfolder,
		Name:          name,
		ThumbnailName: model.ThumbnailPrefix + name,
	}

	res, err := s.processor.Transcode(ctx, job)
	if err != nil {
		s.rollback(job, res)
		return model.UploadResult{}, fmt.Errorf("upload: failed to process image: %w", err)
	}

	if err := ctx.Err(); err != nil {
		s.rollback(job, res)
		return model.UploadResult{}, fmt.Errorf("upload: aborted: %w", err)
	}

	result := model.UploadResult{
		OriginalName:     job.Name,
		ThumbnailName:    job.ThumbnailName,
		OriginalPath:     res.PrimaryPath,
		ThumbnailPath:    res.ThumbnailPath,
		ThumbnailWritten: res.ThumbnailWritten,
	}

	s.publish(ctx, model.EventStored, req.Subfolder, result.Names())

	return result, nil
}

// Discard deletes stored variants that are no longer referenced. Empty
// names are skipped. Handlers call it after replacing or deleting the
// record that pointed at the files.
func (s *Service) Discard(ctx context.Context, subfolder string, names ...string) error {
	var (
		errs    []error
		removed []string
	)

	for _, name := range names {
		if name == "" {
			continue
		}
		if err := s.fileStorage.Delete(ctx, subfolder, name); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, name)
	}

	if len(removed) > 0 {
		s.publish(ctx, model.EventDeleted, subfolder, removed)
	}

	return errors.Join(errs...)
}

// rollback removes whatever the processor managed to write.
func (s *Service) rollback(job model.TranscodeJob, res model.TranscodeResult) {
	ctx := context.Background()

	if res.PrimaryWritten {
		if err := s.fileStorage.Delete(ctx, job.Subfolder, job.Name); err != nil {
			zlog.Logger.Err(err).Str("name", job.Name).Msg("failed to remove primary after abort")
		}
	}
	if res.ThumbnailWritten {
		if err := s.fileStorage.Delete(ctx, job.Subfolder, job.ThumbnailName); err != nil {
			zlog.Logger.Err(err).Str("name", job.ThumbnailName).Msg("failed to remove thumbnail after abort")
		}
	}
}

func (s *Service) publish(ctx context.Context, typ, subfolder string, names []string) {
	if s.publisher == nil {
		return
	}

	event := model.ImageEvent{
		Type:      typ,
		Subfolder: subfolder,
		Names:     names,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		zlog.Logger.Err(err).
			Str("type", typ).
			Strs("names", names).
			Msg("failed to publish image event")
	}
}
