package post

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/prok/internal/model"
)

const (
	// Subfolder is the namespace tag post media is stored under.
	Subfolder = "posts"
	// FeedLimit is the number of posts returned by Feed.
	FeedLimit = 50
)

var ErrEmptyContent = errors.New("content is required")

// repository defines the interface for post persistence.
type repository interface {
	CreatePost(ctx context.Context, p model.Post) (model.Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (model.Post, error)
	DeletePost(ctx context.Context, id, userID uuid.UUID) error
	Latest(ctx context.Context, limit int) ([]model.Post, error)
}

// uploader runs uploads through the media pipeline.
type uploader interface {
	Accept(ctx context.Context, req model.UploadRequest) (model.UploadResult, error)
	Discard(ctx context.Context, subfolder string, names ...string) error
}

// Service manages posts and their media.
type Service struct {
	repo     repository
	uploader uploader
}

// NewService creates a new post Service.
func NewService(r repository, u uploader) *Service {
	return &Service{repo: r, uploader: u}
}

// Create stores a post. When media is not nil it is run through the upload
// pipeline first and the post references the stored variants.
func (s *Service) Create(ctx context.Context, p model.Post, media *model.UploadRequest) (model.Post, error) {
	if p.Content == "" {
		return model.Post{}, ErrEmptyContent
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Visibility == "" {
		p.Visibility = "public"
	}

	var res model.UploadResult
	if media != nil {
		media.Subfolder = Subfolder

		var err error
		res, err = s.uploader.Accept(ctx, *media)
		if err != nil {
			return model.Post{}, err
		}

		p.MediaURL = res.OriginalName
		if res.ThumbnailWritten {
			p.MediaThumbnail = res.ThumbnailName
		}
	}

	created, err := s.repo.CreatePost(ctx, p)
	if err != nil {
		if media != nil {
			if dErr := s.uploader.Discard(context.WithoutCancel(ctx), Subfolder, res.Names()...); dErr != nil {
				zlog.Logger.Err(dErr).Strs("names", res.Names()).Msg("failed to discard orphaned post media")
			}
		}
		return model.Post{}, fmt.Errorf("create post: %w", err)
	}

	return created, nil
}

// Get returns a post by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.Post, error) {
	p, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return model.Post{}, fmt.Errorf("get post: %w", err)
	}

	return p, nil
}

// Delete removes a post owned by userID together with its media.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	p, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}
	if p.UserID != userID {
		return model.ErrForbidden
	}

	if err := s.repo.DeletePost(ctx, id, userID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	if err := s.uploader.Discard(ctx, Subfolder, p.MediaURL, p.MediaThumbnail); err != nil {
		zlog.Logger.Err(err).Str("post_id", id.String()).Msg("failed to discard post media")
	}

	return nil
}

// Feed returns the latest posts, newest first.
func (s *Service) Feed(ctx context.Context) ([]model.Post, error) {
	posts, err := s.repo.Latest(ctx, FeedLimit)
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}

	return posts, nil
}
