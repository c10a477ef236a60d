package profile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/prok/internal/model"
)

// Subfolder is the namespace tag profile images are stored under.
const Subfolder = "profile"

// repository defines the interface for profile persistence.
type repository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (model.Profile, error)
	Upsert(ctx context.Context, p model.Profile) (uuid.UUID, error)
	SetImage(ctx context.Context, userID uuid.UUID, image, thumbnail string) (string, string, error)
}

// uploader runs uploads through the media pipeline.
type uploader interface {
	Accept(ctx context.Context, req model.UploadRequest) (model.UploadResult, error)
	Discard(ctx context.Context, subfolder string, names ...string) error
}

// Service manages user profiles and their images.
type Service struct {
	repo     repository
	uploader uploader
}

// NewService creates a new profile Service.
func NewService(r repository, u uploader) *Service {
	return &Service{repo: r, uploader: u}
}

// Get returns the profile of a user.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	return p, nil
}

// Update replaces the text fields and sub-entities of the user's profile
// and returns the stored result.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, p model.Profile) (model.Profile, error) {
	p.UserID = userID
	if _, err := s.repo.Upsert(ctx, p); err != nil {
		return model.Profile{}, fmt.Errorf("update profile: %w", err)
	}

	return s.Get(ctx, userID)
}

// SetImage stores a new profile image and points the profile at it. The
// replaced image is discarded once the profile row is updated. If the
// update fails the new files are discarded instead.
func (s *Service) SetImage(ctx context.Context, userID uuid.UUID, req model.UploadRequest) (model.UploadResult, error) {
	req.Subfolder = Subfolder

	res, err := s.uploader.Accept(ctx, req)
	if err != nil {
		return model.UploadResult{}, err
	}

	thumbnail := ""
	if res.ThumbnailWritten {
		thumbnail = res.ThumbnailName
	}

	oldImage, oldThumbnail, err := s.repo.SetImage(ctx, userID, res.OriginalName, thumbnail)
	if err != nil {
		if dErr := s.uploader.Discard(context.WithoutCancel(ctx), Subfolder, res.Names()...); dErr != nil {
			zlog.Logger.Err(dErr).Strs("names", res.Names()).Msg("failed to discard orphaned profile image")
		}
		return model.UploadResult{}, fmt.Errorf("set profile image: %w", err)
	}

	if err := s.uploader.Discard(ctx, Subfolder, oldImage, oldThumbnail); err != nil {
		zlog.Logger.Err(err).Str("user_id", userID.String()).Msg("failed to discard replaced profile image")
	}

	return res, nil
}
