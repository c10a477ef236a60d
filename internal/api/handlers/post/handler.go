package post

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/prok/internal/api/handlers/media"
	"github.com/aliskhannn/prok/internal/api/respond"
	"github.com/aliskhannn/prok/internal/middleware"
	"github.com/aliskhannn/prok/internal/model"
	postrepo "github.com/aliskhannn/prok/internal/repository/post"
	postsvc "github.com/aliskhannn/prok/internal/service/post"
)

// service defines the interface for post operations.
type service interface {
	Create(ctx context.Context, p model.Post, media *model.UploadRequest) (model.Post, error)
	Get(ctx context.Context, id uuid.UUID) (model.Post, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	Feed(ctx context.Context) ([]model.Post, error)
}

// Handler provides HTTP handlers for posts and the feed.
type Handler struct {
	service  service
	maxBytes int64
}

// NewHandler creates a new Handler with the given service and per-file
// upload ceiling.
func NewHandler(s service, maxBytes int64) *Handler {
	return &Handler{service: s, maxBytes: maxBytes}
}

// Create handles a multipart post with text fields and an optional
// "media" file.
func (h *Handler) Create(c *gin.Context) {
	var upload *model.UploadRequest

	req, done, err := media.FormFile(c, "media", h.maxBytes)
	switch {
	case err == nil:
		defer done()
		upload = &req
	case model.IsValidation(err) && err.Error() == media.ReasonNoFile:
		// Text-only post.
	default:
		respond.FailUpload(c, err)
		return
	}

	p := model.Post{
		UserID:     middleware.UserID(c),
		Content:    strings.TrimSpace(c.PostForm("content")),
		Category:   c.PostForm("category"),
		Visibility: c.PostForm("visibility"),
		Tags:       splitTags(c.PostForm("tags")),
	}

	created, err := h.service.Create(c.Request.Context(), p, upload)
	if err != nil {
		if errors.Is(err, postsvc.ErrEmptyContent) {
			respond.Fail(c, http.StatusBadRequest, err)
			return
		}

		respond.FailUpload(c, err)
		return
	}

	respond.Created(c, created)
}

// Get returns a single post.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, postrepo.ErrPostNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("post not found"))
			return
		}

		zlog.Logger.Err(err).Msg("failed to get post")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to get post"))
		return
	}

	respond.OK(c, p)
}

// Delete removes a post owned by the authenticated user.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		switch {
		case errors.Is(err, postrepo.ErrPostNotFound):
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("post not found"))
		case errors.Is(err, model.ErrForbidden):
			respond.Fail(c, http.StatusForbidden, fmt.Errorf("not the owner of this post"))
		default:
			zlog.Logger.Err(err).Msg("failed to delete post")
			respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to delete post"))
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// Feed returns the latest posts.
func (h *Handler) Feed(c *gin.Context) {
	posts, err := h.service.Feed(c.Request.Context())
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to get feed")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to get feed"))
		return
	}

	respond.OK(c, posts)
}

// splitTags parses a comma-separated tag list.
func splitTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	return tags
}
