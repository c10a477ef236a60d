package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/prok/internal/api/respond"
	"github.com/aliskhannn/prok/internal/middleware"
	"github.com/aliskhannn/prok/internal/model"
	"github.com/aliskhannn/prok/internal/retriever"
	postsvc "github.com/aliskhannn/prok/internal/service/post"
)

// ReasonNoFile is returned when the multipart form has no image part.
const ReasonNoFile = "No image file provided"

// formOverhead is the room left for multipart headers and text fields on
// top of the file ceiling.
const formOverhead = 1 << 20

// uploader runs uploads through the media pipeline.
type uploader interface {
	Accept(ctx context.Context, req model.UploadRequest) (model.UploadResult, error)
}

// resolver opens stored images for a requester.
type resolver interface {
	Resolve(ctx context.Context, subfolder, filename string, requester uuid.UUID) (*model.Object, error)
}

// Handler provides HTTP handlers for uploading and serving images.
type Handler struct {
	uploader uploader
	resolver resolver
	maxBytes int64
}

// NewHandler creates a new Handler. maxBytes is the per-file ceiling.
func NewHandler(u uploader, r resolver, maxBytes int64) *Handler {
	return &Handler{uploader: u, resolver: r, maxBytes: maxBytes}
}

// FormFile reads the multipart file part named field into an upload
// request. The request body is capped at maxBytes plus form overhead; a
// larger body fails with model.ErrTooLarge. The returned func closes the
// file and must be called once the request is processed.
func FormFile(c *gin.Context, field string, maxBytes int64) (model.UploadRequest, func(), error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+formOverhead)

	file, header, err := c.Request.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return model.UploadRequest{}, nil, model.ErrTooLarge
		case errors.Is(err, http.ErrMissingFile):
			return model.UploadRequest{}, nil, &model.ValidationError{Reason: ReasonNoFile}
		default:
			zlog.Logger.Err(err).Msg("failed to read multipart form")
			return model.UploadRequest{}, nil, &model.ValidationError{Reason: "Invalid upload request"}
		}
	}

	zlog.Logger.Info().
		Str("filename", header.Filename).
		Int64("size", header.Size).
		Msg("received upload")

	req := model.UploadRequest{
		Body:           file,
		Filename:       header.Filename,
		DeclaredLength: header.Size,
	}

	return req, func() { _ = file.Close() }, nil
}

// UploadPostImage handles an image upload for post content and returns
// the stored names.
func (h *Handler) UploadPostImage(c *gin.Context) {
	req, done, err := FormFile(c, "image", h.maxBytes)
	if err != nil {
		respond.FailUpload(c, err)
		return
	}
	defer done()

	req.Subfolder = postsvc.Subfolder

	res, err := h.uploader.Accept(c.Request.Context(), req)
	if err != nil {
		respond.FailUpload(c, err)
		return
	}

	respond.OK(c, gin.H{
		"msg":   "Image uploaded successfully",
		"image": res,
	})
}

// Serve streams a stored image after the retriever's checks.
func (h *Handler) Serve(c *gin.Context) {
	obj, err := h.resolver.Resolve(
		c.Request.Context(), c.Param("subfolder"), c.Param("filename"), middleware.UserID(c),
	)
	if err != nil {
		status := respond.Status(err)
		if status == http.StatusInternalServerError {
			zlog.Logger.Err(err).Msg("failed to resolve image")
			respond.Fail(c, status, fmt.Errorf("failed to get image"))
			return
		}

		respond.Fail(c, status, err)
		return
	}
	defer obj.Body.Close()

	respond.Image(c, obj, retriever.Headers)
}
