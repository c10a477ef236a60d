package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/prok/internal/model"
)

// Success represents a standard structure for successful responses.
type Success struct {
	Result interface{} `json:"result"`
}

// Error represents a standard structure for error responses.
type Error struct {
	Message string `json:"message"`
}

// Image streams a stored image as the HTTP response, with the given extra headers.
// Range and conditional requests are handled by http.ServeContent.
func Image(c *gin.Context, obj *model.Object, headers map[string]string) {
	for k, v := range headers {
		c.Header(k, v)
	}
	c.Header("Content-Type", obj.ContentType)

	http.ServeContent(c.Writer, c.Request, obj.Name, obj.ModTime, obj.Body)
}

// JSON sends a JSON response with the specified HTTP status code and data.
// It uses the Gin context to encode the data into JSON format.
func JSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// OK sends a 200 OK JSON response, wrapping the given result in a Success struct.
func OK(c *gin.Context, result interface{}) {
	JSON(c, http.StatusOK, Success{Result: result})
}

// Created sends a 201 Created JSON response, wrapping the given result in a Success struct.
func Created(c *gin.Context, result interface{}) {
	JSON(c, http.StatusCreated, Success{Result: result})
}

// Fail sends an error JSON response with the specified HTTP status code.
// The error message is wrapped in an Error struct.
func Fail(c *gin.Context, status int, err error) {
	JSON(c, status, Error{Message: err.Error()})
}

// Abort is Fail for middleware: it also stops the handler chain.
func Abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, Error{Message: err.Error()})
}

// Status maps pipeline and retrieval errors to HTTP status codes.
func Status(err error) int {
	switch {
	case model.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FailUpload sends the response for a failed upload. Client errors carry
// their reason; server errors are logged and reported as "Upload failed".
func FailUpload(c *gin.Context, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		zlog.Logger.Err(err).Msg("upload failed")
		Fail(c, status, errors.New("Upload failed"))
		return
	}

	Fail(c, status, err)
}
