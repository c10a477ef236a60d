package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// New creates the HTTP server. Write timeout leaves room for streaming
// images and processing uploads.
func New(addr string, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
