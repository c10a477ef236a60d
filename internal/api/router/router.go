package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aliskhannn/prok/internal/api/handlers/media"
	"github.com/aliskhannn/prok/internal/api/handlers/post"
	"github.com/aliskhannn/prok/internal/api/handlers/profile"
	"github.com/aliskhannn/prok/internal/api/handlers/user"
	"github.com/aliskhannn/prok/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	User    *user.Handler
	Profile *profile.Handler
	Post    *post.Handler
	Media   *media.Handler
}

// Setup builds the gin engine with all API routes.
func Setup(h Handlers, tokens middleware.TokenParser, origins []string) *gin.Engine {
	r := gin.New()

	r.Use(middleware.CORSMiddleware(origins))
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	auth := middleware.RequireAuth(tokens)
	optional := middleware.OptionalAuth(tokens)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	api.POST("/auth/signup", h.User.Signup) // creating an account
	api.POST("/auth/login", h.User.Login)   // issuing a token

	api.GET("/profile", auth, h.Profile.GetOwn)
	api.PUT("/profile", auth, h.Profile.Update)
	api.GET("/profile/:userID", h.Profile.GetByUser)
	api.POST("/upload/profile-image", auth, h.Profile.UploadImage)
	api.POST("/upload/post-image", auth, h.Media.UploadPostImage)
	api.GET("/images/:subfolder/:filename", optional, h.Media.Serve)

	api.POST("/posts", auth, h.Post.Create)       // creating a post
	api.GET("/posts/:id", h.Post.Get)             // getting a post by id
	api.DELETE("/posts/:id", auth, h.Post.Delete) // deleting own post
	api.GET("/feed", h.Post.Feed)                 // latest posts

	return r
}
