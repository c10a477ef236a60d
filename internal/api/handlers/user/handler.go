package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/prok/internal/api/respond"
	"github.com/aliskhannn/prok/internal/model"
	userrepo "github.com/aliskhannn/prok/internal/repository/user"
	usersvc "github.com/aliskhannn/prok/internal/service/user"
)

// service defines the interface for account operations.
type service interface {
	Register(ctx context.Context, username, email, password string) (model.User, error)
	Login(ctx context.Context, login, password string) (string, model.User, error)
}

// Handler provides HTTP handlers for signup and login.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/auth/login. Username may also hold
// the email address.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates a new account.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	u, err := h.service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, usersvc.ErrMissingFields),
			errors.Is(err, usersvc.ErrWeakPassword),
			errors.Is(err, userrepo.ErrUsernameTaken),
			errors.Is(err, userrepo.ErrEmailTaken):
			respond.Fail(c, http.StatusBadRequest, unwrapSentinel(err))
		default:
			zlog.Logger.Err(err).Msg("failed to register user")
			respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("registration failed"))
		}
		return
	}

	respond.Created(c, u)
}

// Login issues an access token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	login := req.Username
	if login == "" {
		login = req.Email
	}

	token, u, err := h.service.Login(c.Request.Context(), login, req.Password)
	if err != nil {
		if errors.Is(err, usersvc.ErrInvalidCredentials) {
			respond.Fail(c, http.StatusUnauthorized, err)
			return
		}

		zlog.Logger.Err(err).Msg("failed to login")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("login failed"))
		return
	}

	respond.OK(c, gin.H{"token": token, "user": u})
}

// unwrapSentinel strips context added by the service so only the
// client-facing message is returned.
func unwrapSentinel(err error) error {
	for _, s := range []error{userrepo.ErrUsernameTaken, userrepo.ErrEmailTaken} {
		if errors.Is(err, s) {
			return s
		}
	}

	return err
}
