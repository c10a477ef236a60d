package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aliskhannn/prok/internal/model"
	userrepo "github.com/aliskhannn/prok/internal/repository/user"
)

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrWeakPassword       = errors.New("password does not meet complexity requirements")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var (
	// unsafeChars matches everything that is not allowed in usernames and emails.
	unsafeChars = regexp.MustCompile(`[^\w@.\-]`)

	// complexPassword uses lookaheads, so it is compiled with regexp2.
	complexPassword = regexp2.MustCompile(
		`^(?=.*[a-z])(?=.*[A-Z])(?=.*\d)(?=.*[@$!%*?&])[A-Za-z\d@$!%*?&]{8,}$`,
		regexp2.ECMAScript,
	)
)

// repository defines the interface for user persistence.
type repository interface {
	CreateUser(ctx context.Context, u model.User) (uuid.UUID, error)
	GetByLogin(ctx context.Context, login string) (model.User, error)
}

// tokenIssuer signs access tokens.
type tokenIssuer interface {
	Issue(userID uuid.UUID, username string) (string, error)
}

// Service handles signup and login.
type Service struct {
	repo   repository
	tokens tokenIssuer
	cost   int
}

// NewService creates a new user Service.
func NewService(r repository, t tokenIssuer) *Service {
	return &Service{repo: r, tokens: t, cost: bcrypt.DefaultCost}
}

// Sanitize trims s and strips characters outside [A-Za-z0-9_@.-].
func Sanitize(s string) string {
	return unsafeChars.ReplaceAllString(strings.TrimSpace(s), "")
}

// IsPasswordComplex reports whether password has at least 8 characters from
// [A-Za-z0-9@$!%*?&] and contains a lower-case letter, an upper-case letter,
// a digit and one of @$!%*?&.
func IsPasswordComplex(password string) bool {
	ok, err := complexPassword.MatchString(password)
	return err == nil && ok
}

// Register creates a user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (model.User, error) {
	username, email = Sanitize(username), Sanitize(email)
	if username == "" || email == "" || password == "" {
		return model.User{}, ErrMissingFields
	}

	if !IsPasswordComplex(password) {
		return model.User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := model.User{Username: username, Email: email, PasswordHash: string(hash)}
	u.ID, err = s.repo.CreateUser(ctx, u)
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

// Login checks the credentials and returns a signed token with the user.
// login may be either the username or the email.
func (s *Service) Login(ctx context.Context, login, password string) (string, model.User, error) {
	u, err := s.repo.GetByLogin(ctx, Sanitize(login))
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			return "", model.User{}, ErrInvalidCredentials
		}
		return "", model.User{}, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", model.User{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return "", model.User{}, fmt.Errorf("issue token: %w", err)
	}

	return token, u, nil
}
