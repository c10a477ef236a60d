package post

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/prok/internal/auth"
	"github.com/aliskhannn/prok/internal/middleware"
	"github.com/aliskhannn/prok/internal/model"
	postrepo "github.com/aliskhannn/prok/internal/repository/post"
	postsvc "github.com/aliskhannn/prok/internal/service/post"
	"github.com/aliskhannn/prok/internal/testutils"
)

type fakeService struct {
	created   model.Post
	media     *model.UploadRequest
	mediaData []byte
	owner     uuid.UUID
	post      model.Post
}

func (f *fakeService) Create(_ context.Context, p model.Post, media *model.UploadRequest) (model.Post, error) {
	if p.Content == "" {
		return model.Post{}, fmt.Errorf("create: %w", postsvc.ErrEmptyContent)
	}
	if media != nil {
		if media.Filename == "virus.exe" {
			return model.Post{}, &model.ValidationError{Reason: "File type not allowed"}
		}
		f.mediaData = make([]byte, media.DeclaredLength)
		_, _ = io.ReadFull(media.Body, f.mediaData)
		p.MediaURL = "img_1_aaaaaaaa.png"
	}
	f.created, f.media = p, media
	p.ID = uuid.New()
	return p, nil
}

func (f *fakeService) Get(_ context.Context, id uuid.UUID) (model.Post, error) {
	if id != f.post.ID {
		return model.Post{}, fmt.Errorf("get post: %w", postrepo.ErrPostNotFound)
	}
	return f.post, nil
}

func (f *fakeService) Delete(_ context.Context, id, userID uuid.UUID) error {
	if id != f.post.ID {
		return postrepo.ErrPostNotFound
	}
	if userID != f.owner {
		return model.ErrForbidden
	}
	return nil
}

func (f *fakeService) Feed(context.Context) ([]model.Post, error) {
	return []model.Post{f.post}, nil
}

type env struct {
	engine *gin.Engine
	svc    *fakeService
	token  string
	other  string
}

func newEnv(t *testing.T) env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := auth.NewTokens("secret", time.Hour)
	owner := uuid.New()
	token, err := tokens.Issue(owner, "owner")
	require.NoError(t, err)
	other, err := tokens.Issue(uuid.New(), "other")
	require.NoError(t, err)

	svc := &fakeService{owner: owner, post: model.Post{ID: uuid.New(), UserID: owner, Content: "hello"}}
	h := NewHandler(svc, 5<<20)

	r := gin.New()
	authed := middleware.RequireAuth(tokens)
	r.POST("/api/posts", authed, h.Create)
	r.GET("/api/posts/:id", h.Get)
	r.DELETE("/api/posts/:id", authed, h.Delete)
	r.GET("/api/feed", h.Feed)

	return env{engine: r, svc: svc, token: token, other: other}
}

func (e env) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateTextOnly(t *testing.T) {
	e := newEnv(t)

	body, ct := testutils.Multipart(t, "", "", nil, map[string]string{
		"content": "  hello world ",
		"tags":    "go, backend,,",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", ct)

	w := e.serve(req, e.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Nil(t, e.svc.media)
	assert.Equal(t, "hello world", e.svc.created.Content)
	assert.Equal(t, []string{"go", "backend"}, e.svc.created.Tags)
	assert.Equal(t, e.svc.owner, e.svc.created.UserID)
}

func TestHandler_CreateWithMedia(t *testing.T) {
	e := newEnv(t)
	data := testutils.PNG(t, 10, 10)

	body, ct := testutils.Multipart(t, "media", "pic.png", data, map[string]string{"content": "look"})
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", ct)

	w := e.serve(req, e.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, e.svc.media)
	assert.Equal(t, "pic.png", e.svc.media.Filename)
	assert.Equal(t, data, e.svc.mediaData)

	var resp struct {
		Result model.Post `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "img_1_aaaaaaaa.png", resp.Result.MediaURL)
}

func TestHandler_CreateErrors(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name       string
		field      string
		filename   string
		fields     map[string]string
		token      string
		wantStatus int
	}{
		{"anonymous", "", "", map[string]string{"content": "x"}, "", http.StatusUnauthorized},
		{"empty content", "", "", nil, e.token, http.StatusBadRequest},
		{"rejected media", "media", "virus.exe", map[string]string{"content": "x"}, e.token, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := testutils.Multipart(t, tt.field, tt.filename, []byte("MZ"), tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
			req.Header.Set("Content-Type", ct)

			w := e.serve(req, tt.token)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestHandler_GetDeleteFeed(t *testing.T) {
	e := newEnv(t)
	path := "/api/posts/" + e.svc.post.ID.String()

	w := e.serve(httptest.NewRequest(http.MethodGet, path, nil), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.serve(httptest.NewRequest(http.MethodGet, "/api/posts/"+uuid.NewString(), nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.serve(httptest.NewRequest(http.MethodGet, "/api/posts/not-a-uuid", nil), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.serve(httptest.NewRequest(http.MethodDelete, path, nil), e.other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.serve(httptest.NewRequest(http.MethodDelete, path, nil), e.token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = e.serve(httptest.NewRequest(http.MethodGet, "/api/feed", nil), "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Result []model.Post `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Result, 1)
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{}, splitTags(""))
	assert.Equal(t, []string{"a", "b"}, splitTags(" a ,b,, "))
}
