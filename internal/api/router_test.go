package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blogapi/internal/api"
	"blogapi/internal/app/service"
	"blogapi/internal/common/security"
	"blogapi/internal/domain/repository"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiClient struct {
	t       *testing.T
	handler http.Handler
	store   *repository.Store
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()
	security.InitJWT([]byte("router-test-secret"), time.Hour)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	revocations := security.NewMemoryRevocationStore()
	svc := api.Services{
		Access:   service.NewAccessControl(store.Users, revocations, logger),
		Auth:     service.NewAuthService(store.Users, revocations, logger),
		Posts:    service.NewPostService(store, logger),
		Comments: service.NewCommentService(store, logger),
		Search:   service.NewSearchService(store),
		Users:    service.NewUserService(store, logger),
	}
	return &apiClient{t: t, handler: api.NewRouter(svc, []string{"*"}), store: store}
}

// do sends a request and decodes the JSON response body into a generic map.
func (c *apiClient) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(c.t, err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

type account struct {
	ID    string
	Name  string
	Token string
}

func (c *apiClient) register() account {
	c.t.Helper()
	name := gofakeit.LetterN(8) + gofakeit.DigitN(3)
	code, body := c.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "password123",
	})
	require.Equal(c.t, http.StatusCreated, code, body)
	user := body["user"].(map[string]interface{})
	return account{ID: user["id"].(string), Name: name, Token: body["token"].(string)}
}

func (c *apiClient) createPost(token string, published bool) string {
	c.t.Helper()
	code, body := c.do(http.MethodPost, "/api/posts", token, map[string]interface{}{
		"title":     gofakeit.Sentence(3),
		"content":   gofakeit.Paragraph(1, 2, 6, " "),
		"tags":      []string{"go"},
		"published": published,
	})
	require.Equal(c.t, http.StatusCreated, code, body)
	return body["post"].(map[string]interface{})["id"].(string)
}

func TestHealth(t *testing.T) {
	c := newAPIClient(t)
	code, body := c.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestRegisterLoginLogout(t *testing.T) {
	c := newAPIClient(t)

	code, body := c.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "writer", "email": "writer@example.com", "password": "secret12",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "User registered successfully", body["message"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "writer", user["username"])
	assert.NotContains(t, user, "password")

	code, body = c.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "other", "email": "writer@example.com", "password": "secret12",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User already exists", body["message"])

	code, body = c.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "writer@example.com", "password": "bad-password",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid credentials", body["message"])

	code, body = c.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "writer@example.com", "password": "secret12",
	})
	require.Equal(t, http.StatusOK, code)
	token := body["token"].(string)

	code, _ = c.do(http.MethodGet, "/api/users/profile", token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = c.do(http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, code, body)

	code, _ = c.do(http.MethodGet, "/api/users/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestValidationAndMalformedBodies(t *testing.T) {
	c := newAPIClient(t)

	code, body := c.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "ab", "email": "bad", "password": "1",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, body["message"])
	assert.Len(t, body["errors"], 3)

	code, body = c.do(http.MethodPost, "/api/auth/login", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["message"], "Invalid request payload")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	c := newAPIClient(t)

	code, body := c.do(http.MethodPost, "/api/posts", "", map[string]string{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Not authorized, no token", body["message"])

	code, body = c.do(http.MethodPost, "/api/posts", "not-a-token", map[string]string{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Not authorized, token failed", body["message"])

	code, _ = c.do(http.MethodGet, "/api/search/users?query=a", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPostLifecycle(t *testing.T) {
	c := newAPIClient(t)
	author := c.register()
	reader := c.register()

	id := c.createPost(author.Token, true)

	code, body := c.do(http.MethodGet, "/api/posts/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, author.Name, body["author"].(map[string]interface{})["username"])
	assert.NotContains(t, body, "author_id")

	code, body = c.do(http.MethodPut, "/api/posts/"+id, reader.Token, map[string]string{"title": "mine now"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Not authorized to update this post", body["message"])

	code, body = c.do(http.MethodPut, "/api/posts/"+id, author.Token, map[string]string{"title": "Renamed"})
	require.Equal(t, http.StatusOK, code)
	post := body["post"].(map[string]interface{})
	assert.Equal(t, "Renamed", post["title"])
	assert.Equal(t, "renamed", post["slug"])
	assert.Equal(t, []interface{}{"go"}, post["tags"])

	code, body = c.do(http.MethodPut, "/api/posts/"+id+"/like", reader.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Post liked successfully", body["message"])
	assert.EqualValues(t, 1, body["likes"])

	code, body = c.do(http.MethodPut, "/api/posts/"+id+"/like", reader.Token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Post already liked", body["message"])

	code, body = c.do(http.MethodPut, "/api/posts/"+id+"/unlike", reader.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["likes"])

	code, _ = c.do(http.MethodPost, "/api/comments/"+id, reader.Token, map[string]string{"content": "Great read"})
	require.Equal(t, http.StatusCreated, code)

	code, body = c.do(http.MethodDelete, "/api/posts/"+id, author.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Post deleted successfully", body["message"])

	code, _ = c.do(http.MethodGet, "/api/posts/"+id, author.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodGet, "/api/comments/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUnpublishedPostVisibility(t *testing.T) {
	c := newAPIClient(t)
	author := c.register()
	other := c.register()
	id := c.createPost(author.Token, false)

	code, _ := c.do(http.MethodGet, "/api/posts/"+id, author.Token, nil)
	assert.Equal(t, http.StatusOK, code)

	for _, token := range []string{"", other.Token, "garbage-token"} {
		code, body := c.do(http.MethodGet, "/api/posts/"+id, token, nil)
		assert.Equal(t, http.StatusNotFound, code, "token %q", token)
		assert.Equal(t, "Post not found", body["message"])
	}

	code, body := c.do(http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["total_posts"])
	assert.Equal(t, []interface{}{}, body["posts"])
}

func TestListPostsPagination(t *testing.T) {
	c := newAPIClient(t)
	author := c.register()
	for i := 0; i < 12; i++ {
		c.createPost(author.Token, true)
	}

	code, body := c.do(http.MethodGet, "/api/posts?page=2&limit=5", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["current_page"])
	assert.EqualValues(t, 3, body["total_pages"])
	assert.EqualValues(t, 12, body["total_posts"])
	assert.Len(t, body["posts"], 5)

	code, body = c.do(http.MethodGet, "/api/posts?page=abc&limit=-3", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["current_page"])
	assert.Len(t, body["posts"], 10)

	code, body = c.do(http.MethodGet, fmt.Sprintf("/api/users/%s/posts?limit=20", author.ID), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 12, body["total_posts"])
}

func TestCommentRoutes(t *testing.T) {
	c := newAPIClient(t)
	postAuthor := c.register()
	commenter := c.register()
	id := c.createPost(postAuthor.Token, true)

	code, body := c.do(http.MethodPost, "/api/comments/"+id, commenter.Token, map[string]string{"content": "First!"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Comment added successfully", body["message"])
	comment := body["comment"].(map[string]interface{})
	commentID := comment["id"].(string)
	assert.Equal(t, id, comment["post"])

	code, body = c.do(http.MethodGet, "/api/comments/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total_comments"])

	code, _ = c.do(http.MethodPut, "/api/comments/"+commentID, postAuthor.Token, map[string]string{"content": "edit"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body = c.do(http.MethodPut, "/api/comments/"+commentID+"/like", postAuthor.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["likes"])

	code, body = c.do(http.MethodPut, "/api/comments/"+commentID+"/unlike", commenter.Token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Comment not liked yet", body["message"])

	code, body = c.do(http.MethodDelete, "/api/comments/"+commentID, postAuthor.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Comment deleted successfully", body["message"])
}

func TestSearchRoutes(t *testing.T) {
	c := newAPIClient(t)
	author := c.register()
	code, _ := c.do(http.MethodPost, "/api/posts", author.Token, map[string]string{"title": "Concurrency in Go", "content": "goroutines"})
	require.Equal(t, http.StatusCreated, code)

	code, body := c.do(http.MethodGet, "/api/search/posts?query=CONCURRENCY", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["count"])

	code, body = c.do(http.MethodGet, "/api/search/posts", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Search query is required", body["message"])

	code, body = c.do(http.MethodGet, "/api/search/users?query="+author.Name[:4], author.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.GreaterOrEqual(t, body["count"], float64(1))
	first := body["data"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, first, "hashed_password")
	assert.NotContains(t, first, "password")
}

func TestUserRoutes(t *testing.T) {
	c := newAPIClient(t)
	me := c.register()
	admin := c.register()

	code, body := c.do(http.MethodGet, "/api/users", me.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Not authorized as an admin", body["message"])

	user, err := c.store.Users.FindByID(t.Context(), admin.ID)
	require.NoError(t, err)
	user.IsAdmin = true
	require.NoError(t, c.store.Users.Update(t.Context(), user))

	code, body = c.do(http.MethodGet, "/api/users?search="+me.Name, admin.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total_users"])

	code, body = c.do(http.MethodPut, "/api/users/"+me.ID+"/admin", admin.Token, map[string]bool{"is_admin": true})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["user"].(map[string]interface{})["is_admin"])

	code, body = c.do(http.MethodGet, "/api/users/"+me.ID, admin.Token, nil)
	require.Equal(t, http.StatusOK, code)
	public := body["user"].(map[string]interface{})
	assert.Equal(t, me.Name, public["username"])
	assert.NotContains(t, public, "email")

	code, body = c.do(http.MethodPut, "/api/users/profile", me.Token, map[string]string{"bio": "hello", "username": admin.Name})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Username or email already exists", body["message"])

	code, body = c.do(http.MethodPut, "/api/users/profile", me.Token, map[string]string{"bio": "hello"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello", body["user"].(map[string]interface{})["bio"])

	c.createPost(me.Token, true)
	code, body = c.do(http.MethodGet, "/api/users/profile", me.Token, nil)
	require.Equal(t, http.StatusOK, code)
	profile := body["user"].(map[string]interface{})
	assert.EqualValues(t, 1, profile["stats"].(map[string]interface{})["posts"])
	assert.Len(t, profile["recent_posts"], 1)

	code, body = c.do(http.MethodDelete, "/api/users/profile", me.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Profile and associated data deleted successfully", body["message"])

	code, _ = c.do(http.MethodGet, "/api/users/"+me.ID+"/posts", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodGet, "/api/users/profile", me.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
