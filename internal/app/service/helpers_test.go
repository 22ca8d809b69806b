package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"blogapi/internal/common/security"
	"blogapi/internal/domain/repository"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store       *repository.Store
	revocations *security.MemoryRevocationStore
	access      *AccessControl
	auth        *AuthService
	posts       *PostService
	comments    *CommentService
	search      *SearchService
	users       *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	security.InitJWT([]byte("service-test-secret"), time.Hour)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	revocations := security.NewMemoryRevocationStore()
	return &testEnv{
		store:       store,
		revocations: revocations,
		access:      NewAccessControl(store.Users, revocations, logger),
		auth:        NewAuthService(store.Users, revocations, logger),
		posts:       NewPostService(store, logger),
		comments:    NewCommentService(store, logger),
		search:      NewSearchService(store),
		users:       NewUserService(store, logger),
	}
}

// signUp registers a fresh user and resolves the returned token into an Identity.
func (e *testEnv) signUp(t *testing.T) (*Identity, string) {
	t.Helper()
	username := strings.ToLower(gofakeit.LetterN(8)) + gofakeit.DigitN(4)

	resp, err := e.auth.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	caller, err := e.access.ResolveToken(context.Background(), resp.Token)
	require.NoError(t, err)
	return caller, resp.Token
}

func (e *testEnv) makeAdmin(t *testing.T, caller *Identity) *Identity {
	t.Helper()
	user, err := e.store.Users.FindByID(context.Background(), caller.UserID)
	require.NoError(t, err)
	user.IsAdmin = true
	require.NoError(t, e.store.Users.Update(context.Background(), user))
	caller.IsAdmin = true
	return caller
}

func boolPtr(b bool) *bool          { return &b }
func strPtr(s string) *string       { return &s }
func tagsPtr(t ...string) *[]string { return &t }

func (e *testEnv) createPost(t *testing.T, author *Identity, published bool) string {
	t.Helper()
	post, err := e.posts.Create(context.Background(), author, CreatePostRequest{
		Title:     gofakeit.Sentence(4),
		Content:   gofakeit.Paragraph(1, 3, 10, " "),
		Tags:      []string{"go"},
		Published: boolPtr(published),
	})
	require.NoError(t, err)
	return post.ID
}
