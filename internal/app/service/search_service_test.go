package service

import (
	"context"
	"testing"

	"blogapi/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPosts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author, _ := env.signUp(t)

	first, err := env.posts.Create(ctx, author, CreatePostRequest{Title: "Golang tips", Content: "channels"})
	require.NoError(t, err)
	second, err := env.posts.Create(ctx, author, CreatePostRequest{Title: "Misc", Content: "more GOLANG goodness"})
	require.NoError(t, err)
	_, err = env.posts.Create(ctx, author, CreatePostRequest{Title: "golang draft", Content: "x", Published: boolPtr(false)})
	require.NoError(t, err)
	_, err = env.posts.Create(ctx, author, CreatePostRequest{Title: "Rust", Content: "borrowck"})
	require.NoError(t, err)

	result, err := env.search.SearchPosts(ctx, "golang")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Count)
	require.Len(t, result.Data, 2)
	assert.Equal(t, second.ID, result.Data[0].ID)
	assert.Equal(t, first.ID, result.Data[1].ID)
	require.NotNil(t, result.Data[0].Author)
	assert.Equal(t, author.Username, result.Data[0].Author.Username)

	result, err = env.search.SearchPosts(ctx, ".*")
	require.NoError(t, err)
	assert.Zero(t, result.Count)
	assert.NotNil(t, result.Data)

	_, err = env.search.SearchPosts(ctx, "  ")
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, "Search query is required", err.Error())
}

func TestSearchUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, name := range []string{"zed_writer", "amy_writer", "bob"} {
		_, err := env.auth.Register(ctx, RegisterRequest{Username: name, Email: name + "@example.com", Password: "secret1"})
		require.NoError(t, err)
	}
	caller, _ := env.signUp(t)

	result, err := env.search.SearchUsers(ctx, caller, "WRITER")
	require.NoError(t, err)
	require.Equal(t, 2, result.Count)
	assert.Equal(t, "amy_writer", result.Data[0].Username)
	assert.Equal(t, "zed_writer", result.Data[1].Username)

	_, err = env.search.SearchUsers(ctx, nil, "writer")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = env.search.SearchUsers(ctx, caller, "")
	assert.ErrorIs(t, err, common.ErrValidation)
}
