package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"blogapi/internal/common"
	"blogapi/internal/domain/model"
	"blogapi/internal/domain/repository"
	"blogapi/internal/platform/database"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) *repository.Store {
		return repository.NewMemoryStore()
	})
}

func TestPgStore(t *testing.T) {
	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Connect(context.Background(), connStr)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, database.Migrate(db))

	runStoreSuite(t, func(t *testing.T) *repository.Store {
		_, err := db.Exec(`TRUNCATE comment_likes, comments, post_likes, posts, users`)
		require.NoError(t, err)
		return repository.NewPgStore(db)
	})
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, _, err := database.ConnectMongo(ctx, uri, "blog_test")
	require.NoError(t, err)
	t.Cleanup(func() { database.DisconnectMongo(client) })

	runStoreSuite(t, func(t *testing.T) *repository.Store {
		db := client.Database(fmt.Sprintf("blog_test_%d", time.Now().UnixNano()))
		t.Cleanup(func() { _ = db.Drop(context.Background()) })
		require.NoError(t, repository.EnsureMongoIndexes(ctx, db))
		return repository.NewMongoStore(db)
	})
}

func runStoreSuite(t *testing.T, newStore func(t *testing.T) *repository.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("posts", func(t *testing.T) { testPosts(t, newStore(t)) })
	t.Run("comments", func(t *testing.T) { testComments(t, newStore(t)) })
	t.Run("transaction", func(t *testing.T) { testWithinTx(t, newStore(t)) })
}

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newUser(username string, offset time.Duration) *model.User {
	return &model.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          username + "@example.com",
		HashedPassword: "hash",
		Bio:            gofakeit.Sentence(5),
		CreatedAt:      baseTime.Add(offset),
	}
}

func newPost(authorID string, offset time.Duration, published bool, tags ...string) *model.Post {
	at := baseTime.Add(offset)
	return &model.Post{
		ID:        uuid.NewString(),
		Title:     gofakeit.Sentence(4),
		Slug:      "slug",
		Content:   gofakeit.Paragraph(1, 2, 8, " "),
		AuthorID:  authorID,
		Tags:      tags,
		Published: published,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func testUsers(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	alice := newUser("alice", 0)
	bob := newUser("bob", time.Minute)
	carol := newUser("carol_b", 2*time.Minute)
	for _, u := range []*model.User{alice, bob, carol} {
		require.NoError(t, store.Users.Create(ctx, u))
	}

	dup := newUser("alice", 3*time.Minute)
	assert.ErrorIs(t, store.Users.Create(ctx, dup), common.ErrConflict)

	got, err := store.Users.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)
	assert.Equal(t, "hash", got.HashedPassword)

	got, err = store.Users.FindByEmailOrUsername(ctx, "nobody@example.com", "carol_b")
	require.NoError(t, err)
	assert.Equal(t, carol.ID, got.ID)

	_, err = store.Users.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = store.Users.FindByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, common.ErrNotFound)

	users, total, err := store.Users.List(ctx, model.UserFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, users, 2)
	assert.Equal(t, carol.ID, users[0].ID)
	assert.Equal(t, bob.ID, users[1].ID)

	users, total, err = store.Users.List(ctx, model.UserFilter{Search: "BOB", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, bob.ID, users[0].ID)

	found, err := store.Users.SearchByUsername(ctx, "b")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "bob", found[0].Username)
	assert.Equal(t, "carol_b", found[1].Username)

	found, err = store.Users.SearchByUsername(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, found)

	alice.Username = "bob"
	assert.ErrorIs(t, store.Users.Update(ctx, alice), common.ErrConflict)
	alice.Username = "alice2"
	alice.IsAdmin = true
	require.NoError(t, store.Users.Update(ctx, alice))
	got, err = store.Users.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice2", got.Username)
	assert.True(t, got.IsAdmin)

	summaries, err := store.Users.FindSummaries(ctx, []string{alice.ID, bob.ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
	assert.Equal(t, "alice2", summaries[alice.ID].Username)

	require.NoError(t, store.Users.Delete(ctx, bob.ID))
	assert.ErrorIs(t, store.Users.Delete(ctx, bob.ID), common.ErrNotFound)
}

func testPosts(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	author := uuid.NewString()
	other := uuid.NewString()

	var published []*model.Post
	for i := 0; i < 12; i++ {
		p := newPost(author, time.Duration(i)*time.Minute, true, "go")
		require.NoError(t, store.Posts.Create(ctx, p))
		published = append(published, p)
	}
	draft := newPost(author, time.Hour, false, "go")
	require.NoError(t, store.Posts.Create(ctx, draft))
	foreign := newPost(other, 2*time.Hour, true, "rust")
	foreign.Title = "Learning 100% Rust_lang"
	require.NoError(t, store.Posts.Create(ctx, foreign))

	page, total, err := store.Posts.List(ctx, model.PostFilter{PublishedOnly: true, Limit: 10, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 13, total)
	require.Len(t, page, 3)
	assert.Equal(t, published[2].ID, page[0].ID)
	assert.Equal(t, published[0].ID, page[2].ID)

	page, total, err = store.Posts.List(ctx, model.PostFilter{PublishedOnly: true, Tag: "go", AuthorID: author, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Equal(t, published[11].ID, page[0].ID)

	_, total, err = store.Posts.List(ctx, model.PostFilter{AuthorID: author, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 13, total)

	got, err := store.Posts.FindByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.False(t, got.Published)
	assert.Equal(t, []string{"go"}, got.Tags)
	assert.Empty(t, got.Likes)

	got.Title = "Changed"
	got.Tags = []string{"a", "b"}
	got.Published = true
	got.UpdatedAt = got.CreatedAt.Add(time.Minute)
	require.NoError(t, store.Posts.Update(ctx, got))
	got, err = store.Posts.FindByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.Title)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Equal(t, draft.Content, got.Content)

	results, err := store.Posts.Search(ctx, "100% rust")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, foreign.ID, results[0].ID)
	results, err = store.Posts.Search(ctx, "_")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	liker := uuid.NewString()
	require.NoError(t, store.Posts.AddLike(ctx, foreign.ID, liker))
	assert.ErrorIs(t, store.Posts.AddLike(ctx, foreign.ID, liker), common.ErrAlreadyLiked)
	got, err = store.Posts.FindByID(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{liker}, got.Likes)
	require.NoError(t, store.Posts.RemoveLike(ctx, foreign.ID, liker))
	assert.ErrorIs(t, store.Posts.RemoveLike(ctx, foreign.ID, liker), common.ErrNotLiked)
	assert.ErrorIs(t, store.Posts.AddLike(ctx, uuid.NewString(), liker), common.ErrNotFound)

	n, err := store.Posts.CountByAuthor(ctx, author)
	require.NoError(t, err)
	assert.Equal(t, 13, n)
	ids, err := store.Posts.ListIDsByAuthor(ctx, author)
	require.NoError(t, err)
	assert.Len(t, ids, 13)

	deleted, err := store.Posts.DeleteByAuthor(ctx, author)
	require.NoError(t, err)
	assert.EqualValues(t, 13, deleted)
	_, total, err = store.Posts.List(ctx, model.PostFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	require.NoError(t, store.Posts.Delete(ctx, foreign.ID))
	assert.ErrorIs(t, store.Posts.Delete(ctx, foreign.ID), common.ErrNotFound)
}

func testComments(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	postA := newPost(uuid.NewString(), 0, true)
	postB := newPost(uuid.NewString(), 0, true)
	require.NoError(t, store.Posts.Create(ctx, postA))
	require.NoError(t, store.Posts.Create(ctx, postB))

	commenter := uuid.NewString()
	var onA []*model.Comment
	for i := 0; i < 3; i++ {
		c := &model.Comment{
			ID:        uuid.NewString(),
			Content:   gofakeit.Sentence(6),
			PostID:    postA.ID,
			AuthorID:  commenter,
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.Comments.Create(ctx, c))
		onA = append(onA, c)
	}
	onB := &model.Comment{ID: uuid.NewString(), Content: "hi", PostID: postB.ID, AuthorID: uuid.NewString(), CreatedAt: baseTime}
	require.NoError(t, store.Comments.Create(ctx, onB))

	list, total, err := store.Comments.ListByPost(ctx, postA.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, list, 2)
	assert.Equal(t, onA[2].ID, list[0].ID)
	assert.Equal(t, postA.ID, list[0].PostID)

	require.NoError(t, store.Comments.UpdateContent(ctx, onA[0].ID, "edited"))
	got, err := store.Comments.FindByID(ctx, onA[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
	assert.Equal(t, commenter, got.AuthorID)

	liker := uuid.NewString()
	require.NoError(t, store.Comments.AddLike(ctx, onB.ID, liker))
	assert.ErrorIs(t, store.Comments.AddLike(ctx, onB.ID, liker), common.ErrAlreadyLiked)
	require.NoError(t, store.Comments.RemoveLike(ctx, onB.ID, liker))
	assert.ErrorIs(t, store.Comments.RemoveLike(ctx, onB.ID, liker), common.ErrNotLiked)

	n, err := store.Comments.CountByAuthor(ctx, commenter)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, store.Comments.Delete(ctx, onA[1].ID))
	assert.ErrorIs(t, store.Comments.Delete(ctx, onA[1].ID), common.ErrNotFound)

	deleted, err := store.Comments.DeleteByPosts(ctx, []string{postA.ID, postB.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
	_, total, err = store.Comments.ListByPost(ctx, postA.ID, 20, 0)
	require.NoError(t, err)
	assert.Zero(t, total)

	deleted, err = store.Comments.DeleteByAuthor(ctx, commenter)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func testWithinTx(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	u := newUser(gofakeit.Username(), 0)

	err := store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := store.Users.Create(ctx, u); err != nil {
			return err
		}
		return store.Tx.WithinTx(ctx, func(ctx context.Context) error {
			_, err := store.Users.FindByID(ctx, u.ID)
			return err
		})
	})
	require.NoError(t, err)

	_, err = store.Users.FindByID(ctx, u.ID)
	assert.NoError(t, err)
}
