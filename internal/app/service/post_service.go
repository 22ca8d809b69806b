package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"blogapi/internal/common"
	"blogapi/internal/domain/model"
	"blogapi/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var errPostNotFound = common.NewError(common.ErrNotFound, "Post not found")

type PostService struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewPostService(store *repository.Store, logger *slog.Logger) *PostService {
	return &PostService{store: store, logger: orDefault(logger)}
}

type CreatePostRequest struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	Published *bool    `json:"published"`
}

// UpdatePostRequest overwrites only the fields that are present.
type UpdatePostRequest struct {
	Title     *string   `json:"title"`
	Content   *string   `json:"content"`
	Tags      *[]string `json:"tags"`
	Published *bool     `json:"published"`
}

type ListPostsQuery struct {
	Tag      string
	AuthorID string
	Page     int
	Limit    int
}

type PostPage struct {
	Posts       []model.Post `json:"posts"`
	CurrentPage int          `json:"current_page"`
	TotalPages  int          `json:"total_pages"`
	TotalPosts  int          `json:"total_posts"`
}

// postFields carries the validated, normalized form of a post's editable fields.
type postFields struct {
	Title   string   `json:"title" validate:"required,max=100"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags"`
}

func (f *postFields) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Tags = normalizeTags(f.Tags)
}

// normalizeTags trims tags and drops empty and repeated ones, keeping first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func (s *PostService) Create(ctx context.Context, caller *Identity, req CreatePostRequest) (*model.Post, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	fields := postFields{Title: req.Title, Content: req.Content, Tags: req.Tags}
	fields.normalize()
	if err := common.Validate(fields); err != nil {
		return nil, err
	}

	published := true
	if req.Published != nil {
		published = *req.Published
	}
	now := time.Now().UTC()
	post := &model.Post{
		ID:        uuid.NewString(),
		Title:     fields.Title,
		Slug:      slug.Make(fields.Title),
		Content:   fields.Content,
		AuthorID:  caller.UserID,
		Tags:      fields.Tags,
		Likes:     []string{},
		Published: published,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.logger.InfoContext(ctx, "post created", slog.String("post_id", post.ID), slog.String("author_id", caller.UserID))
	return s.withAuthor(ctx, post)
}

// Get returns a post if viewer may see it; viewer is nil for anonymous callers.
func (s *PostService) Get(ctx context.Context, id string, viewer *Identity) (*model.Post, error) {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !postVisibleTo(post, viewer) {
		return nil, errPostNotFound
	}
	return s.withAuthor(ctx, post)
}

// List returns published posts only, newest first.
func (s *PostService) List(ctx context.Context, q ListPostsQuery) (*PostPage, error) {
	page := newPage(q.Page, q.Limit, DefaultPostPageSize)
	posts, total, err := s.store.Posts.List(ctx, model.PostFilter{
		Tag:           q.Tag,
		AuthorID:      q.AuthorID,
		PublishedOnly: true,
		Limit:         page.Limit,
		Offset:        page.Offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if err := attachPostAuthors(ctx, s.store.Users, posts, true); err != nil {
		return nil, err
	}
	return &PostPage{
		Posts:       posts,
		CurrentPage: page.Number,
		TotalPages:  page.TotalPages(total),
		TotalPosts:  total,
	}, nil
}

func (s *PostService) Update(ctx context.Context, caller *Identity, id string, req UpdatePostRequest) (*model.Post, error) {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(caller, post.AuthorID, "Not authorized to update this post"); err != nil {
		return nil, err
	}

	fields := postFields{Title: post.Title, Content: post.Content, Tags: post.Tags}
	if req.Title != nil {
		fields.Title = *req.Title
	}
	if req.Content != nil {
		fields.Content = *req.Content
	}
	if req.Tags != nil {
		fields.Tags = *req.Tags
	}
	fields.normalize()
	if err := common.Validate(fields); err != nil {
		return nil, err
	}

	if fields.Title != post.Title {
		post.Slug = slug.Make(fields.Title)
	}
	post.Title = fields.Title
	post.Content = fields.Content
	post.Tags = fields.Tags
	if req.Published != nil {
		post.Published = *req.Published
	}
	post.UpdatedAt = time.Now().UTC()
	if post.UpdatedAt.Before(post.CreatedAt) {
		post.UpdatedAt = post.CreatedAt
	}

	if err := s.store.Posts.Update(ctx, post); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errPostNotFound
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return s.withAuthor(ctx, post)
}

// Delete removes a post and then its comments, atomically where the store allows.
func (s *PostService) Delete(ctx context.Context, caller *Identity, id string) error {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return err
	}
	if err := RequireOwner(caller, post.AuthorID, "Not authorized to delete this post"); err != nil {
		return err
	}

	var removedComments int64
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.Posts.Delete(ctx, post.ID); err != nil {
			return err
		}
		removedComments, err = s.store.Comments.DeleteByPost(ctx, post.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return errPostNotFound
		}
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.logger.InfoContext(ctx, "post deleted",
		slog.String("post_id", post.ID),
		slog.Int64("comments_removed", removedComments))
	return nil
}

// Like adds the caller to the post's likes and returns the resulting like count.
func (s *PostService) Like(ctx context.Context, caller *Identity, id string) (int, error) {
	return s.toggleLike(ctx, caller, id, true)
}

func (s *PostService) Unlike(ctx context.Context, caller *Identity, id string) (int, error) {
	return s.toggleLike(ctx, caller, id, false)
}

func (s *PostService) toggleLike(ctx context.Context, caller *Identity, id string, like bool) (int, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}
	post, err := s.findPost(ctx, id)
	if err != nil {
		return 0, err
	}
	if !post.Published {
		return 0, errPostNotFound
	}

	if like {
		err = s.store.Posts.AddLike(ctx, post.ID, caller.UserID)
	} else {
		err = s.store.Posts.RemoveLike(ctx, post.ID, caller.UserID)
	}
	switch {
	case err == nil:
	case errors.Is(err, common.ErrAlreadyLiked):
		return 0, common.NewError(common.ErrAlreadyLiked, "Post already liked")
	case errors.Is(err, common.ErrNotLiked):
		return 0, common.NewError(common.ErrNotLiked, "Post not liked yet")
	case errors.Is(err, common.ErrNotFound):
		return 0, errPostNotFound
	default:
		return 0, fmt.Errorf("failed to update post likes: %w", err)
	}

	updated, err := s.findPost(ctx, post.ID)
	if err != nil {
		return 0, err
	}
	return len(updated.Likes), nil
}

func (s *PostService) findPost(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.store.Posts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errPostNotFound
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return post, nil
}

func (s *PostService) withAuthor(ctx context.Context, post *model.Post) (*model.Post, error) {
	posts := []model.Post{*post}
	if err := attachPostAuthors(ctx, s.store.Users, posts, true); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// attachPostAuthors fills in each post's author summary with one store lookup.
// withBio=false strips the bio for views that show the username only.
func attachPostAuthors(ctx context.Context, users repository.UserRepository, posts []model.Post, withBio bool) error {
	ids := make([]string, 0, len(posts))
	for i := range posts {
		ids = append(ids, posts[i].AuthorID)
	}
	summaries, err := users.FindSummaries(ctx, uniqueStrings(ids))
	if err != nil {
		return fmt.Errorf("failed to load post authors: %w", err)
	}
	for i := range posts {
		if summary, ok := summaries[posts[i].AuthorID]; ok {
			if !withBio {
				summary.Bio = ""
			}
			posts[i].Author = &summary
		}
	}
	return nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
