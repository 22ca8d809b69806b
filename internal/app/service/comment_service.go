package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blogapi/internal/common"
	"blogapi/internal/domain/model"
	"blogapi/internal/domain/repository"

	"github.com/google/uuid"
)

var errCommentNotFound = common.NewError(common.ErrNotFound, "Comment not found")

type CommentService struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewCommentService(store *repository.Store, logger *slog.Logger) *CommentService {
	return &CommentService{store: store, logger: orDefault(logger)}
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

type CommentPage struct {
	Comments      []model.Comment `json:"comments"`
	CurrentPage   int             `json:"current_page"`
	TotalPages    int             `json:"total_pages"`
	TotalComments int             `json:"total_comments"`
}

func (s *CommentService) Create(ctx context.Context, caller *Identity, postID string, req CommentRequest) (*model.Comment, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.openPost(ctx, postID); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		ID:        uuid.NewString(),
		Content:   req.Content,
		PostID:    postID,
		AuthorID:  caller.UserID,
		Likes:     []string{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return s.withAuthor(ctx, comment)
}

// List returns a page of a published post's comments, newest first.
func (s *CommentService) List(ctx context.Context, postID string, pageNum, limit int) (*CommentPage, error) {
	if _, err := s.openPost(ctx, postID); err != nil {
		return nil, err
	}
	page := newPage(pageNum, limit, DefaultCommentPageSize)
	comments, total, err := s.store.Comments.ListByPost(ctx, postID, page.Limit, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	if err := attachCommentAuthors(ctx, s.store.Users, comments); err != nil {
		return nil, err
	}
	return &CommentPage{
		Comments:      comments,
		CurrentPage:   page.Number,
		TotalPages:    page.TotalPages(total),
		TotalComments: total,
	}, nil
}

func (s *CommentService) Update(ctx context.Context, caller *Identity, id string, req CommentRequest) (*model.Comment, error) {
	comment, err := s.findComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RequireOwner(caller, comment.AuthorID, "Not authorized to update this comment"); err != nil {
		return nil, err
	}
	if err := common.Validate(req); err != nil {
		return nil, err
	}

	if err := s.store.Comments.UpdateContent(ctx, comment.ID, req.Content); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errCommentNotFound
		}
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	comment.Content = req.Content
	return s.withAuthor(ctx, comment)
}

// Delete is allowed for the comment's author and for the author of the post it belongs to.
// A comment whose post no longer exists can only be deleted by its own author.
func (s *CommentService) Delete(ctx context.Context, caller *Identity, id string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	comment, err := s.findComment(ctx, id)
	if err != nil {
		return err
	}

	allowed := comment.AuthorID == caller.UserID
	if !allowed {
		post, err := s.store.Posts.FindByID(ctx, comment.PostID)
		switch {
		case err == nil:
			allowed = post.AuthorID == caller.UserID
		case errors.Is(err, common.ErrNotFound):
			s.logger.WarnContext(ctx, "comment references a missing post",
				slog.String("comment_id", comment.ID), slog.String("post_id", comment.PostID))
		default:
			return fmt.Errorf("failed to find comment post: %w", err)
		}
	}
	if !allowed {
		return common.NewError(common.ErrForbidden, "Not authorized to delete this comment")
	}

	if err := s.store.Comments.Delete(ctx, comment.ID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return errCommentNotFound
		}
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

func (s *CommentService) Like(ctx context.Context, caller *Identity, id string) (int, error) {
	return s.toggleLike(ctx, caller, id, true)
}

func (s *CommentService) Unlike(ctx context.Context, caller *Identity, id string) (int, error) {
	return s.toggleLike(ctx, caller, id, false)
}

func (s *CommentService) toggleLike(ctx context.Context, caller *Identity, id string, like bool) (int, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}
	comment, err := s.findComment(ctx, id)
	if err != nil {
		return 0, err
	}
	post, err := s.store.Posts.FindByID(ctx, comment.PostID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return 0, fmt.Errorf("failed to find comment post: %w", err)
	}
	if !commentsOpen(post) {
		return 0, errCommentNotFound
	}

	if like {
		err = s.store.Comments.AddLike(ctx, comment.ID, caller.UserID)
	} else {
		err = s.store.Comments.RemoveLike(ctx, comment.ID, caller.UserID)
	}
	switch {
	case err == nil:
	case errors.Is(err, common.ErrAlreadyLiked):
		return 0, common.NewError(common.ErrAlreadyLiked, "Comment already liked")
	case errors.Is(err, common.ErrNotLiked):
		return 0, common.NewError(common.ErrNotLiked, "Comment not liked yet")
	case errors.Is(err, common.ErrNotFound):
		return 0, errCommentNotFound
	default:
		return 0, fmt.Errorf("failed to update comment likes: %w", err)
	}

	updated, err := s.findComment(ctx, comment.ID)
	if err != nil {
		return 0, err
	}
	return len(updated.Likes), nil
}

// openPost loads a post whose comment thread is public.
func (s *CommentService) openPost(ctx context.Context, postID string) (*model.Post, error) {
	post, err := s.store.Posts.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errPostNotFound
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if !commentsOpen(post) {
		return nil, errPostNotFound
	}
	return post, nil
}

func (s *CommentService) findComment(ctx context.Context, id string) (*model.Comment, error) {
	comment, err := s.store.Comments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errCommentNotFound
		}
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	return comment, nil
}

func (s *CommentService) withAuthor(ctx context.Context, comment *model.Comment) (*model.Comment, error) {
	comments := []model.Comment{*comment}
	if err := attachCommentAuthors(ctx, s.store.Users, comments); err != nil {
		return nil, err
	}
	return &comments[0], nil
}

// attachCommentAuthors sets each comment's author to (id, username).
func attachCommentAuthors(ctx context.Context, users repository.UserRepository, comments []model.Comment) error {
	ids := make([]string, 0, len(comments))
	for i := range comments {
		ids = append(ids, comments[i].AuthorID)
	}
	summaries, err := users.FindSummaries(ctx, uniqueStrings(ids))
	if err != nil {
		return fmt.Errorf("failed to load comment authors: %w", err)
	}
	for i := range comments {
		if summary, ok := summaries[comments[i].AuthorID]; ok {
			summary.Bio = ""
			comments[i].Author = &summary
		}
	}
	return nil
}
