package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"blogapi/internal/common"
	"blogapi/internal/common/security"
	"blogapi/internal/domain/model"
	"blogapi/internal/domain/repository"
)

const recentPostsOnProfile = 5

var errUserNotFound = common.NewError(common.ErrNotFound, "User not found")

type UserService struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewUserService(store *repository.Store, logger *slog.Logger) *UserService {
	return &UserService{store: store, logger: orDefault(logger)}
}

type ProfileStats struct {
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
}

// Profile is the caller's own account view.
type Profile struct {
	ID          string              `json:"id"`
	Username    string              `json:"username"`
	Email       string              `json:"email"`
	Bio         string              `json:"bio"`
	IsAdmin     bool                `json:"is_admin"`
	CreatedAt   time.Time           `json:"created_at"`
	Stats       ProfileStats        `json:"stats"`
	RecentPosts []model.PostPreview `json:"recent_posts"`
}

// PublicProfile is what any signed-in user may see about another user.
type PublicProfile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateProfileRequest follows the partial-update convention: empty username, email or
// password mean "unchanged"; a present bio, even empty, replaces the current one.
type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Bio      *string `json:"bio"`
	Password *string `json:"password"`
}

type UpdateAdminStatusRequest struct {
	IsAdmin *bool `json:"is_admin" validate:"required"`
}

type ListUsersQuery struct {
	Search string
	Page   int
	Limit  int
}

type UserPage struct {
	Users       []model.User `json:"users"`
	CurrentPage int          `json:"current_page"`
	TotalPages  int          `json:"total_pages"`
	TotalUsers  int          `json:"total_users"`
}

type profileFields struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Bio      string `json:"bio" validate:"max=500"`
}

type passwordField struct {
	Password string `json:"password" validate:"min=6"`
}

func (s *UserService) GetProfile(ctx context.Context, caller *Identity) (*Profile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	postCount, err := s.store.Posts.CountByAuthor(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	commentCount, err := s.store.Comments.CountByAuthor(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}
	recent, _, err := s.store.Posts.List(ctx, model.PostFilter{AuthorID: user.ID, Limit: recentPostsOnProfile})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent posts: %w", err)
	}

	previews := make([]model.PostPreview, 0, len(recent))
	for i := range recent {
		previews = append(previews, recent[i].Preview())
	}
	return &Profile{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Bio:         user.Bio,
		IsAdmin:     user.IsAdmin,
		CreatedAt:   user.CreatedAt,
		Stats:       ProfileStats{Posts: postCount, Comments: commentCount},
		RecentPosts: previews,
	}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, caller *Identity, req UpdateProfileRequest) (*model.User, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	fields := profileFields{Username: user.Username, Email: user.Email, Bio: user.Bio}
	if req.Username != nil && strings.TrimSpace(*req.Username) != "" {
		fields.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		fields.Email = normalizeEmail(*req.Email)
	}
	if req.Bio != nil {
		fields.Bio = strings.TrimSpace(*req.Bio)
	}
	if err := common.Validate(fields); err != nil {
		return nil, err
	}

	if req.Password != nil && *req.Password != "" {
		if err := common.Validate(passwordField{Password: *req.Password}); err != nil {
			return nil, err
		}
		hashed, err := security.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.HashedPassword = hashed
	}
	user.Username = fields.Username
	user.Email = fields.Email
	user.Bio = fields.Bio

	if err := s.store.Users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, common.ErrConflict):
			return nil, common.NewError(common.ErrConflict, "Username or email already exists")
		case errors.Is(err, common.ErrNotFound):
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// DeleteProfile removes the caller's comments, then their posts together with every
// comment on those posts, then the account itself.
func (s *UserService) DeleteProfile(ctx context.Context, caller *Identity) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	user, err := s.findUser(ctx, caller.UserID)
	if err != nil {
		return err
	}

	var comments, postComments, posts int64
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if comments, err = s.store.Comments.DeleteByAuthor(ctx, user.ID); err != nil {
			return fmt.Errorf("deleting user comments: %w", err)
		}
		postIDs, err := s.store.Posts.ListIDsByAuthor(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("listing user posts: %w", err)
		}
		if postComments, err = s.store.Comments.DeleteByPosts(ctx, postIDs); err != nil {
			return fmt.Errorf("deleting comments on user posts: %w", err)
		}
		if posts, err = s.store.Posts.DeleteByAuthor(ctx, user.ID); err != nil {
			return fmt.Errorf("deleting user posts: %w", err)
		}
		return s.store.Users.Delete(ctx, user.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return errUserNotFound
		}
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	s.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", user.ID),
		slog.Int64("posts_removed", posts),
		slog.Int64("comments_removed", comments+postComments))
	return nil
}

func (s *UserService) ListUsers(ctx context.Context, caller *Identity, q ListUsersQuery) (*UserPage, error) {
	if err := RequireAdmin(caller); err != nil {
		return nil, err
	}
	page := newPage(q.Page, q.Limit, DefaultUserPageSize)
	users, total, err := s.store.Users.List(ctx, model.UserFilter{
		Search: strings.TrimSpace(q.Search),
		Limit:  page.Limit,
		Offset: page.Offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return &UserPage{
		Users:       users,
		CurrentPage: page.Number,
		TotalPages:  page.TotalPages(total),
		TotalUsers:  total,
	}, nil
}

func (s *UserService) UpdateAdminStatus(ctx context.Context, caller *Identity, id string, req UpdateAdminStatusRequest) (*model.User, error) {
	if err := RequireAdmin(caller); err != nil {
		return nil, err
	}
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	user.IsAdmin = *req.IsAdmin
	if err := s.store.Users.Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("failed to update admin status: %w", err)
	}

	s.logger.InfoContext(ctx, "admin status changed",
		slog.String("user_id", user.ID),
		slog.Bool("is_admin", user.IsAdmin),
		slog.String("changed_by", caller.UserID))
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, caller *Identity, id string) (*PublicProfile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PublicProfile{ID: user.ID, Username: user.Username, Bio: user.Bio, CreatedAt: user.CreatedAt}, nil
}

// GetUserPosts lists a user's published posts, newest first.
func (s *UserService) GetUserPosts(ctx context.Context, id string, pageNum, limit int) (*PostPage, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	page := newPage(pageNum, limit, DefaultPostPageSize)
	posts, total, err := s.store.Posts.List(ctx, model.PostFilter{
		AuthorID:      user.ID,
		PublishedOnly: true,
		Limit:         page.Limit,
		Offset:        page.Offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list user posts: %w", err)
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

func (s *UserService) findUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
