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

	"github.com/google/uuid"
)

var errInvalidCredentials = common.NewError(common.ErrUnauthorized, "Invalid credentials")

type AuthService struct {
	userRepo    repository.UserRepository
	revocations security.RevocationStore
	logger      *slog.Logger
}

func NewAuthService(userRepo repository.UserRepository, revocations security.RevocationStore, logger *slog.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, revocations: revocations, logger: orDefault(logger)}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthUser is the account summary returned alongside a fresh token.
type AuthUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type AuthResponse struct {
	Token string   `json:"token"`
	User  AuthUser `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = normalizeEmail(req.Email)
	if err := common.Validate(req); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, common.NewError(common.ErrConflict, "User already exists")
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.NewError(common.ErrConflict, "User already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := common.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, errInvalidCredentials
	}
	return s.issue(user)
}

// Logout revokes the caller's current token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, caller *Identity) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if s.revocations == nil {
		return errors.New("token revocation is not configured")
	}
	if err := s.revocations.Revoke(ctx, caller.TokenID, time.Until(caller.ExpiresAt)); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", caller.UserID))
	return nil
}

func (s *AuthService) issue(user *model.User) (*AuthResponse, error) {
	token, err := security.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{
		Token: token.Value,
		User:  AuthUser{ID: user.ID, Username: user.Username, Email: user.Email},
	}, nil
}
