package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blogapi/internal/common"
	"blogapi/internal/common/security"
	"blogapi/internal/domain/repository"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the caller resolved from a session token. A nil *Identity is an anonymous caller.
type Identity struct {
	UserID    string
	Username  string
	IsAdmin   bool
	TokenID   string
	ExpiresAt time.Time
}

var errTokenFailed = common.NewError(common.ErrUnauthorized, "Not authorized, token failed")

type AccessControl struct {
	users       repository.UserRepository
	revocations security.RevocationStore
	logger      *slog.Logger
}

func NewAccessControl(users repository.UserRepository, revocations security.RevocationStore, logger *slog.Logger) *AccessControl {
	return &AccessControl{users: users, revocations: revocations, logger: orDefault(logger)}
}

// ResolveToken verifies a raw bearer token and loads the caller it names.
func (a *AccessControl) ResolveToken(ctx context.Context, tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, common.NewError(common.ErrUnauthorized, "Not authorized, no token")
	}
	claims, err := security.VerifyToken(tokenString)
	if err != nil {
		return nil, errTokenFailed
	}
	return a.IdentityFromClaims(ctx, claims)
}

// IdentityFromClaims resolves already verified claims. The admin flag is read from the
// store, so revoking admin rights takes effect on the next request.
func (a *AccessControl) IdentityFromClaims(ctx context.Context, claims jwt.MapClaims) (*Identity, error) {
	userID, err := security.GetUserIDFromClaims(claims)
	if err != nil {
		return nil, errTokenFailed
	}
	tokenID, err := security.GetTokenIDFromClaims(claims)
	if err != nil {
		return nil, errTokenFailed
	}
	expiresAt, err := security.GetExpiryFromClaims(claims)
	if err != nil {
		return nil, errTokenFailed
	}

	if a.revocations != nil {
		revoked, err := a.revocations.IsRevoked(ctx, tokenID)
		if err != nil {
			return nil, fmt.Errorf("checking token revocation: %w", err)
		}
		if revoked {
			return nil, common.NewError(common.ErrUnauthorized, "Not authorized, token revoked")
		}
	}

	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrUnauthorized, "Not authorized, user not found")
		}
		return nil, fmt.Errorf("loading token user: %w", err)
	}

	return &Identity{
		UserID:    user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		TokenID:   tokenID,
		ExpiresAt: expiresAt,
	}, nil
}

// RequireOwner fails with Forbidden unless the caller owns the resource.
func RequireOwner(caller *Identity, ownerID, message string) error {
	if caller == nil {
		return common.NewError(common.ErrUnauthorized, "Not authorized, no token")
	}
	if caller.UserID != ownerID {
		return common.NewError(common.ErrForbidden, message)
	}
	return nil
}

func RequireAdmin(caller *Identity) error {
	if caller == nil {
		return common.NewError(common.ErrUnauthorized, "Not authorized, no token")
	}
	if !caller.IsAdmin {
		return common.NewError(common.ErrForbidden, "Not authorized as an admin")
	}
	return nil
}

func requireCaller(caller *Identity) error {
	if caller == nil {
		return common.NewError(common.ErrUnauthorized, "Not authorized, no token")
	}
	return nil
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
