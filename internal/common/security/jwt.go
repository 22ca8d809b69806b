package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	TokenAuth *jwtauth.JWTAuth
	tokenTTL  time.Duration
)

func InitJWT(key []byte, ttl time.Duration) {
	TokenAuth = jwtauth.New("HS256", key, nil)
	tokenTTL = ttl
}

// IssuedToken is a signed session token plus the claims callers need to track it.
type IssuedToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

func GenerateToken(userID string) (*IssuedToken, error) {
	if TokenAuth == nil {
		return nil, errors.New("jwt not initialized")
	}
	now := time.Now()
	expiresAt := now.Add(tokenTTL)
	tokenID := uuid.NewString()

	claims := jwt.MapClaims{
		"user_id": userID,
		"jti":     tokenID,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	if err != nil {
		return nil, fmt.Errorf("encoding token: %w", err)
	}
	return &IssuedToken{Value: tokenString, ID: tokenID, ExpiresAt: time.Unix(expiresAt.Unix(), 0)}, nil
}

// VerifyToken checks signature and expiry and returns the token claims.
func VerifyToken(tokenString string) (jwt.MapClaims, error) {
	if TokenAuth == nil {
		return nil, errors.New("jwt not initialized")
	}
	token, err := jwtauth.VerifyToken(TokenAuth, tokenString)
	if err != nil {
		return nil, err
	}
	claims, err := token.AsMap(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading token claims: %w", err)
	}
	return claims, nil
}

func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}

func GetTokenIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["jti"].(string)
	if !ok || id == "" {
		return "", errors.New("jti claim is missing or not a string")
	}
	return id, nil
}

// GetExpiryFromClaims accepts both the decoded form (time.Time) and the raw numeric form.
func GetExpiryFromClaims(claims jwt.MapClaims) (time.Time, error) {
	switch exp := claims["exp"].(type) {
	case time.Time:
		return exp, nil
	case float64:
		return time.Unix(int64(exp), 0), nil
	case int64:
		return time.Unix(exp, 0), nil
	default:
		return time.Time{}, errors.New("exp claim is missing or malformed")
	}
}
