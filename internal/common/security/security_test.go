package security

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	InitJWT([]byte("test-secret"), time.Hour)

	issued, err := GenerateToken("user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 2*time.Second)

	claims, err := VerifyToken(issued.Value)
	require.NoError(t, err)

	userID, err := GetUserIDFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	tokenID, err := GetTokenIDFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, tokenID)

	exp, err := GetExpiryFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, issued.ExpiresAt.Unix(), exp.Unix())
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	InitJWT([]byte("test-secret"), -time.Hour)
	issued, err := GenerateToken("user-1")
	require.NoError(t, err)

	InitJWT([]byte("test-secret"), time.Hour)
	_, err = VerifyToken(issued.Value)
	assert.Error(t, err)
}

func TestVerifyTokenRejectsWrongKey(t *testing.T) {
	InitJWT([]byte("key-a"), time.Hour)
	issued, err := GenerateToken("user-1")
	require.NoError(t, err)

	InitJWT([]byte("key-b"), time.Hour)
	_, err = VerifyToken(issued.Value)
	assert.Error(t, err)

	_, err = VerifyToken("not.a.token")
	assert.Error(t, err)
}

func TestClaimHelpersRejectMissingValues(t *testing.T) {
	_, err := GetUserIDFromClaims(map[string]any{"user_id": 12})
	assert.Error(t, err)
	_, err = GetTokenIDFromClaims(map[string]any{})
	assert.Error(t, err)
	_, err = GetExpiryFromClaims(map[string]any{"exp": "tomorrow"})
	assert.Error(t, err)

	exp, err := GetExpiryFromClaims(map[string]any{"exp": float64(1700000000)})
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), exp.Unix())
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPasswordHash("s3cret!", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestRedisRevocationStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx := context.Background()
	store := NewRedisRevocationStore(rdb, "test-revoked:")
	tokenID := uuid.NewString()

	revoked, err := store.IsRevoked(ctx, tokenID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, tokenID, time.Minute))
	revoked, err = store.IsRevoked(ctx, tokenID)
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, store.Revoke(ctx, uuid.NewString(), 0))
}

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Revoke(ctx, "a", time.Minute))
	require.NoError(t, store.Revoke(ctx, "b", 0))

	revoked, err := store.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, err = store.IsRevoked(ctx, "b")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)
}
