package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"API_PORT", "JWT_SECRET", "JWT_EXPIRATION_HOURS", "STORE_DRIVER", "CORS_ALLOWED_ORIGINS", "DB_AUTO_MIGRATE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := FromEnv()

	assert.Equal(t, "5000", cfg.APIPort)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 720*time.Hour, cfg.JWTExp)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.DBAutoMigrate)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("JWT_EXPIRATION_HOURS", "2")
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,,")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "blog")

	cfg := FromEnv()

	assert.Equal(t, "9090", cfg.APIPort)
	assert.Equal(t, 2*time.Hour, cfg.JWTExp)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.DBAutoMigrate)
	assert.Contains(t, cfg.DBConnStr, "host=db")
	assert.Contains(t, cfg.DBConnStr, "dbname=blog")
}

func TestGetEnvAsIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	assert.Equal(t, 0, FromEnv().RedisDB)
}
