package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "JWT_SECRET", "ADMIN_PASSWORD", "PAYMENT_SECRET",
		"STORE_DRIVER", "SQLITE_PATH", "DATABASE_URL", "REDIS_ADDR", "KAFKA_BROKERS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "s", cfg.PaymentKey())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "rideconnect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
jwt_secret: from-file
payment_secret: pay
store:
  driver: redis
  redis_addr: cache:6379
kafka:
  brokers: ["b:9092"]
`), 0o600))
	t.Setenv("PORT", "7001")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7001", cfg.Port)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "pay", cfg.PaymentKey())
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "cache:6379", cfg.Store.RedisAddr)
	assert.Equal(t, "admin123", cfg.AdminPassword)
	assert.Equal(t, []string{"b:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_UnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORE_DRIVER", "floppy")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_AdminPasswordFitsBcrypt(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ADMIN_PASSWORD", strings.Repeat("x", 73))

	_, err := Load("")
	require.ErrorContains(t, err, "ADMIN_PASSWORD")

	t.Setenv("ADMIN_PASSWORD", strings.Repeat("x", 72))
	_, err = Load("")
	require.NoError(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
