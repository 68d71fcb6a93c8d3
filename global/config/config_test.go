package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unset clears key for the test; t.Setenv restores it afterwards.
func unset(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

var allKeys = []string{
	"NODE_ID", "GATEWAY_ID", "HTTP_ADDR", "GRPC_ADDR", "WS_PATH", "JWT_SECRET", "JWT_ALG", "JWT_TTL",
	"SEND_QUEUE_SIZE", "WRITE_WAIT", "MAX_MESSAGE_SIZE", "ALLOWED_ORIGINS", "REDIS_ADDR",
	"REDIS_PASSWORD", "REDIS_DB", "PRESENCE_TTL", "LOG_LEVEL", "DEV_LOGIN", "CONFIG_FILE",
	"INTERNAL_TOKEN",
}

func TestFromEnvironDefaults(t *testing.T) {
	unset(t, allKeys...)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := FromEnviron()
	require.NoError(t, err)
	assert.Equal(t, int64(1), cfg.NodeID)
	assert.Equal(t, "gateway_01", cfg.GatewayID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "/ws", cfg.WSPath)
	assert.Equal(t, 256, cfg.SendQueueSize)
	assert.Equal(t, 10*time.Second, cfg.WriteWait)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 2*time.Minute, cfg.PresenceTTL)
	assert.False(t, cfg.PresenceEnabled())
	assert.False(t, cfg.DevLogin)
	assert.Empty(t, cfg.Origins())
	assert.False(t, cfg.InternalEnabled())

	opts := cfg.JWTOptions()
	assert.Equal(t, []byte("s3cret"), opts.Secret)
	assert.Equal(t, "HS256", opts.Alg)
}

func TestFromEnvironOverrides(t *testing.T) {
	unset(t, allKeys...)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("GATEWAY_ID", "gw-eu-2")
	t.Setenv("SEND_QUEUE_SIZE", "16")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("DEV_LOGIN", "true")
	t.Setenv("PRESENCE_TTL", "30s")
	t.Setenv("INTERNAL_TOKEN", "svc-0123456789abcdef")

	cfg, err := FromEnviron()
	require.NoError(t, err)
	assert.Equal(t, "gw-eu-2", cfg.GatewayID)
	assert.Equal(t, 16, cfg.SendQueueSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
	assert.True(t, cfg.PresenceEnabled())
	assert.True(t, cfg.DevLogin)
	assert.Equal(t, 30*time.Second, cfg.PresenceTTL)
	assert.True(t, cfg.InternalEnabled())
	assert.Equal(t, "svc-0123456789abcdef", cfg.InternalToken)
}

func TestValidate(t *testing.T) {
	base := func() AppConfig {
		return AppConfig{
			GatewayID: "gw", JWTSecret: "x", JWTAlg: "HS256", JWTTTL: time.Hour,
			SendQueueSize: 1, WriteWait: time.Second, MaxMessageSize: 1,
			PresenceTTL: time.Minute, LogLevel: "info",
		}
	}
	ok := base()
	require.NoError(t, ok.Validate())
	ok.InternalToken = "svc-0123456789abcdef"
	require.NoError(t, ok.Validate())

	cases := map[string]func(*AppConfig){
		"no secret":        func(c *AppConfig) { c.JWTSecret = "" },
		"no gateway":       func(c *AppConfig) { c.GatewayID = "" },
		"node range":       func(c *AppConfig) { c.NodeID = 4096 },
		"queue":            func(c *AppConfig) { c.SendQueueSize = 0 },
		"message":          func(c *AppConfig) { c.MaxMessageSize = -1 },
		"write wait":       func(c *AppConfig) { c.WriteWait = 0 },
		"bad level":        func(c *AppConfig) { c.LogLevel = "loud" },
		"bad jwt alg":      func(c *AppConfig) { c.JWTAlg = "RS256" },
		"colon in gateway": func(c *AppConfig) { c.GatewayID = "eu:gw-1" },
		"short internal":   func(c *AppConfig) { c.InternalToken = "short" },
		"internal = jwt secret": func(c *AppConfig) {
			c.JWTSecret = "0123456789abcdef0"
			c.InternalToken = c.JWTSecret
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	unset(t, allKeys...)
	file := filepath.Join(t.TempDir(), "gateway.env")
	require.NoError(t, os.WriteFile(file, []byte("JWT_SECRET=from-file\nGATEWAY_ID=gw-file\n"), 0o600))
	t.Setenv("CONFIG_FILE", file)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "gw-file", cfg.GatewayID)
}

func TestLoadMissingFile(t *testing.T) {
	unset(t, allKeys...)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("JWT_SECRET", "s3cret")

	_, err := Load()
	assert.NoError(t, err)

	unset(t, "JWT_SECRET")
	_, err = Load()
	assert.Error(t, err)
}
