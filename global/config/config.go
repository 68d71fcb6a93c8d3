package config

import (
	"os"
	"strings"

	"PPCommunity/tools/security"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

const (
	defaultConfigFile = ".env"
	minInternalToken  = 16
)

// Load reads CONFIG_FILE (default .env) into the environment when present,
// then unmarshals the environment into an AppConfig and validates it.
func Load() (*AppConfig, error) {
	file := os.Getenv("CONFIG_FILE")
	if file == "" {
		file = defaultConfigFile
	}
	if err := godotenv.Load(file); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrapf(err, "load %s", file)
	}
	return FromEnviron()
}

// FromEnviron skips the dotenv step.
func FromEnviron() (*AppConfig, error) {
	var cfg AppConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	switch {
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET is required")
	case c.GatewayID == "":
		return errors.New("GATEWAY_ID is required")
	case strings.Contains(c.GatewayID, ":"):
		return errors.Errorf("GATEWAY_ID %q must not contain ':'", c.GatewayID)
	case c.InternalToken != "" && len(c.InternalToken) < minInternalToken:
		return errors.Errorf("INTERNAL_TOKEN must be at least %d bytes", minInternalToken)
	case c.InternalToken != "" && c.InternalToken == c.JWTSecret:
		return errors.New("INTERNAL_TOKEN must differ from JWT_SECRET")
	case c.NodeID < 0 || c.NodeID > 1023:
		return errors.Errorf("NODE_ID %d out of range [0,1023]", c.NodeID)
	case c.SendQueueSize <= 0:
		return errors.Errorf("SEND_QUEUE_SIZE must be positive, got %d", c.SendQueueSize)
	case c.MaxMessageSize <= 0:
		return errors.Errorf("MAX_MESSAGE_SIZE must be positive, got %d", c.MaxMessageSize)
	case c.WriteWait <= 0 || c.JWTTTL <= 0 || c.PresenceTTL <= 0:
		return errors.New("WRITE_WAIT, JWT_TTL and PRESENCE_TTL must be positive")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "LOG_LEVEL")
	}
	if err := security.CheckAlg(c.JWTAlg); err != nil {
		return errors.Wrap(err, "JWT_ALG")
	}
	return nil
}

// JWTOptions maps the token settings onto security.Options.
func (c *AppConfig) JWTOptions() security.Options {
	opts := security.DefaultOptions([]byte(c.JWTSecret))
	opts.Alg = c.JWTAlg
	opts.TTL = c.JWTTTL
	return opts
}
