package config

import (
	"strings"
	"time"
)

// AppConfig is the gateway node configuration, read from the environment.
type AppConfig struct {
	NodeID    int64  `env:"NODE_ID,default=1"`             // snowflake node
	GatewayID string `env:"GATEWAY_ID,default=gateway_01"` // presence node name, no ':'
	HTTPAddr  string `env:"HTTP_ADDR,default=:8080"`
	GRPCAddr  string `env:"GRPC_ADDR,default=:50051"`
	WSPath    string `env:"WS_PATH,default=/ws"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTAlg    string        `env:"JWT_ALG,default=HS256"`
	JWTTTL    time.Duration `env:"JWT_TTL,default=24h"`

	// shared secret of the collaborator routes; empty disables them
	InternalToken string `env:"INTERNAL_TOKEN"`

	SendQueueSize  int           `env:"SEND_QUEUE_SIZE,default=256"`
	WriteWait      time.Duration `env:"WRITE_WAIT,default=10s"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE,default=65536"`
	AllowedOrigins string        `env:"ALLOWED_ORIGINS"` // comma separated, empty = any

	RedisAddr     string        `env:"REDIS_ADDR"` // empty disables the presence mirror
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB,default=0"`
	PresenceTTL   time.Duration `env:"PRESENCE_TTL,default=2m"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
	DevLogin bool   `env:"DEV_LOGIN,default=false"`
}

// Origins splits ALLOWED_ORIGINS.
func (c *AppConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *AppConfig) InternalEnabled() bool {
	return c.InternalToken != ""
}

func (c *AppConfig) PresenceEnabled() bool {
	return c.RedisAddr != ""
}
