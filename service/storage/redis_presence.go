package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// PresenceConfig configures the Redis presence mirror.
type PresenceConfig struct {
	NodeID string           // gateway ID, part of every session member
	TTL    time.Duration    // a session not touched for TTL counts as gone
	Prefix string           // key prefix, default "pp:presence"
	Clock  func() time.Time // nil => time.Now
}

// presence key: <prefix>:<user>, a sorted set of "<node>:<conn>" scored by
// the unix second the session expires at.
//
// KEYS[1] = user index key
// ARGV[1] = member
// ARGV[2] = expireAtUnix
// ARGV[3] = key ttl seconds
const luaTouch = `
local userZ  = KEYS[1]
redis.call("ZADD", userZ, tonumber(ARGV[2]), ARGV[1])
redis.call("EXPIRE", userZ, tonumber(ARGV[3]))
return 1
`

// KEYS[1] = user index key
// ARGV[1] = member
// returns 1 when the member existed (idempotent)
const luaOfflineOne = `
local userZ = KEYS[1]
local existed = redis.call("ZREM", userZ, ARGV[1])
if redis.call("ZCARD", userZ) == 0 then
  redis.call("DEL", userZ)
end
return existed
`

// KEYS[1] = user index key
// ARGV[1] = nowUnix
// returns the members still valid (> now), sweeping expired ones
const luaGetActiveAndSweep = `
local userZ = KEYS[1]
local now   = tonumber(ARGV[1])

redis.call("ZREMRANGEBYSCORE", userZ, "-inf", now)
local actives = redis.call("ZRANGEBYSCORE", userZ, now + 1, "+inf")
if redis.call("ZCARD", userZ) == 0 then
  redis.call("DEL", userZ)
end
return actives
`

var (
	scriptTouch     = redis.NewScript(luaTouch)
	scriptOffline   = redis.NewScript(luaOfflineOne)
	scriptGetActive = redis.NewScript(luaGetActiveAndSweep)
)

// RedisPresence records which gateway sessions a user has open. It satisfies
// chat.Presence.
type RedisPresence struct {
	rdb redis.Scripter
	cfg PresenceConfig
}

func NewRedisPresence(rdb redis.Scripter, cfg PresenceConfig) (*RedisPresence, error) {
	if rdb == nil {
		return nil, errors.New("redis not initialized")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "pp:presence"
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &RedisPresence{rdb: rdb, cfg: cfg}, nil
}

func (p *RedisPresence) userKey(user string) string {
	return p.cfg.Prefix + ":" + user
}

func (p *RedisPresence) member(connID string) string {
	return p.cfg.NodeID + ":" + connID
}

func (p *RedisPresence) Online(ctx context.Context, userID, connID string) error {
	return p.Touch(ctx, userID, connID)
}

// Touch renews (or creates) the session's expiry.
func (p *RedisPresence) Touch(ctx context.Context, userID, connID string) error {
	if userID == "" || connID == "" {
		return errors.New("userID/connID empty")
	}
	exp := p.cfg.Clock().Add(p.cfg.TTL).Unix()
	keyTTL := int64((2 * p.cfg.TTL).Seconds())
	err := scriptTouch.Run(ctx, p.rdb, []string{p.userKey(userID)}, p.member(connID), exp, keyTTL).Err()
	return errors.Wrapf(err, "presence touch user=%s", userID)
}

func (p *RedisPresence) Offline(ctx context.Context, userID, connID string) error {
	if userID == "" || connID == "" {
		return errors.New("userID/connID empty")
	}
	err := scriptOffline.Run(ctx, p.rdb, []string{p.userKey(userID)}, p.member(connID)).Err()
	return errors.Wrapf(err, "presence offline user=%s", userID)
}

// Session is one live gateway connection of a user.
type Session struct {
	NodeID string `json:"nodeId"`
	ConnID string `json:"connId"`
}

// Sessions lists the user's unexpired sessions across gateways.
func (p *RedisPresence) Sessions(ctx context.Context, userID string) ([]Session, error) {
	res, err := scriptGetActive.Run(ctx, p.rdb, []string{p.userKey(userID)}, p.cfg.Clock().Unix()).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrapf(err, "presence sessions user=%s", userID)
	}
	out := make([]Session, 0, len(res))
	for _, m := range res {
		// conn IDs never hold ':', the node name may
		i := strings.LastIndex(m, ":")
		if i <= 0 || i == len(m)-1 {
			return nil, fmt.Errorf("malformed presence member %q", m)
		}
		out = append(out, Session{NodeID: m[:i], ConnID: m[i+1:]})
	}
	return out, nil
}

func (p *RedisPresence) IsOnline(ctx context.Context, userID string) (bool, error) {
	s, err := p.Sessions(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(s) > 0, nil
}
