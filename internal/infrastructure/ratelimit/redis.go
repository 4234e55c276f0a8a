package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "simplestorage:throttle:"

// A fixed window per rule and client: the first hit opens the window.
var hitScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

type RedisConfig struct {
	Addr      string
	KeyPrefix string
}

// Redis shares throttle windows across gateway replicas.
type Redis struct {
	client *redis.Client
	rules  []Rule
	prefix string
}

func NewRedis(ctx context.Context, cfg RedisConfig, rules []Rule) (*Redis, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("redis addr is required")
	}
	if err := validateRules(rules); err != nil {
		return nil, err
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Redis{client: client, rules: rules, prefix: cfg.KeyPrefix}, nil
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	for _, rule := range r.rules {
		result, err := hitScript.Run(ctx, r.client, []string{r.prefix + rule.Name + ":" + key}, rule.TTL.Milliseconds()).Int64Slice()
		if err != nil {
			return Decision{}, fmt.Errorf("throttle %s: %w", rule.Name, err)
		}
		if len(result) != 2 {
			return Decision{}, fmt.Errorf("throttle %s: unexpected reply %v", rule.Name, result)
		}
		if int(result[0]) > rule.Limit {
			retry := time.Duration(result[1]) * time.Millisecond
			if retry <= 0 {
				retry = rule.TTL
			}
			return Decision{Allowed: false, Rule: rule.Name, RetryAfter: retry}, nil
		}
	}
	return Decision{Allowed: true}, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
