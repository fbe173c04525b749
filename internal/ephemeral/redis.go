package ephemeral

import (
	"context"
	"time"

	"github.com/gomodule/redigo/redis"
)

// RedisStore is the production Store, grounded on the
// pool.Get()/defer conn.Close() shape used throughout
// puzzles-with-chat's acrostic route handlers, the clearest example in
// the retrieved pack of a Redis-backed per-room game state store.
type RedisStore struct {
	pool    *redis.Pool
	scripts map[*Script]*redis.Script
}

// NewRedisPool builds a redigo connection pool against addr (host:port).
// maxActive follows the shape redigo's own documentation recommends
// for a long-lived server process.
func NewRedisPool(addr string, maxActive int) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     maxActive/2 + 1,
		MaxActive:   maxActive,
		IdleTimeout: 5 * time.Minute,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

func NewRedisStore(pool *redis.Pool) *RedisStore {
	return &RedisStore{pool: pool, scripts: make(map[*Script]*redis.Script)}
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	return redis.StringMap(conn.Do("HGETALL", key))
}

func (s *RedisStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	v, err := redis.String(conn.Do("HGET", key, field))
	if err == redis.ErrNil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	args := redis.Args{}.Add(key)
	for k, v := range fields {
		args = args.Add(k, v)
	}
	_, err := conn.Do("HSET", args...)
	return err
}

func (s *RedisStore) HIncrBy(ctx context.Context, key, field string, delta int) (int, error) {
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	return redis.Int(conn.Do("HINCRBY", key, field, delta))
}

func (s *RedisStore) HDel(ctx context.Context, key string, fields ...string) error {
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	args := redis.Args{}.Add(key)
	for _, f := range fields {
		args = args.Add(f)
	}
	_, err := conn.Do("HDEL", args...)
	return err
}

func (s *RedisStore) SAdd(ctx context.Context, key string, members ...string) error {
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	args := redis.Args{}.Add(key)
	for _, m := range members {
		args = args.Add(m)
	}
	_, err := conn.Do("SADD", args...)
	return err
}

func (s *RedisStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	return redis.Bool(conn.Do("SISMEMBER", key, member))
}

func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	return redis.Strings(conn.Do("SMEMBERS", key))
}

func (s *RedisStore) RPush(ctx context.Context, key string, values ...string) error {
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	args := redis.Args{}.Add(key)
	for _, v := range values {
		args = args.Add(v)
	}
	_, err := conn.Do("RPUSH", args...)
	return err
}

func (s *RedisStore) LRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	return redis.Strings(conn.Do("LRANGE", key, start, stop))
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	v, err := redis.String(conn.Do("GET", key))
	if err == redis.ErrNil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	_, err := conn.Do("SET", key, value)
	return err
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	args := redis.Args{}
	for _, k := range keys {
		args = args.Add(k)
	}
	_, err := conn.Do("DEL", args...)
	return err
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()
	_, err := conn.Do("EXPIRE", key, int(ttl.Seconds()))
	return err
}

// redisScriptFor lazily compiles script's Lua source into a
// redis.Script, caching by pointer identity so repeated Eval calls
// against the same *Script reuse the same SHA1-cached script.
func (s *RedisStore) redisScriptFor(script *Script) *redis.Script {
	if rs, ok := s.scripts[script]; ok {
		return rs
	}
	rs := redis.NewScript(script.NumKeys, script.Source)
	s.scripts[script] = rs
	return rs
}

// Eval runs a Script's Lua source atomically, giving the Buzzer
// Arbitrator the single indivisible transaction spec.md section 4.2
// requires.
func (s *RedisStore) Eval(ctx context.Context, script *Script, keys []string, args ...string) ([]interface{}, error) {
	conn := s.pool.Get()
	defer func() { _ = conn.Close() }()

	allArgs := make(redis.Args, 0, len(keys)+len(args))
	for _, k := range keys {
		allArgs = allArgs.Add(k)
	}
	for _, a := range args {
		allArgs = allArgs.Add(a)
	}

	reply, err := s.redisScriptFor(script).Do(conn, allArgs...)
	if err != nil {
		return nil, err
	}
	return redis.Values(reply, nil)
}
