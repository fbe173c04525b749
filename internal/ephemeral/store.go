// Package ephemeral implements the fast, TTL-backed shared store the
// coordinator uses for live game state: hashes, sets, lists, and a
// scripted atomic execution primitive. The production implementation
// is Redis via gomodule/redigo; internal/ephemeral/memstore provides a
// semantically equivalent in-process fallback for local runs and
// tests.
package ephemeral

import (
	"context"
	"errors"
	"time"
)

// ErrNil is returned by callers of Store through sentinel comparison
// where a distinction between "key absent" and "empty value" matters;
// most methods instead return a bool.
var ErrNil = errors.New("ephemeral: key not found")

// Script is an atomic, server-side multi-step transaction: the one
// mechanism spec.md section 4.2 requires for the Buzzer Arbitrator.
// NumKeys is the count of the leading script arguments treated as Redis
// keys (mirroring redigo's redis.NewScript(keyCount, src)). Source is
// the Lua body run against RedisStore. Fallback is a pure-Go
// implementation of the identical decision tree, run by memstore under
// its single store-wide lock instead of a Lua VM — both MUST make the same
// decisions for the same inputs.
type Script struct {
	NumKeys  int
	Source   string
	Fallback func(ops KeyOps, keys []string, args []string) []interface{}
}

// KeyOps is the minimal hash/set/list surface a Script's Fallback needs
// to mutate the in-memory backing store directly (bypassing the
// connection-per-call Store methods, since the fallback already runs
// under the store's lock).
type KeyOps interface {
	HGet(key, field string) (string, bool)
	HSet(key, field, value string)
	HIncrBy(key, field string, delta int) int
	HDel(key string, fields ...string)
	SIsMember(key, member string) bool
	RPush(key string, value string)
	Expire(key string, ttl time.Duration)
}

// Store is the full surface the coordinator needs from the ephemeral
// backing store. Every method borrows and releases its own connection;
// callers needing several operations under one atomic umbrella use Eval
// with a Script instead of chaining Store calls.
type Store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HIncrBy(ctx context.Context, key, field string, delta int) (int, error)
	HDel(ctx context.Context, key string, fields ...string) error

	SAdd(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)

	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int) ([]string, error)

	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error

	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Eval runs script atomically, returning its raw reply: a slice of
	// int64/string/nil elements, matching what the buzzer package's
	// Lua scripts return from Redis.
	Eval(ctx context.Context, script *Script, keys []string, args ...string) ([]interface{}, error)
}
