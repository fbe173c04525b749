// Package memstore is an in-process fallback for internal/ephemeral.Store,
// used when --dev-memory-stores is set and by every package's tests so
// internal/roundengine and internal/buzzer can be exercised without a
// live Redis. It implements ephemeral.Store and ephemeral.Script's
// Fallback path with identical decision-tree semantics to RedisStore,
// guarded by one mutex per store instance (not per game — the teacher's
// whole storage model is a single in-process Hub per room, so a single
// lock for the fallback store is the same idiom scaled down, not up).
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/briarpatch/jeopardy-coordinator/internal/ephemeral"
)

type hashEntry struct {
	fields  map[string]string
	expires time.Time
}

type Store struct {
	mu    sync.RWMutex
	hash  map[string]*hashEntry
	set   map[string]map[string]struct{}
	list  map[string][]string
	plain map[string]string
}

func New() *Store {
	return &Store{
		hash:  make(map[string]*hashEntry),
		set:   make(map[string]map[string]struct{}),
		list:  make(map[string][]string),
		plain: make(map[string]string),
	}
}

func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string)
	if e, ok := s.hash[key]; ok {
		for k, v := range e.fields {
			out[k] = v
		}
	}
	return out, nil
}

func (s *Store) HGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.hash[key]
	if !ok {
		return "", false, nil
	}
	v, ok := e.fields[field]
	return v, ok, nil
}

func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensureHash(key)
	for k, v := range fields {
		e.fields[k] = v
	}
	return nil
}

func (s *Store) HIncrBy(_ context.Context, key, field string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensureHash(key)
	cur := atoi(e.fields[field])
	cur += delta
	e.fields[field] = itoa(cur)
	return cur, nil
}

func (s *Store) HDel(_ context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.hash[key]
	if !ok {
		return nil
	}
	for _, f := range fields {
		delete(e.fields, f)
	}
	return nil
}

func (s *Store) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.set[key]
	if !ok {
		m = make(map[string]struct{})
		s.set[key] = m
	}
	for _, v := range members {
		m[v] = struct{}{}
	}
	return nil
}

func (s *Store) SIsMember(_ context.Context, key, member string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.set[key]
	if !ok {
		return false, nil
	}
	_, ok = m[member]
	return ok, nil
}

func (s *Store) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.set[key]
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) RPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list[key] = append(s.list[key], values...)
	return nil
}

func (s *Store) LRange(_ context.Context, key string, start, stop int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := s.list[key]
	if len(l) == 0 {
		return nil, nil
	}
	if stop < 0 || stop >= len(l) {
		stop = len(l) - 1
	}
	if start < 0 {
		start = 0
	}
	if start > stop {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, l[start:stop+1])
	return out, nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.plain[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plain[key] = value
	return nil
}

func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.hash, k)
		delete(s.set, k)
		delete(s.list, k)
		delete(s.plain, k)
	}
	return nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.hash[key]; ok {
		e.expires = time.Now().Add(ttl)
	}
	return nil
}

// Eval runs script.Fallback under the store's write lock, giving it the
// same all-or-nothing visibility a Lua script gets from Redis's single
// threaded execution model.
func (s *Store) Eval(_ context.Context, script *ephemeral.Script, keys []string, args ...string) ([]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return script.Fallback(&ops{s}, keys, args), nil
}

func (s *Store) ensureHash(key string) *hashEntry {
	e, ok := s.hash[key]
	if !ok {
		e = &hashEntry{fields: make(map[string]string)}
		s.hash[key] = e
	}
	return e
}

// ops adapts Store to ephemeral.KeyOps for use inside Eval, where the
// store's write lock is already held, so these bypass the exported
// context-taking methods (which would deadlock re-acquiring the lock).
type ops struct{ s *Store }

func (o *ops) HGet(key, field string) (string, bool) {
	e, ok := o.s.hash[key]
	if !ok {
		return "", false
	}
	v, ok := e.fields[field]
	return v, ok
}

func (o *ops) HSet(key, field, value string) {
	e := o.s.ensureHash(key)
	e.fields[field] = value
}

func (o *ops) HIncrBy(key, field string, delta int) int {
	e := o.s.ensureHash(key)
	cur := atoi(e.fields[field]) + delta
	e.fields[field] = itoa(cur)
	return cur
}

func (o *ops) HDel(key string, fields ...string) {
	e, ok := o.s.hash[key]
	if !ok {
		return
	}
	for _, f := range fields {
		delete(e.fields, f)
	}
}

func (o *ops) SIsMember(key, member string) bool {
	m, ok := o.s.set[key]
	if !ok {
		return false
	}
	_, ok = m[member]
	return ok
}

func (o *ops) RPush(key string, value string) {
	o.s.list[key] = append(o.s.list[key], value)
}

func (o *ops) Expire(key string, ttl time.Duration) {
	if e, ok := o.s.hash[key]; ok {
		e.expires = time.Now().Add(ttl)
	}
}
