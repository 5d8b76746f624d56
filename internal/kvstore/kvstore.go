// Package kvstore provides the keyed store abstraction behind the
// parameter map, trend_data hash, funding-rate map, process flags, and
// spread ring buffers of spec §6. Behavior is identical whether backed
// by an in-process map or Redis (github.com/redis/go-redis/v9), per
// spec §3 "Ring buffer ... behavior must be identical".
package kvstore

import (
	"context"
	"os"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Store is the minimal keyed-value + bounded-list contract every
// consumer (parameter store, ring buffer, flags) builds on.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error

	HGet(ctx context.Context, key, field string) ([]byte, bool, error)

	// ListPush appends val to the list at key and trims it to the last
	// maxLen entries, oldest first dropped, matching the ring buffer's
	// bounded-append semantics.
	ListPush(ctx context.Context, key string, val []byte, maxLen int) error
	// ListRange returns entries [start, stop) in insertion order.
	ListRange(ctx context.Context, key string, start, stop int) ([][]byte, error)
	ListLen(ctx context.Context, key string) (int, error)
}

// NewAuto selects a Redis-backed store when REDIS_ADDR is set, an
// in-process store otherwise, mirroring data/cache.NewAuto's selection.
func NewAuto() Store {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return NewRedis(addr)
	}
	return NewMemory()
}

// --- in-process implementation ---

type memEntry struct {
	val []byte
	exp time.Time
}

type memory struct {
	mu     sync.Mutex
	kv     map[string]memEntry
	hashes map[string]map[string][]byte
	lists  map[string][][]byte
}

func NewMemory() Store {
	return &memory{
		kv:     make(map[string]memEntry),
		hashes: make(map[string]map[string][]byte),
		lists:  make(map[string][][]byte),
	}
}

func (m *memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.kv[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		return nil, false, nil
	}
	return e.val, true, nil
}

func (m *memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memEntry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	m.kv[key] = e
	return nil
}

func (m *memory) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kv, key)
	return nil
}

func (m *memory) HGet(_ context.Context, key, field string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		return nil, false, nil
	}
	v, ok := h[field]
	return v, ok, nil
}

// HSet is exposed for the hash-backed trend_data table; not part of the
// Store interface because only the external trend-data writer needs it,
// but tests construct a *memory directly to seed fixtures.
func (m *memory) HSet(key, field string, val []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string][]byte)
		m.hashes[key] = h
	}
	h[field] = append([]byte(nil), val...)
}

func (m *memory) ListPush(_ context.Context, key string, val []byte, maxLen int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := append(m.lists[key], append([]byte(nil), val...))
	if maxLen > 0 && len(l) > maxLen {
		l = l[len(l)-maxLen:]
	}
	m.lists[key] = l
	return nil
}

func (m *memory) ListRange(_ context.Context, key string, start, stop int) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.lists[key]
	if start < 0 {
		start = 0
	}
	if stop > len(l) || stop < 0 {
		stop = len(l)
	}
	if start >= stop {
		return nil, nil
	}
	out := make([][]byte, stop-start)
	copy(out, l[start:stop])
	return out, nil
}

func (m *memory) ListLen(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lists[key]), nil
}

// --- Redis implementation ---

type redisStore struct {
	r       *redis.Client
	timeout time.Duration
}

func NewRedis(addr string) Store {
	return &redisStore{
		r:       redis.NewClient(&redis.Options{Addr: addr}),
		timeout: 2 * time.Second,
	}
}

func (r *redisStore) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, r.timeout)
}

func (r *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cctx, cancel := r.ctx(ctx)
	defer cancel()
	v, err := r.r.Get(cctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *redisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	cctx, cancel := r.ctx(ctx)
	defer cancel()
	return r.r.Set(cctx, key, val, ttl).Err()
}

func (r *redisStore) Del(ctx context.Context, key string) error {
	cctx, cancel := r.ctx(ctx)
	defer cancel()
	return r.r.Del(cctx, key).Err()
}

func (r *redisStore) HGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	cctx, cancel := r.ctx(ctx)
	defer cancel()
	v, err := r.r.HGet(cctx, key, field).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *redisStore) ListPush(ctx context.Context, key string, val []byte, maxLen int) error {
	cctx, cancel := r.ctx(ctx)
	defer cancel()
	pipe := r.r.TxPipeline()
	pipe.RPush(cctx, key, val)
	if maxLen > 0 {
		pipe.LTrim(cctx, key, int64(-maxLen), -1)
	}
	_, err := pipe.Exec(cctx)
	return err
}

func (r *redisStore) ListRange(ctx context.Context, key string, start, stop int) ([][]byte, error) {
	cctx, cancel := r.ctx(ctx)
	defer cancel()
	if stop == 0 {
		return nil, nil
	}
	stopIdx := int64(stop - 1)
	if stop < 0 {
		stopIdx = -1
	}
	vals, err := r.r.LRange(cctx, key, int64(start), stopIdx).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

func (r *redisStore) ListLen(ctx context.Context, key string) (int, error) {
	cctx, cancel := r.ctx(ctx)
	defer cancel()
	n, err := r.r.LLen(cctx, key).Result()
	return int(n), err
}
