package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore provides an in-memory implementation of Store for testing.
type MemoryStore struct {
	mu     sync.RWMutex
	hashes map[string]map[string]string
	lists  map[string][]string
	zsets  map[string][]ZMember
	ttls   map[string]time.Duration
}

// ZMember is a scored member of an in-memory sorted set, kept in insertion
// order so tests can assert on result records.
type ZMember struct {
	Score  float64
	Member string
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hashes: make(map[string]map[string]string),
		lists:  make(map[string][]string),
		zsets:  make(map[string][]ZMember),
		ttls:   make(map[string]time.Duration),
	}
}

func stringify(value interface{}) string {
	return fmt.Sprintf("%v", value)
}

func (s *MemoryStore) HSet(ctx context.Context, key, field string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hashes[key] == nil {
		s.hashes[key] = make(map[string]string)
	}
	s.hashes[key][field] = stringify(value)
	return nil
}

func (s *MemoryStore) HSetNX(ctx context.Context, key, field string, value interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hashes[key] == nil {
		s.hashes[key] = make(map[string]string)
	}
	if _, ok := s.hashes[key][field]; ok {
		return false, nil
	}
	s.hashes[key][field] = stringify(value)
	return true, nil
}

func (s *MemoryStore) HGet(ctx context.Context, key, field string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.hashes[key][field]
	if !ok {
		return "", ErrNil
	}
	return value, nil
}

func (s *MemoryStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		result[k] = v
	}
	return result, nil
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ttls[key] = ttl
	return nil
}

func (s *MemoryStore) RPush(ctx context.Context, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists[key] = append(s.lists[key], stringify(value))
	return nil
}

func (s *MemoryStore) LPop(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[key]
	if len(list) == 0 {
		return "", ErrNil
	}
	value := list[0]
	s.lists[key] = list[1:]
	return value, nil
}

func (s *MemoryStore) LLen(ctx context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.lists[key])), nil
}

func (s *MemoryStore) LMove(ctx context.Context, src, dst string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[src]
	if len(list) == 0 {
		return "", ErrNil
	}
	value := list[0]
	s.lists[src] = list[1:]
	s.lists[dst] = append(s.lists[dst], value)
	return value, nil
}

func (s *MemoryStore) LRem(ctx context.Context, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := stringify(value)
	var kept []string
	for _, v := range s.lists[key] {
		if v != target {
			kept = append(kept, v)
		}
	}
	s.lists[key] = kept
	return nil
}

func (s *MemoryStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.lists[key]
	n := int64(len(list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return nil, nil
	}

	result := make([]string, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		result = append(result, list[i])
	}
	return result, nil
}

func (s *MemoryStore) ZAdd(ctx context.Context, key string, score float64, member interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.zsets[key] = append(s.zsets[key], ZMember{Score: score, Member: stringify(member)})
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// ZMembers returns the recorded members of a sorted set, for assertions.
func (s *MemoryStore) ZMembers(key string) []ZMember {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ZMember, len(s.zsets[key]))
	copy(out, s.zsets[key])
	return out
}

// TTL returns the TTL recorded for a key by Expire.
func (s *MemoryStore) TTL(key string) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ttls[key]
}

// DeleteKey removes a key outright, simulating store-side expiry.
func (s *MemoryStore) DeleteKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.hashes, key)
	delete(s.lists, key)
	delete(s.zsets, key)
	delete(s.ttls, key)
}
