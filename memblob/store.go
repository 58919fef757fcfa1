// Package memblob is a goroutine-safe, pure-Go implementation of
// cloudqueue.BlobStorage backed by a plain map. It is the default backend
// for overflow and persisted-record storage in the command-line demo and
// in every test in this module.
package memblob

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Store is an in-memory cloudqueue.BlobStorage.
type Store struct {
	mu         sync.Mutex
	containers map[string]map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{containers: make(map[string]map[string][]byte)}
}

func (s *Store) Put(ctx context.Context, container, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[container]
	if !ok {
		c = make(map[string][]byte)
		s.containers[container] = c
	}

	// Copy data in: callers must not be able to mutate stored bytes by
	// mutating the slice they passed in.
	stored := make([]byte, len(data))
	copy(stored, data)
	c[name] = stored
	return nil
}

func (s *Store) Get(ctx context.Context, container, name string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[container]
	if !ok {
		return nil, false, nil
	}
	data, ok := c[name]
	if !ok {
		return nil, false, nil
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (s *Store) List(ctx context.Context, container, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[container]
	if !ok {
		return nil, nil
	}

	names := make([]string, 0, len(c))
	for name := range c {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Delete(ctx context.Context, container, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.containers[container]
	if !ok {
		return nil
	}
	delete(c, name)
	return nil
}
