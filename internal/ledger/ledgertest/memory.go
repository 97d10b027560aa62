// Package ledgertest provides an in-memory datastore for ledger tests.
package ledgertest

import (
	"context"
	"strconv"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/projectamerika/mayflower/internal/opencloud"
)

type entry struct {
	data    []byte
	version int
}

// MemoryStore is an in-memory datastore with the same version semantics as
// Open Cloud. It records how many calls each operation received.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	calls   map[string]int
	fail    map[string]error
	serial  int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		calls:   make(map[string]int),
		fail:    make(map[string]error),
	}
}

func storeKey(namespace, key string) string {
	return namespace + "/" + key
}

// FailNext makes the next call of op ("get", "put" or "delete") on namespace return err.
func (s *MemoryStore) FailNext(op, namespace string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fail[op+":"+namespace] = err
}

// Calls returns how many times op was called on namespace.
func (s *MemoryStore) Calls(op, namespace string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[op+":"+namespace]
}

// Seed stores value without counting a call.
func (s *MemoryStore) Seed(namespace, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := sonic.Marshal(value)
	if err != nil {
		panic(err)
	}

	s.serial++
	s.entries[storeKey(namespace, key)] = entry{data: data, version: s.serial}
}

// Raw decodes the stored value into out and reports whether it exists.
func (s *MemoryStore) Raw(namespace, key string, out any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[storeKey(namespace, key)]
	if !ok {
		return false
	}

	if err := sonic.Unmarshal(e.data, out); err != nil {
		panic(err)
	}

	return true
}

func (s *MemoryStore) begin(op, namespace string) error {
	s.calls[op+":"+namespace]++

	if err, ok := s.fail[op+":"+namespace]; ok {
		delete(s.fail, op+":"+namespace)
		return err
	}

	return nil
}

func (s *MemoryStore) Get(_ context.Context, namespace, key string, out any) (opencloud.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("get", namespace); err != nil {
		return "", err
	}

	e, ok := s.entries[storeKey(namespace, key)]
	if !ok {
		return "", opencloud.ErrEntryNotFound
	}

	if err := sonic.Unmarshal(e.data, out); err != nil {
		return "", err
	}

	return opencloud.Version(strconv.Itoa(e.version)), nil
}

func (s *MemoryStore) Put(
	_ context.Context, namespace, key string, value any, opts opencloud.PutOptions,
) (opencloud.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("put", namespace); err != nil {
		return "", err
	}

	existing, exists := s.entries[storeKey(namespace, key)]
	if opts.ExclusiveCreate && exists {
		return "", opencloud.ErrVersionConflict
	}

	if opts.MatchVersion != "" && (!exists || strconv.Itoa(existing.version) != string(opts.MatchVersion)) {
		return "", opencloud.ErrVersionConflict
	}

	data, err := sonic.Marshal(value)
	if err != nil {
		return "", err
	}

	s.serial++
	s.entries[storeKey(namespace, key)] = entry{data: data, version: s.serial}

	return opencloud.Version(strconv.Itoa(s.serial)), nil
}

func (s *MemoryStore) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("delete", namespace); err != nil {
		return err
	}

	if _, ok := s.entries[storeKey(namespace, key)]; !ok {
		return opencloud.ErrEntryNotFound
	}

	delete(s.entries, storeKey(namespace, key))

	return nil
}
