package testutil

import (
	"errors"
	"sync"
)

// ErrInjected is the default error returned by injected failures.
var ErrInjected = errors.New("injected failure")

// MemoryKV is an in-memory key-value store with failure injection.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MemoryKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	failSet error
	failRm  error
	sets    int
}

// NewMemoryKV creates an empty store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (kv *MemoryKV) Get(key string) ([]byte, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value unless writes are failing.
func (kv *MemoryKV) Set(key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.failSet != nil {
		return kv.failSet
	}
	kv.sets++
	kv.data[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key unless removals are failing.
func (kv *MemoryKV) Remove(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.failRm != nil {
		return kv.failRm
	}
	delete(kv.data, key)
	return nil
}

// FailWrites makes every Set return err until called again with nil.
func (kv *MemoryKV) FailWrites(err error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.failSet = err
}

// FailRemoves makes every Remove return err until called again with nil.
func (kv *MemoryKV) FailRemoves(err error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.failRm = err
}

// Has reports whether key is stored.
func (kv *MemoryKV) Has(key string) bool {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	_, ok := kv.data[key]
	return ok
}

// Sets returns the number of successful writes.
func (kv *MemoryKV) Sets() int {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	return kv.sets
}
