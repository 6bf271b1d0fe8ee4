package store

import (
	"sync"
)

// KeyValue is the back-end contract of the cache store.
// dal.Repo is the durable implementation; MemoryKV lives only as long as the process.
type KeyValue interface {
	GetValue(key string) (val []byte, found bool, err error)
	SetValue(key string, val []byte) error
	DeleteValue(key string) error
}

type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

func (kv *MemoryKV) GetValue(key string) ([]byte, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	val, ok := kv.values[key]
	if !ok {
		return nil, false, nil
	}
	res := make([]byte, len(val))
	copy(res, val)
	return res, true, nil
}

func (kv *MemoryKV) SetValue(key string, val []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	stored := make([]byte, len(val))
	copy(stored, val)
	kv.values[key] = stored
	return nil
}

func (kv *MemoryKV) DeleteValue(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.values, key)
	return nil
}
