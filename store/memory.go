package store

import (
	"bytes"
	"errors"
	"sync"
)

// MemoryVault holds the record in process memory. It is meant for tests and
// for embedding callers that supply their own persistence.
type MemoryVault struct {
	mu   sync.Mutex
	data []byte
}

var _ Vault = (*MemoryVault)(nil)

// NewMemory returns an empty in-memory vault.
func NewMemory() *MemoryVault { return &MemoryVault{} }

func (v *MemoryVault) ReadAll() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.data) == 0 {
		return nil, ErrNotFound
	}
	return bytes.Clone(v.data), nil
}

func (v *MemoryVault) WriteAll(data []byte) error {
	if len(data) == 0 {
		return &Error{Op: "write", Identity: "memory", Err: errors.New("refusing to write empty record")}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data = bytes.Clone(data)
	return nil
}

func (v *MemoryVault) Delete() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	existed := len(v.data) > 0
	v.data = nil
	return existed, nil
}

func (v *MemoryVault) Exists() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.data) > 0, nil
}
