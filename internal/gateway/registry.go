package gateway

import (
	"fmt"
	"sync"

	"github.com/rmorales/supplysync-backend/pkg/enums"
)

// Constructor builds a fresh, uninitialized client for a supplier type.
type Constructor func() Client

// Registry maps supplier client-type keys to constructors. Lookup is
// explicit; unknown keys are an error, not a fallback.
type Registry struct {
	mtx     sync.RWMutex
	entries map[enums.SupplierClientType]Constructor
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[enums.SupplierClientType]Constructor)}
}

// Register stores a constructor under the given client type.
func (r *Registry) Register(clientType enums.SupplierClientType, ctor Constructor) error {
	if ctor == nil {
		return fmt.Errorf("constructor is required for %s", clientType)
	}
	if !clientType.IsValid() {
		return fmt.Errorf("unknown supplier client type %q", clientType)
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, exists := r.entries[clientType]; exists {
		return fmt.Errorf("supplier client type %q already registered", clientType)
	}
	r.entries[clientType] = ctor
	return nil
}

// New builds an uninitialized client for the given type.
func (r *Registry) New(clientType enums.SupplierClientType) (Client, error) {
	r.mtx.RLock()
	ctor, ok := r.entries[clientType]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no client registered for supplier type %q", clientType)
	}
	return ctor(), nil
}

// Types returns the registered client types.
func (r *Registry) Types() []enums.SupplierClientType {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	types := make([]enums.SupplierClientType, 0, len(r.entries))
	for key := range r.entries {
		types = append(types, key)
	}
	return types
}
