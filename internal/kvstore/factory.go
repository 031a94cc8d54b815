package kvstore

import (
	"fmt"
)

// NewStore creates a store instance based on the provided configuration
func NewStore(config *StoreConfig) (Store, error) {
	if config == nil {
		config = DefaultStoreConfig()
	}

	if !config.Backend.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStoreType, config.Backend)
	}

	switch config.Backend {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeRedis:
		return NewRedisStore(config)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidStoreType, config.Backend)
	}
}

// MustNewStore creates a store or panics if configuration is invalid
func MustNewStore(config *StoreConfig) Store {
	store, err := NewStore(config)
	if err != nil {
		panic(fmt.Sprintf("failed to create store: %v", err))
	}
	return store
}
