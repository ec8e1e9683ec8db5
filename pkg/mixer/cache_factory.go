package mixer

import (
	"errors"
	"fmt"

	"github.com/zapdos26/client-node/internal/constants"
)

// CacheType selects the backend for cached GET responses.
type CacheType string

// Cache backends.
const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeNATS   CacheType = "nats"
	CacheTypeNone   CacheType = "none"
)

var (
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrCacheDisabled        = errors.New("cache disabled")
)

// CacheConfig configures response caching. An empty Type means memory.
type CacheConfig struct {
	Type CacheType

	// Memory bounds the in-process cache; nil uses the default size.
	Memory *MemoryCacheConfig
	// NATS is required when Type is CacheTypeNATS.
	NATS *NATSKVConfig

	// Options tunes TTL and policy. Nil selects DefaultCacheOptions.
	Options *CacheOptions
}

// MemoryCacheConfig bounds the memory cache by entry count.
type MemoryCacheConfig struct {
	MaxSize int
}

// DefaultCacheConfig returns a memory cache of the default size.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type:    CacheTypeMemory,
		Memory:  &MemoryCacheConfig{MaxSize: constants.DefaultCacheSize},
		Options: DefaultCacheOptions(),
	}
}

// NewCacheFromConfig builds the configured backend. CacheTypeNone yields a
// nil Cache, which callers treat as caching off.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory, "":
		maxSize := constants.DefaultCacheSize
		if config.Memory != nil && config.Memory.MaxSize > 0 {
			maxSize = config.Memory.MaxSize
		}

		return NewMemoryCache(maxSize), nil
	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)
	case CacheTypeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}
