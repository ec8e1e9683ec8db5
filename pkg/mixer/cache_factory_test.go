package mixer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdos26/client-node/pkg/mixer"
)

func TestNewCacheFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   *mixer.CacheConfig
		wantType any
		wantErr  error
	}{
		{name: "nil config", config: nil, wantType: &mixer.MemoryCache{}},
		{name: "empty type", config: &mixer.CacheConfig{}, wantType: &mixer.MemoryCache{}},
		{name: "memory", config: &mixer.CacheConfig{Type: mixer.CacheTypeMemory, Memory: &mixer.MemoryCacheConfig{MaxSize: 5}}, wantType: &mixer.MemoryCache{}},
		{name: "none", config: &mixer.CacheConfig{Type: mixer.CacheTypeNone}, wantType: nil},
		{name: "nats without config", config: &mixer.CacheConfig{Type: mixer.CacheTypeNATS}, wantErr: mixer.ErrNATSConfigRequired},
		{name: "unsupported", config: &mixer.CacheConfig{Type: "redis"}, wantErr: mixer.ErrUnsupportedCacheType},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cache, err := mixer.NewCacheFromConfig(testCase.config)
			if testCase.wantErr != nil {
				require.ErrorIs(t, err, testCase.wantErr)

				return
			}

			require.NoError(t, err)

			if testCase.wantType == nil {
				assert.Nil(t, cache)

				return
			}

			assert.IsType(t, testCase.wantType, cache)
		})
	}
}

func TestDefaultCacheConfig(t *testing.T) {
	t.Parallel()

	config := mixer.DefaultCacheConfig()
	assert.Equal(t, mixer.CacheTypeMemory, config.Type)
	assert.Equal(t, 1000, config.Memory.MaxSize)
	assert.Equal(t, 5*time.Minute, config.Options.DefaultTTL)
}
