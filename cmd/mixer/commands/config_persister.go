package commands

import (
	"sync"
	"time"

	"github.com/zapdos26/client-node/pkg/mixer"
)

// ConfigPersister implements the mixer.TokenPersister interface by writing
// tokens to the CLI config file.
type ConfigPersister struct {
	mutex sync.Mutex
}

var _ mixer.TokenPersister = (*ConfigPersister)(nil)

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// UpdateTokens stores tokens obtained for clientID.
func (p *ConfigPersister) UpdateTokens(clientID string, tokens mixer.Tokens) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()

	if clientID != "" {
		config.ClientID = clientID
	}

	config.Token = tokens.AccessToken
	if tokens.RefreshToken != "" {
		config.RefreshToken = tokens.RefreshToken
	}

	config.TokenExpiresAt = nil
	if !tokens.ExpiresAt.IsZero() {
		expiresAt := tokens.ExpiresAt.UTC().Truncate(time.Second)
		config.TokenExpiresAt = &expiresAt
	}

	return saveConfigStruct(config)
}
