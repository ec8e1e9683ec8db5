package commands

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/zapdos26/client-node/internal/auth"
	"github.com/zapdos26/client-node/pkg/mixer"
	"github.com/zapdos26/client-node/pkg/mixerclient"
	"github.com/zapdos26/client-node/pkg/mixerlog"
)

// buildClientConfig turns the CLI configuration into a client configuration.
func buildClientConfig(config *Config) *mixer.Config {
	clientConfig := &mixer.Config{
		APIURL:       config.APIURL,
		APIv2URL:     config.APIv2URL,
		PublicURL:    config.PublicURL,
		AccessToken:  config.Token,
		RefreshToken: config.RefreshToken,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes:       config.Scopes,
		RateLimit:    config.RateLimit,
		Debug:        viper.GetBool("verbose"),
		Logger:       newLogger(config),
	}

	if config.TokenExpiresAt != nil {
		clientConfig.TokenExpiresAt = *config.TokenExpiresAt
	}

	if config.ClientID != "" {
		clientConfig.TokenPersister = NewConfigPersister()
	}

	switch mixer.CacheType(config.Cache) {
	case "":
	case mixer.CacheTypeNATS:
		clientConfig.Cache = &mixer.CacheConfig{
			Type: mixer.CacheTypeNATS,
			NATS: &mixer.NATSKVConfig{URL: config.NATSURL},
		}
	default:
		clientConfig.Cache = &mixer.CacheConfig{Type: mixer.CacheType(config.Cache)}
	}

	return clientConfig
}

// newLogger logs to stderr, at debug level with --verbose.
func newLogger(config *Config) *mixerlog.Logger {
	level := config.LogLevel
	if viper.GetBool("verbose") {
		level = "debug"
	}

	if level == "" {
		level = "warn"
	}

	return mixerlog.New(mixerlog.Config{
		Level:   level,
		Format:  mixerlog.FormatConsole,
		NoColor: config.NoColor,
	}, "mixer-cli", os.Stderr)
}

// CreateClient creates a client from the current configuration.
func CreateClient() (mixer.Client, error) {
	return newClient(buildClientConfig(loadConfig()))
}

func newClient(clientConfig *mixer.Config) (mixer.Client, error) {
	client, err := mixerclient.New(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// oauthProvider returns the client's OAuth provider, if it has one.
func oauthProvider(client mixer.Client) (*auth.OAuthProvider, bool) {
	provider, ok := client.Provider().(*auth.OAuthProvider)

	return provider, ok
}
