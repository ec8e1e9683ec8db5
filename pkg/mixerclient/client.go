package mixerclient

import (
	"fmt"
	"strings"

	"github.com/zapdos26/client-node/internal/client"
	"github.com/zapdos26/client-node/pkg/mixer"
)

// New creates a new Mixer API client from config.
func New(config *mixer.Config) (mixer.Client, error) {
	if config == nil {
		return nil, mixer.ErrConfigRequired
	}

	config.APIURL = normalizeURL(config.APIURL)
	config.APIv2URL = normalizeURL(config.APIv2URL)
	config.PublicURL = normalizeURL(config.PublicURL)

	c, err := client.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithEndpoint creates an unauthenticated client against a custom v1
// API base URL.
func NewWithEndpoint(apiURL string) (mixer.Client, error) {
	return New(&mixer.Config{
		APIURL: apiURL,
	})
}

// NewWithToken creates a client that sends token as a static bearer token.
func NewWithToken(token string) (mixer.Client, error) {
	return New(&mixer.Config{
		AccessToken: token,
	})
}

// NewWithOAuth creates a client authenticated as an OAuth client. tokens
// seeds the provider and may be empty when the caller completes an
// authorization code exchange later.
func NewWithOAuth(clientID, clientSecret string, tokens mixer.Tokens) (mixer.Client, error) {
	return New(&mixer.Config{
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		AccessToken:    tokens.AccessToken,
		RefreshToken:   tokens.RefreshToken,
		TokenExpiresAt: tokens.ExpiresAt,
	})
}

// NewWithRunner creates an unauthenticated client that dispatches every
// request through runner.
func NewWithRunner(runner mixer.RequestRunner) mixer.Client {
	return client.NewWithRunner(runner)
}

// normalizeURL trims trailing slashes and assumes https when the scheme is
// missing. Empty input stays empty.
func normalizeURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return ""
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	return raw
}
