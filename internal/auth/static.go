// Package auth provides the authentication providers installed on a Mixer
// client.
package auth

import (
	"context"

	"github.com/zapdos26/client-node/pkg/mixer"
)

// StaticTokenProvider sends a fixed bearer token. It cannot refresh, so every
// failure is returned unchanged.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a provider for token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// RequestDefaults implements mixer.Provider.
func (p *StaticTokenProvider) RequestDefaults() *mixer.RequestOptions {
	return &mixer.RequestOptions{
		Headers: map[string]string{"Authorization": "Bearer " + p.token},
	}
}

// HandleResponseError implements mixer.Provider.
func (p *StaticTokenProvider) HandleResponseError(_ context.Context, err error, _ *mixer.RequestOptions) (*mixer.Response, error) {
	return nil, err
}
