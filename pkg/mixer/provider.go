package mixer

import "context"

// Provider supplies authentication state for outbound requests and gets a
// chance to recover from failed ones.
type Provider interface {
	// RequestDefaults returns partial request options, typically auth
	// headers, that are merged underneath every request.
	RequestDefaults() *RequestOptions

	// HandleResponseError receives the error of a failed request together
	// with the composed request. It either resolves the failure, for example
	// by refreshing credentials and retrying, or returns an error.
	HandleResponseError(ctx context.Context, err error, req *RequestOptions) (*Response, error)
}

// ClientIDProvider is implemented by providers that operate with an OAuth
// client and can expose its identifier.
type ClientIDProvider interface {
	Provider

	ClientID() string
}

// ClientIDOf returns the client id exposed by p, or nil when p does not have
// that capability.
func ClientIDOf(p Provider) *string {
	cp, ok := p.(ClientIDProvider)
	if !ok {
		return nil
	}

	id := cp.ClientID()

	return &id
}
