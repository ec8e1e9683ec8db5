package mixer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// RequestOptions describes a single outbound API request.
//
// The same type is used for the fully composed request handed to a
// RequestRunner and for the partial options supplied by providers and
// callers. Zero-valued fields are treated as absent when partial options are
// merged, which is why JSON is a pointer.
type RequestOptions struct {
	// Method is the HTTP verb. It is not validated.
	Method string `json:"method,omitempty"`
	// URL is the absolute target URL. Callers normally leave it empty and let
	// the client build it from the API base and the request path.
	URL string `json:"url,omitempty"`
	// Headers are merged key by key across sources.
	Headers map[string]string `json:"headers,omitempty"`
	// Query is encoded onto the URL by the runner.
	Query map[string]any `json:"qs,omitempty"`
	// Body is the request payload. It is JSON encoded when JSON is true,
	// otherwise strings and byte slices are sent as is.
	Body any `json:"body,omitempty"`
	// Form is sent as an application/x-www-form-urlencoded body and takes
	// precedence over Body.
	Form map[string]string `json:"form,omitempty"`
	// JSON marks the request and response as JSON.
	JSON *bool `json:"json,omitempty"`
}

// IsJSON reports whether the request is flagged as JSON.
func (o *RequestOptions) IsJSON() bool {
	return o != nil && o.JSON != nil && *o.JSON
}

// Clone returns a copy whose header, query and form maps can be modified
// without affecting the original.
func (o *RequestOptions) Clone() *RequestOptions {
	if o == nil {
		return nil
	}

	out := *o

	if o.Headers != nil {
		out.Headers = make(map[string]string, len(o.Headers))
		for k, v := range o.Headers {
			out.Headers[k] = v
		}
	}

	if o.Query != nil {
		out.Query = make(map[string]any, len(o.Query))
		for k, v := range o.Query {
			out.Query[k] = v
		}
	}

	if o.Form != nil {
		out.Form = make(map[string]string, len(o.Form))
		for k, v := range o.Form {
			out.Form[k] = v
		}
	}

	if o.JSON != nil {
		flag := *o.JSON
		out.JSON = &flag
	}

	return &out
}

// Bool returns a pointer to b, for use with RequestOptions.JSON.
func Bool(b bool) *bool {
	return &b
}

// Response is the result of a successful request.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	// Request is the composed request that produced this response.
	Request *RequestOptions
}

// ResponseOf is a Response whose JSON body has been decoded into Data.
type ResponseOf[T any] struct {
	*Response

	Data T
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Body) == 0 {
		return nil
	}

	err := json.Unmarshal(r.Body, v)
	if err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}

	return nil
}

// RequestRunner performs the network call for a composed request.
type RequestRunner interface {
	Run(ctx context.Context, req *RequestOptions) (*Response, error)
}

// RunnerFunc adapts an ordinary function to the RequestRunner interface.
type RunnerFunc func(ctx context.Context, req *RequestOptions) (*Response, error)

// Run calls f(ctx, req).
func (f RunnerFunc) Run(ctx context.Context, req *RequestOptions) (*Response, error) {
	return f(ctx, req)
}

// Requester issues API requests relative to a versioned API base URL.
type Requester interface {
	Request(ctx context.Context, method, path string, data *RequestOptions, apiVersion string) (*Response, error)
}

// Do issues a request through r and decodes the JSON response body into T.
func Do[T any](ctx context.Context, r Requester, method, path string, data *RequestOptions, apiVersion string) (*ResponseOf[T], error) {
	resp, err := r.Request(ctx, method, path, data, apiVersion)
	if err != nil {
		return nil, err
	}

	out := &ResponseOf[T]{Response: resp}

	err = resp.Decode(&out.Data)
	if err != nil {
		return nil, err
	}

	return out, nil
}
