// Package mixer defines the public types of the Mixer API client: the Client
// and Provider interfaces, request and response types, configuration, errors,
// response caching and HTTP interceptors.
//
// Concrete clients are built with the mixerclient package. This package holds
// what callers and alternative implementations program against.
//
// # Requests
//
// Every request is composed from three layers, later ones winning:
//
//  1. the defaults of the installed Provider, usually auth headers;
//  2. the method, the URL built from the versioned API base and the path,
//     the client's User-Agent header and the JSON flag;
//  3. the RequestOptions passed by the caller.
//
// Nested maps such as Headers merge key by key. If the request fails and a
// Provider is installed, the Provider decides the outcome through
// HandleResponseError.
//
// # URLs
//
// API base URLs are registered per version. Versions are matched
// case-insensitively and unknown versions resolve to "v1".
package mixer
