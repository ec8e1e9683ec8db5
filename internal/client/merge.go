package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"slices"

	"github.com/zapdos26/client-node/pkg/mixer"
)

// mergeRequestOptions deep merges sources left to right into one request.
//
// Objects merge key by key and later sources win on conflicting scalars,
// including explicit nulls. Arrays from a later source are appended to the
// earlier ones. Header names are canonicalised per source so a later source
// wins regardless of case. Nil sources are skipped. Bodies that are not JSON
// objects replace earlier bodies verbatim so raw payloads survive the merge
// untouched; readers are drained once so the result can be sent again.
func mergeRequestOptions(sources ...any) (*mixer.RequestOptions, error) {
	merged := make(map[string]any)

	var bodies []any

	for _, source := range sources {
		fields, body, err := decodeSource(source)
		if err != nil {
			return nil, err
		}

		if body != nil {
			bodies = append(bodies, body)
		}

		deepMerge(merged, fields)
	}

	var out mixer.RequestOptions

	err := roundTrip(merged, &out)
	if err != nil {
		return nil, fmt.Errorf("decoding merged request options: %w", err)
	}

	out.Body, err = mergeBodies(bodies)
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// decodeSource splits a source into its fields without the body, decoded to
// plain JSON values, and the body itself.
func decodeSource(source any) (map[string]any, any, error) {
	var (
		body    any
		payload any
	)

	switch src := source.(type) {
	case nil:
		return nil, nil, nil
	case *mixer.RequestOptions:
		if src == nil {
			return nil, nil, nil
		}

		stripped := *src
		body, stripped.Body = src.Body, nil
		payload = &stripped
	case map[string]any:
		stripped := make(map[string]any, len(src))
		for key, value := range src {
			if key == "body" {
				body = value

				continue
			}

			stripped[key] = value
		}

		payload = stripped
	default:
		return nil, nil, fmt.Errorf("%w: %T", errUnsupportedSource, source)
	}

	body, err := bufferBody(body)
	if err != nil {
		return nil, nil, err
	}

	var fields map[string]any

	err = roundTrip(payload, &fields)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding request options: %w", err)
	}

	if headers, ok := fields["headers"].(map[string]any); ok {
		canonical := make(map[string]any, len(headers))
		for key, value := range headers {
			canonical[http.CanonicalHeaderKey(key)] = value
		}

		fields["headers"] = canonical
	}

	return fields, body, nil
}

// bufferBody reads a streaming body into memory.
func bufferBody(body any) (any, error) {
	reader, ok := body.(io.Reader)
	if !ok {
		return body, nil
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}

	return data, nil
}

// deepMerge merges src into dst. Both hold decoded JSON values only.
func deepMerge(dst, src map[string]any) {
	for key, value := range src {
		switch v := value.(type) {
		case map[string]any:
			if existing, ok := dst[key].(map[string]any); ok {
				deepMerge(existing, v)

				continue
			}
		case []any:
			if existing, ok := dst[key].([]any); ok {
				dst[key] = append(slices.Clip(existing), v...)

				continue
			}
		}

		dst[key] = value
	}
}

func mergeBodies(bodies []any) (any, error) {
	// Only the trailing run of object bodies takes part in the merge; anything
	// before a raw body was replaced by it.
	start := len(bodies)
	for start > 0 && isJSONObject(bodies[start-1]) {
		start--
	}

	objects := bodies[start:]

	switch {
	case len(bodies) == 0:
		return nil, nil
	case len(objects) == 0:
		return bodies[len(bodies)-1], nil
	case len(objects) == 1:
		return objects[0], nil
	}

	merged := make(map[string]any)

	for _, object := range objects {
		var fields map[string]any

		err := roundTrip(object, &fields)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		deepMerge(merged, fields)
	}

	return merged, nil
}

// roundTrip converts v to out through JSON, keeping numbers exact.
func roundTrip(v, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	return decoder.Decode(out)
}

func isJSONObject(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}

		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		return rv.Type().Key().Kind() == reflect.String
	case reflect.Struct:
		return true
	default:
		return false
	}
}
