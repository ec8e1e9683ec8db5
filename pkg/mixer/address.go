package mixer

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// queryUnescaper undoes the escaping url.QueryEscape applies to characters
// that query-string component encoding leaves alone.
var queryUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// BuildAddress joins base and path with exactly one slash and appends query,
// if any, after a literal "?".
//
// One trailing slash is stripped from base and one leading slash from path;
// nothing else is normalised. A string query is appended verbatim. Object
// queries (url.Values, map[string]string, map[string][]string,
// map[string]any) are encoded as sorted key=value pairs with spaces encoded
// as %20.
func BuildAddress(base, path string, query any) string {
	base = strings.TrimSuffix(base, "/")
	path = strings.TrimPrefix(path, "/")

	address := base + "/" + path

	qs := EncodeQuery(query)
	if qs != "" {
		address += "?" + qs
	}

	return address
}

// EncodeQuery serialises query into a query string without the leading "?".
// A string is returned unchanged and unsupported types encode to "".
func EncodeQuery(query any) string {
	switch q := query.(type) {
	case nil:
		return ""
	case string:
		return q
	case url.Values:
		return encodeMultiValues(q)
	case map[string][]string:
		return encodeMultiValues(q)
	case map[string]string:
		pairs := make([]string, 0, len(q))
		for _, key := range sortedKeys(q) {
			pairs = append(pairs, escapeQuery(key)+"="+escapeQuery(q[key]))
		}

		return strings.Join(pairs, "&")
	case map[string]any:
		pairs := make([]string, 0, len(q))
		for _, key := range sortedKeys(q) {
			pairs = append(pairs, encodeAnyValue(key, q[key])...)
		}

		return strings.Join(pairs, "&")
	default:
		return ""
	}
}

func encodeMultiValues(values map[string][]string) string {
	pairs := make([]string, 0, len(values))

	for _, key := range sortedKeys(values) {
		for _, v := range values[key] {
			pairs = append(pairs, escapeQuery(key)+"="+escapeQuery(v))
		}
	}

	return strings.Join(pairs, "&")
}

// encodeAnyValue encodes one key. Slices repeat the key once per element and
// nested objects encode as an empty value.
func encodeAnyValue(key string, value any) []string {
	k := escapeQuery(key)

	rv := reflect.ValueOf(value)
	if value != nil && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		if _, isBytes := value.([]byte); !isBytes {
			pairs := make([]string, 0, rv.Len())
			for i := range rv.Len() {
				pairs = append(pairs, k+"="+escapeQuery(stringifyPrimitive(rv.Index(i).Interface())))
			}

			return pairs
		}
	}

	return []string{k + "=" + escapeQuery(stringifyPrimitive(value))}
}

func stringifyPrimitive(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

func escapeQuery(s string) string {
	return queryUnescaper.Replace(url.QueryEscape(s))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
