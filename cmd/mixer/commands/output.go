package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/zapdos26/client-node/internal/constants"
)

// writeStructured encodes v as JSON or YAML.
func writeStructured(out io.Writer, format string, v any) error {
	if format == constants.FormatYAML {
		encoder := yaml.NewEncoder(out)

		err := encoder.Encode(v)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}

		return encoder.Close()
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// writeBody renders an API response body. Non-JSON bodies are written as is.
func writeBody(out io.Writer, format string, body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var value any

	err := decoder.Decode(&value)
	if err != nil {
		_, err = out.Write(body)

		return err //nolint:wrapcheck // passthrough of the caller's writer
	}

	switch format {
	case constants.FormatYAML:
		// YAML gets plain numbers rather than json.Number strings.
		var plain any

		_ = json.Unmarshal(body, &plain)

		return writeStructured(out, format, plain)
	case constants.FormatJSON:
		return writeStructured(out, format, value)
	default:
		return writeTable(out, value)
	}
}

// writeTable renders an object as property/value rows and an array of
// objects as one row per element with the union of keys as columns.
func writeTable(out io.Writer, value any) error {
	table := tablewriter.NewWriter(out)

	switch v := value.(type) {
	case map[string]any:
		table.Header("Property", "Value")

		for _, key := range sortedKeys(v) {
			err := table.Append([]string{key, formatCell(v[key])})
			if err != nil {
				return fmt.Errorf("failed to append row: %w", err)
			}
		}
	case []any:
		columns := unionKeys(v)
		if len(columns) == 0 {
			table.Header("Value")

			for _, item := range v {
				err := table.Append([]string{formatCell(item)})
				if err != nil {
					return fmt.Errorf("failed to append row: %w", err)
				}
			}

			break
		}

		header := make([]any, len(columns))
		for i, column := range columns {
			header[i] = column
		}

		table.Header(header...)

		for _, item := range v {
			object, _ := item.(map[string]any)

			row := make([]string, len(columns))
			for i, column := range columns {
				row[i] = formatCell(object[column])
			}

			err := table.Append(row)
			if err != nil {
				return fmt.Errorf("failed to append row: %w", err)
			}
		}
	default:
		_, err := fmt.Fprintln(out, formatCell(v))

		return err //nolint:wrapcheck // passthrough of the caller's writer
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// formatCell prints scalars plainly and nested values as compact JSON.
func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return strings.TrimSpace(string(data))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func unionKeys(items []any) []string {
	seen := make(map[string]any)

	for _, item := range items {
		if object, ok := item.(map[string]any); ok {
			for k := range object {
				seen[k] = nil
			}
		}
	}

	return sortedKeys(seen)
}
