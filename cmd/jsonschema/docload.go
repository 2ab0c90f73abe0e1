package main

import (
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/basilisklabs/jsonschema/internal/jsonio"
)

// loadDocument reads path and decodes it into the same `any` tree the
// jsonschema package expects, regardless of whether it's JSON or YAML.
// YAML support exists because Kubernetes-flavored JSON Schemas are
// routinely authored as YAML.
func loadDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isYAMLPath(path) {
		return decodeYAML(data)
	}
	decoded, _, err := jsonio.DecodeBytes(data, jsonio.Options{})
	return decoded, err
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// decodeYAML decodes YAML into the jsonschema `any` tree by round-tripping
// through JSON: yaml.v3 already maps scalars/sequences/mappings the way we
// need except for map keys, which it may produce as non-string types, so we
// normalize via a JSON re-encode/decode with json.Number preserved.
func decodeYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	normalized := normalizeYAML(v)
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	decoded, _, err := jsonio.DecodeBytes(encoded, jsonio.Options{})
	return decoded, err
}

func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[yamlKeyToString(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}

func yamlKeyToString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	b, err := json.Marshal(k)
	if err != nil {
		return ""
	}
	return strings.Trim(string(b), `"`)
}
