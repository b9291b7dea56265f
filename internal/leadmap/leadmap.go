// Package leadmap translates a source platform payload into a canonical
// lead record using a per-config field mapping.
package leadmap

import "strings"

// Map resolves each mapping entry as a dot-separated path into source.
// Fields whose path cannot be resolved are omitted from the result, never
// set to nil. Pure: source is not modified.
func Map(source map[string]any, mapping map[string]string) map[string]any {
	out := make(map[string]any, len(mapping))
	for field, path := range mapping {
		if value, ok := resolve(source, path); ok {
			out[field] = value
		}
	}
	return out
}

func resolve(source map[string]any, path string) (any, bool) {
	current := any(source)
	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
