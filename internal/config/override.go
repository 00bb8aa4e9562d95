package config

import (
	"fmt"
	"reflect"
	"strconv"

	"gopkg.in/yaml.v3"
)

const overrideSource = "overrides"

// Override is one dotted-path assignment taken from the command line.
type Override struct {
	Key   string
	Value string
}

// ParseOverrides pairs a flat KEY VALUE token list.
func ParseOverrides(tokens []string) ([]Override, error) {
	if len(tokens)%2 != 0 {
		return nil, schemaErrorf(overrideSource, "", "expected KEY VALUE pairs, got %d tokens", len(tokens))
	}
	out := make([]Override, 0, len(tokens)/2)
	for i := 0; i < len(tokens); i += 2 {
		out = append(out, Override{Key: tokens[i], Value: tokens[i+1]})
	}
	return out, nil
}

// apply assigns the override to tree after checking the key and parsing the
// value to the leaf's declared type.
func (o Override) apply(tree map[string]any) error {
	leaf, ok := configSchema.find(o.Key)
	if !ok {
		return schemaErrorf(overrideSource, o.Key, "unknown key")
	}
	if !leaf.isLeaf() {
		return schemaErrorf(overrideSource, o.Key, "key names a section, not a value")
	}
	v, err := parseLiteral(leaf.typ, o.Value)
	if err != nil {
		return typeErrorf(overrideSource, o.Key, "%v", err)
	}
	setTree(tree, o.Key, v)
	return nil
}

// parseLiteral parses an override value.
//
// Grammar: YAML flow scalars and flow sequences (true, 42, 1e-4, [a, b]).
// String leaves take the token verbatim, minus one pair of surrounding quotes.
// Mappings are not accepted anywhere.
func parseLiteral(typ reflect.Type, raw string) (any, error) {
	if typ.Kind() == reflect.String {
		return unquote(raw), nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("invalid literal %q", raw)
	}
	if typ.Kind() == reflect.Slice && typ.Elem().Kind() == reflect.String {
		if items, ok := v.([]any); ok {
			for i, item := range items {
				if item == nil {
					continue
				}
				if _, isMap := item.(map[string]any); isMap {
					continue
				}
				if _, isList := item.([]any); isList {
					continue
				}
				items[i] = fmt.Sprint(item)
			}
		}
	}
	return coerceLeaf(typ, v)
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	switch {
	case s[0] == '"' && s[len(s)-1] == '"':
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	case s[0] == '\'' && s[len(s)-1] == '\'':
		return s[1 : len(s)-1]
	}
	return s
}
