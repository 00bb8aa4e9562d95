package config

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// node is one key of the schema. Sections have children; leaves have a type.
type node struct {
	typ      reflect.Type
	children map[string]*node
}

func (n *node) isLeaf() bool { return n.children == nil }

// schemaOf indexes a struct type by its yaml tags.
func schemaOf(t reflect.Type) *node {
	n := &node{children: make(map[string]*node)}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := keyName(f)
		if name == "" {
			continue
		}
		if f.Type.Kind() == reflect.Struct {
			n.children[name] = schemaOf(f.Type)
			continue
		}
		n.children[name] = &node{typ: f.Type}
	}
	return n
}

func keyName(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

var configSchema = schemaOf(reflect.TypeOf(Config{}))

// find resolves a dotted path against the schema.
func (n *node) find(path string) (*node, bool) {
	cur := n
	for _, part := range strings.Split(path, ".") {
		if cur.isLeaf() {
			return nil, false
		}
		next, ok := cur.children[part]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// treeOf renders a struct value as a nested map keyed by yaml names.
func treeOf(v reflect.Value) map[string]any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := keyName(f)
		if name == "" {
			continue
		}
		fv := v.Field(i)
		if f.Type.Kind() == reflect.Struct {
			out[name] = treeOf(fv)
			continue
		}
		out[name] = copyLeaf(fv.Interface())
	}
	return out
}

func copyLeaf(v any) any {
	switch x := v.(type) {
	case []string:
		return cloneStrings(x)
	case []any:
		out := make([]any, len(x))
		copy(out, x)
		return out
	default:
		return v
	}
}

func lookupTree(tree map[string]any, path string) (any, bool) {
	var cur any = tree
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// setTree replaces the leaf at path. Intermediate sections must exist.
func setTree(tree map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	m := tree
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}

// mergeTree overlays src onto dst, validating every key against schema.
// Keys are visited in sorted order so the first reported error is stable.
func mergeTree(dst, src map[string]any, schema *node, source, prefix string) error {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := src[k]
		path := joinPath(prefix, k)
		child, ok := schema.children[k]
		if !ok {
			return schemaErrorf(source, path, "unknown key")
		}
		if v == nil {
			continue
		}
		if !child.isLeaf() {
			sub, err := asSection(v, source, path)
			if err != nil {
				return err
			}
			next, ok := dst[k].(map[string]any)
			if !ok {
				next = make(map[string]any)
				dst[k] = next
			}
			if err := mergeTree(next, sub, child, source, path); err != nil {
				return err
			}
			continue
		}
		coerced, err := coerceLeaf(child.typ, v)
		if err != nil {
			return typeErrorf(source, path, "%v", err)
		}
		dst[k] = coerced
	}
	return nil
}

func asSection(v any, source, path string) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, typeErrorf(source, path, "section keys must be strings (got %v)", k)
			}
			out[ks] = val
		}
		return out, nil
	default:
		return nil, typeErrorf(source, path, "expected a section, got %s", describe(v))
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// coerceLeaf converts a decoded YAML value to the leaf's declared type.
func coerceLeaf(typ reflect.Type, v any) (any, error) {
	switch typ.Kind() {
	case reflect.String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %s", describe(v))
		}
		return s, nil
	case reflect.Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %s", describe(v))
		}
		return b, nil
	case reflect.Int, reflect.Int64:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			if n < math.MinInt || n > math.MaxInt {
				return nil, fmt.Errorf("int %d out of range", n)
			}
			return int(n), nil
		case uint64:
			if n > math.MaxInt {
				return nil, fmt.Errorf("int %d out of range", n)
			}
			return int(n), nil
		default:
			return nil, fmt.Errorf("expected int, got %s", describe(v))
		}
	case reflect.Float64:
		switch n := v.(type) {
		case float64:
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return nil, fmt.Errorf("float must be finite, got %v", n)
			}
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case uint64:
			return float64(n), nil
		default:
			return nil, fmt.Errorf("expected float, got %s", describe(v))
		}
	case reflect.Slice:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected list, got %s", describe(v))
		}
		out := reflect.MakeSlice(typ, 0, len(items))
		for i, item := range items {
			c, err := coerceLeaf(typ.Elem(), item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = reflect.Append(out, reflect.ValueOf(c).Convert(typ.Elem()))
		}
		return out.Interface(), nil
	default:
		return nil, fmt.Errorf("unsupported leaf type %s", typ)
	}
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("string %q", v)
	case bool:
		return "bool"
	case int, int64, uint64:
		return "int"
	case float64:
		return "float"
	case []any:
		return "list"
	case map[string]any, map[any]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}
