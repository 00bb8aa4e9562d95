package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PathSeparator separates several experiment files in one path argument.
const PathSeparator = ","

// SplitPaths splits a comma-separated list of experiment files, dropping
// empty entries.
func SplitPaths(paths string) []string {
	var out []string
	for _, p := range strings.Split(paths, PathSeparator) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// readDocument reads a YAML mapping from path.
//
// An empty document yields an empty mapping. Only the first document of a
// multi-document stream is considered.
func readDocument(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		msg := "cannot read file"
		if errors.Is(err, fs.ErrNotExist) {
			msg = "no such file"
		}
		return nil, &Error{Kind: ErrNotFound, Source: path, Msg: msg, Err: err}
	}
	return parseDocument(path, b)
}

func parseDocument(source string, b []byte) (map[string]any, error) {
	var doc map[string]any
	dec := yaml.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, &Error{Kind: ErrParse, Source: source, Err: err}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
