package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"reflect"

	"gopkg.in/yaml.v3"
)

// ExperimentConfig is the resolved, read-only experiment configuration.
//
// It is safe to share by reference: every accessor returns a copy and Set
// always fails.
type ExperimentConfig struct {
	values      Config
	tree        map[string]any
	fingerprint string
}

func freeze(values Config) (*ExperimentConfig, error) {
	canonical, err := json.Marshal(values)
	if err != nil {
		return nil, &Error{Kind: ErrType, Msg: "fingerprint resolved config", Err: err}
	}
	sum := sha256.Sum256(canonical)
	return &ExperimentConfig{
		values:      values.clone(),
		tree:        treeOf(reflect.ValueOf(values)),
		fingerprint: hex.EncodeToString(sum[:]),
	}, nil
}

// Values returns a copy of the typed configuration.
func (c *ExperimentConfig) Values() Config {
	return c.values.clone()
}

// TrainerName is the registry key of the trainer to run.
func (c *ExperimentConfig) TrainerName() string {
	return c.values.TrainerName
}

// Lookup returns the value at a dotted path. Sections are returned as nested
// maps; the result is a copy.
func (c *ExperimentConfig) Lookup(path string) (any, bool) {
	v, ok := lookupTree(c.tree, path)
	if !ok {
		return nil, false
	}
	if m, isMap := v.(map[string]any); isMap {
		return deepCopy(m), true
	}
	return copyLeaf(v), true
}

// Set always fails: a resolved configuration cannot be modified.
func (c *ExperimentConfig) Set(path string, value any) error {
	return &Error{Kind: ErrImmutable, Key: path, Msg: "resolved configuration is read-only"}
}

// Fingerprint is the sha256 of the canonical encoding of the resolved values.
// Equal configurations have equal fingerprints.
func (c *ExperimentConfig) Fingerprint() string {
	return c.fingerprint
}

// Overrides returns the command line overrides recorded in CMD_TRAILING_OPTS.
func (c *ExperimentConfig) Overrides() []string {
	return cloneStrings(c.values.CmdTrailingOpts)
}

// YAML renders the resolved configuration in experiment-file form.
func (c *ExperimentConfig) YAML() ([]byte, error) {
	return yaml.Marshal(c.values)
}

func deepCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = deepCopy(sub)
			continue
		}
		out[k] = copyLeaf(v)
	}
	return out
}
