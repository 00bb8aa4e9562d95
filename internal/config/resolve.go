package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Resolve merges schemaDefaults, the experiment file(s) and overrides into a
// frozen ExperimentConfig.
//
// Precedence, lowest first:
//  1. schemaDefaults
//  2. each file in experimentPaths (comma separated), left to right
//  3. the task file named by BASE_TASK_CONFIG_PATH, merged into TASK_CONFIG
//  4. overrides, in order
//
// An empty experimentPaths resolves defaults and overrides only. Resolve has
// no side effects besides reading the named files.
func Resolve(schemaDefaults Config, experimentPaths string, overrides []string) (*ExperimentConfig, error) {
	pairs, err := ParseOverrides(overrides)
	if err != nil {
		return nil, err
	}

	tree := treeOf(reflect.ValueOf(schemaDefaults.clone()))

	for _, path := range SplitPaths(experimentPaths) {
		doc, err := readDocument(path)
		if err != nil {
			return nil, err
		}
		if err := mergeTree(tree, doc, configSchema, path, ""); err != nil {
			return nil, err
		}
	}

	if taskPath := taskConfigPath(tree, pairs); taskPath != "" {
		doc, err := readDocument(taskPath)
		if err != nil {
			return nil, err
		}
		section := configSchema.children["TASK_CONFIG"]
		taskTree, _ := tree["TASK_CONFIG"].(map[string]any)
		if err := mergeTree(taskTree, doc, section, taskPath, "TASK_CONFIG"); err != nil {
			return nil, err
		}
	}

	for _, o := range pairs {
		if err := o.apply(tree); err != nil {
			return nil, err
		}
	}
	if len(overrides) > 0 {
		trailing, _ := tree["CMD_TRAILING_OPTS"].([]string)
		tree["CMD_TRAILING_OPTS"] = append(cloneStrings(trailing), overrides...)
	}

	values, err := decode(tree)
	if err != nil {
		return nil, err
	}
	return freeze(values)
}

// taskConfigPath returns the effective BASE_TASK_CONFIG_PATH. An override of
// that key takes effect before the task file is loaded.
func taskConfigPath(tree map[string]any, pairs []Override) string {
	path, _ := tree["BASE_TASK_CONFIG_PATH"].(string)
	for _, o := range pairs {
		if o.Key == "BASE_TASK_CONFIG_PATH" {
			path = unquote(o.Value)
		}
	}
	return path
}

// decode converts the merged tree into the typed schema. Every key must be
// consumed and no implicit conversions are allowed.
func decode(tree map[string]any) (Config, error) {
	var out Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: false,
		TagName:          "mapstructure",
		Result:           &out,
	})
	if err != nil {
		return Config{}, &Error{Kind: ErrType, Msg: "build decoder", Err: err}
	}
	if err := dec.Decode(tree); err != nil {
		return Config{}, &Error{Kind: ErrType, Msg: "decode resolved tree", Err: err}
	}
	return out, nil
}
