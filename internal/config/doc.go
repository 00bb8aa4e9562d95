// Package config resolves experiment configurations.
//
// A resolved configuration is built once per process from three layers, in
// increasing precedence:
//
//   - the typed schema defaults (Default)
//   - one or more YAML experiment files, plus an optional task file named by
//     BASE_TASK_CONFIG_PATH
//   - KEY VALUE overrides from the command line
//
// Unknown keys are rejected at every layer so that typos fail the run instead
// of silently falling back to defaults. The result is an ExperimentConfig,
// which cannot be modified after resolution.
package config
