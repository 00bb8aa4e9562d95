// Package dispatch runs one experiment: it resolves the configuration, seeds
// the process generators, looks the trainer up in the registry and invokes
// Train or Evaluate exactly once.
//
// Failures carry the stage they happened in (Result.Stage) so callers can
// report "<stage>: <cause>" and pick an exit code.
package dispatch
