// Package seed applies the configured seed to every process-wide generator.
package seed

import (
	"errors"
	"fmt"
	"log/slog"

	"rlrun/internal/config"
	"rlrun/internal/prng"
)

var ErrSeedApplication = errors.New("seed application failed")

// ApplicationError reports why a seed could not be applied. Target is empty
// when the seed itself is missing or malformed.
type ApplicationError struct {
	Path   string
	Target string
	Msg    string
}

func (e *ApplicationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Target != "" {
		return fmt.Sprintf("%s: %s for generator %q: %s", ErrSeedApplication, e.Path, e.Target, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrSeedApplication, e.Path, e.Msg)
}

func (e *ApplicationError) Unwrap() error { return ErrSeedApplication }

// Source is anything the seed can be read from by dotted path.
// *config.ExperimentConfig satisfies it.
type Source interface {
	Lookup(path string) (any, bool)
}

// Target is a seedable generator.
type Target interface {
	Name() string
	MaxSeed() uint64
	Seed(seed uint64)
}

// Controller seeds its targets, in order, from config.SeedPath.
type Controller struct {
	Targets []Target
	Logger  *slog.Logger
}

// NewController returns a controller over the process generators: the
// general-purpose generator first, then the array generator.
func NewController(logger *slog.Logger) *Controller {
	return &Controller{
		Targets: []Target{prng.Global(), prng.GlobalArray()},
		Logger:  logger,
	}
}

// Apply reads the seed and applies it to every target.
//
// The seed is validated against every target before any is touched, so a
// failure leaves all generators unchanged.
func (c *Controller) Apply(src Source) (uint64, error) {
	raw, ok := src.Lookup(config.SeedPath)
	if !ok {
		return 0, &ApplicationError{Path: config.SeedPath, Msg: "seed is not set"}
	}
	n, ok := raw.(int)
	if !ok {
		return 0, &ApplicationError{Path: config.SeedPath, Msg: fmt.Sprintf("seed must be an integer, got %T", raw)}
	}
	if n < 0 {
		return 0, &ApplicationError{Path: config.SeedPath, Msg: fmt.Sprintf("seed %d is negative", n)}
	}
	s := uint64(n)
	for _, t := range c.Targets {
		if s > t.MaxSeed() {
			return 0, &ApplicationError{
				Path:   config.SeedPath,
				Target: t.Name(),
				Msg:    fmt.Sprintf("seed %d exceeds maximum %d", s, t.MaxSeed()),
			}
		}
	}
	for _, t := range c.Targets {
		t.Seed(s)
	}
	if c.Logger != nil {
		c.Logger.Debug("seeded generators", "seed", s, "targets", len(c.Targets))
	}
	return s, nil
}
