// Package registry maps trainer names to trainer factories.
//
// The registry is an explicit object, not a package-level singleton. Trainer
// packages contribute a Registration at startup (see Module) and the
// dispatcher looks trainers up by the configured name without importing any of
// them.
//
// Concurrency: registration happens once during startup and lookups follow.
// Calling Register concurrently with Get is unsupported; no locking is done.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"rlrun/internal/config"
)

var (
	ErrDuplicateTrainer    = errors.New("trainer already registered")
	ErrInvalidRegistration = errors.New("invalid trainer registration")
)

// Trainer owns the training and evaluation loops for one algorithm.
//
// Errors returned by Train and Evaluate are implementation-defined; callers
// propagate them without interpretation.
type Trainer interface {
	Train(ctx context.Context) error
	Evaluate(ctx context.Context) error
}

// Factory constructs a Trainer from a resolved configuration.
type Factory func(cfg *config.ExperimentConfig) (Trainer, error)

// Registration pairs a trainer name with its factory.
type Registration struct {
	Name    string
	Factory Factory
}

type Registry struct {
	factories map[string]Factory
}

func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a trainer under name.
//
// Re-registering a name is rejected with ErrDuplicateTrainer; the first
// registration stays in place.
func (r *Registry) Register(name string, f Factory) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidRegistration)
	}
	if f == nil {
		return fmt.Errorf("%w: nil factory for %q", ErrInvalidRegistration, name)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTrainer, name)
	}
	r.factories[name] = f
	return nil
}

// Get returns the factory registered under name, or (nil, false).
func (r *Registry) Get(name string) (Factory, bool) {
	if r == nil {
		return nil, false
	}
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered trainer names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Install registers every registration in order and stops at the first
// failure.
func (r *Registry) Install(regs ...Registration) error {
	for _, reg := range regs {
		if err := r.Register(reg.Name, reg.Factory); err != nil {
			return err
		}
	}
	return nil
}
