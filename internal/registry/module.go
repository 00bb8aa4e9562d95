package registry

import (
	"sort"

	"go.uber.org/fx"
)

// TrainersGroup is the fx value group trainer packages contribute to.
const TrainersGroup = `group:"trainers"`

// Provide returns an fx option contributing one trainer registration.
// Trainer packages expose the result as their Module.
func Provide(name string, f Factory) fx.Option {
	return fx.Provide(
		fx.Annotate(
			func() Registration { return Registration{Name: name, Factory: f} },
			fx.ResultTags(TrainersGroup),
		),
	)
}

// Params collects every registration contributed to the trainers group.
type Params struct {
	fx.In

	Registrations []Registration `group:"trainers"`
}

// FromGroup builds a registry from the contributed registrations. Group
// order is not specified by fx, so registrations are installed by name to
// keep duplicate reporting deterministic.
func FromGroup(p Params) (*Registry, error) {
	regs := append([]Registration(nil), p.Registrations...)
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].Name < regs[j].Name })
	r := New()
	if err := r.Install(regs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Module provides *Registry built from the trainers group.
var Module = fx.Module("registry", fx.Provide(FromGroup))
