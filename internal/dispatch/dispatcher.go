package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"rlrun/internal/config"
	"rlrun/internal/registry"
	"rlrun/internal/seed"
	"rlrun/internal/trace"
)

// Stage names a step of the dispatch sequence. They prefix user-facing
// failure messages.
type Stage string

const (
	StageMode      Stage = "run mode"
	StageResolve   Stage = "resolve config"
	StageSeed      Stage = "apply seed"
	StageLookup    Stage = "lookup trainer"
	StageConstruct Stage = "construct trainer"
	StageTrain     Stage = "train"
	StageEvaluate  Stage = "evaluate"
)

// Result describes a dispatch. On failure Stage names the step that failed.
type Result struct {
	Mode    Mode
	Trainer string
	Seed    uint64
	Config  *config.ExperimentConfig
	Stage   Stage
}

// Dispatcher resolves an experiment, seeds the process and runs the
// configured trainer.
type Dispatcher struct {
	Registry *registry.Registry
	Defaults config.Config
	Seeder   *seed.Controller
	Logger   *slog.Logger
	Sink     trace.Sink
}

// New returns a dispatcher over reg with the standard schema defaults and the
// process generators.
func New(reg *registry.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{
		Registry: reg,
		Defaults: config.Default(),
		Seeder:   seed.NewController(logger),
		Logger:   logger,
		Sink:     trace.NopSink{},
	}
}

// Run executes one dispatch: validate mode, resolve configuration, apply the
// seed, look up and construct the trainer, then invoke Train or Evaluate.
//
// There are no retries. Errors from Train and Evaluate are returned as is;
// every other failure is one of the typed errors of config, seed or this
// package.
func (d *Dispatcher) Run(ctx context.Context, mode Mode, experimentPaths string, overrides []string) (Result, error) {
	res := Result{Mode: mode}
	log := d.logger()

	if err := mode.Validate(); err != nil {
		return d.fail(res, StageMode, err)
	}

	cfg, err := config.Resolve(d.Defaults, experimentPaths, overrides)
	if err != nil {
		return d.fail(res, StageResolve, err)
	}
	res.Config = cfg
	res.Trainer = cfg.TrainerName()
	log = log.With("trainer", res.Trainer, "config_hash", cfg.Fingerprint())
	log.Info("configuration resolved", "mode", string(mode), "overrides", len(overrides)/2)
	if log.Enabled(ctx, slog.LevelDebug) {
		if b, err := cfg.YAML(); err == nil {
			log.Debug("resolved configuration", "yaml", string(b))
		}
	}
	d.record(trace.Event{Kind: trace.EventConfigResolved})

	seeder := d.Seeder
	if seeder == nil {
		seeder = seed.NewController(log)
	}
	s, err := seeder.Apply(cfg)
	if err != nil {
		return d.fail(res, StageSeed, err)
	}
	res.Seed = s
	log.Info("seed applied", "seed", s)
	d.record(trace.Event{Kind: trace.EventSeedApplied, Seed: &s})

	factory, ok := d.Registry.Get(res.Trainer)
	if !ok {
		return d.fail(res, StageLookup, &UnknownTrainerError{Name: res.Trainer, Available: d.Registry.Names()})
	}
	d.record(trace.Event{Kind: trace.EventTrainerResolved, Trainer: res.Trainer})

	trainer, err := factory(cfg)
	if err == nil && trainer == nil {
		err = errors.New("factory returned a nil trainer")
	}
	if err != nil {
		return d.fail(res, StageConstruct, &ConstructError{Trainer: res.Trainer, Err: err})
	}
	d.record(trace.Event{Kind: trace.EventTrainerConstructed, Trainer: res.Trainer})

	switch mode {
	case ModeTrain:
		d.record(trace.Event{Kind: trace.EventTrainStarted, Trainer: res.Trainer})
		log.Info("training started")
		if err := trainer.Train(ctx); err != nil {
			return d.fail(res, StageTrain, err)
		}
	case ModeEval:
		d.record(trace.Event{Kind: trace.EventEvaluateStarted, Trainer: res.Trainer})
		log.Info("evaluation started")
		if err := trainer.Evaluate(ctx); err != nil {
			return d.fail(res, StageEvaluate, err)
		}
	}

	d.record(trace.Event{Kind: trace.EventRunCompleted, Trainer: res.Trainer})
	log.Info("run completed", "mode", string(mode))
	return res, nil
}

func (d *Dispatcher) fail(res Result, stage Stage, err error) (Result, error) {
	res.Stage = stage
	d.record(trace.Event{Kind: trace.EventRunFailed, Trainer: res.Trainer, Stage: string(stage), Reason: ReasonCode(stage, err)})
	d.logger().Error("run failed", "stage", string(stage), "trainer", res.Trainer, "error", err)
	return res, err
}

func (d *Dispatcher) record(e trace.Event) {
	trace.SafeRecord(d.Sink, e)
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.Logger
}

// ReasonCode maps a failure at stage to a stable code for traces and run
// records. The stage decides the code; the error only refines it within the
// resolve stage.
func ReasonCode(stage Stage, err error) string {
	if err == nil {
		return ""
	}
	switch stage {
	case StageMode:
		return "InvalidRunMode"
	case StageResolve:
		switch {
		case errors.Is(err, config.ErrNotFound):
			return "ConfigNotFound"
		case errors.Is(err, config.ErrParse):
			return "ConfigParse"
		case errors.Is(err, config.ErrSchema):
			return "ConfigSchema"
		case errors.Is(err, config.ErrType):
			return "ConfigType"
		case errors.Is(err, config.ErrImmutable):
			return "ImmutableConfig"
		}
		return "ConfigError"
	case StageSeed:
		return "SeedApplication"
	case StageLookup:
		return "UnknownTrainer"
	case StageConstruct:
		return "ConstructFailed"
	case StageTrain, StageEvaluate:
		return "TrainerError"
	}
	return "InternalError"
}

// Describe formats err as "<stage>: <cause>".
func Describe(stage Stage, err error) string {
	if stage == "" {
		return err.Error()
	}
	return fmt.Sprintf("%s: %v", stage, err)
}
