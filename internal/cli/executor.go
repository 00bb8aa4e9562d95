package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"rlrun/internal/config"
	"rlrun/internal/dispatch"
	"rlrun/internal/registry"
	"rlrun/internal/runstate"
	"rlrun/internal/trace"
)

// StageInternal labels failures outside the dispatch sequence, such as a
// recovered panic.
const StageInternal dispatch.Stage = "internal"

// Deps are the collaborators Execute needs beyond the invocation.
type Deps struct {
	Registry *registry.Registry
	Logger   *slog.Logger
	// Defaults replaces the schema defaults when set.
	Defaults *config.Config
}

type CLIResult struct {
	ExitCode int
	Stage    dispatch.Stage
	RunID    string
	Dispatch dispatch.Result
}

// Execute runs one canonical invocation.
//
// Responsibilities:
//   - Reserve the trace file before dispatch and finalize it afterwards, even
//     on panic or failure.
//   - Record the run under StateDir when one is given.
//   - Translate the failing stage into a semantic exit code.
func Execute(ctx context.Context, inv CLIInvocation, deps Deps) (res CLIResult, execErr error) {
	res.ExitCode = ExitInternalError
	if deps.Registry == nil {
		res.Stage = StageInternal
		return res, errors.New("nil trainer registry")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	traceWriter, err := newTraceWriter(inv)
	if err != nil {
		res.ExitCode = ExitInternalError
		res.Stage = StageInternal
		return res, err
	}

	runs := startRunRecord(inv, logger)
	if runs != nil {
		res.RunID = runs.run.RunID
	}

	rec := trace.NewRecorder()
	d := dispatch.New(deps.Registry, logger)
	d.Sink = rec
	if deps.Defaults != nil {
		d.Defaults = *deps.Defaults
	}

	defer func() {
		if r := recover(); r != nil {
			execErr = fmt.Errorf("panic: %v", r)
			res.ExitCode = ExitInternalError
			res.Stage = StageInternal
			rec.Record(trace.Event{Kind: trace.EventRunFailed, Trainer: res.Dispatch.Trainer, Stage: string(StageInternal), Reason: "Panic"})
			logger.Error("run panicked", "panic", r)
		}
		configHash := ""
		if res.Dispatch.Config != nil {
			configHash = res.Dispatch.Config.Fingerprint()
		}
		logger.Debug("dispatch stages", "stages", rec.Kinds())
		tr := rec.Trace(configHash)
		if err := traceWriter.Finalize(tr); err != nil {
			logger.Warn("trace not written", "path", inv.Trace.Path, "error", err)
		} else if traceWriter.enabled {
			if h, err := tr.Hash(); err == nil {
				logger.Info("trace written", "path", inv.Trace.Path, "trace_hash", h)
			}
		}
		runs.finish(res, execErr, configHash)
	}()

	out, err := d.Run(ctx, inv.RunType, inv.ExpConfig, inv.Overrides)
	res.Dispatch = out
	res.Stage = out.Stage
	if err != nil {
		res.ExitCode = exitCodeForStage(out.Stage)
		return res, err
	}
	res.ExitCode = ExitSuccess
	return res, nil
}

func exitCodeForStage(stage dispatch.Stage) int {
	switch stage {
	case dispatch.StageMode:
		return ExitInvalidInvocation
	case dispatch.StageResolve, dispatch.StageSeed, dispatch.StageLookup:
		return ExitConfigError
	case dispatch.StageConstruct, dispatch.StageTrain, dispatch.StageEvaluate:
		return ExitTrainerFailure
	default:
		return ExitInternalError
	}
}

// runRecord tracks the persisted record of the current run. A nil
// *runRecord means run recording is off.
type runRecord struct {
	rec    *runstate.Recorder
	run    runstate.Run
	logger *slog.Logger
}

func startRunRecord(inv CLIInvocation, logger *slog.Logger) *runRecord {
	if inv.StateDir == "" {
		return nil
	}
	st, err := runstate.NewStore(inv.StateDir)
	if err != nil {
		logger.Warn("run records disabled", "error", err)
		return nil
	}
	rec := &runstate.Recorder{Store: st}
	run, err := rec.Start(runstate.Run{Mode: string(inv.RunType)})
	if err != nil {
		logger.Warn("run records disabled", "error", err)
		return nil
	}
	return &runRecord{rec: rec, run: run, logger: logger.With("run_id", run.RunID)}
}

func (r *runRecord) finish(res CLIResult, err error, configHash string) {
	if r == nil {
		return
	}
	run := r.run
	run.ConfigHash = configHash
	run.Trainer = res.Dispatch.Trainer
	if res.Dispatch.Config != nil && res.Stage != dispatch.StageSeed {
		s := res.Dispatch.Seed
		run.Seed = &s
	}
	var ferr error
	if err == nil {
		_, ferr = r.rec.Succeed(run)
	} else {
		code := dispatch.ReasonCode(res.Stage, err)
		if res.Stage == StageInternal {
			code = "Panic"
		}
		_, ferr = r.rec.Fail(run, string(res.Stage), code, err)
	}
	if ferr != nil {
		r.logger.Warn("run record not finalized", "error", ferr)
	}
}

type traceFileWriter struct {
	enabled bool
	path    string
}

func newTraceWriter(inv CLIInvocation) (*traceFileWriter, error) {
	if !inv.Trace.Enabled {
		return &traceFileWriter{enabled: false}, nil
	}
	if inv.Trace.Path == "" {
		return nil, fmt.Errorf("trace enabled but path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(inv.Trace.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	// Reserve the destination so even an aborted run leaves a valid trace.
	w := &traceFileWriter{enabled: true, path: inv.Trace.Path}
	return w, w.Finalize(trace.DispatchTrace{})
}

func (w *traceFileWriter) Finalize(t trace.DispatchTrace) error {
	if w == nil || !w.enabled {
		return nil
	}
	b, err := t.CanonicalJSON()
	if err != nil {
		return err
	}
	return runstate.WriteFileAtomic(w.path, b, 0o644)
}
