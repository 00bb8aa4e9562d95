package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	icl "rlrun/internal/cli"
	"rlrun/internal/config"
	"rlrun/internal/registry"
	"rlrun/internal/runstate"
	"rlrun/internal/trainers/randomagent"
)

type scriptedTrainer struct {
	trainErr error
	panicMsg string
}

func (s scriptedTrainer) Train(context.Context) error {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.trainErr
}

func (s scriptedTrainer) Evaluate(context.Context) error { return nil }

func newRegistry(t *testing.T, regs ...registry.Registration) *registry.Registry {
	t.Helper()
	reg := registry.New()
	if err := reg.Install(append([]registry.Registration{{Name: randomagent.Name, Factory: randomagent.New}}, regs...)...); err != nil {
		t.Fatalf("Install: %v", err)
	}
	return reg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return b
}

type traceDoc struct {
	ConfigHash string `json:"configHash"`
	Events     []struct {
		Kind   string `json:"kind"`
		Stage  string `json:"stage"`
		Reason string `json:"reason"`
	} `json:"events"`
}

func readTrace(t *testing.T, path string) traceDoc {
	t.Helper()
	var doc traceDoc
	if err := json.Unmarshal(readFile(t, path), &doc); err != nil {
		t.Fatalf("decode trace: %v", err)
	}
	return doc
}

func kinds(doc traceDoc) string {
	out := make([]string, 0, len(doc.Events))
	for _, e := range doc.Events {
		out = append(out, e.Kind)
	}
	return strings.Join(out, ",")
}

const smallExperiment = `TRAINER_NAME: random
NUM_UPDATES: 8
LOG_INTERVAL: 4
TEST_EPISODE_COUNT: 3
TASK_CONFIG:
  SEED: 11
  ENVIRONMENT:
    MAX_EPISODE_STEPS: 30
`

func TestRun_TrainWritesTraceAndRunRecord(t *testing.T) {
	dir := t.TempDir()
	exp := filepath.Join(dir, "exp.yaml")
	writeFile(t, exp, smallExperiment)
	tracePath := filepath.Join(dir, "out", "trace.json")
	stateDir := filepath.Join(dir, "state")

	res, err := icl.Run(context.Background(), []string{
		"--run-type", "train",
		"--exp-config", exp,
		"--trace", tracePath,
		"--state-dir", stateDir,
		"TASK_CONFIG.SEED", "42",
	}, icl.Deps{Registry: newRegistry(t)})
	if err != nil {
		t.Fatalf("run err: %v", err)
	}
	if res.ExitCode != icl.ExitSuccess {
		t.Fatalf("exit: %d", res.ExitCode)
	}
	if res.Dispatch.Seed != 42 {
		t.Fatalf("expected override seed 42, got %d", res.Dispatch.Seed)
	}

	doc := readTrace(t, tracePath)
	want := "ConfigResolved,SeedApplied,TrainerResolved,TrainerConstructed,TrainStarted,RunCompleted"
	if kinds(doc) != want {
		t.Fatalf("unexpected trace kinds\n got %s\nwant %s", kinds(doc), want)
	}
	if doc.ConfigHash == "" || doc.ConfigHash != res.Dispatch.Config.Fingerprint() {
		t.Fatalf("trace config hash %q does not match resolved config", doc.ConfigHash)
	}

	st, err := runstate.NewStore(stateDir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	run, err := st.LoadRun(res.RunID)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if run.Status != runstate.StatusSucceeded || run.Trainer != randomagent.Name || run.Mode != "train" {
		t.Fatalf("unexpected run record: %+v", run)
	}
	if run.Seed == nil || *run.Seed != 42 {
		t.Fatalf("expected seed 42 in run record, got %v", run.Seed)
	}
}

func TestRun_IdenticalInvocationsIdenticalTraces(t *testing.T) {
	dir := t.TempDir()
	exp := filepath.Join(dir, "exp.yaml")
	writeFile(t, exp, smallExperiment)
	tracePath := filepath.Join(dir, "trace.json")
	args := []string{"--run-type", "eval", "--exp-config", exp, "--trace", tracePath}

	if res, err := icl.Run(context.Background(), args, icl.Deps{Registry: newRegistry(t)}); err != nil || res.ExitCode != icl.ExitSuccess {
		t.Fatalf("run1: exit=%d err=%v", res.ExitCode, err)
	}
	tr1 := readFile(t, tracePath)
	if res, err := icl.Run(context.Background(), args, icl.Deps{Registry: newRegistry(t)}); err != nil || res.ExitCode != icl.ExitSuccess {
		t.Fatalf("run2: exit=%d err=%v", res.ExitCode, err)
	}
	tr2 := readFile(t, tracePath)
	if !bytes.Equal(tr1, tr2) {
		t.Fatalf("expected identical trace bytes\n1=%s\n2=%s", tr1, tr2)
	}
}

func TestRun_ExitCodesByStage(t *testing.T) {
	dir := t.TempDir()
	exp := filepath.Join(dir, "exp.yaml")
	writeFile(t, exp, "TRAINER_NAME: random\n")
	boom := errors.New("loss is NaN")
	reg := newRegistry(t,
		registry.Registration{Name: "failing", Factory: func(*config.ExperimentConfig) (registry.Trainer, error) {
			return scriptedTrainer{trainErr: boom}, nil
		}},
		registry.Registration{Name: "broken", Factory: func(*config.ExperimentConfig) (registry.Trainer, error) {
			return nil, errors.New("no checkpoint")
		}},
	)

	cases := []struct {
		name   string
		args   []string
		exit   int
		stage  string
		reason string
	}{
		{"missing file", []string{"--exp-config", filepath.Join(dir, "nope.yaml")}, icl.ExitConfigError, "resolve config", "ConfigNotFound"},
		{"unknown key", []string{"--exp-config", exp, "NOT_A_KEY", "1"}, icl.ExitConfigError, "resolve config", "ConfigSchema"},
		{"bad type", []string{"--exp-config", exp, "NUM_UPDATES", "many"}, icl.ExitConfigError, "resolve config", "ConfigType"},
		{"non-finite float", []string{"--exp-config", exp, "RL.PPO.LR", ".nan"}, icl.ExitConfigError, "resolve config", "ConfigType"},
		{"negative seed", []string{"--exp-config", exp, "TASK_CONFIG.SEED", "-1"}, icl.ExitConfigError, "apply seed", "SeedApplication"},
		{"unknown trainer", []string{"--exp-config", exp, "TRAINER_NAME", "missing"}, icl.ExitConfigError, "lookup trainer", "UnknownTrainer"},
		{"construct failure", []string{"--exp-config", exp, "TRAINER_NAME", "broken"}, icl.ExitTrainerFailure, "construct trainer", "ConstructFailed"},
		{"trainer failure", []string{"--exp-config", exp, "TRAINER_NAME", "failing"}, icl.ExitTrainerFailure, "train", "TrainerError"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tracePath := filepath.Join(t.TempDir(), "trace.json")
			args := append([]string{"--run-type", "train", "--trace", tracePath}, tc.args...)
			res, err := icl.Run(context.Background(), args, icl.Deps{Registry: reg})
			if err == nil {
				t.Fatalf("expected error")
			}
			if res.ExitCode != tc.exit {
				t.Fatalf("expected exit %d, got %d (%v)", tc.exit, res.ExitCode, err)
			}
			if string(res.Stage) != tc.stage {
				t.Fatalf("expected stage %q, got %q", tc.stage, res.Stage)
			}
			doc := readTrace(t, tracePath)
			last := doc.Events[len(doc.Events)-1]
			if last.Kind != "RunFailed" || last.Stage != tc.stage || last.Reason != tc.reason {
				t.Fatalf("unexpected final trace event: %+v", last)
			}
		})
	}
}

func TestRun_TrainerErrorReturnedUnchanged(t *testing.T) {
	dir := t.TempDir()
	exp := filepath.Join(dir, "exp.yaml")
	writeFile(t, exp, "TRAINER_NAME: failing\n")
	boom := errors.New("loss is NaN")
	reg := newRegistry(t, registry.Registration{Name: "failing", Factory: func(*config.ExperimentConfig) (registry.Trainer, error) {
		return scriptedTrainer{trainErr: boom}, nil
	}})

	_, err := icl.Run(context.Background(), []string{"--run-type", "train", "--exp-config", exp}, icl.Deps{Registry: reg})
	if err != boom {
		t.Fatalf("expected trainer error value, got %v", err)
	}
}

func TestRun_PanicIsInternalErrorAndStillWritesTraceAndRecord(t *testing.T) {
	dir := t.TempDir()
	exp := filepath.Join(dir, "exp.yaml")
	writeFile(t, exp, "TRAINER_NAME: panicky\n")
	tracePath := filepath.Join(dir, "trace.json")
	stateDir := filepath.Join(dir, "state")
	reg := newRegistry(t, registry.Registration{Name: "panicky", Factory: func(*config.ExperimentConfig) (registry.Trainer, error) {
		return scriptedTrainer{panicMsg: "index out of range"}, nil
	}})

	res, err := icl.Run(context.Background(), []string{
		"--run-type", "train", "--exp-config", exp, "--trace", tracePath, "--state-dir", stateDir,
	}, icl.Deps{Registry: reg})
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("expected panic error, got %v", err)
	}
	if res.ExitCode != icl.ExitInternalError || res.Stage != icl.StageInternal {
		t.Fatalf("expected internal error, got exit=%d stage=%q", res.ExitCode, res.Stage)
	}

	doc := readTrace(t, tracePath)
	if len(doc.Events) == 0 || doc.Events[len(doc.Events)-1].Reason != "Panic" {
		t.Fatalf("expected trailing panic event, got %s", kinds(doc))
	}

	st, err := runstate.NewStore(stateDir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	f, err := st.LoadFailure(res.RunID)
	if err != nil {
		t.Fatalf("LoadFailure: %v", err)
	}
	if f.ErrorCode != "Panic" || f.Stage != string(icl.StageInternal) {
		t.Fatalf("unexpected failure record: %+v", f)
	}
}

func TestRun_InvalidInvocationDoesNotDispatch(t *testing.T) {
	res, err := icl.Run(context.Background(), []string{"--run-type", "train", "--exp-config", "x.yaml", "ODD"}, icl.Deps{Registry: newRegistry(t)})
	if err == nil || res.ExitCode != icl.ExitInvalidInvocation {
		t.Fatalf("expected invalid invocation, got exit=%d err=%v", res.ExitCode, err)
	}
}

func TestRun_NonFiniteFloatRecordedAsConfigType(t *testing.T) {
	dir := t.TempDir()
	exp := filepath.Join(dir, "exp.yaml")
	writeFile(t, exp, "TRAINER_NAME: random\nRL:\n  SUCCESS_REWARD: .inf\n")
	stateDir := filepath.Join(dir, "state")

	res, err := icl.Run(context.Background(), []string{
		"--run-type", "train", "--exp-config", exp, "--state-dir", stateDir,
	}, icl.Deps{Registry: newRegistry(t)})
	if !errors.Is(err, config.ErrType) {
		t.Fatalf("expected config.ErrType, got %v", err)
	}
	if res.ExitCode != icl.ExitConfigError {
		t.Fatalf("expected exit %d, got %d", icl.ExitConfigError, res.ExitCode)
	}

	st, err := runstate.NewStore(stateDir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	f, err := st.LoadFailure(res.RunID)
	if err != nil {
		t.Fatalf("LoadFailure: %v", err)
	}
	if f.Stage != "resolve config" || f.ErrorCode != "ConfigType" {
		t.Fatalf("unexpected failure record: %+v", f)
	}
}

func TestRun_TraceSetupFailureIsInternalError(t *testing.T) {
	dir := t.TempDir()
	exp := filepath.Join(dir, "exp.yaml")
	writeFile(t, exp, "TRAINER_NAME: random\n")
	blocker := filepath.Join(dir, "blocker")
	writeFile(t, blocker, "not a directory")

	res, err := icl.Run(context.Background(), []string{
		"--run-type", "eval", "--exp-config", exp, "--trace", filepath.Join(blocker, "trace.json"),
	}, icl.Deps{Registry: newRegistry(t)})
	if err == nil {
		t.Fatalf("expected trace setup to fail")
	}
	if res.ExitCode != icl.ExitInternalError || res.Stage != icl.StageInternal {
		t.Fatalf("expected internal error, got exit=%d stage=%q", res.ExitCode, res.Stage)
	}
}
