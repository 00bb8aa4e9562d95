package cli

import (
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"

	"rlrun/internal/dispatch"
)

func TestParseInvocation_DeterministicStruct(t *testing.T) {
	args := []string{
		"--run-type", "train",
		"--exp-config", "configs/experiments/pointnav.yaml",
		"--trace", "traces/../trace.json",
		"--state-dir", "./state/",
		"--log-level", "debug",
		"--log-format", "json",
		"TASK_CONFIG.SEED", "42",
		"RL.PPO.LR", "2.5e-4",
	}

	inv1, err := ParseInvocation(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inv2, err := ParseInvocation(args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(inv1, inv2) {
		t.Fatalf("expected identical invocations, got\n%#v\n%#v", inv1, inv2)
	}

	if inv1.RunType != dispatch.ModeTrain {
		t.Fatalf("run type not parsed: %q", inv1.RunType)
	}
	if inv1.ExpConfig != "configs/experiments/pointnav.yaml" {
		t.Fatalf("exp config changed: %q", inv1.ExpConfig)
	}
	if !reflect.DeepEqual(inv1.Overrides, []string{"TASK_CONFIG.SEED", "42", "RL.PPO.LR", "2.5e-4"}) {
		t.Fatalf("overrides not preserved in order: %q", inv1.Overrides)
	}
	if !inv1.Trace.Enabled || inv1.Trace.Path != "trace.json" {
		t.Fatalf("trace not canonicalized: %#v", inv1.Trace)
	}
	if inv1.StateDir != filepath.Clean("state") {
		t.Fatalf("state dir not canonicalized: %q", inv1.StateDir)
	}
	if inv1.Log.Level != slog.LevelDebug || inv1.Log.Format != LogFormatJSON {
		t.Fatalf("log config not parsed: %#v", inv1.Log)
	}
}

func TestParseInvocation_Defaults(t *testing.T) {
	inv, err := ParseInvocation([]string{"--run-type", "eval", "--exp-config", "a.yaml,b.yaml"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.RunType != dispatch.ModeEval {
		t.Fatalf("expected eval, got %q", inv.RunType)
	}
	if inv.ExpConfig != "a.yaml,b.yaml" {
		t.Fatalf("expected comma list kept as given, got %q", inv.ExpConfig)
	}
	if len(inv.Overrides) != 0 || inv.Trace.Enabled || inv.StateDir != "" {
		t.Fatalf("unexpected optional settings: %#v", inv)
	}
	if inv.Log.Level != slog.LevelInfo || inv.Log.Format != LogFormatText {
		t.Fatalf("unexpected log defaults: %#v", inv.Log)
	}
}

func TestParseInvocation_DoubleDashSeparatesOverrides(t *testing.T) {
	inv, err := ParseInvocation([]string{"--run-type", "train", "--exp-config", "x.yaml", "--", "TASK_CONFIG.SEED", "-5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(inv.Overrides, []string{"TASK_CONFIG.SEED", "-5"}) {
		t.Fatalf("unexpected overrides: %q", inv.Overrides)
	}
}

func TestParseInvocation_InvalidInvocations(t *testing.T) {
	cases := map[string][]string{
		"missing run type":   {"--exp-config", "x.yaml"},
		"bad run type":       {"--run-type", "benchmark", "--exp-config", "x.yaml"},
		"upper run type":     {"--run-type", "TRAIN", "--exp-config", "x.yaml"},
		"padded run type":    {"--run-type", " eval ", "--exp-config", "x.yaml"},
		"missing exp config": {"--run-type", "train"},
		"odd overrides":      {"--run-type", "train", "--exp-config", "x.yaml", "TASK_CONFIG.SEED"},
		"unknown flag":       {"--run-type", "train", "--exp-config", "x.yaml", "--resume"},
		"bad log level":      {"--run-type", "train", "--exp-config", "x.yaml", "--log-level", "loud"},
		"bad log format":     {"--run-type", "train", "--exp-config", "x.yaml", "--log-format", "xml"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseInvocation(args)
			if err == nil {
				t.Fatalf("expected error")
			}
			if ExitCode(err) != ExitInvalidInvocation {
				t.Fatalf("expected exit %d, got %d (%v)", ExitInvalidInvocation, ExitCode(err), err)
			}
		})
	}
}
