package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"rlrun/internal/dispatch"
)

const (
	ExitSuccess           = 0
	ExitTrainerFailure    = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

type TraceConfig struct {
	Enabled bool
	Path    string
}

type LogConfig struct {
	Level  slog.Level
	Format LogFormat
}

// CLIInvocation is the canonical description of one run.
//
// ExpConfig keeps the comma-separated list as given; each entry is resolved
// by the configuration loader. Overrides holds the trailing KEY VALUE tokens
// in order.
type CLIInvocation struct {
	RunType   dispatch.Mode
	ExpConfig string
	Overrides []string
	Trace     TraceConfig
	StateDir  string
	Log       LogConfig
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation parses
//
//	--run-type {train|eval} --exp-config <path>[,<path>...] [flags] [KEY VALUE ...]
//
// Flags must precede the overrides. A literal "--" ends flag parsing and is
// dropped. Environment variables are not consulted.
func ParseInvocation(args []string) (CLIInvocation, error) {
	fs := flag.NewFlagSet("rlrun", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var runType string
	var expConfig string
	var tracePath string
	var stateDir string
	var logLevel string
	var logFormat string

	fs.StringVar(&runType, "run-type", "", "Run type: train|eval. Required.")
	fs.StringVar(&expConfig, "exp-config", "", "Experiment config path(s), comma-separated. Required.")
	fs.StringVar(&tracePath, "trace", "", "Dispatch trace output path (optional).")
	fs.StringVar(&stateDir, "state-dir", "", "Directory for run records (optional).")
	fs.StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.StringVar(&logFormat, "log-format", string(LogFormatText), "Log format: text|json")

	if err := fs.Parse(args); err != nil {
		return CLIInvocation{}, invalidInvocationf("%v", err)
	}

	if strings.TrimSpace(runType) == "" {
		return CLIInvocation{}, invalidInvocationf("--run-type is required")
	}
	mode, err := dispatch.ParseMode(runType)
	if err != nil {
		return CLIInvocation{}, invalidInvocationf("invalid --run-type %q (expected train|eval)", runType)
	}
	if strings.TrimSpace(expConfig) == "" {
		return CLIInvocation{}, invalidInvocationf("--exp-config is required")
	}

	overrides := fs.Args()
	if len(overrides) > 0 && overrides[0] == "--" {
		overrides = overrides[1:]
	}
	if len(overrides)%2 != 0 {
		return CLIInvocation{}, invalidInvocationf("overrides must be KEY VALUE pairs (got %d tokens; %q has no value)", len(overrides), overrides[len(overrides)-1])
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return CLIInvocation{}, invalidInvocationf("invalid --log-level %q (expected debug|info|warn|error)", logLevel)
	}
	format := LogFormat(strings.ToLower(strings.TrimSpace(logFormat)))
	switch format {
	case LogFormatText, LogFormatJSON:
	default:
		return CLIInvocation{}, invalidInvocationf("invalid --log-format %q (expected text|json)", logFormat)
	}

	inv := CLIInvocation{
		RunType:   mode,
		ExpConfig: expConfig,
		Overrides: append([]string{}, overrides...),
		Log:       LogConfig{Level: level, Format: format},
	}
	if strings.TrimSpace(stateDir) != "" {
		inv.StateDir = filepath.Clean(stateDir)
	}
	if strings.TrimSpace(tracePath) != "" {
		clean := filepath.Clean(tracePath)
		if clean == "." {
			return CLIInvocation{}, invalidInvocationf("--trace must name a file")
		}
		inv.Trace = TraceConfig{Enabled: true, Path: clean}
	}
	return inv, nil
}

// ExitCode extracts a semantic exit code from a ParseInvocation error.
// If the error is not a known invocation error, it returns ExitInternalError.
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}
