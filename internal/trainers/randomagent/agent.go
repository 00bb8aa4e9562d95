// Package randomagent is a baseline trainer that acts uniformly at random in
// a synthetic point-goal episode. It needs no model or simulator and is used
// to smoke-test the dispatch path end to end.
package randomagent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"rlrun/internal/config"
	"rlrun/internal/prng"
	"rlrun/internal/registry"
)

// Name is the registry key of this trainer.
const Name = "random"

// Module registers the trainer with the fx trainers group.
var Module = registry.Provide(Name, New)

type action int

const (
	actionStop action = iota
	actionForward
	actionTurnLeft
	actionTurnRight
	numActions
)

const (
	stepSize       = 0.25
	successRadius  = 0.2
	minGoalDist    = 1.0
	maxGoalDist    = 5.0
	forwardSuccess = 0.9
	turnNoise      = 0.1
)

// Summary aggregates one Train or Evaluate call.
type Summary struct {
	Episodes    int
	MeanReturn  float64
	StdReturn   float64
	SuccessRate float64
	MeanLength  float64
}

type episode struct {
	ret     float64
	length  int
	success bool
}

// Agent is the random baseline.
type Agent struct {
	maxSteps      int
	numUpdates    int
	testEpisodes  int
	logInterval   int
	window        int
	successReward float64
	slackReward   float64
	logger        *slog.Logger

	last Summary
}

// New validates the parts of cfg the agent reads.
func New(cfg *config.ExperimentConfig) (registry.Trainer, error) {
	if cfg == nil {
		return nil, errors.New("experiment config is required")
	}
	v := cfg.Values()
	var errs []error
	if v.TaskConfig.Environment.MaxEpisodeSteps <= 0 {
		errs = append(errs, fmt.Errorf("TASK_CONFIG.ENVIRONMENT.MAX_EPISODE_STEPS must be > 0 (got %d)", v.TaskConfig.Environment.MaxEpisodeSteps))
	}
	if v.NumUpdates < 0 {
		errs = append(errs, fmt.Errorf("NUM_UPDATES must be >= 0 (got %d)", v.NumUpdates))
	}
	if v.TestEpisodeCount < 0 {
		errs = append(errs, fmt.Errorf("TEST_EPISODE_COUNT must be >= 0 (got %d)", v.TestEpisodeCount))
	}
	if v.LogInterval <= 0 {
		errs = append(errs, fmt.Errorf("LOG_INTERVAL must be > 0 (got %d)", v.LogInterval))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	window := v.RL.PPO.RewardWindowSize
	if window <= 0 {
		window = 1
	}
	return &Agent{
		maxSteps:      v.TaskConfig.Environment.MaxEpisodeSteps,
		numUpdates:    v.NumUpdates,
		testEpisodes:  v.TestEpisodeCount,
		logInterval:   v.LogInterval,
		window:        window,
		successReward: v.RL.SuccessReward,
		slackReward:   v.RL.SlackReward,
		logger:        slog.Default().With("trainer", Name),
	}, nil
}

// Train runs NUM_UPDATES episodes. A random policy has nothing to update, so
// training only reports windowed returns every LOG_INTERVAL episodes.
func (a *Agent) Train(ctx context.Context) error {
	eps, err := a.run(ctx, a.numUpdates, true)
	if err != nil {
		return err
	}
	a.last = summarize(eps)
	a.logger.Info("training finished", "episodes", a.last.Episodes, "mean_return", a.last.MeanReturn, "success_rate", a.last.SuccessRate)
	return nil
}

// Evaluate runs TEST_EPISODE_COUNT episodes and logs aggregate metrics.
func (a *Agent) Evaluate(ctx context.Context) error {
	eps, err := a.run(ctx, a.testEpisodes, false)
	if err != nil {
		return err
	}
	a.last = summarize(eps)
	a.logger.Info("evaluation finished",
		"episodes", a.last.Episodes,
		"mean_return", a.last.MeanReturn,
		"std_return", a.last.StdReturn,
		"success_rate", a.last.SuccessRate,
		"mean_length", a.last.MeanLength,
	)
	return nil
}

// Last returns the summary of the most recent Train or Evaluate call.
func (a *Agent) Last() Summary { return a.last }

func (a *Agent) run(ctx context.Context, n int, training bool) ([]episode, error) {
	if n == 0 {
		return nil, nil
	}
	goals := prng.GlobalArray().UniformVec(n, minGoalDist, maxGoalDist)
	out := make([]episode, 0, n)
	returns := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ep := a.episode(goals.AtVec(i))
		out = append(out, ep)
		returns = append(returns, ep.ret)
		if training && (i+1)%a.logInterval == 0 {
			lo := max(0, len(returns)-a.window)
			a.logger.Info("update", "episode", i+1, "window_mean_return", stat.Mean(returns[lo:], nil))
		}
	}
	return out, nil
}

func (a *Agent) episode(goal float64) episode {
	g := prng.Global()
	dist := goal
	var ep episode
	for ep.length < a.maxSteps {
		ep.length++
		prev := dist
		switch action(g.IntN(int(numActions))) {
		case actionStop:
			ep.ret += a.slackReward
			if dist < successRadius {
				ep.success = true
				ep.ret += a.successReward
			}
			return ep
		case actionForward:
			if g.Float64() < forwardSuccess {
				dist = math.Max(0, dist-stepSize)
			}
		case actionTurnLeft, actionTurnRight:
			// heading noise: a turn may move the goal slightly further away
			dist += stepSize * turnNoise * math.Abs(g.NormFloat64())
		}
		ep.ret += (prev - dist) + a.slackReward
	}
	return ep
}

func summarize(eps []episode) Summary {
	s := Summary{Episodes: len(eps)}
	if len(eps) == 0 {
		return s
	}
	returns := make([]float64, len(eps))
	lengths := make([]float64, len(eps))
	var successes float64
	for i, ep := range eps {
		returns[i] = ep.ret
		lengths[i] = float64(ep.length)
		if ep.success {
			successes++
		}
	}
	if len(eps) > 1 {
		s.MeanReturn, s.StdReturn = stat.MeanStdDev(returns, nil)
	} else {
		s.MeanReturn = returns[0]
	}
	s.MeanLength = stat.Mean(lengths, nil)
	s.SuccessRate = successes / float64(len(eps))
	return s
}
