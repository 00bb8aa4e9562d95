package runstate

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ErrRunExists is returned by Start when the run ID is already on disk.
var ErrRunExists = errors.New("run already exists")

// Recorder writes the run record at start and rewrites it on completion.
type Recorder struct {
	Store *Store
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

func (r *Recorder) NewRunID() string {
	return uuid.NewString()
}

func (r *Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// Start persists run with status running and returns the saved record.
func (r *Recorder) Start(run Run) (Run, error) {
	if r == nil || r.Store == nil {
		return Run{}, errors.New("Store is required")
	}
	if run.RunID == "" {
		run.RunID = r.NewRunID()
	}
	ids, err := r.Store.ListRunIDs()
	if err != nil {
		return Run{}, fmt.Errorf("list runs: %w", err)
	}
	if i := sort.SearchStrings(ids, run.RunID); i < len(ids) && ids[i] == run.RunID {
		return Run{}, fmt.Errorf("%w: %q", ErrRunExists, run.RunID)
	}
	if run.StartTime.IsZero() {
		run.StartTime = r.now()
	}
	run.Status = StatusRunning
	run.EndTime = nil
	if err := r.Store.SaveRun(run); err != nil {
		return Run{}, err
	}
	return run, nil
}

// Succeed marks run finished successfully.
func (r *Recorder) Succeed(run Run) (Run, error) {
	return r.finish(run, StatusSucceeded)
}

// Fail marks run failed and writes failure.json next to it.
func (r *Recorder) Fail(run Run, stage, code string, cause error) (Run, error) {
	if cause == nil {
		return Run{}, errors.New("cause is required")
	}
	done, err := r.finish(run, StatusFailed)
	if err != nil {
		return Run{}, err
	}
	f := Failure{Stage: stage, ErrorCode: code, ErrorMessage: cause.Error()}
	if err := r.Store.SaveFailure(run.RunID, f); err != nil {
		return done, fmt.Errorf("record failure: %w", err)
	}
	return done, nil
}

func (r *Recorder) finish(run Run, status Status) (Run, error) {
	if r == nil || r.Store == nil {
		return Run{}, errors.New("Store is required")
	}
	end := r.now()
	if end.Before(run.StartTime) {
		end = run.StartTime
	}
	run.EndTime = &end
	run.Status = status
	if err := r.Store.SaveRun(run); err != nil {
		return Run{}, err
	}
	return run, nil
}
