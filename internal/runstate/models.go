package runstate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is the persisted record of one dispatch.
//
// end_time stays null while the run is in progress.
type Run struct {
	RunID      string     `json:"run_id"`
	ConfigHash string     `json:"config_hash"`
	Trainer    string     `json:"trainer"`
	Mode       string     `json:"mode"`
	Seed       *uint64    `json:"seed"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	Status     Status     `json:"status"`
}

func (r Run) Validate() error {
	var errs []error
	if strings.TrimSpace(r.RunID) == "" {
		errs = append(errs, errors.New("run_id is required"))
	}
	if r.StartTime.IsZero() {
		errs = append(errs, errors.New("start_time is required"))
	}
	switch r.Mode {
	case "train", "eval", "":
	default:
		errs = append(errs, fmt.Errorf("invalid mode %q", r.Mode))
	}
	switch r.Status {
	case StatusRunning:
		if r.EndTime != nil {
			errs = append(errs, errors.New("end_time must be null while running"))
		}
	case StatusSucceeded, StatusFailed:
		if r.EndTime == nil {
			errs = append(errs, errors.New("end_time is required once finished"))
		} else if r.EndTime.Before(r.StartTime) {
			errs = append(errs, errors.New("end_time precedes start_time"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid status %q", r.Status))
	}
	if r.Status == StatusSucceeded && strings.TrimSpace(r.ConfigHash) == "" {
		errs = append(errs, errors.New("config_hash is required for a successful run"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Failure records why a run stopped.
type Failure struct {
	Stage        string `json:"stage"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

func (f Failure) Validate() error {
	var errs []error
	if strings.TrimSpace(f.Stage) == "" {
		errs = append(errs, errors.New("stage is required"))
	}
	if strings.TrimSpace(f.ErrorCode) == "" {
		errs = append(errs, errors.New("error_code is required"))
	}
	if strings.TrimSpace(f.ErrorMessage) == "" {
		errs = append(errs, errors.New("error_message is required"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
