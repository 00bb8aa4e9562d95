package dispatch

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRunMode = errors.New("invalid run mode")
	ErrUnknownTrainer = errors.New("unknown trainer")
)

// InvalidRunModeError names the rejected mode.
type InvalidRunModeError struct {
	Mode string
}

func (e *InvalidRunModeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %q (expected train|eval)", ErrInvalidRunMode, e.Mode)
}

func (e *InvalidRunModeError) Unwrap() error { return ErrInvalidRunMode }

// UnknownTrainerError names a trainer absent from the registry.
type UnknownTrainerError struct {
	Name      string
	Available []string
}

func (e *UnknownTrainerError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s %q is not supported", ErrUnknownTrainer, e.Name)
	if len(e.Available) > 0 {
		msg += fmt.Sprintf(" (registered: %v)", e.Available)
	}
	return msg
}

func (e *UnknownTrainerError) Unwrap() error { return ErrUnknownTrainer }

// ConstructError wraps a failure returned by a trainer factory.
type ConstructError struct {
	Trainer string
	Err     error
}

func (e *ConstructError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("construct trainer %q: %v", e.Trainer, e.Err)
}

func (e *ConstructError) Unwrap() error { return e.Err }
