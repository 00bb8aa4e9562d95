package config

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("config not found")
	ErrParse     = errors.New("config parse error")
	ErrSchema    = errors.New("config schema error")
	ErrType      = errors.New("config type error")
	ErrImmutable = errors.New("config is immutable")
)

// Error is a configuration failure. Kind is one of the sentinel errors above;
// Key is the dotted path involved (if any) and Source names the file or
// "overrides".
type Error struct {
	Kind   error
	Key    string
	Source string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Source != "" {
		msg += " in " + e.Source
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" at %q", e.Key)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func schemaErrorf(source, key, format string, args ...any) error {
	return &Error{Kind: ErrSchema, Source: source, Key: key, Msg: fmt.Sprintf(format, args...)}
}

func typeErrorf(source, key, format string, args ...any) error {
	return &Error{Kind: ErrType, Source: source, Key: key, Msg: fmt.Sprintf(format, args...)}
}
