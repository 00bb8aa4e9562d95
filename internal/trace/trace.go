package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DispatchTrace is the canonical record of one dispatch.
//
// Invariants:
//   - Events appear in the order the dispatcher reached each stage; a dispatch
//     is sequential, so insertion order is the canonical order.
//   - No timestamps, run ids, durations or pointer-derived values, so two
//     identical runs produce byte-identical traces.
//   - ConfigHash is the resolved configuration fingerprint; it is empty when
//     the run failed before resolution finished.
type DispatchTrace struct {
	ConfigHash string
	Events     []Event
}

// EventKind values are part of the canonical bytes; do not rename.
type EventKind string

const (
	EventConfigResolved     EventKind = "ConfigResolved"
	EventSeedApplied        EventKind = "SeedApplied"
	EventTrainerResolved    EventKind = "TrainerResolved"
	EventTrainerConstructed EventKind = "TrainerConstructed"
	EventTrainStarted       EventKind = "TrainStarted"
	EventEvaluateStarted    EventKind = "EvaluateStarted"
	EventRunCompleted       EventKind = "RunCompleted"
	EventRunFailed          EventKind = "RunFailed"
)

// Event is a single stage transition.
//
// Reason is a stable code (e.g. "UnknownTrainer"), never an error string.
type Event struct {
	Kind    EventKind
	Trainer string
	Stage   string
	Reason  string
	Seed    *uint64
}

// Validate checks basic invariants and returns a descriptive error.
func (t *DispatchTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	for i, e := range t.Events {
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.Kind == EventRunFailed && e.Stage == "" {
			return fmt.Errorf("events[%d].stage is required for kind %q", i, e.Kind)
		}
		if e.Kind == EventSeedApplied && e.Seed == nil {
			return fmt.Errorf("events[%d].seed is required for kind %q", i, e.Kind)
		}
	}
	return nil
}

// CanonicalJSON returns the canonical JSON encoding of the trace.
func (t DispatchTrace) CanonicalJSON() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(t)
}

// Hash returns the deterministic trace hash (sha256 hex) of the canonical JSON bytes.
func (t DispatchTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeTraceHash(b), nil
}

// MarshalJSON fixes field order; an empty event list encodes as [].
func (t DispatchTrace) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString("\"configHash\":")
	ch, _ := json.Marshal(t.ConfigHash)
	buf.Write(ch)
	buf.WriteByte(',')

	buf.WriteString("\"events\":[")
	for i := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(t.Events[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteByte(']')

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON fixes field order and omits empty optional fields.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')

	// kind (always first)
	buf.WriteString("\"kind\":")
	kb, _ := json.Marshal(string(e.Kind))
	buf.Write(kb)

	writeString := func(name, v string) {
		if v == "" {
			return
		}
		buf.WriteString(",\"" + name + "\":")
		b, _ := json.Marshal(v)
		buf.Write(b)
	}
	writeString("trainer", e.Trainer)
	writeString("stage", e.Stage)
	writeString("reason", e.Reason)

	if e.Seed != nil {
		fmt.Fprintf(&buf, ",\"seed\":%d", *e.Seed)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
