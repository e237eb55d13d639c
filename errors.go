package autosurgeon

import (
	"errors"
	"fmt"
)

// ErrTopLevelNotMap is returned when a value reconciled at the
// document root is not map-shaped.
var ErrTopLevelNotMap = errors.New("the top level value must reconcile to a map")

// UnexpectedError reports a shape mismatch during hydration: the
// document held a node of one kind where the target type needed
// another.
type UnexpectedError struct {
	Expected string
	Found    string
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected value: expected %s, found %s", e.Expected, e.Found)
}

func unexpected(expected string, found Kind) *UnexpectedError {
	return &UnexpectedError{Expected: expected, Found: found.String()}
}

// ParseError reports a value that had the right node kind but could
// not be converted to the target type, e.g. an out-of-range integer or
// a malformed UUID.
type ParseError struct {
	Target string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Target, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StaleHeadsError is returned when buffered text edits are replayed
// against a document that moved on since the text was hydrated.
type StaleHeadsError struct {
	Expected []ChangeHash
	Found    []ChangeHash
}

func (e *StaleHeadsError) Error() string {
	return fmt.Sprintf("stale heads: edits were recorded at %v but the document is now at %v",
		e.Expected, e.Found)
}

// ReconcileError wraps a failure while writing a value into a
// document, with the path of field and index steps that led to it.
type ReconcileError struct {
	Path []Prop
	Err  error
}

func (e *ReconcileError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("reconcile: %v", e.Err)
	}
	return fmt.Sprintf("reconcile %s: %v", pathString(e.Path), e.Err)
}

func (e *ReconcileError) Unwrap() error { return e.Err }

// HydrateError wraps a failure while reading a document into a value.
type HydrateError struct {
	Path []Prop
	Err  error
}

func (e *HydrateError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("hydrate: %v", e.Err)
	}
	return fmt.Sprintf("hydrate %s: %v", pathString(e.Path), e.Err)
}

func (e *HydrateError) Unwrap() error { return e.Err }

func pathString(path []Prop) string {
	s := ""
	for i, p := range path {
		if p.isIndex {
			s += p.String()
			continue
		}
		if i > 0 {
			s += "."
		}
		s += p.key
	}
	return s
}

// StripUnexpected converts shape-mismatch and parse failures into nil,
// leaving document-engine faults intact. Callers probing a document
// for an optional, possibly differently-shaped node use it to treat
// "wrong shape" as "not there".
func StripUnexpected(err error) error {
	if err == nil {
		return nil
	}
	var ue *UnexpectedError
	if errors.As(err, &ue) {
		return nil
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return nil
	}
	return err
}
