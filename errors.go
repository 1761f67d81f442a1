package parchment

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognized is matched by errors for host nodes or kinds that no
	// registered Definition claims.
	ErrUnrecognized = errors.New("unrecognized node")

	// ErrPrecondition is matched by errors for calls that violate an
	// operation's preconditions, like an index out of range.
	ErrPrecondition = errors.New("precondition violated")
)

// UnrecognizedError reports a kind name or host node the registry cannot
// classify.
type UnrecognizedError struct {
	// Kind is the requested kind name, if creating by name.
	Kind string
	// Name is the host node name, if creating from a host node.
	Name string
}

func (e *UnrecognizedError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("unrecognized kind %q", e.Kind)
	}
	return fmt.Sprintf("unrecognized host node %q", e.Name)
}

func (e *UnrecognizedError) Unwrap() error {
	return ErrUnrecognized
}

func preconditionf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}
