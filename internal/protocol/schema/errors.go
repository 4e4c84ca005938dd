package schema

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("schema: not found")
	ErrMalformedSchema   = errors.New("schema: malformed schema")
	ErrUnsupportedFormat = errors.New("schema: unsupported format")
)

// LoadError reports why a dictionary source was refused.
type LoadError struct {
	Path   string
	Reason string
	Kind   error
	Err    error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("%v (%s)", e.Kind, e.Path)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func notFound(path string, err error) error {
	return &LoadError{Path: path, Kind: ErrNotFound, Err: err}
}

func malformed(path, reason string, err error) error {
	return &LoadError{Path: path, Reason: reason, Kind: ErrMalformedSchema, Err: err}
}
