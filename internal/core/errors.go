package core

import (
	"errors"
	"fmt"
)

// ErrNoPackageTable is returned when a manifest declares neither
// [tool.poetry] nor [project].
var ErrNoPackageTable = errors.New("no [tool.poetry] or [project] table")

// ParseError wraps a failure to decode a manifest file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parsing pyproject: %v", e.Err)
	}
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports a manifest that decoded but is structurally
// invalid (e.g. a group table referencing an undeclared group).
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}
