package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRegistrySealed is returned when an action is registered after the registry started executing.
var ErrRegistrySealed = errors.New("action registry is sealed")

// ParseError represents a configuration parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TemplateError reports a malformed placeholder inside a template.
type TemplateError struct {
	Template string
	Offset   int
	Message  string
}

// NewTemplateError constructs a TemplateError.
func NewTemplateError(template string, offset int, message string) error {
	return &TemplateError{Template: template, Offset: offset, Message: message}
}

func (e *TemplateError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("template error at offset %d in %q: %s", e.Offset, e.Template, e.Message)
}

// UnresolvedVariableError reports a placeholder with no value in the build context.
type UnresolvedVariableError struct {
	Name     string
	Template string
	Action   string
}

// NewUnresolvedVariableError constructs an UnresolvedVariableError.
func NewUnresolvedVariableError(name, template string) error {
	return &UnresolvedVariableError{Name: name, Template: template}
}

func (e *UnresolvedVariableError) Error() string {
	if e == nil {
		return ""
	}
	if e.Action != "" {
		return fmt.Sprintf("unresolved variable %q in action %s (template %q)", e.Name, e.Action, e.Template)
	}
	return fmt.Sprintf("unresolved variable %q in template %q", e.Name, e.Template)
}

// SpawnError reports that an external command could not be launched at all.
type SpawnError struct {
	Program string
	Err     error
}

// NewSpawnError constructs a SpawnError.
func NewSpawnError(program string, err error) error {
	return &SpawnError{Program: program, Err: err}
}

func (e *SpawnError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("failed to launch %s: %v", e.Program, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SpawnError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ActionFailedError represents a post-build action that did not complete successfully.
type ActionFailedError struct {
	Target   string
	Action   string
	Index    int
	ExitCode int
	Stderr   string
	Err      error
}

// NewActionFailedError constructs an ActionFailedError.
func NewActionFailedError(target, action string, index, exitCode int, err error) *ActionFailedError {
	return &ActionFailedError{Target: target, Action: action, Index: index, ExitCode: exitCode, Err: err}
}

func (e *ActionFailedError) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "action %s (#%d) for target %s failed", e.Action, e.Index+1, e.Target)
	switch {
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	case e.ExitCode != 0:
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	}
	return b.String()
}

// Unwrap exposes the root cause, such as a SpawnError or a context deadline.
func (e *ActionFailedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsSpawnFailure reports whether the action failed because its tool could not be launched.
func (e *ActionFailedError) IsSpawnFailure() bool {
	if e == nil {
		return false
	}
	var spawnErr *SpawnError
	return errors.As(e.Err, &spawnErr)
}
