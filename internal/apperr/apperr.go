// Package apperr wraps engine errors with user-facing messages and
// hints, and classifies them into the exit codes the CLI reports.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrConfigInvalid  = errors.New("configuration invalid")
	ErrNoAutomationLog = errors.New("no automation log source configured")
	ErrAnalysisTimeout = errors.New("analysis exceeded its time budget")
)

// Kind is the category an error is reported under, driving the CLI's
// exit code (spec §6).
type Kind int

const (
	// KindInternal covers anything unexpected: exit code 3.
	KindInternal Kind = iota
	// KindConfig covers a malformed or missing configuration: exit code 2.
	KindConfig
)

// UserError wraps an error with a short message and an actionable
// hint, the way the CLI reports failures to a human.
type UserError struct {
	Message string
	Hint    string
	Kind    Kind
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error { return e.Err }

// Config wraps err as a configuration-kind UserError.
func Config(message, hint string, err error) *UserError {
	return &UserError{Message: message, Hint: hint, Kind: KindConfig, Err: err}
}

// Internal wraps err as an internal-kind UserError.
func Internal(message string, err error) *UserError {
	return &UserError{Message: message, Kind: KindInternal, Err: err}
}

// ExitCode maps err to the CLI's exit code convention: 2 for
// configuration errors, 3 for anything else unexpected.
func ExitCode(err error) int {
	var ue *UserError
	if errors.As(err, &ue) && ue.Kind == KindConfig {
		return 2
	}
	return 3
}
