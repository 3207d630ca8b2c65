package reactor

import (
	"errors"
	"fmt"
)

var (
	ErrNaming        = errors.New("reactor: invalid action name")
	ErrSchema        = errors.New("reactor: descriptor does not match schema")
	ErrUnknownAction = errors.New("reactor: unknown action")
	ErrCommandLaunch = errors.New("reactor: command could not be launched")
	ErrActionFailed  = errors.New("reactor: action failed")
)

// NamingError reports a local action key that already carries a namespace separator.
type NamingError struct {
	Service string
	Name    string
}

func (e *NamingError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%v: service=%s: empty action name", ErrNaming, e.Service)
	}
	return fmt.Sprintf("%v: service=%s name=%q: local names must not contain %q", ErrNaming, e.Service, e.Name, Separator)
}

func (e *NamingError) Unwrap() error { return ErrNaming }

// SchemaError reports a descriptor that does not conform to the action or reaction schema.
type SchemaError struct {
	Service string
	Kind    string
	Reason  string
	Err     error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("%v: service=%s kind=%s", ErrSchema, e.Service, e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSchema}
	}
	return []error{ErrSchema, e.Err}
}

// UnknownActionError reports a reaction referencing an action absent from the catalog.
type UnknownActionError struct {
	Action   string
	Reaction string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("%v: action=%s reaction=%s", ErrUnknownAction, e.Action, e.Reaction)
}

func (e *UnknownActionError) Unwrap() error { return ErrUnknownAction }

// CommandLaunchError reports a probe or action command that could not be started or was interrupted.
type CommandLaunchError struct {
	Command string
	Err     error
}

func (e *CommandLaunchError) Error() string {
	return fmt.Sprintf("%v: cmd=%q: %v", ErrCommandLaunch, e.Command, e.Err)
}

func (e *CommandLaunchError) Unwrap() []error {
	return []error{ErrCommandLaunch, e.Err}
}

// ActionFailure reports an action whose command exited non-zero.
type ActionFailure struct {
	Action   string
	Command  string
	ExitCode int
}

func (e *ActionFailure) Error() string {
	return fmt.Sprintf("%v: action=%s: command %s errored with code %d", ErrActionFailed, e.Action, e.Command, e.ExitCode)
}

func (e *ActionFailure) Unwrap() error { return ErrActionFailed }
