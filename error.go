package pager

import "errors"

// ErrClosed is returned by the Pager mutators once the paging run has ended
// and nothing is draining the command channel anymore.
var ErrClosed = errors.New("pager: pager closed")

// ErrInvalidTerminal is reported when paging is attempted on something that
// is not a terminal and cannot fall back to a raw dump.
var ErrInvalidTerminal = errors.New("pager: standard output is not a terminal")

// SetupError wraps a failure while preparing the terminal (alternate screen,
// raw mode, cursor state).
type SetupError struct{ Err error }

func (e *SetupError) Error() string { return "pager: terminal setup: " + e.Err.Error() }
func (e *SetupError) Unwrap() error { return e.Err }

// CleanupError wraps a failure while restoring the terminal.
type CleanupError struct{ Err error }

func (e *CleanupError) Error() string { return "pager: terminal cleanup: " + e.Err.Error() }
func (e *CleanupError) Unwrap() error { return e.Err }

// DrawError wraps an I/O failure while writing to the terminal mid-render.
// Draw failures are fatal to the engine.
type DrawError struct{ Err error }

func (e *DrawError) Error() string { return "pager: draw: " + e.Err.Error() }
func (e *DrawError) Unwrap() error { return e.Err }

// EventError wraps a failure while reading or decoding terminal events.
type EventError struct{ Err error }

func (e *EventError) Error() string { return "pager: handle event: " + e.Err.Error() }
func (e *EventError) Unwrap() error { return e.Err }
