package pager

import (
	"fmt"
	"sync"
)

// LineNumbers controls the display of line numbers in front of each line of
// text. The AlwaysOn and AlwaysOff variants are locked in by the host
// application and cannot be toggled by the user at runtime; Enabled and
// Disabled can be flipped with Ctrl-L.
type LineNumbers int

const (
	// LineNumbersAlwaysOn enables line numbers permanently.
	LineNumbersAlwaysOn LineNumbers = iota
	// LineNumbersEnabled turns line numbers on, but the user may turn them off.
	LineNumbersEnabled
	// LineNumbersDisabled turns line numbers off, but the user may turn them on.
	LineNumbersDisabled
	// LineNumbersAlwaysOff disables line numbers permanently.
	LineNumbersAlwaysOff
)

// isOn reports whether line numbers are currently displayed.
func (l LineNumbers) isOn() bool {
	return l == LineNumbersAlwaysOn || l == LineNumbersEnabled
}

// toggle flips Enabled and Disabled into each other. The locked variants are
// returned unchanged.
func (l LineNumbers) toggle() LineNumbers {
	switch l {
	case LineNumbersEnabled:
		return LineNumbersDisabled
	case LineNumbersDisabled:
		return LineNumbersEnabled
	}
	return l
}

func (l LineNumbers) String() string {
	switch l {
	case LineNumbersAlwaysOn:
		return "AlwaysOn"
	case LineNumbersEnabled:
		return "Enabled"
	case LineNumbersDisabled:
		return "Disabled"
	case LineNumbersAlwaysOff:
		return "AlwaysOff"
	}
	return fmt.Sprintf("LineNumbers(%d)", int(l))
}

// ExitStrategy controls what happens when the user quits the pager with q or
// Ctrl-C.
type ExitStrategy int

const (
	// ProcessQuit terminates the whole process after the terminal has been
	// restored. This is the default, matching the behavior of less(1).
	ProcessQuit ExitStrategy = iota
	// PagerQuit only quits the pager, returning control to the caller of
	// PageAll or DynamicPaging.
	PagerQuit
)

func (e ExitStrategy) String() string {
	if e == PagerQuit {
		return "PagerQuit"
	}
	return "ProcessQuit"
}

// runMode describes whether a pager is currently running and in which mode.
// A single process-wide value refuses a second concurrent pager instance.
type runMode int

const (
	runModeUninitialized runMode = iota
	runModeStatic
	runModeDynamic
)

var runmode = struct {
	sync.Mutex
	mode runMode
}{}

// setRunMode transitions the process-wide run mode from uninitialized to
// mode. It panics if another pager instance is already running: this is a
// programmer error in the host application.
func setRunMode(mode runMode) {
	runmode.Lock()
	defer runmode.Unlock()
	if runmode.mode != runModeUninitialized {
		panic("pager: another pager instance is already running in this process")
	}
	runmode.mode = mode
}

func resetRunMode() {
	runmode.Lock()
	defer runmode.Unlock()
	runmode.mode = runModeUninitialized
}
