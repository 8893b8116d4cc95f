package pager

import (
	"bytes"
	"io"
	"strconv"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const (
	attrBold      = "\x1b[1m"
	attrReset     = "\x1b[0m"
	attrReverse   = "\x1b[7m"
	attrNoReverse = "\x1b[27m"
)

// termWriter buffers drawing commands and flushes them to the terminal in a
// single write. Rendering assumes support for a minimal set of ANSI escape
// sequences: absolute cursor movement (ESC[<r>;<c>H), erase line (ESC[2K),
// erase screen (ESC[2J), scroll up/down (ESC[<n>S, ESC[<n>T), and cursor
// show/hide (ESC[?25h, ESC[?25l).
type termWriter struct {
	out    io.Writer
	outbuf bytes.Buffer
}

func newTermWriter(out io.Writer) *termWriter {
	return &termWriter{out: out}
}

func (t *termWriter) WriteString(s string) {
	_, _ = t.outbuf.WriteString(s)
}

// flush writes the buffered drawing commands to the underlying writer and
// clears the buffer.
func (t *termWriter) flush() error {
	debugPrintf("output: %q\n", t.outbuf.Bytes())
	_, err := t.out.Write(t.outbuf.Bytes())
	t.outbuf.Reset()
	if err != nil {
		return &DrawError{Err: err}
	}
	return nil
}

// moveTo generates the escape sequence to move the cursor to the 0-indexed
// column x and row y.
func (t *termWriter) moveTo(x, y int) {
	t.outbuf.WriteString("\x1b[")
	t.outbuf.WriteString(strconv.Itoa(y + 1))
	t.outbuf.WriteString(";")
	t.outbuf.WriteString(strconv.Itoa(x + 1))
	t.outbuf.WriteString("H")
}

// clearLine erases the whole line under the cursor.
func (t *termWriter) clearLine() {
	t.outbuf.WriteString("\x1b[2K")
}

// clearScreen erases the whole screen without moving the cursor.
func (t *termWriter) clearScreen() {
	t.outbuf.WriteString("\x1b[2J")
}

// scrollUp scrolls the terminal contents up by n rows, exposing blank rows at
// the bottom.
func (t *termWriter) scrollUp(n int) {
	t.outbuf.WriteString("\x1b[")
	t.outbuf.WriteString(strconv.Itoa(n))
	t.outbuf.WriteString("S")
}

// scrollDown scrolls the terminal contents down by n rows, exposing blank
// rows at the top.
func (t *termWriter) scrollDown(n int) {
	t.outbuf.WriteString("\x1b[")
	t.outbuf.WriteString(strconv.Itoa(n))
	t.outbuf.WriteString("T")
}

func (t *termWriter) showCursor() {
	t.outbuf.WriteString("\x1b[?25h")
}

func (t *termWriter) hideCursor() {
	t.outbuf.WriteString("\x1b[?25l")
}

// terminalState holds what has to be undone at teardown.
type terminalState struct {
	env   *termenv.Output
	fd    int
	saved *term.State
}

// setupTerminal switches the terminal to the alternate screen, enables raw
// mode and mouse reporting, and hides the cursor. Teardown is symmetric; keep
// the two functions close so it stays that way.
func setupTerminal(env *termenv.Output, fd int) (*terminalState, error) {
	env.AltScreen()

	var saved *term.State
	if fd >= 0 {
		var err error
		saved, err = term.MakeRaw(fd)
		if err != nil {
			env.ExitAltScreen()
			return nil, &SetupError{Err: err}
		}
	}

	env.EnableMouseCellMotion()
	env.EnableMouseExtendedMode()
	env.HideCursor()

	return &terminalState{env: env, fd: fd, saved: saved}, nil
}

// cleanupTerminal restores the terminal to the state it was in before
// setupTerminal. It must run on every exit path, including panics, so the
// user is never left with a raw-mode terminal.
func cleanupTerminal(ts *terminalState) error {
	ts.env.ShowCursor()
	ts.env.DisableMouseExtendedMode()
	ts.env.DisableMouseCellMotion()

	var err error
	if ts.saved != nil {
		err = term.Restore(ts.fd, ts.saved)
	}
	ts.env.ExitAltScreen()

	if err != nil {
		return &CleanupError{Err: err}
	}
	return nil
}
