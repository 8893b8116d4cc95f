package pager

import (
	"io"
	"os"
)

// Option configures a paging run. If no options are given, the run uses
// os.Stdin and os.Stdout.
type Option interface {
	apply(o *runOptions)
}

type runOptions struct {
	in  io.Reader
	out io.Writer
	// tty, when set, is used for raw mode and size queries.
	tty *os.File
	// size overrides the terminal size; primarily useful for tests.
	cols, rows int
	haveSize   bool
}

func defaultRunOptions() runOptions {
	return runOptions{
		in:  os.Stdin,
		out: os.Stdout,
		tty: os.Stdout,
	}
}

type ttyOption struct {
	tty *os.File
}

func (o *ttyOption) apply(ro *runOptions) {
	ro.in = o.tty
	ro.out = o.tty
	ro.tty = o.tty
}

// WithTTY runs the pager against a different TTY than stdin/stdout.
func WithTTY(tty *os.File) Option {
	return &ttyOption{tty: tty}
}

type inputOption struct {
	r io.Reader
}

func (o *inputOption) apply(ro *runOptions) {
	ro.in = o.r
}

// WithInput configures the input reader. This option is primarily useful for
// tests.
func WithInput(r io.Reader) Option {
	return &inputOption{r: r}
}

type outputOption struct {
	w io.Writer
}

func (o *outputOption) apply(ro *runOptions) {
	ro.out = o.w
	ro.tty = nil
}

// WithOutput configures the output writer. This option is primarily useful
// for tests.
func WithOutput(w io.Writer) Option {
	return &outputOption{w: w}
}

type sizeOption struct {
	cols, rows int
}

func (o *sizeOption) apply(ro *runOptions) {
	ro.cols, ro.rows = o.cols, o.rows
	ro.haveSize = true
}

// WithSize configures the initial terminal size instead of querying the TTY.
// This option is primarily useful for tests in conjunction with WithInput
// and WithOutput.
func WithSize(cols, rows int) Option {
	return &sizeOption{cols: cols, rows: rows}
}
