package pager

import (
	"errors"
	"io"
	"math"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/muesli/cancelreader"
	"github.com/muesli/termenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// PageAll starts a static paging run: the text held by the handle is assumed
// complete. If stdout is not a terminal the text is dumped raw; if it fits
// on a single screen it is printed directly, unless SetRunNoOverflow(true)
// was called. Otherwise the full interactive pager runs. PageAll blocks
// until the user quits.
//
// It panics if another pager instance is already running in this process.
func PageAll(pg *Pager, opts ...Option) error {
	return initCore(pg, runModeStatic, opts...)
}

// DynamicPaging starts a dynamic paging run: the host may keep appending
// data through the handle while the user navigates. DynamicPaging blocks
// until the user quits.
//
// It panics if another pager instance is already running in this process.
func DynamicPaging(pg *Pager, opts ...Option) error {
	return initCore(pg, runModeDynamic, opts...)
}

// initCore is the engine entry point shared by both modes: it assembles the
// initial state from the commands already queued, takes the static-mode fast
// exits, sets up the terminal, and runs the input and reactor goroutines
// until one of them finishes.
func initCore(pg *Pager, mode runMode, opts ...Option) error {
	o := defaultRunOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}

	setRunMode(mode)
	defer resetRunMode()

	ps := newPagerState()
	if o.haveSize {
		ps.cols, ps.rows = o.cols, o.rows
	} else if o.tty != nil {
		if w, h, err := term.GetSize(int(o.tty.Fd())); err == nil {
			ps.cols, ps.rows = w, h
		}
	}

	out := newTermWriter(o.out)
	env := &handlerEnv{
		out:    out,
		queue:  &commandQueue{},
		exited: &exitFlag{},
		gate:   newInputGate(),
		active: false,
	}

	// Build the initial state by draining everything the host queued before
	// the run started.
	for {
		cmd, ok := pg.ch.tryRecv()
		if !ok {
			break
		}
		if err := handleCommand(cmd, ps, env); err != nil {
			pg.ch.close()
			return err
		}
	}

	if mode == runModeDynamic && o.tty != nil && !isatty.IsTerminal(o.tty.Fd()) {
		// Dynamic paging has no raw-dump fallback; it needs a real terminal.
		pg.ch.close()
		return ErrInvalidTerminal
	}

	if mode == runModeStatic {
		// The no-TTY check comes first: a redirected stdout gets the raw
		// text, untouched by formatting.
		if o.tty == nil || !isatty.IsTerminal(o.tty.Fd()) {
			if _, err := io.WriteString(o.out, ps.screen.Text()); err != nil {
				pg.ch.close()
				return &DrawError{Err: err}
			}
			pg.ch.close()
			return nil
		}
		if ps.screen.FormattedLinesCount() <= ps.rows && !ps.runNoOverflow {
			if err := writeRawLines(o.out, ps.screen.formattedLines, "\r"); err != nil {
				pg.ch.close()
				return err
			}
			ps.exit()
			pg.ch.close()
			return nil
		}
	}

	tenv := termenv.NewOutput(o.out)
	fd := -1
	if o.tty != nil {
		fd = int(o.tty.Fd())
	}
	ts, err := setupTerminal(tenv, fd)
	if err != nil {
		pg.ch.close()
		return err
	}

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			_ = cleanupTerminal(ts)
		})
	}

	// A panic anywhere in the engine must not leave the user's terminal in
	// raw mode on the alternate screen; tear down, then keep unwinding.
	// recover only sees panics of its own goroutine, so every goroutine of
	// the run defers this.
	teardownOnPanic := func() {
		if r := recover(); r != nil {
			env.exited.set()
			cleanup()
			panic(r)
		}
	}
	defer teardownOnPanic()

	reader, err := cancelreader.NewReader(o.in)
	if err != nil {
		cleanup()
		pg.ch.close()
		return &SetupError{Err: err}
	}

	var psMu sync.Mutex
	env.active = true

	var g errgroup.Group
	g.Go(func() error {
		defer teardownOnPanic()
		err := inputLoop(reader, o.tty, pg, ps, &psMu, env)
		// Whichever goroutine finishes first takes the other one down.
		env.exited.set()
		pg.ch.close()
		return err
	})
	g.Go(func() error {
		defer teardownOnPanic()
		err := reactorLoop(pg, ps, &psMu, env)
		env.exited.set()
		pg.ch.close()
		reader.Cancel()
		return err
	})

	runErr := g.Wait()
	cleanup()

	psMu.Lock()
	ps.exit()
	strategy := ps.exitStrategy
	psMu.Unlock()

	if runErr == nil && strategy == ProcessQuit {
		os.Exit(0)
	}
	return runErr
}

// inputLoop reads terminal events, classifies them through the binding
// table, and enqueues the result as a UserInput command. While the search
// prompt is open, events are routed to it instead. The loop ends when the
// command channel is disconnected or the exit flag is raised.
func inputLoop(reader cancelreader.CancelReader, tty *os.File, pg *Pager, ps *PagerState,
	psMu *sync.Mutex, env *handlerEnv) error {

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer func() {
		signal.Stop(winch)
		close(winch)
	}()
	go func() {
		sizeFd := os.Stdout
		if tty != nil {
			sizeFd = tty
		}
		for range winch {
			if w, h, err := term.GetSize(int(sizeFd.Fd())); err == nil {
				dispatchEvent(Event{Kind: ResizeEvent, Width: w, Height: h}, pg, ps, psMu, env)
			}
		}
	}()

	var pending []byte
	buf := make([]byte, 256)
	for !env.exited.isSet() {
		n, err := reader.Read(buf)
		if err != nil {
			if errors.Is(err, cancelreader.ErrCanceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return &EventError{Err: err}
		}
		pending = append(pending, buf[:n]...)

		for len(pending) > 0 {
			ev, rest, ok := parseEvent(pending)
			if !ok && len(pending) == 1 && pending[0] == KeyEscape {
				// A lone ESC left at the end of a read is taken as the
				// Escape key itself.
				ev, rest, ok = Event{Kind: KeyEvent, Key: KeyEscape}, nil, true
			}
			if !ok {
				// Partial escape sequence; read more and retry.
				break
			}
			pending = rest
			debugPrintf(" input: %s\n", ev)
			if !dispatchEvent(ev, pg, ps, psMu, env) {
				return nil
			}
		}
	}
	return nil
}

// dispatchEvent routes one event: to the search prompt when it is open,
// otherwise through the classifier and onto the command channel. It reports
// false when the channel is disconnected.
func dispatchEvent(ev Event, pg *Pager, ps *PagerState, psMu *sync.Mutex, env *handlerEnv) bool {
	// Routing and classification must not block each other: while the search
	// prompt runs, the reactor holds the state lock and waits for routed
	// events, so blocking on the lock here would deadlock the engine. Keep
	// re-checking the gate until the lock is free.
	for {
		if env.gate.route(ev) {
			return true
		}
		if psMu.TryLock() {
			break
		}
		runtime.Gosched()
	}
	iev, ok := ps.inputClassifier.ClassifyInput(ev, ps)
	if _, isNum := iev.(Number); !isNum && ps.prefixNum != "" {
		// Any non-numeric input ends the numeric prefix.
		ps.prefixNum = ""
		ps.formatPrompt()
	}
	psMu.Unlock()

	if !ok {
		return true
	}
	return pg.ch.send(userInputCmd{ev: iev}) == nil
}

// reactorLoop performs the initial draw and then applies commands one at a
// time, draining internal follow-up commands before each external receive.
func reactorLoop(pg *Pager, ps *PagerState, psMu *sync.Mutex, env *handlerEnv) error {
	psMu.Lock()
	if err := drawFull(env.out, ps); err != nil {
		psMu.Unlock()
		return err
	}
	if ps.followOutput {
		if err := drawForChange(env.out, ps, math.MaxInt/2); err != nil {
			psMu.Unlock()
			return err
		}
	}
	psMu.Unlock()

	for !env.exited.isSet() {
		var cmd command
		if c, ok := env.queue.pop(); ok {
			cmd = c
		} else {
			c, err := pg.ch.recv()
			if err != nil {
				return nil
			}
			cmd = c
		}

		psMu.Lock()
		err := handleCommand(cmd, ps, env)
		psMu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}
