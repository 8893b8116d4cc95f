package pager

import (
	"strings"
	"sync"
)

// Pager is the handle the host application keeps while the paging engine
// runs. Mutators compose the corresponding command and enqueue it for the
// reactor; they are safe to call from any goroutine, before or during a run,
// and return ErrClosed once the run has ended.
//
// Pager implements io.Writer and io.StringWriter, so formatted output can be
// streamed into it:
//
//	fmt.Fprintf(pg, "%d results\n", n)
type Pager struct {
	ch *commandChan
}

// New creates a new pager handle.
func New() *Pager {
	return &Pager{ch: newCommandChan()}
}

// SetText replaces the entire text. Unlike Push this discards what was
// previously held.
func (p *Pager) SetText(text string) error {
	return p.ch.send(setDataCmd{text: text})
}

// Push appends text to the pager output.
func (p *Pager) Push(text string) error {
	return p.ch.send(appendDataCmd{text: text})
}

// Write implements io.Writer by appending to the pager output.
func (p *Pager) Write(b []byte) (int, error) {
	if err := p.Push(string(b)); err != nil {
		return 0, err
	}
	return len(b), nil
}

// WriteString implements io.StringWriter by appending to the pager output.
func (p *Pager) WriteString(s string) (int, error) {
	if err := p.Push(s); err != nil {
		return 0, err
	}
	return len(s), nil
}

// SetPrompt sets the text displayed at the bottom prompt. The pager reserves
// a single line for the prompt, so text must not contain newlines; passing
// one is a programmer error and panics.
func (p *Pager) SetPrompt(text string) error {
	if strings.ContainsRune(text, '\n') {
		panic("pager: prompt cannot contain newlines")
	}
	return p.ch.send(setPromptCmd{text: text})
}

// SendMessage displays a transient message in place of the prompt until the
// next keypress. Like the prompt, it must not contain newlines.
func (p *Pager) SendMessage(text string) error {
	if strings.ContainsRune(text, '\n') {
		panic("pager: message cannot contain newlines")
	}
	return p.ch.send(sendMessageCmd{text: text})
}

// ShowPrompt controls whether the bottom row is reserved for the prompt.
func (p *Pager) ShowPrompt(show bool) error {
	return p.ch.send(showPromptCmd{show: show})
}

// SetLineNumbers sets the line number configuration.
func (p *Pager) SetLineNumbers(mode LineNumbers) error {
	return p.ch.send(setLineNumbersCmd{mode: mode})
}

// SetLineWrapping chooses between wrapping long lines at the terminal width
// and letting them overflow.
func (p *Pager) SetLineWrapping(wrap bool) error {
	return p.ch.send(lineWrappingCmd{wrap: wrap})
}

// FollowOutput controls follow mode: when enabled, the view jumps to the end
// after every append, like tail -f.
func (p *Pager) FollowOutput(follow bool) error {
	return p.ch.send(followOutputCmd{follow: follow})
}

// SetExitStrategy controls what happens when the user quits.
func (p *Pager) SetExitStrategy(strategy ExitStrategy) error {
	return p.ch.send(setExitStrategyCmd{strategy: strategy})
}

// SetRunNoOverflow keeps the pager interactive in static mode even when the
// data fits on a single screen. It has no effect in dynamic mode.
func (p *Pager) SetRunNoOverflow(noOverflow bool) error {
	return p.ch.send(setRunNoOverflowCmd{noOverflow: noOverflow})
}

// SetInputClassifier replaces the whole input classifier.
func (p *Pager) SetInputClassifier(c InputClassifier) error {
	return p.ch.send(setInputClassifierCmd{classifier: c})
}

// AddExitCallback registers a function to run when the user quits. Callbacks
// run exactly once, in the order they were added. They must not capture the
// Pager handle: by the time they run nothing is consuming commands anymore.
func (p *Pager) AddExitCallback(cb func()) error {
	return p.ch.send(addExitCallbackCmd{cb: cb})
}

// SetIncrementalSearchCondition replaces the predicate that decides whether
// a live search preview runs for the current query.
func (p *Pager) SetIncrementalSearchCondition(cond func(*SearchOpts) bool) error {
	return p.ch.send(incrementalSearchConditionCmd{cond: cond})
}

// commandChan is an unbounded multi-producer single-consumer command queue.
// The host may enqueue any amount of data before a paging run starts, so a
// fixed-capacity channel won't do. Senders learn the run has ended by
// send returning ErrClosed.
type commandChan struct {
	mu     sync.Mutex
	buf    []command
	closed bool
	signal chan struct{}
}

func newCommandChan() *commandChan {
	return &commandChan{signal: make(chan struct{}, 1)}
}

func (c *commandChan) send(cmd command) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.buf = append(c.buf, cmd)
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
	return nil
}

// recv blocks until a command is available or the channel is closed.
func (c *commandChan) recv() (command, error) {
	for {
		c.mu.Lock()
		if len(c.buf) > 0 {
			cmd := c.buf[0]
			c.buf = c.buf[1:]
			c.mu.Unlock()
			return cmd, nil
		}
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		c.mu.Unlock()
		<-c.signal
	}
}

// tryRecv returns the next command without blocking.
func (c *commandChan) tryRecv() (command, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) == 0 {
		return nil, false
	}
	cmd := c.buf[0]
	c.buf = c.buf[1:]
	return cmd, true
}

// close marks the channel disconnected and wakes a blocked receiver. Pending
// commands are dropped; from here on send returns ErrClosed.
func (c *commandChan) close() {
	c.mu.Lock()
	c.closed = true
	c.buf = nil
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
}
