package pager

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
)

// exitFlag is the single termination signal both goroutines poll.
type exitFlag struct{ atomic.Bool }

func (f *exitFlag) set()        { f.Store(true) }
func (f *exitFlag) isSet() bool { return f.Load() }

// inputGate routes events away from the classifier while the search prompt
// owns the input. The input goroutine checks it for every event; the search
// mini-loop consumes from ch until the handler flips searching back off.
type inputGate struct {
	mu        sync.Mutex
	searching bool
	ch        chan Event
}

func newInputGate() *inputGate {
	return &inputGate{ch: make(chan Event, 64)}
}

func (g *inputGate) beginSearch() {
	g.mu.Lock()
	g.searching = true
	g.mu.Unlock()
}

func (g *inputGate) endSearch() {
	g.mu.Lock()
	g.searching = false
	// Drop anything typed between Enter and the classifier resuming.
	for {
		select {
		case <-g.ch:
			continue
		default:
		}
		break
	}
	g.mu.Unlock()
}

// route hands ev to the search loop if one is running. It reports whether
// the event was consumed.
func (g *inputGate) route(ev Event) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.searching {
		return false
	}
	select {
	case g.ch <- ev:
	default:
		// The search loop is not keeping up; dropping beats deadlocking the
		// input goroutine.
	}
	return true
}

// handlerEnv bundles what applying a command may need besides the state.
type handlerEnv struct {
	out    *termWriter
	queue  *commandQueue
	exited *exitFlag
	gate   *inputGate
	// active is false while the initial state is assembled from queued
	// commands, before the terminal is set up; no drawing happens then.
	active bool
}

// handleCommand applies one command to the pager state, redraws whatever the
// command invalidated, and pushes any follow-up commands onto the internal
// queue.
func handleCommand(cmd command, p *PagerState, env *handlerEnv) error {
	debugPrintf("handle: %s\n", cmd)

	switch c := cmd.(type) {
	case appendDataCmd:
		return handleAppend(c.text, p, env)

	case setDataCmd:
		p.screen.setText(c.text)
		p.formatLines()
		return drawFullIfActive(p, env)

	case setPromptCmd:
		if strings.ContainsRune(c.text, '\n') {
			panic("pager: prompt cannot contain newlines")
		}
		p.prompt = c.text
		p.formatPrompt()
		return drawPromptIfActive(p, env)

	case sendMessageCmd:
		if strings.ContainsRune(c.text, '\n') {
			panic("pager: message cannot contain newlines")
		}
		p.message = c.text
		p.hasMessage = true
		p.formatPrompt()
		return drawPromptIfActive(p, env)

	case showPromptCmd:
		p.showPrompt = c.show
		return drawFullIfActive(p, env)

	case setLineNumbersCmd:
		p.lineNumbers = c.mode
		p.formatLines()
		return drawFullIfActive(p, env)

	case lineWrappingCmd:
		p.screen.lineWrapping = c.wrap
		p.formatLines()
		return drawFullIfActive(p, env)

	case followOutputCmd:
		p.followOutput = c.follow
		p.formatPrompt()
		if c.follow && env.active {
			return drawForChange(env.out, p, math.MaxInt/2)
		}
		return drawPromptIfActive(p, env)

	case setExitStrategyCmd:
		p.exitStrategy = c.strategy

	case setRunNoOverflowCmd:
		p.runNoOverflow = c.noOverflow

	case setInputClassifierCmd:
		p.inputClassifier = c.classifier

	case addExitCallbackCmd:
		p.exitCallbacks = append(p.exitCallbacks, c.cb)

	case incrementalSearchConditionCmd:
		p.searchState.incrementalCondition = c.cond

	case formatRedrawPromptCmd:
		p.formatPrompt()
		return drawPromptIfActive(p, env)

	case formatRedrawDisplayCmd:
		p.formatLines()
		return drawFullIfActive(p, env)

	case userInputCmd:
		return handleInputEvent(c.ev, p, env)

	default:
		panic(fmt.Sprintf("pager: unknown command %T", cmd))
	}
	return nil
}

// handleAppend runs the incremental append path. A partial update suffices
// unless the number field widened (full reformat) or the new rows land
// inside the visible page.
func handleAppend(text string, p *PagerState, env *handlerEnv) error {
	rows, fullRedraw := p.appendText(text)
	if !env.active {
		return nil
	}
	if fullRedraw {
		if p.followOutput {
			// drawFull clamps the mark to the last page.
			p.upperMark = math.MaxInt / 2
		}
		return drawFull(env.out, p)
	}

	oldTotal := p.screen.FormattedLinesCount() - len(rows)
	if oldTotal < p.upperMark+p.rows-1 {
		// Part of the fresh rows is visible right now, so the page is
		// redrawn. In follow mode it is first pinned to the last page.
		if p.followOutput {
			p.upperMark = math.MaxInt / 2
		}
		return drawFull(env.out, p)
	}

	if p.followOutput {
		p.formatPrompt()
		return drawForChange(env.out, p, math.MaxInt/2)
	}
	// Everything new landed below the fold; nothing on screen changed.
	return nil
}

func handleInputEvent(ev InputEvent, p *PagerState, env *handlerEnv) error {
	// A transient message lives until the next keypress.
	if p.hasMessage {
		if _, isNum := ev.(Number); !isNum {
			p.hasMessage = false
			p.message = ""
			p.formatPrompt()
		}
	}

	switch e := ev.(type) {
	case Exit:
		p.exit()
		env.exited.set()
		return nil

	case UpdateUpperMark:
		to := e.To
		if lc := p.screen.FormattedLinesCount(); to > lc {
			to = lc
		}
		if to < 0 {
			to = 0
		}
		if !env.active {
			p.upperMark = to
			clampUpperMark(p)
			return nil
		}
		return drawForChange(env.out, p, to)

	case UpdateTermArea:
		p.cols, p.rows = e.Cols, e.Rows
		p.formatLines()
		clampUpperMark(p)
		return drawFullIfActive(p, env)

	case UpdateLineNumbers:
		p.lineNumbers = e.Mode
		p.formatLines()
		return drawFullIfActive(p, env)

	case ToggleLineWrapping:
		p.screen.lineWrapping = !p.screen.lineWrapping
		p.formatLines()
		return drawFullIfActive(p, env)

	case RestorePrompt:
		p.hasMessage = false
		p.message = ""
		p.formatPrompt()
		return drawPromptIfActive(p, env)

	case Number:
		p.prefixNum += string(e.Digit)
		p.formatPrompt()
		return drawPromptIfActive(p, env)

	case StartSearch:
		return handleSearch(e.Mode, p, env)

	case NextMatch:
		return moveToNextNthMatch(1, p, env)
	case MoveToNextMatch:
		return moveToNextNthMatch(e.N, p, env)

	case PrevMatch:
		return moveToPrevNthMatch(1, p, env)
	case MoveToPrevMatch:
		return moveToPrevNthMatch(e.N, p, env)
	}
	return nil
}

// clampUpperMark enforces that the view never extends past the last row.
func clampUpperMark(p *PagerState) {
	lineCount := p.screen.FormattedLinesCount()
	writableRows := p.rows - 1
	if p.upperMark+min(writableRows, lineCount) > lineCount {
		p.upperMark = max(0, lineCount-writableRows)
	}
}

// handleSearch runs the interactive search prompt and, on confirmation,
// installs the term and navigates to the first match after the current
// position.
func handleSearch(mode SearchMode, p *PagerState, env *handlerEnv) error {
	if !env.active {
		return nil
	}
	p.searchState.mode = mode

	env.gate.beginSearch()
	res, err := fetchSearchQuery(env.out, env.gate.ch, env.exited, p)
	env.gate.endSearch()
	if err != nil {
		return err
	}

	if res.query == "" {
		// Cancelled; put the original rows back.
		env.queue.push(formatRedrawDisplayCmd{})
		return nil
	}

	re, cerr := regexp.Compile(res.query)
	if cerr != nil {
		p.message = "Invalid regular expression. Press Enter"
		p.hasMessage = true
		env.queue.push(formatRedrawDisplayCmd{})
		return nil
	}

	p.searchState.term = re
	p.formatLines()
	// Reset the mark so it can't be out of bounds when this search has fewer
	// matches than the last one.
	p.searchState.mark = 0
	if len(p.searchState.idx) > 0 {
		pos := nextNthMatch(p.searchState.idx, p.upperMark, 1)
		p.searchState.mark = pos
		if y := p.searchState.idx[pos]; y > p.upperMark {
			p.upperMark = y
			clampUpperMark(p)
		}
	}
	env.queue.push(formatRedrawDisplayCmd{})
	return nil
}

func moveToNextNthMatch(n int, p *PagerState, env *handlerEnv) error {
	s := &p.searchState
	if s.term == nil || len(s.idx) == 0 {
		return nil
	}
	pos := nextNthMatch(s.idx, p.upperMark, n)
	s.mark = pos
	p.formatPrompt()
	if y := s.idx[pos]; y > p.upperMark {
		if env.active {
			return drawForChange(env.out, p, y)
		}
		p.upperMark = y
		clampUpperMark(p)
	}
	return drawPromptIfActive(p, env)
}

func moveToPrevNthMatch(n int, p *PagerState, env *handlerEnv) error {
	s := &p.searchState
	if s.term == nil || len(s.idx) == 0 {
		return nil
	}
	s.mark = max(0, s.mark-n)
	p.formatPrompt()
	// Scroll only when the chosen match is off-screen above; a match already
	// visible doesn't warrant moving the view.
	if y := s.idx[s.mark]; y < p.upperMark {
		if env.active {
			return drawForChange(env.out, p, y)
		}
		p.upperMark = y
	}
	return drawPromptIfActive(p, env)
}

func drawFullIfActive(p *PagerState, env *handlerEnv) error {
	if !env.active {
		return nil
	}
	return drawFull(env.out, p)
}

func drawPromptIfActive(p *PagerState, env *handlerEnv) error {
	if !env.active || !p.showPrompt {
		return nil
	}
	writePrompt(env.out, p.displayedPrompt, p.rows)
	return env.out.flush()
}
