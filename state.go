package pager

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

// Prompt line color specs. The prompt is displayed with a subdued reverse
// style; the transient message, numeric prefix and search indicator each get
// their own background so they stand apart.
const (
	promptSpec     = "\x1b[2;40;37m"
	searchSpec     = "\x1b[30;44m"
	inputSpec      = "\x1b[30;43m"
	messageSpec    = "\x1b[30;1;41m"
	followModeSpec = attrBold
)

// PagerState is the authoritative in-memory state of a running pager. It is
// owned by the reactor goroutine; the input goroutine briefly locks it to
// classify events and update the numeric prefix. Custom InputClassifier
// implementations receive it with the lock already held and may use the
// accessor methods.
type PagerState struct {
	screen *Screen

	// rows and cols are the current terminal dimensions in cells.
	rows, cols int
	// upperMark is the index into the formatted rows of the first visible
	// row.
	upperMark   int
	lineNumbers LineNumbers

	// prompt is the host-configured prompt text; message, when set, is a
	// transient text displayed in its place until the next keypress.
	prompt     string
	message    string
	hasMessage bool
	// displayedPrompt is the composed, truncated, color-coded prompt line,
	// re-derived whenever any of its inputs change.
	displayedPrompt string
	showPrompt      bool

	// prefixNum accumulates typed digits for numeric prefixes like 10j.
	prefixNum string

	exitStrategy  ExitStrategy
	exitCallbacks []func()
	exited        bool

	inputClassifier InputClassifier
	searchState     SearchState

	// runNoOverflow keeps the pager interactive in static mode even when the
	// data fits on one screen.
	runNoOverflow bool
	// followOutput jumps the view to the end after every append.
	followOutput bool
}

func newPagerState() *PagerState {
	p := &PagerState{
		screen: newScreen(),
		// Sensible defaults for when no terminal is attached; the real size
		// arrives before the first draw.
		rows:            10,
		cols:            80,
		lineNumbers:     LineNumbersDisabled,
		prompt:          defaultPrompt(),
		showPrompt:      true,
		exitStrategy:    ProcessQuit,
		inputClassifier: DefaultEventRegister(),
		searchState:     defaultSearchState(),
	}
	p.formatPrompt()
	return p
}

// defaultPrompt is the executable's basename, the same default less(1)
// effectively shows.
func defaultPrompt() string {
	exe, err := os.Executable()
	if err != nil {
		return "pager"
	}
	return filepath.Base(exe)
}

// Rows returns the terminal height in cells.
func (p *PagerState) Rows() int { return p.rows }

// Cols returns the terminal width in cells.
func (p *PagerState) Cols() int { return p.cols }

// UpperMark returns the index of the topmost visible row.
func (p *PagerState) UpperMark() int { return p.upperMark }

// LineNumberMode returns the current line number configuration.
func (p *PagerState) LineNumberMode() LineNumbers { return p.lineNumbers }

// SearchMode returns the direction of the active search, or SearchUnknown if
// none is active.
func (p *PagerState) SearchMode() SearchMode { return p.searchState.mode }

// PrefixNum returns the value of the accumulated numeric prefix, or def if
// no prefix has been typed.
func (p *PagerState) PrefixNum(def int) int {
	if p.prefixNum == "" {
		return def
	}
	n, err := strconv.Atoi(p.prefixNum)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// Screen returns the screen owned by this state.
func (p *PagerState) Screen() *Screen { return p.screen }

// formatLines rebuilds every formatted row from the original text. Called
// whenever the columns, line-number mode, wrap mode or search term change.
func (p *PagerState) formatLines() {
	fr := p.screen.reformat(p.lineNumbers, p.cols, p.searchState.term)
	p.searchState.idx = fr.searchIdx
	p.formatPrompt()
}

// appendText pushes text into the screen and reports whether the renderer
// can get away with writing just the freshly formatted rows, or the whole
// display needs to be redrawn because every row prefix shifted.
func (p *PagerState) appendText(text string) (rows []string, fullRedraw bool) {
	oldDigits := digits(p.screen.LineCount())
	fr := p.screen.push(text, p.lineNumbers, p.cols, p.searchState.term)
	newDigits := digits(p.screen.LineCount())

	p.searchState.merge(fr.searchIdx)

	// Crossing a digit boundary (9 to 10, 99 to 100) widens the number field
	// of every previously formatted row, so nothing short of a full reformat
	// will do.
	if p.lineNumbers.isOn() && newDigits != oldDigits && oldDigits != 0 {
		p.formatLines()
		return nil, true
	}

	total := p.screen.FormattedLinesCount()
	return p.screen.getRows(total-fr.rowsFormatted, total), false
}

// formatPrompt recomposes the prompt line from the prompt (or transient
// message), the numeric prefix, the search indicator and the follow-mode
// sigil, truncated from the right if it would span more than one row.
func (p *PagerState) formatPrompt() {
	var searchStr string
	if len(p.searchState.idx) > 0 {
		searchStr = " " + strconv.Itoa(p.searchState.mark+1) + "/" +
			strconv.Itoa(len(p.searchState.idx)) + " "
	}

	var prefixStr string
	if p.prefixNum != "" {
		prefixStr = " " + p.prefixNum + " "
	}

	promptStr := p.prompt
	if p.hasMessage {
		promptStr = p.message
	}

	followStr := ""
	if p.followOutput {
		followStr = "[F]"
	}

	indicators := runewidth.StringWidth(searchStr) + runewidth.StringWidth(prefixStr) +
		runewidth.StringWidth(followStr)
	extraSpace := p.cols - indicators - runewidth.StringWidth(promptStr)
	if extraSpace < 0 {
		promptStr = truncate.String(promptStr, uint(max(0, p.cols-indicators)))
		extraSpace = 0
	}

	var b strings.Builder
	if p.hasMessage {
		b.WriteString(messageSpec)
	} else {
		b.WriteString(promptSpec)
	}
	b.WriteString(promptStr)
	b.WriteString(strings.Repeat(" ", extraSpace))
	if prefixStr != "" {
		b.WriteString(inputSpec)
		b.WriteString(prefixStr)
	}
	if searchStr != "" {
		b.WriteString(searchSpec)
		b.WriteString(searchStr)
	}
	if followStr != "" {
		b.WriteString(followModeSpec)
		b.WriteString(followStr)
	}
	b.WriteString(attrReset)

	p.displayedPrompt = b.String()
}

// exit runs the exit callbacks. They fire exactly once, in insertion order,
// on the first quit.
func (p *PagerState) exit() {
	if p.exited {
		return
	}
	p.exited = true
	for _, cb := range p.exitCallbacks {
		cb()
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
