package pager

import (
	"regexp"
	"sort"
)

// SearchMode is the direction of a text search.
type SearchMode int

const (
	// SearchUnknown means no search is active.
	SearchUnknown SearchMode = iota
	// SearchForward is a search opened with '/': n moves to later matches
	// and p to earlier ones.
	SearchForward
	// SearchReverse is a search opened with '?': n and p are swapped, so n
	// moves to earlier matches. Confirming the query still goes to the
	// first match after the upper mark, as in forward mode.
	SearchReverse
)

func (m SearchMode) String() string {
	switch m {
	case SearchForward:
		return "Forward"
	case SearchReverse:
		return "Reverse"
	}
	return "Unknown"
}

// ansiRegex matches the ANSI escape sequences that are stripped from a row
// before regex matching so that styling never hides a match.
var ansiRegex = regexp.MustCompile(
	"[\x1b]\\[[()#;?]*(?:[0-9]{1,4}(?:;[0-9]{0,4})*)?[0-9A-ORZcf-nqry=><]")

// wordRegex splits the search query into word-like runs; Control-Left and
// Control-Right at the search prompt jump between the starts it reports.
var wordRegex = regexp.MustCompile(`([\w_]+)|([-?~@#!$%^&*()-+={}\[\]:;\\|'/?<>.,"]+)|\W`)

// SearchOpts describes the state of the interactive search prompt. It is
// handed to the incremental-search condition so hosts can decide when live
// previews are worth the reformat they cost.
type SearchOpts struct {
	// Query is the text typed so far.
	Query string
	// CursorPosition is the terminal column of the prompt cursor, between 1
	// and len(Query)+1.
	CursorPosition int
	// Mode is the direction of the search.
	Mode SearchMode
	// Rows and Cols are the terminal dimensions.
	Rows, Cols int
	// LineCount is the number of logical lines currently held.
	LineCount int
}

// SearchState holds everything about the current search.
type SearchState struct {
	mode SearchMode
	// term is the compiled search term, nil when no search is active.
	term *regexp.Regexp
	// idx holds the indices of all matching rows, strictly increasing.
	idx []int
	// mark is the ordinal position within idx the user has navigated to.
	mark int
	// incrementalCondition gates incremental search; when it returns false
	// the preview reformat is skipped.
	incrementalCondition func(*SearchOpts) bool
}

func defaultSearchState() SearchState {
	return SearchState{
		mode: SearchUnknown,
		// Incremental search reformats the whole buffer on every keystroke,
		// so by default it stays off for single-character queries and large
		// buffers.
		incrementalCondition: func(so *SearchOpts) bool {
			return len(so.Query) >= 2 && so.LineCount < 5000
		},
	}
}

// merge folds freshly formatted match indices into the sorted index set.
func (s *SearchState) merge(idx []int) {
	if len(idx) == 0 {
		return
	}
	s.idx = append(s.idx, idx...)
	sort.Ints(s.idx)
	// Formatting never reports duplicates, but merging an overlapping block
	// must not corrupt the strictly-increasing invariant.
	out := s.idx[:1]
	for _, v := range s.idx[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	s.idx = out
}

// nextNthMatch returns the position within idx of the nth match after
// upperMark: it finds the first index strictly greater than upperMark and
// advances n-1 further, clamped to the last match. idx must be non-empty.
func nextNthMatch(idx []int, upperMark, n int) int {
	pos := sort.SearchInts(idx, upperMark+1)
	if pos == len(idx) {
		return len(idx) - 1
	}
	pos += n - 1
	if pos > len(idx)-1 {
		pos = len(idx) - 1
	}
	return pos
}

// highlightMatches overlays reverse-video highlight pairs on every match of
// re within line. Escape sequences already present are stripped to locate
// the matches, then re-inserted at their original (stripped-string)
// positions, skipping any that fall inside a highlight pair so the highlight
// is not pre-empted. The second return value reports whether anything
// matched.
func highlightMatches(line string, re *regexp.Regexp) (string, bool) {
	stripped := ansiRegex.ReplaceAllString(line, "")

	if !re.MatchString(stripped) {
		return line, false
	}

	// Find all escapes in the original string and record where each one
	// lives in the stripped string.
	type escapeSeq struct {
		pos int
		seq string
	}
	var escapes []escapeSeq
	sumWidth := 0
	for _, loc := range ansiRegex.FindAllStringIndex(line, -1) {
		seq := line[loc[0]:loc[1]]
		escapes = append(escapes, escapeSeq{pos: loc[0] - sumWidth, seq: seq})
		sumWidth += len(seq)
	}

	// The boundaries of every match in the stripped string, flattened to
	// [start0, end0, start1, end1, ...].
	var bounds []int
	for _, loc := range re.FindAllStringIndex(stripped, -1) {
		bounds = append(bounds, loc[0], loc[1])
	}

	inverted := []byte(re.ReplaceAllStringFunc(stripped, func(m string) string {
		return attrReverse + m + attrNoReverse
	}))

	// Re-insert the original escapes, adjusting each insertion point by the
	// cumulative length of the highlight pairs and escapes inserted before
	// it.
	insertedLen := 0
	for _, esc := range escapes {
		matchCount := 0
		for _, b := range bounds {
			if b <= esc.pos {
				matchCount++
			}
		}
		if matchCount%2 == 1 {
			// The escape falls inside a highlight span; putting it back would
			// pre-empt the highlight color.
			continue
		}

		numInvert := matchCount / 2
		numNormal := matchCount - numInvert
		pos := esc.pos + insertedLen + numInvert*len(attrReverse) + numNormal*len(attrNoReverse)

		inverted = append(inverted[:pos], append([]byte(esc.seq), inverted[pos:]...)...)
		insertedLen += len(esc.seq)
	}

	return string(inverted), true
}

// stripANSI removes all ANSI escape sequences from s.
func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// /////////////////////////////////////////////////////////////////////////
// Interactive search prompt
// /////////////////////////////////////////////////////////////////////////

type searchStatus int

const (
	searchActive searchStatus = iota
	searchConfirmed
	searchCancelled
)

// incrementalSearchOpts snapshots what the live preview needs: the raw text
// to reformat and the display to restore when the preview is abandoned.
type incrementalSearchOpts struct {
	text                  string
	lineNumbers           LineNumbers
	lineWrapping          bool
	rows, cols            int
	lineCount             int
	initialFormattedLines []string
	initialUpperMark      int
	// upperMark is where the most recent preview has scrolled to.
	upperMark int
}

// incrementalSearchResult is a preview the prompt produced without
// committing: the throwaway formatted rows and where the next match was
// found.
type incrementalSearchResult struct {
	formattedLines []string
	searchMark     int
	searchIdx      []int
	upperMark      int
}

// searchInput is the state of one run of the search prompt mini-loop.
type searchInput struct {
	query      []rune
	cursor     int // column of the cursor, in [1, len(query)+1]
	wordIndex  []int
	searchChar rune
	status     searchStatus
	compiled   *regexp.Regexp
	incrResult *incrementalSearchResult
}

func newSearchInput(mode SearchMode) *searchInput {
	ch := '/'
	if mode == SearchReverse {
		ch = '?'
	}
	return &searchInput{cursor: 1, searchChar: ch}
}

func (si *searchInput) opts(inc *incrementalSearchOpts, mode SearchMode) *SearchOpts {
	return &SearchOpts{
		Query:          string(si.query),
		CursorPosition: si.cursor,
		Mode:           mode,
		Rows:           inc.rows,
		Cols:           inc.cols,
		LineCount:      inc.lineCount,
	}
}

func (si *searchInput) populateWordIndex() {
	si.wordIndex = si.wordIndex[:0]
	for _, loc := range wordRegex.FindAllStringIndex(string(si.query), -1) {
		si.wordIndex = append(si.wordIndex, loc[0]+1)
	}
}

// runIncrementalSearch performs one live preview: it reformats the raw text
// against the current query, scrolls the preview to the next match after the
// pre-search position, and writes it without committing anything. When the
// query stops being previewable the original rows are written back.
func (si *searchInput) runIncrementalSearch(out *termWriter, inc *incrementalSearchOpts,
	cond func(*SearchOpts) bool, mode SearchMode) (*incrementalSearchResult, error) {

	proceed := cond(si.opts(inc, mode))

	restore := func() error {
		um := inc.initialUpperMark
		return writeLinesChecked(out, inc.initialFormattedLines, inc.rows, &um)
	}

	if si.incrResult != nil && (si.compiled == nil || !proceed) {
		if err := restore(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if si.compiled == nil || !proceed {
		return nil, nil
	}

	fr := formatTextBlock(formatOpts{
		text:         inc.text,
		lineNumbers:  inc.lineNumbers,
		cols:         inc.cols,
		lineWrapping: inc.lineWrapping,
		searchTerm:   si.compiled,
	})

	if len(fr.searchIdx) == 0 {
		if si.incrResult != nil {
			if err := restore(); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	pos := nextNthMatch(fr.searchIdx, inc.initialUpperMark, 1)
	um := fr.searchIdx[pos]
	if err := writeLinesChecked(out, fr.rows, inc.rows, &um); err != nil {
		return nil, err
	}
	return &incrementalSearchResult{
		formattedLines: fr.rows,
		searchMark:     pos,
		searchIdx:      fr.searchIdx,
		upperMark:      um,
	}, nil
}

// refreshDisplay recompiles the query, reruns the incremental preview and
// redraws the prompt line.
func (si *searchInput) refreshDisplay(out *termWriter, inc *incrementalSearchOpts,
	cond func(*SearchOpts) bool, mode SearchMode) error {

	re, err := regexp.Compile(string(si.query))
	if err != nil {
		re = nil
	}
	si.compiled = re

	res, err := si.runIncrementalSearch(out, inc, cond, mode)
	if err != nil {
		return err
	}
	si.incrResult = res
	if res != nil {
		inc.upperMark = res.upperMark
	}

	out.moveTo(0, inc.rows-1)
	out.WriteString("\r")
	out.clearLine()
	out.WriteString(string(si.searchChar))
	out.WriteString(string(si.query))
	return nil
}

// handleSearchKey responds to one event at the search prompt. Mouse and
// resize events are ignored; everything else edits the query, moves the
// cursor, or closes the prompt.
func (si *searchInput) handleSearchKey(ev Event, out *termWriter, inc *incrementalSearchOpts,
	cond func(*SearchOpts) bool, mode SearchMode) error {

	if ev.Kind != KeyEvent {
		return nil
	}

	const firstColumn = 1
	lastColumn := len(si.query) + 1

	moveCursor := func(col int) error {
		out.moveTo(col, inc.rows-1)
		return out.flush()
	}

	switch ev.Key {
	case KeyEscape:
		si.query = si.query[:0]
		si.status = searchCancelled

	case KeyEnter:
		si.status = searchConfirmed

	case KeyBackspace:
		// Remove the character just before the cursor, unless we are at the
		// very first column.
		if si.cursor == firstColumn {
			return nil
		}
		si.cursor--
		si.query = append(si.query[:si.cursor-1], si.query[si.cursor:]...)
		si.populateWordIndex()
		if err := si.refreshDisplay(out, inc, cond, mode); err != nil {
			return err
		}
		out.moveTo(si.cursor, inc.rows-1)
		return out.flush()

	case KeyDelete:
		// Remove the character under the cursor, unless we are just past the
		// last character.
		if si.cursor >= lastColumn {
			return nil
		}
		si.query = append(si.query[:si.cursor-1], si.query[si.cursor:]...)
		si.populateWordIndex()
		if err := si.refreshDisplay(out, inc, cond, mode); err != nil {
			return err
		}
		out.moveTo(si.cursor, inc.rows-1)
		return out.flush()

	case KeyLeft:
		if si.cursor == firstColumn {
			return nil
		}
		si.cursor--
		return moveCursor(si.cursor)

	case KeyLeft | ModCtrl:
		// Jump to the start of the word immediately before the cursor, or to
		// the first column when there is none.
		col := firstColumn
		for i := len(si.wordIndex) - 1; i >= 0; i-- {
			if si.wordIndex[i] < si.cursor {
				col = si.wordIndex[i]
				break
			}
		}
		si.cursor = col
		return moveCursor(si.cursor)

	case KeyRight:
		if si.cursor >= lastColumn {
			return nil
		}
		si.cursor++
		return moveCursor(si.cursor)

	case KeyRight | ModCtrl:
		// Jump to the start of the word immediately after the cursor, or to
		// the last column when there is none.
		next := lastColumn
		for _, w := range si.wordIndex {
			if w > si.cursor {
				next = w
				break
			}
		}
		si.cursor = next
		return moveCursor(si.cursor)

	case KeyHome:
		si.cursor = firstColumn
		return moveCursor(si.cursor)

	case KeyEnd:
		si.cursor = lastColumn
		return moveCursor(si.cursor)

	default:
		if ev.Key < 32 || ev.Key&(ModCtrl|ModAlt) != 0 || ev.Key >= KeyUnknown {
			return nil
		}
		si.query = append(si.query[:si.cursor-1],
			append([]rune{ev.Key}, si.query[si.cursor-1:]...)...)
		si.populateWordIndex()
		if err := si.refreshDisplay(out, inc, cond, mode); err != nil {
			return err
		}
		si.cursor++
		out.moveTo(si.cursor, inc.rows-1)
		return out.flush()
	}
	return nil
}

// fetchInputResult is what the search prompt hands back to the handler.
type fetchInputResult struct {
	query string
	re    *regexp.Regexp
	incr  *incrementalSearchResult
}

// fetchSearchQuery runs the search prompt mini-loop: it writes the search
// sigil at the prompt row, shows the cursor, and consumes events from the
// input goroutine until the query is confirmed with Enter or abandoned with
// Esc. Cancellation returns an empty query.
func fetchSearchQuery(out *termWriter, events <-chan Event, exited *exitFlag,
	ps *PagerState) (fetchInputResult, error) {

	si := newSearchInput(ps.searchState.mode)
	inc := &incrementalSearchOpts{
		text:                  ps.screen.Text(),
		lineNumbers:           ps.lineNumbers,
		lineWrapping:          ps.screen.lineWrapping,
		rows:                  ps.rows,
		cols:                  ps.cols,
		lineCount:             ps.screen.LineCount(),
		initialFormattedLines: ps.screen.formattedLines,
		initialUpperMark:      ps.upperMark,
		upperMark:             ps.upperMark,
	}

	out.moveTo(0, inc.rows-1)
	out.clearLine()
	out.WriteString(string(si.searchChar))
	out.showCursor()
	if err := out.flush(); err != nil {
		return fetchInputResult{}, err
	}

	for si.status == searchActive {
		ev, ok := <-events
		if !ok || exited.isSet() {
			si.status = searchCancelled
			break
		}
		if err := si.handleSearchKey(ev, out, inc, ps.searchState.incrementalCondition,
			ps.searchState.mode); err != nil {
			return fetchInputResult{}, err
		}
	}

	// Teardown, almost the opposite of setup.
	out.moveTo(0, inc.rows-1)
	out.clearLine()
	out.hideCursor()
	if err := out.flush(); err != nil {
		return fetchInputResult{}, err
	}

	if si.status == searchCancelled {
		return fetchInputResult{}, nil
	}
	return fetchInputResult{
		query: string(si.query),
		re:    si.compiled,
		incr:  si.incrResult,
	}, nil
}
