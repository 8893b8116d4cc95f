package pager

import (
	"regexp"
	"strings"
)

// Screen owns the text handed to the pager and every structure derived from
// it. origText grows with every push and is replaced only by setText (the
// SetData command); formattedLines is rebuilt wholesale on any
// configuration change (columns, line numbers, wrapping, search term) and
// grows incrementally on pure appends.
type Screen struct {
	origText strings.Builder
	// formattedLines holds the terminal-ready rows: wrapped, numbered and
	// search-highlighted.
	formattedLines []string
	// lineCount is the number of logical lines, counting at most one trailing
	// partial.
	lineCount     int
	maxLineLength int
	// unterminated is the number of trailing rows in formattedLines produced
	// by a final logical line that was not newline-terminated. On the next
	// append exactly these rows are discarded and the combined line is
	// re-wrapped.
	unterminated int
	// lineWrapping selects between wrapping at the column budget and letting
	// long lines overflow (horizontal scroll mode).
	lineWrapping bool
	// linesToRowMap records, for each logical line, the index in
	// formattedLines of its first row.
	linesToRowMap []int
}

func newScreen() *Screen {
	return &Screen{lineWrapping: true}
}

// FormattedLinesCount returns the number of terminal rows the text occupies.
func (s *Screen) FormattedLinesCount() int {
	return len(s.formattedLines)
}

// LineCount returns the number of logical lines in the text.
func (s *Screen) LineCount() int {
	return s.lineCount
}

// MaxLineLength returns the character length of the longest logical line.
func (s *Screen) MaxLineLength() int {
	return s.maxLineLength
}

// Text returns the raw text pushed so far.
func (s *Screen) Text() string {
	return s.origText.String()
}

// getRows returns the rows in [start, end), clipped to the valid range.
func (s *Screen) getRows(start, end int) []string {
	if start >= len(s.formattedLines) || start > end {
		return nil
	}
	if end > len(s.formattedLines) {
		end = len(s.formattedLines)
	}
	return s.formattedLines[start:end]
}

// push appends text to the screen, formatting only what changed: the new
// text plus, when the previous block ended without a newline, the
// re-combined final line. The returned formatResult carries the freshly
// produced rows (for the renderer's fast path) and the new unterminated
// count.
func (s *Screen) push(text string, lineNumbers LineNumbers, cols int, searchTerm *regexp.Regexp) formatResult {
	orig := s.origText.String()
	cleanAppend := orig == "" || strings.HasSuffix(orig, "\n")

	// The unterminated tail is about to be reformatted together with the
	// incoming text, so drop its rows first.
	s.formattedLines = s.formattedLines[:len(s.formattedLines)-s.unterminated]

	opts := formatOpts{
		text:                text,
		lineNumbers:         lineNumbers,
		linesCount:          s.lineCount,
		formattedLinesCount: len(s.formattedLines),
		prevUnterminated:    s.unterminated,
		cols:                cols,
		lineWrapping:        s.lineWrapping,
		searchTerm:          searchTerm,
	}
	if !cleanAppend {
		if i := strings.LastIndexByte(orig, '\n'); i >= 0 {
			opts.attachment = orig[i+1:]
		} else {
			opts.attachment = orig
		}
		opts.hasAttachment = true
	}

	fr := formatTextBlock(opts)
	s.origText.WriteString(text)

	s.lineCount += fr.linesFormatted
	if !cleanAppend {
		// The first formatted line continued the previous tail rather than
		// starting a new line.
		s.lineCount--
	}
	if fr.maxLineLength > s.maxLineLength {
		s.maxLineLength = fr.maxLineLength
	}
	s.unterminated = fr.numUnterminated
	s.formattedLines = append(s.formattedLines, fr.rows...)
	s.mergeLinesToRowMap(fr.linesToRowMap, cleanAppend)

	return fr
}

// reformat rebuilds every derived structure from origText. Used whenever a
// change invalidates all previously formatted rows.
func (s *Screen) reformat(lineNumbers LineNumbers, cols int, searchTerm *regexp.Regexp) formatResult {
	fr := formatTextBlock(formatOpts{
		text:         s.origText.String(),
		lineNumbers:  lineNumbers,
		cols:         cols,
		lineWrapping: s.lineWrapping,
		searchTerm:   searchTerm,
	})
	s.formattedLines = fr.rows
	s.lineCount = fr.linesFormatted
	s.maxLineLength = fr.maxLineLength
	s.unterminated = fr.numUnterminated
	s.linesToRowMap = fr.linesToRowMap
	return fr
}

// setText replaces the whole text. Unlike push this resets origText, so it is
// only reachable through the SetData command.
func (s *Screen) setText(text string) {
	s.origText.Reset()
	s.origText.WriteString(text)
}

// mergeLinesToRowMap merges the per-block line-to-row map produced by an
// append into the screen-wide one. When the append consumed the unterminated
// tail, the first formatted line replaces the tail's existing entry.
func (s *Screen) mergeLinesToRowMap(entries []int, cleanAppend bool) {
	if !cleanAppend && len(s.linesToRowMap) > 0 {
		s.linesToRowMap = s.linesToRowMap[:len(s.linesToRowMap)-1]
	}
	s.linesToRowMap = append(s.linesToRowMap, entries...)
}
