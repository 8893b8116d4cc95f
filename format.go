package pager

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

// extraPadding is the space reserved to the left of the line-number field in
// addition to the digits themselves. Together with one column for the dot,
// the number field is digits+extraPadding+1 wide; one space separates it from
// the text, and the text budget holds back two columns beyond the field.
const extraPadding = 5

// styledLineNumbers controls whether the line-number prefix is wrapped in
// bold/reset attributes. Tests turn this off because the escapes add noise
// without changing layout.
var styledLineNumbers = true

// digits returns the number of digits in num.
func digits(num int) int {
	n := 1
	for num >= 10 {
		num /= 10
		n++
	}
	return n
}

// splitLines splits a text block into its logical lines, excluding the
// newline terminators. Unlike strings.Split, a trailing newline does not
// produce a final empty line, matching the way the formatter counts lines.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" && strings.HasSuffix(text, "\n") {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// wrapLine breaks line into rows of at most width columns. Word boundaries
// are preferred; words longer than the budget are hard-broken so no row ever
// exceeds it.
func wrapLine(line string, width int) []string {
	if width < 1 {
		width = 1
	}
	wrapped := wrap.String(wordwrap.String(line, width), width)
	return strings.Split(wrapped, "\n")
}

// formatOpts carries everything formatTextBlock needs to turn a block of raw
// text into terminal-ready rows.
type formatOpts struct {
	// text is the incoming text block.
	text string
	// attachment is the unterminated final line of the already-present text,
	// if there is one. It is logically prepended to text so the combined line
	// is re-wrapped as a whole.
	attachment    string
	hasAttachment bool
	lineNumbers   LineNumbers
	// linesCount is the number of logical lines already present; it decides
	// the line number of the first formatted line.
	linesCount int
	// formattedLinesCount is the number of rows already present (after the
	// unterminated tail has been truncated). Search indices and the
	// line-to-row map are produced relative to it.
	formattedLinesCount int
	// prevUnterminated is the number of rows the attachment previously
	// occupied.
	prevUnterminated int
	cols             int
	lineWrapping     bool
	searchTerm       *regexp.Regexp
}

// formatResult reports the rows produced by formatTextBlock along with the
// bookkeeping values tracked while formatting.
type formatResult struct {
	rows []string
	// linesFormatted is the number of logical lines formatted from the
	// combined text.
	linesFormatted int
	// rowsFormatted is the number of rows appended to the buffer.
	rowsFormatted int
	// numUnterminated is the row span of the final logical line when the
	// incoming block did not end with a newline, and 0 otherwise.
	numUnterminated int
	// searchIdx holds the absolute indices of rows matching the search term,
	// in increasing order.
	searchIdx []int
	// linesToRowMap maps each formatted logical line to the absolute index of
	// its first row.
	linesToRowMap []int
	// maxLineLength is the length in characters of the longest logical line
	// seen, pre-wrap.
	maxLineLength int
	cleanAppend   bool
}

// formatTextBlock formats one block of text. The block may continue a
// previously unterminated line (opts.attachment), in which case the combined
// line is reformatted and occupies the slot of the old tail.
func formatTextBlock(opts formatOpts) formatResult {
	fr := formatResult{
		numUnterminated: opts.prevUnterminated,
		cleanAppend:     !opts.hasAttachment,
	}

	toFormat := opts.text
	if opts.hasAttachment {
		// The first line of the incoming text continues the attachment, so it
		// keeps the attachment's line number. The caller has already dropped
		// the attachment's rows, so formattedLinesCount needs no adjustment.
		opts.linesCount--
		toFormat = opts.attachment + opts.text
	}

	lines := splitLines(toFormat)
	if len(lines) == 0 {
		return fr
	}
	fr.linesFormatted = len(lines)

	numberDigits := digits(opts.linesCount + len(lines))

	rowIdx := opts.formattedLinesCount
	for i, line := range lines {
		fr.linesToRowMap = append(fr.linesToRowMap, rowIdx)
		rows := formatLine(line, numberDigits, opts.linesCount+i, rowIdx, &opts, &fr.searchIdx)
		if i == len(lines)-1 && !strings.HasSuffix(opts.text, "\n") {
			fr.numUnterminated = len(rows)
		} else if i == len(lines)-1 {
			fr.numUnterminated = 0
		}
		fr.rows = append(fr.rows, rows...)
		rowIdx += len(rows)
		if l := utf8.RuneCountInString(line); l > fr.maxLineLength {
			fr.maxLineLength = l
		}
	}
	fr.rowsFormatted = rowIdx - opts.formattedLinesCount

	return fr
}

// formatLine turns one logical line into its terminal rows: wrapped to the
// column budget, search matches highlighted, and the line-number prefix
// attached to the first row. Matching row indices are appended to searchIdx.
func formatLine(line string, numberDigits, lineIdx, rowIdx int, opts *formatOpts, searchIdx *[]int) []string {
	if strings.ContainsRune(line, '\n') {
		panic(fmt.Sprintf("pager: newline in line %q", line))
	}

	numbered := opts.lineNumbers.isOn()

	// The number field is padding wide and is followed by one separating
	// space; the text budget holds back two columns beyond the field.
	padding := numberDigits + extraPadding + 1

	budget := opts.cols
	if numbered {
		budget -= padding + 2
	}

	var rows []string
	if opts.lineWrapping {
		rows = wrapLine(line, budget)
	} else {
		rows = []string{line}
	}

	for i, row := range rows {
		if opts.searchTerm != nil {
			if highlighted, matched := highlightMatches(row, opts.searchTerm); matched {
				rows[i] = highlighted
				row = highlighted
				*searchIdx = append(*searchIdx, rowIdx+i)
			}
		}
		if numbered {
			if i == 0 {
				number := strconv.Itoa(lineIdx+1) + "."
				if styledLineNumbers {
					rows[i] = fmt.Sprintf("%s%*s%s %s", attrBold, padding, number, attrReset, row)
				} else {
					rows[i] = fmt.Sprintf("%*s %s", padding, number, row)
				}
			} else {
				rows[i] = fmt.Sprintf("%*s %s", padding, "", row)
			}
		}
	}
	return rows
}
