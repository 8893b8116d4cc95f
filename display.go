package pager

import (
	"fmt"
	"io"
)

// drawFull clears the screen and redraws everything: the visible page from
// the current upper mark, then the prompt line on the last row.
func drawFull(out *termWriter, p *PagerState) error {
	out.moveTo(0, 0)
	out.clearScreen()

	writeStdout(out, p)

	if p.showPrompt {
		writePrompt(out, p.displayedPrompt, p.rows)
	}
	return out.flush()
}

// writeStdout writes (at most) rows-1 rows starting at the upper mark,
// clamping the mark first so the view never scrolls past the last page. The
// bottom row is always reserved for the prompt.
func writeStdout(out *termWriter, p *PagerState) {
	lineCount := p.screen.FormattedLinesCount()
	writableRows := p.rows - 1

	lowerMark := p.upperMark + min(writableRows, lineCount)
	if lowerMark > lineCount {
		p.upperMark = max(0, lineCount-writableRows)
	}

	writeLines(out, p.screen.getRows(p.upperMark, lowerMark))
}

// writeLines emits rows each preceded by \r. The terminal is in a mode where
// \n moves down without resetting the column, so the \r puts the cursor back
// at the start of each row.
func writeLines(out *termWriter, lines []string) {
	for _, line := range lines {
		out.WriteString("\r")
		out.WriteString(line)
		out.WriteString("\n")
	}
}

// writeLinesChecked writes a page of the given rows with the same clamping
// rules as writeStdout. It is used by the incremental-search preview, which
// renders rows that are not (yet) the screen's own.
func writeLinesChecked(out *termWriter, lines []string, rows int, upperMark *int) error {
	lineCount := len(lines)
	writableRows := rows - 1

	lowerMark := *upperMark + min(writableRows, lineCount)
	if lowerMark > lineCount {
		*upperMark = max(0, lineCount-writableRows)
		lowerMark = *upperMark + min(writableRows, lineCount)
	}

	out.moveTo(0, 0)
	out.clearScreen()
	if *upperMark < lineCount {
		writeLines(out, lines[*upperMark:min(lowerMark, lineCount)])
	}
	return out.flush()
}

// drawForChange redraws the parts of the screen affected by a move of the
// upper mark. Refreshing the entire terminal on every one-row scroll is
// wasteful, so this issues a hardware scroll and repaints only the rows the
// scroll exposed.
func drawForChange(out *termWriter, p *PagerState, newUpperMark int) error {
	lineCount := p.screen.FormattedLinesCount()

	// One row is reserved for the prompt. This, not p.rows, is the height
	// every bound below is computed against.
	writableRows := p.rows - 1

	lowerBound := p.upperMark + min(writableRows, lineCount)
	newLowerBound := newUpperMark + min(writableRows, lineCount)

	// Never scroll past the last line: if the new lower bound runs off the
	// end, pin the view to the last full page.
	if newLowerBound > lineCount {
		newUpperMark = max(0, lineCount-writableRows)
	}

	delta := newUpperMark - p.upperMark
	if delta < 0 {
		delta = -delta
	}
	// A jump larger than the page doesn't need delta rows of output; scroll a
	// full page and paint the destination directly.
	normalizedDelta := min(delta, writableRows)

	var lines []string
	switch {
	case newUpperMark > p.upperMark:
		out.scrollUp(normalizedDelta)
		out.moveTo(0, max(0, p.rows-normalizedDelta-1))
		out.clearLine()

		if delta < writableRows {
			lines = p.screen.getRows(lowerBound, newLowerBound)
		} else {
			lines = p.screen.getRows(newUpperMark, newUpperMark+normalizedDelta)
		}
	case newUpperMark < p.upperMark:
		out.scrollDown(normalizedDelta)
		out.moveTo(0, 0)

		lines = p.screen.getRows(newUpperMark, newUpperMark+normalizedDelta)
	default:
		return nil
	}

	writeLines(out, lines)
	p.upperMark = newUpperMark

	if p.showPrompt {
		writePrompt(out, p.displayedPrompt, p.rows)
	}
	return out.flush()
}

// writePrompt writes text at the prompt row with a reverse-video attribute.
func writePrompt(out *termWriter, text string, rows int) {
	out.moveTo(0, rows-1)
	out.WriteString("\r")
	out.WriteString(attrReverse)
	out.WriteString(text)
	out.WriteString(attrReset)
}

// writeRawLines dumps lines straight to a writer with no terminal
// assumptions. initial is prepended to every line; pass "\r" when the writer
// is a raw-mode terminal.
func writeRawLines(out io.Writer, lines []string, initial string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintf(out, "%s%s\n", initial, line); err != nil {
			return &DrawError{Err: err}
		}
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
