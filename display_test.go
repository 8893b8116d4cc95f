package pager

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

// mockTerm interprets the escape sequences the renderer emits into a cell
// grid, so tests can assert on what actually ends up on screen.
type mockTerm struct {
	contents []rune
	width    int
	height   int
	cursorX  int
	cursorY  int
}

var seqRE = regexp.MustCompile(`^\x1b\[([0-9;?]*)([ABCDHJKmSThl])`)

func newMockTerm(w, h int) *mockTerm {
	return &mockTerm{
		contents: make([]rune, w*h),
		width:    w,
		height:   h,
	}
}

func (t *mockTerm) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		m := seqRE.FindSubmatch(p)
		if m != nil {
			params := strings.Split(string(m[1]), ";")
			num := func(i, def int) int {
				if i >= len(params) || params[i] == "" {
					return def
				}
				n, err := strconv.Atoi(params[i])
				if err != nil {
					return def
				}
				return n
			}
			switch m[2][0] {
			case 'A':
				t.moveTo(t.cursorX, t.cursorY-num(0, 1))
			case 'B':
				t.moveTo(t.cursorX, t.cursorY+num(0, 1))
			case 'C':
				t.moveTo(t.cursorX+num(0, 1), t.cursorY)
			case 'D':
				t.moveTo(t.cursorX-num(0, 1), t.cursorY)
			case 'H':
				t.moveTo(num(1, 1)-1, num(0, 1)-1)
			case 'J':
				t.eraseScreen(num(0, 0))
			case 'K':
				t.eraseLine(num(0, 0))
			case 'S':
				t.scrollUp(num(0, 1))
			case 'T':
				t.scrollDown(num(0, 1))
			case 'm', 'h', 'l':
				// Attributes and mode switches don't affect the grid.
			default:
				return -1, fmt.Errorf("unknown CSI command: %q", m[2][0])
			}
			p = p[len(m[0]):]
			continue
		}
		r, l := utf8.DecodeRune(p)
		if r == utf8.RuneError {
			return -1, fmt.Errorf("unable to decode utf8: [% x]", p)
		}
		t.put(r)
		p = p[l:]
	}
	return total, nil
}

// row returns the visible text of row y with trailing blanks trimmed.
func (t *mockTerm) row(y int) string {
	var buf strings.Builder
	for x := 0; x < t.width; x++ {
		r := t.contents[t.position(x, y)]
		if r == 0 {
			r = ' '
		}
		buf.WriteRune(r)
	}
	return strings.TrimRight(buf.String(), " ")
}

// rows returns the visible text of every row.
func (t *mockTerm) rows() []string {
	out := make([]string, t.height)
	for y := 0; y < t.height; y++ {
		out[y] = t.row(y)
	}
	return out
}

func (t *mockTerm) moveTo(x, y int) {
	if x < 0 {
		x = 0
	} else if x > t.width {
		x = t.width
	}
	if y < 0 {
		y = 0
	} else if y > t.height-1 {
		y = t.height - 1
	}
	t.cursorX = x
	t.cursorY = y
}

func (t *mockTerm) eraseScreen(n int) {
	switch n {
	case 0:
		t.fill(t.cursorX, t.cursorY, t.width-t.cursorX, 1, 0)
		t.fill(0, t.cursorY+1, t.width, t.height-(t.cursorY+1), 0)
	case 1:
		t.fill(0, 0, t.width, t.cursorY, 0)
		t.fill(0, t.cursorY, t.cursorX, 1, 0)
	case 2:
		t.fill(0, 0, t.width, t.height, 0)
	}
}

func (t *mockTerm) eraseLine(n int) {
	switch n {
	case 0:
		t.fill(t.cursorX, t.cursorY, t.width-t.cursorX, 1, 0)
	case 1:
		t.fill(0, t.cursorY, t.cursorX, 1, 0)
	case 2:
		t.fill(0, t.cursorY, t.width, 1, 0)
	}
}

func (t *mockTerm) scrollUp(n int) {
	for i := n; i < t.height; i++ {
		copy(t.line(i-n), t.line(i))
	}
	for i := t.height - n; i < t.height; i++ {
		if i >= 0 {
			t.fill(0, i, t.width, 1, 0)
		}
	}
}

func (t *mockTerm) scrollDown(n int) {
	for i := t.height - 1; i >= n; i-- {
		copy(t.line(i), t.line(i-n))
	}
	for i := 0; i < n && i < t.height; i++ {
		t.fill(0, i, t.width, 1, 0)
	}
}

func (t *mockTerm) position(x, y int) int {
	return x + y*t.width
}

func (t *mockTerm) put(r rune) {
	switch r {
	case '\r':
		t.moveTo(0, t.cursorY)
	case '\n':
		if t.cursorY+1 < t.height {
			t.cursorY++
			return
		}
		t.cursorX = 0
		t.scrollUp(1)
	default:
		if t.cursorX < t.width && t.cursorY < t.height {
			t.contents[t.position(t.cursorX, t.cursorY)] = r
		}
		if t.cursorX+1 < t.width {
			t.cursorX++
		}
	}
}

func (t *mockTerm) line(y int) []rune {
	return t.contents[y*t.width : (y+1)*t.width]
}

func (t *mockTerm) fill(x, y, width, height int, r rune) {
	for i := 0; i < height; i++ {
		for j := 0; j < width; j++ {
			t.contents[t.position(x+j, y+i)] = r
		}
	}
}

// newTestState builds a PagerState with deterministic dimensions and prompt.
func newTestState(cols, rows int, ln LineNumbers, text string) *PagerState {
	p := newPagerState()
	p.cols, p.rows = cols, rows
	p.lineNumbers = ln
	p.prompt = "pager"
	p.screen.setText(text)
	p.formatLines()
	return p
}

func TestDrawFullShortText(t *testing.T) {
	p := newTestState(80, 10, LineNumbersDisabled, "A line\nAnother line")
	// The host trying to scroll past the end is clamped back to the top.
	p.upperMark = 1

	term := newMockTerm(80, 10)
	out := newTermWriter(term)
	require.NoError(t, drawFull(out, p))

	require.Equal(t, 0, p.upperMark)
	require.Equal(t, "A line", term.row(0))
	require.Equal(t, "Another line", term.row(1))
	for y := 2; y < 9; y++ {
		require.Empty(t, term.row(y))
	}
}

func TestDrawFullLineNumbers(t *testing.T) {
	p := newTestState(80, 4, LineNumbersEnabled,
		"A line\nAnother line\nThird line\nFourth line")
	p.upperMark = 1

	term := newMockTerm(80, 4)
	out := newTermWriter(term)
	require.NoError(t, drawFull(out, p))

	require.Equal(t, 1, p.upperMark)
	require.Equal(t, "     2. Another line", term.row(0))
	require.Equal(t, "     3. Third line", term.row(1))
	require.Equal(t, "     4. Fourth line", term.row(2))
}

func TestDrawFullDigitBoundaryPadding(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 110; i++ {
		fmt.Fprintf(&b, "L%d\n", i)
	}
	p := newTestState(80, 11, LineNumbersAlwaysOn, b.String())
	p.upperMark = 95

	term := newMockTerm(80, 11)
	out := newTermWriter(term)
	require.NoError(t, drawFull(out, p))

	require.Equal(t, "      96. L95", term.row(0))
	require.Equal(t, "      99. L98", term.row(3))
	require.Equal(t, "     100. L99", term.row(4))
	require.Equal(t, "     105. L104", term.row(9))
}

func TestDrawFullPromptRow(t *testing.T) {
	p := newTestState(40, 5, LineNumbersDisabled, "a\nb\nc\nd\ne\nf\ng\n")

	term := newMockTerm(40, 5)
	out := newTermWriter(term)
	require.NoError(t, drawFull(out, p))

	// The prompt occupies the last row, padded out to the full width.
	require.True(t, strings.HasPrefix(term.row(4), "pager"), "row=%q", term.row(4))
}

func manyLines(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func TestDrawForChangeEquivalence(t *testing.T) {
	// Property: a delta redraw and a full redraw of the same target state
	// put the same rows on screen.
	const cols, rows = 40, 8
	text := manyLines(50)

	testCases := []struct {
		from, to int
	}{
		{0, 1},
		{0, 5},
		{5, 2},
		{10, 10},
		{0, 30},
		{30, 0},
		{40, 43},
		{43, 39},
		{0, 1000},
	}
	for _, c := range testCases {
		t.Run(fmt.Sprintf("%d_to_%d", c.from, c.to), func(t *testing.T) {
			delta := newTestState(cols, rows, LineNumbersDisabled, text)
			delta.upperMark = c.from
			dterm := newMockTerm(cols, rows)
			dout := newTermWriter(dterm)
			require.NoError(t, drawFull(dout, delta))
			require.NoError(t, drawForChange(dout, delta, c.to))

			full := newTestState(cols, rows, LineNumbersDisabled, text)
			full.upperMark = delta.upperMark
			fterm := newMockTerm(cols, rows)
			fout := newTermWriter(fterm)
			require.NoError(t, drawFull(fout, full))

			require.Equal(t, fterm.rows(), dterm.rows())
			require.Equal(t, full.upperMark, delta.upperMark)
		})
	}
}

func TestDrawForChangeClamp(t *testing.T) {
	// Property: after any mark change, the view never extends past the last
	// row.
	const rows = 8
	p := newTestState(40, rows, LineNumbersDisabled, manyLines(20))
	term := newMockTerm(40, rows)
	out := newTermWriter(term)
	require.NoError(t, drawFull(out, p))

	for _, to := range []int{5, 100, 0, 19, 13, 1 << 40} {
		require.NoError(t, drawForChange(out, p, to))
		lineCount := p.screen.FormattedLinesCount()
		require.LessOrEqual(t, p.upperMark+min(rows-1, lineCount), lineCount,
			"target %d left upperMark at %d", to, p.upperMark)
	}
}

func TestWriteRawLines(t *testing.T) {
	var b strings.Builder
	require.NoError(t, writeRawLines(&b, []string{"a", "b"}, "\r"))
	require.Equal(t, "\ra\n\rb\n", b.String())
}

func TestWriteLinesCheckedClamps(t *testing.T) {
	term := newMockTerm(20, 5)
	out := newTermWriter(term)
	lines := []string{"one", "two", "three", "four", "five", "six"}

	upperMark := 100
	require.NoError(t, writeLinesChecked(out, lines, 5, &upperMark))
	require.Equal(t, 2, upperMark)
	require.Equal(t, "three", term.row(0))
	require.Equal(t, "six", term.row(3))
}
