package pager

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// The bold/reset pair around line numbers adds noise without changing
	// layout; tests compare plain text.
	styledLineNumbers = false
	os.Exit(m.Run())
}

func TestDigits(t *testing.T) {
	testCases := []struct {
		num      int
		expected int
	}{
		{0, 1},
		{1, 1},
		{9, 1},
		{10, 2},
		{99, 2},
		{100, 3},
		{109, 3},
		{1000, 4},
	}
	for _, c := range testCases {
		require.Equal(t, c.expected, digits(c.num), "digits(%d)", c.num)
	}
}

func TestSplitLines(t *testing.T) {
	testCases := []struct {
		text     string
		expected []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a\n", []string{"a"}},
		{"a\nb", []string{"a", "b"}},
		{"a\nb\n", []string{"a", "b"}},
		{"a\n\n", []string{"a", ""}},
		{"\n", []string{""}},
	}
	for _, c := range testCases {
		require.Equal(t, c.expected, splitLines(c.text), "splitLines(%q)", c.text)
	}
}

func TestWrapLine(t *testing.T) {
	testCases := []struct {
		line     string
		width    int
		expected []string
	}{
		{"", 10, []string{""}},
		{"hello", 10, []string{"hello"}},
		{"hello world", 5, []string{"hello", "world"}},
		{"aaaaaaaaaa", 4, []string{"aaaa", "aaaa", "aa"}},
	}
	for _, c := range testCases {
		require.Equal(t, c.expected, wrapLine(c.line, c.width), "wrapLine(%q, %d)", c.line, c.width)
	}
}

func TestWrapLineBudgetProperty(t *testing.T) {
	// Every emitted row fits inside the column budget, whatever the input.
	lines := []string{
		"short",
		strings.Repeat("word ", 40),
		strings.Repeat("x", 200),
		"a b c d e f g h i j k l m n o p q r s t u v w x y z",
	}
	for _, width := range []int{1, 7, 23, 80} {
		for _, line := range lines {
			for _, row := range wrapLine(line, width) {
				require.LessOrEqual(t, len(row), width, "wrapLine(%q, %d) row %q", line, width, row)
			}
		}
	}
}

func TestFormatTextBlockBasic(t *testing.T) {
	fr := formatTextBlock(formatOpts{
		text:         "A line\nAnother line",
		lineNumbers:  LineNumbersDisabled,
		cols:         80,
		lineWrapping: true,
	})
	require.Equal(t, []string{"A line", "Another line"}, fr.rows)
	require.Equal(t, 2, fr.linesFormatted)
	require.Equal(t, 2, fr.rowsFormatted)
	// The block did not end with a newline, so the final line's single row is
	// unterminated.
	require.Equal(t, 1, fr.numUnterminated)
	require.Equal(t, []int{0, 1}, fr.linesToRowMap)
	require.Equal(t, 12, fr.maxLineLength)
	require.True(t, fr.cleanAppend)
}

func TestFormatTextBlockTerminated(t *testing.T) {
	fr := formatTextBlock(formatOpts{
		text:         "A line\nAnother line\n",
		lineNumbers:  LineNumbersDisabled,
		cols:         80,
		lineWrapping: true,
	})
	require.Equal(t, []string{"A line", "Another line"}, fr.rows)
	require.Equal(t, 0, fr.numUnterminated)
}

func TestFormatTextBlockEmpty(t *testing.T) {
	fr := formatTextBlock(formatOpts{
		text:         "",
		lineNumbers:  LineNumbersDisabled,
		cols:         80,
		lineWrapping: true,
	})
	require.Empty(t, fr.rows)
	require.Equal(t, 0, fr.linesFormatted)
}

func TestFormatTextBlockNewlineOnly(t *testing.T) {
	fr := formatTextBlock(formatOpts{
		text:         "\n",
		lineNumbers:  LineNumbersDisabled,
		cols:         80,
		lineWrapping: true,
	})
	require.Equal(t, []string{""}, fr.rows)
	require.Equal(t, 0, fr.numUnterminated)
}

func TestFormatTextBlockWrapping(t *testing.T) {
	fr := formatTextBlock(formatOpts{
		text:         "hello world again\n",
		lineNumbers:  LineNumbersDisabled,
		cols:         11,
		lineWrapping: true,
	})
	require.Equal(t, []string{"hello world", "again"}, fr.rows)
	require.Equal(t, 1, fr.linesFormatted)
	require.Equal(t, 2, fr.rowsFormatted)
	require.Equal(t, []int{0}, fr.linesToRowMap)
}

func TestFormatTextBlockNoWrapping(t *testing.T) {
	long := strings.Repeat("z", 200)
	fr := formatTextBlock(formatOpts{
		text:         long + "\n",
		lineNumbers:  LineNumbersDisabled,
		cols:         80,
		lineWrapping: false,
	})
	require.Equal(t, []string{long}, fr.rows)
}

func TestFormatLineNumbers(t *testing.T) {
	fr := formatTextBlock(formatOpts{
		text:         "A line\nAnother line\nThird line\nFourth line\n",
		lineNumbers:  LineNumbersEnabled,
		cols:         80,
		lineWrapping: true,
	})
	require.Equal(t, []string{
		"     1. A line",
		"     2. Another line",
		"     3. Third line",
		"     4. Fourth line",
	}, fr.rows)
}

func TestFormatLineNumbersContinuationRows(t *testing.T) {
	// cols 20, numbers on: digits(1)=1, padding=7, budget = 20-7-2 = 11.
	fr := formatTextBlock(formatOpts{
		text:         "hello world again\n",
		lineNumbers:  LineNumbersEnabled,
		cols:         20,
		lineWrapping: true,
	})
	require.Equal(t, []string{
		"     1. hello world",
		"        again",
	}, fr.rows)
	require.Equal(t, []int{0}, fr.linesToRowMap)
}

func TestFormatLineNumbersDigitWidth(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 110; i++ {
		fmt.Fprintf(&b, "L%d\n", i)
	}
	fr := formatTextBlock(formatOpts{
		text:         b.String(),
		lineNumbers:  LineNumbersAlwaysOn,
		cols:         80,
		lineWrapping: true,
	})
	require.Len(t, fr.rows, 110)
	// digits(110) = 3, so the number field is 9 wide and the dot column is
	// fixed across the digit boundary.
	require.Equal(t, "      96. L95", fr.rows[95])
	require.Equal(t, "     100. L99", fr.rows[99])
	require.Equal(t, "     105. L104", fr.rows[104])
}

func TestFormatRowWidthProperty(t *testing.T) {
	// Property: with wrapping on, every emitted row is at most cols wide,
	// with or without line numbers.
	text := strings.Repeat("lorem ipsum dolor sit amet consectetur adipiscing elit ", 20) + "\n" +
		strings.Repeat("y", 300) + "\nshort\n"
	for _, cols := range []int{20, 40, 80} {
		for _, ln := range []LineNumbers{LineNumbersDisabled, LineNumbersEnabled} {
			fr := formatTextBlock(formatOpts{
				text:         text,
				lineNumbers:  ln,
				cols:         cols,
				lineWrapping: true,
			})
			for _, row := range fr.rows {
				require.LessOrEqual(t, len(row), cols,
					"cols=%d numbers=%v row=%q", cols, ln, row)
			}
		}
	}
}

func TestFormatTextBlockAttachment(t *testing.T) {
	fr := formatTextBlock(formatOpts{
		text:          "This is another line\n",
		attachment:    "This is a line. ",
		hasAttachment: true,
		lineNumbers:   LineNumbersDisabled,
		linesCount:    1,
		cols:          80,
		lineWrapping:  true,
	})
	require.Equal(t, []string{"This is a line. This is another line"}, fr.rows)
	require.Equal(t, 0, fr.numUnterminated)
	require.False(t, fr.cleanAppend)
}

func TestFormatTextBlockSearchIdxShift(t *testing.T) {
	re := mustCompile(t, "needle")
	fr := formatTextBlock(formatOpts{
		text:                "hay\nneedle\nhay\nneedle\n",
		lineNumbers:         LineNumbersDisabled,
		formattedLinesCount: 10,
		cols:                80,
		lineWrapping:        true,
	})
	require.Empty(t, fr.searchIdx)

	fr = formatTextBlock(formatOpts{
		text:                "hay\nneedle\nhay\nneedle\n",
		lineNumbers:         LineNumbersDisabled,
		formattedLinesCount: 10,
		cols:                80,
		lineWrapping:        true,
		searchTerm:          re,
	})
	// Locally rows 1 and 3 match; shifted by the 10 rows already present.
	require.Equal(t, []int{11, 13}, fr.searchIdx)
}
