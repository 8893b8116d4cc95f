package pager

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScreenPushBasic(t *testing.T) {
	s := newScreen()
	fr := s.push("A line\nAnother line", LineNumbersDisabled, 80, nil)
	require.Equal(t, []string{"A line", "Another line"}, s.formattedLines)
	require.Equal(t, 2, s.LineCount())
	require.Equal(t, 1, s.unterminated)
	require.Equal(t, 2, fr.rowsFormatted)
	require.Equal(t, "A line\nAnother line", s.Text())
}

func TestScreenPushReappend(t *testing.T) {
	s := newScreen()
	s.push("This is a line. ", LineNumbersDisabled, 80, nil)
	require.Equal(t, 1, s.unterminated)
	// The wrapper trims trailing whitespace from the displayed row; the space
	// survives in origText and reappears when the line is completed.
	require.Equal(t, []string{"This is a line."}, s.formattedLines)

	fr := s.push("This is another line\n", LineNumbersDisabled, 80, nil)
	require.Equal(t, []string{"This is a line. This is another line"}, s.formattedLines)
	require.Equal(t, 0, s.unterminated)
	require.Equal(t, 1, s.LineCount())
	require.False(t, fr.cleanAppend)
}

func TestScreenPushEquivalence(t *testing.T) {
	// Pushing T then U produces the same formatted lines as pushing T+U in
	// one block, for any split point.
	text := "one two three four\nfive six\nseven\n\neight nine ten eleven twelve"
	for split := 0; split <= len(text); split++ {
		split := split
		t.Run(fmt.Sprint(split), func(t *testing.T) {
			a := newScreen()
			a.push(text[:split], LineNumbersDisabled, 12, nil)
			a.push(text[split:], LineNumbersDisabled, 12, nil)

			b := newScreen()
			b.push(text, LineNumbersDisabled, 12, nil)

			require.Equal(t, b.formattedLines, a.formattedLines)
			require.Equal(t, b.LineCount(), a.LineCount())
			require.Equal(t, b.unterminated, a.unterminated)
		})
	}
}

func TestScreenPushUnterminatedSpansRows(t *testing.T) {
	s := newScreen()
	// A single unterminated line wrapping over three rows.
	s.push("aaaa bbbb cccc", LineNumbersDisabled, 5, nil)
	require.Equal(t, []string{"aaaa", "bbbb", "cccc"}, s.formattedLines)
	require.Equal(t, 3, s.unterminated)

	// The next append rewraps the whole tail.
	s.push("dddd\n", LineNumbersDisabled, 5, nil)
	require.Equal(t, []string{"aaaa", "bbbb", "ccccd", "ddd"}, s.formattedLines)
	require.Equal(t, 0, s.unterminated)
	require.Equal(t, 1, s.LineCount())
}

func TestScreenGetRows(t *testing.T) {
	s := newScreen()
	s.push("a\nb\nc\nd\ne\n", LineNumbersDisabled, 80, nil)

	require.Equal(t, []string{"a", "b", "c", "d", "e"}, s.getRows(0, 5))
	require.Equal(t, []string{"b", "c"}, s.getRows(1, 3))
	// Bounds beyond the end clip instead of failing.
	require.Equal(t, []string{"d", "e"}, s.getRows(3, 100))
	require.Empty(t, s.getRows(7, 9))
	require.Empty(t, s.getRows(3, 1))
}

func TestScreenReformat(t *testing.T) {
	s := newScreen()
	s.push("hello world again\n", LineNumbersDisabled, 80, nil)
	require.Equal(t, []string{"hello world again"}, s.formattedLines)

	s.reformat(LineNumbersDisabled, 11, nil)
	require.Equal(t, []string{"hello world", "again"}, s.formattedLines)
	require.Equal(t, 1, s.LineCount())
	require.Equal(t, []int{0}, s.linesToRowMap)
}

func TestScreenLinesToRowMap(t *testing.T) {
	s := newScreen()
	s.push("hello world again\nshort\n", LineNumbersDisabled, 11, nil)
	// First line wraps to two rows, so the second line starts at row 2.
	require.Equal(t, []int{0, 2}, s.linesToRowMap)

	s.push("tail", LineNumbersDisabled, 11, nil)
	require.Equal(t, []int{0, 2, 3}, s.linesToRowMap)

	// Completing the tail must not add a new entry.
	s.push(" end\n", LineNumbersDisabled, 11, nil)
	require.Equal(t, []int{0, 2, 3}, s.linesToRowMap)
	require.Equal(t, 3, s.LineCount())
}

func TestScreenMaxLineLength(t *testing.T) {
	s := newScreen()
	s.push("abc\n", LineNumbersDisabled, 80, nil)
	require.Equal(t, 3, s.MaxLineLength())
	s.push(strings.Repeat("x", 42)+"\n", LineNumbersDisabled, 80, nil)
	require.Equal(t, 42, s.MaxLineLength())
	s.push("y\n", LineNumbersDisabled, 80, nil)
	require.Equal(t, 42, s.MaxLineLength())
}

func TestScreenPushWithSearchTerm(t *testing.T) {
	re := mustCompile(t, "match")
	s := newScreen()
	fr := s.push("no\nmatch here\nno\n", LineNumbersDisabled, 80, re)
	require.Equal(t, []int{1}, fr.searchIdx)
	require.Equal(t, attrReverse+"match"+attrNoReverse+" here", s.formattedLines[1])
}
