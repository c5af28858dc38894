package typeset

import (
	"unicode"

	"golang.org/x/text/width"
)

// SplitCharacter 决定在某个字符之后是否允许断行。
// start/end 为当前 run 在 text 中的范围，current 为被询问的字符下标。
type SplitCharacter interface {
	IsSplit(start, current, end int, text []rune, siblings []*Run) bool
}

// SplitFunc adapts a plain function to SplitCharacter.
type SplitFunc func(start, current, end int, text []rune, siblings []*Run) bool

// IsSplit implements SplitCharacter.
func (f SplitFunc) IsSplit(start, current, end int, text []rune, siblings []*Run) bool {
	return f(start, current, end, text, siblings)
}

// DefaultSplit 在空白、连字符类字符以及东亚宽字符之后允许断行。
type DefaultSplit struct{}

// IsSplit implements SplitCharacter.
func (DefaultSplit) IsSplit(start, current, end int, text []rune, siblings []*Run) bool {
	if current < 0 || current >= len(text) {
		return false
	}
	c := text[current]
	switch {
	case c <= ' ':
		return true
	case c == '-' || c == '\u2010':
		// 数字之间的减号（如 10-20）不作为断点
		if current > start && current+1 < end && unicode.IsDigit(text[current-1]) && unicode.IsDigit(text[current+1]) {
			return false
		}
		return true
	case c >= '\u2002' && c <= '\u200b':
		return true
	case c == '\u3000':
		return true
	}
	switch width.LookupRune(c).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return true
	}
	return false
}

// NoSplit forbids every break; runs using it only overflow as a whole or
// are truncated on an empty line.
type NoSplit struct{}

// IsSplit implements SplitCharacter.
func (NoSplit) IsSplit(int, int, int, []rune, []*Run) bool { return false }
