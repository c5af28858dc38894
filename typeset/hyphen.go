package typeset

import "strings"

// SoftHyphen 是可选断字点（U+00AD），不可见且宽度为零。
const SoftHyphen = '\u00ad'

// Hyphenator 把一个单词拆成留在本行的前缀和移到下一行的后缀。
// 无合适断点时 pre 返回空字符串。
type Hyphenator interface {
	Hyphenate(word string, font Font, available float64) (pre, post string)
}

// HyphenatorFunc adapts a plain function to Hyphenator.
type HyphenatorFunc func(word string, font Font, available float64) (pre, post string)

// Hyphenate implements Hyphenator.
func (f HyphenatorFunc) Hyphenate(word string, font Font, available float64) (string, string) {
	return f(word, font, available)
}

// SoftHyphenator 只在单词内已有的软连字符处断开，断开处显示为 "-"。
type SoftHyphenator struct {
	// Hyphen 为断开处追加的字符串，空值表示 "-"。
	Hyphen string
}

// Hyphenate implements Hyphenator.
func (h SoftHyphenator) Hyphenate(word string, font Font, available float64) (string, string) {
	hyphen := h.Hyphen
	if hyphen == "" {
		hyphen = "-"
	}
	hyphenWidth := font.Width(hyphen)
	best := -1
	for i, r := range word {
		if r != SoftHyphen || i == 0 {
			continue
		}
		if font.Width(stripSoftHyphens(word[:i]))+hyphenWidth <= available {
			best = i
		}
	}
	if best < 0 {
		return "", word
	}
	return word[:best] + hyphen, word[best+len(string(SoftHyphen)):]
}

// stripSoftHyphens removes invisible break hints before drawing.
func stripSoftHyphens(s string) string {
	if !strings.ContainsRune(s, SoftHyphen) {
		return s
	}
	return strings.ReplaceAll(s, string(SoftHyphen), "")
}
