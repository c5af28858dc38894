package typeset

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

// Encoding 标识 run 内容写入内容流时使用的编码。
type Encoding int

const (
	EncodingWinAnsi   Encoding = iota // 单字节 WinAnsiEncoding（默认）
	EncodingLatin1                    // 单字节 ISO-8859-1
	EncodingIdentityH                 // 双字节 Identity-H，按 UTF-16BE 码元写出
)

func (e Encoding) String() string {
	switch e {
	case EncodingWinAnsi:
		return "WinAnsi"
	case EncodingLatin1:
		return "Latin1"
	case EncodingIdentityH:
		return "Identity-H"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// DoubleByte reports whether every code is written with two bytes.
func (e Encoding) DoubleByte() bool { return e == EncodingIdentityH }

// Encode 将 s 编码为字节序列；超出编码范围的字符返回 ErrIllegalContent。
func (e Encoding) Encode(s string) ([]byte, error) {
	switch e {
	case EncodingWinAnsi, EncodingLatin1:
		cm := charmap.Windows1252
		if e == EncodingLatin1 {
			cm = charmap.ISO8859_1
		}
		out := make([]byte, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError && !isEncodedRuneError(s, i) {
				return nil, fmt.Errorf("%w: 第 %d 字节不是合法的 UTF-8", ErrIllegalContent, i)
			}
			b, ok := cm.EncodeRune(r)
			if !ok {
				return nil, fmt.Errorf("%w: %q 不在 %s 编码范围内", ErrIllegalContent, r, e)
			}
			out = append(out, b)
		}
		return out, nil
	case EncodingIdentityH:
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%w: 内容不是合法的 UTF-8", ErrIllegalContent)
		}
		enc := xunicode.UTF16(xunicode.BigEndian, xunicode.IgnoreBOM).NewEncoder()
		out, err := enc.String(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIllegalContent, err)
		}
		return []byte(out), nil
	default:
		return nil, fmt.Errorf("%w: 未知编码 %d", ErrInvalidArgument, int(e))
	}
}

// isEncodedRuneError distinguishes a literal U+FFFD from an invalid byte.
func isEncodedRuneError(s string, i int) bool {
	_, size := utf8.DecodeRuneInString(s[i:])
	return size == 3
}
