package dsl

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// 词法规则。Color 必须排在 HashComment 之前，否则 `#333` 会被当作注释。
// Number 可带单位后缀：pt/mm/cm/in、百分比或行高倍数 x。
var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{3}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `(?:\d+\.\d+|\d+)(?:pt|mm|cm|in|%|x)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	symbols    = dslLexer.Symbols()
	tokenNames = func() map[lexer.TokenType]string {
		out := make(map[lexer.TokenType]string, len(symbols))
		for name, tt := range symbols {
			out[tt] = name
		}
		return out
	}()

	documentParser = participle.MustBuild[Document](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Parse 从 r 读取并解析 DSL。
func Parse(r io.Reader) (*Document, error) {
	return parse("", r)
}

// ParseString 解析内存中的 DSL 文本。
func ParseString(input string) (*Document, error) {
	doc, err := documentParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("解析 DSL 失败: %w", err)
	}
	return doc, nil
}

// ParseFile 读取并解析 DSL 文件，语法错误带有文件名与行列号。
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开 DSL 文件失败: %w", err)
	}
	defer f.Close()
	return parse(path, f)
}

func parse(name string, r io.Reader) (*Document, error) {
	doc, err := documentParser.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("解析 DSL 失败: %w", err)
	}
	return doc, nil
}

// Lexeme 是命令参数或表达式中的一个 token。Value 为去引号后的值，Raw 为原文。
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse 让 Lexeme 作为语法原子：在参数边界（换行、花括号、分号）处停止。
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	if endsArgs(lex.Peek()) {
		return participle.NextMatch
	}
	lexeme, err := nextLexeme(lex)
	if err != nil {
		return err
	}
	*l = lexeme
	return nil
}

// Parse 收集表达式 token，直到括号外遇到值的分隔符。
func (e *Expression) Parse(lex *lexer.PeekingLexer) error {
	var depth nesting
	var parts []*Lexeme
	for {
		tok := lex.Peek()
		if tok.EOF() || depth.endsExpression(tok) {
			break
		}
		lexeme, err := nextLexeme(lex)
		if err != nil {
			return err
		}
		depth.track(lexeme.Raw)
		parts = append(parts, &lexeme)
	}
	if len(parts) == 0 {
		return participle.NextMatch
	}
	e.Parts = parts
	return nil
}

// nesting 记录表达式中未闭合的圆括号与方括号。
type nesting struct {
	paren, bracket int
}

func (n *nesting) track(raw string) {
	switch raw {
	case "(":
		n.paren++
	case ")":
		n.paren = max(n.paren-1, 0)
	case "[":
		n.bracket++
	case "]":
		n.bracket = max(n.bracket-1, 0)
	}
}

func (n nesting) endsExpression(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	top := n.paren == 0 && n.bracket == 0
	switch tokenNames[tok.Type] {
	case "Newline", "LBrace", "RBrace":
		return top
	case "Symbol":
		switch tok.Value {
		case ";", ",":
			return top
		case "]":
			// 数组的右括号结束其中的元素表达式
			return n.bracket == 0
		}
	}
	return false
}

func endsArgs(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tokenNames[tok.Type] {
	case "Newline", "LBrace", "RBrace":
		return true
	case "Symbol":
		return tok.Value == ";"
	}
	return false
}

// nextLexeme 消耗下一个 token；字符串按 Go 语法去引号。
func nextLexeme(lex *lexer.PeekingLexer) (Lexeme, error) {
	tok := lex.Next()
	if tok.EOF() {
		return Lexeme{}, participle.NextMatch
	}
	name, ok := tokenNames[tok.Type]
	if !ok {
		name = fmt.Sprintf("#%d", tok.Type)
	}
	val := tok.Value
	if name == "String" {
		s, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Lexeme{}, fmt.Errorf("%s: 字符串 %s 无法解析: %w", tok.Pos, tok.Value, err)
		}
		val = s
	}
	return Lexeme{Type: name, Value: val, Raw: tok.Value, Pos: tok.Pos}, nil
}

// StringLiteral 在捕获时去掉引号并处理转义。
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("字符串字面量缺少值")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return fmt.Errorf("字符串 %s 无法解析: %w", values[0], err)
	}
	*s = StringLiteral(val)
	return nil
}
