package dsl

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Document 是 DSL 文件的根节点：`doc <名称> <版本> { ... }`。
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section 是顶层分节，四选一。
type Section struct {
	Meta      *MetaSection      `parser:"  @@"`
	Resources *ResourcesSection `parser:"| @@"`
	PageSet   *PageSetSection   `parser:"| @@"`
	Page      *PageSection      `parser:"| @@"`
}

// Kind 返回分节类型名，用于错误信息。
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Resources != nil:
		return "resources"
	case s.PageSet != nil:
		return "page-set"
	case s.Page != nil:
		return "page"
	}
	return "unknown"
}

type MetaSection struct {
	Block *Block `parser:"'meta' @@"`
}

type ResourcesSection struct {
	Block *Block `parser:"'resources' @@"`
}

// PageSetSection 是可被 `page ... template <名称>` 引用的页眉页脚模板。
type PageSetSection struct {
	Name  string `parser:"'page-set' @Ident"`
	Block *Block `parser:"@@"`
}

type PageSection struct {
	Spec  PageSpec `parser:"'page' @@"`
	Block *Block   `parser:"@@"`
}

// PageSpec 是 page 之后的纸张名与参数（方向、margin、template 等）。
type PageSpec struct {
	Size   string    `parser:"@Ident"`
	Params []*Lexeme `parser:"@@*"`
}

// Block 是花括号内以换行或分号分隔的语句。
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement 三选一：`key: value`、命令、字符串字面量。
type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' Newline* @@"`
}

// Command 是 `名称 参数... { 子块 }` 形式的排版指令，如 text、table、row、cell、each。
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value 是赋值右侧的值。
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Array  *ArrayValue    `parser:"| @@"`
	Object *InlineObject  `parser:"| @@"`
	Expr   *Expression    `parser:"| @@"`
}

type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

type InlineObject struct {
	Entries []*Assignment `parser:"'{' Newline* ( @@ Newline* ( (';' | Newline+) Newline* @@ Newline* )* )? Newline* '}'"`
}

// Expression 保留原始 token，例如 `order.items` 这样的数据路径。
type Expression struct {
	Parts []*Lexeme
}

// Attrs 把参数解析为样式名与键值对。allowStyle 时，参数个数为奇数且第一个是标识符，
// 则第一个参数是样式名：`text Heading size 14pt` 得到 ("Heading", {size: 14pt})。
// 成对之外多出的最后一个参数被忽略。
func (c *Command) Attrs(allowStyle bool) (string, map[string]string) {
	attrs := map[string]string{}
	if c == nil {
		return "", attrs
	}
	args := c.Args
	var style string
	if allowStyle && len(args)%2 == 1 && args[0].Type == "Ident" {
		style, args = args[0].Value, args[1:]
	}
	for i := 0; i+1 < len(args); i += 2 {
		attrs[args[i].Value] = args[i+1].Value
	}
	return style, attrs
}

// Each 解析 `each <路径> <名称> { ... }`。路径由除最后一个参数外的 token 拼接而成，
// 因此 `order.items` 这类带点号的路径可以直接书写。
func (c *Command) Each() (path, name string, err error) {
	if c.Block == nil || len(c.Args) < 2 {
		return "", "", fmt.Errorf("%s: each 语法为 each <路径> <名称> { ... }", c.Pos)
	}
	var b strings.Builder
	for _, a := range c.Args[:len(c.Args)-1] {
		b.WriteString(a.Value)
	}
	return b.String(), c.Args[len(c.Args)-1].Value, nil
}

// Text 拼接块中的字符串字面量；nil 块返回空串。
func (b *Block) Text() string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	for _, stmt := range b.Statements {
		if stmt.Text != nil {
			sb.WriteString(string(stmt.Text.Value))
		}
	}
	return sb.String()
}

// Commands 返回块中名为 name 的直接子命令，name 为空时返回全部命令。
func (b *Block) Commands(name string) []*Command {
	if b == nil {
		return nil
	}
	var out []*Command
	for _, stmt := range b.Statements {
		if cmd := stmt.Command; cmd != nil && (name == "" || cmd.Name == name) {
			out = append(out, cmd)
		}
	}
	return out
}

// Text 返回标量值的文本形式：字符串去引号，表达式按 token 拼接。数组与对象返回空串。
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Expr != nil:
		var b strings.Builder
		for _, part := range v.Expr.Parts {
			b.WriteString(part.Value)
		}
		return b.String()
	}
	return ""
}

// List 把数组值展开为非空字符串列表；标量值视为单元素列表。
func (v *Value) List() []string {
	if v == nil {
		return nil
	}
	if v.Array == nil {
		if s := v.Text(); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(v.Array.Values))
	for _, item := range v.Array.Values {
		if s := item.Text(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
