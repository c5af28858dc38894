package table

import "github.com/ByLCY/columna/typeset"

// Leading 是段落行距：Fixed + Multiplied × 字号。
type Leading struct {
	Fixed      float64
	Multiplied float64
}

// DefaultLeading 用于未设置行距的段落。
var DefaultLeading = Leading{Multiplied: 1.2}

// Paragraph 是一段连续排版的 run，段内按行装配，段落之间可以有间距。
type Paragraph struct {
	Runs            []*typeset.Run
	Align           typeset.Align
	Leading         Leading
	FirstLineIndent float64
	IndentLeft      float64
	IndentRight     float64
	SpacingBefore   float64
	SpacingAfter    float64
	RTL             bool

	// 列表项：符号绘制在首行起点左侧 ListIndent 处
	ListSymbol *typeset.Run
	ListIndent float64
}

func (p *Paragraph) leading() Leading {
	if p.Leading == (Leading{}) {
		return DefaultLeading
	}
	return p.Leading
}

func cloneRuns(runs []*typeset.Run) []*typeset.Run {
	if runs == nil {
		return nil
	}
	out := make([]*typeset.Run, len(runs))
	for i, r := range runs {
		out[i] = r.Clone()
	}
	return out
}
