package table

import (
	"math"

	"seehuhn.de/go/geom/matrix"

	"github.com/ByLCY/columna/typeset"
)

// Status 是 Column.Go 的结束原因。
type Status int

const (
	NoMoreText   Status = iota // 全部内容已排完
	NoMoreColumn               // 高度用尽，仍有剩余内容
)

func (s Status) String() string {
	if s == NoMoreText {
		return "NoMoreText"
	}
	return "NoMoreColumn"
}

// 无界模拟时使用的极限尺寸
const (
	rightLimit  = 20000.0
	bottomLimit = 1e7
)

// PlacedLine 是已提交的一行，Baseline 相对列顶部。
type PlacedLine struct {
	Line        *typeset.Line
	Baseline    float64
	WordSpacing float64
	CharSpacing float64
}

// ColumnResult 是一次 Go 的结果。
type ColumnResult struct {
	Status       Status
	Height       float64 // 消耗的竖直空间
	LinesWritten int
	FilledWidth  float64 // 最宽一行的右端位置
	Lines        []PlacedLine
}

// Column 是可恢复的文本流游标：每次 Go 从上次停下的位置继续。
// 放不下的行不会提交，游标保持在该行之前。
type Column struct {
	paras []*Paragraph
	runs  []*typeset.Run // 当前段落尚未排出的 run
	line  int            // 当前段落已排出的行数
}

// NewColumn 创建一个游标；段落中的 run 会被复制，原段落不会被修改。
func NewColumn(paras ...*Paragraph) *Column {
	c := &Column{}
	for _, p := range paras {
		if p != nil {
			c.paras = append(c.paras, p)
		}
	}
	if len(c.paras) > 0 {
		c.runs = cloneRuns(c.paras[0].Runs)
	}
	return c
}

// Clone 返回独立的游标副本。
func (c *Column) Clone() *Column {
	return &Column{
		paras: append([]*Paragraph(nil), c.paras...),
		runs:  cloneRuns(c.runs),
		line:  c.line,
	}
}

// Empty reports whether all content has been consumed.
func (c *Column) Empty() bool { return len(c.paras) == 0 }

func (c *Column) nextParagraph() {
	c.paras = c.paras[1:]
	c.line = 0
	c.runs = nil
	if len(c.paras) > 0 {
		c.runs = cloneRuns(c.paras[0].Runs)
	}
}

// Go 在 width × height 的区域内排版并推进游标。write 为 false 时不保留行数据。
func (c *Column) Go(width, height float64, write bool) ColumnResult {
	var res ColumnResult
	y := 0.0
	for len(c.paras) > 0 {
		p := c.paras[0]
		left := p.IndentLeft
		if c.line == 0 {
			left += p.FirstLineIndent
		}
		line := typeset.NewLine(left, width-left-p.IndentRight, p.Align, p.RTL)
		rest := cloneRuns(c.runs)
		for len(rest) > 0 {
			rem := line.Add(rest[0])
			if rem != nil {
				rest[0] = rem
				break
			}
			rest = rest[1:]
		}
		if line.Empty() {
			// 段落只剩空白
			c.nextParagraph()
			continue
		}
		if len(rest) == 0 {
			line.SetNewlineSplit(true)
		}
		line.Flush()

		before := 0.0
		if c.line == 0 && y > 0 {
			before = p.SpacingBefore
		}
		lead := p.leading()
		text, image := line.GetMaxSize(lead.Fixed, lead.Multiplied)
		lh := math.Max(text, image)
		if y+before+lh > height+1e-6 {
			res.Status = NoMoreColumn
			res.Height = y
			return res
		}
		y += before + lh
		if c.line == 0 && p.ListSymbol != nil {
			line.SetListItem(p.ListSymbol.Clone(), p.ListIndent)
		}
		if write {
			ws, cs := line.Justification(typeset.JustificationRatio)
			res.Lines = append(res.Lines, PlacedLine{Line: line, Baseline: y, WordSpacing: ws, CharSpacing: cs})
		}
		res.LinesWritten++
		res.FilledWidth = math.Max(res.FilledWidth, line.Left()+line.ContentWidth())

		c.runs = rest
		c.line++
		if len(rest) == 0 {
			y = math.Min(y+p.SpacingAfter, math.Max(height, y))
			c.nextParagraph()
		}
	}
	res.Status = NoMoreText
	res.Height = y
	return res
}

// content 是单元格可承载的可恢复内容：文本流、嵌套表格或图片。
// layout 会推进接收者，调用方需要保留原状态时应先 clone。
type content interface {
	clone() content
	layout(width, height float64) placement
}

// placement 是一次 layout 的结果。
type placement struct {
	height   float64
	filled   float64
	advanced bool // 至少消耗了一个单位
	done     bool // 内容已全部消耗
	draw     func(cv Canvas, x, y float64) error
}

func (c *Column) clone() content { return c.Clone() }

func (c *Column) layout(width, height float64) placement {
	res := c.Go(width, height, true)
	return placement{
		height:   res.Height,
		filled:   res.FilledWidth,
		advanced: res.LinesWritten > 0,
		done:     res.Status == NoMoreText,
		draw: func(cv Canvas, x, y float64) error {
			return writeLines(cv, res.Lines, x, y)
		},
	}
}

// Write 输出本次排出的行，(x, y) 为列的左上角。
func (r ColumnResult) Write(cv Canvas, x, y float64) error {
	return writeLines(cv, r.Lines, x, y)
}

// writeLines 把已排好的行输出到 cv，(x, y) 为列的左上角。
func writeLines(cv Canvas, lines []PlacedLine, x, y float64) error {
	for _, pl := range lines {
		base := y + pl.Baseline
		if sym := pl.Line.ListSymbol(); sym != nil {
			p := typeset.Placement{Run: sym, X: pl.Line.Left() - pl.Line.ListIndent(), Width: sym.Width()}
			if err := writeRun(cv, p, x, base); err != nil {
				return err
			}
		}
		for _, p := range pl.Line.Placements(pl.WordSpacing, pl.CharSpacing) {
			if err := writeRun(cv, p, x, base); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRun(cv Canvas, p typeset.Placement, x, base float64) error {
	r := p.Run
	switch {
	case r.IsTab():
		return nil
	case r.IsImage():
		img := r.Image()
		w, h := img.ScaledWidth(), img.ScaledHeight()
		cv.DrawImage(Rect{X: x + p.X + img.OffsetX, Y: base - h - img.OffsetY, W: w, H: h}, img)
		return nil
	}
	text := r.DrawText()
	if text == "" {
		return nil
	}
	raw, err := r.Encode()
	if err != nil {
		return err
	}
	font, metric, style := r.Font(), r.Metric(), r.Style()
	if style.Background != nil {
		cv.FillRect(Rect{X: x + p.X, Y: base - font.Ascent() - metric.Rise, W: p.Width, H: font.Ascent() - font.Descent()}, style.Background)
	}
	cv.ShowText(matrix.Translate(x+p.X, base-metric.Rise), TextItem{
		Text:        text,
		Raw:         raw,
		Font:        font,
		Encoding:    style.Encoding,
		Color:       style.Color,
		Width:       p.Width,
		CharSpacing: metric.CharSpacing + p.CharSpacing,
		WordSpacing: metric.WordSpacing + p.WordSpacing,
		HScale:      metric.HScale,
		Skew:        metric.Skew,
	})
	if u := metric.Underline; u != nil {
		c := u.Color
		if c == nil {
			c = style.Color
		}
		cv.FillRect(Rect{X: x + p.X, Y: base + u.Offset - u.Thickness/2, W: p.Width, H: u.Thickness}, c)
	}
	return nil
}
