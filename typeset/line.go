package typeset

import (
	"math"
	"strings"
)

// Align 是行内水平对齐方式。
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
	AlignJustified    // 两端对齐，段落最后一行除外
	AlignJustifiedAll // 包括最后一行在内全部两端对齐
)

// JustificationRatio 是两端对齐时词间距与字间距的分配比例。
const JustificationRatio = 2.5

// Line 把一组 run 装入一行。使用前必须先 Flush，高度与对齐结果才可信。
type Line struct {
	left          float64
	width         float64 // 剩余宽度
	originalWidth float64
	align         Align
	rtl           bool
	runs          []*Run
	height        float64
	newlineSplit  bool
	flushed       bool

	listSymbol *Run
	listIndent float64

	// 待定制表位（右/居中/锚点对齐），在 Flush 或下一个制表位时确定
	tabStop     *TabStop
	tabRun      *Run
	tabPosition float64
	tabAnchor   float64
}

// NewLine 创建一行，left 为行起点，width 为可用宽度。
func NewLine(left, width float64, align Align, rtl bool) *Line {
	return &Line{
		left:          left,
		width:         width,
		originalWidth: width,
		align:         align,
		rtl:           rtl,
		tabPosition:   math.NaN(),
		tabAnchor:     math.NaN(),
	}
}

// Add 尝试把 r 放入本行，返回放不下的剩余部分（nil 表示全部放入）。
func (l *Line) Add(r *Run) *Run {
	if r == nil {
		return nil
	}
	l.flushed = false
	if r.IsTab() {
		return l.addTab(r)
	}
	if r.text == "" && r.image == nil && r.eol == "" {
		return nil
	}
	if len(l.runs) == 0 {
		r.TrimLeadingSpace()
		if r.text == "" && r.image == nil && r.eol == "" {
			return nil
		}
	}

	overflow := r.split(l.width, l.runs)
	l.newlineSplit = r.newlineSplit || overflow == nil
	switch {
	case r.Len() > 0:
		l.width -= r.Width()
		l.addToLine(r)
	case r.newlineSplit:
		// 空行：保留一个零宽 run 以维持行高
		l.addToLine(r)
	case len(l.runs) == 0:
		// 空行遇到无法断开的 run：强制至少消耗一个单位
		r = overflow
		overflow = r.Truncate(l.width)
		l.width -= r.Width()
		l.addToLine(r)
		l.newlineSplit = r.newlineSplit || overflow == nil
	}
	return overflow
}

func (l *Line) addTab(r *Run) *Run {
	settings := r.metric.Tab
	if r.metric.Whitespace && len(l.runs) == 0 {
		return nil
	}
	l.resolveTab()
	l.tabAnchor = math.NaN()
	stop := settings.Next(l.originalWidth - l.width)
	if stop.Position > l.originalWidth {
		var overflow *Run
		switch {
		case r.metric.Whitespace:
		case math.Abs(l.originalWidth-l.width) < 0.001:
			l.addToLine(r)
		default:
			overflow = r
		}
		l.width = 0
		l.newlineSplit = overflow == nil
		return overflow
	}
	r.stop = &stop
	if !l.rtl && stop.Align == TabLeft {
		l.width = l.originalWidth - stop.Position
		r.tabPos = stop.Position
		l.tabStop = nil
		l.tabRun = nil
		l.tabPosition = math.NaN()
	} else {
		l.tabStop = &stop
		l.tabRun = r
		l.tabPosition = l.originalWidth - l.width
		r.tabPos = l.tabPosition
	}
	l.addToLine(r)
	l.newlineSplit = true
	return nil
}

func (l *Line) addToLine(r *Run) {
	if h := runLeading(r); h > l.height {
		l.height = h
	}
	if l.tabStop != nil && l.tabStop.Align == TabAnchor && math.IsNaN(l.tabAnchor) && !r.IsTab() {
		if idx := strings.IndexRune(r.text, l.tabStop.Anchor); idx >= 0 {
			sub := r.Measure(r.text[idx:])
			l.tabAnchor = l.originalWidth - l.width - sub
		}
	}
	l.runs = append(l.runs, r)
}

// runLeading 返回 run 显式要求的行距：图片高度或覆盖的 leading；0 表示不改变。
func runLeading(r *Run) float64 {
	if r.image != nil {
		return r.image.ScaledHeight() + r.image.OffsetY + r.image.SpacingBefore
	}
	return r.metric.Leading
}

// resolveTab 根据制表位之后文本的实际宽度确定待定制表位。
func (l *Line) resolveTab() {
	if l.tabStop == nil {
		return
	}
	end := l.originalWidth - l.width
	textWidth := end - l.tabPosition
	pos := l.tabStop.resolve(l.tabPosition, end, l.tabAnchor)
	l.width = l.originalWidth - pos - textWidth
	if l.width < 0 {
		pos += l.width
		l.width = 0
	}
	if l.rtl {
		l.tabRun.tabPos = l.originalWidth - l.width - l.tabPosition
	} else {
		l.tabRun.tabPos = pos
	}
	l.tabRun.stop.Position = l.tabRun.tabPos
	l.tabStop = nil
	l.tabRun = nil
	l.tabPosition = math.NaN()
}

// Flush 确定待定制表位并回收行尾空白的宽度。重复调用无副作用。
func (l *Line) Flush() {
	if l.flushed {
		return
	}
	l.flushed = true
	for i := len(l.runs) - 1; i >= 0; i-- {
		r := l.runs[i]
		if r.IsTab() || r.IsImage() {
			break
		}
		if r.text == "" {
			continue
		}
		l.width += r.TrimTrailingSpace()
		break
	}
	l.resolveTab()
}

// HasToBeJustified 报告本行是否需要两端对齐。
func (l *Line) HasToBeJustified() bool {
	return ((l.align == AlignJustified && !l.newlineSplit) || l.align == AlignJustifiedAll) && l.width != 0
}

// GetMaxSize 返回 (文本行距, 图片引起的额外行距)。
// 没有图片时第二个值为 0。
func (l *Line) GetMaxSize(fixedLeading, multipliedLeading float64) (float64, float64) {
	normal := 0.0
	image := 0.0
	for _, r := range l.runs {
		if r.image != nil {
			image = math.Max(image, runLeading(r))
			continue
		}
		if r.metric.Leading > 0 {
			normal = math.Max(normal, r.metric.Leading)
		} else {
			normal = math.Max(normal, fixedLeading+multipliedLeading*r.font.Size)
		}
	}
	if normal <= 0 {
		normal = fixedLeading
	}
	return normal, image
}

// Justification 计算两端对齐所需的 (词间距, 字间距) 增量；含制表位的行不做两端对齐。
func (l *Line) Justification(ratio float64) (wordSpacing, charSpacing float64) {
	if !l.HasToBeJustified() || l.width < 0 || l.hasTab() {
		return 0, 0
	}
	spaces := l.NumberOfSpaces()
	n := l.lengthUtf32()
	if spaces == 0 && n <= 1 {
		return 0, 0
	}
	base := l.width / (ratio*float64(spaces) + float64(n-1))
	return ratio * base, base
}

// Placement 是 run 在行内的最终水平位置。
type Placement struct {
	Run         *Run
	X           float64
	Width       float64
	WordSpacing float64 // 两端对齐附加的词间距
	CharSpacing float64 // 两端对齐附加的字间距
}

// Placements 按视觉顺序给出每个 run 的位置，wordSpacing/charSpacing 通常来自 Justification。
func (l *Line) Placements(wordSpacing, charSpacing float64) []Placement {
	x := l.IndentLeft()
	out := make([]Placement, 0, len(l.runs))
	for _, r := range l.Runs() {
		if r.IsTab() && r.stop != nil && !l.rtl {
			x = l.left + r.tabPos
		}
		w := r.Width()
		p := Placement{Run: r, X: x, Width: w}
		if !r.IsTab() && !r.IsImage() && (wordSpacing != 0 || charSpacing != 0) {
			p.WordSpacing = wordSpacing
			p.CharSpacing = charSpacing
			w += wordSpacing*float64(countSpaces(r.text)) + charSpacing*float64(r.Len())
			p.Width = w
		}
		out = append(out, p)
		x += w
	}
	return out
}

// IndentLeft 返回考虑对齐方式后第一个 run 的起点。
func (l *Line) IndentLeft() float64 {
	if l.width <= 0 {
		return l.left
	}
	switch l.align {
	case AlignCenter:
		return l.left + l.width/2
	case AlignRight:
		if l.rtl {
			return l.left
		}
		return l.left + l.width
	case AlignJustified, AlignJustifiedAll:
		if l.HasToBeJustified() && !l.hasTab() {
			return l.left
		}
	}
	if l.rtl {
		return l.left + l.width
	}
	return l.left
}

// Runs 返回视觉顺序的 run；RTL 行为逻辑顺序的逆序。
func (l *Line) Runs() []*Run {
	if !l.rtl {
		return l.runs
	}
	out := make([]*Run, len(l.runs))
	for i, r := range l.runs {
		out[len(l.runs)-1-i] = r
	}
	return out
}

// Ascender returns the largest ascent above the baseline on this line.
func (l *Line) Ascender() float64 {
	asc := 0.0
	for _, r := range l.runs {
		if r.image != nil {
			asc = math.Max(asc, r.image.ScaledHeight()+r.image.OffsetY)
			continue
		}
		if r.font.Metrics == nil {
			continue
		}
		asc = math.Max(asc, r.font.Ascent()+r.metric.Rise)
	}
	return asc
}

// Descender returns the lowest descent (negative) on this line.
func (l *Line) Descender() float64 {
	desc := 0.0
	for _, r := range l.runs {
		if r.image != nil {
			desc = math.Min(desc, r.image.OffsetY)
			continue
		}
		if r.font.Metrics == nil {
			continue
		}
		desc = math.Min(desc, r.font.Descent()+r.metric.Rise)
	}
	return desc
}

func (l *Line) hasTab() bool {
	for _, r := range l.runs {
		if r.IsTab() {
			return true
		}
	}
	return false
}

// NumberOfSpaces counts the ' ' characters on the line.
func (l *Line) NumberOfSpaces() int {
	n := 0
	for _, r := range l.runs {
		if !r.IsImage() && !r.IsTab() {
			n += countSpaces(r.text)
		}
	}
	return n
}

func (l *Line) lengthUtf32() int {
	n := 0
	for _, r := range l.runs {
		if !r.IsTab() {
			n += r.Len()
		}
	}
	return n
}

func (l *Line) String() string {
	var b strings.Builder
	for _, r := range l.runs {
		if r.IsTab() {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(r.String())
	}
	return b.String()
}

// SetListItem 设置列表符号，符号绘制在行起点左侧 indent 处。
func (l *Line) SetListItem(marker *Run, indent float64) {
	l.listSymbol = marker
	l.listIndent = indent
}

func (l *Line) ListSymbol() *Run       { return l.listSymbol }
func (l *Line) ListIndent() float64    { return l.listIndent }
func (l *Line) SetNewlineSplit(v bool) { l.newlineSplit = v }
func (l *Line) NewlineSplit() bool     { return l.newlineSplit }
func (l *Line) Height() float64        { return l.height }
func (l *Line) WidthLeft() float64     { return l.width }
func (l *Line) OriginalWidth() float64 { return l.originalWidth }
func (l *Line) ContentWidth() float64  { return l.originalWidth - l.width }
func (l *Line) Left() float64          { return l.left }
func (l *Line) Align() Align           { return l.align }
func (l *Line) RTL() bool              { return l.rtl }
func (l *Line) Size() int              { return len(l.runs) }
func (l *Line) Empty() bool            { return len(l.runs) == 0 }
func (l *Line) Run(i int) *Run         { return l.runs[i] }
