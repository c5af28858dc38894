package table

import (
	"fmt"
	"image/color"
	"math"

	"github.com/ByLCY/columna/typeset"
)

// VAlign 是单元格内容的竖直对齐方式。
type VAlign int

const (
	VAlignTop VAlign = iota
	VAlignMiddle
	VAlignBottom
)

// Padding 是四边内边距。
type Padding struct {
	Top, Right, Bottom, Left float64
}

// Sides 是边框边的位掩码。
type Sides int

const (
	SideTop Sides = 1 << iota
	SideRight
	SideBottom
	SideLeft

	SideNone Sides = 0
	SideAll        = SideTop | SideRight | SideBottom | SideLeft
)

// Border 描述单元格边框，线条以外框为中心线绘制。
type Border struct {
	Width float64
	Color color.Color
	Sides Sides
}

// DefaultPadding 是新建单元格四边的默认内边距。
const DefaultPadding = 2.0

// Cell 是表格中的矩形内容容器，内容为文本流、嵌套表格或图片三者之一。
// 高度通过非破坏性的模拟得到并缓存，几何属性或内容变化时缓存失效。
type Cell struct {
	rect             Rect
	padding          Padding
	border           Border
	useBorderPadding bool
	background       color.Color
	valign           VAlign
	fixedHeight      float64
	minHeight        float64
	colspan          int
	rowspan          int
	rotation         int
	noWrap           bool
	event            CellEvent

	body content

	cached      bool
	maxHeight   float64
	sim         placement
	simW, simH  float64 // 模拟时的排版区域
	simulations int

	// 由表格在绘制跨行单元格时设置
	spanHeight float64
	// 拆分时整体移到续接行，本行只绘制背景与边框
	deferred bool
}

// NewCell 创建一个使用默认内边距的空单元格。
func NewCell() *Cell {
	p := DefaultPadding
	return &Cell{padding: Padding{p, p, p, p}, colspan: 1, rowspan: 1}
}

// NewTextCell 是 NewCell + SetPhrase 的便捷写法。
func NewTextCell(runs ...*typeset.Run) *Cell {
	c := NewCell()
	c.SetPhrase(runs...)
	return c
}

func (c *Cell) invalidate() {
	c.cached = false
	c.sim = placement{}
}

// SetParagraphs 设置文本流内容，清除嵌套表格与图片。
func (c *Cell) SetParagraphs(paras ...*Paragraph) {
	if len(paras) == 0 {
		c.body = nil
	} else {
		c.body = NewColumn(paras...)
	}
	c.deferred = false
	c.invalidate()
}

// SetPhrase 以单个段落设置文本内容。
func (c *Cell) SetPhrase(runs ...*typeset.Run) {
	if len(runs) == 0 {
		c.SetParagraphs()
		return
	}
	c.SetParagraphs(&Paragraph{Runs: runs})
}

// SetTable 设置嵌套表格，清除文本与图片。
func (c *Cell) SetTable(t *Table) {
	if t == nil {
		c.body = nil
	} else {
		c.body = &tableCursor{table: t}
	}
	c.deferred = false
	c.invalidate()
}

// SetImage 设置图片内容，清除文本与嵌套表格。图片按单元格内宽等比缩小。
func (c *Cell) SetImage(img *typeset.Image) {
	if img == nil {
		c.body = nil
	} else {
		c.body = &imageContent{img: img}
	}
	c.deferred = false
	c.invalidate()
}

// Column 返回文本流游标；内容不是文本时返回 nil。
func (c *Cell) Column() *Column {
	col, _ := c.body.(*Column)
	return col
}

// Table 返回嵌套表格；内容不是表格时返回 nil。
func (c *Cell) Table() *Table {
	if tc, ok := c.body.(*tableCursor); ok {
		return tc.table
	}
	return nil
}

// Image 返回图片；内容不是图片时返回 nil。
func (c *Cell) Image() *typeset.Image {
	if ic, ok := c.body.(*imageContent); ok {
		return ic.img
	}
	return nil
}

// HasContent reports whether the cell holds any content.
func (c *Cell) HasContent() bool { return c.body != nil }

func (c *Cell) SetPadding(p Padding) {
	c.padding = p
	c.invalidate()
}

func (c *Cell) Padding() Padding { return c.padding }

func (c *Cell) SetBorder(b Border) {
	c.border = b
	c.invalidate()
}

func (c *Cell) Border() Border { return c.border }

// SetUseBorderPadding 让边框宽度的一半计入内边距。
func (c *Cell) SetUseBorderPadding(v bool) {
	c.useBorderPadding = v
	c.invalidate()
}

func (c *Cell) SetBackground(col color.Color) { c.background = col }
func (c *Cell) Background() color.Color       { return c.background }
func (c *Cell) SetVAlign(v VAlign)            { c.valign = v }
func (c *Cell) VAlign() VAlign                { return c.valign }
func (c *Cell) SetEvent(e CellEvent)          { c.event = e }

// SetNoWrap 让文本不折行，模拟时右边界视为无限远。
func (c *Cell) SetNoWrap(v bool) {
	c.noWrap = v
	c.invalidate()
}

func (c *Cell) NoWrap() bool { return c.noWrap }

// SetFixedHeight 设置固定高度并清除最小高度。
func (c *Cell) SetFixedHeight(h float64) {
	c.fixedHeight = h
	c.minHeight = 0
	c.invalidate()
}

// SetMinimumHeight 设置最小高度并清除固定高度。
func (c *Cell) SetMinimumHeight(h float64) {
	c.minHeight = h
	c.fixedHeight = 0
	c.invalidate()
}

func (c *Cell) FixedHeight() float64   { return c.fixedHeight }
func (c *Cell) MinimumHeight() float64 { return c.minHeight }

// SetColspan 设置跨列数，n 必须 ≥ 1。
func (c *Cell) SetColspan(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: colspan %d", typeset.ErrInvalidArgument, n)
	}
	c.colspan = n
	c.invalidate()
	return nil
}

// SetRowspan 设置跨行数，n 必须 ≥ 1。
func (c *Cell) SetRowspan(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: rowspan %d", typeset.ErrInvalidArgument, n)
	}
	c.rowspan = n
	c.invalidate()
	return nil
}

func (c *Cell) Colspan() int { return c.colspan }
func (c *Cell) Rowspan() int { return c.rowspan }

// SetRotation 设置旋转角度（逆时针），只接受 90 的整数倍；非法值不修改单元格。
func (c *Cell) SetRotation(deg int) error {
	if deg%90 != 0 {
		return fmt.Errorf("%w: rotation %d 必须是 90 的倍数", typeset.ErrInvalidArgument, deg)
	}
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	c.rotation = deg
	c.invalidate()
	return nil
}

func (c *Cell) Rotation() int { return c.rotation }

func (c *Cell) pivoted() bool { return c.rotation == 90 || c.rotation == 270 }

// SetBounds 设置单元格外框。宽度变化会使高度缓存失效。
func (c *Cell) SetBounds(x, y, w, h float64) {
	if w != c.rect.W {
		c.invalidate()
	}
	c.rect = Rect{X: x, Y: y, W: w, H: h}
}

func (c *Cell) setWidth(w float64) {
	if w != c.rect.W {
		c.rect.W = w
		c.invalidate()
	}
}

func (c *Cell) Rect() Rect       { return c.rect }
func (c *Cell) Width() float64   { return c.rect.W }
func (c *Cell) Height() float64  { return c.rect.H }
func (c *Cell) Simulations() int { return c.simulations }

// EffectivePadding 返回计入边框后的内边距。
func (c *Cell) EffectivePadding() Padding {
	p := c.padding
	if !c.useBorderPadding || c.border.Width <= 0 {
		return p
	}
	half := c.border.Width / 2
	if c.border.Sides&SideTop != 0 {
		p.Top += half
	}
	if c.border.Sides&SideRight != 0 {
		p.Right += half
	}
	if c.border.Sides&SideBottom != 0 {
		p.Bottom += half
	}
	if c.border.Sides&SideLeft != 0 {
		p.Left += half
	}
	return p
}

// frame 返回内容排版区域的 (宽, 高)。outer 为外框高度，≤0 表示未知。
// 旋转 90/270 度时宽高互换：行沿物理高度方向排列，行的堆叠受物理宽度约束。
func (c *Cell) frame(outer float64) (float64, float64) {
	p := c.EffectivePadding()
	if c.pivoted() {
		w := rightLimit
		if outer > 0 {
			w = outer - p.Top - p.Bottom
		}
		return w, c.rect.W - p.Left - p.Right
	}
	w := c.rect.W - p.Left - p.Right
	if c.noWrap {
		w = rightLimit
	}
	h := bottomLimit
	if outer > 0 {
		h = outer - p.Top - p.Bottom
	}
	return w, h
}

// GetMaxHeight 模拟排版并返回 max(内容高度, 固定高度, 最小高度)。
// 模拟在内容游标的副本上进行；结果缓存到下一次修改为止。
func (c *Cell) GetMaxHeight() float64 {
	if c.cached {
		return c.maxHeight
	}
	c.simulations++
	p := c.EffectivePadding()
	h := 0.0
	if c.body != nil {
		c.simW, c.simH = c.frame(c.fixedHeight)
		c.sim = c.body.clone().layout(c.simW, c.simH)
		if c.pivoted() {
			h = c.sim.filled
		} else {
			h = c.sim.height
		}
		if h > 0 {
			h += p.Top + p.Bottom
		}
	}
	h = math.Max(h, math.Max(c.fixedHeight, c.minHeight))
	c.cached = true
	c.maxHeight = h
	return h
}

// Clone 深拷贝单元格，包括几何、缓存与内容游标。
func (c *Cell) Clone() *Cell {
	cp := *c
	if c.body != nil {
		cp.body = c.body.clone()
	}
	cp.sim = placement{}
	return &cp
}

// continuation 返回样式相同、没有内容与高度约束的续接单元格。
func (c *Cell) continuation() *Cell {
	cp := *c
	cp.body = nil
	cp.fixedHeight = 0
	cp.minHeight = 0
	cp.spanHeight = 0
	cp.simulations = 0
	cp.deferred = false
	cp.invalidate()
	return &cp
}

// heightState 保存拆分尝试前的高度约束与缓存，用于精确恢复。
type heightState struct {
	fixed, min float64
	cached     bool
	maxHeight  float64
	sim        placement
	simW, simH float64
	deferred   bool
}

func (c *Cell) saveHeights() heightState {
	return heightState{
		fixed: c.fixedHeight, min: c.minHeight,
		cached: c.cached, maxHeight: c.maxHeight,
		sim: c.sim, simW: c.simW, simH: c.simH,
		deferred: c.deferred,
	}
}

func (c *Cell) restoreHeights(s heightState) {
	c.fixedHeight = s.fixed
	c.minHeight = s.min
	c.cached = s.cached
	c.maxHeight = s.maxHeight
	c.sim = s.sim
	c.simW, c.simH = s.simW, s.simH
	c.deferred = s.deferred
}

// split 在 height 内推进内容的副本，返回 (是否消耗了内容, 续接单元格的内容)。
// 整体延后的旋转单元格会被标记，绘制时不再输出内容。
func (c *Cell) split(height float64) (bool, content) {
	if c.body == nil {
		return false, nil
	}
	if c.pivoted() {
		// 旋转单元格不在内部拆分：整体放下或整体延后
		if c.GetMaxHeight() <= height {
			return true, nil
		}
		c.deferred = true
		return false, c.body.clone()
	}
	cur := c.body.clone()
	w, h := c.frame(height)
	pl := cur.layout(w, h)
	switch {
	case !pl.advanced:
		return false, c.body.clone()
	case !pl.done:
		return true, cur
	}
	return true, nil
}

// write 输出背景、边框与内容，最后触发事件。
func (c *Cell) write(cv Canvas) error {
	r := c.rect
	if c.background != nil {
		cv.FillRect(r, c.background)
	}
	c.writeBorder(cv)
	if err := c.writeContent(cv); err != nil {
		return err
	}
	if c.event != nil {
		c.event.CellLayout(c, r, cv)
	}
	return nil
}

func (c *Cell) writeBorder(cv Canvas) {
	b := c.border
	if b.Width <= 0 || b.Sides == SideNone {
		return
	}
	r := c.rect
	if b.Sides == SideAll {
		cv.StrokeRect(r, b.Width, b.Color)
		return
	}
	half := b.Width / 2
	if b.Sides&SideTop != 0 {
		cv.FillRect(Rect{X: r.X - half, Y: r.Y - half, W: r.W + b.Width, H: b.Width}, b.Color)
	}
	if b.Sides&SideBottom != 0 {
		cv.FillRect(Rect{X: r.X - half, Y: r.Y + r.H - half, W: r.W + b.Width, H: b.Width}, b.Color)
	}
	if b.Sides&SideLeft != 0 {
		cv.FillRect(Rect{X: r.X - half, Y: r.Y - half, W: b.Width, H: r.H + b.Width}, b.Color)
	}
	if b.Sides&SideRight != 0 {
		cv.FillRect(Rect{X: r.X + r.W - half, Y: r.Y - half, W: b.Width, H: r.H + b.Width}, b.Color)
	}
}

func (c *Cell) writeContent(cv Canvas) error {
	if c.body == nil || c.deferred {
		return nil
	}
	r := c.rect
	p := c.EffectivePadding()
	fw, fh := c.frame(r.H)

	// 与模拟时区域一致则复用缓存结果
	pl := c.sim
	reuse := c.cached && pl.draw != nil && c.simW == fw && (c.simH == fh || (pl.done && pl.height <= fh))
	if !reuse {
		pl = c.body.clone().layout(fw, fh)
	}
	if pl.draw == nil {
		return nil
	}

	offset := 0.0
	switch c.valign {
	case VAlignMiddle:
		offset = (fh - pl.height) / 2
	case VAlignBottom:
		offset = fh - pl.height
	}
	offset = math.Max(offset, 0)

	shift := 0.0
	if c.noWrap {
		shift = c.noWrapShift(fw)
	}

	if c.rotation == 0 {
		return pl.draw(cv, r.X+p.Left+shift, r.Y+p.Top+offset)
	}
	// 局部坐标系：旋转 90/270 度时宽为物理高度、高为物理宽度
	var lx, ly float64
	switch c.rotation {
	case 90:
		lx, ly = p.Bottom, p.Left
	case 180:
		lx, ly = p.Right, p.Bottom
	case 270:
		lx, ly = p.Top, p.Right
	}
	cv.Save()
	cv.Transform(rotation(c.rotation, r.X, r.Y, r.W, r.H))
	err := pl.draw(cv, lx+shift, ly+offset)
	cv.Restore()
	return err
}

// noWrapShift 把无限宽度排出的行按首段对齐方式移回单元格内。
func (c *Cell) noWrapShift(width float64) float64 {
	col, ok := c.body.(*Column)
	if !ok || len(col.paras) == 0 {
		return 0
	}
	switch col.paras[0].Align {
	case typeset.AlignCenter:
		return -(rightLimit - width) / 2
	case typeset.AlignRight:
		return -(rightLimit - width)
	}
	return 0
}
