package table

import (
	"fmt"
	"math"
)

// SplitStatus 是 SplitRow 的结果。
type SplitStatus int

const (
	SplitFits     SplitStatus = iota // 行可以整体放下，未拆分
	SplitPartial                     // 已拆分，当前行缩短为目标高度
	SplitRejected                    // 没有任何单元格能放下内容，整行应移到下一页
)

func (s SplitStatus) String() string {
	switch s {
	case SplitFits:
		return "fits"
	case SplitPartial:
		return "partial"
	}
	return "rejected"
}

// Row 是按列索引的单元格数组。被左侧 colspan 或上方 rowspan 覆盖的列为 nil。
// 列宽切片可以在行与其续接行之间共享。
type Row struct {
	cells        []*Cell
	widths       []float64
	extraHeights []float64 // 上方跨行单元格欠下的高度
	maxHeight    float64
	calculated   bool
}

// NewRow 创建一行；cells 的长度即列数。
func NewRow(cells []*Cell) *Row {
	return &Row{cells: cells, extraHeights: make([]float64, len(cells))}
}

func (r *Row) Cells() []*Cell { return r.cells }

// SetWidths 设置列宽，每个单元格的宽度为其跨越列宽之和。
func (r *Row) SetWidths(widths []float64) {
	r.widths = widths
	for k, c := range r.cells {
		if c == nil {
			continue
		}
		w := 0.0
		for i := k; i < k+c.colspan && i < len(widths); i++ {
			w += widths[i]
		}
		c.setWidth(w)
	}
	r.calculated = false
}

func (r *Row) width(k int) float64 {
	if k < len(r.widths) {
		return r.widths[k]
	}
	return 0
}

// CalculateHeights 计算行高：rowspan 为 1 的单元格 GetMaxHeight 的最大值。
// 跨行单元格不参与，它们的超出部分由表格记为后续行的额外高度。全空行高度为 0。
func (r *Row) CalculateHeights() float64 {
	h := 0.0
	for _, c := range r.cells {
		if c == nil || c.rowspan > 1 {
			continue
		}
		h = math.Max(h, c.GetMaxHeight())
	}
	r.maxHeight = h
	r.calculated = true
	return h
}

// MaxHeight 返回按需计算的行高，不含额外高度。
func (r *Row) MaxHeight() float64 {
	if !r.calculated {
		r.CalculateHeights()
	}
	return r.maxHeight
}

// Height 返回行高加上最大的额外高度。
func (r *Row) Height() float64 {
	extra := 0.0
	for _, e := range r.extraHeights {
		extra = math.Max(extra, e)
	}
	return r.MaxHeight() + extra
}

// SetExtraHeight 记录第 col 列的跨行单元格需要本行额外提供的高度。
func (r *Row) SetExtraHeight(col int, h float64) {
	if col < 0 || col >= len(r.extraHeights) {
		return
	}
	r.extraHeights[col] = h
}

func (r *Row) ExtraHeight(col int) float64 {
	if col < 0 || col >= len(r.extraHeights) {
		return 0
	}
	return r.extraHeights[col]
}

// Clone 深拷贝单元格；列宽切片共享。
func (r *Row) Clone() *Row {
	cp := &Row{
		cells:        make([]*Cell, len(r.cells)),
		widths:       r.widths,
		extraHeights: append([]float64(nil), r.extraHeights...),
		maxHeight:    r.maxHeight,
		calculated:   r.calculated,
	}
	for k, c := range r.cells {
		if c != nil {
			cp.cells[k] = c.Clone()
		}
	}
	return cp
}

func (r *Row) hasContent() bool {
	for _, c := range r.cells {
		if c != nil && (c.HasContent() || c.rowspan > 1) {
			return true
		}
	}
	return false
}

// withSpans 返回在空列填入跨页续接单元格后的副本。
func (r *Row) withSpans(spans []*Cell) *Row {
	cp := r.Clone()
	for k, c := range spans {
		if c == nil || k >= len(cp.cells) || cp.cells[k] != nil {
			continue
		}
		cp.cells[k] = c.Clone()
		cp.extraHeights[k] = 0
	}
	cp.CalculateHeights()
	return cp
}

// spanSource 查找跨入 (row, col) 的单元格。used 为该单元格在 row 之前已占用的高度，
// left 为包括 row 在内尚未覆盖的行数。
type spanSource interface {
	spanAbove(row, col int) (origin *Cell, used float64, left int, ok bool)
}

// spanContinuation 在 budget 高度内推进跨行单元格，返回承载剩余内容的续接单元格。
func spanContinuation(origin *Cell, budget float64, left int) *Cell {
	_, rest := origin.split(budget)
	cont := origin.continuation()
	cont.body = rest
	cont.rowspan = max(left, 1)
	return cont
}

// SplitRow 在高度 h 处拆分第 rowIndex 行。
//
// 行可以整体放下时返回 (nil, SplitFits)。没有任何单元格能在 h 内推进时返回
// (nil, SplitRejected)，所有单元格的高度约束与缓存恢复为调用前的状态。
// 否则本行缩短为 h，返回承载剩余内容的续接行；剩余内容为空时续接行为 nil。
func (r *Row) SplitRow(t *Table, rowIndex int, h float64) (*Row, SplitStatus) {
	if t == nil {
		return r.splitRow(nil, rowIndex, h)
	}
	return r.splitRow(t, rowIndex, h)
}

func (r *Row) splitRow(spans spanSource, rowIndex int, h float64) (*Row, SplitStatus) {
	if h >= r.MaxHeight() {
		return nil, SplitFits
	}
	newCells := make([]*Cell, len(r.cells))
	saved := make([]heightState, len(r.cells))
	allEmpty := true
	for k, c := range r.cells {
		if c == nil {
			if spans == nil {
				continue
			}
			if origin, used, left, ok := spans.spanAbove(rowIndex, k); ok {
				newCells[k] = spanContinuation(origin, used+h, left)
				allEmpty = false
			}
			continue
		}
		saved[k] = c.saveHeights()
		advanced, rest := c.split(h)
		cont := c.continuation()
		cont.body = rest
		newCells[k] = cont
		if advanced {
			allEmpty = false
		}
		c.SetFixedHeight(h)
	}
	if allEmpty {
		for k, c := range r.cells {
			if c != nil {
				c.restoreHeights(saved[k])
			}
		}
		return nil, SplitRejected
	}

	cont := &Row{cells: newCells, widths: r.widths, extraHeights: r.extraHeights}
	r.extraHeights = make([]float64, len(r.cells))
	r.CalculateHeights()
	if !cont.hasContent() {
		return nil, SplitPartial
	}
	cont.CalculateHeights()
	return cont, SplitPartial
}

// WriteCells 输出 [colStart, colEnd) 列的单元格，colEnd < 0 表示到最后一列。
// (x, y) 为第 0 列的左上角；跨行单元格使用表格设置的跨行高度。
func (r *Row) WriteCells(colStart, colEnd int, x, y float64, cv Canvas) error {
	return r.writeCells(colStart, colEnd, x, y, r.Height(), cv)
}

func (r *Row) writeCells(colStart, colEnd int, x, y, h float64, cv Canvas) error {
	if colEnd < 0 || colEnd > len(r.cells) {
		colEnd = len(r.cells)
	}
	colStart = max(colStart, 0)
	for k := 0; k < colStart; k++ {
		x += r.width(k)
	}
	for k := colStart; k < colEnd; k++ {
		c := r.cells[k]
		if c != nil {
			ch := h
			if c.rowspan > 1 && c.spanHeight > 0 {
				ch = c.spanHeight
			}
			c.SetBounds(x, y, c.Width(), ch)
			if err := c.write(cv); err != nil {
				return fmt.Errorf("写入第 %d 列: %w", k, err)
			}
		}
		x += r.width(k)
	}
	return nil
}
