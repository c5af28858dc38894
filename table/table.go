package table

import (
	"fmt"

	"github.com/ByLCY/columna/typeset"
)

// Table 是按列网格组织的行集合。单元格按行优先顺序添加，
// 被上方 rowspan 覆盖的列会被自动跳过。
type Table struct {
	relWidths  []float64
	totalWidth float64
	widths     []float64
	rows       []*Row

	current    []*Cell // 正在填充的行
	currentCol int

	headerRows int
	splitLate  bool
	splitRows  bool
}

// NewTable 按相对列宽创建表格；不给参数时只有一列。
func NewTable(relativeWidths ...float64) *Table {
	rel := make([]float64, 0, len(relativeWidths))
	for _, w := range relativeWidths {
		if w <= 0 {
			w = 1
		}
		rel = append(rel, w)
	}
	if len(rel) == 0 {
		rel = []float64{1}
	}
	return &Table{relWidths: rel, splitLate: true, splitRows: true}
}

func (t *Table) NumColumns() int { return len(t.relWidths) }

// SetTotalWidth 按相对列宽分配总宽度，并更新所有行的列宽。
func (t *Table) SetTotalWidth(w float64) {
	sum := 0.0
	for _, r := range t.relWidths {
		sum += r
	}
	t.totalWidth = w
	t.widths = make([]float64, len(t.relWidths))
	for i, r := range t.relWidths {
		t.widths[i] = w * r / sum
	}
	for _, row := range t.rows {
		row.SetWidths(t.widths)
	}
}

func (t *Table) TotalWidth() float64 { return t.totalWidth }

// Widths 返回绝对列宽；未设置总宽度时为 nil。
func (t *Table) Widths() []float64 { return t.widths }

// SetHeaderRows 设置每页重复的表头行数。
func (t *Table) SetHeaderRows(n int) { t.headerRows = max(n, 0) }

func (t *Table) HeaderRows() int { return t.headerRows }

// SetSplitLate 为 true 时，放不下的行先移到下一页，在空页上仍放不下才拆分。
func (t *Table) SetSplitLate(v bool) { t.splitLate = v }

// SetSplitRows 为 false 时行永不拆分。
func (t *Table) SetSplitRows(v bool) { t.splitRows = v }

func (t *Table) Rows() []*Row { return t.rows }

func (t *Table) Row(i int) *Row {
	if i < 0 || i >= len(t.rows) {
		return nil
	}
	return t.rows[i]
}

// AddCell 把单元格的副本放到下一个空闲列。colspan 超出行尾或
// 与上方 rowspan 重叠时会被截短；行填满后自动换行。
func (t *Table) AddCell(c *Cell) {
	n := t.NumColumns()
	t.skipCovered()
	cell := c.Clone()
	span := min(max(cell.colspan, 1), n-t.currentCol)
	for i := 1; i < span; i++ {
		if t.RowSpanAbove(len(t.rows), t.currentCol+i) {
			span = i
			break
		}
	}
	cell.colspan = span
	t.current[t.currentCol] = cell
	t.currentCol += span
	if t.currentCol >= n {
		t.finishRow()
	}
}

// skipCovered 跳过被上方跨行单元格覆盖的列，必要时开启新行。
func (t *Table) skipCovered() {
	n := t.NumColumns()
	for {
		if t.current == nil {
			t.current = make([]*Cell, n)
			t.currentCol = 0
		}
		for t.currentCol < n && t.RowSpanAbove(len(t.rows), t.currentCol) {
			t.currentCol++
		}
		if t.currentCol < n {
			return
		}
		t.finishRow()
	}
}

func (t *Table) finishRow() {
	row := NewRow(t.current)
	if t.widths != nil {
		row.SetWidths(t.widths)
	}
	t.rows = append(t.rows, row)
	t.current = nil
	t.currentCol = 0
}

// CompleteRow 用空单元格补齐正在填充的行。
func (t *Table) CompleteRow() {
	for t.current != nil {
		n := t.NumColumns()
		for t.currentCol < n && t.RowSpanAbove(len(t.rows), t.currentCol) {
			t.currentCol++
		}
		if t.currentCol >= n {
			t.finishRow()
			return
		}
		t.AddCell(NewCell())
	}
}

// cellAt 返回第 row 行中覆盖 col 列的单元格及其起始列。
func (t *Table) cellAt(row, col int) (*Cell, int) {
	cells := t.rows[row].cells
	for k := min(col, len(cells)-1); k >= 0; k-- {
		if c := cells[k]; c != nil {
			if k+c.colspan > col {
				return c, k
			}
			return nil, -1
		}
	}
	return nil, -1
}

// spanOrigin 返回从上方跨入 (row, col) 的单元格及其起始行、列。
func (t *Table) spanOrigin(row, col int) (*Cell, int, int) {
	if col < 0 || col >= t.NumColumns() {
		return nil, -1, -1
	}
	for r := min(row, len(t.rows)) - 1; r >= 0; r-- {
		c, k := t.cellAt(r, col)
		if c == nil {
			continue
		}
		if c.rowspan > row-r {
			return c, r, k
		}
		return nil, -1, -1
	}
	return nil, -1, -1
}

// RowSpanAbove reports whether (row, col) is covered by a rowspan starting above.
func (t *Table) RowSpanAbove(row, col int) bool {
	c, _, _ := t.spanOrigin(row, col)
	return c != nil
}

func (t *Table) spanAbove(row, col int) (*Cell, float64, int, bool) {
	c, o, k := t.spanOrigin(row, col)
	if c == nil || k != col {
		return nil, 0, 0, false
	}
	used := 0.0
	for i := o; i < row; i++ {
		used += t.rows[i].Height()
	}
	return c, used, o + c.rowspan - row, true
}

// CalculateHeights 计算所有行高。跨行单元格需要的高度超过其覆盖行的总高时，
// 差值记为最后一个覆盖行在该列的额外高度。
func (t *Table) CalculateHeights() {
	for _, r := range t.rows {
		clear(r.extraHeights)
		r.CalculateHeights()
	}
	for i, r := range t.rows {
		for k, c := range r.cells {
			if c == nil || c.rowspan <= 1 {
				continue
			}
			last := min(i+c.rowspan, len(t.rows)) - 1
			total := 0.0
			for j := i; j <= last; j++ {
				total += t.rows[j].Height()
			}
			if need := c.GetMaxHeight(); need > total {
				t.rows[last].SetExtraHeight(k, t.rows[last].ExtraHeight(k)+need-total)
			}
		}
	}
}

// TotalHeight 返回所有行高度之和。
func (t *Table) TotalHeight() float64 {
	t.CalculateHeights()
	h := 0.0
	for _, r := range t.rows {
		h += r.Height()
	}
	return h
}

func (t *Table) String() string {
	return fmt.Sprintf("Table{cols=%d rows=%d width=%g}", t.NumColumns(), len(t.rows), t.totalWidth)
}

// tableCursor 是嵌套在单元格中的表格游标：从某一行继续，并携带上次拆分剩下的续接行。
type tableCursor struct {
	table *Table
	state flowState
}

func (tc *tableCursor) clone() content {
	return &tableCursor{table: tc.table, state: tc.state.clone()}
}

func (tc *tableCursor) layout(width, height float64) placement {
	t := tc.table
	if t.totalWidth != width || t.widths == nil {
		t.SetTotalWidth(width)
	}
	t.CalculateHeights()
	if tc.state.next < t.headerRows {
		tc.state.next = t.headerRows
	}
	s, next := t.fill(tc.state, height, false)
	if !s.advanced {
		return placement{done: tc.state.done(t)}
	}
	tc.state = next
	return placement{
		height:   s.Height,
		filled:   width,
		advanced: true,
		done:     next.done(t),
		draw: func(cv Canvas, x, y float64) error {
			return s.Write(x, y, cv)
		},
	}
}

// validate 检查分页前的必要条件。
func (t *Table) validate() error {
	if t.totalWidth <= 0 {
		return fmt.Errorf("%w: 表格总宽度未设置", typeset.ErrInvalidArgument)
	}
	return nil
}
