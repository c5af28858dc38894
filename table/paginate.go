package table

import "fmt"

// flowState 是表格排版的可恢复位置。
type flowState struct {
	next    int     // 下一个待排的行
	partial *Row    // 上一次拆分剩下的续接行，对应第 next 行
	spans   []*Cell // 需要续接到下一个首行的跨行单元格，按列索引
}

func (s flowState) done(t *Table) bool {
	return s.partial == nil && s.next >= len(t.rows)
}

func (s flowState) clone() flowState {
	cp := flowState{next: s.next}
	if s.partial != nil {
		cp.partial = s.partial.Clone()
	}
	if s.spans != nil {
		cp.spans = make([]*Cell, len(s.spans))
		for k, c := range s.spans {
			if c != nil {
				cp.spans[k] = c.Clone()
			}
		}
	}
	return cp
}

type sliceRow struct {
	index  int // 在表格中的行号
	row    *Row
	height float64
}

// Slice 是表格在一页（或一个单元格区域）中的部分：重复的表头加上若干正文行。
type Slice struct {
	Height float64

	rows     []sliceRow
	headers  int
	advanced bool
}

// Rows 返回切片中各行在表格中的行号，表头在前。
func (s *Slice) Rows() []int {
	out := make([]int, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.index
	}
	return out
}

// RowHeights 返回切片中各行实际占用的高度。
func (s *Slice) RowHeights() []float64 {
	out := make([]float64, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.height
	}
	return out
}

// BodyRows 返回正文行数。
func (s *Slice) BodyRows() int { return len(s.rows) - s.headers }

func (s *Slice) add(index int, row *Row, h float64) {
	s.rows = append(s.rows, sliceRow{index: index, row: row, height: h})
	s.Height += h
}

func (s *Slice) spanAbove(row, col int) (*Cell, float64, int, bool) {
	used := 0.0
	for j := len(s.rows) - 1; j >= s.headers; j-- {
		sr := s.rows[j]
		used += sr.height
		if col >= len(sr.row.cells) {
			return nil, 0, 0, false
		}
		c := sr.row.cells[col]
		if c == nil {
			continue
		}
		if left := sr.index + c.rowspan - row; left > 0 {
			return c, used, left, true
		}
		return nil, 0, 0, false
	}
	return nil, 0, 0, false
}

// pendingSpans 返回跨入第 next 行、需要在下一页继续的单元格。
func (s *Slice) pendingSpans(next, cols int) []*Cell {
	var out []*Cell
	for k := 0; k < cols; k++ {
		origin, used, left, ok := s.spanAbove(next, k)
		if !ok {
			continue
		}
		if out == nil {
			out = make([]*Cell, cols)
		}
		out[k] = spanContinuation(origin, used, left)
	}
	return out
}

// Write 从 (x, y) 开始逐行输出切片。跨行单元格的高度为其在切片中覆盖的行高之和。
func (s *Slice) Write(x, y float64, cv Canvas) error {
	for j, sr := range s.rows {
		for _, c := range sr.row.cells {
			if c == nil || c.rowspan <= 1 {
				continue
			}
			h := 0.0
			end := j + c.rowspan
			if j < s.headers {
				end = min(end, s.headers)
			}
			for i := j; i < end && i < len(s.rows); i++ {
				h += s.rows[i].height
			}
			c.spanHeight = h
		}
		if err := sr.row.writeCells(0, -1, x, y, sr.height, cv); err != nil {
			return fmt.Errorf("写入第 %d 行: %w", sr.index, err)
		}
		y += sr.height
	}
	return nil
}

// fill 在 height 内排出表头与尽可能多的正文行，返回切片与新的位置。
// force 为 true 时，空页上放不下的行也会被整体放下，保证每页都有进展。
// 输入状态与表格中的行不会被修改，拆分总是在副本上进行。
func (t *Table) fill(state flowState, height float64, force bool) (Slice, flowState) {
	var s Slice
	for i := 0; i < t.headerRows && i < len(t.rows); i++ {
		r := t.rows[i]
		s.add(i, r, r.Height())
	}
	s.headers = len(s.rows)
	if state.done(t) {
		s.advanced = len(s.rows) > 0
		return s, state
	}

	st := state.clone()
	const eps = 1e-6
	for !st.done(t) {
		idx := st.next
		row := st.partial
		if row == nil {
			row = t.rows[idx]
		}
		if st.spans != nil {
			row = row.withSpans(st.spans)
			st.spans = nil
		}
		room := height - s.Height
		h := row.Height()
		if h <= room+eps {
			s.add(idx, row, h)
			st.partial = nil
			st.next = idx + 1
			continue
		}

		placed := s.BodyRows() > 0
		if t.splitRows && (!t.splitLate || !placed) {
			cp := row.Clone()
			cont, status := cp.splitRow(&s, idx, room)
			switch status {
			case SplitFits:
				// 只有跨行额外高度放不下，剩余部分由跨行续接承担
				s.add(idx, cp, room)
				st.partial = nil
				st.next = idx + 1
			case SplitPartial:
				s.add(idx, cp, cp.Height())
				st.partial = cont
				if cont == nil {
					st.next = idx + 1
				}
			}
			if status != SplitRejected {
				break
			}
		}
		if !placed && force {
			s.add(idx, row, h)
			st.partial = nil
			st.next = idx + 1
		}
		break
	}
	if s.BodyRows() == 0 {
		return s, state
	}
	s.advanced = true
	if st.partial == nil && st.next < len(t.rows) {
		st.spans = s.pendingSpans(st.next, t.NumColumns())
	}
	return s, st
}

// Paginate 把表格切分到连续的页面中，avail 返回第 page 页（从 0 开始）的可用高度。
// 表头在每页重复；放不下的行按 SplitLate/SplitRows 的设置移动或拆分，
// 空页上仍放不下的行整体放下。
func (t *Table) Paginate(avail func(page int) float64) ([]Slice, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	t.CalculateHeights()
	st := flowState{next: t.headerRows}
	if st.done(t) {
		s, _ := t.fill(st, avail(0), true)
		if len(s.rows) == 0 {
			return nil, nil
		}
		return []Slice{s}, nil
	}
	var out []Slice
	for page := 0; !st.done(t); page++ {
		s, next := t.fill(st, avail(page), true)
		out = append(out, s)
		st = next
	}
	return out, nil
}
