package typeset

import "math"

// DefaultTabInterval 是未设置制表位时的默认间隔（pt）。
const DefaultTabInterval = 36.0

// TabAlign 描述文本相对制表位的对齐方式。
type TabAlign int

const (
	TabLeft TabAlign = iota
	TabRight
	TabCenter
	TabAnchor // 以锚点字符（如小数点）对齐
)

// TabStop 是一个已确定位置的制表位，Position 相对行的左边界。
type TabStop struct {
	Position float64
	Align    TabAlign
	Anchor   rune
}

// TabSettings 是一组显式制表位，超出后按 Interval 生成左对齐制表位。
type TabSettings struct {
	Stops    []TabStop
	Interval float64
}

// Next 返回 position 之后的第一个制表位。
func (ts *TabSettings) Next(position float64) TabStop {
	if ts != nil {
		for _, stop := range ts.Stops {
			if stop.Position-position > 0.001 {
				return stop
			}
		}
	}
	interval := DefaultTabInterval
	if ts != nil && ts.Interval > 0 {
		interval = ts.Interval
	}
	pos := math.Round(position*1000) / 1000
	interval = math.Round(interval*1000) / 1000
	return TabStop{Position: pos + interval - math.Mod(pos, interval), Align: TabLeft}
}

// resolve 计算延迟制表位的实际起点。
// tabPosition 为制表符所在位置，current 为其后文本的结束位置，
// anchor 为锚点字符的位置（NaN 表示未出现）。
func (s TabStop) resolve(tabPosition, current, anchor float64) float64 {
	textWidth := current - tabPosition
	switch s.Align {
	case TabRight:
		if tabPosition+textWidth < s.Position {
			return s.Position - textWidth
		}
		return tabPosition
	case TabCenter:
		if tabPosition+textWidth/2 < s.Position {
			return s.Position - textWidth/2
		}
		return tabPosition
	case TabAnchor:
		if !math.IsNaN(anchor) {
			if anchor < s.Position {
				return s.Position - (anchor - tabPosition)
			}
			return tabPosition
		}
		if tabPosition+textWidth < s.Position {
			return s.Position - textWidth
		}
		return tabPosition
	}
	return s.Position
}
