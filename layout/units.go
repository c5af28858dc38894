package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/columna/table"
)

// 布局内部的长度一律为毫米。DSL 中的长度可以带 mm/cm/in/pt 或 % 后缀，无后缀按毫米处理。

// Unit 是作者书写长度时使用的单位。
type Unit int

const (
	UnitNone    Unit = iota // 无后缀，按毫米处理
	UnitMM                  // 毫米
	UnitCM                  // 厘米
	UnitIN                  // 英寸
	UnitPT                  // 点
	UnitPercent             // 相对参考长度
)

// pt 与 mm 的换算系数。
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

var unitSuffixes = []struct {
	suffix string
	unit   Unit
}{
	{"mm", UnitMM},
	{"cm", UnitCM},
	{"in", UnitIN},
	{"pt", UnitPT},
	{"%", UnitPercent},
}

// String 返回单位后缀，UnitNone 为空串。
func (u Unit) String() string {
	for _, s := range unitSuffixes {
		if s.unit == u {
			return s.suffix
		}
	}
	return ""
}

func (u Unit) mm() float64 {
	switch u {
	case UnitCM:
		return 10
	case UnitIN:
		return 25.4
	case UnitPT:
		return PtToMm
	}
	return 1
}

// Length 保留作者书写的数值与单位。
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// ParseLength 解析 "12pt"、"2.5cm"、"50%"、"10" 这样的长度，大小写不敏感。
func ParseLength(s string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	var l Length
	for _, suf := range unitSuffixes {
		if num, ok := strings.CutSuffix(v, suf.suffix); ok {
			v, l.Unit = strings.TrimSpace(num), suf.unit
			break
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return Length{}, fmt.Errorf("长度 %q 无法解析: %w", s, err)
	}
	l.Value = f
	return l, nil
}

// MM 换算为毫米。百分比没有参考长度，返回 0。
func (l Length) MM() float64 {
	if l.Unit == UnitPercent {
		return 0
	}
	return l.Value * l.Unit.mm()
}

// Of 换算为毫米，百分比相对 reference（毫米）。
func (l Length) Of(reference float64) float64 {
	if l.Unit == UnitPercent {
		return reference * l.Value / 100
	}
	return l.MM()
}

func (l Length) raw() RawLengthJSON {
	unit := l.Unit
	if unit == UnitNone {
		unit = UnitMM
	}
	return RawLengthJSON{Value: l.Value, Unit: unit.String()}
}

// parseLength 把长度换算为毫米；无法解析或为百分比时返回 0。
func parseLength(value string) float64 {
	l, err := ParseLength(value)
	if err != nil {
		return 0
	}
	return l.MM()
}

// parseDimension 同 parseLength，但百分比相对 reference。
func parseDimension(value string, reference float64) float64 {
	l, err := ParseLength(value)
	if err != nil {
		return 0
	}
	return l.Of(reference)
}

// LineHeight 是作者书写的行高：倍数（1.2x，相对字号）或绝对长度（18pt）。
type LineHeight struct {
	Factor float64 // >0 表示倍数
	Len    Length
}

// ParseLineHeight 解析 line-height 属性。
func ParseLineHeight(s string) (LineHeight, error) {
	v := strings.TrimSpace(s)
	if num, ok := strings.CutSuffix(v, "x"); ok {
		f, err := strconv.ParseFloat(num, 64)
		if err != nil || f <= 0 {
			return LineHeight{}, fmt.Errorf("行高倍数 %q 无效", s)
		}
		return LineHeight{Factor: f}, nil
	}
	l, err := ParseLength(v)
	if err != nil {
		return LineHeight{}, fmt.Errorf("行高: %w", err)
	}
	if l.Unit == UnitPercent || l.Value <= 0 {
		return LineHeight{}, fmt.Errorf("行高 %q 无效", s)
	}
	return LineHeight{Len: l}, nil
}

// Leading 转换为段落行距：倍数随行内最大字号变化，绝对值固定。
func (h LineHeight) Leading() table.Leading {
	if h.Factor > 0 {
		return table.Leading{Multiplied: h.Factor}
	}
	return table.Leading{Fixed: h.Len.MM()}
}

func (h LineHeight) raw() RawLineHeightJSON {
	if h.Factor > 0 {
		return RawLineHeightJSON{Kind: "factor", Factor: h.Factor}
	}
	r := h.Len.raw()
	return RawLineHeightJSON{Kind: "absolute", Value: r.Value, Unit: r.Unit}
}
