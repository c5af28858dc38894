package typeset

import "image/color"

// MetricAttrs 保存会影响宽度或行高计算的属性。
type MetricAttrs struct {
	Underline   *Underline
	CharSpacing float64
	WordSpacing float64
	HScale      float64 // 水平缩放，0 视为 1
	Skew        Skew
	Tab         *TabSettings // 非空表示该 run 是一个制表位标记
	Whitespace  bool         // 制表位标记只代表空白，可在行首丢弃
	Rise        float64      // 基线偏移
	Leading     float64      // >0 时覆盖该 run 所在行的行距
}

// StyleAttrs 保存不影响度量的属性。
type StyleAttrs struct {
	Color       color.Color
	Background  color.Color
	Split       SplitCharacter
	Hyphenation Hyphenator
	Encoding    Encoding
}

// Underline describes an underline stroke relative to the baseline.
type Underline struct {
	Thickness float64
	Offset    float64
	Color     color.Color
}

// Skew is the text slant, as tangents of the alpha/beta angles.
type Skew struct {
	Alpha float64
	Beta  float64
}

func (m MetricAttrs) hscale() float64 {
	if m.HScale <= 0 {
		return 1
	}
	return m.HScale
}
