package typeset

// Metrics 是外部字体度量提供者。宽度以 1000 单位/em 计。
type Metrics interface {
	// Advance 返回码点 r 的步进宽度。
	Advance(r rune) float64
	// Bounds 返回 ascent 与 descent（descent 通常为负值）。
	Bounds() (ascent, descent float64)
	// DirectSpace 报告在给定编码下空格字符是否有直接的步进宽度。
	// 部分双字节（CID）编码中空格没有独立字形，此时返回 false。
	DirectSpace(enc Encoding) bool
}

// Font 是字体度量与字号的组合句柄。
type Font struct {
	Metrics Metrics
	Size    float64
}

// Width 返回 s 在该字号下的宽度（不含字间距等属性）。
func (f Font) Width(s string) float64 {
	if f.Metrics == nil {
		return 0
	}
	total := 0.0
	for _, r := range s {
		total += f.Metrics.Advance(r)
	}
	return total * f.Size / 1000
}

func (f Font) advance(r rune) float64 {
	if f.Metrics == nil {
		return 0
	}
	return f.Metrics.Advance(r) * f.Size / 1000
}

// Ascent returns the scaled ascent of the font.
func (f Font) Ascent() float64 {
	if f.Metrics == nil {
		return f.Size
	}
	a, _ := f.Metrics.Bounds()
	return a * f.Size / 1000
}

// Descent returns the scaled descent of the font; usually negative.
func (f Font) Descent() float64 {
	if f.Metrics == nil {
		return 0
	}
	_, d := f.Metrics.Bounds()
	return d * f.Size / 1000
}
