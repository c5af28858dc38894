package table

import (
	"image/color"

	"seehuhn.de/go/geom/matrix"

	"github.com/ByLCY/columna/typeset"
)

// 坐标系约定：原点在左上角，y 向下增长，单位与字体字号一致。

// Rect 是一个轴对齐矩形，(X, Y) 为左上角。
type Rect struct {
	X, Y, W, H float64
}

// TextItem 描述一次文本绘制。Raw 为按 Encoding 编码后的字节。
type TextItem struct {
	Text        string
	Raw         []byte
	Font        typeset.Font
	Encoding    typeset.Encoding
	Color       color.Color
	Width       float64
	CharSpacing float64
	WordSpacing float64
	HScale      float64
	Skew        typeset.Skew
}

// Canvas 是绘制输出的接收方。矩阵采用 PDF 约定 {a, b, c, d, e, f}。
// Transform 与 Save/Restore 成对使用，只影响二者之间的调用。
type Canvas interface {
	FillRect(r Rect, c color.Color)
	StrokeRect(r Rect, width float64, c color.Color)
	ShowText(m matrix.Matrix, item TextItem)
	DrawImage(r Rect, img *typeset.Image)
	Save()
	Transform(m matrix.Matrix)
	Restore()
}

// CellEvent 在单元格绘制完成后被调用，rect 为单元格的外框。
type CellEvent interface {
	CellLayout(cell *Cell, rect Rect, cv Canvas)
}

// CellEventFunc adapts a plain function to CellEvent.
type CellEventFunc func(cell *Cell, rect Rect, cv Canvas)

// CellLayout implements CellEvent.
func (f CellEventFunc) CellLayout(cell *Cell, rect Rect, cv Canvas) { f(cell, rect, cv) }

// rotation returns the matrix mapping a cell's local content frame onto
// the page for the given rotation. The local frame of a 90/270 degree cell
// is h wide and w high.
func rotation(deg int, x, y, w, h float64) matrix.Matrix {
	switch deg {
	case 90:
		return matrix.Matrix{0, -1, 1, 0, x, y + h}
	case 180:
		return matrix.Matrix{-1, 0, 0, -1, x + w, y + h}
	case 270:
		return matrix.Matrix{0, 1, -1, 0, x + w, y}
	}
	return matrix.Translate(x, y)
}
