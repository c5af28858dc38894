package layout

import (
	"image/color"

	"seehuhn.de/go/geom/matrix"

	"github.com/ByLCY/columna/table"
	"github.com/ByLCY/columna/typeset"
)

// recorder 把 table.Canvas 的调用记录为页面操作。
// fonts 用于从度量反查字体资源名，Metrics 的动态类型必须可比较。
type recorder struct {
	ops   []Op
	fonts map[typeset.Metrics]string
}

var _ table.Canvas = (*recorder)(nil)

func (r *recorder) FillRect(rc table.Rect, c color.Color) {
	r.ops = append(r.ops, Op{Kind: OpFill, X: rc.X, Y: rc.Y, W: rc.W, H: rc.H, Color: colorOf(c)})
}

func (r *recorder) StrokeRect(rc table.Rect, width float64, c color.Color) {
	r.ops = append(r.ops, Op{Kind: OpStroke, X: rc.X, Y: rc.Y, W: rc.W, H: rc.H, StrokeWidth: width, Color: colorOf(c)})
}

func (r *recorder) ShowText(m matrix.Matrix, item table.TextItem) {
	name := ""
	if item.Font.Metrics != nil {
		name = r.fonts[item.Font.Metrics]
	}
	r.ops = append(r.ops, Op{
		Kind:   OpText,
		Matrix: matrixOf(m),
		Color:  colorOf(item.Color),
		Text: &TextOp{
			Content:     item.Text,
			Font:        name,
			Size:        item.Font.Size,
			Width:       item.Width,
			CharSpacing: item.CharSpacing,
			WordSpacing: item.WordSpacing,
			HScale:      item.HScale,
		},
	})
}

func (r *recorder) DrawImage(rc table.Rect, img *typeset.Image) {
	r.ops = append(r.ops, Op{Kind: OpImage, X: rc.X, Y: rc.Y, W: rc.W, H: rc.H, Image: img.Name})
}

func (r *recorder) Save() { r.ops = append(r.ops, Op{Kind: OpSave}) }

func (r *recorder) Transform(m matrix.Matrix) {
	r.ops = append(r.ops, Op{Kind: OpTransform, Matrix: matrixOf(m)})
}

func (r *recorder) Restore() { r.ops = append(r.ops, Op{Kind: OpRestore}) }

func matrixOf(m matrix.Matrix) *[6]float64 {
	out := [6]float64(m)
	return &out
}

func colorOf(c color.Color) *Color {
	if c == nil {
		return nil
	}
	r, g, b, _ := c.RGBA()
	return &Color{R: int(r >> 8), G: int(g >> 8), B: int(b >> 8)}
}

// ToRGBA 返回不透明的 color.RGBA。
func (c Color) ToRGBA() color.RGBA {
	return color.RGBA{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B), A: 255}
}
