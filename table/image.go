package table

import "github.com/ByLCY/columna/typeset"

// imageContent 是单元格中的整张图片：要么完整放下，要么整体延后。
type imageContent struct {
	img *typeset.Image
}

func (c *imageContent) clone() content { return &imageContent{img: c.img.Clone()} }

// fit 返回图片在 width 内的显示尺寸，只缩小不放大。
func (c *imageContent) fit(width float64) (float64, float64) {
	w, h := c.img.ScaledWidth(), c.img.ScaledHeight()
	if w > width && w > 0 {
		h *= width / w
		w = width
	}
	return w, h
}

func (c *imageContent) layout(width, height float64) placement {
	w, h := c.fit(width)
	if h > height {
		if !c.img.ScaleToFitHeight || height <= 0 || h <= 0 {
			return placement{}
		}
		w *= height / h
		h = height
	}
	img := c.img
	return placement{
		height:   h,
		filled:   w,
		advanced: true,
		done:     true,
		draw: func(cv Canvas, x, y float64) error {
			cv.DrawImage(Rect{X: x, Y: y, W: w, H: h}, img)
			return nil
		},
	}
}
