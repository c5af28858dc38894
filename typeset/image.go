package typeset

// Image 是嵌入在文本流或单元格中的图片引用，尺寸单位与版面一致。
type Image struct {
	Name    string
	Width   float64 // 原始宽度
	Height  float64 // 原始高度
	Scale   float64 // 0 视为 1
	OffsetX float64
	OffsetY float64
	// SpacingBefore 在图片改变行距时计入行距。
	SpacingBefore float64
	// ScaleToFitHeight 允许单元格拆分时把图片缩放到剩余高度。
	ScaleToFitHeight bool
	Data             any
}

func (img *Image) scale() float64 {
	if img.Scale <= 0 {
		return 1
	}
	return img.Scale
}

// ScaledWidth returns the width after scaling.
func (img *Image) ScaledWidth() float64 { return img.Width * img.scale() }

// ScaledHeight returns the height after scaling.
func (img *Image) ScaledHeight() float64 { return img.Height * img.scale() }

// Clone 返回独立的副本，Data 按引用共享。
func (img *Image) Clone() *Image {
	if img == nil {
		return nil
	}
	cp := *img
	return &cp
}

// ScaleToWidth 按宽度等比缩放。
func (img *Image) ScaleToWidth(w float64) {
	if img.Width <= 0 {
		return
	}
	img.Scale = w / img.Width
}

// ScaleToHeight 按高度等比缩放。
func (img *Image) ScaleToHeight(h float64) {
	if img.Height <= 0 {
		return
	}
	img.Scale = h / img.Height
}
