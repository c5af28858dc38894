package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/columna/binding"
	"github.com/ByLCY/columna/dsl"
	"github.com/ByLCY/columna/table"
)

// buildHeaderFooter 布局页眉/页脚中的 text、image 与形状，结果在每一页重复。
// 内容自上而下堆叠；页眉内容贴合区域底边，页脚区域从页面底部向上占用 height。
// 页眉中文本与图片默认居中。
func (b *builder) buildHeaderFooter(cmd *dsl.Command, pageW, pageH float64, margin Margin, data any) (HeaderFooter, error) {
	var hf HeaderFooter
	if cmd.Block == nil {
		return hf, nil
	}
	header := cmd.Name == "header"
	_, attrs := cmd.Attrs(false)
	contentWidth := pageW - margin.Left - margin.Right

	rec := b.recorder()
	var shapes []Op
	cursorY := 0.0
	for _, st := range cmd.Block.Statements {
		if st.Command == nil {
			continue
		}
		sub := st.Command
		switch sub.Name {
		case "text":
			styleName, tattrs := sub.Attrs(true)
			all := mergeStyleAttributes(styleName, tattrs, b.res.Styles)
			if header && strings.TrimSpace(all["align"]) == "" {
				all["align"] = "center"
			}
			content := binding.Interpolate(sub.Block.Text(), data)
			if content == "" {
				continue
			}
			ts, err := b.textStyle(styleName, all)
			if err != nil {
				return hf, fmt.Errorf("%s: %w", cmd.Name, err)
			}
			res := table.NewColumn(b.paragraph(ts, all, content)).Go(contentWidth, 1e7, true)
			if err := res.Write(rec, margin.Left, cursorY); err != nil {
				return hf, err
			}
			cursorY += res.Height + blockSpacing
		case "image":
			styleName, iattrs := sub.Attrs(true)
			iattrs = mergeStyleAttributes(styleName, iattrs, b.res.Styles)
			img, err := b.image(styleName, iattrs, contentWidth)
			if err != nil {
				return hf, fmt.Errorf("%s: %w", cmd.Name, err)
			}
			align := iattrs["align"]
			if header && align == "" {
				align = "center"
			}
			w, h := img.ScaledWidth(), img.ScaledHeight()
			rec.DrawImage(table.Rect{X: margin.Left + alignOffset(contentWidth, w, align), Y: cursorY, W: w, H: h}, img)
			cursorY += h + blockSpacing
		case "line", "rect", "circle":
			ops, err := shapeOps(sub, b.res)
			if err != nil {
				return hf, err
			}
			shapes = append(shapes, ops...)
		}
	}
	if cursorY > 0 {
		cursorY -= blockSpacing
	}

	contentHeight := cursorY
	areaHeight := contentHeight
	if h := parseDimension(attrs["height"], contentWidth); h > 0 {
		areaHeight = h
	}

	var baseY float64
	if header {
		baseY = max(areaHeight-contentHeight, 0)
	} else {
		baseY = pageH - areaHeight
	}
	hf.Height = areaHeight
	hf.Ops = append(shiftOps(rec.ops, baseY), shapes...)
	return hf, nil
}

// shiftOps 把操作整体下移 dy。页眉页脚中不会出现 transform。
func shiftOps(ops []Op, dy float64) []Op {
	out := make([]Op, len(ops))
	for i, op := range ops {
		switch op.Kind {
		case OpText:
			if op.Matrix != nil {
				m := *op.Matrix
				m[5] += dy
				op.Matrix = &m
			}
		default:
			op.Y += dy
			op.Y2 += dy
		}
		out[i] = op
	}
	return out
}
