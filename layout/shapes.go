package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/columna/dsl"
)

// shapeOps 把 line/rect/circle 命令转换为页面坐标下的绘制操作。
func shapeOps(cmd *dsl.Command, res ResourceSet) ([]Op, error) {
	_, attrs := cmd.Attrs(false)
	switch strings.ToLower(cmd.Name) {
	case "line":
		op, ok := lineShape(attrs, res)
		if !ok {
			return nil, fmt.Errorf("line 需要 x1/y1/x2/y2 或 x/y/length")
		}
		return []Op{op}, nil
	case "rect":
		return rectShape(attrs, res)
	case "circle":
		return circleShape(attrs, res)
	}
	return nil, nil
}

// lineShape 支持完整形式（x1/y1/x2/y2）与简化形式：
//
//	line x <len> y <len> length <len> [dir h|v] [color <..>] [width <len>]
func lineShape(attrs map[string]string, res ResourceSet) (Op, bool) {
	op := Op{Kind: OpLine, Color: &Color{}, StrokeWidth: parseLength(attrs["width"])}
	if op.StrokeWidth <= 0 {
		op.StrokeWidth = strokeWidth(attrs)
	}
	if c, ok := resolveColor(attrs["color"], res); ok {
		op.Color = &c
	}
	x1, y1 := parseLength(attrs["x1"]), parseLength(attrs["y1"])
	x2, y2 := parseLength(attrs["x2"]), parseLength(attrs["y2"])
	if x1 != 0 || y1 != 0 || x2 != 0 || y2 != 0 {
		op.X, op.Y, op.X2, op.Y2 = x1, y1, x2, y2
		return op, true
	}
	x, y := parseLength(attrs["x"]), parseLength(attrs["y"])
	length := parseLength(attrs["length"])
	if length <= 0 {
		return Op{}, false
	}
	op.X, op.Y = x, y
	switch strings.ToLower(strings.TrimSpace(attrs["dir"])) {
	case "", "h", "hor", "horizontal":
		op.X2, op.Y2 = x+length, y
	case "v", "ver", "vertical":
		op.X2, op.Y2 = x, y+length
	default:
		return Op{}, false
	}
	return op, true
}

func rectShape(attrs map[string]string, res ResourceSet) ([]Op, error) {
	x, y := parseLength(attrs["x"]), parseLength(attrs["y"])
	w, h := parseLength(attrs["width"]), parseLength(attrs["height"])
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("rect 需要正的 width 与 height")
	}
	var ops []Op
	if c, ok := resolveColor(attrs["fill"], res); ok {
		ops = append(ops, Op{Kind: OpFill, X: x, Y: y, W: w, H: h, Color: &c})
	}
	if c, ok := resolveColor(attrs["stroke"], res); ok {
		ops = append(ops, Op{Kind: OpStroke, X: x, Y: y, W: w, H: h, Color: &c, StrokeWidth: strokeWidth(attrs)})
	}
	return ops, nil
}

func circleShape(attrs map[string]string, res ResourceSet) ([]Op, error) {
	r := parseLength(attrs["r"])
	if r <= 0 {
		return nil, fmt.Errorf("circle 需要正的半径 r")
	}
	op := Op{Kind: OpCircle, X: parseLength(attrs["cx"]), Y: parseLength(attrs["cy"]), W: r}
	if c, ok := resolveColor(attrs["stroke"], res); ok {
		op.Color = &c
		op.StrokeWidth = strokeWidth(attrs)
	}
	if c, ok := resolveColor(attrs["fill"], res); ok {
		op.Fill = &c
	}
	return []Op{op}, nil
}

func strokeWidth(attrs map[string]string) float64 {
	if w := parseLength(attrs["stroke-width"]); w > 0 {
		return w
	}
	return 0.3
}
