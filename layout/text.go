package layout

import (
	"strconv"
	"strings"

	"github.com/ByLCY/columna/table"
	"github.com/ByLCY/columna/typeset"
)

const (
	defaultFontSize   = 12 * PtToMm // mm
	defaultLineFactor = 1.4
	defaultTabWidth   = 12.7 // mm
	defaultListIndent = 5.0  // mm
)

// textStyle 是从样式与行内属性解析出的文本排版参数，长度单位均为 mm。
type textStyle struct {
	fontName  string
	font      typeset.Font
	color     Color
	leading   table.Leading
	align     typeset.Align
	alignName string
	encoding  typeset.Encoding
	metric    typeset.MetricAttrs
}

// textStyle 解析字体、字号、行高、颜色、对齐与编码。attrs 应已与样式合并。
func (b *builder) textStyle(style string, attrs map[string]string) (textStyle, error) {
	ts := textStyle{color: Color{R: 30, G: 30, B: 30}}
	ts.fontName = attrs["font"]
	if ts.fontName == "" {
		ts.fontName = style
	}
	if ts.fontName == "" {
		ts.fontName = "Body"
	}

	size := parseLength(attrs["size"])
	if size <= 0 {
		size = defaultFontSize
	}
	font, name, err := b.font(ts.fontName, size)
	if err != nil {
		return ts, err
	}
	ts.font, ts.fontName = font, name

	ts.leading = LineHeight{Factor: defaultLineFactor}.Leading()
	if lh, err := ParseLineHeight(attrs["line-height"]); err == nil {
		ts.leading = lh.Leading()
	}
	if c, ok := resolveColor(attrs["color"], b.res); ok {
		ts.color = c
	}
	ts.align, ts.alignName = parseAlign(attrs["align"])
	ts.encoding = parseEncoding(attrs["encoding"])

	ts.metric = typeset.MetricAttrs{
		CharSpacing: parseLength(attrs["char-spacing"]),
		WordSpacing: parseLength(attrs["word-spacing"]),
		Rise:        parseLength(attrs["rise"]),
	}
	if v, err := strconv.ParseFloat(strings.TrimSuffix(attrs["scale"], "%"), 64); err == nil && v > 0 {
		ts.metric.HScale = v / 100
	}
	if isTrue(attrs["underline"]) {
		ts.metric.Underline = &typeset.Underline{Thickness: size * 0.05, Offset: size * 0.12}
	}
	return ts, nil
}

// paragraph 把文本内容转换为段落。制表符拆分为制表位 run，list 属性生成列表符号。
func (b *builder) paragraph(ts textStyle, attrs map[string]string, content string) *table.Paragraph {
	style := typeset.StyleAttrs{
		Color:       ts.color.ToRGBA(),
		Encoding:    ts.encoding,
		Hyphenation: typeset.SoftHyphenator{},
	}
	if c, ok := resolveColor(attrs["highlight"], b.res); ok {
		style.Background = c.ToRGBA()
	}
	if isTrue(attrs["nobreak"]) {
		style.Split = typeset.NoSplit{}
	}

	tabs := &typeset.TabSettings{Interval: defaultTabWidth}
	if v := parseLength(attrs["tab"]); v > 0 {
		tabs.Interval = v
	}
	var runs []*typeset.Run
	for i, part := range strings.Split(content, "\t") {
		if i > 0 {
			runs = append(runs, typeset.NewTabRun(ts.font, tabs, false, style))
		}
		if part != "" {
			runs = append(runs, typeset.NewRun(part, ts.font, ts.metric, style))
		}
	}

	para := &table.Paragraph{
		Runs:            runs,
		Align:           ts.align,
		Leading:         ts.leading,
		FirstLineIndent: parseLength(attrs["indent"]),
		SpacingBefore:   parseLength(attrs["space-before"]),
		SpacingAfter:    parseLength(attrs["space-after"]),
		RTL:             strings.EqualFold(attrs["dir"], "rtl"),
	}
	if marker := attrs["list"]; marker != "" {
		indent := defaultListIndent
		if v := parseLength(attrs["list-indent"]); v > 0 {
			indent = v
		}
		para.ListSymbol = typeset.NewRun(marker, ts.font, typeset.MetricAttrs{}, style)
		para.ListIndent = indent
		para.IndentLeft = indent
	}
	return para
}

// rawUnits 记录作者书写的字号与行高单位，只用于调试输出。
func rawUnits(attrs map[string]string) *TextBoxDebug {
	size := RawLengthJSON{Value: 12, Unit: "pt"}
	if l, err := ParseLength(attrs["size"]); err == nil && l.Unit != UnitPercent && l.Value > 0 {
		size = l.raw()
	}
	lh := LineHeight{Factor: defaultLineFactor}.raw()
	if h, err := ParseLineHeight(attrs["line-height"]); err == nil {
		lh = h.raw()
	}
	return &TextBoxDebug{RawUnits: &RawUnits{FontSize: &size, LineHeight: &lh}}
}

// parseAlign 支持 start/end 别名，返回规范化后的名称；默认 left 时名称为空。
func parseAlign(v string) (typeset.Align, string) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "center", "middle":
		return typeset.AlignCenter, "center"
	case "right", "end":
		return typeset.AlignRight, "right"
	case "justify", "justified":
		return typeset.AlignJustified, "justify"
	case "justify-all":
		return typeset.AlignJustifiedAll, "justify-all"
	case "left", "start":
		return typeset.AlignLeft, "left"
	}
	return typeset.AlignLeft, ""
}

func parseEncoding(v string) typeset.Encoding {
	switch strings.ToLower(v) {
	case "winansi":
		return typeset.EncodingWinAnsi
	case "latin1", "iso-8859-1":
		return typeset.EncodingLatin1
	}
	return typeset.EncodingIdentityH
}

func isTrue(v string) bool {
	switch strings.ToLower(v) {
	case "true", "yes", "on", "1":
		return true
	}
	return false
}
