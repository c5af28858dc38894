package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/columna/binding"
	"github.com/ByLCY/columna/dsl"
	"github.com/ByLCY/columna/table"
)

const (
	cellPadding       = 1.2 // mm
	cellBorderWidth   = 0.2 // mm
	defaultHeaderFill = "#f8f8f8"
)

var defaultBorderColor = Color{R: 200, G: 200, B: 200}

// 表格级属性中会作为单元格文本默认值的键
var inheritedTextKeys = []string{"font", "size", "color", "line-height", "encoding", "text-align"}

// rowSpec 是展开 each 之后的一行定义。
type rowSpec struct {
	cmd    *dsl.Command
	header bool
	data   any
}

// tableDefaults 是表格为单元格提供的默认外观。
type tableDefaults struct {
	text       map[string]string
	border     table.Border
	padding    table.Padding
	headerFill string
}

func (ctx *flowContext) handleTable(cmd *dsl.Command) error {
	if cmd.Block == nil {
		return fmt.Errorf("table 语句缺少内容")
	}
	styleName, attrs := cmd.Attrs(false)
	attrs = mergeStyleAttributes(styleName, attrs, ctx.b.res.Styles)

	width := ctx.width
	if w := parseDimension(attrs["width"], ctx.width); w > 0 && w <= ctx.width {
		width = w
	}
	tbl, err := ctx.b.buildTable(cmd, attrs, ctx.data)
	if err != nil {
		return err
	}
	tbl.SetTotalWidth(width)
	x := ctx.baseX + alignOffset(ctx.width, width, attrs["align"])

	paginate := func() ([]table.Slice, error) {
		return tbl.Paginate(func(page int) float64 {
			if page == 0 {
				return ctx.available()
			}
			return ctx.pageHeight()
		})
	}
	slices, err := paginate()
	if err != nil {
		return err
	}
	// 首个分片放不下（被强制放入）时先换页再重新分页
	if len(slices) > 0 && ctx.allowPageBreak && !ctx.atTop() && slices[0].Height > ctx.available()+1e-6 {
		ctx.pageBreak()
		if slices, err = paginate(); err != nil {
			return err
		}
	}

	for i := range slices {
		s := &slices[i]
		if i > 0 {
			if !ctx.allowPageBreak {
				return fmt.Errorf("表格在不可分页的区域中超出高度")
			}
			ctx.pageBreak()
		}
		rec := ctx.b.recorder()
		if err := s.Write(x, ctx.cursorY, rec); err != nil {
			return err
		}
		acc := ctx.acc()
		acc.ops = append(acc.ops, rec.ops...)
		acc.tables = append(acc.tables, TableBox{
			X:            x,
			Y:            ctx.cursorY,
			Width:        width,
			Height:       s.Height,
			ColumnWidths: tbl.Widths(),
			Rows:         s.Rows(),
			RowHeights:   s.RowHeights(),
		})
		ctx.cursorY += s.Height
	}
	ctx.cursorY += blockSpacing
	return nil
}

// buildTable 把 table 块转换为表格模型：
//
//	table columns 3 border 0.3mm {
//	  widths: [2, 1, 1]
//	  header { cell { "名称" } cell colspan 2 { "数量" } }
//	  each order.items item { row { cell { "${item.name}" } ... } }
//	}
//
// 列数依次取 widths、columns 属性，否则按首行的 colspan 之和推断。
// 开头连续的 header 行作为重复表头，header-rows 可显式覆盖。
func (b *builder) buildTable(cmd *dsl.Command, attrs map[string]string, data any) (*table.Table, error) {
	rows, err := expandRows(cmd.Block, data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table 需要至少一行")
	}

	var widths []float64
	for _, a := range assignments(cmd.Block) {
		if a.Key != "widths" {
			continue
		}
		for _, s := range a.Value.List() {
			w, err := strconv.ParseFloat(s, 64)
			if err != nil || w <= 0 {
				return nil, fmt.Errorf("widths 中的 %q 不是正数", s)
			}
			widths = append(widths, w)
		}
	}
	if len(widths) == 0 {
		n, _ := strconv.Atoi(attrs["columns"])
		if n <= 0 {
			n = inferColumns(rows[0].cmd)
		}
		if n <= 0 {
			return nil, fmt.Errorf("table 需要至少一个单元格")
		}
		widths = make([]float64, n)
		for i := range widths {
			widths[i] = 1
		}
	}

	tbl := table.NewTable(widths...)
	headers := 0
	for _, r := range rows {
		if !r.header {
			break
		}
		headers++
	}
	if v, err := strconv.Atoi(attrs["header-rows"]); err == nil {
		headers = v
	}
	tbl.SetHeaderRows(headers)
	if v := attrs["split-late"]; v != "" {
		tbl.SetSplitLate(isTrue(v))
	}
	if v := attrs["split-rows"]; v != "" {
		tbl.SetSplitRows(isTrue(v))
	}

	defaults := b.tableDefaults(attrs)
	for i, r := range rows {
		if r.cmd.Block == nil {
			return nil, fmt.Errorf("第 %d 行缺少 cell 定义", i+1)
		}
		for _, cmd := range r.cmd.Block.Commands("cell") {
			cell, err := b.buildCell(cmd, r, defaults)
			if err != nil {
				return nil, fmt.Errorf("第 %d 行: %w", i+1, err)
			}
			tbl.AddCell(cell)
		}
		tbl.CompleteRow()
	}
	return tbl, nil
}

// expandRows 收集 header/row 语句，并按数据展开其中的 each。
func expandRows(block *dsl.Block, data any) ([]rowSpec, error) {
	var out []rowSpec
	for _, st := range block.Statements {
		cmd := st.Command
		if cmd == nil {
			continue
		}
		switch cmd.Name {
		case "header", "row":
			out = append(out, rowSpec{cmd: cmd, header: cmd.Name == "header", data: data})
		case "each":
			path, name, err := cmd.Each()
			if err != nil {
				return nil, err
			}
			items, ok := binding.Items(data, path)
			if !ok {
				return nil, fmt.Errorf("each 数据 %s 不是数组", path)
			}
			for _, item := range items {
				rows, err := expandRows(cmd.Block, binding.Scope(data, name, item))
				if err != nil {
					return nil, err
				}
				out = append(out, rows...)
			}
		}
	}
	return out, nil
}

func inferColumns(row *dsl.Command) int {
	if row.Block == nil {
		return 0
	}
	n := 0
	for _, st := range row.Block.Statements {
		if st.Command == nil || st.Command.Name != "cell" {
			continue
		}
		_, attrs := st.Command.Attrs(true)
		span, err := strconv.Atoi(attrs["colspan"])
		if err != nil || span < 1 {
			span = 1
		}
		n += span
	}
	return n
}

func (b *builder) tableDefaults(attrs map[string]string) tableDefaults {
	d := tableDefaults{
		text:       map[string]string{},
		border:     table.Border{Width: cellBorderWidth, Color: defaultBorderColor.ToRGBA(), Sides: table.SideAll},
		padding:    table.Padding{Top: cellPadding, Right: cellPadding, Bottom: cellPadding, Left: cellPadding},
		headerFill: defaultHeaderFill,
	}
	for _, k := range inheritedTextKeys {
		if v := attrs[k]; v != "" {
			d.text[k] = v
		}
	}
	if v, ok := d.text["text-align"]; ok {
		d.text["align"] = v
		delete(d.text, "text-align")
	}
	applyBorder(&d.border, attrs, b.res)
	if v := attrs["padding"]; v != "" {
		d.padding = parsePadding(v)
	}
	if v, ok := attrs["header-bg"]; ok {
		d.headerFill = v
	}
	return d
}

// buildCell 创建单元格。块中的 table/image 命令作为嵌套内容，否则文本与 text 命令组成段落。
func (b *builder) buildCell(cmd *dsl.Command, row rowSpec, d tableDefaults) (*table.Cell, error) {
	styleName, inline := cmd.Attrs(true)
	attrs := map[string]string{}
	for k, v := range d.text {
		attrs[k] = v
	}
	for k, v := range mergeStyleAttributes(styleName, inline, b.res.Styles) {
		attrs[k] = v
	}

	cell := table.NewCell()
	if err := applySpans(cell, attrs); err != nil {
		return nil, err
	}
	cell.SetPadding(d.padding)
	if v := attrs["padding"]; v != "" {
		cell.SetPadding(parsePadding(v))
	}
	border := d.border
	applyBorder(&border, attrs, b.res)
	cell.SetBorder(border)

	fill := attrs["bg"]
	if fill == "" && row.header {
		fill = d.headerFill
	}
	if c, ok := resolveColor(fill, b.res); ok {
		cell.SetBackground(c.ToRGBA())
	}
	switch strings.ToLower(attrs["valign"]) {
	case "middle", "center":
		cell.SetVAlign(table.VAlignMiddle)
	case "bottom":
		cell.SetVAlign(table.VAlignBottom)
	}
	if h := parseLength(attrs["height"]); h > 0 {
		cell.SetFixedHeight(h)
	} else if h := parseLength(attrs["min-height"]); h > 0 {
		cell.SetMinimumHeight(h)
	}
	cell.SetNoWrap(isTrue(attrs["nowrap"]))

	if cmd.Block == nil {
		return cell, nil
	}
	var paras []*table.Paragraph
	var literal strings.Builder
	for _, st := range cmd.Block.Statements {
		switch {
		case st.Text != nil:
			literal.WriteString(string(st.Text.Value))
		case st.Command != nil && st.Command.Name == "table":
			nstyle, nattrs := st.Command.Attrs(false)
			nattrs = mergeStyleAttributes(nstyle, nattrs, b.res.Styles)
			nested, err := b.buildTable(st.Command, nattrs, row.data)
			if err != nil {
				return nil, fmt.Errorf("嵌套表格: %w", err)
			}
			cell.SetTable(nested)
			return cell, nil
		case st.Command != nil && st.Command.Name == "image":
			iname, iattrs := st.Command.Attrs(true)
			img, err := b.image(iname, iattrs, 0)
			if err != nil {
				return nil, err
			}
			cell.SetImage(img)
			return cell, nil
		case st.Command != nil && st.Command.Name == "text":
			para, err := b.cellParagraph(st.Command, attrs, row.data)
			if err != nil {
				return nil, err
			}
			paras = append(paras, para)
		}
	}
	if s := binding.Interpolate(literal.String(), row.data); s != "" {
		ts, err := b.textStyle(styleName, attrs)
		if err != nil {
			return nil, err
		}
		paras = append([]*table.Paragraph{b.paragraph(ts, attrs, s)}, paras...)
	}
	cell.SetParagraphs(paras...)
	return cell, nil
}

// cellParagraph 处理单元格中的 text 命令，单元格属性作为默认值。
func (b *builder) cellParagraph(cmd *dsl.Command, base map[string]string, data any) (*table.Paragraph, error) {
	styleName, inline := cmd.Attrs(true)
	attrs := map[string]string{}
	for _, k := range []string{"font", "size", "color", "line-height", "encoding", "align"} {
		if v := base[k]; v != "" {
			attrs[k] = v
		}
	}
	for k, v := range mergeStyleAttributes(styleName, inline, b.res.Styles) {
		attrs[k] = v
	}
	ts, err := b.textStyle(styleName, attrs)
	if err != nil {
		return nil, err
	}
	return b.paragraph(ts, attrs, binding.Interpolate(cmd.Block.Text(), data)), nil
}

func applySpans(cell *table.Cell, attrs map[string]string) error {
	for _, key := range []string{"colspan", "rowspan", "rotate"} {
		v := attrs[key]
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s %q 不是整数", key, v)
		}
		switch key {
		case "colspan":
			err = cell.SetColspan(n)
		case "rowspan":
			err = cell.SetRowspan(n)
		case "rotate":
			err = cell.SetRotation(n)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// applyBorder 读取 border（宽度或 none）、border-color 与 border-sides。
func applyBorder(border *table.Border, attrs map[string]string, res ResourceSet) {
	if v := attrs["border"]; v != "" {
		if strings.EqualFold(v, "none") {
			border.Width = 0
		} else {
			border.Width = parseLength(v)
		}
	}
	if c, ok := resolveColor(attrs["border-color"], res); ok {
		border.Color = c.ToRGBA()
	}
	if v := attrs["border-sides"]; v != "" {
		border.Sides = parseSides(v)
	}
}

// parseSides 解析由 t/r/b/l 组成的边集合，例如 "tb"。
func parseSides(v string) table.Sides {
	var sides table.Sides
	for _, r := range strings.ToLower(v) {
		switch r {
		case 't':
			sides |= table.SideTop
		case 'r':
			sides |= table.SideRight
		case 'b':
			sides |= table.SideBottom
		case 'l':
			sides |= table.SideLeft
		}
	}
	return sides
}

// parsePadding 支持一个或以逗号分隔的四个长度（上,右,下,左）。
func parsePadding(v string) table.Padding {
	parts := strings.Split(v, ",")
	if len(parts) == 4 {
		return table.Padding{
			Top:    parseLength(parts[0]),
			Right:  parseLength(parts[1]),
			Bottom: parseLength(parts[2]),
			Left:   parseLength(parts[3]),
		}
	}
	p := parseLength(v)
	return table.Padding{Top: p, Right: p, Bottom: p, Left: p}
}
