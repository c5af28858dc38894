package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/columna/binding"
	"github.com/ByLCY/columna/dsl"
	"github.com/ByLCY/columna/table"
	"github.com/ByLCY/columna/typeset"
)

const blockSpacing = 3.0

// Build 根据 DSL AST 生成页面、文本、图片与表格的布局结果。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if opts.Fonts == nil {
		return nil, fmt.Errorf("layout: 缺少字体度量来源 FontProvider")
	}

	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	meta := collectMeta(doc)
	sections, sets, err := pageSections(doc)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("文档中缺少 page 段落")
	}

	b := &builder{
		res:     res,
		fonts:   opts.Fonts,
		debug:   opts.Debug,
		metrics: map[string]typeset.Metrics{},
		names:   map[typeset.Metrics]string{},
	}
	var pages []Page
	for _, section := range sections {
		built, err := b.buildPages(section, sets, data)
		if err != nil {
			return nil, err
		}
		pages = append(pages, built...)
	}

	return &Result{
		Pages:     pages,
		Resources: res,
		Meta:      meta,
	}, nil
}

// builder 持有一次布局共享的资源与字体度量缓存。
type builder struct {
	res     ResourceSet
	fonts   FontProvider
	debug   DebugOptions
	metrics map[string]typeset.Metrics
	names   map[typeset.Metrics]string
}

// font 返回字体资源在给定字号（mm）下的句柄，以及实际使用的资源名。
func (b *builder) font(name string, size float64) (typeset.Font, string, error) {
	fr, err := resolveFontResource(name, b.res)
	if err != nil {
		return typeset.Font{}, "", err
	}
	m, ok := b.metrics[fr.Name]
	if !ok {
		m, err = b.fonts.Metrics(fr)
		if err != nil {
			return typeset.Font{}, "", fmt.Errorf("加载字体 %s 失败: %w", fr.Name, err)
		}
		b.metrics[fr.Name] = m
		if _, seen := b.names[m]; !seen {
			b.names[m] = fr.Name
		}
	}
	return typeset.Font{Metrics: m, Size: size}, fr.Name, nil
}

func (b *builder) recorder() *recorder {
	return &recorder{fonts: b.names}
}

// buildPages 排版一个 page 段落，内容溢出时自动追加新页。
func (b *builder) buildPages(section *dsl.PageSection, sets map[string]*dsl.PageSetSection, data any) ([]Page, error) {
	width, height, err := resolvePageSize(section.Spec)
	if err != nil {
		return nil, err
	}
	if section.Block == nil {
		return nil, fmt.Errorf("page 段落缺少内容")
	}

	margin := resolveMargin(section.Spec.Params)
	collector := newPageCollector(width, height, margin)

	template, err := pageTemplate(section.Spec, sets)
	if err != nil {
		return nil, err
	}
	// 先布局页眉/页脚，内容区域随之收缩；页面自身的定义覆盖模板
	var blocks []*dsl.Block
	if template != nil && template.Block != nil {
		blocks = append(blocks, template.Block)
	}
	blocks = append(blocks, section.Block)
	for _, block := range blocks {
		for _, cmd := range block.Commands("") {
			switch cmd.Name {
			case "header", "footer":
				hf, err := b.buildHeaderFooter(cmd, width, height, margin, data)
				if err != nil {
					return nil, err
				}
				if cmd.Name == "header" {
					collector.header = hf
				} else {
					collector.footer = hf
				}
			}
		}
	}
	if collector.contentBottom() <= collector.contentTop() {
		return nil, fmt.Errorf("页眉页脚占满了页面，没有可用的内容区域")
	}

	root := &flowContext{
		b:              b,
		baseX:          margin.Left,
		baseY:          collector.contentTop(),
		width:          width - margin.Left - margin.Right,
		cursorY:        collector.contentTop(),
		data:           data,
		collector:      collector,
		margin:         margin,
		allowPageBreak: true,
	}
	if err := root.processBlock(section.Block); err != nil {
		return nil, err
	}
	return collector.pages(), nil
}

// processBlock 依次处理 block 内的命令。
func (ctx *flowContext) processBlock(block *dsl.Block) error {
	for _, stmt := range block.Statements {
		if stmt.Command == nil {
			continue
		}
		cmd := stmt.Command
		var err error
		switch strings.ToLower(cmd.Name) {
		case "flow":
			err = ctx.handleFlow(cmd)
		case "absolute":
			err = ctx.handleAbsolute(cmd)
		case "text":
			err = ctx.handleText(cmd)
		case "image":
			err = ctx.handleImage(cmd)
		case "table":
			err = ctx.handleTable(cmd)
		case "each":
			err = ctx.handleEach(cmd)
		case "page-break":
			if ctx.allowPageBreak && !ctx.atTop() {
				ctx.pageBreak()
			}
		case "line", "rect", "circle":
			ops, shapeErr := shapeOps(cmd, ctx.b.res)
			if shapeErr != nil {
				return shapeErr
			}
			acc := ctx.acc()
			acc.ops = append(acc.ops, ops...)
		case "header", "footer":
			// 已在 buildPages 中处理
		}
		if err != nil {
			return fmt.Errorf("%s (%d:%d): %w", cmd.Name, cmd.Pos.Line, cmd.Pos.Column, err)
		}
	}
	return nil
}

func (ctx *flowContext) handleFlow(cmd *dsl.Command) error {
	if cmd.Block == nil {
		return fmt.Errorf("flow 语句缺少子内容")
	}
	styleName, attrs := cmd.Attrs(false)
	attrs = mergeStyleAttributes(styleName, attrs, ctx.b.res.Styles)
	width := ctx.width
	if v := attrs["width"]; v != "" {
		if w := parseDimension(v, ctx.width); w > 0 && w <= ctx.width {
			width = w
		}
	}
	offset := alignOffset(ctx.width, width, attrs["align"])

	// 规范化 flow 的对齐方式，供未声明 align 的子 text 继承
	_, flowAlign := parseAlign(attrs["align"])
	if flowAlign == "" {
		flowAlign = ctx.textAlign
	}

	child := &flowContext{
		b:              ctx.b,
		baseX:          ctx.baseX + offset,
		baseY:          ctx.cursorY,
		width:          width,
		cursorY:        ctx.cursorY,
		data:           ctx.data,
		parent:         ctx,
		collector:      ctx.collector,
		margin:         ctx.margin,
		allowPageBreak: ctx.allowPageBreak,
		textAlign:      flowAlign,
	}
	if err := child.processBlock(cmd.Block); err != nil {
		return err
	}
	if child.cursorY > ctx.cursorY {
		ctx.cursorY = child.cursorY
	}
	return nil
}

func (ctx *flowContext) handleAbsolute(cmd *dsl.Command) error {
	if cmd.Block == nil {
		return fmt.Errorf("absolute 语句缺少子内容")
	}
	styleName, attrs := cmd.Attrs(false)
	attrs = mergeStyleAttributes(styleName, attrs, ctx.b.res.Styles)
	width := ctx.width
	if v := attrs["width"]; v != "" {
		if w := parseDimension(v, ctx.width); w > 0 {
			width = w
		}
	}
	offsetX := parseDimension(attrs["x"], ctx.width)
	offsetY := parseDimension(attrs["y"], ctx.width)

	child := &flowContext{
		b:              ctx.b,
		baseX:          ctx.baseX + offsetX,
		baseY:          ctx.baseY + offsetY,
		width:          width,
		cursorY:        ctx.baseY + offsetY,
		data:           ctx.data,
		parent:         ctx,
		collector:      ctx.collector,
		margin:         ctx.margin,
		allowPageBreak: false,
		textAlign:      ctx.textAlign,
	}
	return child.processBlock(cmd.Block)
}

// handleText 以文本流排版 text 块，放不下的行续排到下一页。
func (ctx *flowContext) handleText(cmd *dsl.Command) error {
	if cmd.Block == nil {
		return fmt.Errorf("text 语句缺少文本块")
	}
	styleName, attrs := cmd.Attrs(true)
	attrs = mergeStyleAttributes(styleName, attrs, ctx.b.res.Styles)
	if strings.TrimSpace(attrs["align"]) == "" && ctx.textAlign != "" {
		attrs["align"] = ctx.textAlign
	}
	content := binding.Interpolate(cmd.Block.Text(), ctx.data)
	if content == "" {
		return fmt.Errorf("text 语句缺少文本内容")
	}

	ts, err := ctx.b.textStyle(styleName, attrs)
	if err != nil {
		return err
	}
	col := table.NewColumn(ctx.b.paragraph(ts, attrs, content))
	for {
		res := col.Go(ctx.width, ctx.available(), true)
		if res.LinesWritten > 0 {
			if err := ctx.emitText(res, ts, attrs, content); err != nil {
				return err
			}
			ctx.cursorY += res.Height
		}
		if res.Status == table.NoMoreText {
			break
		}
		if !ctx.allowPageBreak || (res.LinesWritten == 0 && ctx.atTop()) {
			return fmt.Errorf("文本行高度超过页面可用高度")
		}
		ctx.pageBreak()
	}
	ctx.cursorY += blockSpacing
	return nil
}

func (ctx *flowContext) emitText(res table.ColumnResult, ts textStyle, attrs map[string]string, content string) error {
	rec := ctx.b.recorder()
	if err := res.Write(rec, ctx.baseX, ctx.cursorY); err != nil {
		return err
	}
	box := TextBox{
		Content:  content,
		X:        ctx.baseX,
		Y:        ctx.cursorY,
		Width:    ctx.width,
		Height:   res.Height,
		Font:     ts.fontName,
		FontSize: ts.font.Size,
		Align:    ts.alignName,
	}
	for _, pl := range res.Lines {
		box.Lines = append(box.Lines, TextLine{
			Content:  pl.Line.String(),
			Width:    pl.Line.ContentWidth(),
			Baseline: pl.Baseline,
		})
	}
	if ctx.b.debug.RawUnits {
		box.Debug = rawUnits(attrs)
	}
	acc := ctx.acc()
	acc.ops = append(acc.ops, rec.ops...)
	acc.texts = append(acc.texts, box)
	return nil
}

func (ctx *flowContext) handleImage(cmd *dsl.Command) error {
	styleName, attrs := cmd.Attrs(true)
	attrs = mergeStyleAttributes(styleName, attrs, ctx.b.res.Styles)
	img, err := ctx.b.image(styleName, attrs, ctx.width)
	if err != nil {
		return err
	}
	w, h := img.ScaledWidth(), img.ScaledHeight()
	ctx.ensureSpace(h)
	x := ctx.baseX + alignOffset(ctx.width, w, attrs["align"])
	rec := ctx.b.recorder()
	rec.DrawImage(table.Rect{X: x, Y: ctx.cursorY, W: w, H: h}, img)
	acc := ctx.acc()
	acc.ops = append(acc.ops, rec.ops...)
	ctx.cursorY += h + blockSpacing
	return nil
}

// image 按资源声明与行内属性确定图片尺寸，未给出时按容器宽度与 0.6 的高宽比。
func (b *builder) image(name string, attrs map[string]string, container float64) (*typeset.Image, error) {
	if attrs["image"] != "" {
		name = attrs["image"]
	}
	if attrs["src"] != "" {
		name = attrs["src"]
	}
	if name == "" {
		return nil, fmt.Errorf("image 语句缺少资源或 src")
	}
	img := &typeset.Image{Name: name}
	if r, ok := b.res.Images[name]; ok {
		img.Width, img.Height = r.Width, r.Height
	}
	if w := parseDimension(attrs["width"], container); w > 0 {
		img.Width = w
	}
	if h := parseDimension(attrs["height"], container); h > 0 {
		img.Height = h
	}
	if img.Width == 0 {
		img.Width = container
	}
	if img.Width == 0 {
		img.Width = 40
	}
	if img.Height == 0 {
		img.Height = img.Width * 0.6
	}
	if img.Width > container && container > 0 {
		img.ScaleToWidth(container)
	}
	img.ScaleToFitHeight = isTrue(attrs["fit"])
	return img, nil
}

// handleEach 按数组逐项重复子块：`each items.list item { ... }`。
func (ctx *flowContext) handleEach(cmd *dsl.Command) error {
	path, name, err := cmd.Each()
	if err != nil {
		return err
	}
	items, ok := binding.Items(ctx.data, path)
	if !ok {
		return fmt.Errorf("each 数据 %s 不是数组", path)
	}
	outer := ctx.data
	defer func() { ctx.data = outer }()
	for _, item := range items {
		ctx.data = binding.Scope(outer, name, item)
		if err := ctx.processBlock(cmd.Block); err != nil {
			return err
		}
	}
	return nil
}

type pageAccumulator struct {
	ops    []Op
	texts  []TextBox
	tables []TableBox
}

type pageCollector struct {
	width   float64
	height  float64
	margin  Margin
	accs    []*pageAccumulator
	current int
	// 页眉/页脚布局结果，应用于所有页面
	header HeaderFooter
	footer HeaderFooter
}

func newPageCollector(width, height float64, margin Margin) *pageCollector {
	pc := &pageCollector{
		width:  width,
		height: height,
		margin: margin,
	}
	pc.newPage()
	return pc
}

func (pc *pageCollector) newPage() *pageAccumulator {
	acc := &pageAccumulator{}
	pc.accs = append(pc.accs, acc)
	pc.current = len(pc.accs) - 1
	return acc
}

func (pc *pageCollector) curr() *pageAccumulator {
	if len(pc.accs) == 0 {
		return pc.newPage()
	}
	return pc.accs[pc.current]
}

// contentTop 是内容区域顶部：max(上边距, 页眉高度)。
func (pc *pageCollector) contentTop() float64 {
	return max(pc.margin.Top, pc.header.Height)
}

// contentBottom 是内容区域底部：页面高度 - max(下边距, 页脚高度)。
func (pc *pageCollector) contentBottom() float64 {
	return pc.height - max(pc.margin.Bottom, pc.footer.Height)
}

func (pc *pageCollector) pages() []Page {
	out := make([]Page, len(pc.accs))
	for i, acc := range pc.accs {
		out[i] = Page{
			Width:  pc.width,
			Height: pc.height,
			Margin: pc.margin,
			Ops:    acc.ops,
			Header: pc.header,
			Footer: pc.footer,
			Texts:  acc.texts,
			Tables: acc.tables,
		}
	}
	return out
}

type flowContext struct {
	b              *builder
	baseX          float64
	baseY          float64
	width          float64
	cursorY        float64
	data           any
	parent         *flowContext
	collector      *pageCollector
	margin         Margin
	allowPageBreak bool
	// textAlign 继承自父 flow 的对齐方式，用于未显式声明 align 的子 text。
	textAlign string
}

// available 返回当前页剩余的竖直空间；不允许分页的上下文不受限制。
func (ctx *flowContext) available() float64 {
	if !ctx.allowPageBreak {
		return 1e7
	}
	return max(ctx.collector.contentBottom()-ctx.cursorY, 0)
}

// pageHeight 是一整页内容区域的高度。
func (ctx *flowContext) pageHeight() float64 {
	return ctx.collector.contentBottom() - ctx.collector.contentTop()
}

func (ctx *flowContext) atTop() bool {
	return ctx.cursorY <= ctx.collector.contentTop()+1e-6
}

func (ctx *flowContext) ensureSpace(height float64) {
	if !ctx.allowPageBreak || ctx.atTop() {
		return
	}
	if ctx.cursorY+height <= ctx.collector.contentBottom() {
		return
	}
	ctx.pageBreak()
}

func (ctx *flowContext) pageBreak() {
	if ctx.parent != nil {
		ctx.parent.pageBreak()
		ctx.baseY = ctx.parent.cursorY
		ctx.cursorY = ctx.baseY
		return
	}
	ctx.collector.newPage()
	ctx.baseX = ctx.margin.Left
	ctx.baseY = ctx.collector.contentTop()
	ctx.cursorY = ctx.baseY
}

func (ctx *flowContext) acc() *pageAccumulator {
	return ctx.collector.curr()
}
