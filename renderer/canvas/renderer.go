package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"seehuhn.de/go/geom/matrix"

	"github.com/ByLCY/columna/fonts"
	"github.com/ByLCY/columna/layout"
	"github.com/ByLCY/columna/renderer"
	"github.com/ByLCY/columna/typeset"
)

// defaultTextColor 与布局阶段的默认文字颜色一致。
var defaultTextColor = layout.Color{R: 30, G: 30, B: 30}

// Renderer draws layout results via github.com/tdewolff/canvas.
// 同一个 Renderer 也作为布局阶段的字体度量来源，保证排版与绘制使用同一份字体。
type Renderer struct {
	baseDir string

	// injected resources
	fontBlobs  map[string][]byte // by unique name
	imageBlobs map[string][]byte // by unique name

	fontMu sync.Mutex
	fonts  map[string]*fontEntry

	imageMu sync.Mutex
	images  map[string]image.Image
}

var (
	_ renderer.Renderer   = (*Renderer)(nil)
	_ layout.FontProvider = (*Renderer)(nil)
)

type fontEntry struct {
	family  *canvas.FontFamily
	style   canvas.FontStyle
	metrics *fonts.Metrics
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Fonts   map[string]Resource // built-in fonts accessible via built-in:<name>
	Images  map[string]Resource // built-in images accessible via built-in:<name>
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:    opts.BaseDir,
		fontBlobs:  ingest(opts.Fonts),
		imageBlobs: ingest(opts.Images),
		fonts:      map[string]*fontEntry{},
		images:     map[string]image.Image{},
	}
	return r
}

// ingest 读取注入的资源；读取失败的路径留到真正使用时再报错。
func ingest(in map[string]Resource) map[string][]byte {
	out := map[string][]byte{}
	for name, res := range in {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			out[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			if data, err := os.ReadFile(res.Path); err == nil && len(data) > 0 {
				out[name] = data
			}
		}
	}
	return out
}

// Metrics 实现 layout.FontProvider。同一字体资源总是返回同一个 *fonts.Metrics。
func (r *Renderer) Metrics(font layout.FontResource) (typeset.Metrics, error) {
	entry, err := r.font(font)
	if err != nil {
		return nil, err
	}
	return entry.metrics, nil
}

// Render renders the result into a PDF byte slice.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, result.Pages[0].Width, result.Pages[0].Height, nil)
	r.applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c := canvas.New(page.Width, page.Height)
		ctx := canvas.NewContext(c)
		p := &painter{r: r, ctx: ctx, res: result.Resources, flip: matrix.Matrix{1, 0, 0, -1, 0, page.Height}, cur: matrix.Identity}
		for _, ops := range [][]layout.Op{page.Header.Ops, page.Ops, page.Footer.Ops} {
			if err := p.replay(ops); err != nil {
				return nil, fmt.Errorf("渲染第 %d 页失败: %w", i+1, err)
			}
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// painter 在一页上按顺序重放绘制操作。
// 布局坐标原点在左上角、y 向下；flip 把它映射到 canvas 的左下角原点。
type painter struct {
	r     *Renderer
	ctx   *canvas.Context
	res   layout.ResourceSet
	flip  matrix.Matrix
	cur   matrix.Matrix
	stack []matrix.Matrix
}

func (p *painter) replay(ops []layout.Op) error {
	for i, op := range ops {
		if err := p.apply(op); err != nil {
			return fmt.Errorf("操作 %d (%s): %w", i, op.Kind, err)
		}
	}
	return nil
}

func (p *painter) apply(op layout.Op) error {
	switch op.Kind {
	case layout.OpSave:
		p.stack = append(p.stack, p.cur)
	case layout.OpRestore:
		if len(p.stack) == 0 {
			return fmt.Errorf("restore 没有对应的 save")
		}
		p.cur = p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]
	case layout.OpTransform:
		if op.Matrix == nil {
			return fmt.Errorf("transform 缺少矩阵")
		}
		p.cur = matrix.Matrix(*op.Matrix).Mul(p.cur)
	case layout.OpFill:
		p.page()
		p.ctx.SetFillColor(colorOr(op.Color, layout.Color{}))
		p.ctx.SetStrokeColor(canvas.Transparent)
		p.ctx.DrawPath(op.X, op.Y, canvas.Rectangle(op.W, op.H))
	case layout.OpStroke:
		p.page()
		p.ctx.SetFillColor(canvas.Transparent)
		p.ctx.SetStrokeColor(colorOr(op.Color, layout.Color{}))
		p.ctx.SetStrokeWidth(op.StrokeWidth)
		p.ctx.DrawPath(op.X, op.Y, canvas.Rectangle(op.W, op.H))
	case layout.OpLine:
		p.page()
		path := &canvas.Path{}
		path.MoveTo(op.X, op.Y)
		path.LineTo(op.X2, op.Y2)
		p.ctx.SetFillColor(canvas.Transparent)
		p.ctx.SetStrokeColor(colorOr(op.Color, layout.Color{}))
		p.ctx.SetStrokeWidth(op.StrokeWidth)
		p.ctx.DrawPath(0, 0, path)
	case layout.OpCircle:
		p.page()
		if op.Fill != nil {
			p.ctx.SetFillColor(colorFromLayout(*op.Fill))
		} else {
			p.ctx.SetFillColor(canvas.Transparent)
		}
		if op.Color != nil {
			p.ctx.SetStrokeColor(colorFromLayout(*op.Color))
			p.ctx.SetStrokeWidth(op.StrokeWidth)
		} else {
			p.ctx.SetStrokeColor(canvas.Transparent)
		}
		p.ctx.DrawPath(op.X, op.Y, canvas.Circle(op.W))
	case layout.OpText:
		return p.text(op)
	case layout.OpImage:
		return p.image(op)
	default:
		return fmt.Errorf("未知的绘制操作")
	}
	return nil
}

// page 让后续路径直接使用布局坐标。
func (p *painter) page() {
	p.ctx.SetView(toCanvas(p.cur.Mul(p.flip)))
}

// glyphs 返回把字形空间（y 向上）映射到页面的矩阵。
func (p *painter) glyphs(local matrix.Matrix) canvas.Matrix {
	return toCanvas(local.Mul(p.cur).Mul(p.flip))
}

func (p *painter) text(op layout.Op) error {
	t := op.Text
	if t == nil || op.Matrix == nil {
		return fmt.Errorf("text 缺少内容或矩阵")
	}
	if t.Content == "" {
		return nil
	}
	fr, err := resolveFontResource(t.Font, p.res.Fonts)
	if err != nil {
		return err
	}
	entry, err := p.r.font(fr)
	if err != nil {
		return err
	}
	face := entry.family.Face(toPt(t.Size), colorOr(op.Color, defaultTextColor), entry.style, canvas.FontNormal)

	hscale := t.HScale
	if hscale <= 0 {
		hscale = 1
	}
	base := matrix.Scale(hscale, -1).Mul(matrix.Matrix(*op.Matrix))
	if t.CharSpacing == 0 && t.WordSpacing == 0 {
		p.ctx.SetView(p.glyphs(base))
		p.ctx.DrawText(0, 0, canvas.NewTextLine(face, t.Content, canvas.Left))
		return nil
	}
	// 字距与词距需要逐字定位，按字体度量累计前进量。
	x := 0.0
	for _, ch := range t.Content {
		s := string(ch)
		p.ctx.SetView(p.glyphs(matrix.Translate(x, 0).Mul(base)))
		p.ctx.DrawText(0, 0, canvas.NewTextLine(face, s, canvas.Left))
		x += entry.metrics.Advance(ch)*t.Size/1000 + t.CharSpacing
		if ch == ' ' {
			x += t.WordSpacing
		}
	}
	return nil
}

func (p *painter) image(op layout.Op) error {
	if op.W <= 0 || op.H <= 0 {
		return nil
	}
	src := op.Image
	if res, ok := p.res.Images[op.Image]; ok && res.Src != "" {
		src = res.Src
	}
	img, err := p.r.loadImage(src)
	if err != nil {
		return err
	}
	px, py := img.Bounds().Dx(), img.Bounds().Dy()
	if px <= 0 || py <= 0 {
		return fmt.Errorf("图片 %s 尺寸为空", src)
	}
	// 按宽度确定分辨率，高度单独缩放到目标矩形。
	dpmm := float64(px) / op.W
	natural := float64(py) / dpmm
	// 图片以左下角为锚点，先翻转再平移到矩形底边。
	local := matrix.Scale(1, -op.H/natural).Mul(matrix.Translate(op.X, op.Y+op.H))
	p.ctx.SetView(p.glyphs(local))
	p.ctx.DrawImage(0, 0, img, canvas.DPMM(dpmm))
	return nil
}

func (r *Renderer) loadImage(src string) (image.Image, error) {
	r.imageMu.Lock()
	defer r.imageMu.Unlock()
	if img, ok := r.images[src]; ok {
		return img, nil
	}
	var (
		img image.Image
		err error
	)
	switch {
	case strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:"):
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		blob, ok := r.imageBlobs[name]
		if !ok {
			return nil, fmt.Errorf("找不到内置图片资源 built-in:%s", name)
		}
		img, _, err = image.Decode(bytes.NewReader(blob))
		if err != nil {
			return nil, fmt.Errorf("解码内置图片 built-in:%s 失败: %w", name, err)
		}
	case strings.HasPrefix(src, "embed:"):
		return nil, fmt.Errorf("图片资源 %s 未找到（embed 仅支持内置字体，暂不支持图片）", src)
	default:
		path, err := r.resolvePath(src)
		if err != nil {
			return nil, err
		}
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("读取图片 %s 失败: %w", src, err)
		}
		defer file.Close()
		img, _, err = image.Decode(file)
		if err != nil {
			return nil, fmt.Errorf("解码图片 %s 失败: %w", src, err)
		}
	}
	r.images[src] = img
	return img, nil
}

func (r *Renderer) resolvePath(src string) (string, error) {
	if r.baseDir == "" && !filepath.IsAbs(src) {
		return "", fmt.Errorf("未指定资源目录时不允许直接使用路径：%s（请改用 built-in: 或 embed:）", src)
	}
	if filepath.IsAbs(src) {
		return src, nil
	}
	return filepath.Join(r.baseDir, src), nil
}

// font 加载字体并缓存，src 加载失败时尝试 fallback 来源。
func (r *Renderer) font(font layout.FontResource) (*fontEntry, error) {
	key := fontCacheKey(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fonts[key]; ok {
		return entry, nil
	}

	data, err := r.loadFontBytes(font.Src)
	if err != nil && font.Fallback != "" {
		var fbErr error
		if data, fbErr = r.loadFontBytes(font.Fallback); fbErr == nil {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("字体 %s: %w", font.Name, err)
	}
	metrics, err := fonts.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("字体 %s: %w", font.Name, err)
	}

	style := parseFontStyle(font.Style)
	familyName := font.Family
	if familyName == "" {
		familyName = font.Name
	}
	if familyName == "" {
		familyName = "Body"
	}
	family := canvas.NewFontFamily(familyName)
	if err := family.LoadFont(data, 0, style); err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", font.Name, err)
	}

	entry := &fontEntry{family: family, style: style, metrics: metrics}
	r.fonts[key] = entry
	return entry, nil
}

func (r *Renderer) loadFontBytes(src string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("缺少 src")
	}
	if strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:") {
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到内置字体资源 built-in:%s", name)
	}
	if strings.HasPrefix(src, "embed:") {
		return fonts.Load(src)
	}
	path, err := r.resolvePath(src)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", src, err)
	}
	return data, nil
}

// resolveFontResource 按名称查找字体；空名称使用 Body，文档未声明任何字体时使用内置默认字体。
func resolveFontResource(name string, all map[string]layout.FontResource) (layout.FontResource, error) {
	if name == "" {
		name = "Body"
	}
	if font, ok := all[name]; ok {
		return font, nil
	}
	if len(all) == 0 {
		return layout.FontResource{Name: name, Src: "embed:" + fonts.Default}, nil
	}
	return layout.FontResource{}, fmt.Errorf("未定义的字体 %s", name)
}

func parseFontStyle(style string) canvas.FontStyle {
	if style == "" {
		return canvas.FontRegular
	}
	s := strings.ToLower(style)
	var result canvas.FontStyle
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	default:
		result = canvas.FontRegular
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func fontCacheKey(font layout.FontResource) string {
	return fmt.Sprintf("%s|%s|%s|%s", font.Name, font.Src, font.Style, font.Fallback)
}

func colorOr(c *layout.Color, def layout.Color) color.Color {
	if c == nil {
		return colorFromLayout(def)
	}
	return colorFromLayout(*c)
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toCanvas 把 PDF 顺序的 {a, b, c, d, e, f} 转为 canvas.Matrix。
func toCanvas(m matrix.Matrix) canvas.Matrix {
	return canvas.Matrix{{m[0], m[2], m[4]}, {m[1], m[3], m[5]}}
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }
