package layout

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/columna/dsl"
	"github.com/ByLCY/columna/typeset"
)

// monoMetrics 是等宽度量：每个字符 500/1000 em，ascent 800，descent -200。
type monoMetrics struct{}

func (*monoMetrics) Advance(rune) float64              { return 500 }
func (*monoMetrics) Bounds() (float64, float64)        { return 800, -200 }
func (*monoMetrics) DirectSpace(typeset.Encoding) bool { return true }

// stubFonts 是最小的 FontProvider 实现，避免引入 renderer 造成循环依赖。
type stubFonts struct {
	m         *monoMetrics
	requested []string
}

func (s *stubFonts) Metrics(font FontResource) (typeset.Metrics, error) {
	s.requested = append(s.requested, font.Name)
	return s.m, nil
}

func build(t *testing.T, dslText string, data any, debugRaw bool) *Result {
	t.Helper()
	doc, err := dsl.Parse(strings.NewReader(dslText))
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	res, err := Build(doc, data, BuildOptions{Fonts: &stubFonts{m: &monoMetrics{}}, Debug: DebugOptions{RawUnits: debugRaw}})
	if err != nil {
		t.Fatalf("布局计算失败: %v", err)
	}
	return res
}

func buildErr(t *testing.T, dslText string) error {
	t.Helper()
	doc, err := dsl.Parse(strings.NewReader(dslText))
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	_, err = Build(doc, nil, BuildOptions{Fonts: &stubFonts{m: &monoMetrics{}}})
	return err
}

func jsonData(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("解析数据失败: %v", err)
	}
	return v
}

func textOps(p Page) []string {
	var out []string
	for _, op := range p.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text.Content)
		}
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func eq(a, b float64) bool { return abs(a-b) < 1e-6 }

func TestBuildRequiresFontProvider(t *testing.T) {
	doc, err := dsl.ParseString(`doc T v1 { page A4 { text { "x" } } }`)
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	if _, err := Build(doc, nil, BuildOptions{}); err == nil || !strings.Contains(err.Error(), "FontProvider") {
		t.Fatalf("缺少 FontProvider 时应报错，实际: %v", err)
	}
}

// TestTextFlowsAcrossPages 验证文本流在页面用尽时续排到下一页，且不丢字。
func TestTextFlowsAcrossPages(t *testing.T) {
	words := strings.TrimSpace(strings.Repeat("abcd ", 80))
	dslText := `doc T v1 {
  page A4 portrait margin 10mm {
    flow width 20mm {
      text line-height 10mm { "` + words + `" }
    }
  }
}`
	res := build(t, dslText, nil, false)
	if len(res.Pages) != 2 {
		t.Fatalf("页数 = %d, want 2", len(res.Pages))
	}
	total := 0
	for i, p := range res.Pages {
		if len(p.Texts) != 1 {
			t.Fatalf("第 %d 页文本块数 = %d, want 1", i, len(p.Texts))
		}
		tb := p.Texts[0]
		if !eq(tb.Y, 10) {
			t.Fatalf("第 %d 页文本块应从内容区顶部开始: y=%g", i, tb.Y)
		}
		if tb.Y+tb.Height > 287+1e-6 {
			t.Fatalf("第 %d 页文本超出内容区: bottom=%g", i, tb.Y+tb.Height)
		}
		for _, ln := range tb.Lines {
			if ln.Width > 20+1e-6 {
				t.Fatalf("行宽超出: %q width=%g", ln.Content, ln.Width)
			}
			total += len(strings.Fields(ln.Content))
		}
	}
	if total != 80 {
		t.Fatalf("分页后单词数 = %d, want 80", total)
	}
	if got := len(res.Pages[0].Texts[0].Lines); got != 27 {
		t.Fatalf("首页行数 = %d, want 27", got)
	}
}

func TestTextOpsCarryFont(t *testing.T) {
	dslText := `doc T v1 {
  resources {
    font Serif { src: "embed:go-regular" }
  }
  page A4 portrait margin 10mm {
    text font Serif size 10pt color #ff0000 { "Hello" }
  }
}`
	res := build(t, dslText, nil, false)
	var ops []Op
	for _, op := range res.Pages[0].Ops {
		if op.Kind == OpText {
			ops = append(ops, op)
		}
	}
	if len(ops) != 1 {
		t.Fatalf("文本操作数 = %d, want 1", len(ops))
	}
	op := ops[0]
	if op.Text.Font != "Serif" || op.Text.Content != "Hello" {
		t.Fatalf("文本操作不符: %+v", op.Text)
	}
	if !eq(op.Text.Size, 10*PtToMm) {
		t.Fatalf("字号 = %g, want %g", op.Text.Size, 10*PtToMm)
	}
	if op.Color == nil || *op.Color != (Color{R: 255}) {
		t.Fatalf("颜色 = %+v", op.Color)
	}
	// 基线 = 顶部 + 行高，行高为 1.4 倍字号
	if want := 10 + 10*PtToMm*1.4; !eq(op.Matrix[5], want) || !eq(op.Matrix[4], 10) {
		t.Fatalf("基线位置 = (%g, %g), want (10, %g)", op.Matrix[4], op.Matrix[5], want)
	}
}

func TestTextLineTooTall(t *testing.T) {
	err := buildErr(t, `doc T v1 { page A4 portrait margin 10mm { text line-height 400mm { "x" } } }`)
	if err == nil || !strings.Contains(err.Error(), "文本行高度超过页面可用高度") {
		t.Fatalf("行高超过页面时应报错，实际: %v", err)
	}
}

// TestDebugRawUnitsOutput 验证在开启 Debug.RawUnits 后，JSON 里会输出 debug.rawUnits，且语义正确。
func TestDebugRawUnitsOutput(t *testing.T) {
	dslFactor := `doc D1 v1 {
  resources {
    font Body { src: "embed:go-regular" }
    style S1 {
      font: Body
      size: 12pt
      line-height: 1.2x
    }
  }
  page A4 portrait margin 10mm { flow { text S1 { "aaaa bbbb" } } }
}`
	res1 := build(t, dslFactor, nil, true)
	if len(res1.Pages) == 0 || len(res1.Pages[0].Texts) == 0 {
		t.Fatalf("文档 D1 未生成文本")
	}
	tb1 := res1.Pages[0].Texts[0]
	if tb1.Debug == nil || tb1.Debug.RawUnits == nil || tb1.Debug.RawUnits.LineHeight == nil {
		t.Fatalf("D1 缺少 debug.rawUnits.lineHeight")
	}
	if tb1.Debug.RawUnits.LineHeight.Kind != "factor" || !eq(tb1.Debug.RawUnits.LineHeight.Factor, 1.2) {
		t.Fatalf("D1 行高应为 1.2x，实际: %#v", tb1.Debug.RawUnits.LineHeight)
	}
	if tb1.Debug.RawUnits.FontSize == nil || tb1.Debug.RawUnits.FontSize.Unit != "pt" || tb1.Debug.RawUnits.FontSize.Value != 12 {
		t.Fatalf("D1 字号应为 12pt，实际: %#v", tb1.Debug.RawUnits.FontSize)
	}

	dslAbs := `doc D2 v1 {
  resources {
    font Body { src: "embed:go-regular" }
    style Base { size: 12pt }
  }
  page A4 portrait margin 10mm { flow { text Base line-height 6mm { "cccc dddd" } } }
}`
	res2 := build(t, dslAbs, nil, true)
	tb2 := res2.Pages[0].Texts[0]
	if tb2.Debug == nil || tb2.Debug.RawUnits == nil || tb2.Debug.RawUnits.LineHeight == nil {
		t.Fatalf("D2 缺少 debug.rawUnits.lineHeight")
	}
	if tb2.Debug.RawUnits.LineHeight.Kind != "absolute" || tb2.Debug.RawUnits.LineHeight.Unit != "mm" || tb2.Debug.RawUnits.LineHeight.Value != 6 {
		t.Fatalf("D2 行高应为 6mm 绝对值，实际: %#v", tb2.Debug.RawUnits.LineHeight)
	}
	if !eq(tb2.Lines[0].Baseline, 6) {
		t.Fatalf("D2 首行基线 = %g, want 6", tb2.Lines[0].Baseline)
	}

	res3 := build(t, dslAbs, nil, false)
	if res3.Pages[0].Texts[0].Debug != nil {
		t.Fatalf("未开启调试时不应输出 debug 字段")
	}
}

// TestResolveMarginVariants 验证 margin 参数支持 1、2、3、4+ 个值的语义。
func TestResolveMarginVariants(t *testing.T) {
	get := func(spec string) Margin {
		dslText := "doc T v1 { page " + spec + " { flow { text { \"x\" } } } }"
		res := build(t, dslText, nil, false)
		if len(res.Pages) == 0 {
			t.Fatalf("未生成页面")
		}
		return res.Pages[0].Margin
	}

	cases := []struct {
		spec string
		want Margin
	}{
		{"A4 portrait margin 10mm", Margin{Top: 10, Right: 10, Bottom: 10, Left: 10}},
		{"A4 portrait margin 10mm 5mm", Margin{Top: 10, Right: 5, Bottom: 10, Left: 5}},
		{"A4 portrait margin 12mm 8mm 6mm", Margin{Top: 12, Right: 8, Bottom: 6}},
		{"A4 portrait margin 1cm 5mm 2cm 3mm", Margin{Top: 10, Right: 5, Bottom: 20, Left: 3}},
		{"A4 portrait margin 1mm 2mm 3mm 4mm 999mm 888mm", Margin{Top: 1, Right: 2, Bottom: 3, Left: 4}},
		{"A4 portrait", Margin{Top: 20, Right: 20, Bottom: 20, Left: 20}},
		{"A4 portrait margin 10mm 5% 3mm", Margin{Top: 10, Right: 10, Bottom: 10, Left: 10}},
		{"A4 margin 1cm 5 portrait", Margin{Top: 10, Right: 5, Bottom: 10, Left: 5}},
	}
	approx := cmp.Comparer(eq)
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, get(tc.spec), approx); diff != "" {
			t.Fatalf("%s margin mismatch (-want +got):\n%s", tc.spec, diff)
		}
	}
}

func TestPageSizeLandscape(t *testing.T) {
	res := build(t, `doc T v1 { page A5 landscape { text { "x" } } }`, nil, false)
	if p := res.Pages[0]; p.Width != 210 || p.Height != 148 {
		t.Fatalf("A5 landscape = %gx%g, want 210x148", p.Width, p.Height)
	}
	if err := buildErr(t, `doc T v1 { page B9 { text { "x" } } }`); err == nil {
		t.Fatalf("未知纸张尺寸应报错")
	}
}

func TestTextAlign(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"explicit", `flow { text align right { "Hello" } }`, "right"},
		{"inherit", `flow align center { text { "Hello" } }`, "center"},
		{"alias", `flow { text align end { "Hello" } }`, "right"},
		{"nested", `flow align justify { flow { text { "Hello" } } }`, "justify"},
		{"override", `flow align center { text align start { "Hello" } }`, "left"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := build(t, "doc T v1 { page A4 portrait margin 10mm { "+tc.body+" } }", nil, false)
			if len(res.Pages[0].Texts) == 0 {
				t.Fatalf("未生成文本")
			}
			if got := res.Pages[0].Texts[0].Align; got != tc.want {
				t.Fatalf("align = %q, want %q", got, tc.want)
			}
		})
	}
}

// TestRightAlignedTextPosition 验证右对齐文本贴近内容区右边界。
func TestRightAlignedTextPosition(t *testing.T) {
	res := build(t, `doc T v1 { page A4 portrait margin 10mm { text align right size 10mm { "ab" } } }`, nil, false)
	var x float64
	for _, op := range res.Pages[0].Ops {
		if op.Kind == OpText {
			x = op.Matrix[4]
		}
	}
	// 两个字符，每个 5mm 宽
	if !eq(x, 200-10) {
		t.Fatalf("右对齐起点 = %g, want 190", x)
	}
}

func TestStylesExtend(t *testing.T) {
	dslText := `doc T v1 {
  resources {
    style Base {
      size: 8mm
      color: #00ff00
    }
    style Title extends Base {
      size: 10mm
    }
  }
  page A4 portrait margin 10mm { text Title { "T" } }
}`
	res := build(t, dslText, nil, false)
	tb := res.Pages[0].Texts[0]
	if !eq(tb.FontSize, 10) {
		t.Fatalf("FontSize = %g, want 10", tb.FontSize)
	}
	for _, op := range res.Pages[0].Ops {
		if op.Kind == OpText && (op.Color == nil || op.Color.G != 255) {
			t.Fatalf("继承的颜色未生效: %+v", op.Color)
		}
	}

	err := buildErr(t, `doc T v1 {
  resources {
    style A extends B { size: 1mm }
    style B extends A { size: 2mm }
  }
  page A4 { text { "x" } }
}`)
	if err == nil || !strings.Contains(err.Error(), "循环") {
		t.Fatalf("循环继承应报错，实际: %v", err)
	}
}

func TestPageBreak(t *testing.T) {
	dslText := `doc T v1 {
  page A4 portrait margin 10mm {
    page-break
    text { "one" }
    page-break
    page-break
    text { "two" }
  }
}`
	res := build(t, dslText, nil, false)
	if len(res.Pages) != 2 {
		t.Fatalf("页数 = %d, want 2", len(res.Pages))
	}
	if diff := cmp.Diff([]string{"two"}, textOps(res.Pages[1])); diff != "" {
		t.Fatalf("第二页文本 (-want +got):\n%s", diff)
	}
}

func TestEachRepeatsBlock(t *testing.T) {
	data := jsonData(t, `{"title": "Report", "items": [{"name": "x"}, {"name": "y"}]}`)
	dslText := `doc T v1 {
  page A4 portrait margin 10mm {
    text { "${title}" }
    each items it {
      text { "${it.name} of ${title}" }
    }
  }
}`
	res := build(t, dslText, data, false)
	want := []string{"Report", "x of Report", "y of Report"}
	if diff := cmp.Diff(want, textOps(res.Pages[0])); diff != "" {
		t.Fatalf("each 输出 (-want +got):\n%s", diff)
	}

	doc, _ := dsl.ParseString(`doc T v1 { page A4 { each title it { text { "x" } } } }`)
	if _, err := Build(doc, data, BuildOptions{Fonts: &stubFonts{m: &monoMetrics{}}}); err == nil {
		t.Fatalf("each 作用于非数组时应报错")
	}
}

func TestHeaderFooter(t *testing.T) {
	dslText := `doc T v1 {
  page A4 portrait margin 10mm {
    header height 25mm { text { "Head" } }
    footer height 15mm {
      text align left { "Foot" }
      line x1 10mm y1 280mm x2 200mm y2 280mm
    }
    text { "Body" }
  }
}`
	res := build(t, dslText, nil, false)
	p := res.Pages[0]
	if p.Header.Height != 25 || p.Footer.Height != 15 {
		t.Fatalf("页眉/页脚高度 = %g/%g", p.Header.Height, p.Footer.Height)
	}
	if got := p.Texts[0].Y; !eq(got, 25) {
		t.Fatalf("正文应从页眉下方开始: y=%g", got)
	}
	lh := 12 * PtToMm * 1.4
	for _, op := range p.Header.Ops {
		if op.Kind != OpText {
			continue
		}
		// 页眉内容贴合区域底边
		if !eq(op.Matrix[5], 25) {
			t.Fatalf("页眉基线 = %g, want 25", op.Matrix[5])
		}
		// 页眉默认居中：4 个字符共 4*2.1166mm
		w := 4 * 12 * PtToMm / 2
		if !eq(op.Matrix[4], 10+(190-w)/2) {
			t.Fatalf("页眉未居中: x=%g", op.Matrix[4])
		}
	}
	var kinds []OpKind
	for _, op := range p.Footer.Ops {
		kinds = append(kinds, op.Kind)
		if op.Kind == OpText && !eq(op.Matrix[5], 297-15+lh) {
			t.Fatalf("页脚基线 = %g, want %g", op.Matrix[5], 297-15+lh)
		}
	}
	if diff := cmp.Diff([]OpKind{OpText, OpLine}, kinds); diff != "" {
		t.Fatalf("页脚操作 (-want +got):\n%s", diff)
	}
}

func TestShapes(t *testing.T) {
	dslText := `doc T v1 {
  page A4 {
    rect x 10mm y 10mm width 20mm height 5mm fill #eeeeee stroke #000000
    circle cx 50mm cy 50mm r 5mm fill #ff0000
    line x 10mm y 100mm length 30mm dir v
  }
}`
	res := build(t, dslText, nil, false)
	ops := res.Pages[0].Ops
	var kinds []OpKind
	for _, op := range ops {
		kinds = append(kinds, op.Kind)
	}
	if diff := cmp.Diff([]OpKind{OpFill, OpStroke, OpCircle, OpLine}, kinds); diff != "" {
		t.Fatalf("形状操作 (-want +got):\n%s", diff)
	}
	if ln := ops[3]; ln.X2 != 10 || ln.Y2 != 130 {
		t.Fatalf("竖线终点 = (%g, %g)", ln.X2, ln.Y2)
	}
	if c := ops[2]; c.W != 5 || c.Fill == nil || c.Fill.R != 255 {
		t.Fatalf("圆形操作不符: %+v", c)
	}

	if err := buildErr(t, `doc T v1 { page A4 { rect x 1mm y 1mm } }`); err == nil {
		t.Fatalf("缺少宽高的 rect 应报错")
	}
}

func TestImagePlacement(t *testing.T) {
	dslText := `doc T v1 {
  resources {
    image Logo { src: "logo.png"
      width: 40mm
      height: 20mm }
  }
  page A4 portrait margin 10mm {
    image Logo align center
  }
}`
	res := build(t, dslText, nil, false)
	var img *Op
	for i := range res.Pages[0].Ops {
		if res.Pages[0].Ops[i].Kind == OpImage {
			img = &res.Pages[0].Ops[i]
		}
	}
	if img == nil {
		t.Fatalf("未生成图片操作")
	}
	want := Op{Kind: OpImage, X: 10 + (190-40)/2.0, Y: 10, W: 40, H: 20, Image: "Logo"}
	if diff := cmp.Diff(want, *img); diff != "" {
		t.Fatalf("图片操作 (-want +got):\n%s", diff)
	}
}

func TestPageSetTemplate(t *testing.T) {
	dslText := `doc T v1 {
  page-set Letterhead {
    header height 20mm { text { "Letterhead" } }
    footer height 12mm { text { "Page foot" } }
  }
  page A4 portrait margin 10mm template Letterhead {
    text { "first" }
  }
  page A5 portrait margin 10mm template Letterhead {
    header height 30mm { text { "Own" } }
    text { "second" }
  }
}`
	res := build(t, dslText, nil, false)
	if len(res.Pages) != 2 {
		t.Fatalf("页数 = %d, want 2", len(res.Pages))
	}
	first, second := res.Pages[0], res.Pages[1]
	if first.Width != 210 || second.Width != 148 {
		t.Fatalf("每个 page 段落使用自己的纸张: %g, %g", first.Width, second.Width)
	}
	if first.Header.Height != 20 || first.Footer.Height != 12 {
		t.Fatalf("模板页眉/页脚未生效: %g/%g", first.Header.Height, first.Footer.Height)
	}
	if second.Header.Height != 30 || second.Footer.Height != 12 {
		t.Fatalf("页面自身页眉应覆盖模板: %g/%g", second.Header.Height, second.Footer.Height)
	}
	if got := textOps(second); !cmp.Equal(got, []string{"second"}) {
		t.Fatalf("第二页正文 = %v", got)
	}
}

func TestPageSetErrors(t *testing.T) {
	if err := buildErr(t, `doc T v1 { page A4 template Missing { text { "x" } } }`); err == nil || !strings.Contains(err.Error(), "Missing") {
		t.Fatalf("未定义模板应报错: %v", err)
	}
	dup := `doc T v1 {
  page-set A { header height 5mm { text { "a" } } }
  page-set A { header height 5mm { text { "b" } } }
  page A4 { text { "x" } }
}`
	if err := buildErr(t, dup); err == nil {
		t.Fatalf("重复模板应报错")
	}
}
