package typeset

import (
	"math"
	"testing"
)

func exampleFont() Font {
	return Font{Metrics: stubMetrics{
		def:         10,
		directSpace: true,
		widths: map[rune]float64{
			'H': 10, 'e': 5, 'l': 5, 'o': 5, ' ': 10,
			'W': 15, 'r': 5, 'd': 5, '!': 15,
		},
	}, Size: 1000}
}

func TestLineOverflowsWholeRun(t *testing.T) {
	font := exampleFont()
	line := NewLine(0, 100, AlignLeft, false)
	if rem := line.Add(NewRun("Hello ", font, MetricAttrs{}, StyleAttrs{})); rem != nil {
		t.Fatalf("\"Hello \" 应完全放入")
	}
	if got := line.WidthLeft(); got != 60 {
		t.Fatalf("剩余宽度期望 60，实际 %g", got)
	}
	if rem := line.Add(NewRun("World ", font, MetricAttrs{}, StyleAttrs{})); rem != nil {
		t.Fatalf("\"World \" 应完全放入")
	}
	if got := line.WidthLeft(); got != 15 {
		t.Fatalf("剩余宽度期望 15，实际 %g", got)
	}
	rem := line.Add(NewRun("!!", font, MetricAttrs{}, StyleAttrs{}))
	if rem == nil || rem.Text() != "!!" {
		t.Fatalf("\"!!\" 应整体溢出，实际 %v", rem)
	}
	if line.String() != "Hello World " {
		t.Fatalf("行内容期望 %q，实际 %q", "Hello World ", line.String())
	}
	line.Flush()
	if line.String() != "Hello World" || line.WidthLeft() != 25 {
		t.Fatalf("Flush 应回收行尾空白: %q left=%g", line.String(), line.WidthLeft())
	}
	line.Flush()
	if line.WidthLeft() != 25 {
		t.Fatalf("重复 Flush 不应再次修改行")
	}
}

func TestLineForcesProgressOnEmptyLine(t *testing.T) {
	line := NewLine(0, 5, AlignLeft, false)
	rem := line.Add(textRun("abc", 10))
	if line.String() != "a" {
		t.Fatalf("空行至少消耗一个字符，实际 %q", line.String())
	}
	if rem == nil || rem.Text() != "bc" {
		t.Fatalf("剩余部分错误: %v", rem)
	}
}

func TestLineBlankLineKeepsRun(t *testing.T) {
	line := NewLine(0, 100, AlignLeft, false)
	rem := line.Add(textRun("\nabc", 10))
	if line.Size() != 1 || !line.NewlineSplit() {
		t.Fatalf("空行应保留零宽 run 并标记换行: size=%d", line.Size())
	}
	if rem == nil || rem.Text() != "abc" {
		t.Fatalf("剩余部分错误: %v", rem)
	}
	if lead, _ := line.GetMaxSize(0, 1.5); lead != 1500 {
		t.Fatalf("空行仍应按字号计算行距，实际 %g", lead)
	}
}

// layoutParagraph 把 runs 逐行装配，返回所有已 Flush 的行。
func layoutParagraph(runs []*Run, width float64) []*Line {
	var lines []*Line
	for len(runs) > 0 {
		line := NewLine(0, width, AlignJustified, false)
		for len(runs) > 0 {
			rem := line.Add(runs[0])
			if rem != nil {
				runs[0] = rem
				break
			}
			runs = runs[1:]
		}
		line.Flush()
		lines = append(lines, line)
	}
	return lines
}

func TestLineWidthInvariant(t *testing.T) {
	img := &Image{Name: "wide", Width: 120, Height: 10}
	runs := []*Run{
		textRun("The quick brown fox ", 10),
		NewRun("jumps over ", monoFont(7), MetricAttrs{CharSpacing: 1}, StyleAttrs{}),
		textRun("supercalifragilisticexpialidocious", 10),
		NewImageRun(img, MetricAttrs{}, StyleAttrs{}),
		textRun(" the\nlazy dog", 10),
	}
	lines := layoutParagraph(runs, 80)
	if len(lines) < 5 {
		t.Fatalf("期望至少 5 行，实际 %d", len(lines))
	}
	for i, line := range lines {
		if line.ContentWidth() > line.OriginalWidth()+1e-9 && line.Size() != 1 {
			t.Fatalf("第 %d 行超宽: %g > %g (%q)", i, line.ContentWidth(), line.OriginalWidth(), line.String())
		}
	}
}

func TestLeftTabResolvesImmediately(t *testing.T) {
	font := monoFont(10)
	line := NewLine(0, 200, AlignLeft, false)
	line.Add(textRun("ab", 10))
	line.Add(NewTabRun(font, &TabSettings{Interval: 36}, false, StyleAttrs{}))
	if got := line.WidthLeft(); got != 164 {
		t.Fatalf("左对齐制表位应立即确定，剩余宽度 %g", got)
	}
	line.Add(textRun("cd", 10))
	line.Flush()
	ps := line.Placements(0, 0)
	if len(ps) != 3 || ps[2].X != 36 {
		t.Fatalf("制表位之后文本应从 36 开始: %+v", ps)
	}
}

func TestRightTabPendingUntilFlush(t *testing.T) {
	font := monoFont(10)
	settings := &TabSettings{Stops: []TabStop{{Position: 100, Align: TabRight}}}
	line := NewLine(0, 200, AlignLeft, false)
	line.Add(textRun("ab", 10))
	line.Add(NewTabRun(font, settings, false, StyleAttrs{}))
	line.Add(textRun("1234", 10))
	if got := line.WidthLeft(); got != 140 {
		t.Fatalf("Flush 之前制表位未定，剩余宽度应为 140，实际 %g", got)
	}
	line.Flush()
	if got := line.WidthLeft(); got != 100 {
		t.Fatalf("右对齐后剩余宽度期望 100，实际 %g", got)
	}
	ps := line.Placements(0, 0)
	if ps[2].X != 60 {
		t.Fatalf("右对齐文本应结束于 100，起点期望 60，实际 %g", ps[2].X)
	}
}

func TestAnchorTab(t *testing.T) {
	font := monoFont(10)
	settings := &TabSettings{Stops: []TabStop{{Position: 100, Align: TabAnchor, Anchor: '.'}}}
	line := NewLine(0, 200, AlignLeft, false)
	line.Add(NewTabRun(font, settings, false, StyleAttrs{}))
	line.Add(textRun("12.50", 10))
	line.Flush()
	ps := line.Placements(0, 0)
	if ps[1].X != 80 {
		t.Fatalf("小数点应对齐到 100，文本起点期望 80，实际 %g", ps[1].X)
	}
	if got := line.WidthLeft(); got != 70 {
		t.Fatalf("剩余宽度期望 70，实际 %g", got)
	}
}

func TestTabBeyondWidth(t *testing.T) {
	font := monoFont(10)
	settings := &TabSettings{Interval: 36}

	line := NewLine(0, 50, AlignLeft, false)
	line.Add(textRun("abcd", 10))
	if rem := line.Add(NewTabRun(font, settings, true, StyleAttrs{})); rem != nil {
		t.Fatalf("空白制表位超出行宽时应被丢弃")
	}
	if line.Size() != 1 {
		t.Fatalf("被丢弃的制表位不应进入行内")
	}

	line = NewLine(0, 50, AlignLeft, false)
	line.Add(textRun("abcd", 10))
	tab := NewTabRun(font, settings, false, StyleAttrs{})
	if rem := line.Add(tab); rem != tab {
		t.Fatalf("非空白制表位超出行宽时应原样推到下一行")
	}
	if line.WidthLeft() != 0 {
		t.Fatalf("推走制表位后本行应视为已满")
	}
}

func TestTabSettingsNext(t *testing.T) {
	var ts *TabSettings
	cases := []struct {
		settings *TabSettings
		pos      float64
		want     float64
	}{
		{ts, 0, 36},
		{ts, 36, 72},
		{ts, 37.5, 72},
		{&TabSettings{Stops: []TabStop{{Position: 50}}, Interval: 36}, 10, 50},
		{&TabSettings{Stops: []TabStop{{Position: 50}}, Interval: 36}, 50, 72},
	}
	for _, c := range cases {
		if got := c.settings.Next(c.pos).Position; math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("Next(%g) 期望 %g，实际 %g", c.pos, c.want, got)
		}
	}
}

func TestJustification(t *testing.T) {
	runs := []*Run{textRun("aaa bbb ccc ddd", 10)}
	lines := layoutParagraph(runs, 100)
	if len(lines) != 2 {
		t.Fatalf("期望 2 行，实际 %d", len(lines))
	}
	first, last := lines[0], lines[1]
	if first.String() != "aaa bbb" || !first.HasToBeJustified() {
		t.Fatalf("首行 %q 应需要两端对齐", first.String())
	}
	if last.HasToBeJustified() {
		t.Fatalf("段落最后一行不应两端对齐")
	}
	ws, cs := first.Justification(JustificationRatio)
	spaces, n := first.NumberOfSpaces(), first.lengthUtf32()
	if got := ws*float64(spaces) + cs*float64(n-1); math.Abs(got-first.WidthLeft()) > 1e-9 {
		t.Fatalf("两端对齐应恰好用完剩余宽度: %g vs %g", got, first.WidthLeft())
	}
	if math.Abs(ws/cs-JustificationRatio) > 1e-9 {
		t.Fatalf("词间距与字间距比例应为 %g", JustificationRatio)
	}

	all := NewLine(0, 100, AlignJustifiedAll, false)
	all.Add(textRun("x y", 10))
	all.Flush()
	if !all.HasToBeJustified() {
		t.Fatalf("JustifiedAll 模式下最后一行也需要两端对齐")
	}
}

func TestGetMaxSize(t *testing.T) {
	font := Font{Metrics: stubMetrics{def: 500, directSpace: true}, Size: 10}
	line := NewLine(0, 500, AlignLeft, false)
	line.Add(NewRun("ab ", font, MetricAttrs{}, StyleAttrs{}))
	line.Flush()
	if lead, img := line.GetMaxSize(2, 1.5); lead != 17 || img != 0 {
		t.Fatalf("行距期望 (17, 0)，实际 (%g, %g)", lead, img)
	}
	line.Add(NewRun("cd ", font, MetricAttrs{Leading: 30}, StyleAttrs{}))
	line.Add(NewImageRun(&Image{Width: 10, Height: 40, OffsetY: 2}, MetricAttrs{}, StyleAttrs{}))
	line.Flush()
	if lead, img := line.GetMaxSize(2, 1.5); lead != 30 || img != 42 {
		t.Fatalf("行距期望 (30, 42)，实际 (%g, %g)", lead, img)
	}
	empty := NewLine(0, 10, AlignLeft, false)
	if lead, _ := empty.GetMaxSize(12, 0); lead != 12 {
		t.Fatalf("空行应返回固定行距，实际 %g", lead)
	}
}

func TestAlignmentOffsets(t *testing.T) {
	center := NewLine(0, 100, AlignCenter, false)
	center.Add(textRun("ab", 10))
	center.Flush()
	if ps := center.Placements(0, 0); ps[0].X != 40 {
		t.Fatalf("居中起点期望 40，实际 %g", ps[0].X)
	}

	rtl := NewLine(10, 100, AlignLeft, true)
	rtl.Add(textRun("ab ", 10))
	rtl.Add(textRun("cd", 10))
	rtl.Flush()
	runs := rtl.Runs()
	if runs[0].Text() != "cd" || runs[1].Text() != "ab " {
		t.Fatalf("RTL 行应逆序排列 run")
	}
	if got := rtl.IndentLeft(); got != 60 {
		t.Fatalf("RTL 左对齐应镜像到右侧，起点期望 60，实际 %g", got)
	}
}

func TestHyphenationHonoursCharSpacing(t *testing.T) {
	hyphen := StyleAttrs{Hyphenation: SoftHyphenator{}}
	spaced := MetricAttrs{CharSpacing: 1}

	line := NewLine(0, 10, AlignLeft, false)
	line.Add(textRun("xx ", 1))
	rem := line.Add(NewRun("aaaa\u00adbbbb", monoFont(1), spaced, hyphen))
	if line.String() != "xx " || line.WidthLeft() != 7 {
		t.Fatalf("加宽后的前缀放不下时不应断词: %q left=%g", line.String(), line.WidthLeft())
	}
	if rem == nil || rem.Text() != "aaaa\u00adbbbb" {
		t.Fatalf("整个单词应移到下一行: %v", rem)
	}

	line = NewLine(0, 10, AlignLeft, false)
	line.Add(textRun("xx ", 1))
	rem = line.Add(NewRun("aa\u00adaa\u00adbbbb", monoFont(1), spaced, hyphen))
	if line.String() != "xx aa-" || line.WidthLeft() != 1 {
		t.Fatalf("应退到更短的断字点: %q left=%g", line.String(), line.WidthLeft())
	}
	if rem == nil || rem.Text() != "aa\u00adbbbb" {
		t.Fatalf("剩余部分错误: %v", rem)
	}
}

func TestHyphenationNeedsWordStart(t *testing.T) {
	hyphen := StyleAttrs{Hyphenation: SoftHyphenator{}}

	line := NewLine(0, 8, AlignLeft, false)
	line.Add(textRun("xx", 1))
	rem := line.Add(NewRun("aaaa\u00adbbbb", monoFont(1), MetricAttrs{}, hyphen))
	if line.String() != "xx" || rem == nil || rem.Text() != "aaaa\u00adbbbb" {
		t.Fatalf("接续上一个单词的 run 不应断词: %q rem=%v", line.String(), rem)
	}

	line = NewLine(0, 8, AlignLeft, false)
	line.Add(textRun("xx ", 1))
	rem = line.Add(NewRun("aaaa\u00adbbbb", monoFont(1), MetricAttrs{}, hyphen))
	if line.String() != "xx aaaa-" || rem == nil || rem.Text() != "bbbb" {
		t.Fatalf("空白之后的 run 可以断词: %q rem=%v", line.String(), rem)
	}

	line = NewLine(0, 6, AlignLeft, false)
	rem = line.Add(NewRun("aaaa\u00adbbbb", monoFont(1), MetricAttrs{}, hyphen))
	if line.String() != "aaaa-" || rem == nil || rem.Text() != "bbbb" {
		t.Fatalf("行首的单词可以断词: %q rem=%v", line.String(), rem)
	}
}
