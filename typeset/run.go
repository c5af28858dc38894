package typeset

import (
	"fmt"
	"math"
	"unicode"
	"unicode/utf8"
)

// Run 是排版的最小单元：一段同样式的文本、一张图片或一个制表位标记。
// Split/Truncate 会原地修改 run 使其只保留已消耗的头部，并返回共享全部属性的剩余部分。
type Run struct {
	text   string
	eol    string // 被消耗的换行符，仅用于还原原始内容
	image  *Image
	font   Font
	metric MetricAttrs
	style  StyleAttrs

	newlineSplit bool

	// 由 Line 在放置制表位时写入
	stop   *TabStop
	tabPos float64
}

// NewRun 创建文本 run，text 中可以包含换行符。
func NewRun(text string, font Font, metric MetricAttrs, style StyleAttrs) *Run {
	metric.Tab = nil
	return &Run{text: text, font: font, metric: metric, style: style}
}

// NewImageRun 创建图片 run，图片 run 不携带文本。
func NewImageRun(img *Image, metric MetricAttrs, style StyleAttrs) *Run {
	metric.Tab = nil
	return &Run{image: img, metric: metric, style: style}
}

// NewTabRun 创建制表位标记。whitespace 为 true 时，若制表位超出行宽且行内已有内容，标记会被直接丢弃。
func NewTabRun(font Font, settings *TabSettings, whitespace bool, style StyleAttrs) *Run {
	if settings == nil {
		settings = &TabSettings{Interval: DefaultTabInterval}
	}
	return &Run{
		text:   "\t",
		font:   font,
		metric: MetricAttrs{Tab: settings, Whitespace: whitespace},
		style:  style,
	}
}

// Clone 深拷贝 run 自身的几何状态，属性中的策略对象与制表位设置按引用共享。
func (r *Run) Clone() *Run {
	cp := *r
	cp.image = r.image.Clone()
	if r.stop != nil {
		stop := *r.stop
		cp.stop = &stop
	}
	return &cp
}

// Text returns the consumed text, without a trailing line terminator.
func (r *Run) Text() string { return r.text }

// Content returns the text plus the line terminator consumed by a newline split.
func (r *Run) Content() string { return r.text + r.eol }

func (r *Run) Font() Font               { return r.font }
func (r *Run) Image() *Image            { return r.image }
func (r *Run) Metric() MetricAttrs      { return r.metric }
func (r *Run) Style() StyleAttrs        { return r.style }
func (r *Run) IsImage() bool            { return r.image != nil }
func (r *Run) IsTab() bool              { return r.metric.Tab != nil }
func (r *Run) NewlineSplit() bool       { return r.newlineSplit }
func (r *Run) TabStop() *TabStop        { return r.stop }
func (r *Run) TabPosition() float64     { return r.tabPos }
func (r *Run) Leading() float64         { return r.metric.Leading }
func (r *Run) splitter() SplitCharacter { return orDefaultSplit(r.style.Split) }

func orDefaultSplit(s SplitCharacter) SplitCharacter {
	if s == nil {
		return DefaultSplit{}
	}
	return s
}

// Len 返回码点个数；增补平面字符计为一个单位。
func (r *Run) Len() int {
	if r.image != nil {
		return 1
	}
	return utf8.RuneCountInString(r.text)
}

// doubleByte 报告是否需要逐字形测量：双字节编码下空格没有直接步进。
func (r *Run) doubleByte() bool {
	if !r.style.Encoding.DoubleByte() || r.font.Metrics == nil {
		return false
	}
	return !r.font.Metrics.DirectSpace(r.style.Encoding)
}

func (r *Run) charWidth(c rune) float64 {
	if c == SoftHyphen {
		return 0
	}
	w := r.font.advance(c) + r.metric.CharSpacing
	if c == ' ' && !r.doubleByte() {
		w += r.metric.WordSpacing
	}
	return w * r.metric.hscale()
}

// Measure 计算 s 以该 run 的字体与度量属性排出时的宽度。
func (r *Run) Measure(s string) float64 {
	total := 0.0
	for _, c := range s {
		total += r.charWidth(c)
	}
	return total
}

// Width 返回当前头部的宽度；图片返回缩放后的宽度，制表位标记宽度为 0。
func (r *Run) Width() float64 {
	switch {
	case r.image != nil:
		return r.image.ScaledWidth()
	case r.IsTab():
		return 0
	}
	return r.Measure(r.text)
}

// derive 创建共享全部属性的新 run。
func (r *Run) derive(text string) *Run {
	return &Run{text: text, font: r.font, metric: r.metric, style: r.style}
}

// cut 保留 head，把 rest 连同原有换行符交给新的剩余 run。
func (r *Run) cut(head, rest string) *Run {
	rem := r.derive(rest)
	rem.eol = r.eol
	r.eol = ""
	r.text = head
	return rem
}

// cutLine 在 text[i] 处的换行符结束该 run。
func (r *Run) cutLine(text []rune, i int) *Run {
	eol := string(text[i])
	next := i + 1
	if text[i] == '\r' && next < len(text) && text[next] == '\n' {
		eol = "\r\n"
		next++
	}
	rem := r.cut(string(text[:i]), string(text[next:]))
	r.eol = eol
	r.newlineSplit = true
	return rem
}

// Split 让 run 适应 width：返回 nil 表示全部放下；否则 run 只保留头部并返回剩余部分。
// 头部为空表示没有可用断点，整个 run 需要移到下一行。
func (r *Run) Split(width float64) *Run {
	return r.split(width, nil)
}

func (r *Run) split(width float64, siblings []*Run) *Run {
	r.newlineSplit = false
	if r.image != nil {
		if r.image.ScaledWidth() > width {
			rem := r.cut("", "")
			rem.image = r.image
			r.image = nil
			return rem
		}
		return nil
	}
	if r.IsTab() {
		return nil
	}

	text := []rune(r.text)
	splitter := r.splitter()
	dbl := r.doubleByte()
	lastSpace, splitPos := -1, -1
	current := 0.0
	i := 0
	for ; i < len(text); i++ {
		c := text[i]
		if c == '\n' || c == '\r' {
			return r.cutLine(text, i)
		}
		current += r.charWidth(c)
		if current > width {
			break
		}
		if splitter.IsSplit(0, i, len(text), text, siblings) || (dbl && isSpaceUnit(c)) {
			splitPos = i + 1
		}
		if isSpaceUnit(c) {
			lastSpace = i + 1
		}
	}
	if i == len(text) {
		return nil
	}

	// 溢出的正好是可断空白：在它之前断开
	if c := text[i]; unicode.IsSpace(c) && (dbl || splitter.IsSplit(0, i, len(text), text, siblings)) && i > 0 {
		return r.cut(string(text[:i]), string(text[i:]))
	}

	// run 开头只有接在行首或非字母之后才算单词起点
	if h := r.style.Hyphenation; h != nil && (lastSpace >= 0 || wordBoundary(siblings)) {
		start := max(lastSpace, 0)
		end := wordEnd(text, start)
		if end > i && start <= i {
			if head, rest, ok := r.hyphenate(h, text, start, end, width); ok {
				return r.cut(head, rest)
			}
		}
	}

	if splitPos < 0 {
		return r.cut("", string(text))
	}
	return r.cut(string(text[:splitPos]), string(text[splitPos:]))
}

// hyphenate 断开 text[start:end] 处的单词。断词器按字体宽度挑选前缀，
// 头部再按本 run 的字间距与缩放复测，超出 width 时收紧可用宽度重试。
func (r *Run) hyphenate(h Hyphenator, text []rune, start, end int, width float64) (string, string, bool) {
	lead := string(text[:start])
	word := string(text[start:end])
	available := width - r.Measure(lead)
	for n := 0; n < end-start && available > 0; n++ {
		pre, post := h.Hyphenate(word, r.font, available)
		if pre == "" {
			break
		}
		if r.Measure(lead+pre) <= width {
			return lead + pre, post + string(text[end:]), true
		}
		available = math.Nextafter(min(available, r.font.Width(stripSoftHyphens(pre))), math.Inf(-1))
	}
	return "", "", false
}

// wordBoundary 判断紧接在 siblings 之后的文本是否开始一个新单词。
func wordBoundary(siblings []*Run) bool {
	for k := len(siblings) - 1; k >= 0; k-- {
		s := siblings[k]
		if s.image != nil || s.IsTab() {
			return true
		}
		if s.text == "" {
			continue
		}
		c, _ := utf8.DecodeLastRuneInString(s.text)
		return !unicode.IsLetter(c) && c != SoftHyphen
	}
	return true
}

// Truncate 不考虑断点，在第一个使累计宽度超过 width 的字符处截断；至少保留一个字符。
func (r *Run) Truncate(width float64) *Run {
	r.newlineSplit = false
	if r.image != nil || r.IsTab() {
		return nil
	}
	text := []rune(r.text)
	current := 0.0
	i := 0
	for ; i < len(text); i++ {
		c := text[i]
		if c == '\n' || c == '\r' {
			if i == 0 {
				return r.cutLine(text, i)
			}
			break
		}
		current += r.charWidth(c)
		if current > width {
			break
		}
	}
	if i == len(text) {
		return nil
	}
	if i == 0 {
		i = 1
	}
	return r.cut(string(text[:i]), string(text[i:]))
}

// TrimTrailingSpace 删除末尾的一个空白单位并返回回收的宽度。
func (r *Run) TrimTrailingSpace() float64 {
	if r.image != nil || r.IsTab() || r.text == "" {
		return 0
	}
	c, size := utf8.DecodeLastRuneInString(r.text)
	if !isSpaceUnit(c) {
		return 0
	}
	r.text = r.text[:len(r.text)-size]
	return r.charWidth(c)
}

// TrimLeadingSpace 删除开头的一个空白单位并返回回收的宽度。
func (r *Run) TrimLeadingSpace() float64 {
	if r.image != nil || r.IsTab() || r.text == "" {
		return 0
	}
	c, size := utf8.DecodeRuneInString(r.text)
	if !isSpaceUnit(c) {
		return 0
	}
	r.text = r.text[size:]
	return r.charWidth(c)
}

// Encode 按 run 声明的编码输出原始字节；超出编码范围时返回 ErrIllegalContent。
func (r *Run) Encode() ([]byte, error) {
	if r.image != nil || r.IsTab() {
		return nil, nil
	}
	b, err := r.style.Encoding.Encode(stripSoftHyphens(r.text))
	if err != nil {
		return nil, fmt.Errorf("编码 %q 失败: %w", r.text, err)
	}
	return b, nil
}

// DrawText 返回绘制时使用的文本（去掉软连字符）。
func (r *Run) DrawText() string {
	if r.image != nil || r.IsTab() {
		return ""
	}
	return stripSoftHyphens(r.text)
}

func (r *Run) String() string {
	if r.image != nil {
		return "[image " + r.image.Name + "]"
	}
	return r.text
}

func isSpaceUnit(c rune) bool { return c == ' ' || c == '\u3000' }

// wordEnd 返回从 start 开始的单词结束位置；单词由字母与软连字符组成。
func wordEnd(text []rune, start int) int {
	i := start
	for i < len(text) && (unicode.IsLetter(text[i]) || text[i] == SoftHyphen) {
		i++
	}
	return i
}

// countSpaces counts the ' ' characters, the units word spacing applies to.
func countSpaces(s string) int {
	n := 0
	for _, c := range s {
		if c == ' ' {
			n++
		}
	}
	return n
}
