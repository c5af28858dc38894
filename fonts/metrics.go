package fonts

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/columna/typeset"
)

// 以 1000 像素/em 取度量，26.6 定点值即为千分之一 em。
var ppem = fixed.I(1000)

// Metrics 是基于 sfnt 的字体度量，实现 typeset.Metrics。
// sfnt.Buffer 不可并发使用，查询通过互斥锁串行化，结果按码点缓存。
type Metrics struct {
	font    *sfnt.Font
	name    string
	ascent  float64
	descent float64
	space   bool

	mu       sync.Mutex
	buf      sfnt.Buffer
	advances map[rune]float64
}

var _ typeset.Metrics = (*Metrics)(nil)

// Parse 解析 TrueType/OpenType 字体数据。
func Parse(data []byte) (*Metrics, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析字体失败: %w", err)
	}
	m := &Metrics{font: f, advances: map[rune]float64{}}
	fm, err := f.Metrics(&m.buf, ppem, font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("读取字体度量失败: %w", err)
	}
	m.ascent = units(fm.Ascent)
	m.descent = -units(fm.Descent)
	if name, err := f.Name(&m.buf, sfnt.NameIDFull); err == nil {
		m.name = name
	}
	if gi, err := f.GlyphIndex(&m.buf, ' '); err == nil && gi != 0 {
		m.space = true
	}
	return m, nil
}

// LoadMetrics 解析内置字体，name 的写法同 Load。
func LoadMetrics(name string) (*Metrics, error) {
	data, err := Load(name)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Name 返回字体全名，字体未提供时为空。
func (m *Metrics) Name() string { return m.name }

// Advance 返回 r 的步进宽度（1000 单位/em）。字体中缺失的码点使用 .notdef 的宽度。
func (m *Metrics) Advance(r rune) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.advances[r]; ok {
		return w
	}
	w := 0.0
	if gi, err := m.font.GlyphIndex(&m.buf, r); err == nil {
		if adv, err := m.font.GlyphAdvance(&m.buf, gi, ppem, font.HintingNone); err == nil {
			w = units(adv)
		}
	}
	m.advances[r] = w
	return w
}

// Bounds 返回 ascent 与 descent，descent 为负值。
func (m *Metrics) Bounds() (float64, float64) { return m.ascent, m.descent }

// DirectSpace 报告空格是否有独立字形；单字节编码总是 true。
func (m *Metrics) DirectSpace(enc typeset.Encoding) bool {
	return !enc.DoubleByte() || m.space
}

// Has reports whether the font maps r to a real glyph.
func (m *Metrics) Has(r rune) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	gi, err := m.font.GlyphIndex(&m.buf, r)
	return err == nil && gi != 0
}

func units(v fixed.Int26_6) float64 { return float64(v) / 64 }
