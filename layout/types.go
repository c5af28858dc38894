package layout

// 该文件定义布局结果与资源描述，供布局计算、渲染与调试 JSON 共用。

// Result 保存布局后的页面与资源信息。
type Result struct {
	Pages     []Page       `json:"pages"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
}

// ResourceSet 记录解析出的字体、颜色与图片定义。
type ResourceSet struct {
	Fonts  map[string]FontResource  `json:"fonts"`
	Colors map[string]Color         `json:"colors"`
	Images map[string]ImageResource `json:"images"`
	Styles map[string]Style         `json:"styles"`
}

// FontResource 描述字体资源，src 可以是文件路径、内置 embed:* 或 builtin:* 形式。
type FontResource struct {
	Name     string `json:"name"`
	Src      string `json:"src"`
	Style    string `json:"style"`
	Family   string `json:"family"` // 渲染器使用的 Family 名称
	Fallback string `json:"fallback"`
}

// ImageResource 记录图片资源，宽高统一以毫米为单位保存。
type ImageResource struct {
	Name   string  `json:"name"`
	Src    string  `json:"src"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	DPI    int     `json:"dpi"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Page 记录页面尺寸、边距与按绘制顺序排列的操作列表。坐标单位为 mm，原点在左上角。
type Page struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Margin Margin  `json:"margin"`
	Ops    []Op    `json:"ops"`
	// 页眉与页脚（会在每一页重复渲染）
	Header HeaderFooter `json:"header"`
	Footer HeaderFooter `json:"footer"`
	// 以下字段只用于调试输出
	Texts  []TextBox  `json:"texts,omitempty"`
	Tables []TableBox `json:"tables,omitempty"`
}

// HeaderFooter 描述页眉/页脚区域的固定高度与操作列表。
type HeaderFooter struct {
	Height float64 `json:"height"` // 区域高度（mm）
	Ops    []Op    `json:"ops,omitempty"`
}

// Margin 以毫米为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// OpKind 是绘制操作的类型。
type OpKind string

const (
	OpFill      OpKind = "fill"
	OpStroke    OpKind = "stroke"
	OpText      OpKind = "text"
	OpImage     OpKind = "image"
	OpSave      OpKind = "save"
	OpTransform OpKind = "transform"
	OpRestore   OpKind = "restore"
	OpLine      OpKind = "line"
	OpCircle    OpKind = "circle"
)

// Op 是一条绘制操作。矩形类操作使用 X/Y/W/H；line 使用 (X, Y)-(X2, Y2)；
// circle 以 (X, Y) 为圆心、W 为半径；text 与 transform 使用 Matrix（{a, b, c, d, e, f}）。
type Op struct {
	Kind        OpKind      `json:"kind"`
	X           float64     `json:"x,omitempty"`
	Y           float64     `json:"y,omitempty"`
	W           float64     `json:"w,omitempty"`
	H           float64     `json:"h,omitempty"`
	X2          float64     `json:"x2,omitempty"`
	Y2          float64     `json:"y2,omitempty"`
	Matrix      *[6]float64 `json:"matrix,omitempty"`
	Color       *Color      `json:"color,omitempty"`
	StrokeWidth float64     `json:"strokeWidth,omitempty"`
	Fill        *Color      `json:"fill,omitempty"`
	Text        *TextOp     `json:"text,omitempty"`
	Image       string      `json:"image,omitempty"`
}

// TextOp 是一次文本绘制，Matrix 的平移部分为基线起点。
type TextOp struct {
	Content     string  `json:"content"`
	Font        string  `json:"font"`
	Size        float64 `json:"size"` // mm
	Width       float64 `json:"width"`
	CharSpacing float64 `json:"charSpacing,omitempty"`
	WordSpacing float64 `json:"wordSpacing,omitempty"`
	HScale      float64 `json:"hScale,omitempty"`
}

// TextBox 是一个已排版文本块的调试摘要。
type TextBox struct {
	Content  string        `json:"content"`
	X        float64       `json:"x"`
	Y        float64       `json:"y"`
	Width    float64       `json:"width"`
	Height   float64       `json:"height"`
	Font     string        `json:"font"`
	FontSize float64       `json:"fontSize"`
	Align    string        `json:"align,omitempty"` // left/center/right/justify（默认 left）
	Lines    []TextLine    `json:"lines"`
	Debug    *TextBoxDebug `json:"debug,omitempty"`
}

// TextLine 表示排版后的一行，Baseline 相对文本块顶部。
type TextLine struct {
	Content  string  `json:"content"`
	Width    float64 `json:"width"`
	Baseline float64 `json:"baseline"`
}

// TextBoxDebug holds optional debug info displayed only when enabled by BuildOptions.
type TextBoxDebug struct {
	RawUnits *RawUnits `json:"rawUnits,omitempty"`
}

// RawUnits describes original author-specified units for key fields.
type RawUnits struct {
	FontSize   *RawLengthJSON     `json:"fontSize,omitempty"`
	LineHeight *RawLineHeightJSON `json:"lineHeight,omitempty"`
}

// RawLengthJSON is a JSON-friendly representation of Length.
type RawLengthJSON struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// RawLineHeightJSON is a JSON-friendly representation of LineHeight.
type RawLineHeightJSON struct {
	Kind   string  `json:"kind"` // "factor" | "absolute"
	Factor float64 `json:"factor,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Unit   string  `json:"unit,omitempty"`
}

// TableBox 是表格在某一页上的分片摘要。
type TableBox struct {
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Width        float64   `json:"width"`
	Height       float64   `json:"height"`
	ColumnWidths []float64 `json:"columnWidths"`
	Rows         []int     `json:"rows"` // 表格行索引，表头在前
	RowHeights   []float64 `json:"rowHeights"`
}

// Style 用于描述可继承的文本样式。
type Style struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
