package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/columna/dsl"
	"github.com/ByLCY/columna/fonts"
)

// collectResources 汇总所有 resources 段落中的字体、颜色、图片与样式。
func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Fonts:  map[string]FontResource{},
		Colors: map[string]Color{},
		Images: map[string]ImageResource{},
		Styles: map[string]Style{},
	}
	rawStyles := map[string]Style{}

	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			cmd := stmt.Command
			if cmd == nil || len(cmd.Args) == 0 {
				continue
			}
			switch cmd.Name {
			case "font":
				font := parseFontResource(cmd)
				res.Fonts[font.Name] = font
			case "color":
				name, value := cmd.Args[0].Value, cmd.Args[len(cmd.Args)-1].Value
				c, err := parseColor(value)
				if err != nil {
					return res, fmt.Errorf("color %s: %w", name, err)
				}
				res.Colors[name] = c
			case "image":
				image := parseImageResource(cmd)
				res.Images[image.Name] = image
			case "style":
				style := parseStyleResource(cmd)
				rawStyles[style.Name] = style
			}
		}
	}

	if len(res.Fonts) == 0 {
		res.Fonts["Body"] = FontResource{Name: "Body", Src: "embed:" + fonts.Default, Family: "Body"}
	}

	resolved, err := resolveStyles(rawStyles)
	if err != nil {
		return res, err
	}
	res.Styles = resolved
	return res, nil
}

func collectMeta(doc *dsl.Document) DocumentMeta {
	meta := DocumentMeta{Creator: "Columna"}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			a := stmt.Assignment
			if a == nil {
				continue
			}
			switch strings.ToLower(a.Key) {
			case "title":
				meta.Title = a.Value.Text()
			case "author":
				meta.Author = a.Value.Text()
			case "subject":
				meta.Subject = a.Value.Text()
			case "creator":
				meta.Creator = a.Value.Text()
			case "keywords":
				meta.Keywords = a.Value.List()
			}
		}
	}
	return meta
}

func parseFontResource(cmd *dsl.Command) FontResource {
	name := cmd.Args[0].Value
	font := FontResource{Name: name, Family: name}
	for _, a := range assignments(cmd.Block) {
		switch a.Key {
		case "src":
			font.Src = a.Value.Text()
		case "style":
			font.Style = a.Value.Text()
		case "family":
			font.Family = a.Value.Text()
		case "fallback":
			font.Fallback = a.Value.Text()
		}
	}
	return font
}

func parseImageResource(cmd *dsl.Command) ImageResource {
	image := ImageResource{Name: cmd.Args[0].Value}
	for _, a := range assignments(cmd.Block) {
		switch a.Key {
		case "src":
			image.Src = a.Value.Text()
		case "width":
			image.Width = parseLength(a.Value.Text())
		case "height":
			image.Height = parseLength(a.Value.Text())
		case "dpi":
			if v, err := strconv.Atoi(a.Value.Text()); err == nil {
				image.DPI = v
			}
		}
	}
	return image
}

// parseStyleResource 解析 `style Name [extends Parent] { key: value }`。
func parseStyleResource(cmd *dsl.Command) Style {
	style := Style{Name: cmd.Args[0].Value, Props: map[string]string{}}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Extends = cmd.Args[2].Value
	}
	for _, a := range assignments(cmd.Block) {
		if val := a.Value.Text(); val != "" {
			style.Props[a.Key] = val
		}
	}
	return style
}

func assignments(block *dsl.Block) []*dsl.Assignment {
	if block == nil {
		return nil
	}
	var out []*dsl.Assignment
	for _, stmt := range block.Statements {
		if stmt.Assignment != nil {
			out = append(out, stmt.Assignment)
		}
	}
	return out
}

// resolveStyles 展开 extends 继承链，子样式覆盖父样式。
func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var visit func(name string) (Style, error)
	visit = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return Style{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := visit(style.Extends)
			if err != nil {
				return Style{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range style.Props {
			props[k] = v
		}
		style.Props = props
		resolved[name] = style
		return style, nil
	}

	for name := range styles {
		if _, err := visit(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// pageSections 按文档顺序返回全部 page 段落，以及按名称索引的 page-set 模板。
func pageSections(doc *dsl.Document) ([]*dsl.PageSection, map[string]*dsl.PageSetSection, error) {
	var pages []*dsl.PageSection
	sets := map[string]*dsl.PageSetSection{}
	for _, section := range doc.Sections {
		switch {
		case section.Page != nil:
			pages = append(pages, section.Page)
		case section.PageSet != nil:
			if _, dup := sets[section.PageSet.Name]; dup {
				return nil, nil, fmt.Errorf("page-set %s 重复定义", section.PageSet.Name)
			}
			sets[section.PageSet.Name] = section.PageSet
		}
	}
	return pages, sets, nil
}

// pageTemplate 返回 `page ... template Name` 引用的模板。
func pageTemplate(spec dsl.PageSpec, sets map[string]*dsl.PageSetSection) (*dsl.PageSetSection, error) {
	for i, token := range spec.Params {
		if token.Value != "template" {
			continue
		}
		if i+1 >= len(spec.Params) {
			return nil, fmt.Errorf("template 缺少模板名")
		}
		name := spec.Params[i+1].Value
		set, ok := sets[name]
		if !ok {
			return nil, fmt.Errorf("未定义的 page-set %s", name)
		}
		return set, nil
	}
	return nil, nil
}

var pagePresets = map[string][2]float64{
	"A3":     {297, 420},
	"A4":     {210, 297},
	"A5":     {148, 210},
	"LETTER": {215.9, 279.4},
}

func resolvePageSize(spec dsl.PageSpec) (float64, float64, error) {
	base, ok := pagePresets[strings.ToUpper(spec.Size)]
	if !ok {
		return 0, 0, fmt.Errorf("暂不支持的纸张尺寸：%s", spec.Size)
	}
	width, height := base[0], base[1]
	for _, token := range spec.Params {
		if token.Value == "landscape" {
			width, height = height, width
		}
	}
	return width, height, nil
}

// resolveMargin 解析 `margin v1 [v2 [v3 [v4]]]`，默认四边 20mm。
// 1 个值：四边相同；2 个值：上下、左右；3 个值：上、右、下，左为 0；4 个值：上右下左，多余的值忽略。
func resolveMargin(params []*dsl.Lexeme) Margin {
	margin := Margin{Top: 20, Right: 20, Bottom: 20, Left: 20}
	for i, token := range params {
		if token.Value != "margin" {
			continue
		}
		var vals []float64
		for _, p := range params[i+1:] {
			if len(vals) == 4 {
				break
			}
			l, err := ParseLength(p.Value)
			if err != nil || l.Unit == UnitPercent {
				break
			}
			vals = append(vals, l.MM())
		}
		switch len(vals) {
		case 1:
			v := vals[0]
			margin = Margin{Top: v, Right: v, Bottom: v, Left: v}
		case 2:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
		case 3:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2]}
		case 4:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
		}
	}
	return margin
}

// mergeStyleAttributes 以样式属性为底，叠加行内属性。
func mergeStyleAttributes(style string, inline map[string]string, styles map[string]Style) map[string]string {
	out := make(map[string]string, len(inline))
	if s, ok := styles[style]; ok {
		for k, v := range s.Props {
			out[k] = v
		}
	}
	for k, v := range inline {
		out[k] = v
	}
	return out
}

func resolveFontResource(name string, res ResourceSet) (FontResource, error) {
	if font, ok := res.Fonts[name]; ok {
		return font, nil
	}
	if font, ok := res.Fonts["Body"]; ok {
		return font, nil
	}
	for _, font := range res.Fonts {
		return font, nil
	}
	return FontResource{}, fmt.Errorf("字体 %s 未定义，且没有可用的默认字体", name)
}

func resolveColor(value string, res ResourceSet) (Color, bool) {
	if value == "" {
		return Color{}, false
	}
	if c, ok := res.Colors[value]; ok {
		return c, true
	}
	c, err := parseColor(value)
	return c, err == nil
}

func parseColor(value string) (Color, error) {
	hex := strings.TrimPrefix(value, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	v, err := strconv.ParseUint(hex[:6], 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", value, err)
	}
	return Color{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}, nil
}

func alignOffset(container, width float64, align string) float64 {
	if container <= width {
		return 0
	}
	switch strings.ToLower(align) {
	case "center", "middle":
		return (container - width) / 2
	case "right", "end":
		return container - width
	}
	return 0
}
