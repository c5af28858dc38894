package layout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// debugPage 是调试输出中的一页。Summary 模式只保留操作计数与分片摘要。
type debugPage struct {
	Index    int            `json:"index"`
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
	OpCounts map[OpKind]int `json:"opCounts"`
	Ops      []Op           `json:"ops,omitempty"`
	Header   []Op           `json:"header,omitempty"`
	Footer   []Op           `json:"footer,omitempty"`
	Texts    []TextBox      `json:"texts,omitempty"`
	Tables   []TableBox     `json:"tables,omitempty"`
}

type debugDoc struct {
	Meta      DocumentMeta `json:"meta"`
	Resources *ResourceSet `json:"resources,omitempty"`
	Pages     []debugPage  `json:"pages"`
}

// WriteDebug 把布局结果写成缩进 JSON：每页的操作列表按回放顺序（页眉、正文、页脚）分开输出。
func WriteDebug(w io.Writer, res *Result, opts DebugOptions) error {
	if res == nil {
		return fmt.Errorf("布局结果为空")
	}
	doc := debugDoc{Meta: res.Meta, Pages: make([]debugPage, 0, len(res.Pages))}
	if !opts.Summary {
		doc.Resources = &res.Resources
	}
	for i, p := range res.Pages {
		dp := debugPage{Index: i + 1, Width: p.Width, Height: p.Height, OpCounts: map[OpKind]int{}, Tables: p.Tables}
		for _, ops := range [][]Op{p.Header.Ops, p.Ops, p.Footer.Ops} {
			for _, op := range ops {
				dp.OpCounts[op.Kind]++
			}
		}
		if !opts.Summary {
			dp.Ops, dp.Header, dp.Footer, dp.Texts = p.Ops, p.Header.Ops, p.Footer.Ops, p.Texts
		}
		doc.Pages = append(doc.Pages, dp)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("编码调试 JSON: %w", err)
	}
	return nil
}

// WriteDebugJSON 将调试输出写入 path。
func WriteDebugJSON(res *Result, path string, opts DebugOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建调试文件: %w", err)
	}
	if err := WriteDebug(f, res, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
