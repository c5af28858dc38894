package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ByLCY/columna/dsl"
	"github.com/ByLCY/columna/layout"
	canvasrenderer "github.com/ByLCY/columna/renderer/canvas"
)

func main() {
	input := flag.String("in", "examples/demo.columna", "DSL 文件路径")
	output := flag.String("out", "output/demo.pdf", "PDF 输出路径")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	debugRawUnits := flag.Bool("debug-raw-units", false, "在调试 JSON 中输出 debug.rawUnits 影子字段")
	debugSummary := flag.Bool("debug-summary", false, "调试 JSON 只输出每页的操作计数")
	dataJSON := flag.String("data", "", "绑定到 DSL 的 JSON 数据")
	flag.Parse()

	var inputData any
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &inputData); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	r := canvasrenderer.NewRenderer(filepath.Dir(*input))
	opts := layout.DebugOptions{RawUnits: *debugRawUnits, Summary: *debugSummary}
	if err := run(*input, *output, *debug, opts, inputData, r); err != nil {
		log.Fatalf("生成 PDF 失败: %v", err)
	}
	fmt.Printf("已生成 PDF：%s\n", *output)
}

// run 串联解析、布局与渲染。渲染器同时提供排版所需的字体度量。
func run(inputPath, outputPath, debugPath string, debug layout.DebugOptions, data any, r *canvasrenderer.Renderer) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	doc, err := dsl.ParseFile(inputPath)
	if err != nil {
		return err
	}

	result, err := layout.Build(doc, data, layout.BuildOptions{
		Fonts: r,
		Debug: debug,
	})
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}

	if debugPath != "" {
		if err := writeDebug(result, debugPath, debug); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	pdfBytes, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := os.WriteFile(outputPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}

	return nil
}

func writeDebug(result *layout.Result, debugPath string, opts layout.DebugOptions) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath, opts); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
