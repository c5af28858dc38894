package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ByLCY/columna/layout"
	canvasrenderer "github.com/ByLCY/columna/renderer/canvas"
)

func TestRunDemo(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "pdf", "demo.pdf")
	debug := filepath.Join(dir, "debug", "layout.json")
	r := canvasrenderer.NewRenderer("examples")
	if err := run("examples/demo.columna", out, debug, layout.DebugOptions{RawUnits: true}, nil, r); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("输出不是 PDF")
	}
	if _, err := os.Stat(debug); err != nil {
		t.Fatalf("调试 JSON 未生成: %v", err)
	}
}

func TestRunRequiresRenderer(t *testing.T) {
	if err := run("examples/demo.columna", "out.pdf", "", layout.DebugOptions{}, nil, nil); err == nil {
		t.Fatalf("缺少 renderer 应报错")
	}
}
