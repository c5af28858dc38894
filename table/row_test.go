package table

import (
	"image/color"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/columna/typeset"
)

// twoColumnRow 返回宽度 [50, 50] 的一行：左侧五行文本（高 64），右侧一行（高 16）。
func twoColumnRow() *Row {
	row := NewRow([]*Cell{NewTextCell(run(words(10))), NewTextCell(run("bb"))})
	row.SetWidths([]float64{50, 50})
	return row
}

func TestCalculateHeights(t *testing.T) {
	row := twoColumnRow()
	if got := row.MaxHeight(); got != 64 {
		t.Fatalf("MaxHeight = %v, want 64", got)
	}
	if got := row.Cells()[1].Width(); got != 50 {
		t.Fatalf("cell width = %v, want 50", got)
	}
}

func TestCalculateHeightsSkipsRowspan(t *testing.T) {
	tall := NewTextCell(run(words(10)))
	if err := tall.SetRowspan(2); err != nil {
		t.Fatal(err)
	}
	row := NewRow([]*Cell{tall, NewTextCell(run("b"))})
	row.SetWidths([]float64{50, 50})
	if got := row.MaxHeight(); got != 16 {
		t.Fatalf("MaxHeight = %v, want 16", got)
	}
}

func TestEmptyRowHasZeroHeight(t *testing.T) {
	row := NewRow(make([]*Cell, 3))
	row.SetWidths([]float64{10, 10, 10})
	if got := row.Height(); got != 0 {
		t.Fatalf("Height = %v, want 0", got)
	}
	var rec recorder
	if err := row.WriteCells(0, -1, 0, 0, &rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.ops) != 0 {
		t.Fatalf("empty row drew %v", rec.ops)
	}
}

func TestSplitRowFits(t *testing.T) {
	row := twoColumnRow()
	cont, status := row.SplitRow(nil, 0, 64)
	if cont != nil || status != SplitFits {
		t.Fatalf("SplitRow(64) = %v, %v; want nil, fits", cont, status)
	}
	if row.Cells()[0].FixedHeight() != 0 {
		t.Fatalf("fitting split touched fixed height")
	}
}

func TestSplitRowPartial(t *testing.T) {
	row := twoColumnRow()
	cont, status := row.SplitRow(nil, 0, 30)
	if status != SplitPartial || cont == nil {
		t.Fatalf("SplitRow(30) = %v, %v; want continuation", cont, status)
	}
	if got := row.MaxHeight(); got != 30 {
		t.Fatalf("shrunk row height = %v, want 30", got)
	}
	for k, c := range row.Cells() {
		if c.FixedHeight() != 30 {
			t.Fatalf("cell %d fixed height = %v, want 30", k, c.FixedHeight())
		}
	}
	// 两行已排出，剩余三行
	if got := cont.MaxHeight(); got != 40 {
		t.Fatalf("continuation height = %v, want 40", got)
	}
	if cont.Cells()[1].HasContent() {
		t.Fatalf("finished cell should leave an empty continuation")
	}
	if cont.Cells()[0].Width() != 50 {
		t.Fatalf("continuation cell width = %v", cont.Cells()[0].Width())
	}
	if &cont.widths[0] != &row.widths[0] {
		t.Fatalf("continuation should share column widths")
	}
	// 原始内容不受影响
	if got := row.Cells()[0].Column().Clone().Go(46, 1000, false).LinesWritten; got != 5 {
		t.Fatalf("original cursor lines = %d, want 5", got)
	}
}

func TestSplitRowRejectedRestoresHeights(t *testing.T) {
	row := twoColumnRow()
	a, b := row.Cells()[0], row.Cells()[1]
	a.SetMinimumHeight(70)
	b.SetFixedHeight(20)
	before := []float64{a.GetMaxHeight(), b.GetMaxHeight()}
	sims := []int{a.Simulations(), b.Simulations()}
	row.CalculateHeights()

	cont, status := row.SplitRow(nil, 0, 10)
	if cont != nil || status != SplitRejected {
		t.Fatalf("SplitRow(10) = %v, %v; want nil, rejected", cont, status)
	}
	if a.MinimumHeight() != 70 || a.FixedHeight() != 0 {
		t.Fatalf("cell a heights = fixed %v min %v", a.FixedHeight(), a.MinimumHeight())
	}
	if b.FixedHeight() != 20 || b.MinimumHeight() != 0 {
		t.Fatalf("cell b heights = fixed %v min %v", b.FixedHeight(), b.MinimumHeight())
	}
	after := []float64{a.GetMaxHeight(), b.GetMaxHeight()}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("heights changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(sims, []int{a.Simulations(), b.Simulations()}); diff != "" {
		t.Fatalf("cache not restored (-before +after):\n%s", diff)
	}
}

func TestSplitRowNestedTable(t *testing.T) {
	inner := NewTable(1)
	for i := 0; i < 3; i++ {
		inner.AddCell(NewTextCell(run("x")))
	}
	outer := NewCell()
	outer.SetTable(inner)
	row := NewRow([]*Cell{outer})
	row.SetWidths([]float64{100})
	if got := row.MaxHeight(); got != 52 {
		t.Fatalf("nested MaxHeight = %v, want 52", got)
	}
	cont, status := row.SplitRow(nil, 0, 40)
	if status != SplitPartial || cont == nil {
		t.Fatalf("SplitRow(40) = %v, %v", cont, status)
	}
	if got := cont.MaxHeight(); got != 20 {
		t.Fatalf("nested continuation height = %v, want 20", got)
	}
}

func TestWriteCellsPositions(t *testing.T) {
	row := twoColumnRow()
	for _, c := range row.Cells() {
		c.SetBackground(color.White)
	}
	var rec recorder
	if err := row.WriteCells(0, -1, 10, 20, &rec); err != nil {
		t.Fatal(err)
	}
	want := []Rect{{X: 10, Y: 20, W: 50, H: 64}, {X: 60, Y: 20, W: 50, H: 64}}
	if diff := cmp.Diff(want, rec.rects); diff != "" {
		t.Fatalf("backgrounds (-want +got):\n%s", diff)
	}

	rec = recorder{}
	if err := row.WriteCells(1, 2, 10, 20, &rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.rects) != 1 || rec.rects[0].X != 60 {
		t.Fatalf("column range write = %+v", rec.rects)
	}
}

// countOps 统计指定类型的 Canvas 调用次数。
func countOps(rec *recorder, op string) int {
	n := 0
	for _, o := range rec.ops {
		if o == op {
			n++
		}
	}
	return n
}

// rotatedRow 返回 [50, 50] 的一行：左侧十行文本（高 124），右侧旋转 90 度的单元格（高 74）。
func rotatedRow(t *testing.T) *Row {
	t.Helper()
	rot := NewTextCell(run("bbbb bbbb bbbb"))
	if err := rot.SetRotation(90); err != nil {
		t.Fatal(err)
	}
	row := NewRow([]*Cell{NewTextCell(run(words(20))), rot})
	row.SetWidths([]float64{50, 50})
	return row
}

func TestSplitRowDefersRotatedCellOnce(t *testing.T) {
	row := rotatedRow(t)
	if got := row.MaxHeight(); got != 124 {
		t.Fatalf("MaxHeight = %v, want 124", got)
	}
	cont, status := row.SplitRow(nil, 0, 40)
	if status != SplitPartial || cont == nil {
		t.Fatalf("SplitRow(40) = %v, %v", cont, status)
	}
	if !cont.Cells()[1].HasContent() {
		t.Fatalf("rotated content should move to the continuation")
	}

	var first, second recorder
	if err := row.WriteCells(0, -1, 0, 0, &first); err != nil {
		t.Fatal(err)
	}
	if err := cont.WriteCells(0, -1, 0, 0, &second); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(strings.Join(first.texts, " "), "bbbb"); n != 0 {
		t.Fatalf("deferred rotated cell drew %d words on the first slice: %v", n, first.texts)
	}
	if countOps(&first, "save") != 0 {
		t.Fatalf("deferred rotated cell should not open a transform: %v", first.ops)
	}
	if n := strings.Count(strings.Join(second.texts, " "), "bbbb"); n != 3 {
		t.Fatalf("continuation drew %d rotated words, want 3: %v", n, second.texts)
	}
	if n := strings.Count(strings.Join(append(first.texts, second.texts...), " "), "aaaa"); n != 20 {
		t.Fatalf("left column words = %d, want 20", n)
	}
}

func TestSplitRowRotatedFits(t *testing.T) {
	row := rotatedRow(t)
	cont, status := row.SplitRow(nil, 0, 80)
	if status != SplitPartial || cont == nil {
		t.Fatalf("SplitRow(80) = %v, %v", cont, status)
	}
	if cont.Cells()[1].HasContent() {
		t.Fatalf("rotated cell fitting in 80 should stay on the current row")
	}
	var rec recorder
	if err := row.WriteCells(0, -1, 0, 0, &rec); err != nil {
		t.Fatal(err)
	}
	if countOps(&rec, "transform") != 1 {
		t.Fatalf("rotated cell should be drawn on the current row: %v", rec.ops)
	}
}

func TestSplitRowRejectedKeepsRotatedContent(t *testing.T) {
	rot := NewTextCell(run("bbbb bbbb bbbb"))
	if err := rot.SetRotation(270); err != nil {
		t.Fatal(err)
	}
	row := NewRow([]*Cell{rot})
	row.SetWidths([]float64{50})
	cont, status := row.SplitRow(nil, 0, 40)
	if cont != nil || status != SplitRejected {
		t.Fatalf("SplitRow(40) = %v, %v; want nil, rejected", cont, status)
	}
	var rec recorder
	if err := row.WriteCells(0, -1, 0, 0, &rec); err != nil {
		t.Fatal(err)
	}
	if countOps(&rec, "text") == 0 {
		t.Fatalf("rejected split must leave the rotated cell drawable: %v", rec.ops)
	}
}

// imageRow 返回 [50, 50] 的一行：左侧五行文本（高 64），右侧 46x40 的图片（高 44）。
func imageRow(scaleToFit bool) *Row {
	pic := NewCell()
	pic.SetImage(&typeset.Image{Name: "pic", Width: 46, Height: 40, ScaleToFitHeight: scaleToFit})
	row := NewRow([]*Cell{NewTextCell(run(words(10))), pic})
	row.SetWidths([]float64{50, 50})
	return row
}

func TestSplitRowImageCell(t *testing.T) {
	t.Run("deferred", func(t *testing.T) {
		row := imageRow(false)
		cont, status := row.SplitRow(nil, 0, 30)
		if status != SplitPartial || cont == nil {
			t.Fatalf("SplitRow(30) = %v, %v", cont, status)
		}
		if cont.Cells()[1].Image() == nil {
			t.Fatalf("image should move whole to the continuation")
		}
		var first, second recorder
		if err := row.WriteCells(0, -1, 0, 0, &first); err != nil {
			t.Fatal(err)
		}
		if err := cont.WriteCells(0, -1, 0, 0, &second); err != nil {
			t.Fatal(err)
		}
		if countOps(&first, "image") != 0 || countOps(&second, "image") != 1 {
			t.Fatalf("image drawn %d/%d times, want 0/1", countOps(&first, "image"), countOps(&second, "image"))
		}
	})
	t.Run("scale to fit", func(t *testing.T) {
		row := imageRow(true)
		cont, status := row.SplitRow(nil, 0, 30)
		if status != SplitPartial || cont == nil {
			t.Fatalf("SplitRow(30) = %v, %v", cont, status)
		}
		if cont.Cells()[1].HasContent() {
			t.Fatalf("scaled image should stay on the current row")
		}
		var rec recorder
		if err := row.WriteCells(0, -1, 0, 0, &rec); err != nil {
			t.Fatal(err)
		}
		if countOps(&rec, "image") != 1 {
			t.Fatalf("scaled image not drawn: %v", rec.ops)
		}
		// 内容区高 26：图片按高度缩放
		img := rec.rects[len(rec.rects)-1]
		if img.H != 26 || img.X != 52 {
			t.Fatalf("image rect = %+v, want height 26 at x 52", img)
		}
	})
	t.Run("no room for padding", func(t *testing.T) {
		pic := NewCell()
		pic.SetImage(&typeset.Image{Width: 46, Height: 40, ScaleToFitHeight: true})
		row := NewRow([]*Cell{pic})
		row.SetWidths([]float64{50})
		cont, status := row.SplitRow(nil, 0, 3)
		if cont != nil || status != SplitRejected {
			t.Fatalf("SplitRow(3) = %v, %v; want nil, rejected", cont, status)
		}
		if pic.FixedHeight() != 0 {
			t.Fatalf("rejected split changed fixed height to %v", pic.FixedHeight())
		}
	})
}
