package heatmap

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func sampleChart() Chart {
	return Chart{
		Title:       "Minutes for Team A rotation, current record: 1-1",
		Games:       2,
		Players:     []string{"Starter One", "Bench Two"},
		Minutes:     [][]float64{{36, 30.25}, {12.5, 0}},
		Annotations: [][]string{{"=", "="}, {"", ""}},
		Absent:      [][]int{{0, 0}, {0, 1}},
	}
}

func TestTrendTicks(t *testing.T) {
	tests := []struct {
		name   string
		absMax int
		rows   int
		want   []float64
	}{
		{name: "even max", absMax: 2, rows: 4, want: []float64{-4, -2, 0, 2, 4}},
		{name: "odd max", absMax: 1, rows: 8, want: []float64{-4, -3, -2, -1, 0, 1, 2, 3, 4}},
		{name: "zero", absMax: 0, rows: 2, want: []float64{-2, 0, 2}},
		{name: "coprime rows", absMax: 2, rows: 6, want: []float64{-4, 0, 4}},
		{name: "no rows", absMax: 1, rows: 0, want: []float64{-4, -3, -2, -1, 0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrendTicks(tt.absMax, tt.rows)
			if len(got) != len(tt.want) {
				t.Fatalf("TrendTicks(%d, %d) = %v, want %v", tt.absMax, tt.rows, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("tick %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGrid(t *testing.T) {
	g := grid{c: sampleChart()}
	cols, rows := g.Dims()
	if cols != 2 || rows != 2 {
		t.Fatalf("Dims = %d, %d", cols, rows)
	}
	// The first player is drawn on the top row.
	if got := g.Z(0, 1); got != 36 {
		t.Errorf("Z(0, 1) = %v, want 36", got)
	}
	if got := g.Z(1, 0); got != absentValue {
		t.Errorf("absent cell Z = %v, want %v", got, absentValue)
	}
	if got := g.Z(0, 0); got != 12.5 {
		t.Errorf("Z(0, 0) = %v, want 12.5", got)
	}
	if g.X(0) != 1 || g.row(0) != 1 {
		t.Errorf("X(0) = %v, row(0) = %v", g.X(0), g.row(0))
	}
}

func TestTrendScale(t *testing.T) {
	scale := trendScale(4, 4)
	if got := scale(-4); got != -0.5 {
		t.Errorf("scale(-limit) = %v, want -0.5", got)
	}
	if got := scale(4); got != 3.5 {
		t.Errorf("scale(limit) = %v, want 3.5", got)
	}
	if got := trendScale(4, 0)(3); got != 3 {
		t.Errorf("scale without rows = %v, want 3", got)
	}
}

func decode(t *testing.T, buf *bytes.Buffer) image.Image {
	t.Helper()
	img, err := png.Decode(buf)
	if err != nil {
		t.Fatalf("output is not a png: %v", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		t.Fatalf("empty image %v", b)
	}
	return img
}

func contains(img image.Image, want color.RGBA) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.RGBAModel.Convert(img.At(x, y)).(color.RGBA) == want {
				return true
			}
		}
	}
	return false
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleChart()); err != nil {
		t.Fatal(err)
	}
	if img := decode(t, &buf); !contains(img, grey) {
		t.Error("absent cell is not drawn grey")
	}
}

func TestRenderWithTrend(t *testing.T) {
	c := sampleChart()
	c.PlusMinus = []int{1, 0}
	var buf bytes.Buffer
	if err := Render(&buf, c); err != nil {
		t.Fatal(err)
	}
	decode(t, &buf)
}

func TestRenderWithoutPlayers(t *testing.T) {
	c := Chart{
		Title:       "Minutes for Team A rotation, current record: 2-1",
		Games:       3,
		Minutes:     [][]float64{},
		Annotations: [][]string{},
		Absent:      [][]int{},
		PlusMinus:   []int{1, 2, 1},
	}
	var buf bytes.Buffer
	if err := Render(&buf, c); err != nil {
		t.Fatal(err)
	}
	decode(t, &buf)
}

func TestRenderRejectsRaggedChart(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Chart)
	}{
		{name: "missing row", mutate: func(c *Chart) { c.Absent = c.Absent[:1] }},
		{name: "short row", mutate: func(c *Chart) { c.Minutes[1] = c.Minutes[1][:1] }},
		{name: "trend length", mutate: func(c *Chart) { c.PlusMinus = []int{1} }},
		{name: "game count", mutate: func(c *Chart) { c.Games = 3 }},
		{name: "negative games", mutate: func(c *Chart) { c.Games = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sampleChart()
			tt.mutate(&c)
			if err := Render(&bytes.Buffer{}, c); err == nil {
				t.Error("expected error")
			}
		})
	}
}
