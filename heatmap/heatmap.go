// Package heatmap draws a team's rotation chart: minutes per player per
// game as a heatmap with the win/loss trend laid over it, written as PNG.
package heatmap

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"nbarotations/utils"
)

const (
	paletteName = "YlOrRd"
	shades      = 9
	// absentValue sits below the colour range so absent cells fall through
	// to the underflow colour.
	absentValue = -1
)

var (
	grey      = color.RGBA{128, 128, 128, 255}
	trendBlue = color.RGBA{31, 119, 180, 255}
)

// Chart is everything the renderer needs. Minutes, Annotations and Absent
// are indexed [player][game] and must be Games wide; PlusMinus is empty or
// holds one value per game.
type Chart struct {
	Title       string
	Games       int
	Players     []string
	Minutes     [][]float64
	Annotations [][]string
	Absent      [][]int
	PlusMinus   []int
}

func (c Chart) validate() error {
	rows := len(c.Players)
	if c.Games < 0 {
		return fmt.Errorf("chart has %d games", c.Games)
	}
	if len(c.Minutes) != rows || len(c.Annotations) != rows || len(c.Absent) != rows {
		return fmt.Errorf("chart has %d players but %d/%d/%d matrix rows",
			rows, len(c.Minutes), len(c.Annotations), len(c.Absent))
	}
	for p := 0; p < rows; p++ {
		if len(c.Minutes[p]) != c.Games || len(c.Annotations[p]) != c.Games || len(c.Absent[p]) != c.Games {
			return fmt.Errorf("row %d of chart is not %d games wide", p, c.Games)
		}
	}
	if len(c.PlusMinus) != 0 && len(c.PlusMinus) != c.Games {
		return fmt.Errorf("chart has %d games but %d trend values", c.Games, len(c.PlusMinus))
	}
	return nil
}

// TrendTicks places the trend axis ticks so that they line up with the
// heatmap rows: the axis runs symmetrically to an even limit above the
// largest swing and is split into gcd(2*limit, rows) equal steps.
func TrendTicks(absMax, rows int) []float64 {
	limit := absMax + 2
	if absMax%2 != 0 {
		limit = absMax + 3
	}
	steps := gcd(2*limit, rows)
	ticks := make([]float64, steps+1)
	for i := range ticks {
		ticks[i] = float64(-limit) + float64(2*limit)*float64(i)/float64(steps)
	}
	return ticks
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// grid feeds the minutes matrix to the heatmap plotter. Column c is game
// c+1; row 0 is the last player so the busiest player ends up on top.
type grid struct {
	c Chart
}

func (g grid) Dims() (cols, rows int) { return g.c.Games, len(g.c.Players) }
func (g grid) X(col int) float64      { return float64(col + 1) }
func (g grid) Y(row int) float64      { return float64(row) }

func (g grid) Z(col, row int) float64 {
	p := g.player(row)
	if g.c.Absent[p][col] == 1 {
		return absentValue
	}
	return g.c.Minutes[p][col]
}

func (g grid) player(row int) int {
	return len(g.c.Players) - 1 - row
}

func (g grid) row(player int) float64 {
	return float64(len(g.c.Players) - 1 - player)
}

// trendScale maps a wins-minus-losses value onto the y axis. With player
// rows the trend is stretched so [-limit, limit] covers the rows exactly;
// without rows the axis is the trend's own.
func trendScale(limit float64, rows int) func(float64) float64 {
	if rows == 0 {
		return func(v float64) float64 { return v }
	}
	return func(v float64) float64 {
		return float64(rows-1)/2 + v*float64(rows)/(2*limit)
	}
}

// Render draws c and writes it to w as PNG.
func Render(w io.Writer, c Chart) error {
	if err := c.validate(); err != nil {
		return utils.ErrorWithTrace(err)
	}
	p, err := newPlot(c)
	if err != nil {
		return utils.ErrorWithTrace(err)
	}

	width := vg.Points(float64(260 + 18*max(c.Games, 4)))
	height := vg.Points(float64(140 + 18*max(len(c.Players), 6)))
	canvas := vgimg.New(width, height)
	p.Draw(draw.New(canvas))
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(w); err != nil {
		return utils.ErrorWithTrace(err)
	}
	return nil
}

func newPlot(c Chart) (*plot.Plot, error) {
	rows := len(c.Players)
	g := grid{c: c}

	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = "Game Number   (= Starter, / Injured/Ill, grey: not in boxscore)"
	p.Legend.Top = true

	if rows > 0 && c.Games > 0 {
		hm, err := heatmapFor(g)
		if err != nil {
			return nil, err
		}
		p.Add(hm)
		glyphs, err := glyphsFor(g)
		if err != nil {
			return nil, err
		}
		if glyphs != nil {
			p.Add(glyphs)
		}
	}

	absMax := 0
	for _, v := range c.PlusMinus {
		absMax = max(absMax, v, -v)
	}
	ticks := TrendTicks(absMax, rows)
	limit := ticks[len(ticks)-1]
	scale := trendScale(limit, rows)

	if len(c.PlusMinus) > 0 {
		if err := addTrend(p, c, scale); err != nil {
			return nil, err
		}
	}

	xTicks := []plot.Tick{}
	for n := 1; n <= c.Games; n++ {
		label := ""
		if n%2 == 1 {
			label = fmt.Sprint(n)
		}
		xTicks = append(xTicks, plot.Tick{Value: float64(n), Label: label})
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.X.Min = 0.5
	p.X.Max = float64(c.Games) + 1.5

	if rows == 0 {
		yTicks := make([]plot.Tick, len(ticks))
		for i, t := range ticks {
			yTicks[i] = plot.Tick{Value: t, Label: fmt.Sprintf("%.0f", t)}
		}
		p.Y.Label.Text = "Wins minus Losses"
		p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
		p.Y.Min, p.Y.Max = -limit, limit
		return p, nil
	}

	yTicks := make([]plot.Tick, rows)
	for i, name := range c.Players {
		yTicks[i] = plot.Tick{Value: g.row(i), Label: name}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	if len(c.PlusMinus) > 0 {
		if err := addTrendAxis(p, c, ticks, scale); err != nil {
			return nil, err
		}
	}
	p.Y.Min = -0.5
	p.Y.Max = float64(rows) - 0.5
	return p, nil
}

func heatmapFor(g grid) (*plotter.HeatMap, error) {
	pal, err := brewer.GetPalette(brewer.TypeSequential, paletteName, shades)
	if err != nil {
		return nil, err
	}
	maxMinutes := 0.0
	for _, row := range g.c.Minutes {
		for _, m := range row {
			maxMinutes = math.Max(maxMinutes, m)
		}
	}
	hm := plotter.NewHeatMap(g, pal)
	hm.Min = 0
	hm.Max = math.Max(maxMinutes, 1)
	hm.Underflow = grey
	return hm, nil
}

// glyphsFor marks starters and injured players on top of their cells. It
// returns nil when there is nothing to mark.
func glyphsFor(g grid) (*plotter.Labels, error) {
	xys := plotter.XYs{}
	labels := []string{}
	for p, row := range g.c.Annotations {
		for col, glyph := range row {
			if glyph == "" || g.c.Absent[p][col] == 1 {
				continue
			}
			xys = append(xys, plotter.XY{X: g.X(col), Y: g.row(p)})
			labels = append(labels, glyph)
		}
	}
	if len(labels) == 0 {
		return nil, nil
	}
	l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = draw.XCenter
		l.TextStyle[i].YAlign = draw.YCenter
	}
	return l, nil
}

func addTrend(p *plot.Plot, c Chart, scale func(float64) float64) error {
	zero, err := plotter.NewLine(plotter.XYs{
		{X: 0.5, Y: scale(0)},
		{X: float64(c.Games) + 0.5, Y: scale(0)},
	})
	if err != nil {
		return err
	}
	zero.LineStyle.Width = vg.Points(1)
	zero.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	pts := make(plotter.XYs, len(c.PlusMinus))
	for i, v := range c.PlusMinus {
		pts[i] = plotter.XY{X: float64(i + 1), Y: scale(float64(v))}
	}
	trend, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	trend.LineStyle.Width = vg.Points(2.5)
	trend.LineStyle.Color = trendBlue

	p.Add(zero, trend)
	p.Legend.Add("Wins minus Losses", trend)
	return nil
}

// addTrendAxis labels the trend ticks down the right edge of the grid.
func addTrendAxis(p *plot.Plot, c Chart, ticks []float64, scale func(float64) float64) error {
	xys := make(plotter.XYs, len(ticks))
	labels := make([]string, len(ticks))
	for i, t := range ticks {
		xys[i] = plotter.XY{X: float64(c.Games) + 0.7, Y: scale(t)}
		labels[i] = fmt.Sprintf("%.0f", t)
	}
	l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(l)
	return nil
}
