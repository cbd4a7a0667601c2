package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/edgard/tgstats/internal/stats"
)

// Chart file names referenced from index.html.
const (
	PopulationChart = "population.png"
	MessagesChart   = "messages.png"
	ActivityChart   = "activity.png"
)

var (
	colorLine  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorJoin  = color.RGBA{G: 160, A: 255}
	colorLeave = color.RGBA{R: 200, A: 255}
)

func writeCharts(data *Data, dir string, loc *time.Location) error {
	charts := []struct {
		enabled bool
		name    string
		build   func() (*plot.Plot, error)
		height  vg.Length
	}{
		{data.Sections.Population, PopulationChart, func() (*plot.Plot, error) { return populationPlot(data.Population, loc) }, 4.5 * vg.Inch},
		{data.Sections.Messages, MessagesChart, func() (*plot.Plot, error) { return messagesPlot(data.Volume, loc) }, 4.5 * vg.Inch},
		{data.Sections.Activity, ActivityChart, func() (*plot.Plot, error) { return activityPlot(data.Activity) }, 3 * vg.Inch},
	}

	for _, c := range charts {
		if !c.enabled {
			continue
		}
		p, err := c.build()
		if err != nil {
			return fmt.Errorf("failed to build %s: %w", c.name, err)
		}
		if err := savePNG(p, 10*vg.Inch, c.height, filepath.Join(dir, c.name)); err != nil {
			return err
		}
	}
	return nil
}

func savePNG(p *plot.Plot, width, height vg.Length, path string) (err error) {
	canvas := vgimg.New(width, height)
	p.Draw(draw.New(canvas))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close chart file: %w", closeErr)
		}
	}()

	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func timeAxis(p *plot.Plot, loc *time.Location) {
	p.X.Tick.Marker = plot.TimeTicks{
		Format: "01/06",
		Time: func(t float64) time.Time {
			return time.Unix(int64(t), 0).In(loc)
		},
	}
}

func populationPlot(days []stats.PopulationDay, loc *time.Location) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Population"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Members"
	timeAxis(p, loc)
	p.Add(plotter.NewGrid())
	if len(days) == 0 {
		return p, nil
	}

	total := make(plotter.XYs, len(days))
	joins := make(plotter.XYs, len(days))
	leaves := make(plotter.XYs, len(days))
	for i, d := range days {
		x := float64(d.Day.Unix())
		total[i] = plotter.XY{X: x, Y: float64(d.Total)}
		joins[i] = plotter.XY{X: x, Y: float64(d.Joins)}
		leaves[i] = plotter.XY{X: x, Y: -float64(d.Leaves)}
	}

	series := []struct {
		label string
		xys   plotter.XYs
		color color.Color
		step  plotter.StepKind
	}{
		{"Members", total, colorLine, plotter.NoStep},
		{"Joined", joins, colorJoin, plotter.MidStep},
		{"Left", leaves, colorLeave, plotter.MidStep},
	}
	for _, s := range series {
		line, err := plotter.NewLine(s.xys)
		if err != nil {
			return nil, err
		}
		line.Color = s.color
		line.StepStyle = s.step
		p.Add(line)
		p.Legend.Add(s.label, line)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

func messagesPlot(days []stats.DayCount, loc *time.Location) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Messages per day"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Messages"
	timeAxis(p, loc)
	p.Add(plotter.NewGrid())
	if len(days) == 0 {
		return p, nil
	}

	xys := make(plotter.XYs, len(days))
	for i, d := range days {
		xys[i] = plotter.XY{X: float64(d.Day.Unix()), Y: float64(d.Messages)}
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.Color = colorLine
	p.Add(line)
	p.Y.Min = 0
	return p, nil
}

func activityPlot(hours [24]int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Activity"
	p.X.Label.Text = "Hours"
	p.Y.Label.Text = "Messages"
	p.Add(plotter.NewGrid())

	values := make(plotter.Values, len(hours))
	names := make([]string, len(hours))
	for h, n := range hours {
		values[h] = float64(n)
		names[h] = strconv.Itoa(h)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return nil, err
	}
	bars.Color = colorLine
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)
	return p, nil
}
