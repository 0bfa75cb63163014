package report

import (
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/Agrid-Dev/fryerlab/internal/sim"
)

// WritePNG renders the two-panel run figure: plant temperature against the
// setpoint band on top, controller output, gated error and disturbances
// below.
func WritePNG(filename string, r *sim.Result) error {
	top := plot.New()
	top.Title.Text = "Plant temperature"
	top.X.Label.Text = "time (s)"
	top.Y.Label.Text = "temperature (°C)"

	if err := plotutil.AddLines(top,
		"temperature", series(r.Time, r.Temperature),
		"setpoint", horizontal(r, r.Config.Setpoint),
		"band high", horizontal(r, r.Config.Setpoint+r.Config.Deadband),
		"band low", horizontal(r, r.Config.Setpoint-r.Config.Deadband),
	); err != nil {
		return fmt.Errorf("plot temperature panel: %w", err)
	}

	bottom := plot.New()
	bottom.Title.Text = "Controller"
	bottom.X.Label.Text = "time (s)"
	bottom.Y.Label.Text = "output / error"

	if err := plotutil.AddLines(bottom,
		"output", series(r.Time, r.Controller),
		"effective error", series(r.Time, r.EffectiveError),
		"disturbance", series(r.Time, r.Disturbance),
	); err != nil {
		return fmt.Errorf("plot controller panel: %w", err)
	}

	img := vgimg.New(8*vg.Inch, 8*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 2, Cols: 1}
	top.Draw(tiles.At(dc, 0, 0))
	bottom.Draw(tiles.At(dc, 0, 1))

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %v", err)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write plot: %v", err)
	}
	return file.Close()
}

func series(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts
}

// horizontal spans a constant level across the run's time range.
func horizontal(r *sim.Result, level float64) plotter.XYs {
	n := r.Steps()
	if n == 0 {
		return nil
	}
	return plotter.XYs{
		{X: r.Time[0], Y: level},
		{X: r.Time[n-1], Y: level},
	}
}
