//go:build !noplot

package chart

import (
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/ayusman/mudra/internal/nn"
)

// Available reports whether plotting is compiled in.
func Available() bool { return true }

// History writes accuracy and loss curves side by side as a PNG.
func History(path string, h nn.History) error {
	if h.Len() == 0 {
		return fmt.Errorf("no epochs to plot")
	}

	acc, err := curves("Model Accuracy", "Accuracy", h, nn.MetricAccuracy, nn.MetricValAccuracy)
	if err != nil {
		return err
	}
	loss, err := curves("Model Loss", "Loss", h, nn.MetricLoss, nn.MetricValLoss)
	if err != nil {
		return err
	}

	img := vgimg.New(12*vg.Inch, 4*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      2,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 2,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	plots := [][]*plot.Plot{{acc, loss}}
	canvases := plot.Align(plots, tiles, dc)
	acc.Draw(canvases[0][0])
	loss.Draw(canvases[0][1])

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func curves(title, yLabel string, h nn.History, train, val string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true

	trainXY, err := series(h, train)
	if err != nil {
		return nil, err
	}
	valXY, err := series(h, val)
	if err != nil {
		return nil, err
	}

	if err := plotutil.AddLinePoints(p, "Training", trainXY, "Validation", valXY); err != nil {
		return nil, fmt.Errorf("plot %s: %w", title, err)
	}
	return p, nil
}

func series(h nn.History, metric string) (plotter.XYs, error) {
	values, err := h.Series(metric)
	if err != nil {
		return nil, err
	}
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i] = plotter.XY{X: float64(h.Epochs[i].Epoch), Y: v}
	}
	return pts, nil
}
