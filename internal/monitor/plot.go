package monitor

import (
	"fmt"
	"image/color"
	"io"
	"net/http"
	"os"

	"github.com/banshee-data/pointcloud/internal/kdtree"
	"github.com/banshee-data/pointcloud/internal/pipeline"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const plotSize = 8 * vg.Inch

func (m *Monitor) handlePNG(w http.ResponseWriter, r *http.Request) {
	f := m.LastFrame()
	if f == nil {
		http.Error(w, "no frame processed yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := RenderPNG(w, f); err != nil {
		http.Error(w, fmt.Sprintf("failed to render plot: %v", err), http.StatusInternalServerError)
	}
}

// WritePNG renders f to a PNG file at path.
func WritePNG(path string, f *pipeline.Frame) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderPNG(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// RenderPNG draws kept points in blue and removed points in red.
func RenderPNG(w io.Writer, f *pipeline.Frame) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Frame %d: %d kept, %d removed", f.Seq, len(f.Kept), len(f.Removed))
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())

	pad := extent(f)
	p.X.Min, p.X.Max = -pad, pad
	p.Y.Min, p.Y.Max = -pad, pad

	for _, layer := range []struct {
		name  string
		pts   []kdtree.Point
		color color.Color
	}{
		{"kept", f.Kept, color.RGBA{R: 31, G: 119, B: 180, A: 255}},
		{"removed", f.Removed, color.RGBA{R: 214, G: 39, B: 40, A: 255}},
	} {
		if len(layer.pts) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(layer.pts))
		for i, pt := range layer.pts {
			xys[i] = plotter.XY{X: pt.Coords[0], Y: pt.Coords[1]}
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("%s points: %w", layer.name, err)
		}
		s.GlyphStyle.Color = layer.color
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
		p.Legend.Add(layer.name, s)
	}

	wt, err := p.WriterTo(plotSize, plotSize, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
