package monitor

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/banshee-data/pointcloud/internal/kdtree"
	"github.com/banshee-data/pointcloud/internal/pipeline"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleCloud renders the latest frame as an interactive XY scatter.
func (m *Monitor) handleCloud(w http.ResponseWriter, r *http.Request) {
	f := m.LastFrame()
	if f == nil {
		http.Error(w, "no frame processed yet", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := renderScatter(&buf, f); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func scatterData(pts []kdtree.Point) []opts.ScatterData {
	data := make([]opts.ScatterData, 0, len(pts))
	for _, p := range pts {
		data = append(data, opts.ScatterData{Value: []interface{}{p.Coords[0], p.Coords[1], p.Strength}})
	}
	return data
}

// extent returns the half-width of a square view holding every point.
func extent(f *pipeline.Frame) float64 {
	pad := 1.0
	for _, set := range [][]kdtree.Point{f.Kept, f.Removed} {
		for _, p := range set {
			pad = math.Max(pad, math.Max(math.Abs(p.Coords[0]), math.Abs(p.Coords[1])))
		}
	}
	return math.Ceil(pad)
}

func renderScatter(w io.Writer, f *pipeline.Frame) error {
	pad := extent(f)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Point cloud", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Frame %d", f.Seq),
			Subtitle: fmt.Sprintf("packets=%d kept=%d removed=%d duplicates=%d", f.Packets, len(f.Kept), len(f.Removed), f.Duplicates),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("kept", scatterData(f.Kept), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	scatter.AddSeries("removed", scatterData(f.Removed), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	return scatter.Render(w)
}
