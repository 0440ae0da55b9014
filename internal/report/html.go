package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/envtrack/internal/beam"
)

// HTMLOptions control the rendered page. An empty AssetsHost uses the
// go-echarts default CDN.
type HTMLOptions struct {
	Title      string
	Subtitle   string
	AssetsHost string
}

func xyData(x, y []float64) []opts.LineData {
	data := make([]opts.LineData, len(x))
	for i := range x {
		data[i] = opts.LineData{Value: []interface{}{x[i], y[i]}}
	}
	return data
}

func (o HTMLOptions) init(height string) opts.Initialization {
	return opts.Initialization{PageTitle: o.Title, Width: "100%", Height: height, AssetsHost: o.AssetsHost}
}

// envelopeChart plots the RMS sizes on a numeric position axis.
func envelopeChart(o HTMLOptions, s Series) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("600px")),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "s (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "RMS size (mm)"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	for _, a := range beam.Axes {
		line.AddSeries(a.String(), xyData(s.Position, s.Size[a]))
	}
	return line
}

func energyChart(o HTMLOptions, s Series) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("360px")),
		charts.WithTitleOpts(opts.Title{Title: "Kinetic energy"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "s (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: fmt.Sprintf("W (%s)", s.EnergyUnits)}),
	)
	line.AddSeries("W", xyData(s.Position, s.Energy))
	return line
}

// RenderHTML writes an HTML page with the envelope and energy charts.
func RenderHTML(w io.Writer, o HTMLOptions, s Series) error {
	if s.Len() == 0 {
		return ErrEmptySeries
	}
	page := components.NewPage()
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.PageTitle = o.Title
	page.AddCharts(envelopeChart(o, s), energyChart(o, s))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}
