package main

import (
	"io"

	"github.com/akmonengine/convex"
	"github.com/akmonengine/convex/polytope"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-gl/mathgl/mgl64"
)

// render writes an HTML page with two 3D charts: the hull vertices, and the
// face loops of every body.
func render(w io.Writer, bodies []*convex.Body, hulls []*polytope.Polytope) error {
	scatter := charts.NewScatter3D()
	scatter.SetGlobalOptions(chartOptions("Hull vertices")...)

	lines := charts.NewLine3D()
	lines.SetGlobalOptions(chartOptions("Hull faces")...)

	for i, hull := range hulls {
		if hull == nil {
			continue
		}
		name := bodies[i].Name

		vertices := make([]opts.Chart3DData, 0, hull.NumberOfVertices())
		for _, v := range hull.Vertices() {
			vertices = append(vertices, point3D(v.Position()))
		}
		scatter.AddSeries(name, vertices)

		// series sharing a name share a legend entry
		for _, face := range hull.Faces() {
			loop := face.Vertices()
			if len(loop) == 0 {
				continue
			}
			data := make([]opts.Chart3DData, 0, len(loop)+1)
			for _, v := range loop {
				data = append(data, point3D(v.Position()))
			}
			data = append(data, point3D(loop[0].Position()))
			lines.AddSeries(name, data)
		}
	}

	page := components.NewPage()
	page.AddCharts(scatter, lines)
	return page.Render(w)
}

func chartOptions(title string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Height: "720px",
			Width:  "1020px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: title,
			Left:  "10%",
		}),
		charts.WithLegendOpts(opts.Legend{
			Right: "10%",
		}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "X"}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Y"}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Z"}),
	}
}

func point3D(p mgl64.Vec3) opts.Chart3DData {
	return opts.Chart3DData{Value: []interface{}{p.X(), p.Y(), p.Z()}}
}
