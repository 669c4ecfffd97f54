package highlight

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/internal/domain/oereb"
	"github.com/turtacn/plotinfo/internal/domain/plot"
)

func newTestManager() *Manager {
	n := 0
	return NewManager(Config{ServiceProjection: "EPSG:2056", MapProjection: "EPSG:3857", Language: "de"},
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id%d", n) }))
}

func TestPlotSelection_ReplacesLayer(t *testing.T) {
	m := newTestManager()
	rec := &plot.Record{EGRID: "CH123", Geom: "POLYGON((2600000 1200000,2600100 1200000,2600100 1200100,2600000 1200000))"}

	effects := m.PlotSelection(rec)
	require.Len(t, effects, 1)
	add, ok := effects[0].(mapview.AddLayerFeatures)
	require.True(t, ok)

	assert.True(t, add.Clear)
	assert.Equal(t, PlotSelectionLayerID, add.Layer.ID)
	assert.Equal(t, mapview.RoleSelection, add.Layer.Role)
	require.Len(t, add.Features, 1)
	f := add.Features[0]
	assert.Equal(t, "EPSG:3857", f.CRS)
	assert.Equal(t, 8.0, f.Style.StrokeWidth)
	assert.Equal(t, mapview.Color{0, 0, 0, 0}, f.Style.FillColor)
	assert.Empty(t, f.Style.StrokeDash)

	poly := f.Geometry.(*geom.Polygon)
	x := poly.LinearRing(0).Coord(0).X()
	assert.InDelta(t, 828000, x, 2000, "reprojected into web mercator")
}

func TestPlotSelection_RemovesWhenNothingToShow(t *testing.T) {
	m := newTestManager()
	want := []mapview.Effect{mapview.RemoveLayer{ID: PlotSelectionLayerID}}

	assert.Equal(t, want, m.PlotSelection(nil))
	assert.Equal(t, want, m.PlotSelection(&plot.Record{EGRID: "x"}))
	assert.Equal(t, want, m.PlotSelection(&plot.Record{EGRID: "x", Geom: "NOT WKT"}))
}

func wmsEntry(sub, wms string) oereb.Restriction {
	return oereb.Restriction{
		Theme:    oereb.Theme{Code: "LandUsePlans", Text: oereb.Text("Nutzungsplanung")},
		SubTheme: sub,
		Map:      &oereb.MapInfo{ReferenceWMS: wms},
	}
}

func TestThemeLayers_OnePerSubtheme(t *testing.T) {
	m := newTestManager()
	entries := []oereb.Restriction{
		wmsEntry("a", "https://wms.example.ch/ows?SERVICE=WMS&VERSION=1.3.0&FORMAT=image/png&LAYERS=a1&BBOX=1,2,3,4"),
		wmsEntry("a", "https://wms.example.ch/ows?LAYERS=a2"),
		{SubTheme: "b"},
		wmsEntry("b", "https://wms.example.ch/ows?version=1.1.1&layers=b1"),
		wmsEntry("c", "::not a url"),
	}

	layers := m.ThemeLayers("LandUsePlans", entries)
	require.Len(t, layers, 2)

	a := layers[0]
	assert.Equal(t, "LandUsePlans-id1", a.ID)
	assert.Equal(t, mapview.TypeWMS, a.Type)
	assert.Equal(t, "https://wms.example.ch/ows", a.URL)
	assert.Equal(t, "1.3.0", a.Version)
	assert.Equal(t, "image/png", a.Format)
	assert.Equal(t, "1,2,3,4", a.BBox)
	assert.Equal(t, map[string]string{"LAYERS": "a1"}, a.Params)
	assert.Equal(t, "Nutzungsplanung", a.Title)
	assert.Equal(t, mapview.Tags{Highlight: true, Subtheme: "a"}, a.Tags)
	assert.True(t, a.Visibility)

	b := layers[1]
	assert.Equal(t, "1.1.1", b.Version, "parameters match case-insensitively")
	assert.Equal(t, "b1", b.Params["LAYERS"])
	assert.Equal(t, "b", b.Tags.Subtheme)
}

func TestIdentifyMarker(t *testing.T) {
	m := newTestManager()
	results := plot.NewIdentifyResults()

	assert.Equal(t, []mapview.Effect{mapview.RemoveLayer{ID: IdentifyLayerID}}, m.IdentifyMarker(results))

	pt := geom.NewPointFlat(geom.XY, []float64{1, 2})
	results.Merge("L", []plot.IdentifyFeature{{ID: "F1", Geometry: pt, CRS: "EPSG:3857"}, {ID: "F2"}})
	effects := m.IdentifyMarker(results)
	require.Len(t, effects, 1)
	add := effects[0].(mapview.AddLayerFeatures)
	assert.Equal(t, IdentifyLayerID, add.Layer.ID)
	require.Len(t, add.Features, 1, "features without geometry are skipped")
	assert.Equal(t, "L.F1", add.Features[0].ID)
}
