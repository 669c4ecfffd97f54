// Package highlight derives the transient map layers of the plot-info tool:
// the selected plot's outline, the identify marker and the per-sub-theme WMS
// overlays of an expanded restriction theme.
package highlight

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/internal/domain/oereb"
	"github.com/turtacn/plotinfo/internal/domain/plot"
	"github.com/turtacn/plotinfo/internal/infrastructure/geo"
)

// Layer ids owned by the plot-info flows.
const (
	PlotSelectionLayerID = "plotselection"
	IdentifyLayerID      = "identifyselection"
)

// PlotSelectionStyle outlines the selected plot without filling it.
var PlotSelectionStyle = mapview.Style{
	FillColor:   mapview.Color{0, 0, 0, 0},
	StrokeColor: mapview.Color{242, 151, 84, 0.75},
	StrokeWidth: 8,
	StrokeDash:  []float64{},
}

// IdentifyStyle marks identify results.
var IdentifyStyle = mapview.Style{
	FillColor:   mapview.Color{255, 255, 0, 0.25},
	StrokeColor: mapview.Color{255, 200, 0, 1},
	StrokeWidth: 2,
	StrokeDash:  []float64{},
}

// Config holds the projections and language the manager works with.
type Config struct {
	ServiceProjection string
	MapProjection     string
	Language          string
}

// Manager builds highlight layer effects. It holds no layer state.
type Manager struct {
	cfg   Config
	newID func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator replaces the uuid based layer id suffix generator.
func WithIDGenerator(f func() string) Option {
	return func(m *Manager) { m.newID = f }
}

// NewManager creates a Manager.
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{cfg: cfg, newID: uuid.NewString}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Language returns the language used for layer titles.
func (m *Manager) Language() string { return m.cfg.Language }

func selectionLayer() mapview.Layer {
	style := PlotSelectionStyle
	return mapview.Layer{
		ID:         PlotSelectionLayerID,
		Role:       mapview.RoleSelection,
		Type:       mapview.TypeVector,
		Visibility: true,
		Opacity:    255,
		Style:      &style,
	}
}

// PlotSelection replaces the plot selection layer with rec's outline. A nil
// record, or a geometry that cannot be decoded, removes the layer instead.
func (m *Manager) PlotSelection(rec *plot.Record) []mapview.Effect {
	if rec == nil || rec.Geom == "" {
		return []mapview.Effect{m.RemovePlotSelection()}
	}
	g, err := geo.DecodeWKTIn(rec.Geom, m.cfg.ServiceProjection, m.cfg.MapProjection)
	if err != nil {
		return []mapview.Effect{m.RemovePlotSelection()}
	}
	style := PlotSelectionStyle
	return []mapview.Effect{mapview.AddLayerFeatures{
		Layer: selectionLayer(),
		Features: []mapview.Feature{{
			ID:       rec.EGRID,
			Geometry: g,
			CRS:      m.cfg.MapProjection,
			Style:    &style,
		}},
		Clear: true,
	}}
}

// RemovePlotSelection removes the plot selection layer.
func (m *Manager) RemovePlotSelection() mapview.Effect {
	return mapview.RemoveLayer{ID: PlotSelectionLayerID}
}

// IdentifyMarker mirrors the merged identify results into the marker layer.
func (m *Manager) IdentifyMarker(results *plot.IdentifyResults) []mapview.Effect {
	if results.Len() == 0 {
		return []mapview.Effect{mapview.RemoveLayer{ID: IdentifyLayerID}}
	}
	style := IdentifyStyle
	var features []mapview.Feature
	for _, layer := range results.Layers() {
		for _, f := range results.Features(layer) {
			if f.Geometry == nil {
				continue
			}
			features = append(features, mapview.Feature{
				ID:         layer + "." + f.ID,
				Geometry:   f.Geometry,
				CRS:        f.CRS,
				Properties: f.Properties,
			})
		}
	}
	return []mapview.Effect{mapview.AddLayerFeatures{
		Layer: mapview.Layer{
			ID:         IdentifyLayerID,
			Role:       mapview.RoleMarker,
			Type:       mapview.TypeVector,
			Visibility: true,
			Opacity:    255,
			Style:      &style,
		},
		Features: features,
		Clear:    true,
	}}
}

// ThemeLayers builds one WMS overlay per distinct sub-theme of entries,
// taken from the first entry of that sub-theme carrying a reference WMS.
// Every layer is tagged as highlight and with its sub-theme.
func (m *Manager) ThemeLayers(themeCode string, entries []oereb.Restriction) []mapview.Layer {
	var layers []mapview.Layer
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.Map == nil || e.Map.ReferenceWMS == "" {
			continue
		}
		if _, ok := seen[e.SubTheme]; ok {
			continue
		}
		layer, ok := m.wmsLayer(themeCode, e)
		if !ok {
			continue
		}
		layers = append(layers, layer)
		seen[e.SubTheme] = struct{}{}
	}
	return layers
}

func (m *Manager) wmsLayer(themeCode string, e oereb.Restriction) (mapview.Layer, bool) {
	u, err := url.Parse(e.Map.ReferenceWMS)
	if err != nil || u.Host == "" {
		return mapview.Layer{}, false
	}
	base := u.Scheme + "://" + u.Host + u.Path
	q := u.Query()

	return mapview.Layer{
		ID:         themeCode + "-" + m.newID(),
		Role:       mapview.RoleUser,
		Type:       mapview.TypeWMS,
		Name:       themeCode,
		Title:      e.Theme.Text.Resolve(m.cfg.Language),
		URL:        base,
		LegendURL:  base,
		InfoURL:    base,
		Version:    param(q, "VERSION"),
		Format:     param(q, "FORMAT"),
		BBox:       param(q, "BBOX"),
		Params:     map[string]string{"LAYERS": param(q, "LAYERS")},
		Queryable:  false,
		Visibility: true,
		Opacity:    255,
		Tags:       mapview.Tags{Highlight: true, Subtheme: e.SubTheme},
	}, true
}

// param looks a WMS parameter up case-insensitively.
func param(q url.Values, name string) string {
	if v := q.Get(name); v != "" {
		return v
	}
	for k, v := range q {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
