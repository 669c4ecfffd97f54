// Package mapview describes mutations of the host map as plain values.
//
// Transitions in the orchestrator and the extract view never touch the map
// directly; they return Effects which an effect runner hands to a Map.
package mapview

import (
	"github.com/twpayne/go-geom"
)

// Layer roles, mirroring the host layer list groups.
const (
	RoleSelection = "selection"
	RoleUser      = "userlayer"
	RoleMarker    = "marker"
)

// Layer types.
const (
	TypeVector = "vector"
	TypeWMS    = "wms"
)

// Color is RGBA with alpha in [0,1].
type Color [4]float64

// Style is a fixed vector style.
type Style struct {
	FillColor   Color     `json:"fill_color"`
	StrokeColor Color     `json:"stroke_color"`
	StrokeWidth float64   `json:"stroke_width"`
	StrokeDash  []float64 `json:"stroke_dash"`
}

// Tags mark layers created by a flow so that they can be found again.
type Tags struct {
	Highlight bool   `json:"highlight,omitempty"`
	Subtheme  string `json:"subtheme,omitempty"`
}

// Layer is a map layer description. Vector layers carry Features, WMS layers
// carry URL and Params.
type Layer struct {
	ID         string            `json:"id"`
	Role       string            `json:"role"`
	Type       string            `json:"type"`
	Name       string            `json:"name,omitempty"`
	Title      string            `json:"title,omitempty"`
	URL        string            `json:"url,omitempty"`
	LegendURL  string            `json:"legend_url,omitempty"`
	InfoURL    string            `json:"feature_info_url,omitempty"`
	Version    string            `json:"version,omitempty"`
	Format     string            `json:"format,omitempty"`
	BBox       string            `json:"bbox,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
	Queryable  bool              `json:"queryable"`
	Visibility bool              `json:"visibility"`
	Opacity    int               `json:"opacity"`
	Style      *Style            `json:"style,omitempty"`
	Tags       Tags              `json:"tags"`
}

// Feature is a vector feature in CRS.
type Feature struct {
	ID         string                 `json:"id"`
	Geometry   geom.T                 `json:"-"`
	CRS        string                 `json:"crs"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Style      *Style                 `json:"style,omitempty"`
}
