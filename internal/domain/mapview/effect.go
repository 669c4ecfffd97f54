package mapview

import "context"

// Effect kinds.
const (
	KindAddLayer              = "add_layer"
	KindAddLayerFeatures      = "add_layer_features"
	KindRemoveLayer           = "remove_layer"
	KindChangeLayerProperties = "change_layer_properties"
	KindZoomToPoint           = "zoom_to_point"
	KindSetPointSelection     = "set_point_selection"
	KindAddThemeSublayers     = "add_theme_sublayers"
)

// Effect is a side effect returned by a transition. Kind identifies the
// concrete type on the wire.
type Effect interface {
	Kind() string
}

// AddLayer adds a layer, replacing any layer with the same ID.
type AddLayer struct {
	Layer Layer `json:"layer"`
}

// AddLayerFeatures adds features to a vector layer, creating it when absent.
// Clear drops the layer's existing features first.
type AddLayerFeatures struct {
	Layer    Layer     `json:"layer"`
	Features []Feature `json:"features"`
	Clear    bool      `json:"clear"`
}

// RemoveLayer removes a layer by ID. Removing an absent layer is a no-op.
type RemoveLayer struct {
	ID string `json:"id"`
}

// ChangeLayerProperties updates mutable layer properties.
type ChangeLayerProperties struct {
	ID         string `json:"id"`
	Visibility *bool  `json:"visibility,omitempty"`
}

// ZoomToPoint centres the map on (X, Y) given in CRS at Zoom.
type ZoomToPoint struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom int     `json:"zoom"`
	CRS  string  `json:"crs"`
}

// SetPointSelection enables or disables click-to-select on the map.
type SetPointSelection struct {
	Enabled bool `json:"enabled"`
}

// AddThemeSublayers asks the host to make the named theme sub-layers visible.
type AddThemeSublayers struct {
	Layers []string `json:"layers"`
}

func (AddLayer) Kind() string              { return KindAddLayer }
func (AddLayerFeatures) Kind() string      { return KindAddLayerFeatures }
func (RemoveLayer) Kind() string           { return KindRemoveLayer }
func (ChangeLayerProperties) Kind() string { return KindChangeLayerProperties }
func (ZoomToPoint) Kind() string           { return KindZoomToPoint }
func (SetPointSelection) Kind() string     { return KindSetPointSelection }
func (AddThemeSublayers) Kind() string     { return KindAddThemeSublayers }

// IsMapEffect reports whether e is one of the effects a Map applies.
func IsMapEffect(e Effect) bool {
	switch e.(type) {
	case AddLayer, AddLayerFeatures, RemoveLayer, ChangeLayerProperties,
		ZoomToPoint, SetPointSelection, AddThemeSublayers:
		return true
	}
	return false
}

// Map is the host map collaborator.
type Map interface {
	Apply(ctx context.Context, effect Effect) error
}

// MapFunc adapts a function to Map.
type MapFunc func(ctx context.Context, effect Effect) error

func (f MapFunc) Apply(ctx context.Context, effect Effect) error { return f(ctx, effect) }

// Multi fans every effect out to all maps and returns the first error.
func Multi(maps ...Map) Map {
	return MapFunc(func(ctx context.Context, effect Effect) error {
		var first error
		for _, m := range maps {
			if err := m.Apply(ctx, effect); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
