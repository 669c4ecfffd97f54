package mapview

import (
	"context"
	"sync"
)

// Recorder is an in-memory Map. It keeps the resulting layer list and the
// history of applied effects.
type Recorder struct {
	mu             sync.Mutex
	order          []string
	layers         map[string]*recordedLayer
	history        []Effect
	zoom           *ZoomToPoint
	pointSelection bool
	sublayers      []string
}

type recordedLayer struct {
	layer    Layer
	features []Feature
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{layers: make(map[string]*recordedLayer)}
}

// Apply implements Map.
func (r *Recorder) Apply(_ context.Context, effect Effect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, effect)

	switch e := effect.(type) {
	case AddLayer:
		r.put(e.Layer)
	case AddLayerFeatures:
		rl, ok := r.layers[e.Layer.ID]
		if !ok {
			rl = r.put(e.Layer)
		}
		if e.Clear {
			rl.features = nil
		}
		rl.features = append(rl.features, e.Features...)
	case RemoveLayer:
		if _, ok := r.layers[e.ID]; ok {
			delete(r.layers, e.ID)
			for i, id := range r.order {
				if id == e.ID {
					r.order = append(r.order[:i], r.order[i+1:]...)
					break
				}
			}
		}
	case ChangeLayerProperties:
		if rl, ok := r.layers[e.ID]; ok && e.Visibility != nil {
			rl.layer.Visibility = *e.Visibility
		}
	case ZoomToPoint:
		z := e
		r.zoom = &z
	case SetPointSelection:
		r.pointSelection = e.Enabled
	case AddThemeSublayers:
		r.sublayers = append(r.sublayers, e.Layers...)
	}
	return nil
}

func (r *Recorder) put(l Layer) *recordedLayer {
	if _, ok := r.layers[l.ID]; !ok {
		r.order = append(r.order, l.ID)
	}
	rl := &recordedLayer{layer: l}
	r.layers[l.ID] = rl
	return rl
}

// Layers returns the current layers in insertion order.
func (r *Recorder) Layers() []Layer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Layer, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.layers[id].layer)
	}
	return out
}

// Layer returns the layer with id.
func (r *Recorder) Layer(id string) (Layer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rl, ok := r.layers[id]
	if !ok {
		return Layer{}, false
	}
	return rl.layer, true
}

// Features returns the features of layer id.
func (r *Recorder) Features(id string) []Feature {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rl, ok := r.layers[id]; ok {
		return append([]Feature(nil), rl.features...)
	}
	return nil
}

// FindByTags returns the layers whose tags match.
func (r *Recorder) FindByTags(match func(Tags) bool) []Layer {
	var out []Layer
	for _, l := range r.Layers() {
		if match(l.Tags) {
			out = append(out, l)
		}
	}
	return out
}

// History returns every effect applied so far.
func (r *Recorder) History() []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Effect(nil), r.history...)
}

// LastZoom returns the most recent zoom request.
func (r *Recorder) LastZoom() (ZoomToPoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.zoom == nil {
		return ZoomToPoint{}, false
	}
	return *r.zoom, true
}

// PointSelection reports whether point selection is enabled.
func (r *Recorder) PointSelection() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pointSelection
}

// Sublayers returns the theme sub-layers requested so far.
func (r *Recorder) Sublayers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sublayers...)
}
