package plot

import "github.com/twpayne/go-geom"

// IdentifyFeature is one feature returned by a map identify request.
type IdentifyFeature struct {
	ID         string
	Geometry   geom.T
	CRS        string
	Properties map[string]interface{}
}

// IdentifyResults maps source layer names to their features. Feature
// identity is (layer, feature id).
type IdentifyResults struct {
	layers   []string
	features map[string][]IdentifyFeature
}

// NewIdentifyResults returns an empty set.
func NewIdentifyResults() *IdentifyResults {
	return &IdentifyResults{features: make(map[string][]IdentifyFeature)}
}

// Merge adds features for layer. A feature with an id already present
// replaces the old one in place; new ids are appended.
func (r *IdentifyResults) Merge(layer string, features []IdentifyFeature) {
	existing, known := r.features[layer]
	if !known {
		r.layers = append(r.layers, layer)
	}
	index := make(map[string]int, len(existing))
	for i, f := range existing {
		index[f.ID] = i
	}
	for _, f := range features {
		if i, ok := index[f.ID]; ok {
			existing[i] = f
			continue
		}
		index[f.ID] = len(existing)
		existing = append(existing, f)
	}
	r.features[layer] = existing
}

// Clone returns an independent copy. Feature values are shared.
func (r *IdentifyResults) Clone() *IdentifyResults {
	if r == nil {
		return NewIdentifyResults()
	}
	c := &IdentifyResults{
		layers:   append([]string(nil), r.layers...),
		features: make(map[string][]IdentifyFeature, len(r.features)),
	}
	for k, v := range r.features {
		c.features[k] = append([]IdentifyFeature(nil), v...)
	}
	return c
}

// Layers returns layer names in order of first appearance.
func (r *IdentifyResults) Layers() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.layers...)
}

// Features returns the features of layer.
func (r *IdentifyResults) Features(layer string) []IdentifyFeature {
	if r == nil {
		return nil
	}
	return append([]IdentifyFeature(nil), r.features[layer]...)
}

// Len returns the total number of features.
func (r *IdentifyResults) Len() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, fs := range r.features {
		n += len(fs)
	}
	return n
}
