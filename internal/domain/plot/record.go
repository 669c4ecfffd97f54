// Package plot holds the cadastral plot records returned by the plot-info
// service and the info queries offered for each of them.
package plot

import "fmt"

// Record is one cadastral plot.
type Record struct {
	Label  string    `json:"label"`
	EGRID  string    `json:"egrid"`
	Geom   string    `json:"geom"`
	BBox   []float64 `json:"bbox"`
	Fields []Field   `json:"fields"`
}

// Field is an opaque key/value display row. The client decodes numeric
// values to their string form.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// HasBBox reports whether the record carries a usable bounding box.
func (r Record) HasBBox() bool {
	return len(r.BBox) == 4
}

// Bounds returns the bounding box as a fixed-size array.
func (r Record) Bounds() ([4]float64, error) {
	if !r.HasBBox() {
		return [4]float64{}, fmt.Errorf("plot %s: bbox has %d values, want 4", r.EGRID, len(r.BBox))
	}
	return [4]float64{r.BBox[0], r.BBox[1], r.BBox[2], r.BBox[3]}, nil
}
