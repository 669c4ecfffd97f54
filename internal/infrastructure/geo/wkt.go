package geo

import (
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/turtacn/plotinfo/pkg/errors"
)

// DecodeWKT parses a well-known-text geometry.
func DecodeWKT(s string) (geom.T, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "empty geometry")
	}
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidGeometry, "failed to decode WKT")
	}
	return g, nil
}

// ReprojectInPlace transforms every coordinate of g from one CRS to another.
// Only the first two ordinates of each vertex are touched.
func ReprojectInPlace(g geom.T, from, to string) error {
	if canonical(from) == canonical(to) {
		return nil
	}
	flat := g.FlatCoords()
	stride := g.Stride()
	if stride < 2 {
		return nil
	}
	for i := 0; i+1 < len(flat); i += stride {
		x, y, err := Transform(from, to, flat[i], flat[i+1])
		if err != nil {
			return err
		}
		flat[i], flat[i+1] = x, y
	}
	return nil
}

// DecodeWKTIn decodes s given in CRS from and returns it reprojected to CRS to.
func DecodeWKTIn(s, from, to string) (geom.T, error) {
	g, err := DecodeWKT(s)
	if err != nil {
		return nil, err
	}
	if err := ReprojectInPlace(g, from, to); err != nil {
		return nil, err
	}
	return g, nil
}
