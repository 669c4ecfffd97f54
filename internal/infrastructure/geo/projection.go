// Package geo decodes plot geometries and moves coordinates between the
// service CRS (Swiss LV95) and the map CRS.
package geo

import (
	"math"
	"strings"

	"github.com/turtacn/plotinfo/pkg/errors"
)

// Supported CRS codes.
const (
	EPSG2056  = "EPSG:2056"  // CH1903+ / LV95
	EPSG21781 = "EPSG:21781" // CH1903 / LV03
	EPSG4326  = "EPSG:4326"
	EPSG3857  = "EPSG:3857"
)

const earthRadius = 6378137.0

// canonical maps aliases onto the supported codes.
func canonical(crs string) string {
	c := strings.ToUpper(strings.TrimSpace(crs))
	switch c {
	case "EPSG:900913", "EPSG:102100":
		return EPSG3857
	case "CRS:84", "WGS84":
		return EPSG4326
	}
	return c
}

// Supported reports whether crs can be transformed.
func Supported(crs string) bool {
	switch canonical(crs) {
	case EPSG2056, EPSG21781, EPSG4326, EPSG3857:
		return true
	}
	return false
}

// Transform converts (x, y) from one CRS to another via WGS84. The Swiss
// conversions use the swisstopo approximation formulas (sub-metre accuracy).
func Transform(from, to string, x, y float64) (float64, float64, error) {
	from, to = canonical(from), canonical(to)
	if from == to {
		return x, y, nil
	}
	lon, lat, err := toWGS84(from, x, y)
	if err != nil {
		return 0, 0, err
	}
	return fromWGS84(to, lon, lat)
}

func toWGS84(crs string, x, y float64) (float64, float64, error) {
	switch crs {
	case EPSG4326:
		return x, y, nil
	case EPSG3857:
		lon := x / earthRadius * 180 / math.Pi
		lat := (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
		return lon, lat, nil
	case EPSG2056:
		lon, lat := lv95ToWGS84(x, y)
		return lon, lat, nil
	case EPSG21781:
		lon, lat := lv95ToWGS84(x+2000000, y+1000000)
		return lon, lat, nil
	}
	return 0, 0, errors.New(errors.ErrCodeUnsupportedProjection, "unsupported source projection").WithDetail(crs)
}

func fromWGS84(crs string, lon, lat float64) (float64, float64, error) {
	switch crs {
	case EPSG4326:
		return lon, lat, nil
	case EPSG3857:
		x := earthRadius * lon * math.Pi / 180
		y := earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
		return x, y, nil
	case EPSG2056:
		e, n := wgs84ToLV95(lon, lat)
		return e, n, nil
	case EPSG21781:
		e, n := wgs84ToLV95(lon, lat)
		return e - 2000000, n - 1000000, nil
	}
	return 0, 0, errors.New(errors.ErrCodeUnsupportedProjection, "unsupported target projection").WithDetail(crs)
}

// lv95ToWGS84 converts LV95 easting/northing to longitude/latitude degrees.
func lv95ToWGS84(e, n float64) (float64, float64) {
	y := (e - 2600000) / 1e6
	x := (n - 1200000) / 1e6

	lon := 2.6779094 + 4.728982*y + 0.791484*y*x + 0.1306*y*x*x - 0.0436*y*y*y
	lat := 16.9023892 + 3.238272*x - 0.270978*y*y - 0.002528*x*x - 0.0447*y*y*x - 0.0140*x*x*x

	// Units are 10000"; convert to degrees.
	return lon * 100 / 36, lat * 100 / 36
}

// wgs84ToLV95 converts longitude/latitude degrees to LV95 easting/northing.
func wgs84ToLV95(lon, lat float64) (float64, float64) {
	phi := (lat*3600 - 169028.66) / 10000
	lambda := (lon*3600 - 26782.5) / 10000

	e := 2600072.37 + 211455.93*lambda - 10938.51*lambda*phi - 0.36*lambda*phi*phi - 44.54*lambda*lambda*lambda
	n := 1200147.07 + 308807.95*phi + 3745.25*lambda*lambda + 76.63*phi*phi - 194.56*lambda*lambda*phi + 119.79*phi*phi*phi
	return e, n
}

// BBox is [minx, miny, maxx, maxy].
type BBox [4]float64

// Center returns the midpoint of b.
func (b BBox) Center() (float64, float64) {
	return (b[0] + b[2]) / 2, (b[1] + b[3]) / 2
}

// TransformBBox reprojects all four corners of b and returns their envelope.
func TransformBBox(from, to string, b BBox) (BBox, error) {
	corners := [4][2]float64{{b[0], b[1]}, {b[2], b[1]}, {b[2], b[3]}, {b[0], b[3]}}
	out := BBox{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, c := range corners {
		x, y, err := Transform(from, to, c[0], c[1])
		if err != nil {
			return BBox{}, err
		}
		out[0] = math.Min(out[0], x)
		out[1] = math.Min(out[1], y)
		out[2] = math.Max(out[2], x)
		out[3] = math.Max(out[3], y)
	}
	return out, nil
}
