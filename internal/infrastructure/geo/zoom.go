package geo

import "math"

// ZoomForExtent returns the zoom level whose resolution is closest to the
// resolution needed to fit extent into a width×height viewport, clamped to
// [minZoom, maxZoom].
func ZoomForExtent(extent BBox, resolutions []float64, width, height, minZoom, maxZoom int) int {
	if len(resolutions) == 0 || width <= 0 || height <= 0 {
		return minZoom
	}
	xRes := math.Abs((extent[2] - extent[0]) / float64(width))
	yRes := math.Abs((extent[3] - extent[1]) / float64(height))
	target := math.Max(xRes, yRes)

	best, bestDiff := 0, math.Inf(1)
	for i, r := range resolutions {
		if d := math.Abs(r - target); d <= bestDiff {
			best, bestDiff = i, d
		}
	}
	if best > maxZoom {
		best = maxZoom
	}
	if best < minZoom {
		best = minZoom
	}
	return best
}
