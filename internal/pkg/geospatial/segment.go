package geospatial

import "math"

// Point-to-segment distances use a local equirectangular projection centred
// on the segment's mean latitude. The flat-earth approximation is accurate to
// a few metres over the distances that matter here (a search radius of a few
// hundred metres around road legs up to tens of kilometres).

// projectXY converts lat/lon to metres in a local tangent plane anchored at refLat.
func projectXY(lat, lon, refLat float64) (x, y float64) {
	x = toRad(lon) * earthRadiusM * math.Cos(toRad(refLat))
	y = toRad(lat) * earthRadiusM
	return x, y
}

// PointToSegment returns the distance in meters from a point to the line
// segment between (lat1,lon1) and (lat2,lon2). A zero-length segment
// degenerates to point-to-point distance.
func PointToSegment(pLat, pLon, lat1, lon1, lat2, lon2 float64) float64 {
	refLat := (lat1 + lat2) / 2

	px, py := projectXY(pLat, pLon, refLat)
	x1, y1 := projectXY(lat1, lon1, refLat)
	x2, y2 := projectXY(lat2, lon2, refLat)

	dx := x2 - x1
	dy := y2 - y1

	if dx == 0 && dy == 0 {
		return math.Hypot(px-x1, py-y1)
	}

	t := ((px-x1)*dx + (py-y1)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))

	projX := x1 + t*dx
	projY := y1 + t*dy
	return math.Hypot(px-projX, py-projY)
}

// PointToPath returns the minimum distance in meters from a point to a
// polyline given as parallel lat/lon slices. A single-point path degenerates
// to haversine distance. Any numeric degeneracy yields a finite distance,
// never NaN.
func PointToPath(pLat, pLon float64, lats, lons []float64) float64 {
	switch len(lats) {
	case 0:
		return math.Inf(1)
	case 1:
		return Haversine(pLat, pLon, lats[0], lons[0])
	}

	min := math.Inf(1)
	for i := 0; i < len(lats)-1; i++ {
		d := PointToSegment(pLat, pLon, lats[i], lons[i], lats[i+1], lons[i+1])
		if math.IsNaN(d) {
			continue
		}
		if d < min {
			min = d
		}
	}
	if math.IsInf(min, 1) {
		// every segment degenerated; fall back to the first vertex
		return Haversine(pLat, pLon, lats[0], lons[0])
	}
	return min
}
