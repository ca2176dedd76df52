package geospatial

import "math"

const earthRadiusM = 6371000.0

// metres per degree of latitude (and of longitude at the equator)
const metersPerDegree = 111000.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / metersPerDegree
	lonDelta := radiusMeters / (metersPerDegree * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// PathBoundingBox returns a bounding box covering every point of a path,
// padded by padMeters. The longitude padding is widened by 1/cos(mean lat);
// at high latitudes this over-includes candidates, which is the safe
// direction for a pre-filter.
func PathBoundingBox(lats, lons []float64, padMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	minLat, maxLat = lats[0], lats[0]
	minLon, maxLon = lons[0], lons[0]
	meanLat := 0.0
	for i := range lats {
		minLat = math.Min(minLat, lats[i])
		maxLat = math.Max(maxLat, lats[i])
		minLon = math.Min(minLon, lons[i])
		maxLon = math.Max(maxLon, lons[i])
		meanLat += lats[i]
	}
	meanLat /= float64(len(lats))

	latPad := padMeters / metersPerDegree
	cosLat := math.Cos(toRad(meanLat))
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonPad := latPad / cosLat

	return minLat - latPad, minLon - lonPad, maxLat + latPad, maxLon + lonPad
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
