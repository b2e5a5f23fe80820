package loginpattern

import (
	"math"
	"sort"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two points in
// kilometers.
func Haversine(a, b GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

type weightedPoint struct {
	lat, lon float64
	weight   float64
}

// clusterLocations greedily groups points into clusters of radius radiusKm.
// Each point joins the first cluster whose centroid lies within the radius;
// the centroid is then updated as the running weighted mean of its members.
// Clusters come back sorted by accumulated weight, heaviest first.
func clusterLocations(points []weightedPoint, radiusKm float64) []HomeLocation {
	var clusters []HomeLocation
	for _, p := range points {
		placed := false
		for i := range clusters {
			c := &clusters[i]
			d := Haversine(GeoPoint{Lat: c.Lat, Lon: c.Lon}, GeoPoint{Lat: p.lat, Lon: p.lon})
			if d <= radiusKm {
				total := c.Weight + p.weight
				c.Lat = (c.Lat*c.Weight + p.lat*p.weight) / total
				c.Lon = (c.Lon*c.Weight + p.lon*p.weight) / total
				c.Weight = total
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, HomeLocation{Lat: p.lat, Lon: p.lon, Weight: p.weight})
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Weight > clusters[j].Weight
	})
	return clusters
}

// nearestHomeKm returns the distance from loc to the closest home-location
// centroid, or +Inf when no homes are known.
func nearestHomeKm(loc GeoPoint, homes []HomeLocation) float64 {
	best := math.Inf(1)
	for _, h := range homes {
		d := Haversine(loc, GeoPoint{Lat: h.Lat, Lon: h.Lon})
		if d < best {
			best = d
		}
	}
	return best
}
