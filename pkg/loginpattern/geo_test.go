package loginpattern

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineSymmetricAndZero(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		a := GeoPoint{Lat: rng.Float64()*180 - 90, Lon: rng.Float64()*360 - 180}
		b := GeoPoint{Lat: rng.Float64()*180 - 90, Lon: rng.Float64()*360 - 180}
		assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
		assert.Zero(t, Haversine(a, a))
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	paris := GeoPoint{Lat: 48.8566, Lon: 2.3522}
	london := GeoPoint{Lat: 51.5074, Lon: -0.1278}
	assert.InDelta(t, 343, Haversine(paris, london), 5)
}

func TestClusteringOrderIndependence(t *testing.T) {
	// Three well-separated groups; within-group spread is far under the 50 km
	// radius and between-group distance far over it, so any insertion order
	// must produce the same three centroids.
	centers := []GeoPoint{
		{Lat: 0, Lon: 0},
		{Lat: 10, Lon: 0},
		{Lat: 0, Lon: 10},
	}
	var points []weightedPoint
	for ci, c := range centers {
		for j := 0; j < 4; j++ {
			points = append(points, weightedPoint{
				lat:    c.Lat + float64(j)*0.02,
				lon:    c.Lon + float64(j)*0.02,
				weight: float64(ci*4+j+1) * 0.01,
			})
		}
	}

	reference := clusterLocations(points, 50)
	require.Len(t, reference, 3)

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]weightedPoint, len(points))
		copy(shuffled, points)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := clusterLocations(shuffled, 50)
		require.Len(t, got, 3)
		for _, want := range reference {
			found := false
			for _, c := range got {
				if absf(c.Lat-want.Lat) < 1e-6 && absf(c.Lon-want.Lon) < 1e-6 && absf(c.Weight-want.Weight) < 1e-9 {
					found = true
					break
				}
			}
			assert.True(t, found, "centroid %+v missing after shuffle", want)
		}
	}
}

func TestClusterRankingHeaviestFirst(t *testing.T) {
	points := []weightedPoint{
		{lat: 0, lon: 0, weight: 0.1},
		{lat: 10, lon: 0, weight: 0.6},
		{lat: 0, lon: 10, weight: 0.3},
	}
	clusters := clusterLocations(points, 50)
	require.Len(t, clusters, 3)
	assert.InDelta(t, 10.0, clusters[0].Lat, 1e-9)
	assert.InDelta(t, 0.6, clusters[0].Weight, 1e-9)
	assert.InDelta(t, 0.1, clusters[2].Weight, 1e-9)
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
